package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/fxregime/internal/scheduler"
	"github.com/wonny/fxregime/internal/scheduler/jobs"
)

var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Run the pipeline on its schedules",
	Long: `Manages the scheduler daemon.

Registered jobs:
- market_build: weekdays 17:30 New York (after the FX close)
- positioning_build: Fridays 16:00 New York (after the weekly report)

Subcommands:
  start   - start the scheduler daemon
  list    - list registered jobs
  run     - run one job immediately
  status  - show job run history`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "Start the scheduler daemon",
		RunE:  runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "List registered jobs",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "Run one job immediately",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}

	schedulerStatusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show job run history",
		RunE:  showStatus,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
	schedulerCmd.AddCommand(schedulerStatusCmd)
}

func runScheduler(cmd *cobra.Command, args []string) error {
	sched, err := initScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	sched.Start()

	fmt.Println("scheduler started, registered jobs:")
	for _, name := range sched.Jobs() {
		fmt.Printf("  - %s\n", name)
	}
	fmt.Println("press Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	fmt.Println("shutting down scheduler...")
	sched.Stop()
	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	sched, err := initScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	fmt.Println("registered jobs:")
	for _, name := range sched.Jobs() {
		fmt.Printf("  - %s\n", name)
	}
	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	sched, err := initScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	if err := sched.RunJob(args[0]); err != nil {
		return fmt.Errorf("run job: %w", err)
	}

	fmt.Printf("job %s started, waiting for completion...\n", args[0])

	// The scheduler runs jobs asynchronously; poll history until this
	// run lands so the CLI exits with the real outcome.
	for {
		time.Sleep(2 * time.Second)
		history, err := sched.History(args[0])
		if err != nil {
			return err
		}
		if result, ok := history.Last(); ok {
			if !result.Success {
				return fmt.Errorf("job %s failed: %s", args[0], result.Error)
			}
			fmt.Printf("job %s completed in %s\n", args[0], result.Duration)
			return nil
		}
	}
}

func showStatus(cmd *cobra.Command, args []string) error {
	sched, err := initScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	for _, name := range sched.Jobs() {
		history, err := sched.History(name)
		if err != nil {
			return err
		}

		fmt.Printf("%s\n", name)
		fmt.Printf("  runs: %d, success rate: %.0f%%\n",
			len(history.Results), history.SuccessRate()*100)
		if last, ok := history.Last(); ok {
			fmt.Printf("  last run: %s (%s)\n",
				last.StartTime.Format("2006-01-02 15:04:05"), outcome(last))
		}
		fmt.Println()
	}
	return nil
}

func outcome(r scheduler.JobResult) string {
	if r.Success {
		return "ok"
	}
	return "failed: " + r.Error
}

func initScheduler() (*scheduler.Scheduler, error) {
	a, err := initApp()
	if err != nil {
		return nil, err
	}

	loc, err := time.LoadLocation(a.marketCfg.Calendar.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load scheduler timezone: %w", err)
	}

	deps := jobs.Deps{
		Pipeline: a.pipeline,
		Store:    a.store,
		Brief:    a.brief,
		Charts:   a.charts,
		Logger:   a.log,
	}

	sched := scheduler.New(loc, a.log)
	if err := sched.AddJob(jobs.NewMarketJob(deps)); err != nil {
		return nil, err
	}
	if err := sched.AddJob(jobs.NewPositioningJob(deps)); err != nil {
		return nil, err
	}

	return sched, nil
}
