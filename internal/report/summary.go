// Package report carries the machine-readable completion summaries each
// engine emits, so degraded data is visible without opening the files.
package report

import (
	"github.com/wonny/fxregime/pkg/logger"
)

// Summary describes one engine pass over the panel.
type Summary struct {
	Engine   string         `json:"engine"`
	Columns  []string       `json:"columns"`
	Rows     int            `json:"rows"`
	Absent   map[string]int `json:"absent,omitempty"`
	Warnings []string       `json:"warnings,omitempty"`
}

// New creates an empty summary for an engine.
func New(engine string) *Summary {
	return &Summary{Engine: engine, Absent: make(map[string]int)}
}

// AddColumn records a computed column and its absent-cell count.
func (s *Summary) AddColumn(name string, absent int) {
	s.Columns = append(s.Columns, name)
	s.Absent[name] = absent
}

// Warn records a degraded-data warning.
func (s *Summary) Warn(msg string) {
	s.Warnings = append(s.Warnings, msg)
}

// Merge folds another engine's summary into this one. Column names are
// engine-scoped so collisions cannot occur.
func (s *Summary) Merge(other *Summary) {
	if other == nil {
		return
	}
	for _, name := range other.Columns {
		s.AddColumn(name, other.Absent[name])
	}
	s.Warnings = append(s.Warnings, other.Warnings...)
}

// Log emits the summary. Warnings promote the entry to warn level so a
// human scanning output can spot degraded data.
func (s *Summary) Log(log *logger.Logger) {
	entry := log.WithFields(map[string]interface{}{
		"engine":  s.Engine,
		"columns": len(s.Columns),
		"rows":    s.Rows,
		"absent":  s.Absent,
	})
	if len(s.Warnings) > 0 {
		entry.WithField("warnings", s.Warnings).Warn("Engine completed with warnings")
		return
	}
	entry.Info("Engine completed")
}
