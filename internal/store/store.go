// Package store persists panels as CSV files under the data directory.
// Every write goes to a temp file first and renames into place, so a
// consumer never reads a half-written file.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/wonny/fxregime/internal/timeseries"
	"github.com/wonny/fxregime/pkg/logger"
)

const (
	latestFile      = "latest.csv"
	positioningFile = "cot_latest.csv"
	mergedFile      = "latest_with_cot.csv"
)

// Store reads and writes the published panel files.
type Store struct {
	dataDir string
	logger  *logger.Logger
}

// New creates a store rooted at dataDir, creating it if needed.
func New(dataDir string, log *logger.Logger) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &Store{
		dataDir: dataDir,
		logger:  log.WithField("module", "store"),
	}, nil
}

// SaveMaster writes the master panel twice: a dated snapshot
// (master_YYYYMMDD.csv) and the stable latest.csv consumers point at.
func (s *Store) SaveMaster(p *timeseries.Panel, asOf time.Time) error {
	dated := fmt.Sprintf("master_%s.csv", asOf.Format("20060102"))
	if err := s.writePanel(dated, p); err != nil {
		return err
	}
	return s.writePanel(latestFile, p)
}

// SavePositioning writes the weekly positioning panel.
func (s *Store) SavePositioning(p *timeseries.Panel) error {
	return s.writePanel(positioningFile, p)
}

// SaveMerged writes the master panel with positioning columns merged on.
func (s *Store) SaveMerged(p *timeseries.Panel) error {
	return s.writePanel(mergedFile, p)
}

// LoadMaster reads the stable master panel.
func (s *Store) LoadMaster() (*timeseries.Panel, error) {
	return s.readPanel(latestFile)
}

// LoadPositioning reads the weekly positioning panel.
func (s *Store) LoadPositioning() (*timeseries.Panel, error) {
	return s.readPanel(positioningFile)
}

// LoadMerged reads the merged panel, falling back to the master when no
// positioning run has happened yet.
func (s *Store) LoadMerged() (*timeseries.Panel, error) {
	p, err := s.readPanel(mergedFile)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	s.logger.Warn("No merged panel yet, falling back to master")
	return s.LoadMaster()
}

func (s *Store) writePanel(name string, p *timeseries.Panel) error {
	path := filepath.Join(s.dataDir, name)
	tmp := path + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}

	if err := p.WriteCSV(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", name, err)
	}

	s.logger.WithFields(map[string]interface{}{
		"file":    name,
		"rows":    p.Len(),
		"columns": len(p.Columns()),
	}).Info("Panel saved")
	return nil
}

func (s *Store) readPanel(name string) (*timeseries.Panel, error) {
	path := filepath.Join(s.dataDir, name)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()

	p, err := timeseries.ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return p, nil
}
