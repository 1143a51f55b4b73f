package generator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/topgen/pkg/observability"
)

// Sweeper periodically deletes job directories older than the retention
// window and drops their records from the store.
type Sweeper struct {
	outputDir string
	retention time.Duration
	store     *JobStore
	logger    logrus.FieldLogger
	metrics   *observability.Metrics
	now       func() time.Time

	cron *cron.Cron
}

// NewSweeper creates a sweeper for outputDir. store and metrics may be nil.
func NewSweeper(outputDir string, retention time.Duration, store *JobStore, logger logrus.FieldLogger, metrics *observability.Metrics) *Sweeper {
	if logger == nil {
		logger = observability.DiscardLogger()
	}
	return &Sweeper{
		outputDir: outputDir,
		retention: retention,
		store:     store,
		logger:    logger,
		metrics:   metrics,
		now:       time.Now,
	}
}

// Start schedules Sweep on a cron spec such as "@hourly" or "0 * * * *"
func (s *Sweeper) Start(schedule string) error {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		defer observability.RecoverPanic(s.logger, "job sweeper")
		if _, err := s.Sweep(); err != nil {
			s.logger.WithError(err).Warn("job sweep failed")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}

	c.Start()
	s.cron = c
	s.logger.WithField("schedule", schedule).Info("job sweeper started")
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish
func (s *Sweeper) Stop(ctx context.Context) error {
	if s.cron == nil {
		return nil
	}
	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Sweep removes every job directory whose modification time is older than
// the retention window and returns how many were removed
func (s *Sweeper) Sweep() (int, error) {
	entries, err := os.ReadDir(s.outputDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to list %s: %w", s.outputDir, err)
	}

	cutoff := s.now().Add(-s.retention)
	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() || !validJobID(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}

		dir := filepath.Join(s.outputDir, entry.Name())
		if err := os.RemoveAll(dir); err != nil {
			s.logger.WithError(err).WithField("job_id", entry.Name()).Warn("failed to remove job directory")
			continue
		}
		if s.store != nil {
			s.store.Remove(entry.Name())
		}
		removed++
	}

	if s.metrics != nil {
		s.metrics.RecordJobsSwept(removed)
	}
	if removed > 0 {
		s.logger.WithField("removed", removed).Info("expired jobs swept")
	}
	return removed, nil
}
