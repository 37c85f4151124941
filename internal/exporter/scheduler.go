package exporter

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Scheduler runs the export and the retention sweep on cron schedules.
type Scheduler struct {
	exporter *Exporter
	cron     *cron.Cron
	keepDays int
	log      *logrus.Logger
}

func NewScheduler(e *Exporter, keepDays int, log *logrus.Logger) *Scheduler {
	return &Scheduler{
		exporter: e,
		cron:     cron.New(cron.WithParser(cronParser)),
		keepDays: keepDays,
		log:      log,
	}
}

// Schedule registers both jobs. An empty cron expression disables that job.
func (s *Scheduler) Schedule(exportSpec, cleanupSpec string) error {
	if exportSpec != "" {
		if _, err := s.cron.AddFunc(exportSpec, s.runExport); err != nil {
			return fmt.Errorf("invalid export schedule %q: %w", exportSpec, err)
		}
		s.log.WithField("schedule", exportSpec).Info("Scheduled consent export")
	}
	if cleanupSpec != "" {
		if _, err := s.cron.AddFunc(cleanupSpec, s.runCleanup); err != nil {
			return fmt.Errorf("invalid cleanup schedule %q: %w", cleanupSpec, err)
		}
		s.log.WithField("schedule", cleanupSpec).Info("Scheduled export retention sweep")
	}
	return nil
}

func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

// Run starts the cron ticker and blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	s.cron.Start()
	<-ctx.Done()
	<-s.cron.Stop().Done()
	return nil
}

func (s *Scheduler) runExport() {
	path, err := s.exporter.Export(context.Background())
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"error": err.Error(),
		}).Error("Scheduled consent export failed")
		return
	}
	if path == "" {
		s.log.Debug("Scheduled consent export had nothing to write")
	}
}

func (s *Scheduler) runCleanup() {
	removed, err := s.exporter.Cleanup(context.Background(), s.keepDays)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"error": err.Error(),
		}).Error("Scheduled export retention sweep failed")
		return
	}
	s.log.WithField("removed", removed).Debug("Export retention sweep finished")
}
