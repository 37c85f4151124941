package exporter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/djherbis/times"
	"github.com/sirupsen/logrus"
)

// Cleanup removes export files whose creation time is more than keepDays
// whole days old. Platforms without a birth time fall back to change time.
func (e *Exporter) Cleanup(ctx context.Context, keepDays int) (int, error) {
	if keepDays < 0 {
		keepDays = DefaultKeepDays
	}

	matches, err := filepath.Glob(filepath.Join(e.dir, FilePrefix+"*"+FileSuffix))
	if err != nil {
		return 0, fmt.Errorf("list export files: %w", err)
	}

	now := e.now()
	removed := 0
	for _, path := range matches {
		if err := ctx.Err(); err != nil {
			return removed, err
		}

		created, err := createdAt(path)
		if err != nil {
			e.log.WithFields(logrus.Fields{
				"path":  path,
				"error": err.Error(),
			}).Warn("Failed to stat export file")
			continue
		}

		if ageInDays(now, created) <= keepDays {
			continue
		}
		if err := os.Remove(path); err != nil {
			e.log.WithFields(logrus.Fields{
				"path":  path,
				"error": err.Error(),
			}).Error("Failed to remove old export file")
			continue
		}
		removed++
		e.log.WithFields(logrus.Fields{
			"path": path,
		}).Info("Removed old export file")
	}
	return removed, nil
}

func createdAt(path string) (time.Time, error) {
	ts, err := times.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	if ts.HasBirthTime() {
		return ts.BirthTime(), nil
	}
	if ts.HasChangeTime() {
		return ts.ChangeTime(), nil
	}
	return ts.ModTime(), nil
}

func ageInDays(now, t time.Time) int {
	return int(now.Sub(t) / (24 * time.Hour))
}
