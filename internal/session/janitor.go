package session

import (
	"ProjectIVR/internal/entity"
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
)

// ExpireHook receives the final snapshot of a session the janitor completed.
type ExpireHook func(ctx context.Context, s entity.CallSession)

// Janitor completes sessions that have not seen a webhook for longer than
// the timeout, so abandoned calls still reach the finaliser.
type Janitor struct {
	store    Store
	timeout  time.Duration
	interval time.Duration
	onExpire ExpireHook
	log      *logrus.Logger
}

func NewJanitor(store Store, timeout, interval time.Duration, onExpire ExpireHook, log *logrus.Logger) *Janitor {
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &Janitor{
		store:    store,
		timeout:  timeout,
		interval: interval,
		onExpire: onExpire,
		log:      log,
	}
}

// Run sweeps on every tick until ctx is cancelled.
func (j *Janitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			j.Sweep(ctx)
		}
	}
}

// Sweep completes every stale session once and returns how many it expired.
func (j *Janitor) Sweep(ctx context.Context) int {
	ids, err := j.store.Stale(ctx, j.timeout)
	if err != nil {
		j.log.WithFields(logrus.Fields{
			"error": err.Error(),
		}).Error("Failed to list stale call sessions")
		return 0
	}

	expired := 0
	for _, id := range ids {
		s, err := j.store.Complete(ctx, id)
		if errors.Is(err, ErrNotFound) {
			// finished by a webhook in the meantime
			continue
		}
		if err != nil {
			j.log.WithFields(logrus.Fields{
				"call_id": id,
				"error":   err.Error(),
			}).Error("Failed to complete stale call session")
			continue
		}

		expired++
		j.log.WithFields(logrus.Fields{
			"call_id": id,
			"stage":   s.Stage,
		}).Warn("Call session expired")
		if j.onExpire != nil {
			j.onExpire(ctx, s)
		}
	}
	return expired
}
