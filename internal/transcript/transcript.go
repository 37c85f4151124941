package transcript

import (
	"ProjectIVR/internal/entity"
	"ProjectIVR/internal/session"
	"context"
	"strings"
	"time"
)

// Observer is told about every turn that made it into a transcript.
type Observer interface {
	TurnRecorded(callID string, turn entity.Turn)
}

type Aggregator struct {
	store    session.Store
	observer Observer
	now      func() time.Time
}

func New(store session.Store, observer Observer) *Aggregator {
	return &Aggregator{
		store:    store,
		observer: observer,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Append adds one trimmed turn to s unless text is blank. It is meant to run
// inside a session.Mutator so the turn lands with the rest of the update.
func Append(s *entity.CallSession, stage, text string, at time.Time) (entity.Turn, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return entity.Turn{}, false
	}
	turn := entity.Turn{Stage: stage, Text: text, At: at}
	s.Turns = append(s.Turns, turn)
	return turn, true
}

// Record appends text under stageLabel. Blank text is dropped without error.
func (a *Aggregator) Record(ctx context.Context, callID, stageLabel, text string) error {
	var (
		turn     entity.Turn
		appended bool
	)
	_, err := a.store.Update(ctx, callID, func(s *entity.CallSession) error {
		turn, appended = Append(s, stageLabel, text, a.now())
		return nil
	})
	if err != nil {
		return err
	}
	if appended {
		a.Notify(callID, turn)
	}
	return nil
}

// Notify forwards a turn appended elsewhere to the observer.
func (a *Aggregator) Notify(callID string, turn entity.Turn) {
	if a.observer != nil {
		a.observer.TurnRecorded(callID, turn)
	}
}

func (a *Aggregator) Render(ctx context.Context, callID string) (string, error) {
	s, err := a.store.Get(ctx, callID)
	if err != nil {
		return "", err
	}
	return Join(s.Turns), nil
}

// Join concatenates turn texts with single spaces in arrival order.
func Join(turns []entity.Turn) string {
	parts := make([]string, 0, len(turns))
	for _, t := range turns {
		parts = append(parts, t.Text)
	}
	return strings.Join(parts, " ")
}

func (a *Aggregator) Now() time.Time {
	return a.now()
}
