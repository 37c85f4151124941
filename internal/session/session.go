package session

import (
	"ProjectIVR/internal/entity"
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("call session not found")
	ErrAlreadyExists = errors.New("call session already exists")
)

type Mutator func(*entity.CallSession) error

// Store holds one live CallSession per call id. Updates to the same id are
// serialised; updates to different ids never wait on each other. Once an id
// is completed every operation on it, Create included, is ErrNotFound.
type Store interface {
	Create(ctx context.Context, callID, callerID string) (entity.CallSession, error)
	GetOrCreate(ctx context.Context, callID, callerID string) (entity.CallSession, bool, error)
	Get(ctx context.Context, callID string) (entity.CallSession, error)
	Update(ctx context.Context, callID string, fn Mutator) (entity.CallSession, error)
	Complete(ctx context.Context, callID string) (entity.CallSession, error)
	Stale(ctx context.Context, olderThan time.Duration) ([]string, error)
	ActiveCount(ctx context.Context) (int, error)
}

type Clock func() time.Time

// defaultTTL bounds how long a live session, and the record of a completed
// one, is kept.
const defaultTTL = 2 * time.Hour

func utcNow() time.Time {
	return time.Now().UTC()
}
