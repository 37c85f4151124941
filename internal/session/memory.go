package session

import (
	"ProjectIVR/internal/entity"
	"context"
	"errors"
	"sync"
	"time"
)

type entry struct {
	mu        sync.Mutex
	session   entity.CallSession
	completed bool
}

// MemoryStore keeps sessions in process. The map lock only guards
// membership; each session carries its own lock for mutations. Completed
// ids are remembered for ttl so a retried webhook cannot start them again.
type MemoryStore struct {
	mu        sync.RWMutex
	sessions  map[string]*entry
	completed map[string]time.Time
	ttl       time.Duration
	now       Clock
}

func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithTTL(defaultTTL, utcNow)
}

func NewMemoryStoreWithClock(now Clock) *MemoryStore {
	return NewMemoryStoreWithTTL(defaultTTL, now)
}

func NewMemoryStoreWithTTL(ttl time.Duration, now Clock) *MemoryStore {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if now == nil {
		now = utcNow
	}
	return &MemoryStore{
		sessions:  make(map[string]*entry),
		completed: make(map[string]time.Time),
		ttl:       ttl,
		now:       now,
	}
}

func (m *MemoryStore) Create(_ context.Context, callID, callerID string) (entity.CallSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[callID]; ok {
		return entity.CallSession{}, ErrAlreadyExists
	}
	if at, ok := m.completed[callID]; ok {
		if m.now().Sub(at) < m.ttl {
			return entity.CallSession{}, ErrNotFound
		}
		delete(m.completed, callID)
	}

	e := &entry{session: entity.NewCallSession(callID, callerID, m.now())}
	m.sessions[callID] = e
	return e.session.Clone(), nil
}

func (m *MemoryStore) GetOrCreate(ctx context.Context, callID, callerID string) (entity.CallSession, bool, error) {
	if s, err := m.Get(ctx, callID); err == nil {
		return s, false, nil
	}

	s, err := m.Create(ctx, callID, callerID)
	if errors.Is(err, ErrNotFound) {
		return entity.CallSession{}, false, err
	}
	if errors.Is(err, ErrAlreadyExists) {
		s, err = m.Get(ctx, callID)
		return s, false, err
	}
	return s, err == nil, err
}

func (m *MemoryStore) Get(_ context.Context, callID string) (entity.CallSession, error) {
	e, ok := m.lookup(callID)
	if !ok {
		return entity.CallSession{}, ErrNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.completed {
		return entity.CallSession{}, ErrNotFound
	}
	return e.session.Clone(), nil
}

func (m *MemoryStore) Update(_ context.Context, callID string, fn Mutator) (entity.CallSession, error) {
	e, ok := m.lookup(callID)
	if !ok {
		return entity.CallSession{}, ErrNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.completed {
		return entity.CallSession{}, ErrNotFound
	}

	next := e.session.Clone()
	if err := fn(&next); err != nil {
		return entity.CallSession{}, err
	}
	next.CallID = e.session.CallID
	next.UpdatedAt = m.now()
	e.session = next
	return next.Clone(), nil
}

func (m *MemoryStore) Complete(_ context.Context, callID string) (entity.CallSession, error) {
	m.mu.Lock()
	e, ok := m.sessions[callID]
	if ok {
		delete(m.sessions, callID)
		m.completed[callID] = m.now()
	}
	m.mu.Unlock()
	if !ok {
		return entity.CallSession{}, ErrNotFound
	}

	// Waits for an in-flight Update on the same id to land first.
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.completed {
		return entity.CallSession{}, ErrNotFound
	}
	e.completed = true
	e.session.Status = entity.SessionCompleted
	e.session.UpdatedAt = m.now()
	return e.session.Clone(), nil
}

// Stale also forgets completed ids older than the store ttl; the janitor
// calls it on every sweep.
func (m *MemoryStore) Stale(_ context.Context, olderThan time.Duration) ([]string, error) {
	now := m.now()
	cutoff := now.Add(-olderThan)

	m.mu.Lock()
	for id, at := range m.completed {
		if now.Sub(at) >= m.ttl {
			delete(m.completed, id)
		}
	}
	entries := make(map[string]*entry, len(m.sessions))
	for id, e := range m.sessions {
		entries[id] = e
	}
	m.mu.Unlock()

	var ids []string
	for id, e := range entries {
		e.mu.Lock()
		if !e.completed && e.session.UpdatedAt.Before(cutoff) {
			ids = append(ids, id)
		}
		e.mu.Unlock()
	}
	return ids, nil
}

func (m *MemoryStore) ActiveCount(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions), nil
}

func (m *MemoryStore) lookup(callID string) (*entry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.sessions[callID]
	return e, ok
}
