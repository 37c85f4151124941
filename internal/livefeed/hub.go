package livefeed

import (
	"ProjectIVR/internal/entity"
	"sync"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventTurn      EventType = "turn"
	EventStarted   EventType = "call_started"
	EventCompleted EventType = "call_completed"
	EventAbandoned EventType = "call_abandoned"
)

const defaultBuffer = 64

type Event struct {
	Type   EventType `json:"type"`
	CallID string    `json:"call_id"`
	Stage  string    `json:"stage,omitempty"`
	Text   string    `json:"text,omitempty"`
	At     time.Time `json:"at"`
}

type subscriber struct {
	ch chan Event
}

// Hub fans events out to every subscriber. A subscriber whose buffer is
// full misses events instead of slowing the publisher down.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]*subscriber
	now  func() time.Time
}

func NewHub() *Hub {
	return &Hub{
		subs: make(map[string]*subscriber),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Subscribe registers a listener. The returned cancel func closes the
// channel and is safe to call more than once.
func (h *Hub) Subscribe(buffer int) (string, <-chan Event, func()) {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	id := uuid.NewString()
	sub := &subscriber{ch: make(chan Event, buffer)}

	h.mu.Lock()
	h.subs[id] = sub
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(sub.ch)
		})
	}
	return id, sub.ch, cancel
}

func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Publish never blocks.
func (h *Hub) Publish(e Event) {
	if e.At.IsZero() {
		e.At = h.now()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.subs {
		select {
		case sub.ch <- e:
		default:
		}
	}
}

func (h *Hub) TurnRecorded(callID string, turn entity.Turn) {
	h.Publish(Event{Type: EventTurn, CallID: callID, Stage: turn.Stage, Text: turn.Text, At: turn.At})
}

func (h *Hub) CallStarted(callID string) {
	h.Publish(Event{Type: EventStarted, CallID: callID})
}

func (h *Hub) CallEnded(callID string, abandoned bool) {
	t := EventCompleted
	if abandoned {
		t = EventAbandoned
	}
	h.Publish(Event{Type: t, CallID: callID})
}
