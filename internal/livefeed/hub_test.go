package livefeed

import (
	"ProjectIVR/internal/entity"
	"testing"
	"time"
)

func TestHubFansOutToEverySubscriber(t *testing.T) {
	h := NewHub()
	_, a, cancelA := h.Subscribe(4)
	defer cancelA()
	_, b, cancelB := h.Subscribe(4)
	defer cancelB()

	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	h.TurnRecorded("CA1", entity.Turn{Stage: "menu", Text: "2", At: at})

	for name, ch := range map[string]<-chan Event{"a": a, "b": b} {
		select {
		case e := <-ch:
			if e.Type != EventTurn || e.CallID != "CA1" || e.Text != "2" || !e.At.Equal(at) {
				t.Fatalf("%s got %+v", name, e)
			}
		case <-time.After(time.Second):
			t.Fatalf("%s received nothing", name)
		}
	}
}

func TestSlowSubscriberDoesNotBlockPublish(t *testing.T) {
	h := NewHub()
	_, ch, cancel := h.Subscribe(1)
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			h.CallStarted("CA1")
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full subscriber")
	}
	if e := <-ch; e.Type != EventStarted || e.At.IsZero() {
		t.Fatalf("got %+v", e)
	}
}

func TestCancelUnsubscribes(t *testing.T) {
	h := NewHub()
	_, ch, cancel := h.Subscribe(1)
	if h.Subscribers() != 1 {
		t.Fatalf("Subscribers() = %d, want 1", h.Subscribers())
	}

	cancel()
	cancel()

	if h.Subscribers() != 0 {
		t.Fatalf("Subscribers() = %d, want 0", h.Subscribers())
	}
	if _, ok := <-ch; ok {
		t.Fatal("channel still open after cancel")
	}
	h.CallEnded("CA1", true)
}
