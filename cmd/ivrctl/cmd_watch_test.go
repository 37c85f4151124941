package main

import (
	"ProjectIVR/internal/livefeed"
	"strings"
	"testing"
	"time"
)

func TestFormatEvent(t *testing.T) {
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	turn := formatEvent(livefeed.Event{Type: livefeed.EventTurn, CallID: "CA1", Stage: "caller_name", Text: "Jane Doe", At: at})
	if !strings.HasSuffix(turn, "CA1 [caller_name] Jane Doe") {
		t.Fatalf("turn = %q", turn)
	}

	ended := formatEvent(livefeed.Event{Type: livefeed.EventAbandoned, CallID: "CA1", At: at})
	if !strings.HasSuffix(ended, "CA1 call_abandoned") {
		t.Fatalf("ended = %q", ended)
	}
}
