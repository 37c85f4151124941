package response

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

var errGone = NewError(http.StatusNotFound, "call not found")

func TestWrappedSentinelStillMatches(t *testing.T) {
	err := fmt.Errorf("load call CA1: %w", errGone)

	if !errors.Is(err, errGone) {
		t.Fatalf("errors.Is(%v, errGone) = false", err)
	}
	if errors.Is(err, NewError(http.StatusNotFound, "other")) {
		t.Fatalf("matched a sentinel with a different message")
	}
	if errors.Is(err, NewError(http.StatusConflict, "call not found")) {
		t.Fatalf("matched a sentinel with a different status")
	}
}

func TestStatusOf(t *testing.T) {
	if got := StatusOf(fmt.Errorf("wrap: %w", errGone), 500); got != http.StatusNotFound {
		t.Fatalf("StatusOf(wrapped) = %d, want 404", got)
	}
	if got := StatusOf(errors.New("boom"), 500); got != 500 {
		t.Fatalf("StatusOf(plain) = %d, want 500", got)
	}
}
