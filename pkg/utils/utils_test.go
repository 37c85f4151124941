package utils

import (
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
)

func TestNewNumericCode(t *testing.T) {
	u := New()
	for i := 0; i < 50; i++ {
		code, err := u.NewNumericCode(6)
		if err != nil {
			t.Fatalf("NewNumericCode() error = %v", err)
		}
		if len(code) != 6 {
			t.Fatalf("NewNumericCode() = %q, want 6 digits", code)
		}
		for _, r := range code {
			if r < '0' || r > '9' {
				t.Fatalf("NewNumericCode() = %q, want digits only", code)
			}
		}
	}

	if _, err := u.NewNumericCode(0); err == nil {
		t.Fatal("NewNumericCode(0) should fail")
	}
}

func TestNewULIDFromTimestamp(t *testing.T) {
	at := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	id, err := New().NewULIDFromTimestamp(at)
	if err != nil {
		t.Fatalf("NewULIDFromTimestamp() error = %v", err)
	}
	parsed, err := ulid.Parse(id)
	if err != nil {
		t.Fatalf("ulid.Parse(%q) error = %v", id, err)
	}
	if got := ulid.Time(parsed.Time()); !got.Equal(at) {
		t.Fatalf("timestamp = %v, want %v", got, at)
	}
}
