package whatsapp

import (
	"errors"
	"testing"
)

func TestUserJID(t *testing.T) {
	tests := map[string]string{
		"+15550100":       "15550100",
		"15550100":        "15550100",
		"+1 (555) 010-00": "155501000",
	}
	for in, want := range tests {
		jid, err := UserJID(in)
		if err != nil {
			t.Fatalf("UserJID(%q) error = %v", in, err)
		}
		if jid.User != want || jid.Server != "s.whatsapp.net" {
			t.Fatalf("UserJID(%q) = %s, want user %s", in, jid, want)
		}
	}

	if _, err := UserJID("+ () -"); !errors.Is(err, ErrInvalidNumber) {
		t.Fatalf("UserJID(no digits) error = %v, want ErrInvalidNumber", err)
	}
}
