package bcrypt

import (
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestCompare(t *testing.T) {
	b := NewWithCost(bcrypt.MinCost)

	hash, err := b.Hash("482913")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}

	if err := b.Compare(hash, "482913"); err != nil {
		t.Fatalf("Compare(match) error = %v", err)
	}
	if err := b.Compare(hash, "000000"); !errors.Is(err, ErrMismatch) {
		t.Fatalf("Compare(mismatch) error = %v, want ErrMismatch", err)
	}
	if err := b.Compare("not-a-hash", "482913"); err == nil || errors.Is(err, ErrMismatch) {
		t.Fatalf("Compare(corrupt hash) error = %v, want a non-mismatch error", err)
	}
}
