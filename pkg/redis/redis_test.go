package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/sirupsen/logrus"
)

func TestNewFromURL(t *testing.T) {
	mr := miniredis.RunT(t)
	t.Setenv("REDIS_URL", "redis://"+mr.Addr()+"/0")

	r, err := New(logrus.New())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer r.Close()

	if err := r.Ping(context.Background()); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
}

func TestOptionsFromEnv(t *testing.T) {
	t.Setenv("REDIS_URL", "")
	t.Setenv("REDIS_ADDRESS", "cache:6380")
	t.Setenv("REDIS_PASSWORD", "s3cret")
	t.Setenv("REDIS_DB", "2")

	opts, err := optionsFromEnv()
	if err != nil {
		t.Fatalf("optionsFromEnv() error = %v", err)
	}
	if opts.Addr != "cache:6380" || opts.Password != "s3cret" || opts.DB != 2 {
		t.Fatalf("opts = %+v", opts)
	}

	t.Setenv("REDIS_DB", "two")
	if _, err := optionsFromEnv(); err == nil {
		t.Fatalf("optionsFromEnv() accepted a non-numeric REDIS_DB")
	}
}

func TestNewFailsWhenUnreachable(t *testing.T) {
	t.Setenv("REDIS_URL", "redis://127.0.0.1:1")

	if _, err := New(logrus.New()); err == nil {
		t.Fatalf("New() succeeded against a closed server")
	}
}
