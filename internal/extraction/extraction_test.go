package extraction

import (
	"ProjectIVR/internal/entity"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

type stubCompleter struct {
	text   string
	err    error
	block  bool
	prompt string
}

func (s *stubCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	s.prompt = prompt
	if s.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return s.text, s.err
}

// ignoresContext never returns on its own.
type ignoresContext struct{ release chan struct{} }

func (s ignoresContext) Complete(context.Context, string) (string, error) {
	<-s.release
	return "", nil
}

type countingRecorder struct {
	mu      sync.Mutex
	reasons []string
}

func (c *countingRecorder) ExtractionFallback(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reasons = append(c.reasons, reason)
}

var fixedNow = time.Date(2024, 6, 1, 10, 30, 0, 0, time.UTC)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newExtractor(c Completer, rec FallbackRecorder, timeout time.Duration) *Extractor {
	return New(c, quietLogger(),
		WithClock(func() time.Time { return fixedNow }),
		WithTimeout(timeout),
		WithFallbackRecorder(rec),
	)
}

func TestStripFence(t *testing.T) {
	tests := map[string]string{
		"```json\n{\"a\":1}\n```":     `{"a":1}`,
		"```\n{\"a\":1}\n```":         `{"a":1}`,
		"  ```JSON\n{\"a\":1}```  ":   `{"a":1}`,
		"```json{\"a\":1}```":         `{"a":1}`,
		"{\"a\":1}":                   `{"a":1}`,
		"\n\t{\"a\":1}\n":             `{"a":1}`,
		"```{\"a\":1}\n```":           `{"a":1}`,
		"```json\n```json\n{}\n```\n": "```json\n{}",
	}
	for in, want := range tests {
		if got := StripFence(in); got != want {
			t.Fatalf("StripFence(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDecode(t *testing.T) {
	raw := "```json\n{\"customer_name\":\"Jane Doe\",\"account_number\":\"12345678\",\"consent_type\":\"email\",\"consent_status\":\"Opt-In\",\"call_date\":\"2024-06-01\"}\n```"
	got, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	want := Result{
		CustomerName:  "Jane Doe",
		AccountNumber: "12345678",
		ConsentType:   "email",
		ConsentStatus: "Opt-In",
		CallDate:      "2024-06-01",
	}
	if got != want {
		t.Fatalf("Decode() = %+v, want %+v", got, want)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := map[string]error{
		"":                           ErrEmptyPayload,
		"not json":                   ErrInvalidJSON,
		"[1,2]":                      ErrInvalidJSON,
		`{"customer_name": 5}`:       ErrInvalidJSON,
		`{"customer_name":"Jane"}`:   ErrMissingFields,
		"```json\n{\"call_date\":\"x\"":  ErrInvalidJSON,
	}
	for in, want := range tests {
		if _, err := Decode(in); !errors.Is(err, want) {
			t.Fatalf("Decode(%q) error = %v, want %v", in, err, want)
		}
	}
}

func TestExtractSuccess(t *testing.T) {
	c := &stubCompleter{text: `{"customer_name":"Jane","account_number":"unknown","consent_type":"sms","consent_status":"opt-out","call_date":""}`}
	rec := &countingRecorder{}
	got := newExtractor(c, rec, time.Second).Extract(context.Background(), "hi my name is Jane")

	if got.CustomerName != "Jane" || got.AccountNumber != entity.Unknown || got.ConsentStatus != "opt-out" {
		t.Fatalf("Extract() = %+v", got)
	}
	if got.CallDate != fixedNow.Format(time.RFC3339) {
		t.Fatalf("CallDate = %q, want clock time", got.CallDate)
	}
	if !strings.Contains(c.prompt, "hi my name is Jane") {
		t.Fatalf("prompt does not embed transcript: %q", c.prompt)
	}
	if len(rec.reasons) != 0 {
		t.Fatalf("unexpected fallbacks %v", rec.reasons)
	}
}

func TestExtractFallsBack(t *testing.T) {
	tests := []struct {
		name   string
		c      Completer
		reason string
	}{
		{"provider error", &stubCompleter{err: errors.New("quota exceeded")}, "provider_error"},
		{"malformed", &stubCompleter{text: "not json"}, "decode_error"},
		{"missing keys", &stubCompleter{text: `{"customer_name":"x"}`}, "decode_error"},
		{"timeout", &stubCompleter{block: true}, "timeout"},
		{"no provider", nil, "no_provider"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &countingRecorder{}
			got := newExtractor(tt.c, rec, 50*time.Millisecond).Extract(context.Background(), "transcript")
			if got != Fallback(fixedNow) {
				t.Fatalf("Extract() = %+v, want fallback", got)
			}
			if len(rec.reasons) != 1 || rec.reasons[0] != tt.reason {
				t.Fatalf("fallback reasons = %v, want [%s]", rec.reasons, tt.reason)
			}
		})
	}
}

func TestExtractBoundsProvidersThatIgnoreContext(t *testing.T) {
	c := ignoresContext{release: make(chan struct{})}
	defer close(c.release)

	start := time.Now()
	got := newExtractor(c, nil, 50*time.Millisecond).Extract(context.Background(), "t")
	if time.Since(start) > 2*time.Second {
		t.Fatal("Extract() was not bounded by its timeout")
	}
	if got.CustomerName != entity.Unknown || got.CallDate == "" {
		t.Fatalf("Extract() = %+v, want fallback", got)
	}
}
