package extraction

import (
	"ProjectIVR/internal/entity"
	contextPkg "ProjectIVR/pkg/context"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Completer sends one prompt to a language model and returns its raw text.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// FallbackRecorder counts extractions that resolved to the fallback result.
type FallbackRecorder interface {
	ExtractionFallback(reason string)
}

type Result struct {
	CustomerName  string `json:"customer_name"`
	AccountNumber string `json:"account_number"`
	ConsentType   string `json:"consent_type"`
	ConsentStatus string `json:"consent_status"`
	CallDate      string `json:"call_date"`
}

const promptTemplate = `Please analyze the following call transcript and extract:
1. Customer Name
2. Account Number
3. Consent Type (if mentioned as email or mobile/phone/cell)
4. Consent Status (Opt-in/Opt-out)
5. Today's date

Transcript:
%s

Return ONLY a JSON object with these exact keys:
customer_name, account_number, consent_type, consent_status, call_date
Use "Unknown" for anything the transcript does not mention.`

func BuildPrompt(transcript string) string {
	return fmt.Sprintf(promptTemplate, transcript)
}

const DefaultTimeout = 20 * time.Second

type Extractor struct {
	completer Completer
	timeout   time.Duration
	now       func() time.Time
	log       *logrus.Logger
	recorder  FallbackRecorder
}

type Option func(*Extractor)

func WithTimeout(d time.Duration) Option {
	return func(e *Extractor) {
		if d > 0 {
			e.timeout = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Extractor) {
		if now != nil {
			e.now = now
		}
	}
}

func WithFallbackRecorder(r FallbackRecorder) Option {
	return func(e *Extractor) {
		e.recorder = r
	}
}

func New(completer Completer, log *logrus.Logger, opts ...Option) *Extractor {
	e := &Extractor{
		completer: completer,
		timeout:   DefaultTimeout,
		now:       time.Now,
		log:       log,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Fallback is the all-Unknown result with a fresh call date.
func Fallback(now time.Time) Result {
	return Result{
		CustomerName:  entity.Unknown,
		AccountNumber: entity.Unknown,
		ConsentType:   entity.Unknown,
		ConsentStatus: entity.Unknown,
		CallDate:      now.Format(time.RFC3339),
	}
}

type completion struct {
	text string
	err  error
}

// Extract never fails: provider errors, timeouts and undecodable replies
// all resolve to Fallback.
func (e *Extractor) Extract(ctx context.Context, transcript string) Result {
	if e.completer == nil {
		return e.fallback(ctx, "no_provider", errors.New("no completer configured"))
	}

	c, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	done := make(chan completion, 1)
	go func() {
		text, err := e.completer.Complete(c, BuildPrompt(transcript))
		done <- completion{text: text, err: err}
	}()

	var res completion
	select {
	case <-c.Done():
		return e.fallback(ctx, "timeout", c.Err())
	case res = <-done:
	}

	if res.err != nil {
		if errors.Is(res.err, context.DeadlineExceeded) {
			return e.fallback(ctx, "timeout", res.err)
		}
		return e.fallback(ctx, "provider_error", res.err)
	}

	result, err := Decode(res.text)
	if err != nil {
		return e.fallback(ctx, "decode_error", err)
	}
	if result.CallDate == entity.Unknown {
		result.CallDate = e.now().Format(time.RFC3339)
	}
	return result
}

func (e *Extractor) fallback(ctx context.Context, reason string, err error) Result {
	if e.log != nil {
		e.log.WithFields(logrus.Fields{
			"request_id": contextPkg.GetRequestID(ctx),
			"reason":     reason,
			"error":      err.Error(),
		}).Warn("Transcript extraction fell back to defaults")
	}
	if e.recorder != nil {
		e.recorder.ExtractionFallback(reason)
	}
	return Fallback(e.now())
}

func normalize(v string) string {
	v = strings.TrimSpace(v)
	if v == "" || strings.EqualFold(v, entity.Unknown) || strings.EqualFold(v, "null") || strings.EqualFold(v, "n/a") {
		return entity.Unknown
	}
	return v
}
