package ivrService

import (
	"ProjectIVR/internal/api/ivr"
	ivrRepository "ProjectIVR/internal/api/ivr/repository"
	"ProjectIVR/internal/callflow"
	"ProjectIVR/internal/entity"
	"ProjectIVR/internal/extraction"
	"ProjectIVR/internal/session"
	"ProjectIVR/internal/transcript"
	"ProjectIVR/pkg/bcrypt"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	gobcrypt "golang.org/x/crypto/bcrypt"
)

type fakeExtractor struct {
	result extraction.Result
	mu     sync.Mutex
	seen   []string
}

func (f *fakeExtractor) Extract(_ context.Context, text string) extraction.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, text)
	return f.result
}

type fakeSaver struct {
	mu      sync.Mutex
	records []entity.CallRecord
}

func (f *fakeSaver) SaveCall(_ context.Context, call entity.CallRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, call)
	return nil
}

func (f *fakeSaver) saved() []entity.CallRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]entity.CallRecord(nil), f.records...)
}

type codeStore struct {
	mu    sync.Mutex
	codes []entity.OneTimeCode
}

type fakeCodeRepo struct {
	store *codeStore
}

func (f fakeCodeRepo) NewClient(context.Context, bool) (ivrRepository.Client, error) {
	return ivrRepository.Client{
		Codes:    f,
		Commit:   func() error { return nil },
		Rollback: func() error { return nil },
	}, nil
}

func (f fakeCodeRepo) CreateCode(_ context.Context, code entity.OneTimeCode) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	f.store.codes = append(f.store.codes, code)
	return nil
}

func (f fakeCodeRepo) GetLatestCode(_ context.Context, phone string) (entity.OneTimeCode, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	var matches []entity.OneTimeCode
	for _, c := range f.store.codes {
		if c.PhoneNumber == phone {
			matches = append(matches, c)
		}
	}
	if len(matches) == 0 {
		return entity.OneTimeCode{}, ivr.ErrCodeNotFound
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].IssuedAt.After(matches[j].IssuedAt) })
	return matches[0], nil
}

func (f fakeCodeRepo) ConsumeCode(_ context.Context, id string, at time.Time) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	for i, c := range f.store.codes {
		if c.ID == id {
			if c.Consumed {
				return ivr.ErrCodeConsumed
			}
			f.store.codes[i].Consumed = true
			f.store.codes[i].ConsumedAt = at
			return nil
		}
	}
	return ivr.ErrCodeNotFound
}

type fixedUtils struct {
	mu   sync.Mutex
	code string
	n    int
}

func (u *fixedUtils) NewULIDFromTimestamp(time.Time) (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.n++
	return fmt.Sprintf("01TEST%04d", u.n), nil
}

func (u *fixedUtils) NewNumericCode(int) (string, error) {
	return u.code, nil
}

type capturingSender struct {
	mu       sync.Mutex
	messages map[string]string
	err      error
}

func (c *capturingSender) SendCode(_ context.Context, phone, msg string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	if c.messages == nil {
		c.messages = map[string]string{}
	}
	c.messages[phone] = msg
	return nil
}

type lifecycleLog struct {
	mu      sync.Mutex
	started []string
	ended   map[string]bool
}

func (l *lifecycleLog) CallStarted(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.started = append(l.started, id)
}

func (l *lifecycleLog) CallEnded(id string, abandoned bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ended == nil {
		l.ended = map[string]bool{}
	}
	l.ended[id] = abandoned
}

type fixture struct {
	svc       IIVRService
	store     *session.MemoryStore
	saver     *fakeSaver
	extractor *fakeExtractor
	codes     *codeStore
	sender    *capturingSender
	lifecycle *lifecycleLog
	now       time.Time
	clockMu   sync.Mutex
}

func (f *fixture) advanceClock(d time.Duration) {
	f.clockMu.Lock()
	defer f.clockMu.Unlock()
	f.now = f.now.Add(d)
}

func (f *fixture) clock() time.Time {
	f.clockMu.Lock()
	defer f.clockMu.Unlock()
	return f.now
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	f := &fixture{
		store: session.NewMemoryStore(),
		saver: &fakeSaver{},
		extractor: &fakeExtractor{result: extraction.Result{
			CustomerName:  entity.Unknown,
			AccountNumber: entity.Unknown,
			ConsentType:   "email",
			ConsentStatus: "opt-in",
			CallDate:      "2024-03-09",
		}},
		codes:     &codeStore{},
		sender:    &capturingSender{},
		lifecycle: &lifecycleLog{},
		now:       time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC),
	}

	base := []Option{
		WithCodeSender(f.sender),
		WithHasher(bcrypt.NewWithCost(gobcrypt.MinCost)),
		WithUtils(&fixedUtils{code: "482913"}),
		WithLifecycle(f.lifecycle),
		WithClock(f.clock),
	}
	f.svc = NewIVRService(
		log,
		f.store,
		callflow.New(callflow.DefaultPrompts(), callflow.DefaultPolicy()),
		transcript.New(f.store, nil),
		f.extractor,
		f.saver,
		fakeCodeRepo{store: f.codes},
		append(base, opts...)...,
	)
	return f
}

func hook(callSid string, mutate func(*ivr.WebhookRequest)) ivr.WebhookRequest {
	req := ivr.WebhookRequest{CallSid: callSid, From: "+15550100"}
	if mutate != nil {
		mutate(&req)
	}
	return req
}

func TestAccountCallEndToEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.svc.Incoming(ctx, hook("CA1", nil))
	if err != nil {
		t.Fatalf("Incoming() error = %v", err)
	}
	if resp.Gather == nil || resp.Gather.Action != callflow.ActionMenu || len(resp.Say) != 1 {
		t.Fatalf("Incoming() response = %+v", resp)
	}

	resp, err = f.svc.Menu(ctx, hook("CA1", func(r *ivr.WebhookRequest) { r.Digits = "1" }))
	if err != nil {
		t.Fatalf("Menu() error = %v", err)
	}
	if resp.Gather == nil || resp.Gather.Action != callflow.GatherAction(entity.StageAccountInfo) {
		t.Fatalf("Menu() response = %+v", resp)
	}

	steps := []struct {
		stage  entity.Stage
		speech string
		digits string
		next   string
	}{
		{entity.StageAccountInfo, "Jane Doe 12345678", "", callflow.GatherAction(entity.StageTechnicalIssue)},
		{entity.StageTechnicalIssue, "I cannot log in to my account", "", callflow.GatherAction(entity.StagePriority)},
		{entity.StagePriority, "", "1", ""},
	}
	for _, step := range steps {
		resp, err = f.svc.Gather(ctx, step.stage, hook("CA1", func(r *ivr.WebhookRequest) {
			r.SpeechResult = step.speech
			r.Digits = step.digits
		}))
		if err != nil {
			t.Fatalf("Gather(%s) error = %v", step.stage, err)
		}
		if step.next != "" && (resp.Gather == nil || resp.Gather.Action != step.next) {
			t.Fatalf("Gather(%s) response = %+v, want action %s", step.stage, resp, step.next)
		}
	}
	if resp.Record == nil || resp.Record.Action != callflow.ActionRecording {
		t.Fatalf("priority response = %+v, want record", resp)
	}

	resp, err = f.svc.Recording(ctx, hook("CA1", func(r *ivr.WebhookRequest) {
		r.RecordingUrl = "https://api.twilio.com/recordings/RE1"
	}))
	if err != nil {
		t.Fatalf("Recording() error = %v", err)
	}
	if !resp.Hangup {
		t.Fatalf("Recording() response = %+v, want hangup", resp)
	}

	f.svc.Wait()

	records := f.saver.saved()
	if len(records) != 1 {
		t.Fatalf("saved %d records, want 1", len(records))
	}
	rec := records[0]
	if rec.CustomerName != "Jane Doe" || rec.AccountNumber != "12345678" {
		t.Fatalf("record identity = %q / %q", rec.CustomerName, rec.AccountNumber)
	}
	if rec.IssueType != callflow.IssueAccount || rec.Priority != callflow.PriorityUrgent {
		t.Fatalf("record issue = %q / %q", rec.IssueType, rec.Priority)
	}
	if rec.ConsentType != "email" || rec.ConsentStatus != "opt-in" {
		t.Fatalf("record consent = %q / %q", rec.ConsentType, rec.ConsentStatus)
	}
	if rec.Status != entity.CallStatusNew || rec.ID == "" || rec.CallerNumber != "+15550100" {
		t.Fatalf("record = %+v", rec)
	}
	if rec.RecordingURL != "https://api.twilio.com/recordings/RE1" {
		t.Fatalf("recording url = %q", rec.RecordingURL)
	}
	if rec.FullTranscript != "1 Jane Doe 12345678 I cannot log in to my account 1" {
		t.Fatalf("transcript = %q", rec.FullTranscript)
	}

	if _, err := f.store.Get(ctx, "CA1"); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("session still live after completion: %v", err)
	}
	if f.lifecycle.ended["CA1"] {
		t.Fatal("completed call reported as abandoned")
	}
}

func TestRetriedIncomingAfterCompletionIsNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	calls := []func() (callflow.Response, error){
		func() (callflow.Response, error) { return f.svc.Incoming(ctx, hook("CA9", nil)) },
		func() (callflow.Response, error) {
			return f.svc.Menu(ctx, hook("CA9", func(r *ivr.WebhookRequest) { r.Digits = "2" }))
		},
		func() (callflow.Response, error) {
			return f.svc.Gather(ctx, entity.StageTechnicalIssue, hook("CA9", func(r *ivr.WebhookRequest) { r.SpeechResult = "no dial tone" }))
		},
		func() (callflow.Response, error) {
			return f.svc.Gather(ctx, entity.StagePriority, hook("CA9", func(r *ivr.WebhookRequest) { r.Digits = "2" }))
		},
		func() (callflow.Response, error) { return f.svc.Recording(ctx, hook("CA9", nil)) },
	}
	for i, call := range calls {
		if _, err := call(); err != nil {
			t.Fatalf("step %d error = %v", i, err)
		}
	}
	f.svc.Wait()

	resp, err := f.svc.Incoming(ctx, hook("CA9", nil))
	if !errors.Is(err, ivr.ErrCallNotFound) {
		t.Fatalf("Incoming() after completion = %+v, %v, want ErrCallNotFound", resp, err)
	}
	if _, err := f.store.Get(ctx, "CA9"); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("completed call has a live session again: %v", err)
	}

	f.svc.Wait()
	if n := len(f.saver.saved()); n != 1 {
		t.Fatalf("saved %d records, want 1", n)
	}
	f.lifecycle.mu.Lock()
	started := append([]string(nil), f.lifecycle.started...)
	f.lifecycle.mu.Unlock()
	if len(started) != 1 {
		t.Fatalf("CallStarted fired for %v, want once", started)
	}
}

func TestRetriedRecordingCallbackIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.svc.Recording(ctx, hook("CA-gone", nil))
	if err != nil {
		t.Fatalf("Recording() error = %v", err)
	}
	if !resp.Hangup {
		t.Fatalf("response = %+v, want goodbye and hangup", resp)
	}
	f.svc.Wait()
	if n := len(f.saver.saved()); n != 0 {
		t.Fatalf("saved %d records for unknown call", n)
	}
}

func TestWebhookForUnknownCall(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Menu(context.Background(), hook("CA-missing", func(r *ivr.WebhookRequest) { r.Digits = "2" }))
	if !errors.Is(err, ivr.ErrCallNotFound) {
		t.Fatalf("Menu() error = %v, want ErrCallNotFound", err)
	}
}

func TestOutOfOrderWebhookRepeatsPrompt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Incoming(ctx, hook("CA1", nil)); err != nil {
		t.Fatalf("Incoming() error = %v", err)
	}

	resp, err := f.svc.Gather(ctx, entity.StagePriority, hook("CA1", func(r *ivr.WebhookRequest) { r.Digits = "1" }))
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	if resp.Gather == nil || resp.Gather.Action != callflow.ActionMenu {
		t.Fatalf("response = %+v, want the menu again", resp)
	}

	s, _ := f.store.Get(ctx, "CA1")
	if s.Stage != entity.StageMenu || s.Fields.Priority != entity.Unknown {
		t.Fatalf("session changed by out of order webhook: %+v", s)
	}
}

func TestMissingCallerUsesFallback(t *testing.T) {
	f := newFixture(t, WithUnknownCaller("anonymous"))
	ctx := context.Background()

	if _, err := f.svc.Incoming(ctx, ivr.WebhookRequest{CallSid: "CA1"}); err != nil {
		t.Fatalf("Incoming() error = %v", err)
	}
	s, err := f.store.Get(ctx, "CA1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if s.CallerID != "anonymous" {
		t.Fatalf("caller = %q, want anonymous", s.CallerID)
	}
}

func TestHangupStatusFinalizesAsAbandoned(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Incoming(ctx, hook("CA1", nil)); err != nil {
		t.Fatalf("Incoming() error = %v", err)
	}
	if _, err := f.svc.Menu(ctx, hook("CA1", func(r *ivr.WebhookRequest) { r.Digits = "3" })); err != nil {
		t.Fatalf("Menu() error = %v", err)
	}

	if err := f.svc.Status(ctx, hook("CA1", func(r *ivr.WebhookRequest) { r.CallStatus = "ringing" })); err != nil {
		t.Fatalf("Status(ringing) error = %v", err)
	}
	if _, err := f.store.Get(ctx, "CA1"); err != nil {
		t.Fatalf("non-terminal status ended the session: %v", err)
	}

	if err := f.svc.Status(ctx, hook("CA1", func(r *ivr.WebhookRequest) { r.CallStatus = "completed" })); err != nil {
		t.Fatalf("Status(completed) error = %v", err)
	}
	f.svc.Wait()

	records := f.saver.saved()
	if len(records) != 1 {
		t.Fatalf("saved %d records, want 1", len(records))
	}
	if records[0].Status != entity.CallStatusAbandoned || records[0].IssueType != callflow.IssueBilling {
		t.Fatalf("record = %+v", records[0])
	}
	if !f.lifecycle.ended["CA1"] {
		t.Fatal("hangup not reported as abandoned")
	}

	// a late status for the same call is a no-op
	if err := f.svc.Status(ctx, hook("CA1", func(r *ivr.WebhookRequest) { r.CallStatus = "completed" })); err != nil {
		t.Fatalf("late Status() error = %v", err)
	}
	f.svc.Wait()
	if n := len(f.saver.saved()); n != 1 {
		t.Fatalf("saved %d records after duplicate status, want 1", n)
	}
}

func TestExpireFinalizesStalledCall(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Incoming(ctx, hook("CA1", nil)); err != nil {
		t.Fatalf("Incoming() error = %v", err)
	}
	final, err := f.store.Complete(ctx, "CA1")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}

	f.svc.Expire(ctx, final)
	f.svc.Wait()

	records := f.saver.saved()
	if len(records) != 1 || records[0].Status != entity.CallStatusAbandoned {
		t.Fatalf("records = %+v", records)
	}
}

func TestVerificationFlow(t *testing.T) {
	f := newFixture(t, WithVerification(true))
	ctx := context.Background()

	resp, err := f.svc.Incoming(ctx, hook("CA1", nil))
	if err != nil {
		t.Fatalf("Incoming() error = %v", err)
	}
	if resp.Redirect != callflow.ActionVerify {
		t.Fatalf("Incoming() response = %+v, want redirect to verify", resp)
	}

	resp, err = f.svc.Verify(ctx, hook("CA1", nil))
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if resp.Gather == nil || resp.Gather.NumDigits != CodeDigits || resp.Gather.Action != callflow.ActionVerify {
		t.Fatalf("Verify() response = %+v", resp)
	}
	if msg := f.sender.messages["+15550100"]; msg == "" {
		t.Fatal("no code sent to the caller")
	}

	resp, err = f.svc.Verify(ctx, hook("CA1", func(r *ivr.WebhookRequest) { r.Digits = "482913" }))
	if err != nil {
		t.Fatalf("Verify(code) error = %v", err)
	}
	prompts := callflow.DefaultPrompts()
	if len(resp.Say) < 2 || resp.Say[0] != prompts.VerifyCodeOK || resp.Gather == nil || resp.Gather.Action != callflow.ActionMenu {
		t.Fatalf("Verify(code) response = %+v", resp)
	}

	s, _ := f.store.Get(ctx, "CA1")
	if !s.Verified || s.Stage != entity.StageMenu {
		t.Fatalf("session = %+v", s)
	}
}

func TestWrongCodeHangsUp(t *testing.T) {
	f := newFixture(t, WithVerification(true))
	ctx := context.Background()

	if _, err := f.svc.Incoming(ctx, hook("CA1", nil)); err != nil {
		t.Fatalf("Incoming() error = %v", err)
	}
	if _, err := f.svc.Verify(ctx, hook("CA1", nil)); err != nil {
		t.Fatalf("Verify() error = %v", err)
	}

	resp, err := f.svc.Verify(ctx, hook("CA1", func(r *ivr.WebhookRequest) { r.Digits = "000000" }))
	if err != nil {
		t.Fatalf("Verify(wrong) error = %v", err)
	}
	if !resp.Hangup || resp.Say[0] != callflow.DefaultPrompts().VerifyCodeInvalid {
		t.Fatalf("response = %+v", resp)
	}
	f.svc.Wait()
	if _, err := f.store.Get(ctx, "CA1"); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("session survived failed verification: %v", err)
	}
}

func TestCodeWindow(t *testing.T) {
	tests := []struct {
		name    string
		elapsed time.Duration
		want    error
	}{
		{"just inside", 4*time.Minute + 59*time.Second, nil},
		{"exactly five minutes", 5 * time.Minute, nil},
		{"just outside", 5*time.Minute + time.Second, ivr.ErrCodeExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()

			if _, err := f.svc.IssueCode(ctx, "+15550100"); err != nil {
				t.Fatalf("IssueCode() error = %v", err)
			}
			f.advanceClock(tt.elapsed)

			err := f.svc.VerifyCode(ctx, "+15550100", "482913")
			if tt.want == nil && err != nil {
				t.Fatalf("VerifyCode() error = %v", err)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Fatalf("VerifyCode() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCodeIsSingleUse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.IssueCode(ctx, "+15550100"); err != nil {
		t.Fatalf("IssueCode() error = %v", err)
	}
	if err := f.svc.VerifyCode(ctx, "+15550100", "482913"); err != nil {
		t.Fatalf("first VerifyCode() error = %v", err)
	}
	if err := f.svc.VerifyCode(ctx, "+15550100", "482913"); !errors.Is(err, ivr.ErrCodeConsumed) {
		t.Fatalf("second VerifyCode() error = %v, want ErrCodeConsumed", err)
	}
}

func TestWrongCodeIsInvalid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.IssueCode(ctx, "+15550100"); err != nil {
		t.Fatalf("IssueCode() error = %v", err)
	}
	if err := f.svc.VerifyCode(ctx, "+15550100", "111111"); !errors.Is(err, ivr.ErrCodeInvalid) {
		t.Fatalf("VerifyCode() error = %v, want ErrCodeInvalid", err)
	}
	if err := f.svc.VerifyCode(ctx, "+15559999", "482913"); !errors.Is(err, ivr.ErrCodeNotFound) {
		t.Fatalf("VerifyCode(other number) error = %v, want ErrCodeNotFound", err)
	}
}

func TestIssueCodeDeliveryFailure(t *testing.T) {
	f := newFixture(t)
	f.sender.err = errors.New("carrier rejected")

	_, err := f.svc.IssueCode(context.Background(), "+15550100")
	if !errors.Is(err, ivr.ErrCodeDelivery) {
		t.Fatalf("IssueCode() error = %v, want ErrCodeDelivery", err)
	}
}
