package ivrService

import (
	"ProjectIVR/internal/api/ivr"
	ivrRepository "ProjectIVR/internal/api/ivr/repository"
	"ProjectIVR/internal/callflow"
	"ProjectIVR/internal/entity"
	"ProjectIVR/internal/extraction"
	"ProjectIVR/internal/session"
	"ProjectIVR/internal/transcript"
	"ProjectIVR/pkg/audio"
	"ProjectIVR/pkg/bcrypt"
	"ProjectIVR/pkg/utils"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

type IIVRService interface {
	Incoming(ctx context.Context, req ivr.WebhookRequest) (callflow.Response, error)
	Menu(ctx context.Context, req ivr.WebhookRequest) (callflow.Response, error)
	Gather(ctx context.Context, stage entity.Stage, req ivr.WebhookRequest) (callflow.Response, error)
	Recording(ctx context.Context, req ivr.WebhookRequest) (callflow.Response, error)
	Verify(ctx context.Context, req ivr.WebhookRequest) (callflow.Response, error)
	Status(ctx context.Context, req ivr.WebhookRequest) error
	IssueCode(ctx context.Context, phoneNumber string) (ivr.IssueCodeResponse, error)
	VerifyCode(ctx context.Context, phoneNumber, code string) error
	Expire(ctx context.Context, s entity.CallSession)
	Finalize(ctx context.Context, s entity.CallSession, abandoned bool) error
	Prompts() callflow.Prompts
	Wait()
}

// Extractor turns a transcript into structured fields. It never fails.
type Extractor interface {
	Extract(ctx context.Context, transcript string) extraction.Result
}

// CallSaver persists the finished call record.
type CallSaver interface {
	SaveCall(ctx context.Context, call entity.CallRecord) error
}

// Lifecycle is told when a call enters and leaves the live set.
type Lifecycle interface {
	CallStarted(callID string)
	CallEnded(callID string, abandoned bool)
}

type Recorder interface {
	OneTimeCode(result string)
	ObserveExtraction(d time.Duration)
}

const (
	DefaultUnknownCaller   = entity.Unknown
	DefaultFinalizeTimeout = 60 * time.Second
	CodeDigits             = 6
	recordingTurnLabel     = "recording"
)

type ivrService struct {
	log        *logrus.Logger
	store      session.Store
	machine    *callflow.Machine
	aggregator *transcript.Aggregator
	extractor  Extractor
	calls      CallSaver
	repo       ivrRepository.Repository

	sender      CodeSender
	hasher      bcrypt.IBcrypt
	utils       utils.IUtils
	transcriber audio.Transcriber
	lifecycle   []Lifecycle
	recorder    Recorder

	requireVerification bool
	unknownCaller       string
	finalizeTimeout     time.Duration
	now                 func() time.Time

	wg sync.WaitGroup
}

type Option func(*ivrService)

func WithCodeSender(sender CodeSender) Option {
	return func(s *ivrService) {
		if sender != nil {
			s.sender = sender
		}
	}
}

func WithHasher(h bcrypt.IBcrypt) Option {
	return func(s *ivrService) {
		if h != nil {
			s.hasher = h
		}
	}
}

func WithUtils(u utils.IUtils) Option {
	return func(s *ivrService) {
		if u != nil {
			s.utils = u
		}
	}
}

func WithTranscriber(t audio.Transcriber) Option {
	return func(s *ivrService) {
		s.transcriber = t
	}
}

func WithLifecycle(l ...Lifecycle) Option {
	return func(s *ivrService) {
		s.lifecycle = append(s.lifecycle, l...)
	}
}

func WithRecorder(r Recorder) Option {
	return func(s *ivrService) {
		s.recorder = r
	}
}

// WithVerification makes every new call pass the one-time code check
// before the menu.
func WithVerification(required bool) Option {
	return func(s *ivrService) {
		s.requireVerification = required
	}
}

func WithUnknownCaller(v string) Option {
	return func(s *ivrService) {
		if v != "" {
			s.unknownCaller = v
		}
	}
}

func WithFinalizeTimeout(d time.Duration) Option {
	return func(s *ivrService) {
		if d > 0 {
			s.finalizeTimeout = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *ivrService) {
		if now != nil {
			s.now = now
		}
	}
}

func NewIVRService(
	log *logrus.Logger,
	store session.Store,
	machine *callflow.Machine,
	aggregator *transcript.Aggregator,
	extractor Extractor,
	calls CallSaver,
	repo ivrRepository.Repository,
	opts ...Option,
) IIVRService {
	s := &ivrService{
		log:             log,
		store:           store,
		machine:         machine,
		aggregator:      aggregator,
		extractor:       extractor,
		calls:           calls,
		repo:            repo,
		sender:          NewLogSender(log),
		hasher:          bcrypt.New(),
		utils:           utils.New(),
		unknownCaller:   DefaultUnknownCaller,
		finalizeTimeout: DefaultFinalizeTimeout,
		now:             func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *ivrService) Prompts() callflow.Prompts {
	return s.machine.Prompts()
}

// Wait blocks until every background finalisation has returned.
func (s *ivrService) Wait() {
	s.wg.Wait()
}
