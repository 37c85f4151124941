package config

import (
	"ProjectIVR/database/postgres"
	callsHandler "ProjectIVR/internal/api/calls/handler"
	callsRepository "ProjectIVR/internal/api/calls/repository"
	callsService "ProjectIVR/internal/api/calls/service"
	ivrHandler "ProjectIVR/internal/api/ivr/handler"
	ivrRepository "ProjectIVR/internal/api/ivr/repository"
	ivrService "ProjectIVR/internal/api/ivr/service"
	"ProjectIVR/internal/callflow"
	"ProjectIVR/internal/exporter"
	"ProjectIVR/internal/extraction"
	"ProjectIVR/internal/livefeed"
	"ProjectIVR/internal/middleware"
	"ProjectIVR/internal/observability"
	"ProjectIVR/internal/session"
	"ProjectIVR/internal/transcript"
	"ProjectIVR/pkg/audio"
	"ProjectIVR/pkg/bcrypt"
	"ProjectIVR/pkg/gemini"
	"ProjectIVR/pkg/openai"
	"ProjectIVR/pkg/redis"
	"ProjectIVR/pkg/s3"
	"ProjectIVR/pkg/smtp"
	"ProjectIVR/pkg/twilio"
	"ProjectIVR/pkg/utils"
	"ProjectIVR/pkg/whatsapp"
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

type ServerOption func(*Server) error

type Server struct {
	engine      *fiber.App
	db          *sqlx.DB
	log         *logrus.Logger
	settings    Settings
	middleware  middleware.Middleware
	validator   *validator.Validate
	utils       utils.IUtils
	bcryptUtils bcrypt.IBcrypt
	handlers    []handler

	sessionStore   session.Store
	redisServer    redis.IRedis
	completer      extraction.Completer
	geminiClient   gemini.IGemini
	transcriber    audio.Transcriber
	twilioClient   twilio.ITwilio
	whatsappClient whatsapp.IWhatsappSender
	codeSender     ivrService.CodeSender
	publishers     []exporter.Publisher
	metrics        *observability.Metrics
	liveFeed       *livefeed.Hub

	ivrService ivrService.IIVRService
	exporter   *exporter.Exporter
	janitor    *session.Janitor
	scheduler  *exporter.Scheduler
}

type handler interface {
	Start(srv fiber.Router)
}

func NewServer(options ...ServerOption) (*Server, error) {
	server := &Server{}

	for _, option := range options {
		if err := option(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if server.engine == nil {
		return nil, fmt.Errorf("fiber app is required")
	}
	if server.log == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if server.db == nil {
		return nil, fmt.Errorf("database is required")
	}
	if server.sessionStore == nil {
		return nil, fmt.Errorf("session store is required")
	}
	if server.middleware == nil {
		return nil, fmt.Errorf("middleware is required")
	}
	if server.validator == nil {
		server.validator = NewValidator()
	}

	return server, nil
}

func WithFiber(fiberApp *fiber.App) ServerOption {
	return func(s *Server) error {
		s.engine = fiberApp
		return nil
	}
}

func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) error {
		s.log = logger
		return nil
	}
}

func WithSettings(settings Settings) ServerOption {
	return func(s *Server) error {
		s.settings = settings
		return nil
	}
}

func WithValidator(validator *validator.Validate) ServerOption {
	return func(s *Server) error {
		s.validator = validator
		return nil
	}
}

// WithDatabase connects to Postgres and applies the embedded schema.
func WithDatabase() ServerOption {
	return func(s *Server) error {
		db, err := postgres.New()
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to connect to database: %v", err)
			}
			return fmt.Errorf("failed to create database connection: %w", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := postgres.Migrate(ctx, db); err != nil {
			db.Close()
			return fmt.Errorf("failed to migrate database: %w", err)
		}

		s.db = db
		return nil
	}
}

// WithSessionStore picks the live-call store named by SESSION_BACKEND.
func WithSessionStore() ServerOption {
	return func(s *Server) error {
		switch s.settings.SessionBackend {
		case SessionBackendRedis:
			client, err := redis.New(s.log)
			if err != nil {
				return err
			}
			s.redisServer = client
			s.sessionStore = session.NewRedisStore(s.redisServer.Client(), s.settings.SessionTTL)
		default:
			s.sessionStore = session.NewMemoryStoreWithTTL(s.settings.SessionTTL, nil)
		}
		if s.log != nil {
			s.log.WithField("backend", s.settings.SessionBackend).Info("Session store ready")
		}
		return nil
	}
}

// WithLLM selects the extraction completer and, when enabled, the Whisper
// transcriber for recordings.
func WithLLM() ServerOption {
	return func(s *Server) error {
		switch s.settings.LLMProvider {
		case LLMProviderGemini:
			client, err := gemini.NewGeminiClient()
			if err != nil {
				if s.log != nil {
					s.log.Errorf("Failed to create Gemini client: %v", err)
				}
				return fmt.Errorf("failed to create Gemini client: %w", err)
			}
			s.geminiClient = client
			s.completer = client
		case LLMProviderOpenAI:
			s.completer = openai.NewChatGPT()
		}

		if s.settings.TranscribeRecordings {
			s.transcriber = audio.NewTranscriptionService(
				os.Getenv("OPENAI_API_KEY"),
				os.Getenv("WHISPER_LANGUAGE"),
				os.Getenv("TWILIO_ACCOUNT_SID"),
				os.Getenv("TWILIO_AUTH_TOKEN"),
			)
		}
		return nil
	}
}

// WithTwilio enables webhook signature checks and the SMS sender. Without
// credentials both stay off.
func WithTwilio() ServerOption {
	return func(s *Server) error {
		if os.Getenv("TWILIO_AUTH_TOKEN") == "" {
			if s.log != nil {
				s.log.Warn("TWILIO_AUTH_TOKEN not set, webhook signatures will not be verified")
			}
			return nil
		}

		client, err := twilio.New()
		if err != nil {
			return fmt.Errorf("failed to create Twilio client: %w", err)
		}
		s.twilioClient = client
		return nil
	}
}

// WithOTPSender picks how one-time codes reach the caller.
func WithOTPSender() ServerOption {
	return func(s *Server) error {
		switch s.settings.OTPChannel {
		case OTPChannelSMS:
			if s.twilioClient == nil {
				return fmt.Errorf("OTP_CHANNEL=sms requires Twilio credentials")
			}
			s.codeSender = ivrService.NewSMSSender(s.twilioClient)
		case OTPChannelWhatsapp:
			client, err := whatsapp.New(context.Background(), s.log)
			if err != nil {
				if s.log != nil {
					s.log.Errorf("Failed to initialize WhatsApp client: %v", err)
				}
				return fmt.Errorf("failed to create WhatsApp client: %w", err)
			}
			s.whatsappClient = client
			s.codeSender = ivrService.NewWhatsappSender(client)
		default:
			s.codeSender = ivrService.NewLogSender(s.log)
		}
		return nil
	}
}

// WithExportPublishers adds the S3 upload and the back-office mail notice
// to every export run.
func WithExportPublishers() ServerOption {
	return func(s *Server) error {
		if s.settings.ExportS3 {
			client, err := s3.New()
			if err != nil {
				if s.log != nil {
					s.log.Errorf("Failed to initialize S3 client: %v", err)
				}
				return fmt.Errorf("failed to create S3 client: %w", err)
			}
			s.publishers = append(s.publishers, exporter.NewUploadPublisher(client, s.settings.ExportS3Prefix))
		}
		if len(s.settings.ExportNotify) > 0 {
			s.publishers = append(s.publishers, exporter.NewNotifyPublisher(smtp.New(), s.settings.ExportNotify))
		}
		return nil
	}
}

func WithMetrics() ServerOption {
	return func(s *Server) error {
		s.metrics = observability.NewMetrics(s.settings.MetricsNamespace)
		return nil
	}
}

func WithLiveFeed() ServerOption {
	return func(s *Server) error {
		if s.settings.LiveFeed {
			s.liveFeed = livefeed.NewHub()
		}
		return nil
	}
}

func WithMiddleware() ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before middleware")
		}
		s.middleware = middleware.NewWithLimits(s.log, middleware.Limits{
			Rate:  rate.Limit(s.settings.RateLimit),
			Burst: s.settings.RateBurst,
		})
		return nil
	}
}

func WithUtils() ServerOption {
	return func(s *Server) error {
		s.utils = utils.New()
		return nil
	}
}

func WithBcryptUtils() ServerOption {
	return func(s *Server) error {
		s.bcryptUtils = bcrypt.New()
		return nil
	}
}

func (s *Server) RegisterHandler() error {
	s.engine.Use(recover.New())
	s.engine.Use(s.middleware.NewRequestIDMiddleware())
	s.engine.Use(s.middleware.NewLoggingMiddleware())

	if s.utils == nil {
		s.utils = utils.New()
	}
	if s.bcryptUtils == nil {
		s.bcryptUtils = bcrypt.New()
	}

	// Calls Domain
	callsRepo := callsRepository.New(s.db, s.log)
	callsServices := callsService.NewCallsService(s.log, callsRepo)

	// Consent export
	exportOpts := []exporter.Option{exporter.WithPublishers(s.publishers...)}
	if s.metrics != nil {
		exportOpts = append(exportOpts, exporter.WithRecorder(s.metrics))
	}
	s.exporter = exporter.New(callsServices, s.settings.ExportDir, s.log, exportOpts...)

	s.scheduler = exporter.NewScheduler(s.exporter, s.settings.ExportKeepDays, s.log)
	if err := s.scheduler.Schedule(s.settings.ExportSchedule, s.settings.CleanupSchedule); err != nil {
		return err
	}

	var runner callsHandler.ExportRunner = s.exporter
	callsHandlers := callsHandler.New(s.log, s.validator, s.middleware, callsServices, runner, s.liveFeed)

	// IVR Domain
	var observer transcript.Observer
	if s.liveFeed != nil {
		observer = s.liveFeed
	}
	aggregator := transcript.New(s.sessionStore, observer)

	machine := callflow.New(callflow.DefaultPrompts(), callflow.Policy{
		MaxRetries: s.settings.MaxRetries,
		MaxNoInput: s.settings.MaxNoInput,
	})

	extractOpts := []extraction.Option{extraction.WithTimeout(s.settings.ExtractionTimeout)}
	if s.metrics != nil {
		extractOpts = append(extractOpts, extraction.WithFallbackRecorder(s.metrics))
	}
	extractor := extraction.New(s.completer, s.log, extractOpts...)

	ivrOpts := []ivrService.Option{
		ivrService.WithHasher(s.bcryptUtils),
		ivrService.WithUtils(s.utils),
		ivrService.WithVerification(s.settings.RequireVerification),
		ivrService.WithUnknownCaller(s.settings.UnknownCaller),
		ivrService.WithFinalizeTimeout(s.settings.FinalizeTimeout),
	}
	if s.codeSender != nil {
		ivrOpts = append(ivrOpts, ivrService.WithCodeSender(s.codeSender))
	}
	if s.transcriber != nil {
		ivrOpts = append(ivrOpts, ivrService.WithTranscriber(s.transcriber))
	}
	var lifecycle []ivrService.Lifecycle
	if s.metrics != nil {
		lifecycle = append(lifecycle, s.metrics)
		ivrOpts = append(ivrOpts, ivrService.WithRecorder(s.metrics))
	}
	if s.liveFeed != nil {
		lifecycle = append(lifecycle, s.liveFeed)
	}
	ivrOpts = append(ivrOpts, ivrService.WithLifecycle(lifecycle...))

	ivrRepo := ivrRepository.New(s.db, s.log)
	s.ivrService = ivrService.NewIVRService(s.log, s.sessionStore, machine, aggregator, extractor, callsServices, ivrRepo, ivrOpts...)

	var recorder ivrHandler.WebhookRecorder
	if s.metrics != nil {
		recorder = s.metrics
	}
	gather := callflow.DefaultGatherOptions()
	gather.Language = s.settings.Language
	ivrHandlers := ivrHandler.New(s.log, s.validator, s.middleware, s.ivrService, s.twilioClient, recorder, ivrHandler.Config{
		PublicURL:  s.settings.PublicURL,
		ActionBase: ivrHandler.DefaultActionBase,
		Gather:     gather,
	})

	s.janitor = session.NewJanitor(s.sessionStore, s.settings.SessionTimeout, s.settings.JanitorInterval, s.ivrService.Expire, s.log)

	s.setupHealthCheck()
	s.setupMetrics()
	s.handlers = append(s.handlers, callsHandlers, ivrHandlers)
	return nil
}

// Run serves HTTP and runs the janitor and the export scheduler until ctx
// is cancelled or one of them fails.
func (s *Server) Run(ctx context.Context) error {
	router := s.engine.Group("/api/v1")
	for _, h := range s.handlers {
		h.Start(router)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := s.engine.Listen(fmt.Sprintf(":%s", s.settings.Port)); err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		s.log.Info("Shutting down HTTP server")
		return s.engine.ShutdownWithTimeout(10 * time.Second)
	})

	if s.janitor != nil {
		g.Go(func() error {
			return s.janitor.Run(ctx)
		})
	}

	if s.scheduler != nil {
		g.Go(func() error {
			return s.scheduler.Run(ctx)
		})
	}

	return g.Wait()
}

// Close waits for in-flight call finalisation and releases every client.
func (s *Server) Close() error {
	if s.ivrService != nil {
		s.ivrService.Wait()
	}

	var errs []error
	if s.whatsappClient != nil {
		if err := s.whatsappClient.Disconnect(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.geminiClient != nil {
		s.geminiClient.Close()
	}
	if s.redisServer != nil {
		if err := s.redisServer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Server) setupHealthCheck() {
	s.engine.Get("/", func(ctx *fiber.Ctx) error {
		active, err := s.sessionStore.ActiveCount(ctx.Context())
		if err != nil {
			return ctx.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"message": "Session store unavailable",
			})
		}
		return ctx.JSON(fiber.Map{
			"message":      "Server is Healthy!",
			"active_calls": active,
		})
	})
}

func (s *Server) setupMetrics() {
	if s.metrics == nil {
		return
	}
	s.engine.Get("/metrics", adaptor.HTTPHandler(s.metrics.Handler()))
}
