package ivrHandler

import (
	ivrService "ProjectIVR/internal/api/ivr/service"
	"ProjectIVR/internal/callflow"
	"ProjectIVR/internal/middleware"
	"ProjectIVR/pkg/twilio"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

const DefaultActionBase = "/api/v1/ivr"

// WebhookRecorder counts webhooks by route and outcome.
type WebhookRecorder interface {
	Webhook(route, outcome string)
}

type Config struct {
	// PublicURL is the scheme and host Twilio uses to reach the service.
	// It prefixes action URLs and is part of the signed URL.
	PublicURL string
	// ActionBase is the path the IVR routes are mounted under.
	ActionBase string
	Gather     callflow.GatherOptions
}

type IVRHandler struct {
	log        *logrus.Logger
	validator  *validator.Validate
	middleware middleware.Middleware
	ivrService ivrService.IIVRService
	signer     twilio.ITwilio
	recorder   WebhookRecorder
	cfg        Config
}

// New builds the webhook handler. signer and recorder may be nil; without
// a signer webhook signatures are not checked.
func New(
	log *logrus.Logger,
	validate *validator.Validate,
	middleware middleware.Middleware,
	is ivrService.IIVRService,
	signer twilio.ITwilio,
	recorder WebhookRecorder,
	cfg Config,
) *IVRHandler {
	if cfg.ActionBase == "" {
		cfg.ActionBase = DefaultActionBase
	}
	cfg.PublicURL = strings.TrimRight(cfg.PublicURL, "/")
	if cfg.Gather == (callflow.GatherOptions{}) {
		cfg.Gather = callflow.DefaultGatherOptions()
	}

	return &IVRHandler{
		log:        log,
		validator:  validate,
		middleware: middleware,
		ivrService: is,
		signer:     signer,
		recorder:   recorder,
		cfg:        cfg,
	}
}

func (h *IVRHandler) Start(srv fiber.Router) {
	webhooks := srv.Group("/ivr", h.middleware.NewRateLimiter, h.recoverTwiML, h.verifySignature)

	webhooks.Get("/incoming", h.Incoming)
	webhooks.Post("/incoming", h.Incoming)
	webhooks.Post("/menu", h.Menu)
	webhooks.Post("/gather/:stage", h.Gather)
	webhooks.Post("/recording", h.Recording)
	webhooks.Post("/verify", h.Verify)
	webhooks.Post("/status", h.Status)

	srv.Post("/otp", h.middleware.NewRateLimiter, h.middleware.NewTokenMiddleware, h.IssueCode)
}
