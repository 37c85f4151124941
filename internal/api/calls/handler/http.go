package callsHandler

import (
	callsService "ProjectIVR/internal/api/calls/service"
	"ProjectIVR/internal/exporter"
	"ProjectIVR/internal/livefeed"
	"ProjectIVR/internal/middleware"
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
)

// ExportRunner writes one consent export on demand.
type ExportRunner interface {
	Run(ctx context.Context) (exporter.Result, error)
}

type CallsHandler struct {
	log          *logrus.Logger
	validator    *validator.Validate
	middleware   middleware.Middleware
	callsService callsService.ICallsService
	exporter     ExportRunner
	feed         *livefeed.Hub
}

func New(
	log *logrus.Logger,
	validate *validator.Validate,
	middleware middleware.Middleware,
	cs callsService.ICallsService,
	exporter ExportRunner,
	feed *livefeed.Hub,
) *CallsHandler {
	return &CallsHandler{
		log:          log,
		validator:    validate,
		middleware:   middleware,
		callsService: cs,
		exporter:     exporter,
		feed:         feed,
	}
}

func (h *CallsHandler) Start(srv fiber.Router) {
	wsMiddleware := func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}

	calls := srv.Group("/calls", h.middleware.NewRateLimiter, h.middleware.NewTokenMiddleware)

	calls.Get("", h.ListCalls)
	calls.Get("/stats", h.GetStats)
	calls.Post("/exports", h.RunExport)

	if h.feed != nil {
		calls.Use("/live", wsMiddleware)
		calls.Get("/live", websocket.New(h.handleLiveFeed))
	}

	calls.Get("/:id", h.GetCall)
	calls.Put("/:id/status", h.UpdateStatus)
}
