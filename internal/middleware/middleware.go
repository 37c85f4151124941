package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Middleware bundles the fiber handlers shared by every route group.
type Middleware interface {
	// NewRateLimiter throttles per client IP.
	NewRateLimiter(ctx *fiber.Ctx) error
	// NewTokenMiddleware guards the operator API with a bearer JWT.
	NewTokenMiddleware(ctx *fiber.Ctx) error
	NewRequestIDMiddleware() fiber.Handler
	NewLoggingMiddleware() fiber.Handler
	GetRequestID(ctx *fiber.Ctx) string
}

// Limits is the per-IP token bucket applied by NewRateLimiter.
type Limits struct {
	Rate  rate.Limit
	Burst int
}

var DefaultLimits = Limits{Rate: 50, Burst: 100}

type middleware struct {
	log          *logrus.Logger
	token        *tokenMiddleware
	rateLimitter *rateLimiter
	requestID    fiber.Handler
}

func New(logger *logrus.Logger) Middleware {
	return NewWithLimits(logger, DefaultLimits)
}

// NewWithLimits falls back to DefaultLimits for any non-positive value.
func NewWithLimits(logger *logrus.Logger, limits Limits) Middleware {
	if limits.Rate <= 0 {
		limits.Rate = DefaultLimits.Rate
	}
	if limits.Burst <= 0 {
		limits.Burst = DefaultLimits.Burst
	}

	return &middleware{
		log:          logger,
		token:        newTokenMiddleware(),
		rateLimitter: newRateLimiter(limits.Rate, limits.Burst),
		requestID:    NewRequestIDMiddleware(),
	}
}

func (m *middleware) GetRequestID(ctx *fiber.Ctx) string {
	if requestID, ok := ctx.Locals(RequestIDKey).(string); ok && requestID != "" {
		return requestID
	}
	return "unknown"
}

func (m *middleware) NewRequestIDMiddleware() fiber.Handler {
	return m.requestID
}
