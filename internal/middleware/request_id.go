package middleware

import (
	"ProjectIVR/pkg/utils"
	"time"

	"github.com/gofiber/fiber/v2"
)

const (
	RequestIDKey = "X-Request-ID"
	// Twilio repeats this header on retried webhooks.
	twilioIdempotencyHeader = "I-Twilio-Idempotency-Token"
)

func NewRequestIDMiddleware() fiber.Handler {
	ids := utils.New()

	return func(c *fiber.Ctx) error {
		requestID := c.Get(RequestIDKey)
		if requestID == "" {
			requestID = c.Get(twilioIdempotencyHeader)
		}
		if requestID == "" {
			requestID, _ = ids.NewULIDFromTimestamp(time.Now())
		}

		c.Locals(RequestIDKey, requestID)
		c.Set(RequestIDKey, requestID)

		return c.Next()
	}
}
