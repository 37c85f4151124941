package context

import (
	"context"

	"github.com/gofiber/fiber/v2"
)

// RequestIDKey is the context key the request id travels under, matching
// the log field name.
const RequestIDKey = "request_id"

const fiberRequestIDKey = "X-Request-ID"

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

func GetRequestID(ctx context.Context) string {
	if ctx == nil {
		return "unknown"
	}
	requestID, ok := ctx.Value(RequestIDKey).(string)
	if !ok || requestID == "" {
		return "unknown"
	}
	return requestID
}

// FromFiberCtx starts a fresh context for work done on behalf of the
// request, carrying only its request id. The request-id middleware stores
// the id in Locals; the header is the fallback for routes outside it.
func FromFiberCtx(c *fiber.Ctx) context.Context {
	requestID, _ := c.Locals(fiberRequestIDKey).(string)
	if requestID == "" {
		requestID = c.Get(fiberRequestIDKey)
	}
	if requestID == "" {
		requestID = "unknown"
	}
	return WithRequestID(context.Background(), requestID)
}

// Detach returns a background context that keeps ctx's request id but not
// its deadline or cancellation, for work that outlives the request.
func Detach(ctx context.Context) context.Context {
	return WithRequestID(context.Background(), GetRequestID(ctx))
}
