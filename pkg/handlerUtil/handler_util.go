package handlerUtil

import (
	"ProjectIVR/internal/session"
	"ProjectIVR/pkg/log"
	"ProjectIVR/pkg/response"
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/sirupsen/logrus"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// knownError maps a sentinel to the response a client sees for it.
type knownError struct {
	target  error
	status  int
	message string
	code    string
}

var knownErrors = []knownError{
	{session.ErrNotFound, fiber.StatusNotFound, "Call session not found", "CALL_SESSION_NOT_FOUND"},
	{session.ErrAlreadyExists, fiber.StatusConflict, "Call session already exists", "CALL_SESSION_EXISTS"},
}

type ErrorHandler struct {
	logger *logrus.Logger
}

func New(logger *logrus.Logger) *ErrorHandler {
	return &ErrorHandler{
		logger: logger,
	}
}

func (h *ErrorHandler) entry(requestID string, err error, path, operation string) log.Fields {
	return log.Fields{
		"request_id": requestID,
		"error":      err.Error(),
		"path":       path,
		"operation":  operation,
	}
}

// Handle turns a service error into a JSON response. Response errors keep
// their own status, known sentinels get a stable code, and anything else is
// a 500 carrying a trace id that also appears in the log.
func (h *ErrorHandler) Handle(c *fiber.Ctx, requestID string, err error, path string, operation string) error {
	fields := h.entry(requestID, err, path, operation)

	if status := response.StatusOf(err, 0); status != 0 {
		fields["code"] = status
		h.logger.WithFields(fields).Warn("Operation failed with error response")
		return c.Status(status).JSON(fiber.Map{"error": err.Error()})
	}

	for _, known := range knownErrors {
		if errors.Is(err, known.target) {
			h.logger.WithFields(fields).Warn(known.message)
			return c.Status(known.status).JSON(ErrorResponse{Error: known.message, Code: known.code})
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		h.logger.WithFields(fields).Warn("Operation timed out")
		return h.HandleRequestTimeout(c)
	}

	traceID := log.TraceID(fields)
	h.logger.WithFields(fields).Error("Unexpected error")

	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error":    "An unexpected error occurred",
		"trace_id": traceID,
	})
}

func (h *ErrorHandler) HandleValidationError(c *fiber.Ctx, requestID string, err error, path string) error {
	h.logger.WithFields(log.Fields{
		"request_id": requestID,
		"error":      err.Error(),
		"path":       path,
	}).Warn("Validation failed")

	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
		Error: "Validation failed: " + err.Error(),
		Code:  "VALIDATION_ERROR",
	})
}

func (h *ErrorHandler) HandleRequestTimeout(c *fiber.Ctx) error {
	return c.Status(fiber.StatusRequestTimeout).JSON(utils.StatusMessage(fiber.StatusRequestTimeout))
}

func (h *ErrorHandler) HandleUnauthorized(c *fiber.Ctx, requestID string, message string) error {
	h.logger.WithFields(log.Fields{
		"request_id": requestID,
		"path":       c.Path(),
		"message":    message,
	}).Warn("Unauthorized access")

	return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{Error: message, Code: "UNAUTHORIZED"})
}

func (h *ErrorHandler) HandleSuccess(c *fiber.Ctx, statusCode int, data interface{}) error {
	if data == nil {
		return c.SendStatus(statusCode)
	}
	return c.Status(statusCode).JSON(data)
}
