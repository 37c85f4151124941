package ivrHandler

import (
	"ProjectIVR/internal/api/ivr"
	contextPkg "ProjectIVR/pkg/context"
	"ProjectIVR/pkg/handlerUtil"
	"ProjectIVR/pkg/log"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/net/context"
)

// IssueCode lets an operator send a one-time code to a phone number ahead
// of a call.
func (h *IVRHandler) IssueCode(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
	}).Debug("Processing issue one-time code request")

	var req ivr.IssueCodeRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	if err := h.validator.Struct(req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	res, err := h.ivrService.IssueCode(c, req.PhoneNumber)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "issue_code")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusCreated, res)
	}
}
