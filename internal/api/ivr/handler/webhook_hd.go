package ivrHandler

import (
	"ProjectIVR/internal/api/ivr"
	"ProjectIVR/internal/callflow"
	"ProjectIVR/internal/entity"
	contextPkg "ProjectIVR/pkg/context"
	"ProjectIVR/pkg/log"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/net/context"
)

type stepFunc func(c context.Context, req ivr.WebhookRequest) (callflow.Response, error)

// gatherStages are the stages answered through /gather/:stage.
var gatherStages = map[entity.Stage]struct{}{
	entity.StageAccountInfo:    {},
	entity.StageTechnicalIssue: {},
	entity.StageBillingIssue:   {},
	entity.StageBillingAccount: {},
	entity.StageOtherIssue:     {},
	entity.StageCallerName:     {},
	entity.StagePriority:       {},
}

func (h *IVRHandler) Incoming(ctx *fiber.Ctx) error {
	return h.webhook(ctx, "incoming", h.ivrService.Incoming)
}

func (h *IVRHandler) Menu(ctx *fiber.Ctx) error {
	return h.webhook(ctx, "menu", h.ivrService.Menu)
}

func (h *IVRHandler) Gather(ctx *fiber.Ctx) error {
	stage, err := entity.ParseStage(ctx.Params("stage"))
	if err == nil {
		if _, ok := gatherStages[stage]; !ok {
			err = fmt.Errorf("%w: %q is not a gather stage", entity.ErrUnknownStage, stage)
		}
	}
	if err != nil {
		return h.fail(ctx, "gather", err)
	}

	return h.webhook(ctx, "gather_"+stage.String(), func(c context.Context, req ivr.WebhookRequest) (callflow.Response, error) {
		return h.ivrService.Gather(c, stage, req)
	})
}

func (h *IVRHandler) Recording(ctx *fiber.Ctx) error {
	return h.webhook(ctx, "recording", h.ivrService.Recording)
}

func (h *IVRHandler) Verify(ctx *fiber.Ctx) error {
	return h.webhook(ctx, "verify", h.ivrService.Verify)
}

func (h *IVRHandler) Status(ctx *fiber.Ctx) error {
	return h.webhook(ctx, "status", func(c context.Context, req ivr.WebhookRequest) (callflow.Response, error) {
		return callflow.Response{}, h.ivrService.Status(c, req)
	})
}

// webhook parses the provider payload, runs step and answers with TwiML.
// Every failure still produces a voice document so the caller is never
// left with silence.
func (h *IVRHandler) webhook(ctx *fiber.Ctx, route string, step stepFunc) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
	}).Debug("Processing webhook")

	var req ivr.WebhookRequest
	var err error
	if ctx.Method() == fiber.MethodGet {
		err = ctx.QueryParser(&req)
	} else {
		err = ctx.BodyParser(&req)
	}
	if err != nil {
		return h.fail(ctx, route, err)
	}

	if err := h.validator.Struct(req); err != nil {
		return h.fail(ctx, route, err)
	}

	resp, err := step(c, req)
	if err != nil {
		return h.fail(ctx, route, err)
	}

	select {
	case <-c.Done():
		return h.fail(ctx, route, c.Err())
	default:
		h.count(route, "ok")
		return h.render(ctx, resp)
	}
}

func (h *IVRHandler) fail(ctx *fiber.Ctx, route string, err error) error {
	h.log.WithFields(log.Fields{
		"request_id": h.middleware.GetRequestID(ctx),
		"path":       ctx.Path(),
		"route":      route,
		"error":      err.Error(),
	}).Error("Webhook failed")
	h.count(route, "error")

	return h.render(ctx, callflow.SayAndHangup(h.ivrService.Prompts().TechnicalProblem))
}

// recoverTwiML turns a panic in any webhook into the technical problem
// document instead of a bare 500.
func (h *IVRHandler) recoverTwiML(ctx *fiber.Ctx) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = h.fail(ctx, "panic", fmt.Errorf("panic: %v", r))
		}
	}()
	return ctx.Next()
}

func (h *IVRHandler) count(route, outcome string) {
	if h.recorder != nil {
		h.recorder.Webhook(route, outcome)
	}
}
