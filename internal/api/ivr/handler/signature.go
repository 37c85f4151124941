package ivrHandler

import (
	"ProjectIVR/internal/api/ivr"
	"ProjectIVR/pkg/log"
	"ProjectIVR/pkg/twilio"

	"github.com/gofiber/fiber/v2"
)

// verifySignature rejects webhooks that were not signed with the account's
// auth token. Twilio signs the full public URL plus every POST parameter.
func (h *IVRHandler) verifySignature(ctx *fiber.Ctx) error {
	if h.signer == nil {
		return ctx.Next()
	}

	params := map[string]string{}
	if ctx.Method() == fiber.MethodPost {
		ctx.Request().PostArgs().VisitAll(func(k, v []byte) {
			params[string(k)] = string(v)
		})
	}

	signature := ctx.Get(twilio.SignatureHeader)
	if signature == "" || !h.signer.ValidateSignature(h.signedURL(ctx), params, signature) {
		h.log.WithFields(log.Fields{
			"request_id": h.middleware.GetRequestID(ctx),
			"path":       ctx.Path(),
			"client_ip":  ctx.IP(),
		}).Warn("Rejected webhook with invalid signature")
		h.count(ctx.Path(), "rejected")
		return ctx.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": ivr.ErrInvalidSignature.Error(),
		})
	}

	return ctx.Next()
}

func (h *IVRHandler) signedURL(ctx *fiber.Ctx) string {
	if h.cfg.PublicURL != "" {
		return h.cfg.PublicURL + ctx.OriginalURL()
	}
	return ctx.BaseURL() + ctx.OriginalURL()
}
