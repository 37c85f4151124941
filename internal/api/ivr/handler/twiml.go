package ivrHandler

import (
	"ProjectIVR/internal/callflow"
	"ProjectIVR/pkg/log"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/twilio/twilio-go/twiml"
)

// fallbackTwiML is served when the voice document itself cannot be built.
const fallbackTwiML = `<?xml version="1.0" encoding="UTF-8"?><Response><Hangup/></Response>`

func (h *IVRHandler) render(ctx *fiber.Ctx, resp callflow.Response) error {
	doc, err := twiml.Voice(h.elements(resp))
	if err != nil {
		h.log.WithFields(log.Fields{
			"request_id": h.middleware.GetRequestID(ctx),
			"error":      err.Error(),
		}).Error("Failed to render TwiML")
		doc = fallbackTwiML
	}

	ctx.Set(fiber.HeaderContentType, fiber.MIMETextXMLCharsetUTF8)
	return ctx.Status(fiber.StatusOK).SendString(doc)
}

// elements maps a response onto TwiML verbs in document order.
func (h *IVRHandler) elements(resp callflow.Response) []twiml.Element {
	var els []twiml.Element

	for _, line := range resp.Say {
		els = append(els, &twiml.VoiceSay{Message: line})
	}

	if g := resp.Gather; g != nil {
		els = append(els, h.gather(g))
	}

	if r := resp.Record; r != nil {
		els = append(els, &twiml.VoiceRecord{
			Action:    h.actionURL(r.Action),
			Method:    fiber.MethodPost,
			MaxLength: strconv.Itoa(r.MaxLength),
		})
	}

	if resp.Redirect != "" {
		els = append(els, &twiml.VoiceRedirect{
			Url:    h.actionURL(resp.Redirect),
			Method: fiber.MethodPost,
		})
	}

	if resp.Hangup {
		els = append(els, &twiml.VoiceHangup{})
	}

	return els
}

func (h *IVRHandler) gather(g *callflow.Gather) *twiml.VoiceGather {
	opts := h.cfg.Gather

	el := &twiml.VoiceGather{
		Action:   h.actionURL(g.Action),
		Method:   fiber.MethodPost,
		Input:    g.Input,
		Language: opts.Language,
	}
	if opts.Timeout > 0 {
		el.Timeout = strconv.Itoa(opts.Timeout)
	}
	if g.NumDigits > 0 {
		el.NumDigits = strconv.Itoa(g.NumDigits)
	}
	if g.Input == callflow.InputSpeech {
		el.SpeechModel = opts.SpeechModel
		el.SpeechTimeout = opts.SpeechTimeout
		el.FinishOnKey = opts.FinishOnKey
	}
	if g.OnEmpty {
		el.ActionOnEmptyResult = "true"
	}
	if g.Prompt != "" {
		el.InnerElements = []twiml.Element{&twiml.VoiceSay{Message: g.Prompt}}
	}
	return el
}

func (h *IVRHandler) actionURL(action string) string {
	return h.cfg.PublicURL + strings.TrimRight(h.cfg.ActionBase, "/") + "/" + strings.TrimLeft(action, "/")
}
