package ivr

import (
	"ProjectIVR/internal/callflow"
	"ProjectIVR/internal/entity"
	"time"
)

// WebhookRequest is the subset of Twilio voice webhook parameters the IVR
// reads. Twilio posts form bodies; redirects may arrive as query strings.
type WebhookRequest struct {
	CallSid           string `form:"CallSid" query:"CallSid" validate:"required"`
	From              string `form:"From" query:"From"`
	To                string `form:"To" query:"To"`
	Digits            string `form:"Digits" query:"Digits"`
	SpeechResult      string `form:"SpeechResult" query:"SpeechResult"`
	Confidence        string `form:"Confidence" query:"Confidence"`
	RecordingUrl      string `form:"RecordingUrl" query:"RecordingUrl"`
	RecordingSid      string `form:"RecordingSid" query:"RecordingSid"`
	RecordingDuration string `form:"RecordingDuration" query:"RecordingDuration"`
	CallStatus        string `form:"CallStatus" query:"CallStatus"`
}

// Input converts the payload into the state machine input for stage.
func (r WebhookRequest) Input(stage entity.Stage) callflow.Input {
	return callflow.Input{
		Stage:        stage,
		Digits:       r.Digits,
		Speech:       r.SpeechResult,
		RecordingURL: r.RecordingUrl,
	}
}

type IssueCodeRequest struct {
	PhoneNumber string `json:"phone_number" validate:"required,e164"`
}

type IssueCodeResponse struct {
	PhoneNumber string    `json:"phone_number"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Terminal Twilio call statuses. A live session receiving one of these
// was hung up before it reached the end of the script.
var TerminalCallStatuses = map[string]struct{}{
	"completed": {},
	"failed":    {},
	"busy":      {},
	"no-answer": {},
	"canceled":  {},
}
