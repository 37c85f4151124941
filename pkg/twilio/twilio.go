package twilio

import (
	"context"
	"fmt"
	"os"

	twilioSdk "github.com/twilio/twilio-go"
	"github.com/twilio/twilio-go/client"
	api "github.com/twilio/twilio-go/rest/api/v2010"
)

const SignatureHeader = "X-Twilio-Signature"

type ITwilio interface {
	SendSMS(ctx context.Context, to, body string) error
	ValidateSignature(url string, params map[string]string, signature string) bool
}

type twilioClient struct {
	rest      *twilioSdk.RestClient
	validator client.RequestValidator
	from      string
}

func New() (ITwilio, error) {
	sid := os.Getenv("TWILIO_ACCOUNT_SID")
	token := os.Getenv("TWILIO_AUTH_TOKEN")
	if sid == "" || token == "" {
		return nil, fmt.Errorf("TWILIO_ACCOUNT_SID and TWILIO_AUTH_TOKEN are required")
	}

	return &twilioClient{
		rest: twilioSdk.NewRestClientWithParams(twilioSdk.ClientParams{
			Username: sid,
			Password: token,
		}),
		validator: client.NewRequestValidator(token),
		from:      os.Getenv("TWILIO_FROM_NUMBER"),
	}, nil
}

// NewValidator returns a signature checker only; SendSMS is unavailable.
func NewValidator(authToken string) ITwilio {
	return &twilioClient{validator: client.NewRequestValidator(authToken)}
}

func (t *twilioClient) SendSMS(_ context.Context, to, body string) error {
	if t.rest == nil {
		return fmt.Errorf("twilio rest client not configured")
	}
	if t.from == "" {
		return fmt.Errorf("TWILIO_FROM_NUMBER not set")
	}

	params := &api.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(t.from)
	params.SetBody(body)

	if _, err := t.rest.Api.CreateMessage(params); err != nil {
		return fmt.Errorf("send sms: %w", err)
	}
	return nil
}

func (t *twilioClient) ValidateSignature(url string, params map[string]string, signature string) bool {
	return t.validator.Validate(url, params, signature)
}
