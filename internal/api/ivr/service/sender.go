package ivrService

import (
	"ProjectIVR/pkg/twilio"
	"ProjectIVR/pkg/whatsapp"
	"context"

	"github.com/sirupsen/logrus"
)

// CodeSender delivers a one-time code message to a phone number.
type CodeSender interface {
	SendCode(ctx context.Context, phoneNumber, message string) error
}

type smsSender struct {
	client twilio.ITwilio
}

func NewSMSSender(client twilio.ITwilio) CodeSender {
	return &smsSender{client: client}
}

func (s *smsSender) SendCode(ctx context.Context, phoneNumber, message string) error {
	return s.client.SendSMS(ctx, phoneNumber, message)
}

type whatsappCodeSender struct {
	client whatsapp.IWhatsappSender
}

func NewWhatsappSender(client whatsapp.IWhatsappSender) CodeSender {
	return &whatsappCodeSender{client: client}
}

func (s *whatsappCodeSender) SendCode(ctx context.Context, phoneNumber, message string) error {
	return s.client.SendMessage(ctx, phoneNumber, message)
}

type logSender struct {
	log *logrus.Logger
}

// NewLogSender writes codes to the log instead of delivering them. Local
// development only.
func NewLogSender(log *logrus.Logger) CodeSender {
	return &logSender{log: log}
}

func (s *logSender) SendCode(_ context.Context, phoneNumber, message string) error {
	s.log.WithFields(logrus.Fields{
		"phone_number": phoneNumber,
		"message":      message,
	}).Warn("One-time code not delivered, no sender configured")
	return nil
}
