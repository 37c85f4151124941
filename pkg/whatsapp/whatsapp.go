package whatsapp

import (
	"ProjectIVR/database/postgres"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/sirupsen/logrus"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"
	"google.golang.org/protobuf/proto"
)

const connectTimeout = 60 * time.Second

var ErrInvalidNumber = errors.New("whatsapp: phone number has no digits")

type IWhatsappSender interface {
	SendMessage(ctx context.Context, phoneNumber, message string) error
	Disconnect() error
	IsConnected() bool
}

type whatsappSender struct {
	client *whatsmeow.Client
}

// New pairs with the device stored in the application database. On first
// run there is no device yet and the pairing QR code is logged until it is
// scanned or the connect timeout passes.
func New(ctx context.Context, logger *logrus.Logger) (IWhatsappSender, error) {
	container, err := sqlstore.New(ctx, "postgres", postgres.FormatDSN(), newLogAdapter(logger, "whatsapp-store"))
	if err != nil {
		return nil, fmt.Errorf("whatsapp store: %w", err)
	}

	deviceStore, err := container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("whatsapp device: %w", err)
	}

	client := whatsmeow.NewClient(deviceStore, newLogAdapter(logger, "whatsapp"))

	connected := make(chan struct{}, 1)
	client.AddEventHandler(func(evt interface{}) {
		if _, ok := evt.(*events.Connected); ok {
			select {
			case connected <- struct{}{}:
			default:
			}
		}
	})

	if client.Store.ID == nil {
		qrChan, _ := client.GetQRChannel(ctx)
		go func() {
			for evt := range qrChan {
				if evt.Event == "code" {
					logger.WithField("code", evt.Code).Warn("Scan this WhatsApp pairing code")
				}
			}
		}()
	}

	if err := client.Connect(); err != nil {
		return nil, fmt.Errorf("whatsapp connect: %w", err)
	}

	select {
	case <-connected:
	case <-time.After(connectTimeout):
		client.Disconnect()
		return nil, fmt.Errorf("whatsapp connect: timed out after %s", connectTimeout)
	case <-ctx.Done():
		client.Disconnect()
		return nil, ctx.Err()
	}

	logger.Info("WhatsApp client connected")
	return &whatsappSender{client: client}, nil
}

// UserJID turns an E.164 or loosely formatted number into a user JID.
func UserJID(phoneNumber string) (types.JID, error) {
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, phoneNumber)
	if digits == "" {
		return types.JID{}, ErrInvalidNumber
	}
	return types.NewJID(digits, types.DefaultUserServer), nil
}

func (w *whatsappSender) SendMessage(ctx context.Context, phoneNumber, message string) error {
	jid, err := UserJID(phoneNumber)
	if err != nil {
		return err
	}

	msg := &waE2E.Message{Conversation: proto.String(message)}
	if _, err := w.client.SendMessage(ctx, jid, msg); err != nil {
		return fmt.Errorf("whatsapp send to %s: %w", jid.User, err)
	}
	return nil
}

func (w *whatsappSender) Disconnect() error {
	w.client.Disconnect()
	return nil
}

func (w *whatsappSender) IsConnected() bool {
	return w.client.IsConnected()
}

// logrusAdapter routes whatsmeow's own logging into the service logger.
type logrusAdapter struct {
	module string
	entry  *logrus.Entry
}

func newLogAdapter(logger *logrus.Logger, module string) logrusAdapter {
	return logrusAdapter{module: module, entry: logger.WithField("module", module)}
}

func (l logrusAdapter) Warnf(msg string, args ...interface{})  { l.entry.Warnf(msg, args...) }
func (l logrusAdapter) Errorf(msg string, args ...interface{}) { l.entry.Errorf(msg, args...) }
func (l logrusAdapter) Infof(msg string, args ...interface{})  { l.entry.Infof(msg, args...) }
func (l logrusAdapter) Debugf(msg string, args ...interface{}) { l.entry.Debugf(msg, args...) }

func (l logrusAdapter) Sub(module string) waLog.Logger {
	sub := l.module + "/" + module
	return logrusAdapter{module: sub, entry: l.entry.WithField("module", sub)}
}
