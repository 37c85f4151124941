package exporter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// FileUploader stores a local file remotely and returns its location.
type FileUploader interface {
	UploadPath(ctx context.Context, key, path string) (string, error)
}

// Notifier delivers a plain-text notice.
type Notifier interface {
	Send(to []string, subject, body string) error
}

type uploadPublisher struct {
	uploader FileUploader
	prefix   string
}

func NewUploadPublisher(uploader FileUploader, prefix string) Publisher {
	return &uploadPublisher{uploader: uploader, prefix: prefix}
}

func (p *uploadPublisher) Name() string { return "s3" }

func (p *uploadPublisher) Publish(ctx context.Context, path string, _ int) error {
	key := filepath.Base(path)
	if p.prefix != "" {
		key = p.prefix + "/" + key
	}
	_, err := p.uploader.UploadPath(ctx, key, path)
	return err
}

type notifyPublisher struct {
	notifier   Notifier
	recipients []string
}

func NewNotifyPublisher(notifier Notifier, recipients []string) Publisher {
	return &notifyPublisher{notifier: notifier, recipients: recipients}
}

func (p *notifyPublisher) Name() string { return "back_office_mail" }

func (p *notifyPublisher) Publish(_ context.Context, path string, records int) error {
	if len(p.recipients) == 0 {
		return nil
	}
	host, _ := os.Hostname()
	subject := fmt.Sprintf("Consent export ready: %s", filepath.Base(path))
	body := fmt.Sprintf("A new consent export with %d record(s) was written to %s on %s at %s.",
		records, path, host, time.Now().Format(time.RFC1123))
	return p.notifier.Send(p.recipients, subject, body)
}
