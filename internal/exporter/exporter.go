package exporter

import (
	"ProjectIVR/internal/entity"
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	FilePrefix      = "consent_data_"
	FileSuffix      = ".txt"
	fileTimeLayout  = "20060102_150405"
	Header          = "Account_Number|Phone_Number|Customer_Name|Consent_Type|Consent_Flag|Timestamp"
	DefaultKeepDays = 7
)

// Source yields the durable consent records, newest first.
type Source interface {
	ExportableConsents(ctx context.Context) ([]entity.ConsentRecord, error)
}

// Publisher ships a finished export file somewhere else.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, path string, records int) error
}

type Recorder interface {
	ExportCompleted(records int)
}

type Result struct {
	Path    string `json:"path"`
	Records int    `json:"records"`
}

type Exporter struct {
	source     Source
	dir        string
	now        func() time.Time
	publishers []Publisher
	recorder   Recorder
	log        *logrus.Logger
}

type Option func(*Exporter)

func WithClock(now func() time.Time) Option {
	return func(e *Exporter) {
		if now != nil {
			e.now = now
		}
	}
}

func WithPublishers(p ...Publisher) Option {
	return func(e *Exporter) {
		e.publishers = append(e.publishers, p...)
	}
}

func WithRecorder(r Recorder) Option {
	return func(e *Exporter) {
		e.recorder = r
	}
}

func New(source Source, dir string, log *logrus.Logger, opts ...Option) *Exporter {
	if dir == "" {
		dir = "."
	}
	e := &Exporter{
		source: source,
		dir:    dir,
		now:    time.Now,
		log:    log,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Exporter) Dir() string {
	return e.dir
}

// Export writes a snapshot file and returns its path, or "" when there was
// nothing to export.
func (e *Exporter) Export(ctx context.Context) (string, error) {
	res, err := e.Run(ctx)
	return res.Path, err
}

// Run exports and then hands the file to every publisher. Publisher
// failures are logged and do not fail the export.
func (e *Exporter) Run(ctx context.Context) (Result, error) {
	records, err := e.source.ExportableConsents(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("load consent records: %w", err)
	}

	rows := make([]entity.ConsentRecord, 0, len(records))
	for _, r := range records {
		if r.Exportable() {
			rows = append(rows, r)
		}
	}
	if len(rows) == 0 {
		e.log.Info("No consent records to export")
		return Result{}, nil
	}

	path, err := e.write(rows)
	if err != nil {
		return Result{}, err
	}

	e.log.WithFields(logrus.Fields{
		"path":    path,
		"records": len(rows),
	}).Info("Consent export written")

	if e.recorder != nil {
		e.recorder.ExportCompleted(len(rows))
	}

	for _, p := range e.publishers {
		if err := p.Publish(ctx, path, len(rows)); err != nil {
			e.log.WithFields(logrus.Fields{
				"publisher": p.Name(),
				"path":      path,
				"error":     err.Error(),
			}).Error("Failed to publish consent export")
		}
	}

	return Result{Path: path, Records: len(rows)}, nil
}

func (e *Exporter) write(rows []entity.ConsentRecord) (string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}

	name := FilePrefix + e.now().Format(fileTimeLayout) + FileSuffix
	path := filepath.Join(e.dir, name)

	tmp, err := os.CreateTemp(e.dir, ".consent-*.tmp")
	if err != nil {
		return "", fmt.Errorf("create export file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	fmt.Fprintln(w, Header)
	for _, r := range rows {
		fmt.Fprintln(w, Line(r))
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write export file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close export file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("publish export file: %w", err)
	}
	return path, nil
}

// Line renders one record in the dialer's pipe-delimited layout.
func Line(r entity.ConsentRecord) string {
	fields := []string{
		r.AccountNumber,
		r.PhoneNumber,
		r.DisplayName(),
		r.ConsentType,
		r.Flag(),
		r.CapturedAt.Format(time.RFC3339),
	}
	for i, f := range fields {
		fields[i] = clean(f)
	}
	return strings.Join(fields, "|")
}

var cleaner = strings.NewReplacer("|", " ", "\r", " ", "\n", " ")

func clean(v string) string {
	return strings.TrimSpace(cleaner.Replace(v))
}
