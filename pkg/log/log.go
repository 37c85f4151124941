package log

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	formatter "github.com/antonfisher/nested-logrus-formatter"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	logger *logrus.Logger
	once   sync.Once
)

const RequestIDKey = "request_id"

type Fields = logrus.Fields

// NewLogger returns the process-wide logger. LOG_LEVEL picks the level,
// LOG_FORMAT=json switches to JSON lines and LOG_DIR sets where the
// rotated file goes. APP_ENV=test logs to stderr only.
func NewLogger() *logrus.Logger {
	once.Do(func() {
		logger = logrus.New()

		level, err := logrus.ParseLevel(envOr("LOG_LEVEL", "debug"))
		if err != nil {
			level = logrus.DebugLevel
		}
		logger.SetLevel(level)

		if strings.EqualFold(os.Getenv("LOG_FORMAT"), "json") {
			logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
		} else {
			logger.SetFormatter(&formatter.Formatter{
				NoColors:        os.Getenv("NO_COLOR") != "",
				TimestampFormat: "02 Jan 06 - 15:04:05",
				HideKeys:        false,
				CallerFirst:     true,
				CustomCallerFormatter: func(f *runtime.Frame) string {
					s := strings.Split(f.Function, ".")
					funcName := s[len(s)-1]
					return fmt.Sprintf(" \x1b[%dm[%s:%d][%s()]", 34, path.Base(f.File), f.Line, funcName)
				},
			})
		}

		writers := []io.Writer{os.Stderr}
		if os.Getenv("APP_ENV") != "test" {
			writers = append(writers, &lumberjack.Logger{
				Filename:   filepath.Join(envOr("LOG_DIR", "./storage/logs"), "ivr.log"),
				LocalTime:  true,
				Compress:   true,
				MaxSize:    100,
				MaxAge:     14,
				MaxBackups: 5,
			})
		}

		logger.SetOutput(io.MultiWriter(writers...))
		logger.SetReportCaller(true)
	})

	return logger
}

// TraceID returns the request id carried in fields, or a fresh random id
// when there is none, and stores it under "trace_id".
func TraceID(fields Fields) string {
	traceID := "unknown"
	if reqID, ok := fields[RequestIDKey].(string); ok && reqID != "" && reqID != "unknown" {
		traceID = reqID
	} else if id, err := uuid.NewRandom(); err == nil {
		traceID = id.String()
	}
	fields["trace_id"] = traceID
	return traceID
}

// WithRequestID returns an entry tagged with the request id stored in ctx.
func WithRequestID(l *logrus.Logger, ctx context.Context) *logrus.Entry {
	requestID := "unknown"
	if ctx != nil {
		if id, ok := ctx.Value(RequestIDKey).(string); ok && id != "" {
			requestID = id
		}
	}

	return l.WithField(RequestIDKey, requestID)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
