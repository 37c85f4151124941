package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	SessionBackendMemory = "memory"
	SessionBackendRedis  = "redis"

	LLMProviderOpenAI = "openai"
	LLMProviderGemini = "gemini"
	LLMProviderNone   = "none"

	OTPChannelSMS      = "sms"
	OTPChannelWhatsapp = "whatsapp"
	OTPChannelLog      = "log"
)

// Settings is everything the server reads from the environment.
type Settings struct {
	Port      string
	PublicURL string

	SessionBackend  string
	SessionTTL      time.Duration
	SessionTimeout  time.Duration
	JanitorInterval time.Duration

	MaxRetries          int
	MaxNoInput          int
	RequireVerification bool
	UnknownCaller       string
	Language            string
	FinalizeTimeout     time.Duration

	LLMProvider          string
	ExtractionTimeout    time.Duration
	TranscribeRecordings bool

	OTPChannel string

	ExportDir       string
	ExportSchedule  string
	CleanupSchedule string
	ExportKeepDays  int
	ExportS3        bool
	ExportS3Prefix  string
	ExportNotify    []string

	RateLimit float64
	RateBurst int

	MetricsNamespace string
	LiveFeed         bool
}

// LoadSettings reads Settings from the environment, applying defaults for
// anything unset.
func LoadSettings() (Settings, error) {
	s := Settings{
		Port:             envOrDefault("APP_PORT", "3000"),
		PublicURL:        strings.TrimRight(os.Getenv("PUBLIC_URL"), "/"),
		SessionBackend:   strings.ToLower(envOrDefault("SESSION_BACKEND", SessionBackendMemory)),
		UnknownCaller:    envOrDefault("IVR_UNKNOWN_CALLER", "Unknown"),
		Language:         envOrDefault("IVR_LANGUAGE", "en-US"),
		LLMProvider:      strings.ToLower(envOrDefault("LLM_PROVIDER", LLMProviderGemini)),
		OTPChannel:       strings.ToLower(envOrDefault("OTP_CHANNEL", OTPChannelLog)),
		ExportDir:        envOrDefault("EXPORT_DIR", "./storage/exports"),
		ExportSchedule:   strings.TrimSpace(os.Getenv("EXPORT_SCHEDULE")),
		CleanupSchedule:  envOrDefault("EXPORT_CLEANUP_SCHEDULE", "@daily"),
		ExportS3Prefix:   envOrDefault("EXPORT_S3_PREFIX", "consent-exports"),
		ExportNotify:     listFromEnv("EXPORT_NOTIFY_EMAILS"),
		MetricsNamespace: envOrDefault("METRICS_NAMESPACE", "ivr"),
	}

	var err error
	if s.SessionTTL, err = durationFromEnv("IVR_SESSION_TTL", 2*time.Hour); err != nil {
		return Settings{}, err
	}
	if s.SessionTimeout, err = durationFromEnv("IVR_SESSION_TIMEOUT", 30*time.Minute); err != nil {
		return Settings{}, err
	}
	if s.JanitorInterval, err = durationFromEnv("IVR_JANITOR_INTERVAL", time.Minute); err != nil {
		return Settings{}, err
	}
	if s.FinalizeTimeout, err = durationFromEnv("IVR_FINALIZE_TIMEOUT", time.Minute); err != nil {
		return Settings{}, err
	}
	if s.ExtractionTimeout, err = durationFromEnv("EXTRACTION_TIMEOUT", 20*time.Second); err != nil {
		return Settings{}, err
	}
	if s.MaxRetries, err = intFromEnv("IVR_MAX_RETRIES", 1); err != nil {
		return Settings{}, err
	}
	if s.MaxNoInput, err = intFromEnv("IVR_MAX_NO_INPUT", 2); err != nil {
		return Settings{}, err
	}
	if s.ExportKeepDays, err = intFromEnv("EXPORT_KEEP_DAYS", 7); err != nil {
		return Settings{}, err
	}
	if s.RateBurst, err = intFromEnv("RATE_LIMIT_BURST", 100); err != nil {
		return Settings{}, err
	}
	if s.RateLimit, err = floatFromEnv("RATE_LIMIT_RPS", 50); err != nil {
		return Settings{}, err
	}
	if s.RequireVerification, err = boolFromEnv("IVR_REQUIRE_VERIFICATION", false); err != nil {
		return Settings{}, err
	}
	if s.TranscribeRecordings, err = boolFromEnv("WHISPER_ENABLED", false); err != nil {
		return Settings{}, err
	}
	if s.ExportS3, err = boolFromEnv("EXPORT_S3_ENABLED", false); err != nil {
		return Settings{}, err
	}
	if s.LiveFeed, err = boolFromEnv("LIVE_FEED_ENABLED", true); err != nil {
		return Settings{}, err
	}

	switch s.SessionBackend {
	case SessionBackendMemory, SessionBackendRedis:
	default:
		return Settings{}, fmt.Errorf("SESSION_BACKEND must be %q or %q", SessionBackendMemory, SessionBackendRedis)
	}
	switch s.LLMProvider {
	case LLMProviderOpenAI, LLMProviderGemini, LLMProviderNone:
	default:
		return Settings{}, fmt.Errorf("LLM_PROVIDER must be one of openai, gemini, none")
	}
	switch s.OTPChannel {
	case OTPChannelSMS, OTPChannelWhatsapp, OTPChannelLog:
	default:
		return Settings{}, fmt.Errorf("OTP_CHANNEL must be one of sms, whatsapp, log")
	}
	if s.MaxRetries < 0 {
		return Settings{}, fmt.Errorf("IVR_MAX_RETRIES must be >= 0")
	}
	if s.MaxNoInput <= 0 {
		return Settings{}, fmt.Errorf("IVR_MAX_NO_INPUT must be positive")
	}
	if s.SessionTimeout <= 0 {
		return Settings{}, fmt.Errorf("IVR_SESSION_TIMEOUT must be positive")
	}
	if s.RateLimit <= 0 || s.RateBurst <= 0 {
		return Settings{}, fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}

	return s, nil
}

func envOrDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func floatFromEnv(key string, fallback float64) (float64, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return f, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}

func listFromEnv(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
