package config

import (
	"strings"
	"testing"
	"time"
)

var settingsEnv = []string{
	"APP_PORT", "PUBLIC_URL", "SESSION_BACKEND", "IVR_SESSION_TTL", "IVR_SESSION_TIMEOUT",
	"IVR_JANITOR_INTERVAL", "IVR_FINALIZE_TIMEOUT", "IVR_MAX_RETRIES", "IVR_MAX_NO_INPUT",
	"IVR_REQUIRE_VERIFICATION", "IVR_UNKNOWN_CALLER", "IVR_LANGUAGE", "LLM_PROVIDER",
	"EXTRACTION_TIMEOUT", "WHISPER_ENABLED", "OTP_CHANNEL", "EXPORT_DIR", "EXPORT_SCHEDULE",
	"EXPORT_CLEANUP_SCHEDULE", "EXPORT_KEEP_DAYS", "EXPORT_S3_ENABLED", "EXPORT_S3_PREFIX",
	"EXPORT_NOTIFY_EMAILS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "METRICS_NAMESPACE",
	"LIVE_FEED_ENABLED",
}

func clearSettingsEnv(t *testing.T) {
	t.Helper()
	for _, k := range settingsEnv {
		t.Setenv(k, "")
	}
}

func TestLoadSettingsDefaults(t *testing.T) {
	clearSettingsEnv(t)

	s, err := LoadSettings()
	if err != nil {
		t.Fatalf("LoadSettings() error = %v", err)
	}
	if s.Port != "3000" || s.SessionBackend != SessionBackendMemory {
		t.Fatalf("port = %q, backend = %q", s.Port, s.SessionBackend)
	}
	if s.SessionTimeout != 30*time.Minute || s.MaxRetries != 1 || s.MaxNoInput != 2 {
		t.Fatalf("timeout = %v, retries = %d, no-input = %d", s.SessionTimeout, s.MaxRetries, s.MaxNoInput)
	}
	if s.UnknownCaller != "Unknown" || s.ExportKeepDays != 7 || !s.LiveFeed {
		t.Fatalf("unexpected defaults: %+v", s)
	}
	if s.ExportSchedule != "" || s.CleanupSchedule != "@daily" {
		t.Fatalf("schedules = %q, %q", s.ExportSchedule, s.CleanupSchedule)
	}
}

func TestLoadSettingsOverrides(t *testing.T) {
	clearSettingsEnv(t)
	t.Setenv("PUBLIC_URL", "https://ivr.example.com/")
	t.Setenv("SESSION_BACKEND", "Redis")
	t.Setenv("IVR_SESSION_TIMEOUT", "10m")
	t.Setenv("IVR_REQUIRE_VERIFICATION", "yes")
	t.Setenv("EXPORT_NOTIFY_EMAILS", "ops@example.com, ,dialer@example.com")
	t.Setenv("RATE_LIMIT_RPS", "2.5")

	s, err := LoadSettings()
	if err != nil {
		t.Fatalf("LoadSettings() error = %v", err)
	}
	if s.PublicURL != "https://ivr.example.com" {
		t.Fatalf("PublicURL = %q", s.PublicURL)
	}
	if s.SessionBackend != SessionBackendRedis || s.SessionTimeout != 10*time.Minute {
		t.Fatalf("backend = %q, timeout = %v", s.SessionBackend, s.SessionTimeout)
	}
	if !s.RequireVerification || s.RateLimit != 2.5 {
		t.Fatalf("verification = %v, rate = %v", s.RequireVerification, s.RateLimit)
	}
	if got := strings.Join(s.ExportNotify, ";"); got != "ops@example.com;dialer@example.com" {
		t.Fatalf("ExportNotify = %q", got)
	}
}

func TestLoadSettingsRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"SESSION_BACKEND", "etcd"},
		{"LLM_PROVIDER", "llama"},
		{"OTP_CHANNEL", "pigeon"},
		{"IVR_SESSION_TIMEOUT", "soon"},
		{"IVR_MAX_NO_INPUT", "0"},
		{"IVR_MAX_RETRIES", "-1"},
		{"IVR_REQUIRE_VERIFICATION", "maybe"},
		{"RATE_LIMIT_BURST", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			clearSettingsEnv(t)
			t.Setenv(tt.key, tt.value)
			if _, err := LoadSettings(); err == nil {
				t.Fatalf("LoadSettings() with %s=%q succeeded", tt.key, tt.value)
			}
		})
	}
}
