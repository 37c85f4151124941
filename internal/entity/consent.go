package entity

import (
	"strings"
	"time"
)

const ConsentOptIn = "opt-in"

type ConsentRecord struct {
	AccountNumber string    `db:"account_number"`
	PhoneNumber   string    `db:"phone_number"`
	CustomerName  string    `db:"customer_name"`
	ConsentType   string    `db:"consent_type"`
	ConsentStatus string    `db:"consent_status"`
	CapturedAt    time.Time `db:"captured_at"`
}

// Exportable reports whether the record may be handed to the dialer.
func (c ConsentRecord) Exportable() bool {
	if isUnknown(c.AccountNumber) || isUnknown(c.PhoneNumber) {
		return false
	}
	return strings.TrimSpace(c.ConsentType) != "" && strings.TrimSpace(c.ConsentStatus) != ""
}

func (c ConsentRecord) Flag() string {
	if strings.EqualFold(strings.TrimSpace(c.ConsentStatus), ConsentOptIn) {
		return "1"
	}
	return "0"
}

func (c ConsentRecord) DisplayName() string {
	if isUnknown(c.CustomerName) {
		return ""
	}
	return c.CustomerName
}

func isUnknown(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || v == Unknown
}

// KnownOrEmpty maps the sentinel to an empty string.
func KnownOrEmpty(v string) string {
	if isUnknown(v) {
		return ""
	}
	return v
}

type OneTimeCode struct {
	ID          string
	PhoneNumber string
	CodeHash    string
	IssuedAt    time.Time
	Consumed    bool
	ConsumedAt  time.Time
}

const OneTimeCodeTTL = 5 * time.Minute

func (o OneTimeCode) Expired(now time.Time) bool {
	return now.Sub(o.IssuedAt) > OneTimeCodeTTL
}
