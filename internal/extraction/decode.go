package extraction

import (
	"errors"
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var (
	ErrEmptyPayload  = errors.New("empty extraction payload")
	ErrInvalidJSON   = errors.New("extraction payload is not a JSON object")
	ErrMissingFields = errors.New("extraction payload is missing fields")
)

const fence = "```"

// StripFence trims the payload and removes exactly one leading fence marker
// (with its optional language tag) and one trailing fence marker.
func StripFence(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, fence) {
		s = s[len(fence):]
		if i := strings.IndexByte(s, '\n'); i >= 0 {
			if tag := strings.TrimSpace(s[:i]); tag == "" || isLanguageTag(tag) {
				s = s[i+1:]
			}
		} else if tag := leadingTag(s); tag != "" {
			s = s[len(tag):]
		}
	}
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, fence) {
		s = s[:len(s)-len(fence)]
	}
	return strings.TrimSpace(s)
}

func isLanguageTag(tag string) bool {
	for _, r := range tag {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' || r == '_') {
			return false
		}
	}
	return true
}

// leadingTag handles single-line payloads such as "```json{...}```".
func leadingTag(s string) string {
	i := 0
	for i < len(s) && isLanguageTag(s[i:i+1]) {
		i++
	}
	return s[:i]
}

type payload struct {
	CustomerName  *string `json:"customer_name"`
	AccountNumber *string `json:"account_number"`
	ConsentType   *string `json:"consent_type"`
	ConsentStatus *string `json:"consent_status"`
	CallDate      *string `json:"call_date"`
}

// Decode parses a model response into a Result. Every one of the five keys
// must be present with a string value.
func Decode(raw string) (Result, error) {
	body := StripFence(raw)
	if body == "" {
		return Result{}, ErrEmptyPayload
	}
	if !strings.HasPrefix(body, "{") {
		return Result{}, ErrInvalidJSON
	}

	var p payload
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.UnmarshalFromString(body, &p); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}

	var missing []string
	check := func(name string, v *string) string {
		if v == nil {
			missing = append(missing, name)
			return ""
		}
		return normalize(*v)
	}
	r := Result{
		CustomerName:  check("customer_name", p.CustomerName),
		AccountNumber: check("account_number", p.AccountNumber),
		ConsentType:   check("consent_type", p.ConsentType),
		ConsentStatus: check("consent_status", p.ConsentStatus),
		CallDate:      check("call_date", p.CallDate),
	}
	if len(missing) > 0 {
		return Result{}, fmt.Errorf("%w: %s", ErrMissingFields, strings.Join(missing, ", "))
	}
	return r, nil
}
