package config

import (
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
)

func TestNewValidatorUsesWireNames(t *testing.T) {
	type payload struct {
		PhoneNumber string `json:"phone_number" validate:"required,e164"`
		CallSid     string `form:"CallSid" validate:"required"`
	}

	err := NewValidator().Struct(payload{PhoneNumber: "12345"})
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("Struct() error = %v, want ValidationErrors", err)
	}

	got := map[string]string{}
	for _, fe := range verrs {
		got[fe.Field()] = fe.Tag()
	}
	if got["phone_number"] != "e164" || got["CallSid"] != "required" {
		t.Fatalf("field errors = %v", got)
	}
}
