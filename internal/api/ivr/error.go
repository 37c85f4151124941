package ivr

import (
	"ProjectIVR/pkg/response"
	"net/http"
)

var (
	ErrCallNotFound     = response.NewError(http.StatusNotFound, "call not found")
	ErrCodeNotFound     = response.NewError(http.StatusUnauthorized, "no one-time code issued for this number")
	ErrCodeInvalid      = response.NewError(http.StatusUnauthorized, "one-time code is invalid")
	ErrCodeExpired      = response.NewError(http.StatusUnauthorized, "one-time code has expired")
	ErrCodeConsumed     = response.NewError(http.StatusUnauthorized, "one-time code was already used")
	ErrCodeDelivery     = response.NewError(http.StatusBadGateway, "failed to deliver one-time code")
	ErrInvalidSignature = response.NewError(http.StatusForbidden, "invalid webhook signature")
	ErrUnknownCaller    = response.NewError(http.StatusBadRequest, "caller number is unknown")
)
