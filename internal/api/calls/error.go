package calls

import (
	"ProjectIVR/pkg/response"
	"net/http"
)

var (
	ErrCallRecordNotFound  = response.NewError(http.StatusNotFound, "call record not found")
	ErrStatusRequired      = response.NewError(http.StatusBadRequest, "status is required")
	ErrCallAlreadyRecorded = response.NewError(http.StatusConflict, "call already recorded")
)

var ErrExportDisabled = response.NewError(http.StatusServiceUnavailable, "consent export is not configured")
