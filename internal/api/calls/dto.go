package calls

import (
	"ProjectIVR/internal/entity"
	"time"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type CallResponse struct {
	ID               string     `json:"id"`
	CallSid          string     `json:"call_sid"`
	CallerNumber     string     `json:"caller_number"`
	CustomerName     string     `json:"customer_name"`
	AccountNumber    string     `json:"account_number"`
	IssueType        string     `json:"issue_type"`
	IssueDescription string     `json:"issue_description,omitempty"`
	Priority         string     `json:"priority"`
	FullTranscript   string     `json:"full_transcript"`
	ConsentType      string     `json:"consent_type,omitempty"`
	ConsentStatus    string     `json:"consent_status,omitempty"`
	CallDate         string     `json:"call_date,omitempty"`
	RecordingURL     string     `json:"recording_url,omitempty"`
	Verified         bool       `json:"verified"`
	Status           string     `json:"status"`
	CreatedAt        time.Time  `json:"created_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}

type ListCallsQuery struct {
	Page  int `query:"page" validate:"omitempty,min=1"`
	Limit int `query:"limit" validate:"omitempty,min=1,max=100"`
}

type ListCallsResponse struct {
	Calls []CallResponse `json:"calls"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
	Total int            `json:"total"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,max=32"`
}

type UpdateStatusResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type ExportResponse struct {
	Path    string `json:"path"`
	Records int    `json:"records"`
}

func NewCallResponse(c entity.CallRecord) CallResponse {
	res := CallResponse{
		ID:               c.ID,
		CallSid:          c.CallSid,
		CallerNumber:     c.CallerNumber,
		CustomerName:     c.CustomerName,
		AccountNumber:    c.AccountNumber,
		IssueType:        c.IssueType,
		IssueDescription: c.IssueDescription,
		Priority:         c.Priority,
		FullTranscript:   c.FullTranscript,
		ConsentType:      c.ConsentType,
		ConsentStatus:    c.ConsentStatus,
		CallDate:         c.CallDate,
		RecordingURL:     c.RecordingURL,
		Verified:         c.Verified,
		Status:           string(c.Status),
		CreatedAt:        c.CreatedAt,
	}
	if !c.CompletedAt.IsZero() {
		completed := c.CompletedAt
		res.CompletedAt = &completed
	}
	return res
}
