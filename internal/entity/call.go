package entity

import (
	"errors"
	"fmt"
	"time"
)

const Unknown = "Unknown"

var ErrUnknownStage = errors.New("unknown stage")

type Stage string

const (
	StageStart          Stage = "start"
	StageMenu           Stage = "menu"
	StageAccountInfo    Stage = "account_info"
	StageTechnicalIssue Stage = "technical_issue"
	StageBillingIssue   Stage = "billing_issue"
	StageBillingAccount Stage = "billing_account"
	StageOtherIssue     Stage = "other_issue"
	StageCallerName     Stage = "caller_name"
	StagePriority       Stage = "priority"
	StageRecording      Stage = "recording"
	StageDone           Stage = "done"
)

var stages = map[Stage]struct{}{
	StageStart:          {},
	StageMenu:           {},
	StageAccountInfo:    {},
	StageTechnicalIssue: {},
	StageBillingIssue:   {},
	StageBillingAccount: {},
	StageOtherIssue:     {},
	StageCallerName:     {},
	StagePriority:       {},
	StageRecording:      {},
	StageDone:           {},
}

func ParseStage(s string) (Stage, error) {
	stage := Stage(s)
	if _, ok := stages[stage]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownStage, s)
	}
	return stage, nil
}

func (s Stage) Valid() bool {
	_, ok := stages[s]
	return ok
}

func (s Stage) String() string {
	return string(s)
}

type SessionStatus string

const (
	SessionInProgress SessionStatus = "in_progress"
	SessionCompleted  SessionStatus = "completed"
)

// Fields are the structured values collected while the call is live.
// Every value starts as Unknown and is only overwritten by a match.
type Fields struct {
	CustomerName     string `json:"customer_name"`
	AccountNumber    string `json:"account_number"`
	Priority         string `json:"priority"`
	IssueType        string `json:"issue_type"`
	IssueDescription string `json:"issue_description"`
	RecordingURL     string `json:"recording_url"`
}

func NewFields() Fields {
	return Fields{
		CustomerName:  Unknown,
		AccountNumber: Unknown,
		Priority:      Unknown,
		IssueType:     Unknown,
	}
}

type Turn struct {
	Stage string    `json:"stage"`
	Text  string    `json:"text"`
	At    time.Time `json:"at"`
}

type CallSession struct {
	CallID    string        `json:"call_id"`
	CallerID  string        `json:"caller_id"`
	Stage     Stage         `json:"stage"`
	Fields    Fields        `json:"fields"`
	Turns     []Turn        `json:"turns"`
	Retries   map[Stage]int `json:"retries"`
	Verified  bool          `json:"verified"`
	Status    SessionStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

func NewCallSession(callID, callerID string, now time.Time) CallSession {
	return CallSession{
		CallID:    callID,
		CallerID:  callerID,
		Stage:     StageStart,
		Fields:    NewFields(),
		Turns:     []Turn{},
		Retries:   map[Stage]int{},
		Status:    SessionInProgress,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a deep copy so callers never share the turn slice or
// retry map with the store.
func (s CallSession) Clone() CallSession {
	out := s
	out.Turns = make([]Turn, len(s.Turns))
	copy(out.Turns, s.Turns)
	out.Retries = make(map[Stage]int, len(s.Retries))
	for k, v := range s.Retries {
		out.Retries[k] = v
	}
	return out
}

func (s *CallSession) AppendTurn(stage, text string, at time.Time) {
	s.Turns = append(s.Turns, Turn{Stage: stage, Text: text, At: at})
}

type CallStatus string

const (
	CallStatusNew        CallStatus = "new"
	CallStatusInProgress CallStatus = "in_progress"
	CallStatusResolved   CallStatus = "resolved"
	CallStatusAbandoned  CallStatus = "abandoned"
)

// CallRecord is the durable row written once when a call completes.
type CallRecord struct {
	ID               string
	CallSid          string
	CallerNumber     string
	CustomerName     string
	AccountNumber    string
	IssueType        string
	IssueDescription string
	Priority         string
	FullTranscript   string
	ConsentType      string
	ConsentStatus    string
	CallDate         string
	RecordingURL     string
	Verified         bool
	Status           CallStatus
	CreatedAt        time.Time
	CompletedAt      time.Time
}

type CallStats struct {
	Total      int            `json:"total"`
	ByPriority map[string]int `json:"by_priority"`
	ByIssue    map[string]int `json:"by_issue_type"`
}
