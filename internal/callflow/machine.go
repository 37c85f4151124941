package callflow

import (
	"ProjectIVR/internal/entity"
	"errors"
	"fmt"
	"strings"
)

var ErrStageMismatch = errors.New("input does not answer the current stage")

type Field int

const (
	FieldCustomerName Field = iota
	FieldAccountNumber
	FieldPriority
	FieldIssueType
	FieldIssueDescription
	FieldRecordingURL
)

type Update struct {
	Field Field
	Value string
}

// Input is one webhook payload. Stage names the stage the payload answers.
type Input struct {
	Stage        entity.Stage
	Digits       string
	Speech       string
	RecordingURL string
}

// Text is what the caller said, or pressed when nothing was said.
func (i Input) Text() string {
	if s := strings.TrimSpace(i.Speech); s != "" {
		return s
	}
	return strings.TrimSpace(i.Digits)
}

type Transition struct {
	From      entity.Stage
	Next      entity.Stage
	Response  Response
	Turn      string
	Updates   []Update
	Retry     bool
	Complete  bool
	Abandoned bool
}

// Apply writes the transition into the session. The transcript turn is
// left to the caller.
func (t Transition) Apply(s *entity.CallSession) {
	for _, u := range t.Updates {
		switch u.Field {
		case FieldCustomerName:
			s.Fields.CustomerName = u.Value
		case FieldAccountNumber:
			s.Fields.AccountNumber = u.Value
		case FieldPriority:
			s.Fields.Priority = u.Value
		case FieldIssueType:
			s.Fields.IssueType = u.Value
		case FieldIssueDescription:
			s.Fields.IssueDescription = u.Value
		case FieldRecordingURL:
			s.Fields.RecordingURL = u.Value
		}
	}

	if s.Retries == nil {
		s.Retries = map[entity.Stage]int{}
	}
	if t.Retry {
		s.Retries[t.From]++
	} else if t.Next != t.From {
		delete(s.Retries, t.From)
	}
	s.Stage = t.Next
}

type Policy struct {
	// MaxRetries is how many times account_info re-prompts before it moves
	// on with whatever was matched.
	MaxRetries int
	// MaxNoInput is the redirect count at which a silent caller is hung up on.
	MaxNoInput int
}

func DefaultPolicy() Policy {
	return Policy{MaxRetries: 1, MaxNoInput: 2}
}

type Machine struct {
	prompts Prompts
	policy  Policy
}

func New(prompts Prompts, policy Policy) *Machine {
	if policy.MaxNoInput <= 0 {
		policy.MaxNoInput = DefaultPolicy().MaxNoInput
	}
	if policy.MaxRetries < 0 {
		policy.MaxRetries = 0
	}
	return &Machine{prompts: prompts, policy: policy}
}

func (m *Machine) Prompts() Prompts {
	return m.prompts
}

// Step decides what happens with one webhook payload. It never mutates s.
func (m *Machine) Step(s entity.CallSession, in Input) (Transition, error) {
	if !in.Stage.Valid() {
		return Transition{}, fmt.Errorf("%w: %q", entity.ErrUnknownStage, in.Stage)
	}
	if in.Stage != entity.StageStart && in.Stage != s.Stage {
		return Transition{}, fmt.Errorf("%w: got %s, waiting for %s", ErrStageMismatch, in.Stage, s.Stage)
	}

	switch in.Stage {
	case entity.StageStart:
		return m.start(s)
	case entity.StageMenu:
		return m.menu(in), nil
	case entity.StageAccountInfo:
		return m.accountInfo(s, in), nil
	case entity.StageTechnicalIssue:
		return m.narrative(in, entity.StageTechnicalIssue, entity.StagePriority), nil
	case entity.StageBillingIssue:
		return m.narrative(in, entity.StageBillingIssue, entity.StageBillingAccount), nil
	case entity.StageOtherIssue:
		return m.narrative(in, entity.StageOtherIssue, entity.StageCallerName), nil
	case entity.StageBillingAccount:
		return m.billingAccount(in), nil
	case entity.StageCallerName:
		return m.callerName(in), nil
	case entity.StagePriority:
		return m.priority(in), nil
	case entity.StageRecording:
		return m.recording(in), nil
	case entity.StageDone:
		return Transition{
			From:     entity.StageDone,
			Next:     entity.StageDone,
			Response: SayAndHangup(m.prompts.Goodbye),
			Complete: true,
		}, nil
	default:
		return Transition{}, fmt.Errorf("%w: %q", entity.ErrUnknownStage, in.Stage)
	}
}

// Resume repeats the prompt the session is currently waiting on.
func (m *Machine) Resume(s entity.CallSession) Response {
	if s.Stage == entity.StageStart {
		return m.greeting()
	}
	return m.promptFor(s.Stage, "")
}

func (m *Machine) start(s entity.CallSession) (Transition, error) {
	switch s.Stage {
	case entity.StageStart:
		return Transition{
			From:     entity.StageStart,
			Next:     entity.StageMenu,
			Response: m.greeting(),
		}, nil
	case entity.StageMenu:
		// the menu gather timed out and the provider followed the redirect
		redirects := s.Retries[entity.StageStart] + 1
		if redirects >= m.policy.MaxNoInput {
			return Transition{
				From:      entity.StageStart,
				Next:      entity.StageDone,
				Response:  SayAndHangup(m.prompts.NoInputGoodbye),
				Complete:  true,
				Abandoned: true,
			}, nil
		}
		resp := m.menuPrompt()
		return Transition{
			From:     entity.StageStart,
			Next:     entity.StageMenu,
			Response: resp,
			Retry:    true,
		}, nil
	default:
		return Transition{}, fmt.Errorf("%w: got %s, waiting for %s", ErrStageMismatch, entity.StageStart, s.Stage)
	}
}

func (m *Machine) menu(in Input) Transition {
	next := MenuBranch(in.Digits)
	return Transition{
		From:     entity.StageMenu,
		Next:     next,
		Response: m.promptFor(next, entity.StageMenu),
		Turn:     in.Text(),
		Updates:  []Update{{Field: FieldIssueType, Value: MapIssueType(in.Digits)}},
	}
}

func (m *Machine) accountInfo(s entity.CallSession, in Input) Transition {
	text := in.Text()
	name, nameOK := ExtractName(text)
	account, accountOK := ExtractAccountNumber(text)

	if !nameOK && !accountOK && s.Retries[entity.StageAccountInfo] < m.policy.MaxRetries {
		return Transition{
			From: entity.StageAccountInfo,
			Next: entity.StageAccountInfo,
			Response: Response{Gather: &Gather{
				Input:   InputSpeech,
				Action:  GatherAction(entity.StageAccountInfo),
				Prompt:  m.prompts.AccountInfoRetry,
				OnEmpty: true,
			}},
			Turn:  text,
			Retry: true,
		}
	}

	var updates []Update
	if nameOK {
		updates = append(updates, Update{Field: FieldCustomerName, Value: name})
	}
	if accountOK {
		updates = append(updates, Update{Field: FieldAccountNumber, Value: account})
	}
	return Transition{
		From:     entity.StageAccountInfo,
		Next:     entity.StageTechnicalIssue,
		Response: m.promptFor(entity.StageTechnicalIssue, entity.StageAccountInfo),
		Turn:     text,
		Updates:  updates,
	}
}

func (m *Machine) narrative(in Input, from, next entity.Stage) Transition {
	text := in.Text()
	t := Transition{
		From:     from,
		Next:     next,
		Response: m.promptFor(next, from),
		Turn:     text,
	}
	if text != "" {
		t.Updates = []Update{{Field: FieldIssueDescription, Value: text}}
	}
	return t
}

func (m *Machine) billingAccount(in Input) Transition {
	text := in.Text()
	t := Transition{
		From:     entity.StageBillingAccount,
		Next:     entity.StagePriority,
		Response: m.promptFor(entity.StagePriority, entity.StageBillingAccount),
		Turn:     text,
	}
	if account, ok := ExtractBillingAccount(text); ok {
		t.Updates = []Update{{Field: FieldAccountNumber, Value: account}}
	}
	return t
}

func (m *Machine) callerName(in Input) Transition {
	name := strings.TrimSpace(in.Speech)
	t := Transition{
		From:     entity.StageCallerName,
		Next:     entity.StagePriority,
		Response: m.promptFor(entity.StagePriority, entity.StageCallerName),
		Turn:     in.Text(),
	}
	if name != "" {
		t.Updates = []Update{{Field: FieldCustomerName, Value: name}}
	}
	return t
}

func (m *Machine) priority(in Input) Transition {
	return Transition{
		From:     entity.StagePriority,
		Next:     entity.StageRecording,
		Response: m.promptFor(entity.StageRecording, entity.StagePriority),
		Turn:     in.Text(),
		Updates:  []Update{{Field: FieldPriority, Value: MapPriority(in.Digits)}},
	}
}

func (m *Machine) recording(in Input) Transition {
	t := Transition{
		From:     entity.StageRecording,
		Next:     entity.StageDone,
		Response: SayAndHangup(m.prompts.Goodbye),
		Complete: true,
	}
	if url := strings.TrimSpace(in.RecordingURL); url != "" {
		t.Updates = []Update{{Field: FieldRecordingURL, Value: url}}
	}
	return t
}

func (m *Machine) greeting() Response {
	resp := m.menuPrompt()
	resp.Say = []string{m.prompts.Greeting}
	return resp
}

func (m *Machine) menuPrompt() Response {
	return Response{
		Gather: &Gather{
			Input:     InputDTMF,
			NumDigits: 1,
			Action:    ActionMenu,
			Prompt:    m.prompts.Menu,
		},
		Redirect: ActionIncoming,
	}
}

func (m *Machine) speechGather(stage entity.Stage, prompt string) Response {
	return Response{Gather: &Gather{
		Input:   InputSpeech,
		Action:  GatherAction(stage),
		Prompt:  prompt,
		OnEmpty: true,
	}}
}

func (m *Machine) promptFor(stage, from entity.Stage) Response {
	switch stage {
	case entity.StageStart:
		return m.greeting()
	case entity.StageMenu:
		return m.menuPrompt()
	case entity.StageAccountInfo:
		return m.speechGather(stage, m.prompts.AccountInfo)
	case entity.StageTechnicalIssue:
		if from == entity.StageAccountInfo {
			return m.speechGather(stage, m.prompts.AccountIssue)
		}
		return m.speechGather(stage, m.prompts.TechnicalIssue)
	case entity.StageBillingIssue:
		return m.speechGather(stage, m.prompts.BillingIssue)
	case entity.StageOtherIssue:
		return m.speechGather(stage, m.prompts.OtherIssue)
	case entity.StageBillingAccount:
		return m.speechGather(stage, m.prompts.BillingAccount)
	case entity.StageCallerName:
		return m.speechGather(stage, m.prompts.CallerName)
	case entity.StagePriority:
		prompt := m.prompts.Priority
		switch from {
		case entity.StageBillingAccount:
			prompt = m.prompts.BillingPriority
		case entity.StageCallerName:
			prompt = m.prompts.NamePriority
		}
		return Response{Gather: &Gather{
			Input:     InputDTMF,
			NumDigits: 1,
			Action:    GatherAction(entity.StagePriority),
			Prompt:    prompt,
			OnEmpty:   true,
		}}
	case entity.StageRecording:
		return Response{
			Say:    []string{m.prompts.Closing},
			Record: &Record{MaxLength: RecordingMaxLength, Action: ActionRecording},
		}
	case entity.StageDone:
		return SayAndHangup(m.prompts.Goodbye)
	default:
		return SayAndHangup(m.prompts.TechnicalProblem)
	}
}
