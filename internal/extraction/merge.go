package extraction

import (
	"ProjectIVR/internal/callflow"
	"ProjectIVR/internal/entity"
	"ProjectIVR/internal/transcript"
	"time"
)

// Merge turns a completed session and its extraction result into the
// durable call record. Values captured during the call win; the transcript
// backfill comes next and the model only fills what is still Unknown.
// Consent fields come from the model alone.
func Merge(s entity.CallSession, r Result, completedAt time.Time) entity.CallRecord {
	full := transcript.Join(s.Turns)

	name := s.Fields.CustomerName
	if name == entity.Unknown || name == "" {
		if v, ok := firstMatch(s.Turns, callflow.BackfillName); ok {
			name = v
		} else {
			name = r.CustomerName
		}
	}

	account := s.Fields.AccountNumber
	if account == entity.Unknown || account == "" {
		if v, ok := firstMatch(s.Turns, callflow.BackfillAccount); ok {
			account = v
		} else {
			account = r.AccountNumber
		}
	}

	status := entity.CallStatusNew
	if s.Stage != entity.StageDone {
		status = entity.CallStatusAbandoned
	}

	return entity.CallRecord{
		CallSid:          s.CallID,
		CallerNumber:     s.CallerID,
		CustomerName:     orUnknown(name),
		AccountNumber:    orUnknown(account),
		IssueType:        orUnknown(s.Fields.IssueType),
		IssueDescription: s.Fields.IssueDescription,
		Priority:         orUnknown(s.Fields.Priority),
		FullTranscript:   full,
		ConsentType:      r.ConsentType,
		ConsentStatus:    r.ConsentStatus,
		CallDate:         r.CallDate,
		RecordingURL:     s.Fields.RecordingURL,
		Verified:         s.Verified,
		Status:           status,
		CreatedAt:        s.CreatedAt,
		CompletedAt:      completedAt,
	}
}

// firstMatch runs a backfill pattern turn by turn so a capture never runs
// into the next thing the caller said.
func firstMatch(turns []entity.Turn, match func(string) (string, bool)) (string, bool) {
	for _, t := range turns {
		if v, ok := match(t.Text); ok {
			return v, true
		}
	}
	return "", false
}

func orUnknown(v string) string {
	if v == "" {
		return entity.Unknown
	}
	return v
}
