package extraction

import (
	"ProjectIVR/internal/entity"
	"testing"
	"time"
)

func TestMergePrefersCapturedValues(t *testing.T) {
	s := entity.NewCallSession("CA1", "+15550001", fixedNow.Add(-5*time.Minute))
	s.Stage = entity.StageDone
	s.Fields.CustomerName = "John Smith"
	s.Fields.AccountNumber = "1234567890"
	s.Fields.IssueType = "Technical Support"
	s.Fields.Priority = "Urgent"
	s.AppendTurn("account_info", "John Smith 1234567890", fixedNow)

	r := Result{
		CustomerName:  "Johnny",
		AccountNumber: "999999",
		ConsentType:   "email",
		ConsentStatus: "Opt-In",
		CallDate:      "2024-06-01",
	}
	rec := Merge(s, r, fixedNow)

	if rec.CustomerName != "John Smith" || rec.AccountNumber != "1234567890" {
		t.Fatalf("Merge() = %+v", rec)
	}
	if rec.ConsentType != "email" || rec.ConsentStatus != "Opt-In" || rec.CallDate != "2024-06-01" {
		t.Fatalf("consent fields = %+v", rec)
	}
	if rec.Status != entity.CallStatusNew || rec.CallSid != "CA1" || rec.CallerNumber != "+15550001" {
		t.Fatalf("record identity = %+v", rec)
	}
	if rec.FullTranscript != "John Smith 1234567890" {
		t.Fatalf("FullTranscript = %q", rec.FullTranscript)
	}
}

func TestMergeBackfillsBeforeModel(t *testing.T) {
	s := entity.NewCallSession("CA1", "+15550001", fixedNow)
	s.Stage = entity.StageDone
	s.AppendTurn("other_issue", "hello my name is Grace Hopper", fixedNow)
	s.AppendTurn("recording", "my account number is 55667788", fixedNow)

	rec := Merge(s, Result{CustomerName: "G", AccountNumber: "1", CallDate: "d"}, fixedNow)
	if rec.CustomerName != "Grace Hopper" {
		t.Fatalf("CustomerName = %q", rec.CustomerName)
	}
	if rec.AccountNumber != "55667788" {
		t.Fatalf("AccountNumber = %q", rec.AccountNumber)
	}
}

func TestMergeUsesModelWhenNothingElse(t *testing.T) {
	s := entity.NewCallSession("CA1", "+15550001", fixedNow)
	s.Stage = entity.StagePriority

	rec := Merge(s, Result{CustomerName: "Alan", AccountNumber: "7777", CallDate: "d"}, fixedNow)
	if rec.CustomerName != "Alan" || rec.AccountNumber != "7777" {
		t.Fatalf("Merge() = %+v", rec)
	}
	if rec.Status != entity.CallStatusAbandoned {
		t.Fatalf("Status = %q, want abandoned for a call that never reached done", rec.Status)
	}
}

func TestMergeBackfillStaysWithinTurn(t *testing.T) {
	s := entity.NewCallSession("CA1", "+15550001", fixedNow)
	s.Stage = entity.StageDone
	s.AppendTurn("technical_issue", "the router keeps rebooting", fixedNow)
	s.AppendTurn("recording", "my name is Ada Lovelace", fixedNow)
	s.AppendTurn("recording", "thanks bye", fixedNow)

	rec := Merge(s, Result{CallDate: "d"}, fixedNow)
	if rec.CustomerName != "Ada Lovelace" {
		t.Fatalf("CustomerName = %q, want Ada Lovelace", rec.CustomerName)
	}
	if rec.AccountNumber != entity.Unknown {
		t.Fatalf("AccountNumber = %q, want Unknown", rec.AccountNumber)
	}
}
