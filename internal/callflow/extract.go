package callflow

import (
	"ProjectIVR/internal/entity"
	"regexp"
	"strings"
)

var (
	namePattern           = regexp.MustCompile(`^[A-Za-z .\s]+`)
	accountPattern        = regexp.MustCompile(`\b\d{6,16}\b`)
	billingAccountPattern = regexp.MustCompile(`\d{4,}`)
	backfillNamePattern   = regexp.MustCompile(`(?i)my name is ([\w\s]+)`)
	backfillAcctPattern   = regexp.MustCompile(`(?i)account (?:number|#)?\s*(?:is|:)?\s*(\d{4,})`)
)

// ExtractName returns the leading run of letters, spaces and periods,
// stopping at the first digit or any other character.
func ExtractName(text string) (string, bool) {
	m := namePattern.FindString(text)
	name := strings.TrimSpace(m)
	if name == "" {
		return entity.Unknown, false
	}
	return name, true
}

// ExtractAccountNumber returns the first standalone run of 6 to 16 digits.
func ExtractAccountNumber(text string) (string, bool) {
	m := accountPattern.FindString(text)
	if m == "" {
		return entity.Unknown, false
	}
	return m, true
}

// ExtractBillingAccount returns the first run of at least 4 digits.
func ExtractBillingAccount(text string) (string, bool) {
	m := billingAccountPattern.FindString(text)
	if m == "" {
		return entity.Unknown, false
	}
	return m, true
}

func BackfillName(transcript string) (string, bool) {
	m := backfillNamePattern.FindStringSubmatch(transcript)
	if m == nil {
		return "", false
	}
	name := strings.TrimSpace(m[1])
	return name, name != ""
}

func BackfillAccount(transcript string) (string, bool) {
	m := backfillAcctPattern.FindStringSubmatch(transcript)
	if m == nil {
		return "", false
	}
	return m[1], true
}

const (
	PriorityUrgent = "Urgent"
	PriorityMedium = "Medium"
	PriorityLow    = "Low"
)

func MapPriority(digit string) string {
	switch strings.TrimSpace(digit) {
	case "1":
		return PriorityUrgent
	case "2":
		return PriorityMedium
	default:
		return PriorityLow
	}
}

const (
	IssueAccount   = "Account Inquiry"
	IssueTechnical = "Technical Support"
	IssueBilling   = "Billing Question"
	IssueOther     = "Other"
)

func MapIssueType(digit string) string {
	switch strings.TrimSpace(digit) {
	case "1":
		return IssueAccount
	case "2":
		return IssueTechnical
	case "3":
		return IssueBilling
	case "4":
		return IssueOther
	default:
		return entity.Unknown
	}
}

// MenuBranch is total over the digit domain: anything that is not 1-3
// routes to other_issue.
func MenuBranch(digit string) entity.Stage {
	switch strings.TrimSpace(digit) {
	case "1":
		return entity.StageAccountInfo
	case "2":
		return entity.StageTechnicalIssue
	case "3":
		return entity.StageBillingIssue
	default:
		return entity.StageOtherIssue
	}
}
