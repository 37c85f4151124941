package callflow

// Prompts holds every sentence the IVR speaks. Deployments override the
// wording through configuration; the defaults below are the stock script.
type Prompts struct {
	Greeting          string
	Menu              string
	AccountInfo       string
	AccountInfoRetry  string
	AccountIssue      string
	TechnicalIssue    string
	BillingIssue      string
	OtherIssue        string
	BillingAccount    string
	CallerName        string
	Priority          string
	BillingPriority   string
	NamePriority      string
	Closing           string
	Goodbye           string
	NoInputGoodbye    string
	TechnicalProblem  string
	VerifyCode        string
	VerifyCodeSent    string
	VerifyCodeInvalid string
	VerifyCodeOK      string
}

func DefaultPrompts() Prompts {
	return Prompts{
		Greeting:          "Thank you for calling customer support. This call may be recorded for quality assurance purposes.",
		Menu:              "For account inquiries, press 1. For technical support, press 2. For billing questions, press 3. For all other inquiries, press 4.",
		AccountInfo:       "Please say your full name followed by your account number.",
		AccountInfoRetry:  "Sorry, we did not catch that. Please say your full name followed by your account number.",
		AccountIssue:      "Thank you. Please describe your account-related issue.",
		TechnicalIssue:    "Please describe your technical issue in detail.",
		BillingIssue:      "Please describe your billing question or concern.",
		OtherIssue:        "Please describe how we can assist you today.",
		BillingAccount:    "Thank you for describing your billing issue. Please provide your account number so we can locate your billing information.",
		CallerName:        "Thank you for describing your issue. Please tell us your full name.",
		Priority:          "Thank you for providing that information. On a scale of 1 to 3, with 1 being urgent and 3 being non-urgent, how would you rate the priority of this issue?",
		BillingPriority:   "Thank you. On a scale of 1 to 3, with 1 being urgent and 3 being non-urgent, how would you rate the priority of this billing issue?",
		NamePriority:      "Thank you. On a scale of 1 to 3, with 1 being urgent and 3 being non-urgent, how would you rate the priority of your issue?",
		Closing:           "Thank you for providing that information. A representative will assist you shortly.",
		Goodbye:           "Thank you for calling. Your information has been recorded. Goodbye.",
		NoInputGoodbye:    "We did not receive any input. Please call again later. Goodbye.",
		TechnicalProblem:  "We're sorry, a technical issue occurred. Please try your call again later. Goodbye.",
		VerifyCode:        "Please enter the six digit code we just sent to your phone.",
		VerifyCodeSent:    "A verification code has been sent to your phone.",
		VerifyCodeInvalid: "That code is not valid.",
		VerifyCodeOK:      "Thank you, your identity has been verified.",
	}
}

// GatherOptions are passed through to the telephony provider untouched.
type GatherOptions struct {
	Language      string
	SpeechModel   string
	Timeout       int
	SpeechTimeout string
	FinishOnKey   string
}

func DefaultGatherOptions() GatherOptions {
	return GatherOptions{
		Language:      "en-US",
		SpeechModel:   "phone_call",
		Timeout:       5,
		SpeechTimeout: "auto",
		FinishOnKey:   "#",
	}
}
