package callflow

import "ProjectIVR/internal/entity"

// Webhook actions the voice response points back at. Gather actions for a
// stage are "gather/<stage>".
const (
	ActionIncoming  = "incoming"
	ActionMenu      = "menu"
	ActionRecording = "recording"
	ActionVerify    = "verify"
)

const (
	InputDTMF   = "dtmf"
	InputSpeech = "speech"
)

const RecordingMaxLength = 300

func GatherAction(stage entity.Stage) string {
	return "gather/" + stage.String()
}

type Gather struct {
	Input     string
	NumDigits int
	Action    string
	Prompt    string
	// OnEmpty makes the provider call Action even when nothing was said.
	OnEmpty bool
}

type Record struct {
	MaxLength int
	Action    string
}

// Response describes the next voice document in render order: spoken
// lines, a gather or a record, a redirect, then an optional hangup.
type Response struct {
	Say      []string
	Gather   *Gather
	Record   *Record
	Redirect string
	Hangup   bool
}

func Say(lines ...string) Response {
	return Response{Say: lines}
}

func SayAndHangup(lines ...string) Response {
	return Response{Say: lines, Hangup: true}
}
