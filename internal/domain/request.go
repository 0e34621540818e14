package domain

type RequestType string

const (
	RequestLaunch       RequestType = "LaunchRequest"
	RequestIntent       RequestType = "IntentRequest"
	RequestSessionEnded RequestType = "SessionEndedRequest"
)

// VoiceRequest is a decoded voice-assistant request: the intent name and the
// raw slot values keyed by slot name.
type VoiceRequest struct {
	Type   RequestType
	ID     string
	Intent string
	Slots  map[string]string
}

// Reply is what the assistant says back. An empty Speech ends silently.
type Reply struct {
	Speech     string
	EndSession bool
}
