package alexa

import (
	"avr-control/internal/domain"
)

// RequestEnvelope is the subset of the Alexa skill request body the skill
// reads.
type RequestEnvelope struct {
	Version string  `json:"version"`
	Session Session `json:"session"`
	Request Request `json:"request"`
}

type Session struct {
	SessionID   string      `json:"sessionId"`
	Application Application `json:"application"`
}

type Application struct {
	ApplicationID string `json:"applicationId"`
}

type Request struct {
	Type      string  `json:"type"`
	RequestID string  `json:"requestId"`
	Timestamp string  `json:"timestamp"`
	Locale    string  `json:"locale"`
	Intent    *Intent `json:"intent,omitempty"`
	Reason    string  `json:"reason,omitempty"`
}

type Intent struct {
	Name  string          `json:"name"`
	Slots map[string]Slot `json:"slots,omitempty"`
}

type Slot struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// VoiceRequest flattens the envelope into the domain request.
func (e RequestEnvelope) VoiceRequest() domain.VoiceRequest {
	req := domain.VoiceRequest{
		Type: domain.RequestType(e.Request.Type),
		ID:   e.Request.RequestID,
	}
	if e.Request.Intent != nil {
		req.Intent = e.Request.Intent.Name
		req.Slots = make(map[string]string, len(e.Request.Intent.Slots))
		for name, slot := range e.Request.Intent.Slots {
			req.Slots[name] = slot.Value
		}
	}
	return req
}

type ResponseEnvelope struct {
	Version  string   `json:"version"`
	Response Response `json:"response"`
}

type Response struct {
	OutputSpeech     *OutputSpeech `json:"outputSpeech,omitempty"`
	ShouldEndSession bool          `json:"shouldEndSession"`
}

type OutputSpeech struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// NewResponse renders reply as plain-text speech. An empty reply carries no
// speech at all.
func NewResponse(reply domain.Reply) ResponseEnvelope {
	resp := ResponseEnvelope{
		Version:  "1.0",
		Response: Response{ShouldEndSession: reply.EndSession},
	}
	if reply.Speech != "" {
		resp.Response.OutputSpeech = &OutputSpeech{Type: "PlainText", Text: reply.Speech}
	}
	return resp
}
