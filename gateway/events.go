package gateway

import (
	contractx "github.com/KohJunJie/tour-agent-planner/agent/contract"
)

// Client-to-server frame types.
const (
	FrameAudioChunk  = "audio_chunk"
	FramePlanRequest = "plan_request"
	FrameDisconnect  = "disconnect"
)

// Server-to-client event types.
const (
	EventWelcome       = "welcome"
	EventTranscription = "transcription"
	EventPlanResult    = "plan_result"
	EventError         = "error"
)

// Error event kinds, so clients can distinguish a bad frame from a bad graph.
const (
	ErrKindSessionState = "session_state"
	ErrKindValidation   = "validation"
	ErrKindGraph        = "graph"
)

// Frame is one inbound websocket message. Data carries base64 audio for
// audio_chunk frames; Inputs carries the trip parameters for plan_request
// frames.
type Frame struct {
	Type   string               `json:"type"`
	Data   string               `json:"data,omitempty"`
	Inputs *contractx.RunInputs `json:"inputs,omitempty"`
}

// Event is one outbound websocket message.
type Event struct {
	Type    string                `json:"type"`
	Text    string                `json:"text,omitempty"`
	Message string                `json:"message,omitempty"`
	Kind    string                `json:"kind,omitempty"`
	Outcome *contractx.RunOutcome `json:"outcome,omitempty"`
}

func welcomeEvent() Event {
	return Event{Type: EventWelcome, Message: "Connected to backend"}
}

func errorEvent(kind, message string) Event {
	return Event{Type: EventError, Kind: kind, Message: message}
}
