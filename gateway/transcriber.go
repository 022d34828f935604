package gateway

import "context"

// StubTranscriber stands in for a speech-to-text backend. It acknowledges the
// audio without interpreting it, which keeps the websocket protocol end-to-end
// testable while the real backend is out of scope.
type StubTranscriber struct{}

func (StubTranscriber) Transcribe(_ context.Context, _ []byte) (string, error) {
	return "Processed audio (mock)", nil
}
