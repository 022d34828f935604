package gateway

import (
	"fmt"
	"sync"

	contractx "github.com/KohJunJie/tour-agent-planner/agent/contract"
)

type SessionState string

const (
	SessionConnecting SessionState = "connecting"
	SessionActive     SessionState = "active"
	SessionClosing    SessionState = "closing"
	SessionClosed     SessionState = "closed"
)

// Session is the per-connection state: an audio buffer accumulated across
// chunks and the outbound event channel consumed by the write loop. All
// methods are safe for concurrent use.
type Session struct {
	ID string

	mu         sync.Mutex
	state      SessionState
	audio      []byte
	send       chan Event
	sendClosed bool
}

func NewSession(id string, sendBuffer int) *Session {
	if sendBuffer <= 0 {
		sendBuffer = 16
	}
	return &Session{
		ID:    id,
		state: SessionConnecting,
		send:  make(chan Event, sendBuffer),
	}
}

func (s *Session) Activate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == SessionConnecting {
		s.state = SessionActive
	}
}

func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// AppendAudio adds a decoded chunk to the session buffer. Only an active
// session accepts audio.
func (s *Session) AppendAudio(chunk []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != SessionActive {
		return fmt.Errorf("%w: session %s is %s", contractx.ErrSessionState, s.ID, s.state)
	}
	s.audio = append(s.audio, chunk...)
	return nil
}

// FlushAudio returns the buffered audio and resets the buffer.
func (s *Session) FlushAudio() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	buf := s.audio
	s.audio = nil
	return buf
}

// Emit queues an event for the write loop. It reports false once the session
// is shutting down, and drops the event when the buffer is full rather than
// blocking the caller.
func (s *Session) Emit(ev Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sendClosed {
		return false
	}
	select {
	case s.send <- ev:
		return true
	default:
		return false
	}
}

// Shutdown moves the session to closing and closes the outbound channel so
// the write loop can drain and exit. Safe to call more than once.
func (s *Session) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sendClosed {
		return
	}
	s.sendClosed = true
	s.state = SessionClosing
	close(s.send)
}

func (s *Session) finishClose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = SessionClosed
}
