package relay

import "github.com/google/uuid"

// outQueueSize bounds the per-session broadcast backlog. A session that
// cannot drain this many frames is dropped-from rather than blocked-on;
// delivery is at-most-once.
const outQueueSize = 64

// Session is one active client connection, existing only as a broadcast
// target. Reconnecting clients get a brand-new session.
type Session struct {
	ID  string
	out chan []byte
}

// NewSession allocates a session with a fresh identifier and an empty
// outbound queue.
func NewSession() *Session {
	return &Session{
		ID:  uuid.NewString(),
		out: make(chan []byte, outQueueSize),
	}
}

// Out exposes the frames queued for this session. The channel is closed
// when the relay releases the session.
func (s *Session) Out() <-chan []byte {
	return s.out
}
