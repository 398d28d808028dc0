package memory

import "sync"

// DefaultShortTermTurns is the number of logical exchanges (one user + one
// assistant turn each) kept in the short-term window.
const DefaultShortTermTurns = 6

// SessionStore holds the per-user short-term dialogue windows. Buffers are
// trimmed on every append, so the capacity invariant holds at every
// observation point, not just at read time. Safe for concurrent use.
type SessionStore struct {
	mu       sync.Mutex
	capacity int // max entries per user: 2 × configured turns
	sessions map[string][]Turn
}

// NewSessionStore creates a SessionStore keeping the last `turns` exchanges
// per user. Non-positive values fall back to DefaultShortTermTurns.
func NewSessionStore(turns int) *SessionStore {
	if turns <= 0 {
		turns = DefaultShortTermTurns
	}
	return &SessionStore{
		capacity: 2 * turns,
		sessions: make(map[string][]Turn),
	}
}

// Append adds a turn to the user's window and evicts the oldest entries when
// the window exceeds capacity. Order is never changed, only truncated.
func (s *SessionStore) Append(userID string, turn Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	buf := append(s.sessions[userID], turn)
	if excess := len(buf) - s.capacity; excess > 0 {
		buf = buf[excess:]
	}
	s.sessions[userID] = buf
}

// History returns a copy of the user's current window, oldest first.
// Returns nil for users with no recorded turns.
func (s *SessionStore) History(userID string) []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	buf := s.sessions[userID]
	if buf == nil {
		return nil
	}
	out := make([]Turn, len(buf))
	copy(out, buf)
	return out
}
