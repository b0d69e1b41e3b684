package conversation

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/poiesic/fabmatch/core"
)

// Session is one user's conversation. Turns only grow until the session
// is evicted.
type Session struct {
	ID        string
	CreatedAt time.Time

	turn sync.Mutex // held for the duration of one request

	mu         sync.RWMutex
	turns      []core.Turn
	lastAccess time.Time
}

func newSession(id string, now time.Time) *Session {
	return &Session{ID: id, CreatedAt: now, lastAccess: now}
}

// Begin serializes requests on this session. Call the returned func when
// the request is done.
func (s *Session) Begin() (release func()) {
	s.turn.Lock()
	return s.turn.Unlock
}

// Turns returns a copy of the recorded turns.
func (s *Session) Turns() []core.Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.turns)
}

// Len returns the number of turns.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.turns)
}

// LastAccess returns when the session was last touched.
func (s *Session) LastAccess() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastAccess
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastAccess = now
	s.mu.Unlock()
}

func (s *Session) append(turn core.Turn) {
	s.mu.Lock()
	s.turns = append(s.turns, turn)
	s.lastAccess = turn.Timestamp
	s.mu.Unlock()
}

// LastConditions returns a copy of the previous turn's conditions, or nil.
func (s *Session) LastConditions() *core.Conditions {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.turns) == 0 || s.turns[len(s.turns)-1].Conditions == nil {
		return nil
	}
	return s.turns[len(s.turns)-1].Conditions.Clone()
}

// LastQuery returns the previous turn's query.
func (s *Session) LastQuery() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.turns) == 0 {
		return ""
	}
	return s.turns[len(s.turns)-1].Query
}

// LastRecommendations returns the equipment ids recommended in the previous turn.
func (s *Session) LastRecommendations() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.turns) == 0 {
		return nil
	}
	return slices.Clone(s.turns[len(s.turns)-1].RecommendedIDs)
}

// ContextSummary renders the last maxTurns turns for a prompt.
func (s *Session) ContextSummary(maxTurns int) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.turns) == 0 || maxTurns <= 0 {
		return ""
	}

	recent := s.turns[max(0, len(s.turns)-maxTurns):]
	lines := make([]string, 0, len(recent)*2)
	for i, turn := range recent {
		lines = append(lines, fmt.Sprintf("[%d] 질의: %s", i+1, turn.Query))
		if turn.Summary != "" {
			lines = append(lines, "    응답: "+turn.Summary)
		}
	}
	return strings.Join(lines, "\n")
}
