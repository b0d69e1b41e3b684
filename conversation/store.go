// Package conversation keeps multi-turn session state and merges follow-up
// query conditions with the previous turn.
package conversation

import (
	"container/list"
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/poiesic/fabmatch/clock"
	"github.com/poiesic/fabmatch/core"
)

const (
	DefaultTTL      = time.Hour
	DefaultCapacity = 1000

	// DefaultJanitorSpec is the cron schedule of the expired-session sweep.
	DefaultJanitorSpec = "@every 5m"
)

// Option configures a Store.
type Option func(*Store) error

// WithTTL sets the idle time after which a session expires.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) error {
		s.ttl = ttl
		return nil
	}
}

// WithCapacity sets the maximum number of live sessions.
func WithCapacity(n int) Option {
	return func(s *Store) error {
		if n <= 0 {
			return ErrInvalidCapacity
		}
		s.capacity = n
		return nil
	}
}

// WithClock sets the time source.
func WithClock(c clock.Clock) Option {
	return func(s *Store) error {
		s.clock = c
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) error {
		if l != nil {
			s.logger = l
		}
		return nil
	}
}

// Store holds sessions in LRU order with idle expiry.
type Store struct {
	mu       sync.Mutex
	order    *list.List // front = most recently used
	sessions map[string]*list.Element

	ttl      time.Duration
	capacity int
	clock    clock.Clock
	logger   *slog.Logger
	newID    func() string
}

// NewStore creates an empty session store.
func NewStore(opts ...Option) (*Store, error) {
	s := &Store{
		order:    list.New(),
		sessions: make(map[string]*list.Element),
		ttl:      DefaultTTL,
		capacity: DefaultCapacity,
		clock:    clock.System{},
		logger:   slog.Default(),
		newID:    shortID,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func shortID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// Len returns the number of stored sessions, expired ones included until
// they are swept.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order.Len()
}

// Get returns a live session and marks it recently used. An expired
// session is removed and reported as not found.
func (s *Store) Get(id string) (*Session, error) {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(id, now)
}

func (s *Store) getLocked(id string, now time.Time) (*Session, error) {
	elem, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	session := elem.Value.(*Session)
	if s.expired(session, now) {
		s.removeLocked(elem)
		return nil, ErrSessionNotFound
	}
	s.order.MoveToFront(elem)
	session.touch(now)
	return session, nil
}

// Create starts a new session, then evicts expired and least recently used
// sessions beyond capacity.
func (s *Store) Create() *Session {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createLocked(now)
}

func (s *Store) createLocked(now time.Time) *Session {
	id := s.newID()
	for s.sessions[id] != nil {
		id = s.newID()
	}
	session := newSession(id, now)
	s.sessions[id] = s.order.PushFront(session)
	s.cleanupLocked(now)
	return session
}

// GetOrCreate returns the live session with id, or a fresh one when id is
// empty, unknown or expired. created reports which happened.
func (s *Store) GetOrCreate(id string) (session *Session, created bool) {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	if id != "" {
		if session, err := s.getLocked(id, now); err == nil {
			return session, false
		}
	}
	return s.createLocked(now), true
}

// AppendTurn records a turn on a live session.
func (s *Store) AppendTurn(id string, turn core.Turn) error {
	session, err := s.Get(id)
	if err != nil {
		return err
	}
	if turn.Timestamp.IsZero() {
		turn.Timestamp = s.clock.Now()
	}
	session.append(turn)
	return nil
}

// Delete removes a session.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if elem, ok := s.sessions[id]; ok {
		s.removeLocked(elem)
	}
}

// Cleanup removes expired sessions and trims to capacity. It returns the
// number of sessions removed.
func (s *Store) Cleanup() int {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cleanupLocked(now)
}

func (s *Store) cleanupLocked(now time.Time) int {
	removed := 0
	for elem := s.order.Back(); elem != nil; {
		prev := elem.Prev()
		if s.expired(elem.Value.(*Session), now) {
			s.removeLocked(elem)
			removed++
		}
		elem = prev
	}
	for s.order.Len() > s.capacity {
		s.removeLocked(s.order.Back())
		removed++
	}
	return removed
}

func (s *Store) expired(session *Session, now time.Time) bool {
	return now.Sub(session.LastAccess()) > s.ttl
}

func (s *Store) removeLocked(elem *list.Element) {
	session := s.order.Remove(elem).(*Session)
	delete(s.sessions, session.ID)
}

// RunJanitor sweeps expired sessions on a cron schedule until ctx is done.
// An empty spec uses DefaultJanitorSpec.
func (s *Store) RunJanitor(ctx context.Context, spec string) error {
	if spec == "" {
		spec = DefaultJanitorSpec
	}
	c := cron.New()
	if _, err := c.AddFunc(spec, func() {
		if n := s.Cleanup(); n > 0 {
			s.logger.Debug("swept sessions", "removed", n, "remaining", s.Len())
		}
	}); err != nil {
		return err
	}
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}
