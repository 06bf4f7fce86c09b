package conversation

import (
	"sync"
	"time"

	"covercraft/internal/models"
)

// State is a step of the cover conversation
type State int

const (
	StateIdle State = iota
	StateAwaitingPlatform
	StateAwaitingTitle
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingPlatform:
		return "awaiting_platform"
	case StateAwaitingTitle:
		return "awaiting_title"
	default:
		return "unknown"
	}
}

// Session is the live conversation of one user
type Session struct {
	ID        string
	UserID    string
	ChatID    int64
	State     State
	Platform  models.Platform
	CreatedAt time.Time
	UpdatedAt time.Time
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

// Sessions holds at most one session per user and serializes work per user.
type Sessions struct {
	mu       sync.Mutex
	sessions map[string]*Session
	locks    map[string]*userLock
	ttl      time.Duration
	now      func() time.Time
}

// NewSessions creates an empty table. A non-positive ttl disables expiry.
func NewSessions(ttl time.Duration) *Sessions {
	return &Sessions{
		sessions: make(map[string]*Session),
		locks:    make(map[string]*userLock),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Lock blocks until the caller holds the user's lock and returns its release func.
// Callers for the same user queue; callers for different users never contend.
func (s *Sessions) Lock(userID string) func() {
	s.mu.Lock()
	l, ok := s.locks[userID]
	if !ok {
		l = &userLock{}
		s.locks[userID] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, userID)
		}
		s.mu.Unlock()
	}
}

// Get returns a copy of the user's live session. Expired sessions are removed.
func (s *Sessions) Get(userID string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[userID]
	if !ok {
		return Session{}, false
	}
	if s.expired(sess) {
		delete(s.sessions, userID)
		return Session{}, false
	}
	return *sess, true
}

// Put stores sess as the user's only session, replacing any previous one.
// A session in StateIdle is removed instead.
func (s *Sessions) Put(sess Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess.State == StateIdle {
		delete(s.sessions, sess.UserID)
		return
	}
	sess.UpdatedAt = s.now()
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = sess.UpdatedAt
	}
	s.sessions[sess.UserID] = &sess
}

// Delete removes the user's session and reports whether one was live.
func (s *Sessions) Delete(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[userID]
	if !ok {
		return false
	}
	delete(s.sessions, userID)
	return !s.expired(sess)
}

// Sweep drops expired sessions and returns how many were removed.
func (s *Sessions) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, sess := range s.sessions {
		if s.expired(sess) {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}

// Len returns the number of stored sessions, expired ones included.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Sessions) expired(sess *Session) bool {
	return s.ttl > 0 && s.now().Sub(sess.UpdatedAt) > s.ttl
}
