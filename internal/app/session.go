package app

import (
	"sync"
	"time"
)

// Session holds UI flow state that outlives a single view, such as whether
// the intro has been seen.
type Session struct {
	mu        sync.RWMutex
	introSeen bool
	startedAt time.Time
}

type SessionState struct {
	IntroSeen bool       `json:"intro_seen"`
	StartedAt *time.Time `json:"started_at,omitempty"`
}

func NewSession() *Session { return &Session{} }

// Start marks the intro as seen. Repeated calls keep the first start time.
func (s *Session) Start(now time.Time) SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.introSeen {
		s.introSeen = true
		s.startedAt = now
	}
	return s.stateLocked()
}

// Replay clears the flag so the intro shows again.
func (s *Session) Replay() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.introSeen = false
	s.startedAt = time.Time{}
	return s.stateLocked()
}

func (s *Session) State() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stateLocked()
}

func (s *Session) stateLocked() SessionState {
	st := SessionState{IntroSeen: s.introSeen}
	if !s.startedAt.IsZero() {
		t := s.startedAt
		st.StartedAt = &t
	}
	return st
}
