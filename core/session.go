package core

import (
	"sync"
	"sync/atomic"
	"time"
)

// Session is the live connection handle of one conversation. It owns the
// outer dialogue, the dialogue of the active agent, the active-agent pointer,
// an abort flag and free-form key/value state. It is safe for concurrent
// access.
//
// Contract:
//   - Abort may be called from any goroutine; generation loops poll Aborted
//   - ClearActiveAgent is the only way an agent deactivates itself
//   - GetState/SetState update Updated on write
type Session struct {
	ID      string    `json:"id"`
	User    *User     `json:"user,omitempty"`
	Created time.Time `json:"created"`
	Updated time.Time `json:"updated"`

	dialogue      *Dialogue
	agentDialogue *Dialogue
	activeAgent   string
	state         map[string]any
	aborted       atomic.Bool
	mu            sync.RWMutex
}

// NewSession creates a session with empty dialogues.
func NewSession(id string, user *User) *Session {
	now := time.Now()

	return &Session{
		ID:            id,
		User:          user,
		Created:       now,
		Updated:       now,
		dialogue:      NewDialogue(),
		agentDialogue: NewDialogue(),
		state:         map[string]any{},
	}
}

// Dialogue returns the outer conversation log.
func (s *Session) Dialogue() *Dialogue { return s.dialogue }

// AgentDialogue returns the log of the active agent scope.
func (s *Session) AgentDialogue() *Dialogue { return s.agentDialogue }

// ActiveAgent returns the name of the active agent, or "".
func (s *Session) ActiveAgent() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.activeAgent
}

// SetActiveAgent marks the named agent as active.
func (s *Session) SetActiveAgent(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.activeAgent = name
	s.Updated = time.Now()
}

// ClearActiveAgent resets the active-agent pointer.
func (s *Session) ClearActiveAgent() { s.SetActiveAgent("") }

// Abort signals running generation loops to stop.
func (s *Session) Abort() { s.aborted.Store(true) }

// ResetAbort clears the abort flag before a new turn.
func (s *Session) ResetAbort() { s.aborted.Store(false) }

// Aborted reports whether Abort was called since the last ResetAbort.
func (s *Session) Aborted() bool { return s.aborted.Load() }

// GetState returns the value and existence flag for a state key.
func (s *Session) GetState(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.state[key]

	return v, ok
}

// SetState sets a key/value pair in session state.
func (s *Session) SetState(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state[key] = value
	s.Updated = time.Now()
}

// DeleteState removes a state key.
func (s *Session) DeleteState(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.state, key)
	s.Updated = time.Now()
}

// SessionStore keeps live sessions addressable by id.
type SessionStore interface {
	Create(id string, user *User) (*Session, error)
	Get(id string) (*Session, error)
	Delete(id string) error
}
