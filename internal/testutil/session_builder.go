package testutil

import (
	"github.com/hupe1980/voicemesh/core"
)

// SessionBuilder helps construct sessions with fluent chaining for tests.
// Example:
//
//	sess := NewSessionBuilder("sess-1").User("u1").Active("quiz_master").Build()
type SessionBuilder struct {
	id            string
	user          *core.User
	state         map[string]any
	active        string
	dialogue      []core.Message
	agentDialogue []core.Message
	aborted       bool
}

// NewSessionBuilder creates a new builder for a session with the given id.
func NewSessionBuilder(id string) *SessionBuilder {
	return &SessionBuilder{id: id, state: map[string]any{}}
}

// User attaches a user profile with the given id (chainable).
func (b *SessionBuilder) User(id string) *SessionBuilder {
	b.user = &core.User{ID: id, Type: "student", Name: "Test " + id}
	return b
}

// Profile attaches a complete user profile (chainable).
func (b *SessionBuilder) Profile(u *core.User) *SessionBuilder { b.user = u; return b }

// State sets a state key/value pair on the resulting session (chainable).
func (b *SessionBuilder) State(key string, val any) *SessionBuilder {
	b.state[key] = val
	return b
}

// Active marks the named agent as active (chainable).
func (b *SessionBuilder) Active(name string) *SessionBuilder { b.active = name; return b }

// Dialogue seeds the outer dialogue (chainable).
func (b *SessionBuilder) Dialogue(msgs ...core.Message) *SessionBuilder {
	b.dialogue = append(b.dialogue, msgs...)
	return b
}

// AgentDialogue seeds the agent dialogue (chainable).
func (b *SessionBuilder) AgentDialogue(msgs ...core.Message) *SessionBuilder {
	b.agentDialogue = append(b.agentDialogue, msgs...)
	return b
}

// Aborted raises the abort flag on the built session (chainable).
func (b *SessionBuilder) Aborted() *SessionBuilder { b.aborted = true; return b }

// Build returns a *core.Session with the configured content.
func (b *SessionBuilder) Build() *core.Session {
	s := core.NewSession(b.id, b.user)

	for k, v := range b.state {
		s.SetState(k, v)
	}

	s.Dialogue().Append(b.dialogue...)
	s.AgentDialogue().Append(b.agentDialogue...)

	if b.active != "" {
		s.SetActiveAgent(b.active)
	}

	if b.aborted {
		s.Abort()
	}

	return s
}
