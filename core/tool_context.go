package core

import (
	"context"

	"github.com/hupe1980/voicemesh/logging"
)

// AgentHandle is the view of the calling agent exposed to tool handlers.
type AgentHandle interface {
	Name() string
	// SaveMemory persists the agent dialogue in the background.
	SaveMemory()
}

// ToolContext is passed to every tool handler. It carries the implicit
// arguments of a call: the user profile, the connection (session) and the
// calling agent.
type ToolContext struct {
	ctx            context.Context
	session        *Session
	agent          AgentHandle
	functionCallID string

	*loggerAdapter
}

// NewToolContext constructs a tool context for a single function call.
func NewToolContext(
	ctx context.Context,
	session *Session,
	agent AgentHandle,
	functionCallID string,
	logger logging.Logger,
) *ToolContext {
	if ctx == nil {
		ctx = context.Background()
	}

	return &ToolContext{
		ctx:            ctx,
		session:        session,
		agent:          agent,
		functionCallID: functionCallID,
		loggerAdapter:  newLoggerAdapter(logger),
	}
}

// Context returns the context associated with the tool invocation.
func (tc *ToolContext) Context() context.Context { return tc.ctx }

// Session returns the connection the call belongs to.
func (tc *ToolContext) Session() *Session { return tc.session }

// SessionID returns the session id, or "" without a session.
func (tc *ToolContext) SessionID() string {
	if tc.session == nil {
		return ""
	}

	return tc.session.ID
}

// User returns the profile of the session user, or nil.
func (tc *ToolContext) User() *User {
	if tc.session == nil {
		return nil
	}

	return tc.session.User
}

// Agent returns the calling agent.
func (tc *ToolContext) Agent() AgentHandle { return tc.agent }

// AgentName returns the calling agent's name, or "".
func (tc *ToolContext) AgentName() string {
	if tc.agent == nil {
		return ""
	}

	return tc.agent.Name()
}

// FunctionCallID returns the id of the model tool call being served.
func (tc *ToolContext) FunctionCallID() string { return tc.functionCallID }

// Logger returns the logger associated with the tool invocation.
func (tc *ToolContext) Logger() logging.Logger { return tc.loggerAdapter.Logger() }
