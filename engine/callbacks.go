package engine

import (
	"context"
	"sync"

	"github.com/hupe1980/voicemesh/logging"
)

// CallbackType defines the lifecycle points where callbacks can be executed.
//
// Callbacks provide a flexible mechanism for hooking into the manager without
// modifying core logic. They run synchronously; an error returned from a
// BeforeAgent callback aborts the execution before the agent runs. Errors
// from the other types are ignored.
type CallbackType string

const (
	// CallbackAgentInit is triggered after an agent was loaded for a session.
	CallbackAgentInit CallbackType = "agent_init"

	// CallbackBeforeAgent is triggered before an agent starts a turn.
	// Use for validation, rate limiting or instrumentation.
	CallbackBeforeAgent CallbackType = "before_agent"

	// CallbackAfterAgent is triggered after the agent's text stream ended or
	// the consumer stopped reading it.
	CallbackAfterAgent CallbackType = "after_agent"

	// CallbackOnError is triggered when loading or cleaning up an agent fails.
	CallbackOnError CallbackType = "on_error"
)

// CallbackContext carries the information a callback may need.
type CallbackContext struct {
	SessionID    string
	AgentName    string
	CallbackType CallbackType
	// Err is set for CallbackOnError.
	Err error
}

// Callback is a single lifecycle hook.
type Callback interface {
	// Type returns the lifecycle point the callback is registered for.
	Type() CallbackType

	// Execute runs the callback.
	Execute(ctx context.Context, callbackCtx *CallbackContext) error
}

// FunctionCallback adapts a plain function to Callback.
type FunctionCallback struct {
	callbackType CallbackType
	fn           func(ctx context.Context, callbackCtx *CallbackContext) error
}

// NewFunctionCallback creates a callback that runs fn at callbackType.
//
// Example:
//
//	cb := NewFunctionCallback(CallbackBeforeAgent, func(ctx context.Context, cc *CallbackContext) error {
//	    metrics.AgentTurns.WithLabelValues(cc.AgentName).Inc()
//	    return nil
//	})
func NewFunctionCallback(
	callbackType CallbackType,
	fn func(ctx context.Context, callbackCtx *CallbackContext) error,
) *FunctionCallback {
	return &FunctionCallback{
		callbackType: callbackType,
		fn:           fn,
	}
}

// Type implements Callback.
func (c *FunctionCallback) Type() CallbackType {
	return c.callbackType
}

// Execute implements Callback.
func (c *FunctionCallback) Execute(ctx context.Context, callbackCtx *CallbackContext) error {
	return c.fn(ctx, callbackCtx)
}

// CallbackManager keeps callbacks per type in registration order. It is safe
// for concurrent use, so one manager can serve all sessions.
type CallbackManager struct {
	mu        sync.RWMutex
	callbacks map[CallbackType][]Callback
}

// NewCallbackManager creates an empty callback manager.
func NewCallbackManager() *CallbackManager {
	return &CallbackManager{
		callbacks: make(map[CallbackType][]Callback),
	}
}

// RegisterCallback adds a callback for its type.
func (cm *CallbackManager) RegisterCallback(callback Callback) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	callbackType := callback.Type()
	cm.callbacks[callbackType] = append(cm.callbacks[callbackType], callback)
}

// ExecuteCallbacks runs the callbacks of callbackType in order and stops at
// the first error.
func (cm *CallbackManager) ExecuteCallbacks(
	ctx context.Context,
	callbackType CallbackType,
	callbackCtx *CallbackContext,
) error {
	cm.mu.RLock()
	callbacks := cm.callbacks[callbackType]
	cm.mu.RUnlock()

	for _, callback := range callbacks {
		if err := callback.Execute(ctx, callbackCtx); err != nil {
			return err
		}
	}

	return nil
}

// LoggingCallback writes one structured log line per lifecycle event.
type LoggingCallback struct {
	callbackType CallbackType
	logger       logging.Logger
}

// NewLoggingCallback creates a callback logging callbackType events to logger.
func NewLoggingCallback(callbackType CallbackType, logger logging.Logger) *LoggingCallback {
	return &LoggingCallback{
		callbackType: callbackType,
		logger:       logging.OrNoOp(logger),
	}
}

// Type implements Callback.
func (c *LoggingCallback) Type() CallbackType {
	return c.callbackType
}

// Execute implements Callback.
func (c *LoggingCallback) Execute(_ context.Context, callbackCtx *CallbackContext) error {
	args := []any{"session_id", callbackCtx.SessionID, "agent", callbackCtx.AgentName}
	if callbackCtx.Err != nil {
		args = append(args, "error", callbackCtx.Err.Error())
	}

	c.logger.Info("manager.callback."+string(c.callbackType), args...)

	return nil
}
