package core

import (
	"errors"
	"fmt"
)

// Error kinds. Use errors.Is against these sentinels.
var (
	ErrParse         = errors.New("parse error")
	ErrNotFound      = errors.New("not found")
	ErrProvider      = errors.New("provider error")
	ErrToolExecution = errors.New("tool execution error")
	ErrPersistence   = errors.New("persistence error")
)

// Error carries a kind sentinel, the failing operation and the subject name.
type Error struct {
	Kind error
	Op   string
	Name string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}

	if e.Name != "" {
		msg = fmt.Sprintf("%s %q", msg, e.Name)
	}

	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

// Is matches the kind sentinel.
func (e *Error) Is(target error) bool { return target == e.Kind }

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// NewParseError reports malformed tool arguments.
func NewParseError(tool string, err error) error {
	return &Error{Kind: ErrParse, Op: "parse arguments", Name: tool, Err: err}
}

// NewNotFoundError reports an unknown tool or agent.
func NewNotFoundError(op, name string) error {
	return &Error{Kind: ErrNotFound, Op: op, Name: name}
}

// NewProviderError reports a model or transport failure.
func NewProviderError(provider string, err error) error {
	return &Error{Kind: ErrProvider, Op: "stream", Name: provider, Err: err}
}

// NewToolExecutionError reports a handler-internal fault.
func NewToolExecutionError(tool string, err error) error {
	return &Error{Kind: ErrToolExecution, Op: "call", Name: tool, Err: err}
}

// NewPersistenceError reports a memory save or query failure.
func NewPersistenceError(op string, err error) error {
	return &Error{Kind: ErrPersistence, Op: op, Err: err}
}
