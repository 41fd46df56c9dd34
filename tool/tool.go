// Package tool implements the function calling subsystem that lets agents
// invoke structured capabilities (business APIs, session state, side-effects)
// with schema validated arguments and a uniform ActionResult outcome.
package tool

import (
	"fmt"

	"github.com/hupe1980/voicemesh/core"
	"github.com/hupe1980/voicemesh/internal/util"
)

// DefaultErrorText is the user-facing text for failed tool executions.
// Internal detail is logged, never shown.
const DefaultErrorText = "Something went wrong with that request. Do you want to try again?"

// Tool defines the interface for extending agent capabilities with functions
// the model can call.
//
// Tool implementations should:
//   - Provide clear, descriptive names and descriptions
//   - Define proper JSON schema for parameters
//   - Never panic; convert internal faults into an ERROR ActionResult
//   - Be safe for concurrent use across sessions
type Tool interface {
	// Name returns the unique identifier for this tool (snake_case).
	Name() string

	// Description tells the model when and how to use the tool.
	Description() string

	// Parameters returns a JSON schema describing the expected arguments.
	Parameters() map[string]any

	// Call executes the tool. toolCtx carries the implicit user, connection
	// and calling agent; args are the parsed model arguments.
	Call(toolCtx *core.ToolContext, args map[string]any) core.ActionResult
}

// ValidationError represents parameter validation errors with detailed information.
type ValidationError = util.ValidationError

// ToolError represents errors that occur during tool execution.
type ToolError struct {
	Tool    string `json:"tool"`              // Name of the tool that failed
	Message string `json:"message"`           // Error message
	Code    string `json:"code"`              // Error code for categorization
	Details any    `json:"details,omitempty"` // Additional error details
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}

	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// Unwrap classifies every ToolError as a tool execution failure.
func (e *ToolError) Unwrap() error { return core.ErrToolExecution }

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{
		Tool:    tool,
		Message: message,
		Code:    code,
	}
}
