package tool

import (
	"errors"
	"time"

	"github.com/hupe1980/voicemesh/core"
	"github.com/hupe1980/voicemesh/internal/util"
)

// HandlerFunc is the signature of a FunctionTool implementation. A non-nil
// error is logged and turned into an ERROR result carrying DefaultErrorText.
type HandlerFunc func(toolCtx *core.ToolContext, args map[string]any) (core.ActionResult, error)

// FunctionTool is a generic adapter that exposes a plain Go function as a tool.
//
// Responsibilities:
//   - Holds a lightweight JSON-Schema-like parameter schema
//   - Validates model supplied arguments against that schema before execution
//   - Invokes the wrapped function with a *core.ToolContext
//   - Normalizes failures into ActionResult{Kind: ERROR}:
//     VALIDATION_ERROR  -> schema / argument mismatch
//     EXECUTION_ERROR   -> underlying function returned an error
//
// A FunctionTool has no mutable state after construction and is safe for
// concurrent use.
type FunctionTool struct {
	name        string
	description string
	parameters  map[string]any
	fn          HandlerFunc
}

// NewFunctionTool constructs a FunctionTool from explicit schema and function.
//
// Example:
//
//	answer := NewFunctionTool(
//	  "answer_quiz",
//	  "Check the user's answer to the current question",
//	  map[string]any{
//	    "type": "object",
//	    "properties": map[string]any{
//	      "answer": map[string]any{"type": "string"},
//	    },
//	    "required": []string{"answer"},
//	  },
//	  func(tc *core.ToolContext, args map[string]any) (core.ActionResult, error) {
//	    return core.Respond("Correct!"), nil
//	  },
//	)
func NewFunctionTool(name, description string, parameters map[string]any, fn HandlerFunc) *FunctionTool {
	if parameters == nil {
		parameters = map[string]any{"type": "object", "properties": map[string]any{}}
	}

	return &FunctionTool{
		name:        name,
		description: description,
		parameters:  parameters,
		fn:          fn,
	}
}

// NewFunctionToolFromStruct derives the parameter schema from a struct using
// reflection (see util.CreateSchema).
//
// Example:
//
//	type throwArgs struct {
//	  Content string `json:"content" description:"What to write into the bottle"`
//	}
//
//	throw := NewFunctionToolFromStruct("throw_bottle", "Throw a drift bottle", throwArgs{}, handler)
func NewFunctionToolFromStruct(name, description string, structType any, fn HandlerFunc) *FunctionTool {
	return NewFunctionTool(name, description, util.CreateSchema(structType), fn)
}

// Name returns the unique tool name used in declarations and routing.
func (t *FunctionTool) Name() string { return t.name }

// Description returns the short natural language description exposed to models.
func (t *FunctionTool) Description() string { return t.description }

// Parameters returns the JSON schema describing expected arguments.
func (t *FunctionTool) Parameters() map[string]any { return t.parameters }

// Call validates args against the declared schema then invokes the function.
//
// Logging Fields:
//
//	tool: tool name
//	fc_id: function call identifier (correlates model request & tool execution)
//	duration_ms: execution time in milliseconds
func (t *FunctionTool) Call(toolCtx *core.ToolContext, args map[string]any) core.ActionResult {
	logger := toolCtx.Logger()
	start := time.Now()

	logger.Debug("tool.call.start", "tool", t.name, "fc_id", toolCtx.FunctionCallID())

	if err := util.ValidateParameters(args, t.parameters); err != nil {
		logger.Warn("tool.call.validation_failed", "tool", t.name, "error", err.Error())

		return core.Failed(DefaultErrorText)
	}

	result, err := t.fn(toolCtx, args)
	if err != nil {
		var toolErr *ToolError
		if !errors.As(err, &toolErr) {
			toolErr = &ToolError{Tool: t.name, Message: err.Error(), Code: "EXECUTION_ERROR"}
		}

		logger.Error("tool.call.error", "tool", t.name, "code", toolErr.Code, "error", toolErr.Message)

		return core.Failed(DefaultErrorText)
	}

	logger.Info("tool.call.success",
		"tool", t.name,
		"kind", result.Kind.String(),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return result
}
