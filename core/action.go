package core

// ActionKind tags the outcome of a tool invocation.
type ActionKind int

const (
	// ActionNone has no user visible effect.
	ActionNone ActionKind = iota
	// ActionRespond delivers Response (or Result) to the user as-is.
	ActionRespond
	// ActionRequestLLM feeds Result back to the model for a continuation pass.
	ActionRequestLLM
	// ActionNotFound reports that the requested function does not exist.
	ActionNotFound
	// ActionError reports a failed invocation.
	ActionError
)

// String returns the kind name.
func (k ActionKind) String() string {
	switch k {
	case ActionRespond:
		return "RESPOND"
	case ActionRequestLLM:
		return "REQUEST_LLM_CONTINUATION"
	case ActionNotFound:
		return "NOT_FOUND"
	case ActionError:
		return "ERROR"
	default:
		return "NONE"
	}
}

// ActionResult is returned by every tool handler. Result is the model-facing
// text, Response the user-facing text.
type ActionResult struct {
	Kind     ActionKind
	Result   string
	Response string
}

// Text returns the user-facing text, falling back to Result.
func (a ActionResult) Text() string {
	if a.Response != "" {
		return a.Response
	}

	return a.Result
}

// Respond builds a RESPOND result with the same text on both sides.
func Respond(text string) ActionResult {
	return ActionResult{Kind: ActionRespond, Result: text, Response: text}
}

// RequestLLM builds a REQUEST_LLM_CONTINUATION result carrying a model prompt.
func RequestLLM(result string) ActionResult {
	return ActionResult{Kind: ActionRequestLLM, Result: result}
}

// NotFound builds a NOT_FOUND result.
func NotFound(text string) ActionResult {
	return ActionResult{Kind: ActionNotFound, Result: text}
}

// Failed builds an ERROR result.
func Failed(text string) ActionResult {
	return ActionResult{Kind: ActionError, Result: text}
}

// NoAction builds a NONE result.
func NoAction() ActionResult { return ActionResult{Kind: ActionNone} }
