package agent

import (
	"context"
	"iter"

	"github.com/hupe1980/voicemesh/core"
	"github.com/hupe1980/voicemesh/logging"
	"github.com/hupe1980/voicemesh/model"
	"github.com/hupe1980/voicemesh/tool"
)

// Agent is a conversational persona bound to one session.
type Agent interface {
	// Name is the unique identifier, also used as the meta-tool name.
	Name() string

	// Prompt returns the system prompt installed at the head of the dialogue.
	Prompt() string

	// Declaration describes the agent as a selectable tool for the outer
	// conversation.
	Declaration() model.ToolDefinition

	// Tools returns the registry of tools the agent offers its model.
	Tools() *tool.Registry

	// Generate drives one user turn and yields text as it becomes available.
	Generate(ctx context.Context, d *core.Dialogue) iter.Seq[string]

	// SuggestGenerate proposes a follow-up instruction. Variants without
	// suggestions return "" and a nil error.
	SuggestGenerate(ctx context.Context, d *core.Dialogue) (string, error)

	// SaveMemory persists the agent dialogue in the background.
	SaveMemory()

	// Cleanup releases session resources at session end.
	Cleanup(ctx context.Context) error
}

// MemoryInitializer is implemented by agents that support long-term memory.
type MemoryInitializer interface {
	InitMemory()
}

// Memory is the long-term memory service seen by agents.
type Memory interface {
	// SaveAsync persists msgs in the background. It never blocks on I/O and
	// never reports errors to the caller.
	SaveAsync(scope core.MemoryScope, msgs []core.Message)

	// Query returns up to limit formatted snippets, most recent first.
	Query(ctx context.Context, scope core.MemoryScope, text string, limit int) (string, error)
}

// MemoryHook retrieves knowledge for the latest user message before a model
// call. The returned text is merged into the request, never stored.
type MemoryHook func(ctx context.Context, latest core.Message) (string, error)

// Config describes an agent variant.
type Config struct {
	// Name is the unique agent identifier (snake_case).
	Name string
	// DisplayName is the human name used in exit texts. Defaults to Name.
	DisplayName string
	// Description tells the outer model when to select the agent.
	Description string
	// Parameters is the schema of the selection call. Nil means no arguments.
	Parameters map[string]any
	// Prompt is the system prompt.
	Prompt string
	// Tools are registered in order; exit_agent is added when absent.
	Tools []tool.Tool
	// MemoryHook runs before every model call when set.
	MemoryHook MemoryHook
	// Memory enables long-term memory for the agent.
	Memory bool
	// ExitMessage is the confirmation pushed on exit. Defaults to
	// "Exited <DisplayName>.".
	ExitMessage string
}

// Deps are the session-scoped dependencies handed to every agent.
type Deps struct {
	Model   model.Model
	Session *core.Session
	Memory  Memory
	Logger  logging.Logger
	// MaxContinuationDepth bounds tool-result continuations per turn.
	// Zero selects DefaultMaxContinuationDepth, a negative value disables the cap.
	MaxContinuationDepth int
	// FallbackText is yielded when a turn fails. Defaults to DefaultFallbackText.
	FallbackText string
}

const (
	// DefaultMaxContinuationDepth is the continuation cap when Deps leaves it zero.
	DefaultMaxContinuationDepth = 3

	// DefaultFallbackText is the user-facing text for a failed turn.
	DefaultFallbackText = "Something went wrong. Do you want to try again?"

	// ParseErrorText is returned when tool arguments are not valid JSON.
	ParseErrorText = "Invalid arguments, could not parse."

	// NotFoundText is the format of the reply for unknown tools.
	NotFoundText = "Function not found: %s"
)
