package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/voicemesh/core"
	"github.com/hupe1980/voicemesh/logging"
	"github.com/hupe1980/voicemesh/model"
	"github.com/hupe1980/voicemesh/tool"
)

// Base implements the Agent contract on top of a model provider. Variants
// embed *Base and override SuggestGenerate or Cleanup when they need to.
//
// A Base is bound to one session and is not shared across sessions. Generate
// must not run concurrently for the same dialogue.
type Base struct {
	name        string
	displayName string
	description string
	parameters  map[string]any
	prompt      string
	exitMessage string

	tools   *tool.Registry
	model   model.Model
	session *core.Session
	logger  logging.Logger

	memory     Memory
	memoryOn   bool
	wantMemory bool
	scope      core.MemoryScope
	hook       MemoryHook

	maxDepth int
	fallback string
}

// NewBase validates cfg and deps and builds the shared agent core. The
// exit_agent tool is registered after cfg.Tools unless one is supplied.
func NewBase(cfg Config, deps Deps) (*Base, error) {
	if cfg.Name == "" {
		return nil, errors.New("agent name is required")
	}

	if deps.Model == nil {
		return nil, fmt.Errorf("agent %s: model is required", cfg.Name)
	}

	if deps.Session == nil {
		return nil, fmt.Errorf("agent %s: session is required", cfg.Name)
	}

	b := &Base{
		name:        cfg.Name,
		displayName: cfg.DisplayName,
		description: cfg.Description,
		parameters:  cfg.Parameters,
		prompt:      cfg.Prompt,
		exitMessage: cfg.ExitMessage,
		tools:       tool.NewRegistry(),
		model:       deps.Model,
		session:     deps.Session,
		logger:      logging.OrNoOp(deps.Logger),
		memory:      deps.Memory,
		wantMemory:  cfg.Memory,
		hook:        cfg.MemoryHook,
		maxDepth:    deps.MaxContinuationDepth,
		fallback:    deps.FallbackText,
	}

	if b.displayName == "" {
		b.displayName = b.name
	}

	if b.exitMessage == "" {
		b.exitMessage = fmt.Sprintf("Exited %s.", b.displayName)
	}

	switch {
	case b.maxDepth == 0:
		b.maxDepth = DefaultMaxContinuationDepth
	case b.maxDepth < 0:
		b.maxDepth = 0
	}

	if b.fallback == "" {
		b.fallback = DefaultFallbackText
	}

	for _, t := range cfg.Tools {
		if err := b.tools.Register(t); err != nil {
			return nil, fmt.Errorf("agent %s: %w", b.name, err)
		}
	}

	if !b.tools.Has(ExitToolName) {
		_ = b.tools.Register(NewExitTool(b.displayName, b.exitMessage))
	}

	return b, nil
}

// Name implements Agent.
func (b *Base) Name() string { return b.name }

// DisplayName returns the human readable agent name.
func (b *Base) DisplayName() string { return b.displayName }

// Prompt implements Agent.
func (b *Base) Prompt() string { return b.prompt }

// Tools implements Agent.
func (b *Base) Tools() *tool.Registry { return b.tools }

// Session returns the session the agent is bound to.
func (b *Base) Session() *core.Session { return b.session }

// Model returns the model provider.
func (b *Base) Model() model.Model { return b.model }

// Logger returns the agent logger.
func (b *Base) Logger() logging.Logger { return b.logger }

// Declaration implements Agent.
func (b *Base) Declaration() model.ToolDefinition {
	return model.NewToolDefinition(b.name, b.description, b.parameters)
}

// SetMemoryHook replaces the pre-turn memory hook. Variants whose hook needs
// the constructed Base call this right after NewBase.
func (b *Base) SetMemoryHook(h MemoryHook) { b.hook = h }

// InitMemory binds long-term memory to the session user. It is a no-op for
// agents without memory, without a store, or for anonymous sessions.
func (b *Base) InitMemory() {
	if !b.wantMemory || b.memory == nil {
		return
	}

	user := b.session.User
	if user == nil || user.ID == "" {
		b.logger.Warn("agent.memory.no_user", "agent", b.name)
		return
	}

	b.scope = core.MemoryScope{UserID: user.ID, Agent: b.name}
	b.memoryOn = true
}

// MemoryEnabled reports whether InitMemory bound a memory scope.
func (b *Base) MemoryEnabled() bool { return b.memoryOn }

// SaveMemory snapshots the agent dialogue and hands it to the background
// saver. It returns immediately.
func (b *Base) SaveMemory() {
	if !b.memoryOn {
		return
	}

	b.memory.SaveAsync(b.scope, b.session.AgentDialogue().Messages())
}

// QueryMemory returns up to limit formatted snippets for text. It returns ""
// when memory is disabled.
func (b *Base) QueryMemory(ctx context.Context, text string, limit int) (string, error) {
	if !b.memoryOn {
		return "", nil
	}

	return b.memory.Query(ctx, b.scope, text, limit)
}

// SuggestGenerate implements Agent. The base agent has no suggestions.
func (b *Base) SuggestGenerate(context.Context, *core.Dialogue) (string, error) {
	return "", nil
}

// Cleanup implements Agent. An agent still active at session end saves its
// dialogue.
func (b *Base) Cleanup(context.Context) error {
	if b.session.ActiveAgent() == b.name {
		b.SaveMemory()
	}

	return nil
}
