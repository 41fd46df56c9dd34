package testutil

import (
	"github.com/hupe1980/voicemesh/core"
	"github.com/hupe1980/voicemesh/model"
)

// DialogueBuilder provides a fluent helper for constructing dialogues.
// Example:
//
//	d := NewDialogueBuilder().System("prompt").User("hi").Assistant("hello").Build()
type DialogueBuilder struct {
	msgs []core.Message
}

// NewDialogueBuilder creates an empty builder.
func NewDialogueBuilder() *DialogueBuilder { return &DialogueBuilder{} }

// System appends a system message (chainable).
func (b *DialogueBuilder) System(t string) *DialogueBuilder {
	b.msgs = append(b.msgs, core.NewSystemMessage(t))
	return b
}

// User appends a user message (chainable).
func (b *DialogueBuilder) User(t string) *DialogueBuilder {
	b.msgs = append(b.msgs, core.NewUserMessage(t))
	return b
}

// Assistant appends an assistant text message (chainable).
func (b *DialogueBuilder) Assistant(t string) *DialogueBuilder {
	b.msgs = append(b.msgs, core.NewAssistantMessage(t))
	return b
}

// ToolExchange appends a tool call and its result (chainable).
func (b *DialogueBuilder) ToolExchange(id, name, args, result string) *DialogueBuilder {
	b.msgs = append(b.msgs,
		core.NewToolCallMessage(core.ToolCall{ID: id, Name: name, Arguments: args}),
		core.NewToolResultMessage(id, result),
	)

	return b
}

// Messages returns a copy of the collected messages.
func (b *DialogueBuilder) Messages() []core.Message {
	out := make([]core.Message, len(b.msgs))
	copy(out, b.msgs)

	return out
}

// Build constructs the dialogue.
func (b *DialogueBuilder) Build() *core.Dialogue { return core.NewDialogue(b.msgs...) }

// TextTurn is a scripted model turn streaming texts.
func TextTurn(texts ...string) model.ScriptedTurn {
	return model.ScriptedTurn{Chunks: model.TextChunks(texts...)}
}

// CallTurn is a scripted model turn streaming one tool call whose arguments
// arrive in fragments.
func CallTurn(id, name string, fragments ...string) model.ScriptedTurn {
	return model.ScriptedTurn{Chunks: model.ToolCallChunks(id, name, fragments...)}
}

// ErrTurn is a scripted model turn failing with err.
func ErrTurn(err error) model.ScriptedTurn {
	return model.ScriptedTurn{Err: err}
}
