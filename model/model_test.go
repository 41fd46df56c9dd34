package model

import (
	"context"
	"errors"
	"testing"

	"github.com/hupe1980/voicemesh/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScriptedModel_PlaysTurnsInOrder(t *testing.T) {
	m := NewScriptedModel(
		ScriptedTurn{Chunks: TextChunks("Hel", "lo")},
		ScriptedTurn{Chunks: TextChunks("second")},
	)

	ctx := context.Background()
	req := Request{SessionID: "s1", Messages: []core.Message{core.NewUserMessage("hi")}}

	text, err := Complete(ctx, m, req)
	require.NoError(t, err)
	assert.Equal(t, "Hello", text)

	text, err = Complete(ctx, m, req)
	require.NoError(t, err)
	assert.Equal(t, "second", text)

	_, err = Complete(ctx, m, req)
	assert.Error(t, err)
	assert.Len(t, m.Requests(), 3)
}

func TestScriptedModel_StreamNoToolsDropsTools(t *testing.T) {
	m := NewScriptedModel(ScriptedTurn{Chunks: TextChunks("ok")})
	req := Request{Tools: []ToolDefinition{NewToolDefinition("x", "y", nil)}}

	_, err := Complete(context.Background(), m, req)
	require.NoError(t, err)
	assert.Empty(t, m.Requests()[0].Tools)
}

func TestCollect_PropagatesError(t *testing.T) {
	boom := errors.New("boom")
	m := NewScriptedModel(ScriptedTurn{Chunks: TextChunks("partial"), Err: boom})

	text, err := Complete(context.Background(), m, Request{})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "partial", text)
}

func TestToolCallChunks(t *testing.T) {
	chunks := ToolCallChunks("call_1", "quiz", `{"a`, `":1,"b"`, `:2}`)
	require.Len(t, chunks, 3)
	assert.Equal(t, "call_1", chunks[0].ToolCall.ID)
	assert.Equal(t, "quiz", chunks[0].ToolCall.Name)
	assert.Empty(t, chunks[1].ToolCall.ID)
	assert.Equal(t, `:2}`, chunks[2].ToolCall.Arguments)
}

func TestNewToolDefinition_DefaultsSchema(t *testing.T) {
	def := NewToolDefinition("exit_agent", "leave", nil)
	assert.Equal(t, "function", def.Type)
	assert.Equal(t, "object", def.Function.Parameters["type"])
}
