package model

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/hupe1980/voicemesh/core"
)

// ToolDefinition declaratively exposes a callable function to the model.
type ToolDefinition struct {
	Type     string             `json:"type"` // "function"
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition describes an individual function (tool) exposed to the model.
// Parameters is a JSON Schema object (draft agnostic, minimal subset expected).
type FunctionDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"` // JSON Schema
}

// NewToolDefinition builds a function tool definition. A nil parameters
// schema becomes an empty object schema.
func NewToolDefinition(name, description string, parameters map[string]any) ToolDefinition {
	if parameters == nil {
		parameters = map[string]any{"type": "object", "properties": map[string]any{}, "required": []string{}}
	}

	return ToolDefinition{
		Type:     "function",
		Function: FunctionDefinition{Name: name, Description: description, Parameters: parameters},
	}
}

// Request is the provider-agnostic model input.
type Request struct {
	SessionID string           `json:"session_id"`
	Messages  []core.Message   `json:"messages"`
	Tools     []ToolDefinition `json:"tools,omitempty"`
}

// ToolCallDelta is one raw streamed fragment of a tool call. ID and Name are
// usually only present on the first fragment of a call; Arguments must be
// concatenated in arrival order.
type ToolCallDelta struct {
	Index     int    `json:"index"`
	ID        string `json:"id,omitempty"`
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}

// Chunk is one streamed element: a text fragment, a tool-call fragment, or both.
type Chunk struct {
	Text     string         `json:"text,omitempty"`
	ToolCall *ToolCallDelta `json:"tool_call,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"` // "openai", "anthropic", "scripted", etc.
	SupportsTools bool   `json:"supports_tools"`
}

// Model is the provider contract used by agents. Both methods stream chunks
// until the response ends; the error channel carries at most one error and
// both channels are closed when the stream is done.
type Model interface {
	// StreamWithTools streams a function-calling completion.
	StreamWithTools(ctx context.Context, req Request) (<-chan Chunk, <-chan error)

	// StreamNoTools streams a plain completion; req.Tools is ignored.
	StreamNoTools(ctx context.Context, req Request) (<-chan Chunk, <-chan error)

	// Info returns information about the model implementation.
	Info() Info
}

// Collect drains a stream and returns the concatenated text.
func Collect(ctx context.Context, chunks <-chan Chunk, errs <-chan error) (string, error) {
	var b strings.Builder

	for chunks != nil || errs != nil {
		select {
		case <-ctx.Done():
			return b.String(), ctx.Err()
		case ck, ok := <-chunks:
			if !ok {
				chunks = nil
				continue
			}

			b.WriteString(ck.Text)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}

			if err != nil {
				return b.String(), err
			}
		}
	}

	return b.String(), nil
}

// Complete runs a plain completion and returns the full text.
func Complete(ctx context.Context, m Model, req Request) (string, error) {
	chunks, errs := m.StreamNoTools(ctx, req)
	return Collect(ctx, chunks, errs)
}

// ScriptedModel plays back one scripted turn per call, in order. It is
// useful for tests and examples.
type ScriptedModel struct {
	mu       sync.Mutex
	info     Info
	turns    []ScriptedTurn
	requests []Request
}

// ScriptedTurn is the outcome of one model call.
type ScriptedTurn struct {
	Chunks []Chunk
	Err    error
	// OnChunk, if set, runs after each chunk is delivered.
	OnChunk func(i int)
}

// NewScriptedModel creates a ScriptedModel replaying turns.
func NewScriptedModel(turns ...ScriptedTurn) *ScriptedModel {
	return &ScriptedModel{
		info:  Info{Name: "scripted", Provider: "scripted", SupportsTools: true},
		turns: turns,
	}
}

// Enqueue appends turns to the script.
func (m *ScriptedModel) Enqueue(turns ...ScriptedTurn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.turns = append(m.turns, turns...)
}

// Requests returns the requests received so far.
func (m *ScriptedModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Request, len(m.requests))
	copy(out, m.requests)

	return out
}

// StreamWithTools implements Model.
func (m *ScriptedModel) StreamWithTools(ctx context.Context, req Request) (<-chan Chunk, <-chan error) {
	return m.play(ctx, req)
}

// StreamNoTools implements Model.
func (m *ScriptedModel) StreamNoTools(ctx context.Context, req Request) (<-chan Chunk, <-chan error) {
	req.Tools = nil
	return m.play(ctx, req)
}

func (m *ScriptedModel) play(ctx context.Context, req Request) (<-chan Chunk, <-chan error) {
	out := make(chan Chunk)
	errCh := make(chan error, 1)

	m.mu.Lock()
	m.requests = append(m.requests, req)

	var (
		turn ScriptedTurn
		ok   bool
	)

	if len(m.turns) > 0 {
		turn, ok = m.turns[0], true
		m.turns = m.turns[1:]
	}
	m.mu.Unlock()

	go func() {
		defer close(out)
		defer close(errCh)

		if !ok {
			errCh <- fmt.Errorf("scripted model: no turn left for call %d", len(m.Requests()))
			return
		}

		for i, ck := range turn.Chunks {
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case out <- ck:
			}

			if turn.OnChunk != nil {
				turn.OnChunk(i)
			}
		}

		if turn.Err != nil {
			errCh <- turn.Err
		}
	}()

	return out, errCh
}

// Info implements Model.
func (m *ScriptedModel) Info() Info { return m.info }

// TextChunks splits texts into text-only chunks.
func TextChunks(texts ...string) []Chunk {
	out := make([]Chunk, len(texts))
	for i, t := range texts {
		out[i] = Chunk{Text: t}
	}

	return out
}

// ToolCallChunks streams a single tool call whose arguments arrive in the
// given fragments.
func ToolCallChunks(id, name string, fragments ...string) []Chunk {
	if len(fragments) == 0 {
		fragments = []string{""}
	}

	out := make([]Chunk, len(fragments))
	for i, f := range fragments {
		d := &ToolCallDelta{Arguments: f}
		if i == 0 {
			d.ID = id
			d.Name = name
		}

		out[i] = Chunk{ToolCall: d}
	}

	return out
}
