package core

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialogue_UpdateSystemMessage(t *testing.T) {
	d := NewDialogue(NewUserMessage("hi"))

	d.UpdateSystemMessage("prompt v1")
	require.Equal(t, 2, d.Len())
	assert.Equal(t, NewSystemMessage("prompt v1"), d.Messages()[0])

	d.UpdateSystemMessage("prompt v2")
	msgs := d.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "prompt v2", msgs[0].Content)
	assert.Equal(t, RoleUser, msgs[1].Role)
}

func TestDialogue_MessagesAreCopies(t *testing.T) {
	d := NewDialogue(NewToolCallMessage(ToolCall{ID: "c1", Name: "quiz", Arguments: "{}"}))

	msgs := d.Messages()
	msgs[0].ToolCalls[0].Name = "changed"
	msgs[0].Content = "changed"

	again := d.Messages()
	assert.Equal(t, "quiz", again[0].ToolCalls[0].Name)
	assert.Empty(t, again[0].Content)
}

func TestDialogue_SnapshotIsIndependent(t *testing.T) {
	d := NewDialogue(NewUserMessage("a"), NewAssistantMessage("b"))
	snap := d.Snapshot()

	d.Clear()
	d.Append(NewUserMessage("c"))

	assert.Equal(t, 2, snap.Len())
	assert.Equal(t, 1, d.Len())
}

func TestDialogue_LastUserMessage(t *testing.T) {
	d := NewDialogue()
	_, ok := d.LastUserMessage()
	assert.False(t, ok)

	d.Append(NewUserMessage("first"), NewAssistantMessage("reply"), NewUserMessage("second"), NewAssistantMessage("again"))
	m, ok := d.LastUserMessage()
	require.True(t, ok)
	assert.Equal(t, "second", m.Content)
}

func TestDialogue_LLMViewDoesNotMutate(t *testing.T) {
	d := NewDialogue(NewSystemMessage("prompt"), NewUserMessage("what did I read?"))

	view := d.LLMView("- [2024-01-01 10:00:00] read a book about whales")
	assert.Contains(t, view[0].Content, "read a book about whales")
	assert.Equal(t, "prompt", d.Messages()[0].Content)

	plain := d.LLMView("   ")
	assert.Equal(t, "prompt", plain[0].Content)
}

func TestDialogue_Transcript(t *testing.T) {
	d := NewDialogue(
		NewSystemMessage("prompt"),
		NewUserMessage("hello"),
		NewToolCallMessage(ToolCall{ID: "1", Name: "x"}),
		NewToolResultMessage("1", "raw"),
		NewAssistantMessage("hi there"),
	)

	assert.Equal(t, "user: hello\nassistant: hi there\n", d.Transcript())
}

func TestDialogue_ConcurrentAppend(t *testing.T) {
	d := NewDialogue()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.Append(NewUserMessage("x"))
			_ = d.Messages()
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, d.Len())
}
