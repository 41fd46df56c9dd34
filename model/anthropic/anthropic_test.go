package anthropic

import (
	"testing"

	"github.com/hupe1980/voicemesh/core"
	"github.com/hupe1980/voicemesh/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ model.Model = (*Model)(nil)

func TestBuildMessages_GroupsToolResults(t *testing.T) {
	msgs := buildMessages([]core.Message{
		core.NewSystemMessage("prompt"),
		core.NewUserMessage("how many bottles?"),
		core.NewToolCallMessage(core.ToolCall{ID: "toolu_1", Name: "get_user_status", Arguments: "{}"}),
		core.NewToolResultMessage("toolu_1", "3 replies"),
		core.NewAssistantMessage("You have 3 replies."),
	})

	require.Len(t, msgs, 4)
	assert.Equal(t, "user", string(msgs[0].Role))
	assert.Equal(t, "assistant", string(msgs[1].Role))
	assert.Equal(t, "user", string(msgs[2].Role))
	assert.Equal(t, "assistant", string(msgs[3].Role))
}

func TestSystemText(t *testing.T) {
	assert.Equal(t, "a\n\nb", systemText([]core.Message{
		core.NewSystemMessage("a"),
		core.NewUserMessage("x"),
		core.NewSystemMessage("b"),
	}))
}

func TestRequiredFields(t *testing.T) {
	assert.Equal(t, []string{"a"}, requiredFields([]string{"a"}))
	assert.Equal(t, []string{"a", "b"}, requiredFields([]any{"a", 1, "b"}))
	assert.Nil(t, requiredFields(nil))
}

func TestBuildTools(t *testing.T) {
	tools := buildTools([]model.ToolDefinition{
		model.NewToolDefinition("throw_bottle", "Throw a bottle", map[string]any{
			"type":       "object",
			"properties": map[string]any{"content": map[string]any{"type": "string"}},
			"required":   []any{"content"},
		}),
	})

	require.Len(t, tools, 1)
	require.NotNil(t, tools[0].OfTool)
	assert.Equal(t, "throw_bottle", tools[0].OfTool.Name)
	assert.Equal(t, []string{"content"}, tools[0].OfTool.InputSchema.Required)
}
