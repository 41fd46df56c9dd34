package openai

import (
	"testing"

	"github.com/hupe1980/voicemesh/core"
	"github.com/hupe1980/voicemesh/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ model.Model = (*Model)(nil)

func TestBuildMessages_ToolCallRoundTrip(t *testing.T) {
	msgs := buildMessages([]core.Message{
		core.NewSystemMessage("prompt"),
		core.NewUserMessage("catch a bottle"),
		core.NewToolCallMessage(core.ToolCall{ID: "call_1", Name: "catch_bottle", Arguments: `{"num":1}`}),
		core.NewToolResultMessage("call_1", "bottle list"),
	})

	require.Len(t, msgs, 4)
	require.NotNil(t, msgs[0].OfSystem)
	require.NotNil(t, msgs[1].OfUser)
	require.NotNil(t, msgs[2].OfAssistant)
	require.Len(t, msgs[2].OfAssistant.ToolCalls, 1)
	assert.Equal(t, "call_1", msgs[2].OfAssistant.ToolCalls[0].ID)
	assert.Equal(t, "catch_bottle", msgs[2].OfAssistant.ToolCalls[0].Function.Name)
	require.NotNil(t, msgs[3].OfTool)
	assert.Equal(t, "call_1", msgs[3].OfTool.ToolCallID)
}

func TestBuildParams_Tools(t *testing.T) {
	m := NewModel(func(o *Options) {
		o.Model = "gpt-4o-mini"
		o.APIKey = "test"
	})

	req := model.Request{
		SessionID: "s1",
		Messages:  []core.Message{core.NewUserMessage("hi")},
		Tools:     []model.ToolDefinition{model.NewToolDefinition("exit_agent", "leave", nil)},
	}

	withTools := m.buildParams(req, true)
	require.Len(t, withTools.Tools, 1)
	assert.Equal(t, "exit_agent", withTools.Tools[0].Function.Name)

	noTools := m.buildParams(req, false)
	assert.Empty(t, noTools.Tools)
	assert.Equal(t, "openai", m.Info().Provider)
}
