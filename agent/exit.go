package agent

import (
	"fmt"

	"github.com/hupe1980/voicemesh/core"
	"github.com/hupe1980/voicemesh/tool"
)

// ExitToolName is the mandatory tool every agent registers to deactivate itself.
const ExitToolName = "exit_agent"

// NewExitTool builds the exit_agent tool for the agent shown as displayName.
//
// When fired it snapshots the agent dialogue for memory, clears the active
// agent, clears the agent dialogue and pushes confirmation into the outer
// dialogue as a user message. The model sees the exit in the next outer turn.
func NewExitTool(displayName, confirmation string) tool.Tool {
	if confirmation == "" {
		confirmation = fmt.Sprintf("Exited %s.", displayName)
	}

	desc := fmt.Sprintf(
		"Exit the %[1]s feature - call when the user wants to leave %[1]s or no longer wants to use it. "+
			"Make sure the user really intends to exit %[1]s.", displayName)

	return tool.NewFunctionTool(ExitToolName, desc, nil, func(tc *core.ToolContext, _ map[string]any) (core.ActionResult, error) {
		if a := tc.Agent(); a != nil {
			a.SaveMemory()
		}

		if sess := tc.Session(); sess != nil {
			sess.ClearActiveAgent()
			sess.AgentDialogue().Clear()
			sess.Dialogue().Append(core.NewUserMessage(confirmation))
		}

		tc.Logger().Info("agent.exit", "agent", tc.AgentName(), "session_id", tc.SessionID())

		return core.Respond(confirmation), nil
	})
}
