// Package agent provides the agent contract and the shared streaming
// function-calling loop that every conversational agent runs on.
//
// An agent bundles a system prompt, a tool registry and the generation
// algorithm. Concrete variants embed *Base and differ only in prompt, tools
// and an optional pre-turn memory hook:
//
//	b, err := agent.NewBase(agent.Config{
//	    Name:        "quiz_master",
//	    DisplayName: "quiz",
//	    Description: "Start a reading quiz",
//	    Prompt:      quizPrompt,
//	    Tools:       []tool.Tool{quizTool, answerTool},
//	}, deps)
//
//	for text := range b.Generate(ctx, session.AgentDialogue()) {
//	    send(text)
//	}
//
// Generate never returns errors to the caller. Provider failures, panics and
// an exceeded continuation depth are logged and turned into one fallback
// text chunk. Every agent carries the exit_agent tool, which is the only way
// an agent deactivates itself.
package agent
