// Package engine implements the Agent Manager: the per-session layer that
// instantiates every agent variant, presents each one to the outer
// conversation as a selectable tool ("meta-tool") and routes generation and
// suggestion requests to the matching agent.
//
// # Core Responsibilities
//
// Agent Discovery:
//   - Explicit Registry (agent name -> Factory) instead of name-based lookup
//   - Deterministic instantiation order (sorted by name)
//   - Per-agent failure isolation: a failing or panicking factory is logged
//     and skipped, the session still starts
//
// Routing:
//   - ListTools returns one model.ToolDefinition per loaded agent
//   - IsAgentTool tells the outer engine whether a tool call selects an agent
//   - ExecuteTool streams the agent's Generate output
//   - Suggest delegates to SuggestGenerate
//
// Lifecycle:
//   - Memory initialization right after construction
//   - Shutdown cleans up every agent and joins the errors
//   - Lifecycle callbacks (before/after agent, init, error) for
//     cross-cutting concerns such as logging and metrics
//
// # Architecture
//
//	┌──────────────────────────────────────────────────────┐
//	│               Outer conversation (runner)            │
//	├──────────────────────────────────────────────────────┤
//	│                     Manager                          │
//	│  ┌────────────┐ ┌─────────────┐ ┌─────────────────┐  │
//	│  │ ListTools  │ │ ExecuteTool │ │    Shutdown     │  │
//	│  └────────────┘ └─────────────┘ └─────────────────┘  │
//	├──────────────────────────────────────────────────────┤
//	│            Agents (one per variant)                  │
//	│  ┌────────────┐ ┌─────────────┐ ┌─────────────────┐  │
//	│  │ drift      │ │ reading     │ │ quiz  ...       │  │
//	│  │ bottle     │ │ partner     │ │ master          │  │
//	│  └────────────┘ └─────────────┘ └─────────────────┘  │
//	└──────────────────────────────────────────────────────┘
//
// # Usage
//
//	mgr := engine.NewManager(registry, agent.Deps{
//	    Model:   provider,
//	    Session: sess,
//	    Memory:  agentMemory,
//	    Logger:  logger,
//	})
//	defer mgr.Shutdown(ctx)
//
//	if mgr.IsAgentTool(call.Name) {
//	    seq, err := mgr.ExecuteTool(ctx, call.Name, sess.AgentDialogue())
//	    if err != nil {
//	        return err
//	    }
//	    for text := range seq {
//	        send(text)
//	    }
//	}
//
// # Error Handling
//
// Routing to an unknown agent is a caller bug (IsAgentTool must be checked
// first) and is reported as a *core.Error of kind core.ErrNotFound. Errors
// during generation never leave the agent; see package agent.
//
// # Thread Safety
//
// A Manager is bound to one session. Lookups are safe for concurrent use;
// generation for one session is expected to run one turn at a time.
package engine
