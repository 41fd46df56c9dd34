// Package readingpartner implements the reading companion agent. It keeps
// long-term memory of earlier reading sessions and recalls relevant snippets
// before every answer.
package readingpartner

import (
	"context"

	"github.com/hupe1980/voicemesh/agent"
	"github.com/hupe1980/voicemesh/core"
)

// Name is the agent and meta-tool name.
const Name = "reading_partner"

// RecallLimit is the number of memory snippets recalled per turn.
const RecallLimit = 3

const prompt = `You are a warm reading partner for a young reader.
Read along with the user, talk about the characters and the plot, explain difficult words and ask small questions that keep them curious.
Use what you remember from earlier reading sessions when it helps, but never invent memories.
When the user wants to stop reading, call exit_agent.`

const description = "Read together with the user. Call when the user says 'read with me', " +
	"'reading mode' or wants to talk about a book they are reading."

// Rewriter turns a follow-up question into a self-contained search query.
type Rewriter interface {
	Rewrite(ctx context.Context, query string, history []core.Message) string
}

// Agent is the reading partner agent.
type Agent struct {
	*agent.Base
	rewriter Rewriter
}

// New creates a reading partner bound to deps.Session. rewriter may be nil,
// in which case the last user message is used as the memory query verbatim.
func New(deps agent.Deps, rewriter Rewriter) (*Agent, error) {
	base, err := agent.NewBase(agent.Config{
		Name:        Name,
		DisplayName: "reading partner",
		Description: description,
		Prompt:      prompt,
		Memory:      true,
	}, deps)
	if err != nil {
		return nil, err
	}

	a := &Agent{Base: base, rewriter: rewriter}
	base.SetMemoryHook(a.recall)

	return a, nil
}

// recall queries memory with the rewritten user message and falls back to
// the literal message when the rewritten query finds nothing.
func (a *Agent) recall(ctx context.Context, latest core.Message) (string, error) {
	if !a.MemoryEnabled() {
		return "", nil
	}

	query := latest.Content
	if a.rewriter != nil {
		query = a.rewriter.Rewrite(ctx, latest.Content, a.Session().AgentDialogue().Messages())
	}

	knowledge, err := a.QueryMemory(ctx, query, RecallLimit)
	if err != nil {
		return "", err
	}

	if knowledge == "" && query != latest.Content {
		a.Logger().Debug("agent.memory.fallback_query", "agent", a.Name())
		return a.QueryMemory(ctx, latest.Content, RecallLimit)
	}

	return knowledge, nil
}
