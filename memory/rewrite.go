package memory

import (
	"context"
	"strings"

	"github.com/hupe1980/voicemesh/core"
	"github.com/hupe1980/voicemesh/internal/util"
	"github.com/hupe1980/voicemesh/logging"
	"github.com/hupe1980/voicemesh/model"
)

// RewriteTurns is how many recent turns feed the rewrite prompt.
const RewriteTurns = 5

const rewritePrompt = `You are a retrieval assistant for a reading companion. Rewrite the user's
latest question into a standalone query that is easy to search for.

Current query: {{.Query}}
Dialogue history:
{{.History}}

Rules:
1. Replace pronouns (he, she, it, this, that) with the concrete person or thing from the history.
2. Add the context needed to make the query specific.
3. Keep the intent of the question.
4. Output only the rewritten query.

Rewritten query:`

const rewritePrefix = "Rewritten query:"

// QueryRewriter turns a context-dependent user question into a standalone
// retrieval query with a plain model completion.
type QueryRewriter struct {
	model  model.Model
	logger logging.Logger
}

// NewQueryRewriter creates a rewriter. A nil model disables rewriting.
func NewQueryRewriter(m model.Model, logger logging.Logger) *QueryRewriter {
	return &QueryRewriter{model: m, logger: logging.OrNoOp(logger)}
}

// Rewrite returns the rewritten query, or query itself when there is no
// history or the model fails.
func (r *QueryRewriter) Rewrite(ctx context.Context, query string, history []core.Message) string {
	if r == nil || r.model == nil {
		return query
	}

	transcript := historyText(history)
	if transcript == "" {
		return query
	}

	prompt, err := util.RenderPrompt(rewritePrompt, map[string]string{"Query": query, "History": transcript})
	if err != nil {
		r.logger.Warn("memory.rewrite.failed", "error", err.Error())
		return query
	}

	out, err := model.Complete(ctx, r.model, model.Request{Messages: []core.Message{
		core.NewSystemMessage(prompt),
		core.NewUserMessage("Please rewrite the query."),
	}})
	if err != nil {
		r.logger.Warn("memory.rewrite.failed", "error", err.Error())
		return query
	}

	out = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(out), rewritePrefix))
	if out == "" {
		return query
	}

	r.logger.Debug("memory.rewrite.done", "query", query, "rewritten", out)

	return out
}

// historyText renders the last RewriteTurns turns of user and assistant text.
func historyText(history []core.Message) string {
	if len(history) > RewriteTurns*2 {
		history = history[len(history)-RewriteTurns*2:]
	}

	var b strings.Builder

	for _, m := range history {
		if m.Content == "" {
			continue
		}

		switch m.Role {
		case core.RoleUser:
			b.WriteString("User: " + m.Content + "\n")
		case core.RoleAssistant:
			b.WriteString("Assistant: " + m.Content + "\n")
		}
	}

	return strings.TrimRight(b.String(), "\n")
}
