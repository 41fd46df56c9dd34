package agent

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/hupe1980/voicemesh/core"
	"github.com/hupe1980/voicemesh/model"
)

// errStopped signals that the consumer of Generate stopped iterating.
var errStopped = errors.New("consumer stopped")

// emitFunc forwards text to the consumer and reports whether to continue.
type emitFunc func(text string) bool

// Generate implements Agent. It runs the function-calling loop for one user
// turn on d and yields assistant text as it streams in.
//
// Failures never surface as errors: a provider error, a panic or an exceeded
// continuation depth is logged and becomes one fallback text chunk. A panic
// raised by the consumer itself is propagated unchanged.
func (b *Base) Generate(ctx context.Context, d *core.Dialogue) iter.Seq[string] {
	return func(yield func(string) bool) {
		var (
			inYield bool
			stopped bool
		)

		emit := func(text string) bool {
			if stopped {
				return false
			}

			inYield = true
			ok := yield(text)
			inYield = false

			if !ok {
				stopped = true
			}

			return ok
		}

		defer func() {
			r := recover()
			if r == nil {
				return
			}

			if inYield {
				panic(r)
			}

			b.logger.Error("agent.generate.panic", "agent", b.name, "panic", fmt.Sprint(r))
			emit(b.fallback)
		}()

		b.logger.Debug("agent.generate.start", "agent", b.name, "messages", d.Len())

		limiter := core.NewContinuationLimiter(b.maxDepth)

		err := b.generate(ctx, d, limiter, emit)
		switch {
		case err == nil, errors.Is(err, errStopped):
		default:
			b.logger.Error("agent.generate.failed", "agent", b.name, "error", err.Error())
			emit(b.fallback)
		}

		b.logger.Debug("agent.generate.done", "agent", b.name, "continuations", limiter.Count())
	}
}

// generate runs one model pass and interprets its outcome. A continuation
// recurses with the extended dialogue.
func (b *Base) generate(ctx context.Context, d *core.Dialogue, limiter *core.ContinuationLimiter, emit emitFunc) error {
	if d.Len() < core.MinTurnsForPrompt {
		d.UpdateSystemMessage(b.prompt)
	}

	knowledge := b.retrieveKnowledge(ctx, d)

	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	chunks, errs := b.model.StreamWithTools(streamCtx, model.Request{
		SessionID: b.session.ID,
		Messages:  d.LLMView(knowledge),
		Tools:     b.tools.Declarations(),
	})

	out, err := b.consume(streamCtx, chunks, errs, emit)
	if err != nil {
		return err
	}

	if out.aborted {
		b.logger.Info("agent.generate.aborted", "agent", b.name)
		return nil
	}

	if out.call == nil {
		if out.text != "" {
			d.Append(core.NewAssistantMessage(out.text))
		}

		return nil
	}

	// Abort may land between the last fragment and dispatch.
	if b.session.Aborted() {
		b.logger.Info("agent.generate.aborted", "agent", b.name, "tool", out.call.Name)
		return nil
	}

	res := b.dispatch(ctx, *out.call)

	return b.interpret(ctx, d, limiter, *out.call, res, emit)
}

// retrieveKnowledge runs the memory hook on the latest user message. Hook
// failures are logged and yield no knowledge.
func (b *Base) retrieveKnowledge(ctx context.Context, d *core.Dialogue) string {
	if b.hook == nil {
		return ""
	}

	latest, ok := d.LastUserMessage()
	if !ok {
		return ""
	}

	knowledge, err := b.hook(ctx, latest)
	if err != nil {
		b.logger.Warn("memory.query.failed", "agent", b.name, "error", core.NewPersistenceError("query", err).Error())
		return ""
	}

	return knowledge
}

type streamOutcome struct {
	text    string
	call    *core.ToolCall
	aborted bool
}

// accumulator collects the fragments of the first tool call in a stream.
type accumulator struct {
	seen  bool
	index int
	id    string
	name  string
	args  strings.Builder
}

func (a *accumulator) add(d *model.ToolCallDelta) bool {
	if a.seen && d.Index != a.index {
		return false
	}

	if !a.seen {
		a.seen = true
		a.index = d.Index
	}

	if a.id == "" && d.ID != "" {
		a.id = d.ID
	}

	if a.name == "" && d.Name != "" {
		a.name = d.Name
	}

	a.args.WriteString(d.Arguments)

	return true
}

func (a *accumulator) call() *core.ToolCall {
	if !a.seen || a.name == "" {
		return nil
	}

	id := a.id
	if id == "" {
		id = "call_" + core.NewID()
	}

	return &core.ToolCall{ID: id, Name: a.name, Arguments: a.args.String()}
}

// consume reads the stream to its end, forwarding text immediately and
// accumulating the tool call. The session abort flag is polled before every
// fragment and once after the stream ends.
func (b *Base) consume(ctx context.Context, chunks <-chan model.Chunk, errs <-chan error, emit emitFunc) (streamOutcome, error) {
	var (
		acc  accumulator
		text strings.Builder
	)

	for chunks != nil || errs != nil {
		select {
		case <-ctx.Done():
			return streamOutcome{aborted: true}, nil
		case ck, ok := <-chunks:
			if !ok {
				chunks = nil
				continue
			}

			if b.session.Aborted() {
				return streamOutcome{aborted: true}, nil
			}

			if ck.Text != "" {
				if !emit(ck.Text) {
					return streamOutcome{}, errStopped
				}

				text.WriteString(ck.Text)
			}

			if ck.ToolCall != nil && !acc.add(ck.ToolCall) {
				b.logger.Debug("agent.tool.extra_call_ignored", "agent", b.name, "index", ck.ToolCall.Index)
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}

			if err != nil {
				// A stream failing because the turn was cancelled is an abort.
				if ctx.Err() != nil || b.session.Aborted() {
					return streamOutcome{aborted: true}, nil
				}

				if !errors.Is(err, core.ErrProvider) {
					err = core.NewProviderError(b.model.Info().Provider, err)
				}

				return streamOutcome{}, err
			}
		}
	}

	if b.session.Aborted() {
		return streamOutcome{aborted: true}, nil
	}

	return streamOutcome{text: text.String(), call: acc.call()}, nil
}

// interpret applies the action state machine to a tool result.
func (b *Base) interpret(
	ctx context.Context,
	d *core.Dialogue,
	limiter *core.ContinuationLimiter,
	call core.ToolCall,
	res core.ActionResult,
	emit emitFunc,
) error {
	switch res.Kind {
	case core.ActionRespond:
		text := res.Text()
		if text == "" {
			return nil
		}

		// exit_agent has already cleared the agent dialogue.
		if call.Name != ExitToolName {
			d.Append(core.NewAssistantMessage(text))
		}

		if !emit(text) {
			return errStopped
		}

		return nil
	case core.ActionRequestLLM:
		if res.Result == "" {
			return nil
		}

		d.Append(core.NewToolCallMessage(call), core.NewToolResultMessage(call.ID, res.Result))

		if err := limiter.Increment(); err != nil {
			b.logger.Warn("agent.continuation.limit", "agent", b.name, "tool", call.Name, "error", err.Error())

			if !emit(b.fallback) {
				return errStopped
			}

			return nil
		}

		if b.session.Aborted() {
			b.logger.Info("agent.generate.aborted", "agent", b.name, "tool", call.Name)
			return nil
		}

		b.logger.Debug("agent.continuation",
			"agent", b.name,
			"tool", call.Name,
			"depth", limiter.Count(),
			"remaining", limiter.Remaining(),
		)

		return b.generate(ctx, d, limiter, emit)
	case core.ActionNotFound, core.ActionError:
		if res.Result == "" {
			return nil
		}

		d.Append(core.NewAssistantMessage(res.Result))

		if !emit(res.Result) {
			return errStopped
		}

		return nil
	default:
		return nil
	}
}
