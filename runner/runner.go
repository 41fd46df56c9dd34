package runner

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"sync"

	"github.com/hupe1980/voicemesh/agent"
	"github.com/hupe1980/voicemesh/core"
	"github.com/hupe1980/voicemesh/engine"
	"github.com/hupe1980/voicemesh/logging"
	"github.com/hupe1980/voicemesh/model"
	"github.com/hupe1980/voicemesh/session"
)

// DefaultPrompt is the outer system prompt.
const DefaultPrompt = `You are a friendly voice assistant for young readers.
Answer briefly in plain spoken language.
When the user wants one of the activities offered as tools, call that tool instead of answering yourself.`

// Options holds dependency + configuration overrides passed to New().
type Options struct {
	// Model answers outer turns and every agent. Required.
	Model model.Model
	// Registry lists the agents offered in every session.
	Registry engine.Registry
	// Memory is handed to agents with long-term memory. Optional.
	Memory agent.Memory
	// SessionStore keeps live sessions addressable by id.
	SessionStore core.SessionStore
	// Prompt is the outer system prompt.
	Prompt string
	// MaxContinuationDepth is passed to every agent.
	MaxContinuationDepth int
	// FallbackText is yielded when a turn fails.
	FallbackText string
	// Callbacks receives agent lifecycle notifications. Optional.
	Callbacks *engine.CallbackManager
	// Logger provides structured logging.
	Logger logging.Logger
}

// Runner coordinates the outer turn loop of all sessions.
type Runner struct {
	model        model.Model
	registry     engine.Registry
	memory       agent.Memory
	sessionStore core.SessionStore
	prompt       string
	maxDepth     int
	fallback     string
	callbacks    *engine.CallbackManager
	logger       logging.Logger

	managers map[string]*engine.Manager
	mu       sync.RWMutex
}

// New constructs a Runner with optional overrides.
func New(optFns ...func(o *Options)) (*Runner, error) {
	opts := Options{
		SessionStore: session.NewInMemoryStore(),
		Prompt:       DefaultPrompt,
		FallbackText: agent.DefaultFallbackText,
		Logger:       logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Model == nil {
		return nil, errors.New("runner: model is required")
	}

	return &Runner{
		model:        opts.Model,
		registry:     opts.Registry,
		memory:       opts.Memory,
		sessionStore: opts.SessionStore,
		prompt:       opts.Prompt,
		maxDepth:     opts.MaxContinuationDepth,
		fallback:     opts.FallbackText,
		callbacks:    opts.Callbacks,
		logger:       logging.OrNoOp(opts.Logger),
		managers:     make(map[string]*engine.Manager),
	}, nil
}

// Open creates a session for user and loads its agents. An empty id is
// replaced by a generated one.
func (r *Runner) Open(ctx context.Context, id string, user *core.User) (*core.Session, error) {
	sess, err := r.sessionStore.Create(id, user)
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}

	m := engine.NewManager(r.registry, agent.Deps{
		Model:                r.model,
		Session:              sess,
		Memory:               r.memory,
		Logger:               r.logger,
		MaxContinuationDepth: r.maxDepth,
		FallbackText:         r.fallback,
	}, func(o *engine.Options) {
		o.Callbacks = r.callbacks
	})

	r.mu.Lock()
	r.managers[sess.ID] = m
	r.mu.Unlock()

	r.logger.Info("runner.session.open", "session_id", sess.ID, "agents", len(m.Names()))

	return sess, nil
}

// Manager returns the agent manager of an open session.
func (r *Runner) Manager(sessionID string) (*engine.Manager, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.managers[sessionID]

	return m, ok
}

// Abort interrupts the running turn of sess. Safe to call from any goroutine.
func (r *Runner) Abort(sess *core.Session) {
	sess.Abort()
	r.logger.Info("runner.turn.abort", "session_id", sess.ID, "agent", sess.ActiveAgent())
}

// Close cleans up the agents of sess and removes it from the store.
func (r *Runner) Close(ctx context.Context, sess *core.Session) error {
	r.mu.Lock()
	m, ok := r.managers[sess.ID]
	delete(r.managers, sess.ID)
	r.mu.Unlock()

	var errs []error

	if ok {
		if err := m.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	if err := r.sessionStore.Delete(sess.ID); err != nil && !errors.Is(err, core.ErrNotFound) {
		errs = append(errs, err)
	}

	r.logger.Info("runner.session.close", "session_id", sess.ID)

	return errors.Join(errs...)
}

// Shutdown closes every open session.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.mu.RLock()
	ids := make([]string, 0, len(r.managers))
	for id := range r.managers {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	var errs []error

	for _, id := range ids {
		sess, err := r.sessionStore.Get(id)
		if err != nil {
			sess = core.NewSession(id, nil)
		}

		if err := r.Close(ctx, sess); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// HandleTurn processes one user utterance and yields the reply as it
// streams. Failures are logged and end the turn with the fallback text.
func (r *Runner) HandleTurn(ctx context.Context, sess *core.Session, text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		sess.ResetAbort()

		m, ok := r.Manager(sess.ID)
		if !ok {
			r.logger.Error("runner.turn.no_session", "session_id", sess.ID)
			yield(r.fallback)

			return
		}

		user := core.NewUserMessage(text)
		sess.Dialogue().Append(user)

		if name := sess.ActiveAgent(); name != "" {
			sess.AgentDialogue().Append(user)
			r.runAgent(ctx, sess, m, name, yield)

			return
		}

		r.runOuter(ctx, sess, m, user, yield)
	}
}

// runAgent streams the active agent. Its reply is recorded in the outer
// dialogue unless the agent exited during the turn.
func (r *Runner) runAgent(ctx context.Context, sess *core.Session, m *engine.Manager, name string, yield func(string) bool) {
	seq, err := m.ExecuteTool(ctx, name, sess.AgentDialogue())
	if err != nil {
		r.logger.Error("runner.agent.failed", "session_id", sess.ID, "agent", name, "error", err.Error())

		if errors.Is(err, core.ErrNotFound) {
			sess.ClearActiveAgent()
			sess.AgentDialogue().Clear()
		}

		yield(r.fallback)

		return
	}

	var reply strings.Builder

	for text := range seq {
		reply.WriteString(text)

		if !yield(text) {
			return
		}
	}

	if sess.ActiveAgent() == name && reply.Len() > 0 {
		sess.Dialogue().Append(core.NewAssistantMessage(reply.String()))
	}
}

// runOuter lets the outer model answer or pick an agent.
func (r *Runner) runOuter(ctx context.Context, sess *core.Session, m *engine.Manager, user core.Message, yield func(string) bool) {
	d := sess.Dialogue()
	if r.prompt != "" {
		d.UpdateSystemMessage(r.prompt)
	}

	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	chunks, errs := r.model.StreamWithTools(streamCtx, model.Request{
		SessionID: sess.ID,
		Messages:  d.LLMView(""),
		Tools:     m.ListTools(),
	})

	out, err := r.consume(streamCtx, sess, chunks, errs, yield)

	switch {
	case errors.Is(err, errStopped):
		return
	case err != nil:
		r.logger.Error("runner.outer.failed", "session_id", sess.ID, "error", err.Error())
		yield(r.fallback)

		return
	case out.aborted:
		r.logger.Info("runner.turn.aborted", "session_id", sess.ID)
		return
	}

	if out.agent == "" {
		if out.text != "" {
			d.Append(core.NewAssistantMessage(out.text))
		}

		return
	}

	if !m.IsAgentTool(out.agent) {
		r.logger.Warn("runner.agent.unknown", "session_id", sess.ID, "agent", out.agent)

		text := fmt.Sprintf(agent.NotFoundText, out.agent)
		d.Append(core.NewAssistantMessage(text))
		yield(text)

		return
	}

	r.logger.Info("runner.agent.activate", "session_id", sess.ID, "agent", out.agent)

	sess.SetActiveAgent(out.agent)
	sess.AgentDialogue().Clear()
	sess.AgentDialogue().Append(user)

	r.runAgent(ctx, sess, m, out.agent, yield)
}
