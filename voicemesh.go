// Package voicemesh provides a high-level facade over the runner, the agent
// manager and the memory services, enabling a voice front end to host
// conversational agents with a handful of calls:
//  1. Creating a VoiceMesh via New() (optionally overriding default in-memory services)
//  2. Opening one session per connection (Open)
//  3. Streaming replies per user utterance (HandleTurn) and interrupting them (Abort)
//  4. Closing sessions and finally draining background memory saves (Shutdown)
//
// All defaults are safe for local development and testing; production
// deployments typically supply a durable MemoryStore and a structured logger.
package voicemesh

import (
	"context"
	"errors"
	"iter"
	"strings"

	"github.com/hupe1980/voicemesh/agent"
	"github.com/hupe1980/voicemesh/agents/driftbottle"
	"github.com/hupe1980/voicemesh/agents/quizmaster"
	"github.com/hupe1980/voicemesh/agents/readingpartner"
	"github.com/hupe1980/voicemesh/agents/scriptmurder"
	"github.com/hupe1980/voicemesh/core"
	"github.com/hupe1980/voicemesh/engine"
	"github.com/hupe1980/voicemesh/internal/bizapi"
	"github.com/hupe1980/voicemesh/logging"
	"github.com/hupe1980/voicemesh/memory"
	"github.com/hupe1980/voicemesh/model"
	"github.com/hupe1980/voicemesh/runner"
	"github.com/hupe1980/voicemesh/session"
)

// Options configures the VoiceMesh instance.
type Options struct {
	// Model answers the outer conversation and every agent. Required.
	Model model.Model

	// Registry lists the agents offered per session. Defaults to
	// DefaultRegistry without business API agents.
	Registry engine.Registry

	// Stores (defaults to in-memory implementations if not provided)
	SessionStore core.SessionStore
	MemoryStore  core.MemoryStore

	// Saver sizes the background memory save pool.
	Saver memory.SaverOptions

	// Prompt overrides the outer system prompt.
	Prompt string

	// MaxContinuationDepth bounds tool-result continuations per turn.
	MaxContinuationDepth int

	// FallbackText is spoken when a turn fails.
	FallbackText string

	// Callbacks receives agent lifecycle notifications. Optional.
	Callbacks *engine.CallbackManager

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// VoiceMesh is the high-level facade aggregating the runner and services.
type VoiceMesh struct {
	runner *runner.Runner
	saver  *memory.Saver
	memory *memory.AgentMemory
	logger logging.Logger
}

// New creates a new VoiceMesh instance with optional overrides. Any unset
// service is initialized with an in-memory implementation.
func New(optFns ...func(o *Options)) (*VoiceMesh, error) {
	opts := Options{
		SessionStore: session.NewInMemoryStore(),
		MemoryStore:  memory.NewInMemoryStore(),
		Prompt:       runner.DefaultPrompt,
		FallbackText: agent.DefaultFallbackText,
		Logger:       logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Model == nil {
		return nil, errors.New("voicemesh: model is required")
	}

	if opts.Registry == nil {
		opts.Registry = DefaultRegistry(nil, memory.NewQueryRewriter(opts.Model, opts.Logger))
	}

	saverOpts := opts.Saver
	if saverOpts.Logger == nil {
		saverOpts.Logger = opts.Logger
	}

	saver := memory.NewSaver(func(o *memory.SaverOptions) {
		if saverOpts.Workers > 0 {
			o.Workers = saverOpts.Workers
		}

		if saverOpts.Queue > 0 {
			o.Queue = saverOpts.Queue
		}

		if saverOpts.Timeout > 0 {
			o.Timeout = saverOpts.Timeout
		}

		o.Logger = saverOpts.Logger
	})

	mem := memory.NewAgentMemory(opts.MemoryStore, saver, opts.Logger)

	r, err := runner.New(func(o *runner.Options) {
		o.Model = opts.Model
		o.Registry = opts.Registry
		o.Memory = mem
		o.SessionStore = opts.SessionStore
		o.Prompt = opts.Prompt
		o.MaxContinuationDepth = opts.MaxContinuationDepth
		o.FallbackText = opts.FallbackText
		o.Callbacks = opts.Callbacks
		o.Logger = opts.Logger
	})
	if err != nil {
		return nil, err
	}

	return &VoiceMesh{runner: r, saver: saver, memory: mem, logger: logging.OrNoOp(opts.Logger)}, nil
}

// DefaultRegistry returns the built-in agents. Agents backed by the business
// API are only included when api is non-nil; rewriter may be nil.
func DefaultRegistry(api *bizapi.Client, rewriter readingpartner.Rewriter) engine.Registry {
	reg := engine.Registry{
		scriptmurder.Name: func(deps agent.Deps) (agent.Agent, error) {
			return scriptmurder.New(deps)
		},
		readingpartner.Name: func(deps agent.Deps) (agent.Agent, error) {
			return readingpartner.New(deps, rewriter)
		},
	}

	if api != nil {
		reg[driftbottle.Name] = func(deps agent.Deps) (agent.Agent, error) {
			return driftbottle.New(deps, api)
		}
		reg[quizmaster.Name] = func(deps agent.Deps) (agent.Agent, error) {
			return quizmaster.New(deps, api)
		}
	}

	return reg
}

// Runner exposes the underlying runner.
func (v *VoiceMesh) Runner() *runner.Runner { return v.runner }

// Memory exposes the agent memory service.
func (v *VoiceMesh) Memory() *memory.AgentMemory { return v.memory }

// Open creates a session for user. An empty id is generated.
func (v *VoiceMesh) Open(ctx context.Context, id string, user *core.User) (*core.Session, error) {
	return v.runner.Open(ctx, id, user)
}

// HandleTurn streams the reply to one user utterance.
func (v *VoiceMesh) HandleTurn(ctx context.Context, sess *core.Session, text string) iter.Seq[string] {
	return v.runner.HandleTurn(ctx, sess, text)
}

// Ask is a synchronous helper that drains HandleTurn and returns the full reply.
func (v *VoiceMesh) Ask(ctx context.Context, sess *core.Session, text string) (string, error) {
	var b strings.Builder

	for chunk := range v.runner.HandleTurn(ctx, sess, text) {
		b.WriteString(chunk)
	}

	return b.String(), ctx.Err()
}

// Abort interrupts the running turn of sess.
func (v *VoiceMesh) Abort(sess *core.Session) { v.runner.Abort(sess) }

// Close ends a session. Agents still active save their memory.
func (v *VoiceMesh) Close(ctx context.Context, sess *core.Session) error {
	return v.runner.Close(ctx, sess)
}

// Shutdown closes every session and waits for pending memory saves until ctx
// is done.
func (v *VoiceMesh) Shutdown(ctx context.Context) error {
	err := v.runner.Shutdown(ctx)

	if serr := v.saver.Close(ctx); serr != nil {
		v.logger.Warn("voicemesh.shutdown.saver", "error", serr.Error())
		err = errors.Join(err, serr)
	}

	return err
}
