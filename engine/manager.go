package engine

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"
	"sync"

	"github.com/hupe1980/voicemesh/agent"
	"github.com/hupe1980/voicemesh/core"
	"github.com/hupe1980/voicemesh/logging"
	"github.com/hupe1980/voicemesh/model"
)

// Factory constructs one agent variant for a session.
type Factory func(deps agent.Deps) (agent.Agent, error)

// Registry maps agent names to their factories. It is populated once, as a
// map literal, at startup.
type Registry map[string]Factory

// Names returns the registered names in sorted order.
func (r Registry) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}

	slices.Sort(names)

	return names
}

// Options configures a Manager.
type Options struct {
	// Logger provides structured logging. Defaults to the logger in Deps.
	Logger logging.Logger

	// Callbacks receives lifecycle notifications. Optional.
	Callbacks *CallbackManager
}

// Manager owns the agents of one session.
//
// Concurrency Model:
//   - The agent set is fixed after NewManager and cleared by Shutdown
//   - Lookups take a read lock; Shutdown takes the write lock
type Manager struct {
	mu          sync.RWMutex
	agents      map[string]agent.Agent
	order       []string
	descriptors []model.ToolDefinition

	session   *core.Session
	logger    logging.Logger
	callbacks *CallbackManager
}

// NewManager instantiates every factory of registry with deps, in sorted name
// order, then initializes agent memory.
//
// Failure Policy:
//   - A session without user profile loads no agents (logged as warning)
//   - A factory error, a nil agent, a name mismatch or a panic skips that
//     agent only; the failure is logged and reported to OnError callbacks
func NewManager(registry Registry, deps agent.Deps, optFns ...func(o *Options)) *Manager {
	opts := Options{Logger: deps.Logger}

	for _, fn := range optFns {
		fn(&opts)
	}

	m := &Manager{
		agents:    make(map[string]agent.Agent, len(registry)),
		session:   deps.Session,
		logger:    logging.OrNoOp(opts.Logger),
		callbacks: opts.Callbacks,
	}

	if deps.Session == nil || deps.Session.User == nil {
		m.logger.Warn("manager.no_user", "reason", "session has no user profile, no agents loaded")
		return m
	}

	for _, name := range registry.Names() {
		a, err := m.build(name, registry[name], deps)
		if err != nil {
			m.logger.Error("manager.agent.init_failed", "agent", name, "error", err.Error())
			_ = m.notify(context.Background(), CallbackOnError, name, err)

			continue
		}

		if mi, ok := a.(agent.MemoryInitializer); ok {
			mi.InitMemory()
		}

		m.agents[name] = a
		m.order = append(m.order, name)
		m.descriptors = append(m.descriptors, a.Declaration())

		m.logger.Debug("manager.agent.loaded", "agent", name, "tools", a.Tools().Len())
		_ = m.notify(context.Background(), CallbackAgentInit, name, nil)
	}

	m.logger.Info("manager.ready", "session_id", deps.Session.ID, "agents", len(m.order))

	return m
}

func (m *Manager) build(name string, factory Factory, deps agent.Deps) (a agent.Agent, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	if factory == nil {
		return nil, errors.New("nil factory")
	}

	a, err = factory(deps)
	if err != nil {
		return nil, err
	}

	if a == nil {
		return nil, errors.New("factory returned nil agent")
	}

	if a.Name() != name {
		return nil, fmt.Errorf("factory built agent %q", a.Name())
	}

	return a, nil
}

// ListTools returns the descriptors of all loaded agents in stable order.
func (m *Manager) ListTools() []model.ToolDefinition {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return slices.Clone(m.descriptors)
}

// Names returns the names of all loaded agents in stable order.
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return slices.Clone(m.order)
}

// IsAgentTool reports whether name selects a loaded agent.
func (m *Manager) IsAgentTool(name string) bool {
	_, ok := m.Agent(name)
	return ok
}

// Agent returns the loaded agent called name.
func (m *Manager) Agent(name string) (agent.Agent, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.agents[name]

	return a, ok
}

// ExecuteTool routes a turn to the named agent and returns its text stream.
// An unknown name yields a NotFound *core.Error; a BeforeAgent callback
// error is returned as is.
func (m *Manager) ExecuteTool(ctx context.Context, name string, d *core.Dialogue) (iter.Seq[string], error) {
	a, ok := m.Agent(name)
	if !ok {
		return nil, core.NewNotFoundError("execute agent", name)
	}

	if err := m.notify(ctx, CallbackBeforeAgent, name, nil); err != nil {
		return nil, err
	}

	m.logger.Debug("manager.agent.execute", "agent", name, "messages", d.Len())

	return func(yield func(string) bool) {
		defer func() { _ = m.notify(ctx, CallbackAfterAgent, name, nil) }()

		for text := range a.Generate(ctx, d) {
			if !yield(text) {
				return
			}
		}
	}, nil
}

// Suggest routes a suggestion request to the named agent.
func (m *Manager) Suggest(ctx context.Context, name string, d *core.Dialogue) (string, error) {
	a, ok := m.Agent(name)
	if !ok {
		return "", core.NewNotFoundError("suggest", name)
	}

	return a.SuggestGenerate(ctx, d)
}

// Shutdown cleans up every agent, even when some fail, and returns the joined
// errors. The manager holds no agents afterwards.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	agents, order := m.agents, m.order
	m.agents = map[string]agent.Agent{}
	m.order = nil
	m.descriptors = nil
	m.mu.Unlock()

	var errs []error

	for _, name := range order {
		if err := cleanup(ctx, agents[name]); err != nil {
			m.logger.Error("manager.shutdown.error", "agent", name, "error", err.Error())
			_ = m.notify(ctx, CallbackOnError, name, err)

			errs = append(errs, fmt.Errorf("agent %s: %w", name, err))
		}
	}

	return errors.Join(errs...)
}

func cleanup(ctx context.Context, a agent.Agent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	return a.Cleanup(ctx)
}

func (m *Manager) notify(ctx context.Context, t CallbackType, name string, cause error) error {
	if m.callbacks == nil {
		return nil
	}

	var sessionID string
	if m.session != nil {
		sessionID = m.session.ID
	}

	return m.callbacks.ExecuteCallbacks(ctx, t, &CallbackContext{
		SessionID:    sessionID,
		AgentName:    name,
		CallbackType: t,
		Err:          cause,
	})
}
