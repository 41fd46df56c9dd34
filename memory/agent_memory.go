package memory

import (
	"context"

	"github.com/hupe1980/voicemesh/core"
	"github.com/hupe1980/voicemesh/logging"
)

// AgentMemory connects agents to a MemoryStore. Saves go through the Saver;
// queries run synchronously and come back formatted for the prompt.
type AgentMemory struct {
	store  core.MemoryStore
	saver  *Saver
	logger logging.Logger
}

// NewAgentMemory creates the glue between store and saver.
func NewAgentMemory(store core.MemoryStore, saver *Saver, logger logging.Logger) *AgentMemory {
	return &AgentMemory{store: store, saver: saver, logger: logging.OrNoOp(logger)}
}

// SaveAsync copies msgs and persists them in the background. Dialogues shorter
// than MinSaveMessages are skipped.
func (m *AgentMemory) SaveAsync(scope core.MemoryScope, msgs []core.Message) {
	if len(msgs) < MinSaveMessages {
		m.logger.Debug("memory.save.skipped", "agent", scope.Agent, "messages", len(msgs))
		return
	}

	snapshot := make([]core.Message, len(msgs))
	copy(snapshot, msgs)

	m.saver.Submit("save:"+scope.Agent, func(ctx context.Context) error {
		if err := m.store.Save(ctx, scope, snapshot); err != nil {
			return core.NewPersistenceError("save", err)
		}

		return nil
	})
}

// Query returns up to limit snippets for text, newest first, one per line.
func (m *AgentMemory) Query(ctx context.Context, scope core.MemoryScope, text string, limit int) (string, error) {
	recs, err := m.store.Query(ctx, scope, text, limit)
	if err != nil {
		return "", core.NewPersistenceError("query", err)
	}

	return Format(recs), nil
}
