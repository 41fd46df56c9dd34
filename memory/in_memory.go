package memory

import (
	"context"
	"sync"
	"time"

	"github.com/hupe1980/voicemesh/core"
)

// InMemoryStore is a naive process-local MemoryStore.
//
// Concurrency: protected by RWMutex.
// Query: linear scan with case-insensitive term matching, newest first.
// Suitable only for tests / demos; use memory/postgres or memory/mongo for
// anything that must survive a restart.
type InMemoryStore struct {
	mu      sync.RWMutex
	storage map[core.MemoryScope]map[string]core.MemoryRecord
	now     func() time.Time
}

// NewInMemoryStore creates a new in-memory memory store
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		storage: make(map[core.MemoryScope]map[string]core.MemoryRecord),
		now:     time.Now,
	}
}

// Save upserts the records derived from msgs. Existing records keep their
// creation time.
func (m *InMemoryStore) Save(ctx context.Context, scope core.MemoryScope, msgs []core.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	recs := Records(scope, msgs, m.now())

	m.mu.Lock()
	defer m.mu.Unlock()

	bucket, exists := m.storage[scope]
	if !exists {
		bucket = make(map[string]core.MemoryRecord, len(recs))
		m.storage[scope] = bucket
	}

	for _, r := range recs {
		if old, ok := bucket[r.ID]; ok {
			r.CreatedAt = old.CreatedAt
		}

		bucket[r.ID] = r
	}

	return nil
}

// Query returns up to limit records of scope matching any term of text.
func (m *InMemoryStore) Query(ctx context.Context, scope core.MemoryScope, text string, limit int) ([]core.MemoryRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	terms := Terms(text)

	m.mu.RLock()
	results := make([]core.MemoryRecord, 0, len(m.storage[scope]))
	for _, r := range m.storage[scope] {
		if Matches(r.Content, terms) {
			results = append(results, r)
		}
	}
	m.mu.RUnlock()

	SortNewestFirst(results)

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	return results, nil
}

// Len returns the number of records stored for scope.
func (m *InMemoryStore) Len(scope core.MemoryScope) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.storage[scope])
}

// Delete removes every record of scope.
func (m *InMemoryStore) Delete(scope core.MemoryScope) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.storage, scope)
}
