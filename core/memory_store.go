package core

import (
	"context"
	"time"
)

// MemoryScope addresses the long-term memory of one user within one agent.
type MemoryScope struct {
	UserID string
	Agent  string
}

// MemoryRecord is a stored memory snippet.
type MemoryRecord struct {
	ID        string
	Role      Role
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time
	// Seq is the position of the message within its saved dialogue. It
	// breaks timestamp ties, later messages first.
	Seq int
}

// Timestamp returns UpdatedAt, or CreatedAt when the record was never updated.
func (r MemoryRecord) Timestamp() time.Time {
	if r.UpdatedAt.IsZero() {
		return r.CreatedAt
	}

	return r.UpdatedAt
}

// MemoryStore persists dialogue content and retrieves relevant snippets.
// Save must be safe to retry with the same messages. Query returns at most
// limit records, most recent first.
type MemoryStore interface {
	Save(ctx context.Context, scope MemoryScope, msgs []Message) error
	Query(ctx context.Context, scope MemoryScope, text string, limit int) ([]MemoryRecord, error)
}
