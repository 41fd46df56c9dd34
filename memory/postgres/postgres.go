// Package postgres provides a core.MemoryStore backed by PostgreSQL through
// pgx connection pooling.
package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hupe1980/voicemesh/core"
	"github.com/hupe1980/voicemesh/memory"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS agent_memory (
    id         TEXT PRIMARY KEY,
    user_id    TEXT NOT NULL,
    agent      TEXT NOT NULL,
    role       TEXT NOT NULL,
    content    TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    seq        INTEGER NOT NULL DEFAULT 0
);
ALTER TABLE agent_memory ADD COLUMN IF NOT EXISTS seq INTEGER NOT NULL DEFAULT 0;
CREATE INDEX IF NOT EXISTS agent_memory_scope_updated ON agent_memory (user_id, agent, updated_at DESC, seq DESC);
`

const upsertSQL = `
INSERT INTO agent_memory (id, user_id, agent, role, content, created_at, updated_at, seq)
VALUES ($1, $2, $3, $4, $5, $6, $6, $7)
ON CONFLICT (id) DO UPDATE SET updated_at = EXCLUDED.updated_at, seq = EXCLUDED.seq
`

const querySQL = `
SELECT id, role, content, created_at, updated_at, seq
FROM agent_memory
WHERE user_id = $1 AND agent = $2
  AND (cardinality($3::text[]) = 0 OR content ILIKE ANY($3::text[]))
ORDER BY updated_at DESC, seq DESC
LIMIT $4
`

// Store implements core.MemoryStore on a pgx pool.
type Store struct {
	DB *pgxpool.Pool
}

// NewStore connects to Postgres and returns a Postgres-backed MemoryStore.
func NewStore(ctx context.Context, connStr string) (*Store, error) {
	db, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}

	return &Store{DB: db}, nil
}

// CreateSchema creates the memory table and index when missing.
func (s *Store) CreateSchema(ctx context.Context) error {
	_, err := s.DB.Exec(ctx, schemaSQL)
	return err
}

// Save upserts the records of msgs in one batch.
func (s *Store) Save(ctx context.Context, scope core.MemoryScope, msgs []core.Message) error {
	recs := memory.Records(scope, msgs, time.Now().UTC())
	if len(recs) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, r := range recs {
		batch.Queue(upsertSQL, r.ID, scope.UserID, scope.Agent, string(r.Role), r.Content, r.CreatedAt, r.Seq)
	}

	br := s.DB.SendBatch(ctx, batch)

	for range recs {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("upsert memory: %w", err)
		}
	}

	return br.Close()
}

// Query returns records whose content matches any term of text, newest first.
func (s *Store) Query(ctx context.Context, scope core.MemoryScope, text string, limit int) ([]core.MemoryRecord, error) {
	var lim any
	if limit > 0 {
		lim = limit
	}

	rows, err := s.DB.Query(ctx, querySQL, scope.UserID, scope.Agent, likePatterns(memory.Terms(text)), lim)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []core.MemoryRecord

	for rows.Next() {
		var (
			rec  core.MemoryRecord
			role string
		)

		if err := rows.Scan(&rec.ID, &role, &rec.Content, &rec.CreatedAt, &rec.UpdatedAt, &rec.Seq); err != nil {
			return nil, err
		}

		rec.Role = core.Role(role)
		records = append(records, rec)
	}

	return records, rows.Err()
}

// Close releases the pool.
func (s *Store) Close() {
	s.DB.Close()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePatterns turns search terms into ILIKE substring patterns.
func likePatterns(terms []string) []string {
	out := make([]string, len(terms))
	for i, t := range terms {
		out[i] = "%" + likeEscaper.Replace(t) + "%"
	}

	return out
}
