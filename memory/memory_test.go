package memory

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/voicemesh/core"
	"github.com/hupe1980/voicemesh/model"
)

// Interface compliance (compile-time assertions)
var _ core.MemoryStore = (*InMemoryStore)(nil)

var testScope = core.MemoryScope{UserID: "u1", Agent: "reading_partner"}

func dialogue() []core.Message {
	return []core.Message{
		core.NewSystemMessage("prompt"),
		core.NewUserMessage("I read about Harry Potter today"),
		core.NewAssistantMessage("Which chapter did you like?"),
		core.NewToolResultMessage("c1", "raw tool output"),
		core.NewUserMessage("The dragon chapter"),
	}
}

func TestRecords_FiltersAndIsDeterministic(t *testing.T) {
	now := time.Now()

	recs := Records(testScope, dialogue(), now)
	require.Len(t, recs, 3)

	for _, r := range recs {
		assert.NotEqual(t, core.RoleSystem, r.Role)
		assert.NotEqual(t, core.RoleTool, r.Role)
	}

	again := Records(testScope, dialogue(), now.Add(time.Hour))
	assert.Equal(t, recs[0].ID, again[0].ID)

	other := Records(core.MemoryScope{UserID: "u2", Agent: "reading_partner"}, dialogue(), now)
	assert.NotEqual(t, recs[0].ID, other[0].ID)
}

func TestRecords_OrderWithinSave(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	recs := Records(testScope, dialogue(), now)
	require.Len(t, recs, 3)

	for i, r := range recs {
		assert.Equal(t, i, r.Seq)
		assert.Equal(t, now.Add(time.Duration(i)*time.Microsecond), r.UpdatedAt)
	}
}

func TestSortNewestFirst_SeqBreaksTies(t *testing.T) {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	recs := []core.MemoryRecord{
		{Content: "a", UpdatedAt: ts, Seq: 0},
		{Content: "b", UpdatedAt: ts, Seq: 2},
		{Content: "c", UpdatedAt: ts.Add(time.Second), Seq: 0},
		{Content: "d", UpdatedAt: ts, Seq: 1},
	}

	SortNewestFirst(recs)

	got := make([]string, len(recs))
	for i, r := range recs {
		got[i] = r.Content
	}

	assert.Equal(t, []string{"c", "b", "d", "a"}, got)
}

func TestInMemoryStore_QueryNewestTurnsFirst(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return clock }

	msgs := make([]core.Message, 0, 6)
	for i := 1; i <= 6; i++ {
		msgs = append(msgs, core.NewUserMessage(fmt.Sprintf("book turn %d", i)))
	}

	require.NoError(t, store.Save(ctx, testScope, msgs))

	recs, err := store.Query(ctx, testScope, "book", 3)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, "book turn 6", recs[0].Content)
	assert.Equal(t, "book turn 5", recs[1].Content)
	assert.Equal(t, "book turn 4", recs[2].Content)
}

func TestTermsAndMatches(t *testing.T) {
	assert.Equal(t, []string{"harry", "potter"}, Terms("Harry, potter? harry"))
	assert.Empty(t, Terms("  "))

	assert.True(t, Matches("I like Harry Potter", []string{"harry"}))
	assert.False(t, Matches("dragons", []string{"harry"}))
	assert.True(t, Matches("anything", nil))
}

func TestFormat(t *testing.T) {
	ts := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	out := Format([]core.MemoryRecord{
		{Content: "likes dragons", CreatedAt: ts},
		{Content: "reads Harry Potter", CreatedAt: ts, UpdatedAt: ts.Add(time.Minute)},
	})

	assert.Equal(t, "- [2024-05-01 09:30:00] likes dragons\n- [2024-05-01 09:31:00] reads Harry Potter", out)
}

func TestInMemoryStore_SaveQuery(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return clock }

	require.NoError(t, store.Save(ctx, testScope, dialogue()))
	assert.Equal(t, 3, store.Len(testScope))

	// Retrying the same dialogue upserts.
	clock = clock.Add(time.Hour)
	require.NoError(t, store.Save(ctx, testScope, dialogue()[:2]))
	assert.Equal(t, 3, store.Len(testScope))

	recs, err := store.Query(ctx, testScope, "harry", 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, clock, recs[0].UpdatedAt)
	assert.Equal(t, clock.Add(-time.Hour), recs[0].CreatedAt)

	all, err := store.Query(ctx, testScope, "", 2)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Contains(t, all[0].Content, "Harry")

	none, err := store.Query(ctx, core.MemoryScope{UserID: "other"}, "", 10)
	require.NoError(t, err)
	assert.Empty(t, none)

	store.Delete(testScope)
	assert.Equal(t, 0, store.Len(testScope))
}

func TestSaver_RunsAndCloses(t *testing.T) {
	s := NewSaver()

	var ran atomic.Int32
	for range 3 {
		assert.True(t, s.Submit("t", func(context.Context) error {
			ran.Add(1)
			return nil
		}))
	}

	require.NoError(t, s.Close(context.Background()))
	assert.Equal(t, int32(3), ran.Load())

	assert.False(t, s.Submit("late", func(context.Context) error { return nil }))
	assert.ErrorIs(t, s.Close(context.Background()), ErrSaverClosed)
}

func TestSaver_DropsWhenQueueFull(t *testing.T) {
	s := NewSaver(func(o *SaverOptions) {
		o.Workers = 1
		o.Queue = 1
	})

	release := make(chan struct{})
	started := make(chan struct{})

	require.True(t, s.Submit("slow", func(context.Context) error {
		close(started)
		<-release

		return nil
	}))

	<-started
	assert.False(t, s.Submit("dropped", func(context.Context) error { return nil }))

	close(release)
	require.NoError(t, s.Close(context.Background()))
}

func TestSaver_TaskTimeoutAndFailures(t *testing.T) {
	s := NewSaver(func(o *SaverOptions) { o.Timeout = 10 * time.Millisecond })

	var deadline atomic.Bool

	s.Submit("timeout", func(ctx context.Context) error {
		<-ctx.Done()
		deadline.Store(errors.Is(ctx.Err(), context.DeadlineExceeded))

		return ctx.Err()
	})
	s.Submit("panic", func(context.Context) error { panic("boom") })

	require.NoError(t, s.Close(context.Background()))
	assert.True(t, deadline.Load())
}

func TestSaver_CloseHonoursContext(t *testing.T) {
	s := NewSaver(func(o *SaverOptions) { o.Timeout = time.Minute })

	s.Submit("stuck", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, s.Close(ctx), context.DeadlineExceeded)
}

type failingStore struct{}

func (failingStore) Save(context.Context, core.MemoryScope, []core.Message) error {
	return errors.New("disk full")
}

func (failingStore) Query(context.Context, core.MemoryScope, string, int) ([]core.MemoryRecord, error) {
	return nil, errors.New("disk full")
}

func TestAgentMemory(t *testing.T) {
	store := NewInMemoryStore()
	saver := NewSaver()
	mem := NewAgentMemory(store, saver, nil)

	msgs := dialogue()
	mem.SaveAsync(testScope, msgs)
	mem.SaveAsync(testScope, msgs[:1])

	// The snapshot is independent of later caller mutation.
	msgs[1].Content = "changed"

	require.NoError(t, saver.Close(context.Background()))
	assert.Equal(t, 3, store.Len(testScope))

	out, err := mem.Query(context.Background(), testScope, "dragon", 3)
	require.NoError(t, err)
	assert.Contains(t, out, "] The dragon chapter")
	assert.True(t, len(out) > 2 && out[:3] == "- [")
}

func TestAgentMemory_QueryFailureIsPersistenceError(t *testing.T) {
	saver := NewSaver()
	mem := NewAgentMemory(failingStore{}, saver, nil)

	_, err := mem.Query(context.Background(), testScope, "x", 3)
	assert.ErrorIs(t, err, core.ErrPersistence)

	// A failing save is logged only.
	mem.SaveAsync(testScope, dialogue())
	require.NoError(t, saver.Close(context.Background()))
}

func TestQueryRewriter(t *testing.T) {
	history := []core.Message{
		core.NewUserMessage("I read Harry Potter"),
		core.NewAssistantMessage("Nice! Who is your favourite?"),
	}

	t.Run("rewrites", func(t *testing.T) {
		m := model.NewScriptedModel(model.ScriptedTurn{Chunks: model.TextChunks("Rewritten query: ", "favourite Harry Potter character")})
		r := NewQueryRewriter(m, nil)

		assert.Equal(t, "favourite Harry Potter character", r.Rewrite(context.Background(), "who is he?", history))

		req := m.Requests()[0]
		assert.Empty(t, req.Tools)
		assert.Contains(t, req.Messages[0].Content, "User: I read Harry Potter")
		assert.Contains(t, req.Messages[0].Content, "Current query: who is he?")
	})

	t.Run("falls back on error", func(t *testing.T) {
		m := model.NewScriptedModel(model.ScriptedTurn{Err: errors.New("down")})
		r := NewQueryRewriter(m, nil)

		assert.Equal(t, "who is he?", r.Rewrite(context.Background(), "who is he?", history))
	})

	t.Run("no history", func(t *testing.T) {
		m := model.NewScriptedModel()
		r := NewQueryRewriter(m, nil)

		assert.Equal(t, "who is he?", r.Rewrite(context.Background(), "who is he?", nil))
		assert.Empty(t, m.Requests())
	})

	t.Run("keeps last turns only", func(t *testing.T) {
		var long []core.Message
		for i := range 12 {
			long = append(long, core.NewUserMessage(string(rune('a'+i))))
		}

		out := historyText(long)
		assert.NotContains(t, out, "User: a\n")
		assert.Contains(t, out, "User: l")
	})
}
