package main

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/voicemesh/config"
	"github.com/hupe1980/voicemesh/core"
	"github.com/hupe1980/voicemesh/internal/testutil"
	"github.com/hupe1980/voicemesh/logging"
	"github.com/hupe1980/voicemesh/memory"
	"github.com/hupe1980/voicemesh/model"
)

// syncBuffer guards a bytes.Buffer written by the observer goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.String()
}

func TestInstrumentedModel(t *testing.T) {
	out := &syncBuffer{}
	logger := logging.NewLogger(&logging.LoggerConfig{Level: logging.LogLevelInfo, Format: "json", Output: out})

	boom := errors.New("boom")
	m := newInstrumentedModel(model.NewScriptedModel(
		testutil.TextTurn("hi"),
		testutil.ErrTurn(boom),
	), logger)

	text, err := model.Complete(context.Background(), m, model.Request{})
	require.NoError(t, err)
	assert.Equal(t, "hi", text)

	_, err = model.Complete(context.Background(), m, model.Request{})
	require.ErrorIs(t, err, boom)

	assert.Eventually(t, func() bool {
		s := out.String()
		return bytes.Contains([]byte(s), []byte("llm.call.completed")) &&
			bytes.Contains([]byte(s), []byte("llm.call.failed"))
	}, time.Second, 10*time.Millisecond)
	assert.Contains(t, out.String(), `"model":"scripted"`)
}

func TestBuild_MemoryBackendDefaults(t *testing.T) {
	cfg := config.Default()
	cfg.Agents.Enabled = []string{"script_murder"}

	app, err := build(context.Background(), cfg, logging.NewLogger(&logging.LoggerConfig{Output: &syncBuffer{}}))
	require.NoError(t, err)

	sess, err := app.mesh.Open(context.Background(), "", &core.User{ID: "u1"})
	require.NoError(t, err)

	mgr, ok := app.mesh.Runner().Manager(sess.ID)
	require.True(t, ok)
	assert.Equal(t, []string{"script_murder"}, mgr.Names())

	require.NoError(t, app.Close(context.Background()))
}

func TestNewMemoryStore_InMemory(t *testing.T) {
	store, err := newMemoryStore(context.Background(), config.MemoryConfig{Backend: config.BackendMemory}, &application{})
	require.NoError(t, err)
	assert.IsType(t, &memory.InMemoryStore{}, store)
}
