package main

import (
	"context"
	"io"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/voicemesh"
	"github.com/hupe1980/voicemesh/agents/scriptmurder"
	"github.com/hupe1980/voicemesh/logging"
	"github.com/hupe1980/voicemesh/internal/testutil"
	"github.com/hupe1980/voicemesh/model"
)

func startServer(t *testing.T, m model.Model) (*voicemesh.VoiceMesh, string) {
	t.Helper()

	mesh, err := voicemesh.New(func(o *voicemesh.Options) {
		o.Model = m
	})
	require.NoError(t, err)

	logger := logging.NewLogger(&logging.LoggerConfig{Level: logging.LogLevelError, Format: "text", Output: io.Discard})

	srv := httptest.NewServer(newServer(mesh, logger))
	t.Cleanup(func() {
		srv.Close()
		_ = mesh.Shutdown(context.Background())
	})

	return mesh, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, wsURL string, query url.Values) (*websocket.Conn, string) {
	t.Helper()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?"+query.Encode(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	var ready frame
	require.NoError(t, conn.ReadJSON(&ready))
	require.Equal(t, frameReady, ready.Type)
	require.NotEmpty(t, ready.SessionID)

	return conn, ready.SessionID
}

// readReply collects chunk frames until the done frame.
func readReply(t *testing.T, conn *websocket.Conn) string {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var sb strings.Builder

	for {
		var f frame
		require.NoError(t, conn.ReadJSON(&f))

		switch f.Type {
		case frameChunk:
			sb.WriteString(f.Text)
		case frameDone:
			return sb.String()
		default:
			t.Fatalf("unexpected frame %q", f.Type)
		}
	}
}

func TestServer_PlainTurn(t *testing.T) {
	m := model.NewScriptedModel(testutil.TextTurn("Hello", " there!"))
	_, wsURL := startServer(t, m)

	conn, _ := dial(t, wsURL, url.Values{"user_id": {"u1"}})

	require.NoError(t, conn.WriteJSON(frame{Type: frameText, Text: "hi"}))
	assert.Equal(t, "Hello there!", readReply(t, conn))

	reqs := m.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "hi", reqs[0].Messages[len(reqs[0].Messages)-1].Content)
}

func TestServer_AgentTurn(t *testing.T) {
	m := model.NewScriptedModel(
		testutil.CallTurn("c1", scriptmurder.Name),
		testutil.TextTurn("Welcome to the mansion."),
	)
	_, wsURL := startServer(t, m)

	conn, _ := dial(t, wsURL, url.Values{"user_id": {"u1"}})

	require.NoError(t, conn.WriteJSON(frame{Type: frameText, Text: "let's play a mystery"}))
	assert.Equal(t, "Welcome to the mansion.", readReply(t, conn))
}

func TestServer_AbortWithoutTurn(t *testing.T) {
	m := model.NewScriptedModel(testutil.TextTurn("Still here."))
	_, wsURL := startServer(t, m)

	conn, _ := dial(t, wsURL, url.Values{})

	require.NoError(t, conn.WriteJSON(frame{Type: frameAbort}))
	require.NoError(t, conn.WriteJSON(frame{Type: "noise"}))
	require.NoError(t, conn.WriteJSON(frame{Type: frameText, Text: "are you there?"}))

	assert.Equal(t, "Still here.", readReply(t, conn))
}

// stallingModel never answers its first call until the call is cancelled.
type stallingModel struct {
	*model.ScriptedModel
	stalled chan struct{}
	first   atomic.Bool
}

func (m *stallingModel) StreamWithTools(ctx context.Context, req model.Request) (<-chan model.Chunk, <-chan error) {
	if !m.first.CompareAndSwap(false, true) {
		return m.ScriptedModel.StreamWithTools(ctx, req)
	}

	out := make(chan model.Chunk)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		close(m.stalled)
		<-ctx.Done()
		errCh <- ctx.Err()
	}()

	return out, errCh
}

func TestServer_NewTextCancelsStalledTurn(t *testing.T) {
	m := &stallingModel{
		ScriptedModel: model.NewScriptedModel(testutil.TextTurn("Hi again.")),
		stalled:       make(chan struct{}),
	}
	_, wsURL := startServer(t, m)

	conn, _ := dial(t, wsURL, url.Values{"user_id": {"u1"}})

	require.NoError(t, conn.WriteJSON(frame{Type: frameText, Text: "first"}))

	select {
	case <-m.stalled:
	case <-time.After(5 * time.Second):
		t.Fatal("first turn never reached the model")
	}

	require.NoError(t, conn.WriteJSON(frame{Type: frameText, Text: "second"}))

	assert.Empty(t, readReply(t, conn))
	assert.Equal(t, "Hi again.", readReply(t, conn))
}

func TestServer_CloseReleasesSession(t *testing.T) {
	mesh, wsURL := startServer(t, model.NewScriptedModel())

	conn, id := dial(t, wsURL, url.Values{"session_id": {"s-42"}})
	assert.Equal(t, "s-42", id)

	_, ok := mesh.Runner().Manager(id)
	require.True(t, ok)

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")))

	assert.Eventually(t, func() bool {
		_, ok := mesh.Runner().Manager(id)
		return !ok
	}, 2*time.Second, 10*time.Millisecond)
}

func TestUserFromQuery(t *testing.T) {
	assert.Nil(t, userFromQuery(url.Values{"user_name": {"Mia"}}))

	u := userFromQuery(url.Values{
		"user_id":   {"u7"},
		"user_type": {"student"},
		"user_name": {"Mia"},
		"unit_id":   {"class-3"},
		"school_id": {"sch-1"},
	})
	require.NotNil(t, u)
	assert.Equal(t, "u7", u.ID)
	assert.Equal(t, "student", u.Type)
	assert.Equal(t, "Mia", u.Name)
	assert.Equal(t, "class-3", u.GroupID)
	assert.Equal(t, "sch-1", u.SchoolID)
}
