package main

import (
	"context"
	"net/http"
	"net/url"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/hupe1980/voicemesh"
	"github.com/hupe1980/voicemesh/core"
	"github.com/hupe1980/voicemesh/logging"
)

// Frame types exchanged over the websocket.
const (
	frameText  = "text"
	frameAbort = "abort"
	frameReady = "ready"
	frameChunk = "chunk"
	frameDone  = "done"
	frameError = "error"
)

// frame is the JSON envelope of every websocket message.
type frame struct {
	Type      string `json:"type"`
	Text      string `json:"text,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// server upgrades HTTP requests and runs one session per connection.
type server struct {
	mesh     *voicemesh.VoiceMesh
	logger   *logging.StructuredLogger
	upgrader websocket.Upgrader
}

func newServer(mesh *voicemesh.VoiceMesh, logger *logging.StructuredLogger) *server {
	return &server{
		mesh:   mesh,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("voicemeshd.upgrade.failed", "error", err.Error())
		return
	}
	defer conn.Close()

	query := r.URL.Query()

	sess, err := s.mesh.Open(r.Context(), query.Get("session_id"), userFromQuery(query))
	if err != nil {
		s.logger.Error("voicemeshd.session.open_failed", "error", err.Error())
		_ = conn.WriteJSON(frame{Type: frameError, Text: err.Error()})

		return
	}

	c := &connection{
		conn:   conn,
		mesh:   s.mesh,
		sess:   sess,
		logger: s.logger.WithSession(sess.ID),
	}

	c.serve()
}

// userFromQuery returns nil when no user_id is given. Anonymous sessions
// only get the outer conversation.
func userFromQuery(q url.Values) *core.User {
	id := q.Get("user_id")
	if id == "" {
		return nil
	}

	return &core.User{
		ID:       id,
		Type:     q.Get("user_type"),
		Name:     q.Get("user_name"),
		GroupID:  q.Get("unit_id"),
		SchoolID: q.Get("school_id"),
	}
}

// connection serializes writes and runs at most one turn at a time.
type connection struct {
	conn   *websocket.Conn
	mesh   *voicemesh.VoiceMesh
	sess   *core.Session
	logger *logging.StructuredLogger

	writeMu sync.Mutex
	turnWG  sync.WaitGroup

	turnMu     sync.Mutex
	cancelTurn context.CancelFunc
}

func (c *connection) serve() {
	ctx, cancel := context.WithCancel(context.Background())

	defer func() {
		cancel()
		c.turnWG.Wait()

		if err := c.mesh.Close(context.Background(), c.sess); err != nil {
			c.logger.Warn("voicemeshd.session.close_failed", "error", err.Error())
		}

		c.logger.Info("voicemeshd.session.closed")
	}()

	c.logger.Info("voicemeshd.session.opened")

	if err := c.write(frame{Type: frameReady, SessionID: c.sess.ID}); err != nil {
		return
	}

	for {
		var in frame
		if err := c.conn.ReadJSON(&in); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Warn("voicemeshd.read.failed", "error", err.Error())
			}

			return
		}

		switch in.Type {
		case frameText:
			c.interrupt()
			c.startTurn(ctx, in.Text)
		case frameAbort:
			c.interrupt()
		default:
			c.logger.Debug("voicemeshd.frame.ignored", "type", in.Type)
		}
	}
}

// interrupt aborts the running turn, if any, and waits for it to finish.
// Cancelling the turn context releases a turn blocked on the model or a
// business API call before its next chunk.
func (c *connection) interrupt() {
	c.mesh.Abort(c.sess)

	c.turnMu.Lock()
	if c.cancelTurn != nil {
		c.cancelTurn()
		c.cancelTurn = nil
	}
	c.turnMu.Unlock()

	c.turnWG.Wait()
}

func (c *connection) startTurn(ctx context.Context, text string) {
	ctx, cancel := context.WithCancel(ctx)

	c.turnMu.Lock()
	c.cancelTurn = cancel
	c.turnMu.Unlock()

	c.turnWG.Add(1)

	go func() {
		defer c.turnWG.Done()
		defer cancel()

		for chunk := range c.mesh.HandleTurn(ctx, c.sess, text) {
			if err := c.write(frame{Type: frameChunk, Text: chunk}); err != nil {
				c.mesh.Abort(c.sess)
				return
			}
		}

		_ = c.write(frame{Type: frameDone})
	}()
}

func (c *connection) write(f frame) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	return c.conn.WriteJSON(f)
}
