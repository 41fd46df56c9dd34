package session

import (
	"sync"

	"github.com/hupe1980/voicemesh/core"
)

// InMemoryStore is a volatile SessionStore holding the live sessions of this
// process. Sessions are connection handles and are returned by reference, not
// cloned: the abort flag and dialogues must be shared between the connection
// reader and the turn driver. It is safe for concurrent access.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*core.Session
}

// NewInMemoryStore constructs an empty in-memory session store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string]*core.Session)}
}

// Create forces the creation (or overwriting) of a session with the given id.
// An empty id is replaced by a generated one.
func (s *InMemoryStore) Create(sessionID string, user *core.User) (*core.Session, error) {
	if sessionID == "" {
		sessionID = core.NewID()
	}

	sess := core.NewSession(sessionID, user)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[sessionID] = sess

	return sess, nil
}

// Get returns the live session or a NotFound error.
func (s *InMemoryStore) Get(sessionID string) (*core.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, core.NewNotFoundError("get session", sessionID)
	}

	return sess, nil
}

// Delete forgets a session. Deleting an unknown id is not an error.
func (s *InMemoryStore) Delete(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sessionID)

	return nil
}

// Len returns the number of live sessions.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.sessions)
}

// IDs returns the ids of all live sessions in unspecified order.
func (s *InMemoryStore) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}

	return ids
}
