package conversation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrSessionNotFound is returned when appending to an unknown session.
var ErrSessionNotFound = errors.New("conversation: session not found")

// Store persists sessions. Append extends the turn sequence atomically per
// call and keeps only the newest MaxTurns turns.
type Store interface {
	// GetOrCreate returns the session for id. An empty id, or an id with no
	// stored session, creates a new session (under id when one is given).
	GetOrCreate(ctx context.Context, id, owner string) (*Session, error)
	Append(ctx context.Context, id string, turns ...Turn) error
}

func newSessionID(id string) string {
	if id = strings.TrimSpace(id); id != "" {
		return id
	}
	return uuid.NewString()
}

// MemoryStore keeps sessions in process memory.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	now      func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*Session), now: time.Now}
}

func (s *MemoryStore) GetOrCreate(_ context.Context, id, owner string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id = newSessionID(id)
	sess, ok := s.sessions[id]
	if !ok {
		now := s.now().UTC()
		sess = &Session{ID: id, Owner: owner, Turns: []Turn{}, Context: map[string]any{}, CreatedAt: now, LastActivity: now}
		s.sessions[id] = sess
	}
	return cloneSession(sess), nil
}

func (s *MemoryStore) Append(_ context.Context, id string, turns ...Turn) error {
	for _, t := range turns {
		if err := t.Validate(); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	sess.Turns = appendTruncated(sess.Turns, turns)
	sess.LastActivity = s.now().UTC()
	return nil
}

func cloneSession(in *Session) *Session {
	out := *in
	out.Turns = append([]Turn(nil), in.Turns...)
	if in.Context != nil {
		out.Context = make(map[string]any, len(in.Context))
		for k, v := range in.Context {
			out.Context[k] = v
		}
	}
	return &out
}
