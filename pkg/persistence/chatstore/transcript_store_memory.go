package chatstore

import (
	"context"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/go-go-golems/wizchat/pkg/history"
	"github.com/go-go-golems/wizchat/pkg/store"
)

// InMemoryTranscriptStore is a size-limited TranscriptStore. It mirrors the ordering
// semantics of the SQLite store; the oldest messages are evicted first.
type InMemoryTranscriptStore struct {
	mu                    sync.Mutex
	maxMessagesPerSession int
	sessions              map[string]*inMemTranscript
}

type inMemTranscript struct {
	order []string
	msgs  map[string]history.Record
}

var _ TranscriptStore = &InMemoryTranscriptStore{}

func NewInMemoryTranscriptStore(maxMessagesPerSession int) *InMemoryTranscriptStore {
	if maxMessagesPerSession <= 0 {
		maxMessagesPerSession = 5000
	}
	return &InMemoryTranscriptStore{
		maxMessagesPerSession: maxMessagesPerSession,
		sessions:              map[string]*inMemTranscript{},
	}
}

func (s *InMemoryTranscriptStore) Close() error { return nil }

func (s *InMemoryTranscriptStore) Upsert(_ context.Context, sessionID string, msg store.Message) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return errors.New("in-memory transcript store: sessionID is empty")
	}
	if msg.ID == "" {
		return errors.New("in-memory transcript store: message id is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.sessions[sessionID]
	if !ok {
		t = &inMemTranscript{msgs: map[string]history.Record{}}
		s.sessions[sessionID] = t
	}
	rec := toRecord(msg)
	if prev, known := t.msgs[msg.ID]; known {
		rec.CreatedAt = prev.CreatedAt
	} else {
		t.order = append(t.order, msg.ID)
	}
	t.msgs[msg.ID] = rec

	for len(t.order) > s.maxMessagesPerSession {
		delete(t.msgs, t.order[0])
		t.order = t.order[1:]
	}
	return nil
}

func (s *InMemoryTranscriptStore) List(_ context.Context, sessionID string, offset, limit int) ([]history.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	var out []history.Record
	for i := len(t.order) - 1 - offset; i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, t.msgs[t.order[i]])
	}
	return out, nil
}

func (s *InMemoryTranscriptStore) DeleteSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}
