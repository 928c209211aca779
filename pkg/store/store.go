// Package store holds the normalized, ordered collection of chat messages for a session.
package store

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Store is an ordered id list plus an id→message map. Every mutation happens under a
// write lock so readers never observe the two halves out of sync.
type Store struct {
	mu       sync.RWMutex
	ids      []string
	entities map[string]*Message
	version  uint64
	now      func() time.Time
}

type Option func(*Store)

// WithNow overrides the time source used to stamp created_at.
func WithNow(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

func New(opts ...Option) *Store {
	s := &Store{
		entities: map[string]*Message{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Append adds msg at the end of the list and returns its id. An id is generated when
// msg.ID is empty. Appending an id that is already present replaces nothing and
// returns the existing id.
func (s *Store) Append(msg Message) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendLocked(msg)
}

func (s *Store) appendLocked(msg Message) string {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if _, ok := s.entities[msg.ID]; ok {
		return msg.ID
	}
	if msg.CreatedAt == "" {
		msg.CreatedAt = s.now().UTC().Format(time.RFC3339)
	}
	m := msg.clone()
	s.ids = append(s.ids, m.ID)
	s.entities[m.ID] = &m
	s.version++
	return m.ID
}

// Patch merges p into the message with the given id. It reports whether the id was
// known; unknown ids are a no-op.
func (s *Store) Patch(id string, p Patch) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.entities[id]
	if !ok {
		return false
	}
	if p.Body != nil {
		m.Body = *p.Body
	}
	if p.Metadata != nil {
		md := make([]byte, len(p.Metadata))
		copy(md, p.Metadata)
		m.Metadata = md
	}
	if p.Type != nil {
		m.Type = *p.Type
	}
	s.version++
	return true
}

func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entities[id]; !ok {
		return false
	}
	delete(s.entities, id)
	for i, other := range s.ids {
		if other == id {
			s.ids = append(s.ids[:i], s.ids[i+1:]...)
			break
		}
	}
	s.version++
	return true
}

// Seed appends msgs in order, skipping ids that are already present. It returns the
// number of messages added.
func (s *Store) Seed(msgs []Message) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	added := 0
	for _, m := range msgs {
		if m.ID != "" {
			if _, ok := s.entities[m.ID]; ok {
				continue
			}
		}
		s.appendLocked(m)
		added++
	}
	return added
}

// Reset drops every message.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = nil
	s.entities = map[string]*Message{}
	s.version++
}

func (s *Store) Get(id string) (Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.entities[id]
	if !ok {
		return Message{}, false
	}
	return m.clone(), true
}

// Snapshot returns copies of all messages in display order.
func (s *Store) Snapshot() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Message, 0, len(s.ids))
	for _, id := range s.ids {
		out = append(out, s.entities[id].clone())
	}
	return out
}

func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.ids...)
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}

// Version increases on every mutation.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Validate checks the list/map consistency invariant.
func (s *Store) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.ids) != len(s.entities) {
		return errors.Errorf("store: %d ids but %d entities", len(s.ids), len(s.entities))
	}
	seen := make(map[string]struct{}, len(s.ids))
	for _, id := range s.ids {
		if _, dup := seen[id]; dup {
			return errors.Errorf("store: duplicate id %q", id)
		}
		seen[id] = struct{}{}
		m, ok := s.entities[id]
		if !ok || m == nil {
			return errors.Errorf("store: id %q does not resolve", id)
		}
		if m.ID != id {
			return errors.Errorf("store: id %q maps to entity %q", id, m.ID)
		}
	}
	return nil
}
