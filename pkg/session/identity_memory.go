package session

import (
	"context"
	"sync"
)

// MemoryIdentityStore keeps the identity for the lifetime of the process.
type MemoryIdentityStore struct {
	mu sync.Mutex
	id string
}

var _ IdentityStore = &MemoryIdentityStore{}

func NewMemoryIdentityStore() *MemoryIdentityStore { return &MemoryIdentityStore{} }

func (s *MemoryIdentityStore) Load(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.id == "" {
		return "", ErrNotFound
	}
	return s.id, nil
}

func (s *MemoryIdentityStore) Save(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = id
	return nil
}

func (s *MemoryIdentityStore) Delete(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = ""
	return nil
}

func (s *MemoryIdentityStore) Close() error { return nil }
