package store

import (
	"context"
	"sync"

	"schemagate/internal/auth/models"
)

// InMemoryStore is a CredentialStore for local development and tests.
type InMemoryStore struct {
	mu      sync.RWMutex
	byHash  map[string]*models.Identity
	lookups int
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{byHash: make(map[string]*models.Identity)}
}

// Put registers identity under the hash of rawKey. The raw key itself is not kept.
func (s *InMemoryStore) Put(rawKey string, identity *models.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byHash[models.HashKey(rawKey)] = identity.Clone()
}

// Remove forgets the credential, as if it had been deleted upstream.
func (s *InMemoryStore) Remove(rawKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byHash, models.HashKey(rawKey))
}

func (s *InMemoryStore) FindByHash(ctx context.Context, keyHash string) (*models.Identity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookups++
	identity, ok := s.byHash[keyHash]
	if !ok {
		return nil, ErrNotFound
	}
	return identity.Clone(), nil
}

// Lookups returns how many FindByHash calls reached the store.
func (s *InMemoryStore) Lookups() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lookups
}
