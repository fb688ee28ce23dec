package kv

import (
	"context"
	"sort"
	"strings"
	"sync"

	"resume-review/internal/shared/auth"
)

// MemoryStore keeps entries in memory and is safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	byOwner map[string]map[string]string
}

// NewMemoryStore constructs a MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byOwner: make(map[string]map[string]string)}
}

// Get returns the value stored under key for the context's owner.
func (s *MemoryStore) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, ok := s.byOwner[auth.OwnerFromContext(ctx)][key]
	if !ok || val == "" {
		return "", ErrNotFound
	}
	return val, nil
}

// Set stores value under key, replacing any previous value.
func (s *MemoryStore) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	owner := auth.OwnerFromContext(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, ok := s.byOwner[owner]
	if !ok {
		entries = make(map[string]string)
		s.byOwner[owner] = entries
	}
	entries[key] = value
	return nil
}

// List returns the owner's keys with the given prefix.
func (s *MemoryStore) List(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var keys []string
	for k := range s.byOwner[auth.OwnerFromContext(ctx)] {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

var _ Store = (*MemoryStore)(nil)
