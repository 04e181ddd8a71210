package credentials

import (
	"context"
	"sync"

	apperrors "github.com/jrsteele09/qeem-client/internal/errors"
)

// MemoryStore is a thread-safe in-memory Store
type MemoryStore struct {
	mu   sync.RWMutex
	slot *Credential
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory credential store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load(_ context.Context) (*Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.slot == nil {
		return nil, apperrors.ErrNoCredential
	}
	// Return a copy to prevent external modifications
	return s.slot.Clone(), nil
}

func (s *MemoryStore) Save(_ context.Context, c *Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slot = c.Clone()
	return nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slot = nil
	return nil
}
