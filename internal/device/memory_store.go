package device

import (
	"context"
	"sync"

	"github.com/sentrasec/sentra/internal/fingerprint"
)

// MemoryStore is an in-memory HistoryStore for tests and demo mode.
type MemoryStore struct {
	mu        sync.RWMutex
	histories map[string][]fingerprint.DeviceFingerprint
}

// Compile-time check.
var _ HistoryStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory history store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		histories: make(map[string][]fingerprint.DeviceFingerprint),
	}
}

func (s *MemoryStore) List(_ context.Context, userID string) ([]fingerprint.DeviceFingerprint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	history := s.histories[userID]
	out := make([]fingerprint.DeviceFingerprint, len(history))
	copy(out, history)
	return out, nil
}

func (s *MemoryStore) Append(_ context.Context, userID string, fp fingerprint.DeviceFingerprint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	history := append(s.histories[userID], fp)
	if len(history) > MaxHistory {
		history = history[len(history)-MaxHistory:]
	}
	s.histories[userID] = history
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.histories, userID)
	return nil
}
