package risk

import (
	"context"
	"sync"
)

// maxMemoryPredictions bounds the in-memory audit trail.
const maxMemoryPredictions = 10000

// MemoryStore is an in-memory prediction store for tests and demo mode.
type MemoryStore struct {
	mu          sync.RWMutex
	predictions []*Prediction
}

// Compile-time check.
var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Record(_ context.Context, p *Prediction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.predictions = append(s.predictions, p)
	if len(s.predictions) > maxMemoryPredictions {
		s.predictions = s.predictions[len(s.predictions)-maxMemoryPredictions:]
	}
	return nil
}

func (s *MemoryStore) ListRecent(_ context.Context, limit int) ([]*Prediction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 || limit > len(s.predictions) {
		limit = len(s.predictions)
	}
	// Newest first.
	out := make([]*Prediction, 0, limit)
	for i := len(s.predictions) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.predictions[i])
	}
	return out, nil
}
