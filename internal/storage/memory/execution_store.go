package memory

import (
	"context"
	"sort"
	"sync"

	"tx-forecast-lab/internal/domain"
	"tx-forecast-lab/internal/storage"
)

// DefaultExecutionCap is the retention cap on recorded executions.
const DefaultExecutionCap = 50

// ExecutionStore is an in-memory implementation of storage.ExecutionStore.
type ExecutionStore struct {
	mu   sync.RWMutex
	cap  int
	data []domain.ExecutionRecord // ordered oldest first
}

// NewExecutionStore creates a new in-memory execution store. cap <= 0 uses
// DefaultExecutionCap.
func NewExecutionStore(cap int) *ExecutionStore {
	if cap <= 0 {
		cap = DefaultExecutionCap
	}
	return &ExecutionStore{cap: cap}
}

// Insert records an execution, evicting the oldest when full.
func (s *ExecutionStore) Insert(_ context.Context, rec *domain.ExecutionRecord) error {
	if rec == nil || rec.To == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = append(s.data, *rec)
	if len(s.data) > s.cap {
		s.data = s.data[len(s.data)-s.cap:]
	}
	return nil
}

// Recent returns up to limit records, most recent first.
func (s *ExecutionStore) Recent(_ context.Context, limit int) ([]domain.ExecutionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.ExecutionRecord, len(s.data))
	copy(out, s.data)

	// Stored order is insertion order; newest first for the feed, stable
	// for equal timestamps.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp > out[j].Timestamp
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Clear removes all retained records.
func (s *ExecutionStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = nil
	return nil
}
