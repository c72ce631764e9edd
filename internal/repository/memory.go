package repository

import (
	"context"
	"sync"
)

// MemoryOverrideRepository keeps the cleared set in process memory. Used as
// the failover target when Redis is unavailable; cross-view signaling then
// degrades to the in-process event bus only.
type MemoryOverrideRepository struct {
	mu      sync.RWMutex
	cleared map[string]struct{}
}

func NewMemoryOverrideRepository() *MemoryOverrideRepository {
	return &MemoryOverrideRepository{cleared: make(map[string]struct{})}
}

func (r *MemoryOverrideRepository) MarkCleared(ctx context.Context, bookingID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cleared[bookingID] = struct{}{}
	return nil
}

func (r *MemoryOverrideRepository) IsCleared(ctx context.Context, bookingID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.cleared[bookingID]
	return ok, nil
}

func (r *MemoryOverrideRepository) ClearedIDs(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.cleared))
	for id := range r.cleared {
		ids = append(ids, id)
	}
	return ids, nil
}
