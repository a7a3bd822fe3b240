package repository

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/okian/songlab/internal/domain/model"
	"github.com/okian/songlab/pkg/metrics"
)

const defaultCapacity = 10000

// MemoryStore is a bounded in-process Store. Reports are evicted in
// insertion order; replacing a report does not refresh its position.
type MemoryStore struct {
	mu       sync.RWMutex
	capacity int
	byID     map[string]*list.Element
	order    *list.List // front is oldest
}

// NewMemoryStore creates an empty store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		capacity: defaultCapacity,
		byID:     make(map[string]*list.Element),
		order:    list.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	metrics.UpdateStoredReports(0)
	return s
}

// Save implements Store.
func (s *MemoryStore) Save(_ context.Context, r model.Report) error { //nolint:gocritic // hugeParam: stored by value
	if r.ResultID == "" {
		metrics.RecordErrorByComponent("repository", "missing_id")
		return ErrMissingID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.byID[r.ResultID]; ok {
		el.Value = r
		return nil
	}

	s.byID[r.ResultID] = s.order.PushBack(r)
	for s.capacity > 0 && s.order.Len() > s.capacity {
		oldest := s.order.Front()
		s.order.Remove(oldest)
		delete(s.byID, oldest.Value.(model.Report).ResultID)
		metrics.RecordReportEviction()
	}
	metrics.UpdateStoredReports(s.order.Len())
	return nil
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, id string) (model.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	el, ok := s.byID[id]
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return model.Report{}, ErrNotFound
	}
	return el.Value.(model.Report), nil
}

// Recent implements Store.
func (s *MemoryStore) Recent(_ context.Context, n int) ([]model.Report, error) {
	if n <= 0 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, ErrInvalidLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Report, 0, min(n, s.order.Len()))
	for el := s.order.Back(); el != nil && len(out) < n; el = el.Prev() {
		out = append(out, el.Value.(model.Report))
	}
	return out, nil
}

// Len implements Store.
func (s *MemoryStore) Len(context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.order.Len()
}

// Oldest returns when the oldest stored report was scored, or the zero
// time for an empty store.
func (s *MemoryStore) Oldest() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if front := s.order.Front(); front != nil {
		return front.Value.(model.Report).ScoredAt
	}
	return time.Time{}
}
