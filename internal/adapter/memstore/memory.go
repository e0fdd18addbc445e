package memstore

import (
	"context"
	"fmt"
	"sync"

	"skillmatch/internal/domain"
)

// MemoryStore is an in-memory CategoryStore. It holds deep copies so callers
// can never mutate stored state by accident.
type MemoryStore struct {
	mu         sync.RWMutex
	categories map[domain.Category]domain.Records
	present    map[domain.Category]bool
	writer     chan struct{}

	saves   int
	saveErr error
}

// NewMemoryStore creates a store that knows the given categories.
func NewMemoryStore(categories ...domain.Category) *MemoryStore {
	s := &MemoryStore{
		categories: make(map[domain.Category]domain.Records, len(categories)),
		present:    make(map[domain.Category]bool, len(categories)),
		writer:     make(chan struct{}, 1),
	}
	for _, c := range categories {
		s.categories[c] = domain.Records{}
	}
	return s
}

func (s *MemoryStore) Load(ctx context.Context, category domain.Category) (domain.Records, error) {
	if err := ctx.Err(); err != nil {
		return domain.Records{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	records, ok := s.categories[category]
	if !ok {
		return domain.Records{}, fmt.Errorf("unknown category: %s", category)
	}
	return records.Clone(), nil
}

func (s *MemoryStore) Save(ctx context.Context, category domain.Category, records domain.Records) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := records.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.categories[category]; !ok {
		return fmt.Errorf("unknown category: %s", category)
	}
	if s.saveErr != nil {
		return s.saveErr
	}
	s.categories[category] = records.Clone()
	s.present[category] = true
	s.saves++
	return nil
}

func (s *MemoryStore) Exists(category domain.Category) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.present[category]
}

func (s *MemoryStore) Lock(ctx context.Context) (func(), error) {
	select {
	case s.writer <- struct{}{}:
		return func() { <-s.writer }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Saves returns how many successful saves happened.
func (s *MemoryStore) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}

// FailSaves makes every following Save return err. Pass nil to reset.
func (s *MemoryStore) FailSaves(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveErr = err
}
