package catalog

import (
	"context"
	"sync"

	"github.com/Sternrassler/sat-catalog-client/pkg/satellite"
)

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu     sync.RWMutex
	groups map[string][]satellite.Record
	byID   map[string]satellite.Record
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		groups: make(map[string][]satellite.Record),
		byID:   make(map[string]satellite.Record),
	}
}

func (s *MemoryStore) Page(ctx context.Context, group string, limit, offset int) ([]satellite.Record, error) {
	if err := validatePage(group, limit, offset); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	records, ok := s.groups[group]
	if !ok {
		return nil, ErrGroupNotCached
	}
	return satellite.Clone(window(records, limit, offset)), nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (satellite.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.byID[id]
	if !ok {
		return satellite.Record{}, ErrNotFound
	}
	return record, nil
}

func (s *MemoryStore) Put(ctx context.Context, record satellite.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.byID[record.ID()] = record
	return nil
}

func (s *MemoryStore) Replace(ctx context.Context, group string, records []satellite.Record) error {
	stored := satellite.Clone(records)
	if stored == nil {
		stored = []satellite.Record{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.groups[group] = stored
	for _, r := range stored {
		s.byID[r.ID()] = r
	}
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
