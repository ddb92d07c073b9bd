package store

import (
	"context"
	"maps"
	"slices"
	"sync"

	"hearth/internal/audit"
	"hearth/pkg/domain"
)

// InMemoryStore keeps entries in insertion order.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries []*audit.Entry
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, entry *audit.Entry) error {
	cp := *entry
	cp.Details = maps.Clone(entry.Details)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, &cp)
	return nil
}

func (s *InMemoryStore) Query(_ context.Context, filter audit.Filter, page domain.Page) (domain.PageResult[*audit.Entry], error) {
	s.mu.RLock()
	matched := make([]*audit.Entry, 0, len(s.entries))
	for _, e := range s.entries {
		if filter.Matches(e) {
			cp := *e
			matched = append(matched, &cp)
		}
	}
	s.mu.RUnlock()

	slices.SortStableFunc(matched, audit.NewerFirst)
	return domain.Window(matched, page), nil
}
