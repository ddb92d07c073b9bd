package outbox

import (
	"context"
	"slices"
	"sync"
	"time"
)

// InMemory keeps records in append order.
type InMemory struct {
	mu      sync.Mutex
	records []*Record
}

func NewInMemory() *InMemory {
	return &InMemory{}
}

func (s *InMemory) Append(_ context.Context, record *Record) error {
	cp := *record
	cp.Payload = slices.Clone(record.Payload)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, &cp)
	return nil
}

func (s *InMemory) FetchPending(_ context.Context, limit int) ([]*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*Record
	for _, r := range s.records {
		if len(out) == limit {
			break
		}
		if r.IsPending() {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *InMemory) MarkPublished(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.records {
		if r.ID == id && r.IsPending() {
			r.PublishedAt = &at
			return nil
		}
	}
	return ErrNotPending
}

func (s *InMemory) CountPending(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, r := range s.records {
		if r.IsPending() {
			n++
		}
	}
	return n, nil
}

func (s *InMemory) DeletePublishedBefore(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.records[:0]
	var deleted int64
	for _, r := range s.records {
		if !r.IsPending() && r.PublishedAt.Before(before) {
			deleted++
			continue
		}
		kept = append(kept, r)
	}
	clear(s.records[len(kept):])
	s.records = kept
	return deleted, nil
}
