package store

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"hearth/internal/household/models"
	"hearth/pkg/domain"
	"hearth/pkg/platform/sentinel"
)

// InMemory stores households for tests and the single-process demo.
type InMemory struct {
	mu         sync.RWMutex
	households map[domain.TenantID]*models.Household
	nameIdx    map[string]domain.TenantID
}

func NewInMemory() *InMemory {
	return &InMemory{
		households: make(map[domain.TenantID]*models.Household),
		nameIdx:    make(map[string]domain.TenantID),
	}
}

func (s *InMemory) Create(_ context.Context, h *models.Household) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	lower := strings.ToLower(h.Name)
	if _, exists := s.nameIdx[lower]; exists {
		return fmt.Errorf("household name must be unique: %w", sentinel.ErrConflict)
	}
	s.households[h.ID] = clone(h)
	s.nameIdx[lower] = h.ID
	return nil
}

func (s *InMemory) Update(_ context.Context, h *models.Household) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.households[h.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.households[h.ID] = clone(h)
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id domain.TenantID) (*models.Household, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.households[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(h), nil
}

func (s *InMemory) FindStatus(_ context.Context, id domain.TenantID) (domain.TenantStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.households[id]
	if !ok {
		return "", sentinel.ErrNotFound
	}
	return h.Status, nil
}

func (s *InMemory) FindSubscription(_ context.Context, id domain.TenantID) (*domain.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.households[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if h.Subscription == nil {
		return nil, nil
	}
	sub := *h.Subscription
	return &sub, nil
}

// List returns households newest first.
func (s *InMemory) List(_ context.Context, filter models.ListFilter, page domain.Page) (domain.PageResult[*models.Household], error) {
	s.mu.RLock()
	all := slices.Collect(maps.Values(s.households))
	s.mu.RUnlock()

	matched := make([]*models.Household, 0, len(all))
	for _, h := range all {
		if filter.Matches(h) {
			matched = append(matched, clone(h))
		}
	}
	slices.SortFunc(matched, func(a, b *models.Household) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})
	return domain.Window(matched, page), nil
}

func (s *InMemory) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.households), nil
}

func clone(h *models.Household) *models.Household {
	cp := *h
	if h.Subscription != nil {
		sub := *h.Subscription
		cp.Subscription = &sub
	}
	if h.SuspendedAt != nil {
		at := *h.SuspendedAt
		cp.SuspendedAt = &at
	}
	return &cp
}
