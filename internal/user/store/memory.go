package store

import (
	"context"
	"fmt"
	"sync"

	"hearth/internal/user/models"
	"hearth/pkg/domain"
	"hearth/pkg/platform/sentinel"
)

type InMemory struct {
	mu       sync.RWMutex
	users    map[domain.UserID]*models.User
	emailIdx map[string]domain.UserID
}

func NewInMemory() *InMemory {
	return &InMemory{
		users:    make(map[domain.UserID]*models.User),
		emailIdx: make(map[string]domain.UserID),
	}
}

func (s *InMemory) Create(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.emailIdx[u.Email]; exists {
		return fmt.Errorf("email already registered: %w", sentinel.ErrConflict)
	}
	cp := *u
	s.users[u.ID] = &cp
	s.emailIdx[u.Email] = u.ID
	return nil
}

func (s *InMemory) Update(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; !ok {
		return sentinel.ErrNotFound
	}
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id domain.UserID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *InMemory) CountByTenant(_ context.Context, tenantID domain.TenantID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, u := range s.users {
		if u.TenantID == tenantID {
			n++
		}
	}
	return n, nil
}
