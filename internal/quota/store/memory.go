package store

import (
	"context"
	"sync"

	"hearth/internal/quota"
	"hearth/pkg/domain"
)

// MemberCounter counts the users of a household.
type MemberCounter interface {
	CountByTenant(ctx context.Context, tenantID domain.TenantID) (int, error)
}

// InMemory keeps resource counts per household. Members are delegated to the
// user directory when one is provided.
type InMemory struct {
	mu      sync.RWMutex
	counts  map[domain.TenantID]map[quota.ResourceKind]int
	members MemberCounter
}

func NewInMemory(members MemberCounter) *InMemory {
	return &InMemory{
		counts:  make(map[domain.TenantID]map[quota.ResourceKind]int),
		members: members,
	}
}

func (s *InMemory) Count(ctx context.Context, tenantID domain.TenantID, kind quota.ResourceKind) (int, error) {
	if kind == quota.ResourceMembers && s.members != nil {
		return s.members.CountByTenant(ctx, tenantID)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.counts[tenantID][kind], nil
}

// Add adjusts the count of kind by delta and returns the new value. Counts never drop below zero.
func (s *InMemory) Add(tenantID domain.TenantID, kind quota.ResourceKind, delta int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	byKind, ok := s.counts[tenantID]
	if !ok {
		byKind = make(map[quota.ResourceKind]int)
		s.counts[tenantID] = byKind
	}
	byKind[kind] = max(byKind[kind]+delta, 0)
	return byKind[kind]
}
