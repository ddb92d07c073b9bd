package store

import (
	"context"
	"slices"
	"sync"
	"time"

	"hearth/internal/impersonation/models"
	"hearth/pkg/domain"
	"hearth/pkg/platform/sentinel"
)

type InMemory struct {
	mu       sync.RWMutex
	sessions map[domain.SessionID]*models.Session
}

func NewInMemory() *InMemory {
	return &InMemory{sessions: make(map[domain.SessionID]*models.Session)}
}

func (s *InMemory) Create(_ context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sessions[session.ID]; exists {
		return sentinel.ErrConflict
	}
	s.sessions[session.ID] = clone(session)
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id domain.SessionID) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(session), nil
}

// MarkEnded sets EndedAt when it is still unset and reports whether it did.
func (s *InMemory) MarkEnded(_ context.Context, id domain.SessionID, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return false, sentinel.ErrNotFound
	}
	if session.EndedAt != nil {
		return false, nil
	}
	session.EndedAt = &at
	return true, nil
}

// Delete removes a session. Deleting an unknown session is not an error.
func (s *InMemory) Delete(_ context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, session.ID)
	return nil
}

// Reopen clears EndedAt only while it still equals endedAt.
func (s *InMemory) Reopen(_ context.Context, id domain.SessionID, endedAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return false, sentinel.ErrNotFound
	}
	if session.EndedAt == nil || !session.EndedAt.Equal(endedAt) {
		return false, nil
	}
	session.EndedAt = nil
	return true, nil
}

func (s *InMemory) IncrementActions(_ context.Context, id domain.SessionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	session.ActionCount++
	return nil
}

// ListOpenByActor returns sessions of actorID that have not ended and started
// after since, newest first.
func (s *InMemory) ListOpenByActor(_ context.Context, actorID domain.UserID, since time.Time) ([]*models.Session, error) {
	return s.collect(func(session *models.Session) bool {
		return session.ActorID == actorID && session.EndedAt == nil && session.StartedAt.After(since)
	}), nil
}

func (s *InMemory) CountOpenByTenant(_ context.Context, tenantID domain.TenantID, since time.Time) (int, error) {
	return len(s.collect(func(session *models.Session) bool {
		return session.TargetTenantID == tenantID && session.EndedAt == nil && session.StartedAt.After(since)
	})), nil
}

func (s *InMemory) History(_ context.Context, filter models.HistoryFilter, page domain.Page) (domain.PageResult[*models.Session], error) {
	return domain.Window(s.collect(filter.Matches), page), nil
}

func (s *InMemory) collect(keep func(*models.Session) bool) []*models.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Session, 0)
	for _, session := range s.sessions {
		if keep(session) {
			out = append(out, clone(session))
		}
	}
	sortNewestFirst(out)
	return out
}

func sortNewestFirst(sessions []*models.Session) {
	slices.SortFunc(sessions, func(a, b *models.Session) int {
		if c := b.StartedAt.Compare(a.StartedAt); c != 0 {
			return c
		}
		return slices.Compare(a.ID[:], b.ID[:])
	})
}

func clone(s *models.Session) *models.Session {
	cp := *s
	if s.EndedAt != nil {
		t := *s.EndedAt
		cp.EndedAt = &t
	}
	return &cp
}
