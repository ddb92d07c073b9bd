// Package audit is the compliance record of administrative power. Entries are
// appended synchronously by the operation that performs the transition.
package audit

import (
	"context"
	"errors"
	"log/slog"
	"maps"

	"github.com/oklog/ulid/v2"

	"hearth/pkg/domain"
	dErrors "hearth/pkg/domain-errors"
	"hearth/pkg/requestcontext"
)

// Store persists entries. Implementations never update or delete.
type Store interface {
	Append(ctx context.Context, entry *Entry) error
	Query(ctx context.Context, filter Filter, page domain.Page) (domain.PageResult[*Entry], error)
}

// Recorder is what other services depend on to write the trail.
type Recorder interface {
	Record(ctx context.Context, entry Entry) (*Entry, error)
}

// Outbox receives every appended entry in the same transaction, for
// delivery to downstream consumers.
type Outbox interface {
	Enqueue(ctx context.Context, entry *Entry) error
}

type Service struct {
	store   Store
	outbox  Outbox
	logger  *slog.Logger
	metrics *Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithOutbox(o Outbox) Option {
	return func(s *Service) { s.outbox = o }
}

func NewService(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("audit store is required")
	}
	s := &Service{store: store}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Record validates the required fields, stamps id and time, and appends.
// A failure here must fail the calling operation.
func (s *Service) Record(ctx context.Context, entry Entry) (*Entry, error) {
	switch {
	case entry.ActorID.IsNil():
		return nil, dErrors.New(dErrors.CodeValidation, "audit entry requires an actor")
	case entry.Action == "":
		return nil, dErrors.New(dErrors.CodeValidation, "audit entry requires an action")
	case entry.ResourceKind == "":
		return nil, dErrors.New(dErrors.CodeValidation, "audit entry requires a resource kind")
	}

	now := requestcontext.Now(ctx)
	entry.ID = ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String()
	entry.CreatedAt = now
	entry.Details = maps.Clone(entry.Details)
	if entry.RequestID == "" {
		entry.RequestID = requestcontext.RequestID(ctx)
	}

	if err := s.store.Append(ctx, &entry); err != nil {
		s.metrics.incFailure()
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to write audit entry")
	}
	if s.outbox != nil {
		if err := s.outbox.Enqueue(ctx, &entry); err != nil {
			s.metrics.incFailure()
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to enqueue audit entry")
		}
	}
	s.metrics.incRecorded(entry.Action)

	if s.logger != nil {
		s.logger.InfoContext(ctx, string(entry.Action),
			"log_type", "audit",
			"audit_id", entry.ID,
			"actor_id", entry.ActorID.String(),
			"resource_kind", entry.ResourceKind,
			"resource_id", entry.ResourceID,
			"request_id", entry.RequestID,
		)
	}
	return &entry, nil
}

// Query returns matching entries newest first.
func (s *Service) Query(ctx context.Context, filter Filter, page domain.Page) (domain.PageResult[*Entry], error) {
	res, err := s.store.Query(ctx, filter, page.Normalized())
	if err != nil {
		return domain.PageResult[*Entry]{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to query audit log")
	}
	return res, nil
}
