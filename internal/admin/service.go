package admin

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"hearth/internal/audit"
	"hearth/internal/household/models"
	"hearth/internal/quota"
	"hearth/pkg/domain"
	dErrors "hearth/pkg/domain-errors"
	"hearth/pkg/requestcontext"
)

// recentActivityLimit caps the audit entries shown on an overview.
const recentActivityLimit = 10

type HouseholdReader interface {
	Get(ctx context.Context, id domain.TenantID) (*models.Household, error)
}

type UsageReader interface {
	Usage(ctx context.Context, tenantID domain.TenantID) (*quota.Usage, error)
}

type ImpersonationCounter interface {
	CountActiveForHousehold(ctx context.Context, tenantID domain.TenantID) (int, error)
}

type AuditReader interface {
	Query(ctx context.Context, filter audit.Filter, page domain.Page) (domain.PageResult[*audit.Entry], error)
}

// Service assembles read-only views for super admins.
type Service struct {
	households     HouseholdReader
	usage          UsageReader
	impersonations ImpersonationCounter
	audit          AuditReader
	logger         *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func NewService(households HouseholdReader, usage UsageReader, impersonations ImpersonationCounter, auditReader AuditReader, opts ...Option) *Service {
	s := &Service{
		households:     households,
		usage:          usage,
		impersonations: impersonations,
		audit:          auditReader,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Overview is everything an operator needs before acting on a household.
type Overview struct {
	Household            *models.Household
	Usage                *quota.Usage
	ActiveImpersonations int
	RecentActivity       []*audit.Entry
}

// Overview loads the household, its usage, live impersonation count and the
// latest audit entries concurrently. A missing household fails the whole
// call; a failing audit read only empties RecentActivity.
func (s *Service) Overview(ctx context.Context, id domain.TenantID) (*Overview, error) {
	if id.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "household id is required")
	}

	out := &Overview{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		h, err := s.households.Get(gctx, id)
		if err != nil {
			return err
		}
		out.Household = h
		return nil
	})
	g.Go(func() error {
		u, err := s.usage.Usage(gctx, id)
		if err != nil {
			return err
		}
		out.Usage = u
		return nil
	})
	g.Go(func() error {
		n, err := s.impersonations.CountActiveForHousehold(gctx, id)
		if err != nil {
			return err
		}
		out.ActiveImpersonations = n
		return nil
	})
	g.Go(func() error {
		res, err := s.audit.Query(gctx, audit.Filter{
			ResourceKind: audit.ResourceHousehold,
			ResourceID:   id.String(),
		}, domain.Page{Limit: recentActivityLimit})
		if err != nil {
			s.logger.WarnContext(ctx, "overview audit read failed",
				"error", err,
				"household_id", id.String(),
				"request_id", requestcontext.RequestID(ctx),
			)
			return nil
		}
		out.RecentActivity = res.Items
		return nil
	})

	if err := g.Wait(); err != nil {
		var domainErr *dErrors.Error
		if errors.As(err, &domainErr) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load household overview")
	}
	return out, nil
}
