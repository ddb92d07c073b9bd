// Package service owns the household lifecycle. Every administrative
// transition is written together with its audit entry.
package service

import (
	"context"
	"errors"
	"log/slog"

	"hearth/internal/audit"
	householdmetrics "hearth/internal/household/metrics"
	"hearth/internal/household/models"
	"hearth/pkg/domain"
	dErrors "hearth/pkg/domain-errors"
	"hearth/pkg/platform/sentinel"
	"hearth/pkg/platform/tx"
	"hearth/pkg/requestcontext"
)

type Store interface {
	Create(ctx context.Context, h *models.Household) error
	Update(ctx context.Context, h *models.Household) error
	FindByID(ctx context.Context, id domain.TenantID) (*models.Household, error)
	FindStatus(ctx context.Context, id domain.TenantID) (domain.TenantStatus, error)
	FindSubscription(ctx context.Context, id domain.TenantID) (*domain.Subscription, error)
	List(ctx context.Context, filter models.ListFilter, page domain.Page) (domain.PageResult[*models.Household], error)
}

type Service struct {
	store   Store
	audit   audit.Recorder
	tx      tx.Runner
	logger  *slog.Logger
	metrics *householdmetrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *householdmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithTx sets the transactional boundary. Defaults to an in-memory runner.
func WithTx(runner tx.Runner) Option {
	return func(s *Service) { s.tx = runner }
}

func New(store Store, recorder audit.Recorder, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("household store is required")
	}
	if recorder == nil {
		return nil, errors.New("audit recorder is required")
	}
	s := &Service{store: store, audit: recorder}
	for _, opt := range opts {
		opt(s)
	}
	if s.tx == nil {
		s.tx = tx.NewInMemory()
	}
	return s, nil
}

func (s *Service) Create(ctx context.Context, name string) (*models.Household, error) {
	h, err := models.NewHousehold(domain.NewTenantID(), name, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, h); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "household name must be unique")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to create household")
	}
	return h, nil
}

func (s *Service) Get(ctx context.Context, id domain.TenantID) (*models.Household, error) {
	if err := requireID(id); err != nil {
		return nil, err
	}
	h, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, wrapStoreErr(err, "failed to load household")
	}
	return h, nil
}

func (s *Service) List(ctx context.Context, filter models.ListFilter, page domain.Page) (domain.PageResult[*models.Household], error) {
	res, err := s.store.List(ctx, filter, page.Normalized())
	if err != nil {
		return domain.PageResult[*models.Household]{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to list households")
	}
	return res, nil
}

// Suspend makes a household read-only for everyone but super admins.
func (s *Service) Suspend(ctx context.Context, actor *domain.Principal, id domain.TenantID, reason string) (*models.Household, error) {
	return s.transition(ctx, actor, id, "suspend", func(h *models.Household) (audit.Entry, error) {
		if err := h.Suspend(reason, requestcontext.Now(ctx)); err != nil {
			return audit.Entry{}, err
		}
		return audit.For(actor, audit.ActionHouseholdSuspend, audit.ResourceHousehold, h.ID.String(),
			map[string]any{"reason": h.SuspendReason}), nil
	})
}

func (s *Service) Unsuspend(ctx context.Context, actor *domain.Principal, id domain.TenantID) (*models.Household, error) {
	return s.transition(ctx, actor, id, "unsuspend", func(h *models.Household) (audit.Entry, error) {
		previousReason := h.SuspendReason
		if err := h.Unsuspend(requestcontext.Now(ctx)); err != nil {
			return audit.Entry{}, err
		}
		return audit.For(actor, audit.ActionHouseholdUnsuspend, audit.ResourceHousehold, h.ID.String(),
			map[string]any{"previous_reason": previousReason}), nil
	})
}

func (s *Service) ChangePlan(ctx context.Context, actor *domain.Principal, id domain.TenantID, plan domain.Plan) (*models.Household, error) {
	return s.transition(ctx, actor, id, "plan_change", func(h *models.Household) (audit.Entry, error) {
		previous, err := h.ChangePlan(plan, requestcontext.Now(ctx))
		if err != nil {
			return audit.Entry{}, err
		}
		return audit.For(actor, audit.ActionPlanChange, audit.ResourceHousehold, h.ID.String(),
			map[string]any{"from": string(previous), "to": string(plan)}), nil
	})
}

// transition loads, mutates, audits and persists a household in one
// transaction. The entry is written before the row so an audit failure leaves
// stores without rollback untouched.
func (s *Service) transition(ctx context.Context, actor *domain.Principal, id domain.TenantID, kind string,
	mutate func(h *models.Household) (audit.Entry, error),
) (*models.Household, error) {
	if actor == nil || !actor.Role.IsSuperAdmin() {
		return nil, dErrors.New(dErrors.CodeForbidden, "only super admins may change household state")
	}
	if err := requireID(id); err != nil {
		return nil, err
	}

	var out *models.Household
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		h, err := s.store.FindByID(txCtx, id)
		if err != nil {
			return wrapStoreErr(err, "failed to load household")
		}
		entry, err := mutate(h)
		if err != nil {
			if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
				return &dErrors.Error{Code: dErrors.CodeConflict, Message: err.Error(), Err: err}
			}
			return err
		}
		if _, err := s.audit.Record(txCtx, entry); err != nil {
			return err
		}
		if err := s.store.Update(txCtx, h); err != nil {
			return wrapStoreErr(err, "failed to update household")
		}
		out = h
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncTransition(kind)
	if s.logger != nil {
		s.logger.InfoContext(ctx, "household "+kind,
			"household_id", id.String(),
			"actor_id", actor.SubjectID.String(),
			"status", string(out.Status),
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	return out, nil
}

// TenantStatus returns the live status for the authorization pipeline.
// A missing household is reported as not_found; anything else is unavailable.
func (s *Service) TenantStatus(ctx context.Context, id domain.TenantID) (domain.TenantStatus, error) {
	status, err := s.store.FindStatus(ctx, id)
	if err != nil {
		return "", wrapStoreErr(err, "failed to read household status")
	}
	return status, nil
}

// Subscription returns nil when the household has no subscription on record.
func (s *Service) Subscription(ctx context.Context, id domain.TenantID) (*domain.Subscription, error) {
	sub, err := s.store.FindSubscription(ctx, id)
	if err != nil {
		return nil, wrapStoreErr(err, "failed to read subscription")
	}
	return sub, nil
}

func requireID(id domain.TenantID) error {
	if id.IsNil() {
		return dErrors.New(dErrors.CodeBadRequest, "household ID required")
	}
	return nil
}

func wrapStoreErr(err error, action string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "household not found")
	}
	return dErrors.Wrap(err, dErrors.CodeUnavailable, action)
}
