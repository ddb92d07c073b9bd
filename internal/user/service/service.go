// Package service implements administrative account operations.
package service

import (
	"context"
	"errors"
	"log/slog"

	"hearth/internal/audit"
	"hearth/internal/user/models"
	"hearth/pkg/domain"
	dErrors "hearth/pkg/domain-errors"
	"hearth/pkg/platform/sentinel"
	"hearth/pkg/platform/tx"
	"hearth/pkg/requestcontext"
	"hearth/pkg/secrets"
)

type Store interface {
	Create(ctx context.Context, u *models.User) error
	Update(ctx context.Context, u *models.User) error
	FindByID(ctx context.Context, id domain.UserID) (*models.User, error)
}

// HouseholdStatusReader provides the status snapshot embedded in principals.
type HouseholdStatusReader interface {
	TenantStatus(ctx context.Context, id domain.TenantID) (domain.TenantStatus, error)
}

type PasswordHasher interface {
	Hash(secret string) (string, error)
}

type Service struct {
	store      Store
	households HouseholdStatusReader
	audit      audit.Recorder
	hasher     PasswordHasher
	tx         tx.Runner
	logger     *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithTx(runner tx.Runner) Option {
	return func(s *Service) { s.tx = runner }
}

func WithHasher(h PasswordHasher) Option {
	return func(s *Service) { s.hasher = h }
}

func New(store Store, households HouseholdStatusReader, recorder audit.Recorder, opts ...Option) (*Service, error) {
	switch {
	case store == nil:
		return nil, errors.New("user store is required")
	case households == nil:
		return nil, errors.New("household status reader is required")
	case recorder == nil:
		return nil, errors.New("audit recorder is required")
	}
	s := &Service{store: store, households: households, audit: recorder}
	for _, opt := range opts {
		opt(s)
	}
	if s.hasher == nil {
		s.hasher = secrets.NewHasher(0)
	}
	if s.tx == nil {
		s.tx = tx.NewInMemory()
	}
	return s, nil
}

// Create registers a user. Used by seeding and tests; it is not audited.
func (s *Service) Create(ctx context.Context, tenantID domain.TenantID, email, displayName string, role domain.Role) (*models.User, error) {
	u, err := models.NewUser(domain.NewUserID(), tenantID, email, displayName, role, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, u); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "email already registered")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to create user")
	}
	return u, nil
}

func (s *Service) Get(ctx context.Context, id domain.UserID) (*models.User, error) {
	u, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, wrapStoreErr(err, "failed to load user")
	}
	return u, nil
}

// FindPrincipal builds the identity a token for id would carry, including
// the current household status.
func (s *Service) FindPrincipal(ctx context.Context, id domain.UserID) (*domain.Principal, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	p := &domain.Principal{SubjectID: u.ID, Role: u.Role, TenantID: u.TenantID}
	if u.TenantID.IsNil() {
		return p, nil
	}
	status, err := s.households.TenantStatus(ctx, u.TenantID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to read household status")
	}
	p.TenantStatus = status
	return p, nil
}

// ResetPassword issues a temporary password and returns it exactly once.
// Only super admins may reset, and never for another super admin.
func (s *Service) ResetPassword(ctx context.Context, actor *domain.Principal, id domain.UserID) (string, error) {
	if actor == nil || !actor.Role.IsSuperAdmin() {
		return "", dErrors.New(dErrors.CodeForbidden, "only super admins may reset passwords")
	}

	password, err := secrets.TemporaryPassword()
	if err != nil {
		return "", err
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return "", err
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		u, err := s.store.FindByID(txCtx, id)
		if err != nil {
			return wrapStoreErr(err, "failed to load user")
		}
		if u.Role.IsSuperAdmin() {
			return dErrors.New(dErrors.CodeForbidden, "super admin passwords cannot be reset here")
		}
		u.SetTemporaryPassword(hash, requestcontext.Now(txCtx))

		entry := audit.For(actor, audit.ActionPasswordReset, audit.ResourceUser, u.ID.String(),
			map[string]any{"household_id": u.TenantID.String()})
		if _, err := s.audit.Record(txCtx, entry); err != nil {
			return err
		}
		if err := s.store.Update(txCtx, u); err != nil {
			return wrapStoreErr(err, "failed to update user")
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	s.logInfo(ctx, "password reset", actor, id)
	return password, nil
}

// ChangeRole moves a user between household roles. Household admins may only
// change users of their own household.
func (s *Service) ChangeRole(ctx context.Context, actor *domain.Principal, id domain.UserID, role domain.Role) (*models.User, error) {
	if actor == nil {
		return nil, dErrors.New(dErrors.CodeForbidden, "actor required")
	}
	if actor.SubjectID == id {
		return nil, dErrors.New(dErrors.CodeForbidden, "users cannot change their own role")
	}

	var out *models.User
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		u, err := s.store.FindByID(txCtx, id)
		if err != nil {
			return wrapStoreErr(err, "failed to load user")
		}
		if !actor.Role.IsSuperAdmin() && (actor.Role != domain.RoleAdmin || u.TenantID != actor.TenantID) {
			return dErrors.New(dErrors.CodeForbidden, "user is outside the caller's household")
		}
		previous, err := u.ChangeRole(role, requestcontext.Now(txCtx))
		if err != nil {
			if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
				return &dErrors.Error{Code: dErrors.CodeConflict, Message: err.Error(), Err: err}
			}
			return err
		}

		entry := audit.For(actor, audit.ActionRoleChange, audit.ResourceUser, u.ID.String(),
			map[string]any{"from": string(previous), "to": string(role), "household_id": u.TenantID.String()})
		if _, err := s.audit.Record(txCtx, entry); err != nil {
			return err
		}
		if err := s.store.Update(txCtx, u); err != nil {
			return wrapStoreErr(err, "failed to update user")
		}
		out = u
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logInfo(ctx, "role changed", actor, id)
	return out, nil
}

func (s *Service) logInfo(ctx context.Context, msg string, actor *domain.Principal, id domain.UserID) {
	if s.logger == nil {
		return
	}
	s.logger.InfoContext(ctx, msg,
		"user_id", id.String(),
		"actor_id", actor.SubjectID.String(),
		"request_id", requestcontext.RequestID(ctx),
	)
}

func wrapStoreErr(err error, action string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "user not found")
	}
	return dErrors.Wrap(err, dErrors.CodeUnavailable, action)
}
