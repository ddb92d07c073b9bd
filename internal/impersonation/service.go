// Package impersonation lets a super admin act as a household user for a
// fixed 30 minute window. Sessions are started and ended explicitly; expiry
// is computed from the start time when sessions are read.
package impersonation

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"hearth/internal/audit"
	"hearth/internal/guard"
	"hearth/internal/impersonation/metrics"
	"hearth/internal/impersonation/models"
	"hearth/pkg/domain"
	dErrors "hearth/pkg/domain-errors"
	"hearth/pkg/platform/device"
	"hearth/pkg/platform/sentinel"
	"hearth/pkg/platform/tx"
	"hearth/pkg/requestcontext"
)

// SessionDuration is the absolute lifetime of a session and its token.
const SessionDuration = models.SessionDuration

type Store interface {
	Create(ctx context.Context, session *models.Session) error
	FindByID(ctx context.Context, id domain.SessionID) (*models.Session, error)
	MarkEnded(ctx context.Context, id domain.SessionID, at time.Time) (bool, error)
	// Delete and Reopen undo Create and MarkEnded when the audit write
	// that follows them fails and the store is outside the transaction.
	Delete(ctx context.Context, session *models.Session) error
	Reopen(ctx context.Context, id domain.SessionID, endedAt time.Time) (bool, error)
	IncrementActions(ctx context.Context, id domain.SessionID) error
	ListOpenByActor(ctx context.Context, actorID domain.UserID, since time.Time) ([]*models.Session, error)
	CountOpenByTenant(ctx context.Context, tenantID domain.TenantID, since time.Time) (int, error)
	History(ctx context.Context, filter models.HistoryFilter, page domain.Page) (domain.PageResult[*models.Session], error)
}

// TokenIssuer mints the token the super admin uses while impersonating.
type TokenIssuer interface {
	IssueImpersonation(ctx context.Context, target *domain.Principal, sessionID domain.SessionID, actorID domain.UserID, ttl time.Duration) (string, time.Time, error)
}

// Directory resolves the identity a target user's token would carry.
type Directory interface {
	FindPrincipal(ctx context.Context, id domain.UserID) (*domain.Principal, error)
}

type Service struct {
	store     Store
	tokens    TokenIssuer
	directory Directory
	audit     audit.Recorder
	tx        tx.Runner
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithTx(runner tx.Runner) Option {
	return func(s *Service) { s.tx = runner }
}

func New(store Store, tokens TokenIssuer, directory Directory, recorder audit.Recorder, opts ...Option) (*Service, error) {
	switch {
	case store == nil:
		return nil, errors.New("impersonation store is required")
	case tokens == nil:
		return nil, errors.New("token issuer is required")
	case directory == nil:
		return nil, errors.New("user directory is required")
	case recorder == nil:
		return nil, errors.New("audit recorder is required")
	}
	s := &Service{store: store, tokens: tokens, directory: directory, audit: recorder}
	for _, opt := range opts {
		opt(s)
	}
	if s.tx == nil {
		s.tx = tx.NewInMemory()
	}
	return s, nil
}

type StartResult struct {
	SessionID domain.SessionID
	Token     string
	ExpiresAt time.Time
	ExpiresIn time.Duration
	Target    *domain.Principal
}

// Start opens a session for actor acting as targetID and mints its token.
func (s *Service) Start(ctx context.Context, actor *domain.Principal, targetID domain.UserID) (*StartResult, error) {
	if actor == nil || !actor.Role.IsSuperAdmin() {
		return nil, dErrors.New(dErrors.CodeForbidden, "only super admins may impersonate")
	}
	if targetID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "target user ID required")
	}

	target, err := s.directory.FindPrincipal(ctx, targetID)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "target user not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load target user")
	}
	if target.Role.IsSuperAdmin() {
		return nil, dErrors.New(dErrors.CodeForbidden, "super admins cannot be impersonated")
	}

	now := requestcontext.Now(ctx)
	session := &models.Session{
		ID:             domain.NewSessionID(),
		ActorID:        actor.SubjectID,
		TargetID:       target.SubjectID,
		TargetTenantID: target.TenantID,
		StartedAt:      now,
	}
	token, expiresAt, err := s.tokens.IssueImpersonation(ctx, target, session.ID, actor.SubjectID, SessionDuration)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to mint impersonation token")
	}

	created := false
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.store.Create(txCtx, session); err != nil {
			return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to create impersonation session")
		}
		created = true
		entry := audit.For(actor, audit.ActionImpersonationStart, audit.ResourceImpersonation, session.ID.String(), map[string]any{
			"target_user_id": target.SubjectID.String(),
			"household_id":   target.TenantID.String(),
			"target_role":    string(target.Role),
			"device":         device.DisplayName(requestcontext.UserAgent(txCtx)),
		})
		_, err := s.audit.Record(txCtx, entry)
		return err
	})
	if err != nil {
		if created {
			s.discard(ctx, session)
		}
		return nil, err
	}

	s.metrics.IncStarted()
	s.logAudit(ctx, "impersonation started", session)
	return &StartResult{
		SessionID: session.ID,
		Token:     token,
		ExpiresAt: expiresAt,
		ExpiresIn: expiresAt.Sub(now),
		Target:    target,
	}, nil
}

type EndResult struct {
	Session      *models.Session
	AlreadyEnded bool
}

// End closes a session. Only the super admin who started it may end it.
// Ending twice succeeds with AlreadyEnded and writes no second audit entry.
func (s *Service) End(ctx context.Context, sessionID domain.SessionID, callerID domain.UserID) (*EndResult, error) {
	session, err := s.store.FindByID(ctx, sessionID)
	if err != nil {
		return nil, wrapStoreErr(err, "failed to load impersonation session")
	}
	if session.ActorID != callerID {
		return nil, dErrors.New(dErrors.CodeForbidden, "only the initiating admin may end this session")
	}
	if session.EndedAt != nil {
		s.metrics.IncEnded("already_ended")
		return &EndResult{Session: session, AlreadyEnded: true}, nil
	}

	now := requestcontext.Now(ctx)
	ended := false
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		ended, err = s.store.MarkEnded(txCtx, sessionID, now)
		if err != nil {
			return wrapStoreErr(err, "failed to end impersonation session")
		}
		if !ended {
			return nil
		}
		entry := audit.Entry{
			ActorID:      callerID,
			ActorLabel:   string(domain.RoleSuperAdmin),
			Action:       audit.ActionImpersonationEnd,
			ResourceKind: audit.ResourceImpersonation,
			ResourceID:   sessionID.String(),
			Details: map[string]any{
				"target_user_id": session.TargetID.String(),
				"household_id":   session.TargetTenantID.String(),
				"duration_ms":    now.Sub(session.StartedAt).Milliseconds(),
			},
		}
		_, err = s.audit.Record(txCtx, entry)
		return err
	})
	if err != nil {
		if ended {
			s.reopen(ctx, sessionID, now)
		}
		return nil, err
	}

	if !ended {
		s.metrics.IncEnded("already_ended")
		latest, err := s.store.FindByID(ctx, sessionID)
		if err != nil {
			return nil, wrapStoreErr(err, "failed to load impersonation session")
		}
		return &EndResult{Session: latest, AlreadyEnded: true}, nil
	}

	session.EndedAt = &now
	s.metrics.IncEnded("ended")
	s.logAudit(ctx, "impersonation ended", session)
	return &EndResult{Session: session}, nil
}

// discard removes a session whose start was not audited.
func (s *Service) discard(ctx context.Context, session *models.Session) {
	if err := s.store.Delete(ctx, session); err != nil && s.logger != nil {
		s.logger.ErrorContext(ctx, "failed to discard unaudited impersonation session",
			"error", err,
			"session_id", session.ID.String(),
			"request_id", requestcontext.RequestID(ctx),
		)
	}
}

// reopen undoes an end that was not audited so a retry can end and audit it.
func (s *Service) reopen(ctx context.Context, id domain.SessionID, endedAt time.Time) {
	if _, err := s.store.Reopen(ctx, id, endedAt); err != nil && s.logger != nil {
		s.logger.ErrorContext(ctx, "failed to reopen unaudited impersonation session",
			"error", err,
			"session_id", id.String(),
			"request_id", requestcontext.RequestID(ctx),
		)
	}
}

// ListActive returns actorID's sessions that are neither ended nor expired.
func (s *Service) ListActive(ctx context.Context, actorID domain.UserID) ([]*models.Session, error) {
	now := requestcontext.Now(ctx)
	open, err := s.store.ListOpenByActor(ctx, actorID, now.Add(-SessionDuration))
	if err != nil {
		return nil, wrapStoreErr(err, "failed to list impersonation sessions")
	}
	active := make([]*models.Session, 0, len(open))
	for _, session := range open {
		if session.IsActive(now) {
			active = append(active, session)
		}
	}
	return active, nil
}

// CountActiveForHousehold counts live sessions whose target belongs to tenantID.
func (s *Service) CountActiveForHousehold(ctx context.Context, tenantID domain.TenantID) (int, error) {
	now := requestcontext.Now(ctx)
	n, err := s.store.CountOpenByTenant(ctx, tenantID, now.Add(-SessionDuration))
	if err != nil {
		return 0, wrapStoreErr(err, "failed to count impersonation sessions")
	}
	return n, nil
}

func (s *Service) History(ctx context.Context, filter models.HistoryFilter, page domain.Page) (domain.PageResult[*models.Session], error) {
	if !filter.From.IsZero() && !filter.To.IsZero() && !filter.From.Before(filter.To) {
		return domain.PageResult[*models.Session]{}, dErrors.New(dErrors.CodeBadRequest, "from must be before to")
	}
	res, err := s.store.History(ctx, filter, page.Normalized())
	if err != nil {
		return domain.PageResult[*models.Session]{}, wrapStoreErr(err, "failed to query impersonation history")
	}
	return res, nil
}

// LogAction counts one write performed under sessionID. Failures are logged
// and returned but must never fail the request that triggered them.
func (s *Service) LogAction(ctx context.Context, sessionID domain.SessionID) error {
	err := s.store.IncrementActions(ctx, sessionID)
	s.metrics.IncAction(err == nil)
	if err != nil {
		if s.logger != nil {
			s.logger.WarnContext(ctx, "failed to record impersonation action",
				"error", err,
				"session_id", sessionID.String(),
				"request_id", requestcontext.RequestID(ctx),
			)
		}
		return wrapStoreErr(err, "failed to record impersonation action")
	}
	return nil
}

// TrackActions is a guard.AllowHook. It counts authorized writes made with
// an impersonation token without delaying the request.
func (s *Service) TrackActions(ctx context.Context, d *guard.Decision) {
	if d == nil || d.Principal == nil || !d.Principal.IsImpersonating() || d.Operation.IsRead() {
		return
	}
	sessionID := d.Principal.Impersonation.SessionID
	detached := context.WithoutCancel(ctx)
	go func() {
		_ = s.LogAction(detached, sessionID)
	}()
}

func (s *Service) logAudit(ctx context.Context, msg string, session *models.Session) {
	if s.logger == nil {
		return
	}
	s.logger.InfoContext(ctx, msg,
		"log_type", "audit",
		"session_id", session.ID.String(),
		"actor_id", session.ActorID.String(),
		"target_user_id", session.TargetID.String(),
		"household_id", session.TargetTenantID.String(),
		"request_id", requestcontext.RequestID(ctx),
	)
}

func wrapStoreErr(err error, action string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "impersonation session not found")
	}
	return dErrors.Wrap(err, dErrors.CodeUnavailable, action)
}
