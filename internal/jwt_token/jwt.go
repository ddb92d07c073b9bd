package jwttoken

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"hearth/pkg/domain"
	dErrors "hearth/pkg/domain-errors"
	"hearth/pkg/requestcontext"
)

// FailureKind classifies why a token was rejected.
type FailureKind string

const (
	FailureExpired          FailureKind = "EXPIRED"
	FailureMalformed        FailureKind = "MALFORMED"
	FailureSignatureInvalid FailureKind = "SIGNATURE_INVALID"
)

// VerifyError is returned by Verify. It unwraps to an unauthenticated domain
// error so transport code can treat every kind the same way.
type VerifyError struct {
	Kind FailureKind
	err  error
}

func (e *VerifyError) Error() string { return "token " + string(e.Kind) + ": " + e.err.Error() }

func (e *VerifyError) Unwrap() error {
	return &dErrors.Error{Code: dErrors.CodeUnauthenticated, Message: "invalid or expired token", Err: e.err}
}

func failure(kind FailureKind, err error) error {
	return &VerifyError{Kind: kind, err: err}
}

// KindOf returns the failure kind of a verification error, or "" when err did
// not come from Verify.
func KindOf(err error) FailureKind {
	var ve *VerifyError
	if errors.As(err, &ve) {
		return ve.Kind
	}
	return ""
}

// Claims is the signed payload. The subject is the user id.
type Claims struct {
	Role         string `json:"role"`
	TenantID     string `json:"tenant_id,omitempty"`
	TenantStatus string `json:"tenant_status,omitempty"`

	IsImpersonating        bool   `json:"is_impersonating,omitempty"`
	ImpersonatedBy         string `json:"impersonated_by,omitempty"`
	ImpersonationSessionID string `json:"impersonation_session_id,omitempty"`
	jwt.RegisteredClaims
}

// JWTService signs and verifies HS256 tokens for one issuer and audience.
type JWTService struct {
	signingKey []byte
	issuer     string
	audience   string
	tokenTTL   time.Duration
}

func NewJWTService(signingKey, issuer, audience string, tokenTTL time.Duration) *JWTService {
	return &JWTService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
		tokenTTL:   tokenTTL,
	}
}

// Issue mints a token for p with the configured lifetime.
func (s *JWTService) Issue(ctx context.Context, p *domain.Principal) (string, time.Time, error) {
	return s.IssueWithTTL(ctx, p, s.tokenTTL)
}

// IssueWithTTL mints a token with an absolute expiry of now+ttl. The
// impersonation triple is written when p carries an impersonation marker.
func (s *JWTService) IssueWithTTL(ctx context.Context, p *domain.Principal, ttl time.Duration) (string, time.Time, error) {
	if p == nil || p.SubjectID.IsNil() || !p.Role.IsValid() {
		return "", time.Time{}, dErrors.New(dErrors.CodeInvalidInput, "principal requires a subject and a known role")
	}
	if ttl <= 0 {
		return "", time.Time{}, dErrors.New(dErrors.CodeInvalidInput, "token ttl must be positive")
	}

	now := requestcontext.Now(ctx)
	expiresAt := now.Add(ttl)
	claims := Claims{
		Role:         string(p.Role),
		TenantStatus: string(p.TenantStatus),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.SubjectID.String(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			Audience:  []string{s.audience},
			ID:        uuid.NewString(),
		},
	}
	if p.HasTenant() {
		claims.TenantID = p.TenantID.String()
	}
	if p.Impersonation != nil {
		claims.IsImpersonating = true
		claims.ImpersonatedBy = p.Impersonation.ImpersonatedBy.String()
		claims.ImpersonationSessionID = p.Impersonation.SessionID.String()
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing token: %w", err)
	}
	return signed, expiresAt, nil
}

// IssueImpersonation mints a token acting as target on behalf of actorID
// within session sessionID. target itself is not modified.
func (s *JWTService) IssueImpersonation(ctx context.Context, target *domain.Principal, sessionID domain.SessionID, actorID domain.UserID, ttl time.Duration) (string, time.Time, error) {
	if target == nil || sessionID.IsNil() || actorID.IsNil() {
		return "", time.Time{}, dErrors.New(dErrors.CodeInvalidInput, "impersonation requires a target, a session and an actor")
	}
	p := *target
	p.Impersonation = &domain.Impersonation{SessionID: sessionID, ImpersonatedBy: actorID}
	return s.IssueWithTTL(ctx, &p, ttl)
}

// Verify checks signature, algorithm, issuer, audience and expiry, then maps
// the claims onto a Principal. Expiry is evaluated against the request clock.
func (s *JWTService) Verify(ctx context.Context, tokenString string) (*domain.Principal, error) {
	if tokenString == "" {
		return nil, failure(FailureMalformed, errors.New("empty token"))
	}

	claims := new(Claims)
	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return s.signingKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return requestcontext.Now(ctx) }),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, failure(FailureExpired, err)
		case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
			return nil, failure(FailureSignatureInvalid, err)
		default:
			return nil, failure(FailureMalformed, err)
		}
	}

	p, err := claims.principal()
	if err != nil {
		return nil, failure(FailureMalformed, err)
	}
	return p, nil
}

func (c *Claims) principal() (*domain.Principal, error) {
	subject, err := domain.ParseUserID(c.Subject)
	if err != nil {
		return nil, fmt.Errorf("subject: %w", err)
	}
	role, ok := domain.ParseRole(c.Role)
	if !ok {
		return nil, fmt.Errorf("unknown role %q", c.Role)
	}

	p := &domain.Principal{SubjectID: subject, Role: role, TenantStatus: domain.TenantStatus(c.TenantStatus)}
	if c.TenantID != "" {
		if p.TenantID, err = domain.ParseTenantID(c.TenantID); err != nil {
			return nil, fmt.Errorf("tenant_id: %w", err)
		}
	}
	if c.IsImpersonating {
		actor, err := domain.ParseUserID(c.ImpersonatedBy)
		if err != nil {
			return nil, fmt.Errorf("impersonated_by: %w", err)
		}
		session, err := domain.ParseSessionID(c.ImpersonationSessionID)
		if err != nil {
			return nil, fmt.Errorf("impersonation_session_id: %w", err)
		}
		p.Impersonation = &domain.Impersonation{SessionID: session, ImpersonatedBy: actor}
	}
	return p, nil
}
