// Package requestcontext carries request-scoped values between middleware,
// handlers and services without threading them through every signature.
package requestcontext

import (
	"context"
	"time"

	"hearth/pkg/domain"
)

type (
	ctxKeyRequestID   struct{}
	ctxKeyClientIP    struct{}
	ctxKeyUserAgent   struct{}
	ctxKeyRequestTime struct{}
	ctxKeyPrincipal   struct{}
	ctxKeyTenantID    struct{}
)

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID{}, id)
}

// RequestID returns the request id, or "" outside an HTTP request.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeyRequestID{}).(string)
	return id
}

func WithClientMetadata(ctx context.Context, ip, userAgent string) context.Context {
	ctx = context.WithValue(ctx, ctxKeyClientIP{}, ip)
	return context.WithValue(ctx, ctxKeyUserAgent{}, userAgent)
}

func ClientIP(ctx context.Context) string {
	ip, _ := ctx.Value(ctxKeyClientIP{}).(string)
	return ip
}

func UserAgent(ctx context.Context) string {
	ua, _ := ctx.Value(ctxKeyUserAgent{}).(string)
	return ua
}

// WithTime pins "now" for everything downstream of ctx. The HTTP stack sets it
// once per request; tests use it to control expiry arithmetic.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ctxKeyRequestTime{}, t)
}

// Now returns the pinned request time, falling back to the wall clock.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ctxKeyRequestTime{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithPrincipal stores the authorized caller and the tenant the request is scoped to.
func WithPrincipal(ctx context.Context, p *domain.Principal, tenantID domain.TenantID) context.Context {
	ctx = context.WithValue(ctx, ctxKeyPrincipal{}, p)
	return context.WithValue(ctx, ctxKeyTenantID{}, tenantID)
}

// Principal returns the authorized caller, or nil when the request was not authorized.
func Principal(ctx context.Context) *domain.Principal {
	p, _ := ctx.Value(ctxKeyPrincipal{}).(*domain.Principal)
	return p
}

// TenantID returns the resolved tenant for the request. It can differ from the
// principal's own tenant when a super admin addresses another household.
func TenantID(ctx context.Context) domain.TenantID {
	id, _ := ctx.Value(ctxKeyTenantID{}).(domain.TenantID)
	return id
}
