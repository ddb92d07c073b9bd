// Package quota enforces plan ceilings on household resources.
//
// Writes that create a resource call RequireQuota (or one of the
// RequireCanAdd wrappers) before persisting:
//
//	if err := resolver.RequireCanAddPet(ctx, householdID); err != nil {
//	    return err // feature_unavailable or quota_exceeded
//	}
//
// Counts are read live on every call. Two concurrent writes may both pass a
// check for the last free slot.
package quota

import (
	"context"
	"errors"
	"log/slog"

	"hearth/internal/quota/metrics"
	"hearth/pkg/domain"
	dErrors "hearth/pkg/domain-errors"
	"hearth/pkg/requestcontext"
)

// SubscriptionReader returns a household's subscription, or nil when it has none.
type SubscriptionReader interface {
	Subscription(ctx context.Context, id domain.TenantID) (*domain.Subscription, error)
}

// Counter counts live resources of one kind for a household.
type Counter interface {
	Count(ctx context.Context, tenantID domain.TenantID, kind ResourceKind) (int, error)
}

type Resolver struct {
	subscriptions SubscriptionReader
	counter       Counter
	limits        *Table
	metrics       *metrics.Metrics
	logger        *slog.Logger
}

type Option func(*Resolver)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) { r.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Resolver) { r.metrics = m }
}

func New(subscriptions SubscriptionReader, counter Counter, limits *Table, opts ...Option) (*Resolver, error) {
	switch {
	case subscriptions == nil:
		return nil, errors.New("subscription reader is required")
	case counter == nil:
		return nil, errors.New("resource counter is required")
	case limits == nil:
		return nil, errors.New("plan limits are required")
	}
	r := &Resolver{subscriptions: subscriptions, counter: counter, limits: limits}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// CheckQuota reports whether one more resource of kind fits the household's
// plan. Only storage failures are returned as errors.
func (r *Resolver) CheckQuota(ctx context.Context, tenantID domain.TenantID, kind ResourceKind) (bool, error) {
	err := r.RequireQuota(ctx, tenantID, kind)
	switch {
	case err == nil:
		return true, nil
	case dErrors.HasCode(err, dErrors.CodeQuotaExceeded), dErrors.HasCode(err, dErrors.CodeFeatureUnavailable):
		return false, nil
	default:
		return false, err
	}
}

// RequireQuota fails with feature_unavailable when the plan lacks the feature
// gating kind, and with quota_exceeded when the household is at its ceiling.
func (r *Resolver) RequireQuota(ctx context.Context, tenantID domain.TenantID, kind ResourceKind) error {
	if tenantID.IsNil() {
		return dErrors.New(dErrors.CodeBadRequest, "household ID required")
	}
	if _, ok := ParseResourceKind(string(kind)); !ok {
		return dErrors.New(dErrors.CodeBadRequest, "unknown resource kind")
	}

	plan, err := r.plan(ctx, tenantID)
	if err != nil {
		return err
	}
	limits := r.limits.For(plan)

	if feature, gated := gates[kind]; gated && !limits.Has(feature) {
		r.deny(ctx, tenantID, kind, plan, dErrors.CodeFeatureUnavailable)
		return dErrors.WithDetails(dErrors.CodeFeatureUnavailable,
			string(kind)+" are not available on the "+plan.String()+" plan",
			map[string]any{"resource": string(kind), "feature": string(feature), "plan": plan.String()})
	}

	ceiling := limits.Ceiling(kind)
	if ceiling == Unlimited {
		return nil
	}
	current, err := r.count(ctx, tenantID, kind)
	if err != nil {
		return err
	}
	if current < ceiling {
		return nil
	}

	r.deny(ctx, tenantID, kind, plan, dErrors.CodeQuotaExceeded)
	return dErrors.WithDetails(dErrors.CodeQuotaExceeded,
		"the "+plan.String()+" plan allows no more "+string(kind),
		map[string]any{"resource": string(kind), "current": current, "max": ceiling, "plan": plan.String()})
}

func (r *Resolver) RequireCanAddMember(ctx context.Context, id domain.TenantID) error {
	return r.RequireQuota(ctx, id, ResourceMembers)
}

func (r *Resolver) RequireCanAddTask(ctx context.Context, id domain.TenantID) error {
	return r.RequireQuota(ctx, id, ResourceTasks)
}

func (r *Resolver) RequireCanAddVehicle(ctx context.Context, id domain.TenantID) error {
	return r.RequireQuota(ctx, id, ResourceVehicles)
}

func (r *Resolver) RequireCanAddPet(ctx context.Context, id domain.TenantID) error {
	return r.RequireQuota(ctx, id, ResourcePets)
}

func (r *Resolver) RequireCanAddChild(ctx context.Context, id domain.TenantID) error {
	return r.RequireQuota(ctx, id, ResourceChildren)
}

func (r *Resolver) RequireCanAddEmployee(ctx context.Context, id domain.TenantID) error {
	return r.RequireQuota(ctx, id, ResourceEmployees)
}

func (r *Resolver) RequireCanAddInventoryItem(ctx context.Context, id domain.TenantID) error {
	return r.RequireQuota(ctx, id, ResourceInventoryItems)
}

// ResourceUsage is the consumption of one resource kind.
type ResourceUsage struct {
	Kind      ResourceKind
	Current   int
	Max       int
	Unlimited bool
	Available bool
}

type Usage struct {
	Plan      domain.Plan
	Resources []ResourceUsage
	Features  map[Feature]bool
}

// Usage reports current consumption against every ceiling of the household's plan.
func (r *Resolver) Usage(ctx context.Context, tenantID domain.TenantID) (*Usage, error) {
	if tenantID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "household ID required")
	}
	plan, err := r.plan(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	limits := r.limits.For(plan)

	out := &Usage{Plan: plan, Features: limits.Features()}
	for _, kind := range allKinds {
		current, err := r.count(ctx, tenantID, kind)
		if err != nil {
			return nil, err
		}
		u := ResourceUsage{Kind: kind, Current: current, Max: limits.Ceiling(kind), Available: true}
		u.Unlimited = u.Max == Unlimited
		if feature, gated := gates[kind]; gated {
			u.Available = limits.Has(feature)
		}
		out.Resources = append(out.Resources, u)
	}
	return out, nil
}

func (r *Resolver) plan(ctx context.Context, tenantID domain.TenantID) (domain.Plan, error) {
	sub, err := r.subscriptions.Subscription(ctx, tenantID)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to resolve subscription")
	}
	return sub.EffectivePlan(), nil
}

func (r *Resolver) count(ctx context.Context, tenantID domain.TenantID, kind ResourceKind) (int, error) {
	n, err := r.counter.Count(ctx, tenantID, kind)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to count "+string(kind))
	}
	return n, nil
}

func (r *Resolver) deny(ctx context.Context, tenantID domain.TenantID, kind ResourceKind, plan domain.Plan, reason dErrors.Code) {
	r.metrics.IncDenial(string(kind), string(reason))
	if r.logger == nil {
		return
	}
	r.logger.InfoContext(ctx, "quota denied",
		"household_id", tenantID.String(),
		"resource", string(kind),
		"plan", plan.String(),
		"reason", string(reason),
		"request_id", requestcontext.RequestID(ctx),
	)
}
