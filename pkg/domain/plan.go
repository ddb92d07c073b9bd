package domain

// Plan names a subscription tier.
type Plan string

const (
	PlanFree    Plan = "FREE"
	PlanFamily  Plan = "FAMILY"
	PlanPremium Plan = "PREMIUM"
)

// ParsePlan accepts the canonical upper-case plan names only.
func ParsePlan(s string) (Plan, bool) {
	switch p := Plan(s); p {
	case PlanFree, PlanFamily, PlanPremium:
		return p, true
	}
	return "", false
}

func (p Plan) String() string { return string(p) }

// SubscriptionStatus is the billing state of a subscription.
type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "ACTIVE"
	SubscriptionTrialing SubscriptionStatus = "TRIALING"
	SubscriptionPastDue  SubscriptionStatus = "PAST_DUE"
	SubscriptionCanceled SubscriptionStatus = "CANCELED"
)

// Subscription is a household's plan and its billing state.
type Subscription struct {
	Plan   Plan
	Status SubscriptionStatus
}

// EffectivePlan is the plan whose limits apply. Only active or trialing
// subscriptions grant their plan; anything else falls back to FREE.
func (s *Subscription) EffectivePlan() Plan {
	if s == nil || s.Plan == "" {
		return PlanFree
	}
	switch s.Status {
	case SubscriptionActive, SubscriptionTrialing:
		return s.Plan
	}
	return PlanFree
}
