package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEffectivePlan(t *testing.T) {
	cases := []struct {
		name string
		sub  *Subscription
		want Plan
	}{
		{"no subscription", nil, PlanFree},
		{"empty plan", &Subscription{Status: SubscriptionActive}, PlanFree},
		{"active premium", &Subscription{Plan: PlanPremium, Status: SubscriptionActive}, PlanPremium},
		{"trialing family", &Subscription{Plan: PlanFamily, Status: SubscriptionTrialing}, PlanFamily},
		{"past due premium", &Subscription{Plan: PlanPremium, Status: SubscriptionPastDue}, PlanFree},
		{"canceled premium", &Subscription{Plan: PlanPremium, Status: SubscriptionCanceled}, PlanFree},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.sub.EffectivePlan())
		})
	}
}

func TestParsePlan(t *testing.T) {
	p, ok := ParsePlan("PREMIUM")
	assert.True(t, ok)
	assert.Equal(t, PlanPremium, p)

	_, ok = ParsePlan("premium")
	assert.False(t, ok)
}
