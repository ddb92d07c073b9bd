package handler

import (
	"time"

	"hearth/internal/household/models"
	"hearth/pkg/domain"
)

type SubscriptionResponse struct {
	Plan          string `json:"plan"`
	Status        string `json:"status"`
	EffectivePlan string `json:"effective_plan"`
}

type HouseholdResponse struct {
	ID            string                `json:"id"`
	Name          string                `json:"name"`
	Status        string                `json:"status"`
	Subscription  *SubscriptionResponse `json:"subscription,omitempty"`
	SuspendedAt   *time.Time            `json:"suspended_at,omitempty"`
	SuspendReason string                `json:"suspend_reason,omitempty"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
}

type ListResponse struct {
	Households []*HouseholdResponse `json:"households"`
	Limit      int                  `json:"limit"`
	Offset     int                  `json:"offset"`
	HasMore    bool                 `json:"has_more"`
}

// ToHouseholdResponse is shared with the admin overview.
func ToHouseholdResponse(h *models.Household) *HouseholdResponse {
	resp := &HouseholdResponse{
		ID:            h.ID.String(),
		Name:          h.Name,
		Status:        string(h.Status),
		SuspendedAt:   h.SuspendedAt,
		SuspendReason: h.SuspendReason,
		CreatedAt:     h.CreatedAt,
		UpdatedAt:     h.UpdatedAt,
	}
	if h.Subscription != nil {
		resp.Subscription = &SubscriptionResponse{
			Plan:          string(h.Subscription.Plan),
			Status:        string(h.Subscription.Status),
			EffectivePlan: string(h.Subscription.EffectivePlan()),
		}
	}
	return resp
}

func toListResponse(res domain.PageResult[*models.Household]) *ListResponse {
	out := &ListResponse{
		Households: make([]*HouseholdResponse, 0, len(res.Items)),
		Limit:      res.Limit,
		Offset:     res.Offset,
		HasMore:    res.HasMore,
	}
	for _, h := range res.Items {
		out.Households = append(out.Households, ToHouseholdResponse(h))
	}
	return out
}
