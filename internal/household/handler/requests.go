package handler

import (
	"strings"

	"hearth/pkg/validation"
)

type SuspendRequest struct {
	Reason string `json:"reason" validate:"notblank,max=500"`
}

func (r *SuspendRequest) Normalize() {
	r.Reason = strings.TrimSpace(r.Reason)
}

func (r *SuspendRequest) Validate() error {
	return validation.Validate(r)
}

type ChangePlanRequest struct {
	Plan string `json:"plan" validate:"required,plan"`
}

func (r *ChangePlanRequest) Normalize() {
	r.Plan = strings.ToUpper(strings.TrimSpace(r.Plan))
}

func (r *ChangePlanRequest) Validate() error {
	return validation.Validate(r)
}
