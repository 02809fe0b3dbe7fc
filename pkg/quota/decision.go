package quota

import "github.com/dmitrymomot/meterkit/pkg/plans"

// Reason explains why a decision was made.
type Reason string

const (
	ReasonNone         Reason = ""
	ReasonMonthlyLimit Reason = "monthly_limit_reached"
	ReasonDailyLimit   Reason = "daily_limit_reached"
	ReasonUserNotFound Reason = "user_not_found"
)

// Decision is the result of a quota check. Remaining values are
// plans.Unlimited when the corresponding limit is not enforced.
type Decision struct {
	Allowed          bool   `json:"allowed"`
	Reason           Reason `json:"reason,omitempty"`
	RemainingMonthly int64  `json:"remaining_monthly"`
	RemainingDaily   int64  `json:"remaining_daily"`
	Degraded         bool   `json:"degraded,omitempty"`
}

// IsOverage reports whether the action is allowed only because the user
// consented to pay for units above the monthly limit.
func (d Decision) IsOverage() bool {
	return d.Allowed && d.Reason == ReasonMonthlyLimit
}

func degraded() Decision {
	return Decision{
		Allowed:          true,
		RemainingMonthly: plans.Unlimited,
		RemainingDaily:   plans.Unlimited,
		Degraded:         true,
	}
}

func userNotFound() Decision {
	return Decision{Reason: ReasonUserNotFound}
}
