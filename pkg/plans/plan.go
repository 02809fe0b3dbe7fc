package plans

import (
	"github.com/shopspring/decimal"
)

// Unlimited represents a quota with no limit (-1 chosen for SQL compatibility).
const Unlimited int64 = -1

// Predefined tier identifiers.
const (
	TierFree   = "free"
	TierBasic  = "basic"
	TierPro    = "pro"
	TierAgency = "agency"
)

// Plan describes a subscription tier and its metering parameters.
// DailyLimit is independent of MonthlyLimit: a small daily cap under a large
// monthly cap is a valid configuration and is not validated against it.
type Plan struct {
	ID                  string          `yaml:"id"`
	Name                string          `yaml:"name"`
	MonthlyLimit        int64           `yaml:"monthly_limit"`
	DailyLimit          int64           `yaml:"daily_limit"`
	OverageRate         decimal.Decimal `yaml:"overage_rate"` // price per unit above MonthlyLimit
	SeatsIncluded       int             `yaml:"seats_included"`
	AdditionalSeatPrice decimal.Decimal `yaml:"additional_seat_price"`
}

// HasMonthlyLimit reports whether the monthly quota is capped.
func (p Plan) HasMonthlyLimit() bool {
	return p.MonthlyLimit != Unlimited
}

// HasDailyLimit reports whether the daily pacing cap is set.
func (p Plan) HasDailyLimit() bool {
	return p.DailyLimit != Unlimited
}

// RemainingMonthly returns the monthly headroom for the given count,
// or Unlimited when the plan has no monthly cap.
func (p Plan) RemainingMonthly(count int64) int64 {
	return remaining(p.MonthlyLimit, count)
}

// RemainingDaily returns the daily headroom for the given count,
// or Unlimited when the plan has no daily cap.
func (p Plan) RemainingDaily(count int64) int64 {
	return remaining(p.DailyLimit, count)
}

// OverageCost prices units consumed beyond the monthly quota.
func (p Plan) OverageCost(units int64) decimal.Decimal {
	if units <= 0 {
		return decimal.Zero
	}
	return p.OverageRate.Mul(decimal.NewFromInt(units))
}

// SeatCost returns the price of seats above SeatsIncluded.
func (p Plan) SeatCost(seats int) decimal.Decimal {
	extra := seats - p.SeatsIncluded
	if extra <= 0 {
		return decimal.Zero
	}
	return p.AdditionalSeatPrice.Mul(decimal.NewFromInt(int64(extra)))
}

func remaining(limit, count int64) int64 {
	if limit == Unlimited {
		return Unlimited
	}
	return max(limit-count, 0)
}

func (p Plan) clone() Plan {
	// decimal.Decimal is immutable, a value copy is a deep copy
	return p
}

// DefaultPlans returns the canonical four-tier table.
func DefaultPlans() map[string]Plan {
	return map[string]Plan{
		TierFree: {
			ID:           TierFree,
			Name:         "Free",
			MonthlyLimit: 5,
			DailyLimit:   Unlimited,
			OverageRate:  decimal.RequireFromString("0.12"),
		},
		TierBasic: {
			ID:           TierBasic,
			Name:         "Basic",
			MonthlyLimit: 60,
			DailyLimit:   2,
			OverageRate:  decimal.RequireFromString("0.10"),
		},
		TierPro: {
			ID:           TierPro,
			Name:         "Pro",
			MonthlyLimit: 150,
			DailyLimit:   5,
			OverageRate:  decimal.RequireFromString("0.08"),
		},
		TierAgency: {
			ID:                  TierAgency,
			Name:                "Agency",
			MonthlyLimit:        450,
			DailyLimit:          Unlimited,
			OverageRate:         decimal.RequireFromString("0.06"),
			SeatsIncluded:       3,
			AdditionalSeatPrice: decimal.RequireFromString("6.99"),
		},
	}
}
