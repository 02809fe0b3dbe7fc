package plans

import (
	"context"
	"errors"
	"fmt"
	"slices"
)

// Registry is an immutable lookup table of plans keyed by tier ID.
type Registry struct {
	// Treated as immutable after construction; safe for concurrent reads.
	plans map[string]Plan
}

// NewRegistry loads and validates plans from src.
func NewRegistry(ctx context.Context, src Source) (*Registry, error) {
	if src == nil {
		return nil, errors.Join(ErrFailedToLoadPlans, errors.New("nil source"))
	}

	table, err := src.Load(ctx)
	if err != nil {
		return nil, errors.Join(ErrFailedToLoadPlans, err)
	}
	if len(table) == 0 {
		return nil, ErrEmptyPlanTable
	}

	if err := validatePlans(table); err != nil {
		return nil, err
	}

	return &Registry{plans: table}, nil
}

// MustNewRegistry is like NewRegistry but panics on error.
func MustNewRegistry(ctx context.Context, src Source) *Registry {
	r, err := NewRegistry(ctx, src)
	if err != nil {
		panic(fmt.Sprintf("plans: %v", err))
	}
	return r
}

// Get returns the plan for tierID. An unknown tier is a configuration error:
// the returned error matches both ErrUnknownTier and ErrConfiguration.
func (r *Registry) Get(tierID string) (Plan, error) {
	p, ok := r.plans[tierID]
	if !ok {
		return Plan{}, errors.Join(ErrConfiguration, ErrUnknownTier,
			fmt.Errorf("tier %q is not configured", tierID))
	}
	return p, nil
}

// IDs returns the sorted list of configured tier IDs.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.plans))
	for id := range r.plans {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// validatePlans checks plan configurations for validity.
func validatePlans(table map[string]Plan) error {
	for id, p := range table {
		var problems []error
		if p.ID != id {
			problems = append(problems, fmt.Errorf("plan %q has mismatched id %q", id, p.ID))
		}
		if p.MonthlyLimit < 0 && p.MonthlyLimit != Unlimited {
			problems = append(problems, fmt.Errorf("plan %q has invalid monthly limit: %d", id, p.MonthlyLimit))
		}
		if p.DailyLimit < 0 && p.DailyLimit != Unlimited {
			problems = append(problems, fmt.Errorf("plan %q has invalid daily limit: %d", id, p.DailyLimit))
		}
		if p.OverageRate.IsNegative() {
			problems = append(problems, fmt.Errorf("plan %q has negative overage rate: %s", id, p.OverageRate))
		}
		if p.SeatsIncluded < 0 {
			problems = append(problems, fmt.Errorf("plan %q has negative seats included: %d", id, p.SeatsIncluded))
		}
		if p.AdditionalSeatPrice.IsNegative() {
			problems = append(problems, fmt.Errorf("plan %q has negative seat price: %s", id, p.AdditionalSeatPrice))
		}
		if len(problems) > 0 {
			return errors.Join(append([]error{ErrInvalidPlanConfiguration}, problems...)...)
		}
	}
	return nil
}
