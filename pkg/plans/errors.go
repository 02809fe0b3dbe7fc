package plans

import "errors"

// Domain errors for plan operations
var (
	// ErrConfiguration marks deployment or data inconsistencies. It must never be swallowed.
	ErrConfiguration = errors.New("plans.errors.configuration")

	ErrUnknownTier              = errors.New("plans.errors.unknown_tier")
	ErrInvalidPlanConfiguration = errors.New("plans.errors.invalid_plan_configuration")
	ErrFailedToLoadPlans        = errors.New("plans.errors.failed_to_load_plans")
	ErrEmptyPlanTable           = errors.New("plans.errors.empty_plan_table")
)
