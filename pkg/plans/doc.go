// Package plans holds the subscription tier table used by the metering engine.
//
// A Plan describes how many metered actions a tier includes per billing period
// and per calendar day, and how consumption beyond the monthly quota is priced.
// Limits use the Unlimited sentinel (-1) in the same way as SQL-friendly
// counters elsewhere in the toolkit.
//
// Plans are loaded once from a Source into a Registry. The Registry is
// immutable after construction and safe for concurrent use.
//
// Basic usage:
//
//	reg, err := plans.NewRegistry(ctx, plans.NewInMemSource(plans.DefaultPlans()))
//	if err != nil {
//	    // invalid plan table, refuse to start
//	}
//
//	plan, err := reg.Get("pro")
//	if errors.Is(err, plans.ErrConfiguration) {
//	    // a live user maps to a tier that is not configured
//	}
//
// Plans can also be kept in a YAML file:
//
//	src, err := plans.LoadYAMLFile("config/plans.yaml")
//	reg, err := plans.NewRegistry(ctx, src)
package plans
