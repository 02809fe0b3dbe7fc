// Package schema decides, at startup and after runtime failures, which
// storage-dependent features can run.
//
// Each feature has an ordered chain of named checks. Verify walks the chain
// and stops at the first check that passes; disabled checks are skipped, and
// a feature whose chain has no enabled check is considered available. When
// every enabled check fails the feature is reported unavailable and a warning
// is logged. Verify never returns an error: missing structures reduce the
// feature set, they do not stop the service.
//
//	guard := schema.NewGuard(
//		schema.WithChecks(schema.DailyTracking,
//			schema.PostgresColumns(db, "usage_records", "daily_count", "daily_anchor"),
//		),
//		schema.WithChecks(schema.OverageLogging,
//			schema.PostgresTable(db, "overage_charges"),
//		),
//		schema.WithLogger(log),
//	)
//	caps := guard.Verify(ctx)
//
// Guard satisfies usage.FeatureGate and overage.Gate.
package schema
