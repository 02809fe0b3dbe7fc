// Package pg bootstraps the PostgreSQL side of meterd with pgx/v5.
//
// Connect opens a pgxpool.Pool and retries while the database comes up.
// Migrate applies the embedded goose migrations before the service starts
// serving. Healthcheck adapts the pool to the /healthz readiness probe.
//
// The Is*Error helpers classify *pgconn.PgError values. Storage adapters use
// IsSchemaError to tell a deployment whose migrations lag the code apart from
// an outage, and degrade the affected feature instead of failing requests.
package pg
