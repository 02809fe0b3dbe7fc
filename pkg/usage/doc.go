// Package usage is the durable store of per-user metering counters.
//
// Every user owns one Record holding a monthly count for the current billing
// period and a daily count anchored to a calendar day. Store.Increment is the
// only hot-path mutation and is atomic per user on every backend: the daily
// rollover, the anchor update and the monthly addition happen in a single
// backend operation (one SQL statement, one Lua script, one document update).
// Counters are never reconstructed client-side with a read-then-write pair.
//
// Daily rollover is lazy. A record whose anchor is not today reads as
// DailyCount == 0 (see Record.Effective) and the next increment resets the
// counter to the incremented quantity. No per-user daily job exists.
//
// Monthly counters are reset by Store.ResetMonthly, which is idempotent per
// billing period.
//
// Backends:
//
//   - NewMemoryStore: process-local, for tests and single-instance setups.
//   - NewPostgresStore: database/sql over the pgx driver.
//   - NewRedisStore: one hash per user mutated by Lua scripts.
//   - NewMongoStore: one document per user updated with a pipeline update.
//
// When the daily-tracking structures are absent (see the schema package), a
// FeatureGate reports it and Increment updates only the monthly counter,
// returning DailyCount == 0. This is a degradation, not an error.
//
// All backend failures are classified as ErrStorageUnavailable. WithRetry wraps
// a Store so that Increment retries those failures with bounded exponential
// backoff and surfaces ErrAccountingDeferred on exhaustion.
package usage
