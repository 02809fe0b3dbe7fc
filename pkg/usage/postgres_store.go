package usage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/dmitrymomot/meterkit/pkg/pg"
)

const (
	pgIncrementQuery = `
INSERT INTO usage_records (user_id, monthly_count, daily_count, daily_anchor, billing_period, updated_at)
VALUES ($1, $2, $2, $3, $4, $5)
ON CONFLICT (user_id) DO UPDATE SET
	monthly_count = usage_records.monthly_count + EXCLUDED.monthly_count,
	daily_count = CASE
		WHEN usage_records.daily_anchor = EXCLUDED.daily_anchor
		THEN usage_records.daily_count + EXCLUDED.daily_count
		ELSE EXCLUDED.daily_count
	END,
	daily_anchor = EXCLUDED.daily_anchor,
	updated_at = EXCLUDED.updated_at
RETURNING user_id, monthly_count, daily_count, daily_anchor, billing_period, updated_at`

	pgIncrementMonthlyQuery = `
INSERT INTO usage_records (user_id, monthly_count, billing_period, updated_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (user_id) DO UPDATE SET
	monthly_count = usage_records.monthly_count + EXCLUDED.monthly_count,
	updated_at = EXCLUDED.updated_at
RETURNING user_id, monthly_count, billing_period, updated_at`

	pgGetQuery = `
SELECT user_id, monthly_count, daily_count, daily_anchor, billing_period, updated_at
FROM usage_records
WHERE user_id = $1`

	pgGetMonthlyQuery = `
SELECT user_id, monthly_count, billing_period, updated_at
FROM usage_records
WHERE user_id = $1`

	pgCreateQuery = `
INSERT INTO usage_records (user_id, monthly_count, billing_period, updated_at)
VALUES ($1, 0, $2, $3)
ON CONFLICT (user_id) DO NOTHING`

	pgResetMonthlyQuery = `
UPDATE usage_records
SET monthly_count = 0, billing_period = $1, updated_at = $2
WHERE billing_period <> $1`
)

// PostgresStore keeps records in the usage_records table.
// Use stdlib.OpenDBFromPool to obtain a *sql.DB from a pgx pool.
type PostgresStore struct {
	db   *sql.DB
	opts *options
}

// NewPostgresStore creates a store over db. Panics if db is nil.
func NewPostgresStore(db *sql.DB, opts ...Option) *PostgresStore {
	if db == nil {
		panic("usage: PostgresStore requires a database handle")
	}
	return &PostgresStore{db: db, opts: applyOptions(opts)}
}

// Get returns the effective record, inserting a zeroed row on first access.
func (s *PostgresStore) Get(ctx context.Context, userID string) (Record, error) {
	if err := validateUserID(userID); err != nil {
		return Record{}, err
	}

	now := s.opts.now()
	trackDaily := s.opts.gate.DailyTrackingAvailable()

	var (
		rec Record
		err error
	)
	if trackDaily {
		rec, err = scanFull(s.db.QueryRowContext(ctx, pgGetQuery, userID))
	} else {
		rec, err = scanMonthly(s.db.QueryRowContext(ctx, pgGetMonthlyQuery, userID))
	}

	switch {
	case err == nil:
		return rec.Effective(now), nil
	case pg.IsNotFoundError(err), errors.Is(err, sql.ErrNoRows):
		if _, err := s.db.ExecContext(ctx, pgCreateQuery, userID, string(PeriodOf(now)), now); err != nil {
			return Record{}, classifyPostgres(err)
		}
		return newRecord(userID, now), nil
	default:
		return Record{}, classifyPostgres(err)
	}
}

// Increment runs a single upsert statement; Postgres serialises concurrent
// upserts of the same row, so no update is lost.
func (s *PostgresStore) Increment(ctx context.Context, userID string, qty int64) (Record, error) {
	if err := validateIncrement(userID, qty); err != nil {
		return Record{}, err
	}

	now := s.opts.now()
	period := string(PeriodOf(now))

	if !s.opts.gate.DailyTrackingAvailable() {
		rec, err := scanMonthly(s.db.QueryRowContext(ctx, pgIncrementMonthlyQuery, userID, qty, period, now))
		if err != nil {
			return Record{}, classifyPostgres(err)
		}
		return rec, nil
	}

	rec, err := scanFull(s.db.QueryRowContext(ctx, pgIncrementQuery, userID, qty, Day(now), period, now))
	if err != nil {
		return Record{}, classifyPostgres(err)
	}
	return rec, nil
}

// ResetMonthly moves every record outside next into next with a zero monthly count.
func (s *PostgresStore) ResetMonthly(ctx context.Context, next Period) (int64, error) {
	if !next.Valid() {
		return 0, ErrInvalidPeriod
	}

	res, err := s.db.ExecContext(ctx, pgResetMonthlyQuery, string(next), s.opts.now())
	if err != nil {
		return 0, classifyPostgres(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, classifyPostgres(err)
	}
	return n, nil
}

func scanFull(row *sql.Row) (Record, error) {
	var (
		rec     Record
		period  string
		anchor  sql.NullTime
		updated time.Time
	)
	if err := row.Scan(&rec.UserID, &rec.MonthlyCount, &rec.DailyCount, &anchor, &period, &updated); err != nil {
		return Record{}, err
	}
	rec.BillingPeriod = Period(period)
	rec.UpdatedAt = updated.UTC()
	if anchor.Valid {
		rec.DailyAnchor = Day(anchor.Time)
	}
	return rec, nil
}

func scanMonthly(row *sql.Row) (Record, error) {
	var (
		rec     Record
		period  string
		updated time.Time
	)
	if err := row.Scan(&rec.UserID, &rec.MonthlyCount, &period, &updated); err != nil {
		return Record{}, err
	}
	rec.BillingPeriod = Period(period)
	rec.UpdatedAt = updated.UTC()
	return rec, nil
}

func classifyPostgres(err error) error {
	switch {
	case pg.IsForeignKeyViolationError(err):
		return errors.Join(ErrUserNotFound, err)
	case pg.IsSchemaError(err):
		return errors.Join(ErrStorageUnavailable, ErrSchemaMismatch, err)
	default:
		return unavailable(err)
	}
}
