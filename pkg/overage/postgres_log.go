package overage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"

	"github.com/dmitrymomot/meterkit/pkg/pg"
)

const (
	chargeColumns = `id, user_id, tier_id, unit_count, unit_price, amount, currency, charge_date, status, created_at, updated_at`

	pgAppendQuery = `
INSERT INTO overage_charges (` + chargeColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (id) DO NOTHING`

	pgGetQuery = `SELECT ` + chargeColumns + ` FROM overage_charges WHERE id = $1`

	pgGetForUpdateQuery = pgGetQuery + ` FOR UPDATE`

	pgListByUserQuery = `
SELECT ` + chargeColumns + `
FROM overage_charges
WHERE user_id = $1 AND charge_date >= $2 AND charge_date < $3
ORDER BY created_at, id`

	pgListPendingQuery = `
SELECT ` + chargeColumns + `
FROM overage_charges
WHERE status = 'pending'
ORDER BY created_at, id
LIMIT $1`

	pgUpdateStatusQuery = `UPDATE overage_charges SET status = $2, updated_at = $3 WHERE id = $1`
)

// PostgresLog stores charges in the overage_charges table.
type PostgresLog struct {
	db *sql.DB
}

var _ Log = (*PostgresLog)(nil)

// NewPostgresLog creates a log over db. Panics if db is nil.
func NewPostgresLog(db *sql.DB) *PostgresLog {
	if db == nil {
		panic("overage: PostgresLog requires a database handle")
	}
	return &PostgresLog{db: db}
}

func (l *PostgresLog) Append(ctx context.Context, c Charge) error {
	_, err := l.db.ExecContext(ctx, pgAppendQuery,
		c.ID, c.UserID, c.TierID, c.UnitCount, c.UnitPrice, c.Amount,
		c.Currency.String(), c.Date, string(c.Status), c.CreatedAt, c.UpdatedAt,
	)
	return classifyPostgres(err)
}

func (l *PostgresLog) Get(ctx context.Context, id uuid.UUID) (Charge, error) {
	c, err := scanCharge(l.db.QueryRowContext(ctx, pgGetQuery, id))
	if err != nil {
		return Charge{}, classifyPostgres(err)
	}
	return c, nil
}

func (l *PostgresLog) ListByUser(ctx context.Context, userID string, from, to time.Time) ([]Charge, error) {
	return l.list(ctx, pgListByUserQuery, userID, from, to)
}

func (l *PostgresLog) ListPending(ctx context.Context, limit int) ([]Charge, error) {
	return l.list(ctx, pgListPendingQuery, normalizeLimit(limit))
}

// UpdateStatus locks the row, validates the transition and writes it in one
// transaction.
func (l *PostgresLog) UpdateStatus(ctx context.Context, id uuid.UUID, next Status, at time.Time) (Charge, error) {
	if !next.Valid() {
		return Charge{}, ErrInvalidStatus
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return Charge{}, classifyPostgres(err)
	}
	defer func() { _ = tx.Rollback() }()

	current, err := scanCharge(tx.QueryRowContext(ctx, pgGetForUpdateQuery, id))
	if err != nil {
		return Charge{}, classifyPostgres(err)
	}

	updated, changed, err := transition(current, next, at)
	if err != nil {
		return current, err
	}
	if !changed {
		return current, nil
	}

	if _, err := tx.ExecContext(ctx, pgUpdateStatusQuery, id, string(updated.Status), updated.UpdatedAt); err != nil {
		return Charge{}, classifyPostgres(err)
	}
	if err := tx.Commit(); err != nil {
		return Charge{}, classifyPostgres(err)
	}
	return updated, nil
}

func (l *PostgresLog) list(ctx context.Context, query string, args ...any) ([]Charge, error) {
	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classifyPostgres(err)
	}
	defer rows.Close()

	var out []Charge
	for rows.Next() {
		c, err := scanCharge(rows)
		if err != nil {
			return nil, classifyPostgres(err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyPostgres(err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCharge(row rowScanner) (Charge, error) {
	var (
		c         Charge
		unitPrice decimal.Decimal
		amount    decimal.Decimal
		code      string
		status    string
	)
	err := row.Scan(&c.ID, &c.UserID, &c.TierID, &c.UnitCount, &unitPrice, &amount,
		&code, &c.Date, &status, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return Charge{}, err
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return Charge{}, err
	}
	c.UnitPrice = unitPrice
	c.Amount = amount
	c.Currency = unit
	c.Status = Status(status)
	c.Date = c.Date.UTC()
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	return c, nil
}

func classifyPostgres(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows), pg.IsNotFoundError(err):
		return ErrChargeNotFound
	case pg.IsUndefinedTableError(err):
		return errors.Join(ErrLogUnavailable, err)
	default:
		return err
	}
}
