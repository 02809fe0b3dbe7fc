package pg

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrFailedToOpenDBConnection = errors.New("pg.errors.open_failed")
	ErrFailedToParseDBConfig    = errors.New("pg.errors.invalid_config")
	ErrHealthcheckFailed        = errors.New("pg.errors.healthcheck_failed")
	ErrFailedToApplyMigrations  = errors.New("pg.errors.migrations_failed")
	ErrMigrationsNotProvided    = errors.New("pg.errors.migrations_not_provided")
)

// IsNotFoundError reports whether err is, or wraps, pgx.ErrNoRows.
func IsNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, pgx.ErrNoRows)
}

// IsDuplicateKeyError detects unique constraint violations (SQLSTATE 23505).
func IsDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// IsForeignKeyViolationError detects referential integrity violations (SQLSTATE 23503).
func IsForeignKeyViolationError(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

// IsUndefinedTableError detects queries against relations that do not exist (SQLSTATE 42P01).
// Signals a deployment whose migrations are behind the code.
func IsUndefinedTableError(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "42P01"
}

// IsUndefinedColumnError detects queries against columns that do not exist (SQLSTATE 42703).
func IsUndefinedColumnError(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "42703"
}

// IsSchemaError reports whether err was caused by a missing table or column.
func IsSchemaError(err error) bool {
	return IsUndefinedTableError(err) || IsUndefinedColumnError(err)
}
