package schema

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

const (
	pgTableQuery  = `SELECT to_regclass($1) IS NOT NULL`
	pgColumnQuery = `
SELECT column_name
FROM information_schema.columns
WHERE table_schema = current_schema() AND table_name = $1`
)

// PostgresTable checks that table exists in the current search path.
func PostgresTable(db *sql.DB, table string) Check {
	return Check{
		Name: "postgres_table:" + table,
		Probe: func(ctx context.Context) error {
			var exists bool
			if err := db.QueryRowContext(ctx, pgTableQuery, table).Scan(&exists); err != nil {
				return errors.Join(ErrProbeFailed, err)
			}
			if !exists {
				return fmt.Errorf("%w: %s", ErrMissingTable, table)
			}
			return nil
		},
	}
}

// PostgresColumns checks that table has every listed column.
func PostgresColumns(db *sql.DB, table string, columns ...string) Check {
	return Check{
		Name: "postgres_columns:" + table + "(" + strings.Join(columns, ",") + ")",
		Probe: func(ctx context.Context) error {
			rows, err := db.QueryContext(ctx, pgColumnQuery, table)
			if err != nil {
				return errors.Join(ErrProbeFailed, err)
			}
			defer rows.Close()

			have := make(map[string]bool)
			for rows.Next() {
				var name string
				if err := rows.Scan(&name); err != nil {
					return errors.Join(ErrProbeFailed, err)
				}
				have[name] = true
			}
			if err := rows.Err(); err != nil {
				return errors.Join(ErrProbeFailed, err)
			}

			if len(have) == 0 {
				return fmt.Errorf("%w: %s", ErrMissingTable, table)
			}
			var missing []string
			for _, c := range columns {
				if !have[c] {
					missing = append(missing, c)
				}
			}
			if len(missing) > 0 {
				return fmt.Errorf("%w: %s(%s)", ErrMissingColumn, table, strings.Join(missing, ","))
			}
			return nil
		},
	}
}
