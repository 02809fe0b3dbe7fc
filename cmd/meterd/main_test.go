package main

import (
	"context"
	"log/slog"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/meterkit/pkg/schema"
)

func TestSchemaGuard(t *testing.T) {
	t.Parallel()

	log := slog.New(slog.DiscardHandler)

	newMock := func(t *testing.T) (sqlmock.Sqlmock, func(string) *schema.Guard) {
		t.Helper()
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		t.Cleanup(func() { _ = db.Close() })
		return mock, func(store string) *schema.Guard { return schemaGuard(store, db, log) }
	}

	t.Run("postgres store verifies daily columns", func(t *testing.T) {
		t.Parallel()
		mock, build := newMock(t)

		mock.ExpectQuery(`FROM information_schema.columns`).WithArgs("usage_records").
			WillReturnRows(sqlmock.NewRows([]string{"column_name"}).AddRow("user_id").AddRow("monthly_count"))
		mock.ExpectQuery(`SELECT to_regclass`).WithArgs("overage_charges").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		caps := build(storePostgres).Verify(context.Background())
		assert.Equal(t, schema.Capabilities{DailyTracking: false, OverageLogging: true}, caps)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	for _, store := range []string{storeRedis, storeMongo} {
		t.Run(store+" store does not depend on usage_records", func(t *testing.T) {
			t.Parallel()
			mock, build := newMock(t)

			mock.ExpectQuery(`SELECT to_regclass`).WithArgs("overage_charges").
				WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

			caps := build(store).Verify(context.Background())
			assert.Equal(t, schema.Capabilities{DailyTracking: true, OverageLogging: true}, caps)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
