package pg

import "time"

type Config struct {
	ConnectionString  string        `env:"METER_PG_URL,required"`
	MaxOpenConns      int32         `env:"METER_PG_MAX_OPEN_CONNS" envDefault:"10"`
	MaxIdleConns      int32         `env:"METER_PG_MAX_IDLE_CONNS" envDefault:"2"`
	HealthCheckPeriod time.Duration `env:"METER_PG_HEALTHCHECK_PERIOD" envDefault:"1m"`
	MaxConnIdleTime   time.Duration `env:"METER_PG_MAX_CONN_IDLE_TIME" envDefault:"10m"`
	MaxConnLifetime   time.Duration `env:"METER_PG_MAX_CONN_LIFETIME" envDefault:"30m"`

	// RetryAttempts bounds connection attempts at startup; the wait grows
	// linearly from RetryInterval.
	RetryAttempts int           `env:"METER_PG_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval time.Duration `env:"METER_PG_RETRY_INTERVAL" envDefault:"2s"`

	MigrationsTable string `env:"METER_PG_MIGRATIONS_TABLE" envDefault:"meter_schema_migrations"`
	// AutoMigrate applies pending migrations at startup.
	AutoMigrate bool `env:"METER_PG_AUTO_MIGRATE" envDefault:"true"`
}
