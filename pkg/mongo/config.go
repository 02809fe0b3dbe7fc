package mongo

import "time"

// Config describes the optional MongoDB usage store. An empty ConnectionURL
// disables it.
type Config struct {
	ConnectionURL   string        `env:"METER_MONGO_URL"`
	Database        string        `env:"METER_MONGO_DATABASE" envDefault:"meter"`
	Collection      string        `env:"METER_MONGO_COLLECTION" envDefault:"usage_records"`
	ConnectTimeout  time.Duration `env:"METER_MONGO_CONNECT_TIMEOUT" envDefault:"10s"`
	MaxPoolSize     uint64        `env:"METER_MONGO_MAX_POOL_SIZE" envDefault:"50"`
	MinPoolSize     uint64        `env:"METER_MONGO_MIN_POOL_SIZE" envDefault:"1"`
	MaxConnIdleTime time.Duration `env:"METER_MONGO_MAX_CONN_IDLE_TIME" envDefault:"300s"`
	RetryWrites     bool          `env:"METER_MONGO_RETRY_WRITES" envDefault:"true"`
	RetryReads      bool          `env:"METER_MONGO_RETRY_READS" envDefault:"true"`
	RetryAttempts   int           `env:"METER_MONGO_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval   time.Duration `env:"METER_MONGO_RETRY_INTERVAL" envDefault:"2s"`
}

// Enabled reports whether a connection URL is configured.
func (c Config) Enabled() bool { return c.ConnectionURL != "" }
