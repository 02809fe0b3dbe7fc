package redis

import "time"

// Config describes the Redis used for usage counters and the usage cache.
// An empty ConnectionURL disables Redis in meterd.
type Config struct {
	ConnectionURL  string        `env:"METER_REDIS_URL"`
	RetryAttempts  int           `env:"METER_REDIS_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval  time.Duration `env:"METER_REDIS_RETRY_INTERVAL" envDefault:"2s"`
	ConnectTimeout time.Duration `env:"METER_REDIS_CONNECT_TIMEOUT" envDefault:"30s"`
}

// Enabled reports whether a connection URL is configured.
func (c Config) Enabled() bool { return c.ConnectionURL != "" }
