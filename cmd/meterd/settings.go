package main

import (
	"time"

	"github.com/dmitrymomot/meterkit/pkg/httpserver"
	"github.com/dmitrymomot/meterkit/pkg/meter"
	"github.com/dmitrymomot/meterkit/pkg/mongo"
	"github.com/dmitrymomot/meterkit/pkg/pg"
	"github.com/dmitrymomot/meterkit/pkg/redis"
)

// Usage store backends.
const (
	storePostgres = "postgres"
	storeRedis    = "redis"
	storeMongo    = "mongo"
)

// Usage cache backends.
const (
	cacheNone   = "none"
	cacheMemory = "memory"
	cacheRedis  = "redis"
)

type settings struct {
	Environment string `env:"METER_ENV" envDefault:"development"`
	LogLevel    string `env:"METER_LOG_LEVEL"`

	// PlansFile replaces the built-in tiers with a YAML table.
	PlansFile string `env:"METER_PLANS_FILE"`

	Store         string        `env:"METER_STORE" envDefault:"postgres"`
	Cache         string        `env:"METER_CACHE" envDefault:"memory"`
	CacheTTL      time.Duration `env:"METER_CACHE_TTL" envDefault:"2m"`
	CacheCapacity int           `env:"METER_CACHE_CAPACITY" envDefault:"10000"`
	ResetInterval time.Duration `env:"METER_RESET_INTERVAL" envDefault:"1m"`

	// SchemaRecheckInterval is how often a reduced feature set is re-verified.
	SchemaRecheckInterval time.Duration `env:"METER_SCHEMA_RECHECK_INTERVAL" envDefault:"1m"`

	Meter    meter.Config
	HTTP     httpserver.Config
	Postgres pg.Config
	Redis    redis.Config
	Mongo    mongo.Config
}
