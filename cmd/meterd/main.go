// Command meterd serves the usage metering engine over HTTP.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/stdlib"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/meterkit/migrations"
	"github.com/dmitrymomot/meterkit/pkg/config"
	"github.com/dmitrymomot/meterkit/pkg/httpserver"
	"github.com/dmitrymomot/meterkit/pkg/logger"
	"github.com/dmitrymomot/meterkit/pkg/meter"
	"github.com/dmitrymomot/meterkit/pkg/meterhttp"
	"github.com/dmitrymomot/meterkit/pkg/mongo"
	"github.com/dmitrymomot/meterkit/pkg/overage"
	"github.com/dmitrymomot/meterkit/pkg/pg"
	"github.com/dmitrymomot/meterkit/pkg/plans"
	"github.com/dmitrymomot/meterkit/pkg/redis"
	"github.com/dmitrymomot/meterkit/pkg/reset"
	"github.com/dmitrymomot/meterkit/pkg/schema"
	"github.com/dmitrymomot/meterkit/pkg/usage"
	"github.com/dmitrymomot/meterkit/pkg/usagecache"
)

var errUnknownBackend = errors.New("meterd: unknown backend")

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "meterd:", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cfg settings
	if err := config.Load(&cfg); err != nil {
		return err
	}

	logOpts := []logger.Option{
		logger.WithEnvironment(cfg.Environment, "meterd"),
		logger.WithContextExtractors(meterhttp.RequestIDExtractor()),
	}
	if cfg.LogLevel != "" {
		logOpts = append(logOpts, logger.WithLevelName(cfg.LogLevel))
	}
	log := logger.New(logOpts...)
	logger.SetAsDefault(log)

	registry, err := loadPlans(ctx, cfg.PlansFile)
	if err != nil {
		return err
	}

	pool, err := pg.Connect(ctx, cfg.Postgres)
	if err != nil {
		return err
	}
	defer pool.Close()
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	if cfg.Postgres.AutoMigrate {
		if err := pg.Migrate(ctx, db, migrations.FS, cfg.Postgres, log.With(logger.Component("migrate"))); err != nil {
			return err
		}
	}

	health := []meterhttp.Option{
		meterhttp.WithLogger(log),
		meterhttp.WithHealthCheck("postgres", pg.Healthcheck(pool)),
	}

	var rdb *goredis.Client
	if cfg.Redis.Enabled() {
		rdb, err = redis.Connect(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer rdb.Close()
		health = append(health, meterhttp.WithHealthCheck("redis", redis.Healthcheck(rdb)))
	}

	guard := schemaGuard(cfg.Store, db, log)
	caps := guard.Verify(ctx)
	log.InfoContext(ctx, "storage capabilities verified",
		slog.Bool("daily_tracking", caps.DailyTracking),
		slog.Bool("overage_logging", caps.OverageLogging),
	)

	store, closeStore, err := usageStore(ctx, cfg, db, rdb, guard, log)
	if err != nil {
		return err
	}
	defer closeStore()

	cache, err := usageCache(cfg, rdb)
	if err != nil {
		return err
	}

	engine, err := meter.New(cfg.Meter, meter.Deps{
		Plans:   registry,
		Store:   store,
		Cache:   cache,
		Charges: overage.NewPostgresLog(db),
		Guard:   guard,
	}, meter.WithLogger(log))
	if err != nil {
		return err
	}

	scheduler, err := reset.NewScheduler(engine,
		reset.WithCheckInterval(cfg.ResetInterval),
		reset.WithLogger(log),
	)
	if err != nil {
		return err
	}

	srv := httpserver.NewFromConfig(cfg.HTTP, httpserver.WithLogger(log.With(logger.Component("httpserver"))))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return scheduler.Run(ctx) })
	g.Go(func() error { return guard.Watch(ctx, cfg.SchemaRecheckInterval) })
	g.Go(func() error { return srv.Run(ctx, meterhttp.NewRouter(engine, health...)) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func loadPlans(ctx context.Context, path string) (*plans.Registry, error) {
	src := plans.NewInMemSource(plans.DefaultPlans())
	if path != "" {
		var err error
		if src, err = plans.LoadYAMLFile(path); err != nil {
			return nil, err
		}
	}
	return plans.NewRegistry(ctx, src)
}

// schemaGuard builds the capability checks for the selected usage store.
// Redis and Mongo keep daily counters in schemaless documents, so only the
// Postgres store has a structure to verify.
func schemaGuard(store string, db *sql.DB, log *slog.Logger) *schema.Guard {
	var daily []schema.Check
	if store == storePostgres {
		daily = append(daily, schema.PostgresColumns(db, "usage_records", "daily_count", "daily_anchor"))
	}
	return schema.NewGuard(
		schema.WithChecks(schema.DailyTracking, daily...),
		schema.WithChecks(schema.OverageLogging,
			schema.PostgresTable(db, "overage_charges"),
		),
		schema.WithLogger(log),
	)
}

func usageStore(ctx context.Context, cfg settings, db *sql.DB, rdb *goredis.Client, guard *schema.Guard, log *slog.Logger) (usage.Store, func(), error) {
	opts := []usage.Option{usage.WithFeatureGate(guard), usage.WithLogger(log)}
	noop := func() {}

	switch cfg.Store {
	case storePostgres:
		return usage.NewPostgresStore(db, opts...), noop, nil
	case storeRedis:
		if rdb == nil {
			return nil, noop, fmt.Errorf("%w: METER_STORE=redis requires METER_REDIS_URL", errUnknownBackend)
		}
		return usage.NewRedisStore(rdb, opts...), noop, nil
	case storeMongo:
		coll, err := mongo.Collection(ctx, cfg.Mongo)
		if err != nil {
			return nil, noop, err
		}
		client := coll.Database().Client()
		return usage.NewMongoStore(coll, opts...), func() { _ = client.Disconnect(context.Background()) }, nil
	default:
		return nil, noop, fmt.Errorf("%w: store %q", errUnknownBackend, cfg.Store)
	}
}

func usageCache(cfg settings, rdb *goredis.Client) (usagecache.Cache, error) {
	switch cfg.Cache {
	case cacheNone, "":
		return nil, nil
	case cacheMemory:
		return usagecache.NewMemory(cfg.CacheCapacity, cfg.CacheTTL)
	case cacheRedis:
		if rdb == nil {
			return nil, fmt.Errorf("%w: METER_CACHE=redis requires METER_REDIS_URL", errUnknownBackend)
		}
		return usagecache.NewRedis(rdb, cfg.CacheTTL)
	default:
		return nil, fmt.Errorf("%w: cache %q", errUnknownBackend, cfg.Cache)
	}
}
