package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// New connects to cfg.ConnectionURL and pings the primary, retrying up to
// cfg.RetryAttempts times.
func New(ctx context.Context, cfg Config) (*mongo.Client, error) {
	if cfg.ConnectionURL == "" {
		return nil, ErrEmptyConnectionURL
	}
	opts := options.Client().
		ApplyURI(cfg.ConnectionURL).
		SetRetryWrites(cfg.RetryWrites).
		SetRetryReads(cfg.RetryReads)
	if cfg.ConnectTimeout > 0 {
		opts.SetConnectTimeout(cfg.ConnectTimeout)
	}
	if cfg.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(cfg.MaxPoolSize)
	}
	if cfg.MinPoolSize > 0 {
		opts.SetMinPoolSize(cfg.MinPoolSize)
	}
	if cfg.MaxConnIdleTime > 0 {
		opts.SetMaxConnIdleTime(cfg.MaxConnIdleTime)
	}

	interval := cfg.RetryInterval
	if interval <= 0 {
		interval = time.Second
	}
	backoff := retry.WithMaxRetries(uint64(max(cfg.RetryAttempts, 1)-1), retry.NewConstant(interval))

	var client *mongo.Client
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		c, err := mongo.Connect(opts)
		if err != nil {
			// Invalid URIs and options fail the same way on every attempt.
			return err
		}
		if err := c.Ping(ctx, nil); err != nil {
			_ = c.Disconnect(context.Background())
			return retry.RetryableError(err)
		}
		client = c
		return nil
	})
	if err != nil {
		return nil, errors.Join(ErrFailedToConnectToMongo, err)
	}
	return client, nil
}

// Collection connects and returns the usage collection named by cfg.
func Collection(ctx context.Context, cfg Config) (*mongo.Collection, error) {
	client, err := New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return client.Database(cfg.Database).Collection(cfg.Collection), nil
}
