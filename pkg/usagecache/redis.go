package usagecache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/meterkit/pkg/usage"
)

// DefaultRedisKeyPrefix namespaces cached records.
const DefaultRedisKeyPrefix = "meterkit:usage-cache:"

// Redis caches records as JSON strings with a Redis-side TTL.
type Redis struct {
	client    redis.UniversalClient
	ttl       time.Duration
	prefix    string
	batchSize int64
}

var _ Cache = (*Redis)(nil)

// NewRedis creates a Redis-backed cache. A zero ttl selects DefaultTTL.
func NewRedis(client redis.UniversalClient, ttl time.Duration) (*Redis, error) {
	if client == nil {
		return nil, errors.New("usagecache: redis client is nil")
	}
	ttl, err := normalizeTTL(ttl)
	if err != nil {
		return nil, err
	}
	return &Redis{client: client, ttl: ttl, prefix: DefaultRedisKeyPrefix, batchSize: 100}, nil
}

// WithKeyPrefix replaces DefaultRedisKeyPrefix.
func (c *Redis) WithKeyPrefix(prefix string) *Redis {
	c.prefix = prefix
	return c
}

func (c *Redis) key(userID string) string {
	return c.prefix + userID
}

func (c *Redis) Get(ctx context.Context, userID string) (usage.Record, error) {
	data, err := c.client.Get(ctx, c.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return usage.Record{}, ErrMiss
	}
	if err != nil {
		return usage.Record{}, err
	}

	var rec usage.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		// unreadable entries are dropped and treated as a miss
		_ = c.client.Del(ctx, c.key(userID)).Err()
		return usage.Record{}, ErrMiss
	}
	return rec, nil
}

func (c *Redis) Set(ctx context.Context, rec usage.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(rec.UserID), data, c.ttl).Err()
}

func (c *Redis) Invalidate(ctx context.Context, userID string) error {
	return c.client.Del(ctx, c.key(userID)).Err()
}

// Purge deletes every key under the prefix using SCAN.
func (c *Redis) Purge(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, c.prefix+"*", c.batchSize).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}
