package usage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKeyPrefix namespaces usage hashes.
const DefaultRedisKeyPrefix = "meterkit:usage:"

// Hash fields: monthly, daily, anchor (2006-01-02), period (2006-01), updated (unix).
var redisIncrementScript = redis.NewScript(`
local key = KEYS[1]
local qty = tonumber(ARGV[1])
local today = ARGV[2]
local period = ARGV[3]
local track_daily = ARGV[4] == "1"
local updated = ARGV[5]

redis.call("HSETNX", key, "period", period)
local monthly = redis.call("HINCRBY", key, "monthly", qty)

local daily = 0
if track_daily then
	if redis.call("HGET", key, "anchor") == today then
		daily = redis.call("HINCRBY", key, "daily", qty)
	else
		redis.call("HSET", key, "daily", qty, "anchor", today)
		daily = qty
	end
end
redis.call("HSET", key, "updated", updated)

return {monthly, daily, redis.call("HGET", key, "period"), redis.call("HGET", key, "anchor") or ""}
`)

var redisResetScript = redis.NewScript(`
if redis.call("HGET", KEYS[1], "period") == ARGV[1] then
	return 0
end
redis.call("HSET", KEYS[1], "monthly", 0, "period", ARGV[1], "updated", ARGV[2])
return 1
`)

// RedisStore keeps one hash per user. Mutations run as Lua scripts, which
// Redis executes atomically.
type RedisStore struct {
	db   redis.UniversalClient
	opts *options
}

// NewRedisStore creates a store over client. Panics if client is nil.
func NewRedisStore(client redis.UniversalClient, opts ...Option) *RedisStore {
	if client == nil {
		panic("usage: RedisStore requires a client")
	}
	return &RedisStore{db: client, opts: applyOptions(opts)}
}

func (s *RedisStore) key(userID string) string {
	return s.opts.keyPrefix + userID
}

// Get returns the effective record, creating the hash on first access.
func (s *RedisStore) Get(ctx context.Context, userID string) (Record, error) {
	if err := validateUserID(userID); err != nil {
		return Record{}, err
	}

	now := s.opts.now()
	key := s.key(userID)

	fields, err := s.db.HGetAll(ctx, key).Result()
	if err != nil {
		return Record{}, unavailable(err)
	}

	if len(fields) == 0 {
		_, err := s.db.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.HSetNX(ctx, key, "period", string(PeriodOf(now)))
			p.HSetNX(ctx, key, "monthly", 0)
			return nil
		})
		if err != nil {
			return Record{}, unavailable(err)
		}
		return newRecord(userID, now), nil
	}

	rec := Record{
		UserID:        userID,
		MonthlyCount:  parseInt(fields["monthly"]),
		BillingPeriod: Period(fields["period"]),
		UpdatedAt:     parseUnix(fields["updated"]),
	}
	if s.opts.gate.DailyTrackingAvailable() {
		rec.DailyCount = parseInt(fields["daily"])
		rec.DailyAnchor = parseDay(fields["anchor"])
	}
	return rec.Effective(now), nil
}

// Increment runs the increment script for userID.
func (s *RedisStore) Increment(ctx context.Context, userID string, qty int64) (Record, error) {
	if err := validateIncrement(userID, qty); err != nil {
		return Record{}, err
	}

	now := s.opts.now()
	trackDaily := "0"
	if s.opts.gate.DailyTrackingAvailable() {
		trackDaily = "1"
	}

	res, err := redisIncrementScript.Run(ctx, s.db, []string{s.key(userID)},
		qty, formatDay(now), string(PeriodOf(now)), trackDaily, now.Unix(),
	).Slice()
	if err != nil {
		return Record{}, unavailable(err)
	}
	if len(res) != 4 {
		return Record{}, unavailable(fmt.Errorf("unexpected script reply: %v", res))
	}

	rec := Record{
		UserID:        userID,
		MonthlyCount:  toInt64(res[0]),
		DailyCount:    toInt64(res[1]),
		BillingPeriod: Period(toString(res[2])),
		UpdatedAt:     time.Unix(now.Unix(), 0).UTC(),
	}
	if trackDaily == "1" {
		rec.DailyAnchor = parseDay(toString(res[3]))
	}
	return rec, nil
}

// ResetMonthly scans all usage hashes and resets those outside next.
func (s *RedisStore) ResetMonthly(ctx context.Context, next Period) (int64, error) {
	if !next.Valid() {
		return 0, ErrInvalidPeriod
	}

	var (
		cursor uint64
		total  int64
		now    = s.opts.now().Unix()
	)
	for {
		keys, nextCursor, err := s.db.Scan(ctx, cursor, s.opts.keyPrefix+"*", s.opts.scanBatchSize).Result()
		if err != nil {
			return total, unavailable(err)
		}

		for _, key := range keys {
			n, err := redisResetScript.Run(ctx, s.db, []string{key}, string(next), now).Int64()
			if err != nil && !errors.Is(err, redis.Nil) {
				return total, unavailable(err)
			}
			total += n
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}
	return total, nil
}

func parseInt(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}

func parseUnix(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	return time.Unix(parseInt(s), 0).UTC()
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case string:
		return parseInt(n)
	default:
		return 0
	}
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
