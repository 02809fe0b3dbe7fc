// Package redis connects meterd to Redis with go-redis/v9.
//
// The client backs usage.RedisStore and the usagecache.Redis read-through
// cache. Connect retries the initial ping so the service can start alongside
// its Redis container; Healthcheck plugs the client into /healthz.
package redis
