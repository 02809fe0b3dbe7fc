// Package usagecache keeps short-lived copies of usage records in front of a
// usage.Store.
//
// The cache is advisory. It serves the read path of quota checks and is never
// the target of an increment: ReadThrough sends every Increment to the store
// and then overwrites the cached entry with the value the store returned.
// Entries expire after a TTL that must stay below one day, so a stale entry
// can never survive a daily rollover.
//
// Backends:
//
//   - NewMemory: in-process LRU with per-entry expiry.
//   - NewRedis: JSON values with a Redis TTL, shared across processes.
//   - NoOp: disables caching.
//
// Usage:
//
//	c, err := usagecache.NewMemory(10_000, 2*time.Minute)
//	if err != nil {
//		return err
//	}
//	store := usagecache.NewReadThrough(pgStore, c, usagecache.WithLogger(log))
package usagecache
