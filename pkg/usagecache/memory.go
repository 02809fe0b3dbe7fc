package usagecache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/dmitrymomot/meterkit/pkg/usage"
)

type memoryEntry struct {
	rec       usage.Record
	expiresAt time.Time
}

// Memory is a thread-safe LRU cache with per-entry expiry.
// When the cache reaches its capacity, the least recently used entry is evicted.
type Memory struct {
	capacity int
	ttl      time.Duration
	now      func() time.Time

	mu       sync.Mutex
	items    map[string]*list.Element
	eviction *list.List
}

var _ Cache = (*Memory)(nil)

// NewMemory creates a cache holding at most capacity records for ttl each.
// A zero ttl selects DefaultTTL.
func NewMemory(capacity int, ttl time.Duration) (*Memory, error) {
	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}
	ttl, err := normalizeTTL(ttl)
	if err != nil {
		return nil, err
	}
	return &Memory{
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
		items:    make(map[string]*list.Element),
		eviction: list.New(),
	}, nil
}

// WithClock replaces the time source used for expiry. Intended for tests.
func (c *Memory) WithClock(now func() time.Time) *Memory {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
	return c
}

func (c *Memory) Get(ctx context.Context, userID string) (usage.Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[userID]
	if !ok {
		return usage.Record{}, ErrMiss
	}
	entry := elem.Value.(*memoryEntry)
	if !c.now().Before(entry.expiresAt) {
		c.removeElement(elem)
		return usage.Record{}, ErrMiss
	}
	c.eviction.MoveToFront(elem)
	return entry.rec, nil
}

func (c *Memory) Set(ctx context.Context, rec usage.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := c.now().Add(c.ttl)
	if elem, ok := c.items[rec.UserID]; ok {
		c.eviction.MoveToFront(elem)
		entry := elem.Value.(*memoryEntry)
		entry.rec = rec
		entry.expiresAt = expiresAt
		return nil
	}

	c.items[rec.UserID] = c.eviction.PushFront(&memoryEntry{rec: rec, expiresAt: expiresAt})
	if c.eviction.Len() > c.capacity {
		if oldest := c.eviction.Back(); oldest != nil {
			c.removeElement(oldest)
		}
	}
	return nil
}

func (c *Memory) Invalidate(ctx context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[userID]; ok {
		c.removeElement(elem)
	}
	return nil
}

func (c *Memory) Purge(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*list.Element)
	c.eviction.Init()
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (c *Memory) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.eviction.Len()
}

// Must be called with lock held.
func (c *Memory) removeElement(elem *list.Element) {
	c.eviction.Remove(elem)
	delete(c.items, elem.Value.(*memoryEntry).rec.UserID)
}
