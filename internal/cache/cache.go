package cache

import (
	"bytes"
	"cmp"
	"errors"
	"fmt"
	"slices"

	"github.com/apex/log"

	"heapcache/internal/heap"
	"heapcache/internal/table"
)

// Config controls cache capacity and payload release.
//
//   - Limit is the maximum number of resident items and must be positive
//   - OnEvict, if set, receives each payload once when it leaves the cache,
//     either by eviction or by Close
type Config[V any] struct {
	Limit   int
	OnEvict func(V)
}

// Producer computes the value for a key on a cache miss.
type Producer[V any] func(key []byte) V

// Stats counts cache traffic since creation.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// Cache is a bounded LRU cache.
//
// The core design is a table for key lookup plus an indexed heap ordered by
// last access, oldest at the root. A hit bumps the item's access stamp and
// reprioritizes it in place; a miss inserts a new item and, when the limit is
// exceeded, extracts the root.
//
// Ownership model:
// The table owns the items. The heap holds references to the same items and
// never releases them.
type Cache[V any] struct {
	limit   int
	items   *table.Table[string, *item[V]]
	recency *heap.Heap[*item[V]]
	onEvict func(V)

	// clock is the access stamp source. It is per cache so unrelated caches
	// never perturb each other's ordering.
	clock uint64

	stats  Stats
	closed bool
}

// item is the value stored in both the table and the heap.
// The key is copied so callers may reuse their buffers.
type item[V any] struct {
	key        []byte
	payload    V
	lastAccess uint64
}

var (
	ErrClosed          = errors.New("cache is closed")
	ErrNullParameter   = heap.ErrNullParameter
	ErrInvalidArgument = heap.ErrInvalidArgument
)

// New constructs a cache.
//
// The recency heap gets one slot more than the limit: an insert is checked
// against the limit only after it lands, so the cache briefly holds Limit+1
// items before the oldest is evicted.
func New[V any](cfg Config[V]) (*Cache[V], error) {
	if cfg.Limit <= 0 {
		return nil, fmt.Errorf("limit %d: %w", cfg.Limit, ErrInvalidArgument)
	}

	recency, err := heap.New[*item[V]](cfg.Limit+1, oldestFirst[V])
	if err != nil {
		return nil, fmt.Errorf("create recency heap: %w", err)
	}

	return &Cache[V]{
		limit:   cfg.Limit,
		items:   table.New[string, *item[V]](cfg.Limit + 1),
		recency: recency,
		onEvict: cfg.OnEvict,
	}, nil
}

// Get returns the value cached for key, calling produce on a miss.
//
// produce runs at most once per key while that key stays resident. An
// evicted key comes back through produce as a brand-new item.
//
// Complexity:
//   - O(1) to locate the item
//   - O(log n) to refresh recency or to insert and evict
func (c *Cache[V]) Get(key []byte, produce Producer[V]) (V, error) {
	var zero V
	if c == nil || key == nil || produce == nil {
		return zero, ErrNullParameter
	}
	if c.closed {
		return zero, ErrClosed
	}
	if len(key) == 0 {
		return zero, fmt.Errorf("empty key: %w", ErrInvalidArgument)
	}

	if it, err := c.items.Get(string(key)); err == nil {
		c.touch(it)
		if err := c.recency.Reprioritize(it); err != nil {
			return zero, fmt.Errorf("refresh %q: %w", key, err)
		}
		c.stats.Hits++
		return it.payload, nil
	}

	c.stats.Misses++
	it := &item[V]{
		key:     bytes.Clone(key),
		payload: produce(key),
	}
	c.touch(it)

	if err := c.items.Put(string(it.key), it); err != nil {
		c.release(it)
		return zero, fmt.Errorf("store %q: %w", key, err)
	}
	if err := c.recency.Insert(it); err != nil {
		// Never leave an item in only one of the two structures.
		_ = c.items.Remove(string(it.key))
		c.release(it)
		return zero, fmt.Errorf("track %q: %w", key, err)
	}

	if c.items.Count() > c.limit {
		if err := c.evictOldest(); err != nil {
			return zero, err
		}
	}
	return it.payload, nil
}

// Contains reports whether key is resident. It does not count as an access.
func (c *Cache[V]) Contains(key []byte) bool {
	if c == nil || c.closed {
		return false
	}
	return c.items.Exists(string(key))
}

// Len returns the number of resident items.
func (c *Cache[V]) Len() int {
	if c == nil {
		return 0
	}
	return c.items.Count()
}

// Limit returns the configured maximum number of resident items.
func (c *Cache[V]) Limit() int {
	if c == nil {
		return 0
	}
	return c.limit
}

// Stats returns the traffic counters.
func (c *Cache[V]) Stats() Stats {
	if c == nil {
		return Stats{}
	}
	return c.stats
}

// Keys returns copies of the resident keys in LRU -> MRU order, so the first
// key is the next one to be evicted.
//
// This is a debug helper used by the CLI; it sorts and is O(n log n).
func (c *Cache[V]) Keys() [][]byte {
	if c == nil || c.closed {
		return nil
	}

	items := c.recency.Items()
	slices.SortFunc(items, func(a, b *item[V]) int {
		return cmp.Compare(a.lastAccess, b.lastAccess)
	})

	out := make([][]byte, 0, len(items))
	for _, it := range items {
		out = append(out, bytes.Clone(it.key))
	}
	return out
}

// Close releases every resident payload through OnEvict and drops the
// internal structures. Further calls to Get fail with ErrClosed.
//
// Close is safe to call multiple times.
func (c *Cache[V]) Close() error {
	if c == nil || c.closed {
		return nil
	}
	c.closed = true

	c.items.Enumerate(func(_ string, it *item[V]) {
		c.release(it)
	})
	log.WithField("items", c.items.Count()).Debug("cache closed")

	// The heap only borrows items; the table walk above released them.
	c.recency.Destroy(nil)
	c.items = nil
	return nil
}

func (c *Cache[V]) touch(it *item[V]) {
	c.clock++
	it.lastAccess = c.clock
}

func (c *Cache[V]) evictOldest() error {
	oldest, err := c.recency.Extract()
	if err != nil {
		return fmt.Errorf("evict: %w", err)
	}
	if err := c.items.Remove(string(oldest.key)); err != nil {
		return fmt.Errorf("evict %q: %w", oldest.key, err)
	}

	c.stats.Evictions++
	log.WithField("key", string(oldest.key)).Debug("evicted least recently used item")
	c.release(oldest)
	return nil
}

func (c *Cache[V]) release(it *item[V]) {
	if c.onEvict != nil {
		c.onEvict(it.payload)
	}
}

// oldestFirst ranks the item with the smaller access stamp higher so the
// least recently used item sits at the heap root.
func oldestFirst[V any](a, b *item[V]) int {
	return cmp.Compare(b.lastAccess, a.lastAccess)
}
