// Package cache implements a bounded, single-process LRU cache.
//
// Goals for this package:
//   - Make the core data structures explicit (key table + indexed recency heap)
//   - Produce each value at most once while its key stays resident
//   - Evict the least recently used item as soon as the limit is exceeded
//   - Hand every evicted payload to the owner's release hook exactly once
//
// The cache is not safe for concurrent use. Wrap it in a mutex if it is shared.
package cache
