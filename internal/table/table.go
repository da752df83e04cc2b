package table

import "errors"

var (
	// ErrNotFound is returned by Get and Remove when the key is absent.
	ErrNotFound = errors.New("key not found in table")
	// ErrNilTable is returned by Put on a nil table.
	ErrNilTable = errors.New("table is nil")
)

// Table maps keys to values.
type Table[K comparable, V any] struct {
	entries map[K]V
}

// New returns an empty table. sizeHint pre-sizes the underlying map and may
// be zero.
func New[K comparable, V any](sizeHint int) *Table[K, V] {
	if sizeHint < 0 {
		sizeHint = 0
	}
	return &Table[K, V]{entries: make(map[K]V, sizeHint)}
}

// Put associates value with key, replacing any previous value.
func (t *Table[K, V]) Put(key K, value V) error {
	if t == nil || t.entries == nil {
		return ErrNilTable
	}
	t.entries[key] = value
	return nil
}

// Get returns the value stored for key.
func (t *Table[K, V]) Get(key K) (V, error) {
	if t != nil {
		if v, ok := t.entries[key]; ok {
			return v, nil
		}
	}
	var zero V
	return zero, ErrNotFound
}

// Remove deletes key.
func (t *Table[K, V]) Remove(key K) error {
	if t == nil {
		return ErrNotFound
	}
	if _, ok := t.entries[key]; !ok {
		return ErrNotFound
	}
	delete(t.entries, key)
	return nil
}

// Exists reports whether key is present.
func (t *Table[K, V]) Exists(key K) bool {
	if t == nil {
		return false
	}
	_, ok := t.entries[key]
	return ok
}

// Count returns the number of stored pairs.
func (t *Table[K, V]) Count() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Enumerate calls visit once per pair, in no particular order. visit must
// not mutate the table.
func (t *Table[K, V]) Enumerate(visit func(key K, value V)) {
	if t == nil || visit == nil {
		return
	}
	for k, v := range t.entries {
		visit(k, v)
	}
}
