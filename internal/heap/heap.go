package heap

import (
	"fmt"
	"math"
	"math/bits"
	"unsafe"

	"heapcache/internal/table"
)

// Comparator orders two elements. A positive result means a has the higher
// priority and belongs closer to the root; zero means either order is fine.
//
// A comparator must be pure. Changing the fields it reads on a resident
// element breaks heap order until Reprioritize is called for that element.
type Comparator[T any] func(a, b T) int

// Heap is an array-backed binary heap with an identity index.
//
// Layout:
//   - storage[0:count] holds live elements in heap order; len(storage) is the capacity
//   - index maps every live element to its position in storage
//
// Every swap writes both sides so the two structures never disagree.
type Heap[T comparable] struct {
	count      int
	comparator Comparator[T]
	storage    []T
	index      *table.Table[T, int]
}

// New allocates a heap with room for capacity elements.
func New[T comparable](capacity int, cmp Comparator[T]) (*Heap[T], error) {
	if cmp == nil {
		return nil, ErrNullParameter
	}
	if capacity <= 0 {
		return nil, fmt.Errorf("capacity %d: %w", capacity, ErrInvalidArgument)
	}

	storage, err := allocate[T](capacity)
	if err != nil {
		return nil, err
	}

	return &Heap[T]{
		comparator: cmp,
		storage:    storage,
		index:      table.New[T, int](capacity),
	}, nil
}

// Insert adds e and restores heap order by sifting it up.
//
// Insert fails with ErrOverflow when the heap is full; call Resize first.
func (h *Heap[T]) Insert(e T) error {
	if !h.live() || isNull(e) {
		return ErrNullParameter
	}
	if h.index.Exists(e) {
		return fmt.Errorf("element already resident: %w", ErrInvalidArgument)
	}
	if h.count == len(h.storage) {
		return ErrOverflow
	}

	i := h.count
	h.place(e, i)
	h.count++
	h.siftUp(i)
	return nil
}

// Extract removes and returns the highest-priority element.
func (h *Heap[T]) Extract() (T, error) {
	var zero T
	if !h.live() {
		return zero, ErrNullParameter
	}
	if h.count == 0 {
		return zero, ErrUnderflow
	}

	root := h.storage[0]
	h.count--
	last := h.storage[h.count]
	h.storage[h.count] = zero
	_ = h.index.Remove(root)

	if h.count > 0 {
		h.place(last, 0)
		h.siftDown(0)
	}
	return root, nil
}

// Peek returns the highest-priority element without removing it.
func (h *Heap[T]) Peek() (T, error) {
	var zero T
	if !h.live() {
		return zero, ErrNullParameter
	}
	if h.count == 0 {
		return zero, ErrUnderflow
	}
	return h.storage[0], nil
}

// Exists reports whether e is resident.
func (h *Heap[T]) Exists(e T) bool {
	if !h.live() || isNull(e) {
		return false
	}
	return h.index.Exists(e)
}

// Reprioritize restores heap order after the caller changed the priority of
// a resident element. It tries moving e toward the root first and, if e did
// not move, toward the leaves. An element already in a valid position stays
// put and Reprioritize returns nil.
func (h *Heap[T]) Reprioritize(e T) error {
	if !h.live() || isNull(e) {
		return ErrNullParameter
	}
	i, err := h.index.Get(e)
	if err != nil {
		return ErrNotFound
	}

	if !h.siftUp(i) {
		h.siftDown(i)
	}
	return nil
}

// Resize changes the capacity. The live elements, their order and their
// positions are preserved. An empty heap may shrink to zero capacity; it then
// rejects every Insert until it is resized again. On failure the heap is
// unchanged.
func (h *Heap[T]) Resize(capacity int) error {
	if !h.live() {
		return ErrNullParameter
	}
	if capacity < h.count {
		return fmt.Errorf("resize to %d with %d resident: %w", capacity, h.count, ErrInvalidArgument)
	}
	if capacity == len(h.storage) {
		return nil
	}

	storage, err := allocate[T](capacity)
	if err != nil {
		return err
	}
	copy(storage, h.storage[:h.count])
	h.storage = storage
	return nil
}

// IsEmpty reports whether the heap holds no elements. A nil heap is empty.
func (h *Heap[T]) IsEmpty() bool {
	return h.Size() == 0
}

// Size returns the number of resident elements.
func (h *Heap[T]) Size() int {
	if !h.live() {
		return 0
	}
	return h.count
}

// MaxSize returns the current capacity.
func (h *Heap[T]) MaxSize() int {
	if !h.live() {
		return 0
	}
	return len(h.storage)
}

// Items returns a copy of the resident elements in array order. The first
// element, if any, is the root.
func (h *Heap[T]) Items() []T {
	if !h.live() {
		return nil
	}
	out := make([]T, h.count)
	copy(out, h.storage[:h.count])
	return out
}

// Destroy releases the heap. If destructor is non-nil it is called once for
// every resident element. A destroyed heap behaves like a nil heap.
func (h *Heap[T]) Destroy(destructor func(T)) {
	if !h.live() {
		return
	}
	if destructor != nil {
		for _, e := range h.storage[:h.count] {
			destructor(e)
		}
	}
	h.storage = nil
	h.index = nil
	h.count = 0
}

func (h *Heap[T]) live() bool {
	return h != nil && h.storage != nil
}

// siftUp moves the element at i toward the root while it outranks its
// parent. It reports whether the element moved.
func (h *Heap[T]) siftUp(i int) bool {
	moved := false
	for i > 0 {
		p := parent(i)
		if h.comparator(h.storage[i], h.storage[p]) <= 0 {
			break
		}
		h.swap(i, p)
		i = p
		moved = true
	}
	return moved
}

// siftDown moves the element at i toward the leaves while its higher-ranked
// child outranks it. It reports whether the element moved.
func (h *Heap[T]) siftDown(i int) bool {
	moved := false
	for {
		c := child(i)
		if c >= h.count {
			break
		}
		if r := c + 1; r < h.count && h.comparator(h.storage[r], h.storage[c]) > 0 {
			c = r
		}
		if h.comparator(h.storage[i], h.storage[c]) >= 0 {
			break
		}
		h.swap(i, c)
		i = c
		moved = true
	}
	return moved
}

func (h *Heap[T]) swap(i, j int) {
	a, b := h.storage[i], h.storage[j]
	h.place(b, i)
	h.place(a, j)
}

// place writes e to slot i and records the position in the index. The index
// of a live heap is never nil, so Put cannot fail here.
func (h *Heap[T]) place(e T, i int) {
	h.storage[i] = e
	_ = h.index.Put(e, i)
}

func parent(i int) int { return (i - 1) / 2 }

// child returns the left child of i.
func child(i int) int { return 2*i + 1 }

func isNull[T comparable](e T) bool {
	var zero T
	return e == zero
}

// allocate returns a zeroed slice of n elements, reporting size overflow and
// runtime allocation refusals as errors instead of panics.
func allocate[T any](n int) (s []T, err error) {
	var zero T
	hi, lo := bits.Mul64(uint64(n), uint64(unsafe.Sizeof(zero)))
	if hi != 0 || lo > math.MaxInt {
		return nil, fmt.Errorf("%d elements: %w", n, ErrArithmeticOverflow)
	}

	defer func() {
		if r := recover(); r != nil {
			s = nil
			err = fmt.Errorf("%d elements: %w (%v)", n, ErrAllocationFailure, r)
		}
	}()
	return make([]T, n), nil
}
