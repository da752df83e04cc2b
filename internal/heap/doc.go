// Package heap implements an indexed binary heap.
//
// Goals for this package:
//   - Keep the heap array and an identity index (element → position) in lock step
//   - Allow any resident element, not only the root, to be located and resorted
//   - Never grow implicitly; capacity changes only through Resize
//   - Leave the heap exactly as it was when an operation fails
//
// Elements are handles, normally pointers. Identity is Go equality on the
// handle, so two pointers to structs with equal fields are still distinct
// elements. The zero value of the handle type is treated as a missing
// argument.
//
// A Heap is not safe for concurrent use; callers serialize access.
package heap
