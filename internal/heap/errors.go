package heap

import "errors"

var (
	ErrNullParameter      = errors.New("required parameter is nil")
	ErrInvalidArgument    = errors.New("argument out of range")
	ErrAllocationFailure  = errors.New("failed to allocate memory")
	ErrArithmeticOverflow = errors.New("size computation overflows")
	ErrOverflow           = errors.New("heap is at capacity")
	ErrUnderflow          = errors.New("heap is empty")
	ErrNotFound           = errors.New("element not found in heap")
)
