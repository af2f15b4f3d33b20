// Package ragged implements event-synchronous variable-length arrays.
//
// An Array stores one row per event as a window into a flat backing slice,
// delimited by an offsets table of length events+1. Every transformation in
// this package preserves the outer (event) dimension: rows may shrink to zero
// length but never disappear, so arrays derived from the same input stay
// aligned with it for the lifetime of a computation.
//
// Arrays are values. Operations never mutate their inputs and always return
// newly owned backing storage for values; offsets may be shared between
// arrays of the same shape since they are never written after construction.
package ragged

import "fmt"

// Array is a ragged array of T with one row per event.
type Array[T any] struct {
	offsets []int
	values  []T
}

// New builds an Array from an offsets table and flat values.
// It validates that offsets start at zero, never decrease and end at len(values).
func New[T any](offsets []int, values []T) (Array[T], error) {
	if len(offsets) == 0 {
		if len(values) != 0 {
			return Array[T]{}, fmt.Errorf("%w: %d values without offsets", ErrInvalidOffsets, len(values))
		}
		return Array[T]{}, nil
	}
	if offsets[0] != 0 {
		return Array[T]{}, fmt.Errorf("%w: first offset is %d, want 0", ErrInvalidOffsets, offsets[0])
	}
	for i := 1; i < len(offsets); i++ {
		if offsets[i] < offsets[i-1] {
			return Array[T]{}, fmt.Errorf("%w: offset %d decreases (%d < %d)", ErrInvalidOffsets, i, offsets[i], offsets[i-1])
		}
	}
	if last := offsets[len(offsets)-1]; last != len(values) {
		return Array[T]{}, fmt.Errorf("%w: last offset %d, have %d values", ErrInvalidOffsets, last, len(values))
	}
	return Array[T]{offsets: offsets, values: values}, nil
}

// FromRows copies nested rows into a flat Array.
func FromRows[T any](rows [][]T) Array[T] {
	total := 0
	for _, r := range rows {
		total += len(r)
	}
	b := NewBuilder[T](len(rows), total)
	for _, r := range rows {
		b.Append(r...)
		b.EndRow()
	}
	return b.Build()
}

// Empty returns an Array with the given number of events, all rows empty.
func Empty[T any](events int) Array[T] {
	return Array[T]{offsets: make([]int, events+1)}
}

// Len returns the number of events.
func (a Array[T]) Len() int {
	if len(a.offsets) == 0 {
		return 0
	}
	return len(a.offsets) - 1
}

// IsZero reports whether a is the zero Array, i.e. was never populated.
// Empty(0) is not zero.
func (a Array[T]) IsZero() bool {
	return a.offsets == nil
}

// Total returns the number of values across all events.
func (a Array[T]) Total() int {
	return len(a.values)
}

// Row returns the values of event i. The returned slice has its capacity
// clipped so appending to it never overwrites a neighbouring row.
func (a Array[T]) Row(i int) []T {
	lo, hi := a.offsets[i], a.offsets[i+1]
	return a.values[lo:hi:hi]
}

// Count returns the number of values in event i.
func (a Array[T]) Count(i int) int {
	return a.offsets[i+1] - a.offsets[i]
}

// Counts returns the per-event row lengths.
func (a Array[T]) Counts() []int {
	out := make([]int, a.Len())
	for i := range out {
		out[i] = a.Count(i)
	}
	return out
}

// Offsets returns a copy of the offsets table.
func (a Array[T]) Offsets() []int {
	out := make([]int, len(a.offsets))
	copy(out, a.offsets)
	return out
}

// Values returns the flat backing values. Callers must not modify them.
func (a Array[T]) Values() []T {
	return a.values
}

// Rows copies the array into nested slices.
func (a Array[T]) Rows() [][]T {
	out := make([][]T, a.Len())
	for i := range out {
		row := a.Row(i)
		out[i] = make([]T, len(row))
		copy(out[i], row)
	}
	return out
}

// Slice returns events [start, end) as a new Array with rebased offsets.
func (a Array[T]) Slice(start, end int) Array[T] {
	if start == end {
		return Empty[T](0)
	}
	base := a.offsets[start]
	offsets := make([]int, end-start+1)
	for i := range offsets {
		offsets[i] = a.offsets[start+i] - base
	}
	values := make([]T, a.offsets[end]-base)
	copy(values, a.values[base:a.offsets[end]])
	return Array[T]{offsets: offsets, values: values}
}

// SameShape reports whether a and b have identical per-event row lengths.
func SameShape[T, U any](a Array[T], b Array[U]) bool {
	if a.Len() != b.Len() {
		return false
	}
	if a.Len() == 0 {
		return true
	}
	for i := 0; i <= a.Len(); i++ {
		if a.offsets[i] != b.offsets[i] {
			return false
		}
	}
	return true
}

// WithValues pairs the shape of a with a new flat value slice.
func WithValues[T, U any](shape Array[T], values []U) (Array[U], error) {
	if len(values) != shape.Total() {
		return Array[U]{}, fmt.Errorf("%w: shape holds %d values, got %d", ErrInvalidOffsets, shape.Total(), len(values))
	}
	return Array[U]{offsets: shape.offsets, values: values}, nil
}

// Map applies fn to every value, keeping the shape of a.
func Map[T, U any](a Array[T], fn func(T) U) Array[U] {
	values := make([]U, len(a.values))
	for i, v := range a.values {
		values[i] = fn(v)
	}
	return Array[U]{offsets: a.offsets, values: values}
}

// Filter keeps the values of a whose mask entry is true. Events are never
// dropped: an event with no surviving values becomes an empty row.
func Filter[T any](a Array[T], mask Array[bool]) (Array[T], error) {
	if !SameShape(a, mask) {
		return Array[T]{}, fmt.Errorf("%w: filter mask shape differs from array", ErrLengthMismatch)
	}
	b := NewBuilder[T](a.Len(), a.Total())
	for i := 0; i < a.Len(); i++ {
		row, keep := a.Row(i), mask.Row(i)
		for j, v := range row {
			if keep[j] {
				b.Append(v)
			}
		}
		b.EndRow()
	}
	return b.Build(), nil
}

// Concat stitches arrays end to end along the event dimension.
func Concat[T any](parts ...Array[T]) Array[T] {
	events, total := 0, 0
	for _, p := range parts {
		events += p.Len()
		total += p.Total()
	}
	b := NewBuilder[T](events, total)
	for _, p := range parts {
		for i := 0; i < p.Len(); i++ {
			b.Append(p.Row(i)...)
			b.EndRow()
		}
	}
	return b.Build()
}

// CountTrue returns the number of true entries per event.
func CountTrue(mask Array[bool]) []int {
	out := make([]int, mask.Len())
	for i := range out {
		for _, v := range mask.Row(i) {
			if v {
				out[i]++
			}
		}
	}
	return out
}

// Local returns, for every value of a, its position within its own row.
func Local[T any](a Array[T]) Array[int32] {
	values := make([]int32, len(a.values))
	for i := 0; i < a.Len(); i++ {
		lo, hi := a.offsets[i], a.offsets[i+1]
		for j := lo; j < hi; j++ {
			values[j] = int32(j - lo)
		}
	}
	return Array[int32]{offsets: a.offsets, values: values}
}
