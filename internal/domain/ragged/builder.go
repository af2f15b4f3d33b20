package ragged

// Builder assembles an Array row by row.
type Builder[T any] struct {
	offsets []int
	values  []T
}

// NewBuilder returns a Builder with capacity hints for events and values.
func NewBuilder[T any](events, values int) *Builder[T] {
	offsets := make([]int, 1, events+1)
	return &Builder[T]{offsets: offsets, values: make([]T, 0, values)}
}

// Append adds values to the current row.
func (b *Builder[T]) Append(v ...T) {
	b.values = append(b.values, v...)
}

// EndRow closes the current row and starts the next event.
func (b *Builder[T]) EndRow() {
	b.offsets = append(b.offsets, len(b.values))
}

// Len returns the number of completed rows.
func (b *Builder[T]) Len() int {
	return len(b.offsets) - 1
}

// Build returns the assembled Array. The builder must not be reused.
func (b *Builder[T]) Build() Array[T] {
	return Array[T]{offsets: b.offsets, values: b.values}
}
