package columnar

import "github.com/apache/arrow/go/v14/arrow/memory"

const defaultBatchSize = 65536

type options struct {
	mem       memory.Allocator
	batchSize int64
}

// Option configures readers and writers.
type Option func(*options)

// WithAllocator sets the Arrow allocator.
func WithAllocator(mem memory.Allocator) Option {
	return func(o *options) {
		if mem != nil {
			o.mem = mem
		}
	}
}

// WithBatchSize sets the number of events per batch read from a file.
func WithBatchSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.batchSize = int64(n)
		}
	}
}

func newOptions(opts []Option) options {
	o := options{mem: memory.DefaultAllocator, batchSize: defaultBatchSize}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
