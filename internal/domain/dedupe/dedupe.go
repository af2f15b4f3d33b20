// Package dedupe remembers which collision events were already selected.
//
// Primary datasets overlap: the same (run, lumi, event) can arrive from two
// trigger streams. The service consults a Deduper before counting an event so
// each collision contributes to the cutflow once.
package dedupe

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"

	"github.com/okian/httcp/internal/domain/model"
)

const defaultMaxSize = 1_000_000

// Deduper records seen event keys.
type Deduper interface {
	// SeenAndRecord atomically checks if key was seen and records it if not.
	// Returns true if key was already seen.
	SeenAndRecord(ctx context.Context, key model.EventKey) bool

	// MarkBatch runs SeenAndRecord over keys in order and returns the
	// duplicate flags. A key repeated within keys is a duplicate from its
	// second occurrence on.
	MarkBatch(ctx context.Context, keys []model.EventKey) []bool

	// Unrecord forgets key so it can be processed again, e.g. after the
	// batch that recorded it was rejected.
	Unrecord(ctx context.Context, key model.EventKey)

	Size() int64
}

// inMemoryDeduper keeps keys in a map plus an insertion-ordered list.
// In bounded mode (maxSize > 0) the oldest key is evicted first; in
// unbounded mode the list is not maintained.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[model.EventKey]*list.Element
	order   *list.List
	maxSize int
	size    atomic.Int64
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{maxSize: defaultMaxSize}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[model.EventKey]*list.Element)
	d.order = list.New()
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, key model.EventKey) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.seenAndRecordLocked(key)
}

func (d *inMemoryDeduper) MarkBatch(_ context.Context, keys []model.EventKey) []bool {
	out := make([]bool, len(keys))
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, k := range keys {
		out[i] = d.seenAndRecordLocked(k)
	}
	return out
}

func (d *inMemoryDeduper) seenAndRecordLocked(key model.EventKey) bool {
	if _, ok := d.seen[key]; ok {
		return true
	}
	if d.maxSize > 0 {
		if len(d.seen) >= d.maxSize {
			d.evictOldest()
		}
		d.seen[key] = d.order.PushBack(key)
	} else {
		d.seen[key] = nil
	}
	d.size.Add(1)
	return false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, key model.EventKey) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.seen[key]
	if !ok {
		return
	}
	if e != nil {
		d.order.Remove(e)
	}
	delete(d.seen, key)
	d.size.Add(-1)
}

// evictOldest must be called with d.mu held.
func (d *inMemoryDeduper) evictOldest() {
	e := d.order.Front()
	if e == nil {
		return
	}
	d.order.Remove(e)
	delete(d.seen, e.Value.(model.EventKey))
	d.size.Add(-1)
}

func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}
