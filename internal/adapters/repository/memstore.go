package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/httcp/pkg/metrics"
)

// MemoryStore is an in-memory Store. Writers serialize on a mutex and
// publish a fresh Snapshot; readers only load the published pointer.
type MemoryStore struct {
	mu       sync.Mutex
	channels map[string]*Cutflow
	now      func() time.Time

	snapshot atomic.Pointer[Snapshot]
}

// NewMemoryStore creates an empty store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		channels: make(map[string]*Cutflow),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.publishLocked()
	return s
}

// Add merges u into the channel record.
func (s *MemoryStore) Add(_ context.Context, u Update) error {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryUpdateLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	cf, ok := s.channels[u.Channel]
	if !ok {
		cf = &Cutflow{Channel: u.Channel, TieBreak: make(map[string]int64)}
		for _, st := range u.Steps {
			cf.Steps = append(cf.Steps, StepCount{Name: st.Name})
		}
	}
	if len(u.Steps) != len(cf.Steps) {
		return fmt.Errorf("%w: channel %s has %d steps, update has %d", ErrStepMismatch, u.Channel, len(cf.Steps), len(u.Steps))
	}
	for i, st := range u.Steps {
		if st.Name != cf.Steps[i].Name {
			return fmt.Errorf("%w: step %d is %q, update has %q", ErrStepMismatch, i, cf.Steps[i].Name, st.Name)
		}
	}

	s.channels[u.Channel] = cf
	cf.Events += u.Events
	cf.Duplicates += u.Duplicates
	cf.Pairs += u.Pairs
	cf.Selected += u.Selected
	for i, st := range u.Steps {
		cf.Steps[i].Pairs += st.Pairs
		cf.Steps[i].Events += st.Events
	}
	for stage, n := range u.TieBreak {
		cf.TieBreak[stage] += n
	}

	s.publishLocked()
	return nil
}

// Channel returns a copy of one channel's record.
func (s *MemoryStore) Channel(_ context.Context, name string) (Cutflow, error) {
	for _, cf := range s.snapshot.Load().Channels {
		if cf.Channel == name {
			return cf, nil
		}
	}
	return Cutflow{}, fmt.Errorf("%w: %s", ErrNotFound, name)
}

// Snapshot returns the latest published view.
func (s *MemoryStore) Snapshot(_ context.Context) Snapshot {
	return *s.snapshot.Load()
}

// Reset drops every record.
func (s *MemoryStore) Reset(_ context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channels = make(map[string]*Cutflow)
	s.publishLocked()
}

func (s *MemoryStore) publishLocked() {
	snap := &Snapshot{
		Channels: make([]Cutflow, 0, len(s.channels)),
		TakenAt:  s.now(),
	}
	var events int64
	for _, cf := range s.channels {
		c := *cf
		c.Steps = append([]StepCount(nil), cf.Steps...)
		c.TieBreak = make(map[string]int64, len(cf.TieBreak))
		for k, v := range cf.TieBreak {
			c.TieBreak[k] = v
		}
		snap.Channels = append(snap.Channels, c)
		events += cf.Events
	}
	sort.Slice(snap.Channels, func(i, j int) bool {
		return snap.Channels[i].Channel < snap.Channels[j].Channel
	})
	s.snapshot.Store(snap)
	metrics.UpdateRepositoryEvents(events)
}
