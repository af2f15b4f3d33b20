// Package service runs the lepton pair selection behind the HTTP API and
// the CLI. It splits batches into chunks, fans them out to a worker pool and
// accumulates the cutflow of every processed event.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"sync"
	"time"

	eventqueue "github.com/okian/httcp/internal/adapters/mq/queue"
	workerpool "github.com/okian/httcp/internal/adapters/mq/worker"
	"github.com/okian/httcp/internal/adapters/repository"
	"github.com/okian/httcp/internal/domain/dedupe"
	"github.com/okian/httcp/internal/domain/disambiguate"
	"github.com/okian/httcp/internal/domain/features"
	"github.com/okian/httcp/internal/domain/model"
	"github.com/okian/httcp/internal/domain/pairing"
	"github.com/okian/httcp/internal/domain/ragged"
	"github.com/okian/httcp/internal/domain/selection"
	"github.com/okian/httcp/internal/domain/types"
	"github.com/okian/httcp/pkg/logger"
	"github.com/okian/httcp/pkg/metrics"
)

// Outcome is the result of one Select call.
type Outcome struct {
	BatchID  string
	Result   *selection.Result
	Features *features.Features
	// Duplicates flags events already seen in an earlier batch or earlier
	// in this one. Their pair is absent and they are not counted.
	Duplicates []bool
	// Steps holds the cutflow of the fresh events of this batch.
	Steps []repository.StepCount
}

// Service implements the API dependencies for the selection system.
type Service struct {
	mu sync.RWMutex

	selCfg   selection.Config
	selector *selection.Selector
	store    repository.Store
	hists    *features.Histograms

	queue   *eventqueue.InMemoryQueue
	pool    *workerpool.Pool
	deduper dedupe.Deduper

	workerCount int
	queueSize   int
	dedupeSize  int
	chunkSize   int

	started   bool
	startedAt time.Time
	cancel    context.CancelFunc

	logger logger.Logger
}

// New constructs a Service. The selection configuration is validated here.
func New(opts ...Option) (*Service, error) {
	s := &Service{
		selCfg:      selection.DefaultConfig(),
		workerCount: runtime.NumCPU(),
		queueSize:   1024,
		dedupeSize:  1_000_000,
		chunkSize:   4096,
		hists:       features.NewHistograms(),
	}
	for _, opt := range opts {
		opt(s)
	}

	sel, err := selection.New(s.selCfg)
	if err != nil {
		return nil, err
	}
	s.selector = sel
	if s.store == nil {
		s.store = repository.NewMemoryStore()
	}
	return s, nil
}

// Start creates the queue, deduper and worker pool and starts the workers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.deduper = nil
	if s.dedupeSize > 0 {
		s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	}
	s.queue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.pool = workerpool.NewPool(s.workerCount, s.queue, s.selector)

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.pool.Start(runCtx)

	s.started = true
	s.startedAt = time.Now()
	s.logger.Info(ctx, "selection service started",
		logger.String("channel", s.selCfg.Channel.Name),
		logger.Int("workers", s.pool.Size()),
		logger.Int("queue_size", s.queueSize),
		logger.Int("chunk_size", s.chunkSize),
		logger.Int("dedupe_size", s.dedupeSize),
	)
	return nil
}

// Stop drains the queue and stops the workers.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping selection service")

	err := s.pool.Shutdown(ctx)
	s.cancel()
	s.started = false

	s.logger.Info(ctx, "selection service stopped", logger.Int64("chunks", s.pool.Processed()))
	return err
}

// Channel returns the name of the configured channel.
func (s *Service) Channel() string {
	return s.selCfg.Channel.Name
}

// Histograms returns the accumulated feature histograms.
func (s *Service) Histograms() *features.Histograms {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hists
}

// WriteHistograms writes the feature histograms as YODA text.
func (s *Service) WriteHistograms(w io.Writer) error {
	return s.Histograms().WriteYODA(w)
}

// Select runs the pair selection over b and records its cutflow.
func (s *Service) Select(ctx context.Context, b *model.Batch) (*Outcome, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return nil, ErrNotStarted
	}
	start := time.Now()
	channel := s.selCfg.Channel.Name

	if err := checkBatch(b); err != nil {
		metrics.RecordSelectionError()
		metrics.RecordErrorByComponent("service", "invalid_batch")
		return nil, err
	}

	dups := make([]bool, b.Len())
	if b.Keys != nil && s.deduper != nil {
		dups = s.deduper.MarkBatch(ctx, b.Keys)
	}

	res, err := s.run(ctx, b)
	if err != nil {
		s.forget(ctx, b.Keys, dups)
		metrics.RecordSelectionError()
		return nil, err
	}

	fresh := dropDuplicates(res, dups)
	feats, err := features.Compute(b, res.Pairs)
	if err != nil {
		s.forget(ctx, b.Keys, dups)
		return nil, err
	}
	s.hists.Fill(feats)

	update := tally(channel, res, dups)
	if err := s.store.Add(ctx, update); err != nil {
		s.logger.Error(ctx, "cutflow store update failed", logger.String("batch_id", b.ID), logger.Error(err))
		metrics.RecordErrorByComponent("repository", "add")
	}
	record(channel, update, res, dups)

	s.logger.Debug(ctx, "batch selected",
		logger.String("batch_id", b.ID),
		logger.Int("events", b.Len()),
		logger.Int("fresh", fresh),
		logger.Int64("selected", update.Selected),
		logger.Duration("took", time.Since(start)),
	)
	return &Outcome{BatchID: b.ID, Result: res, Features: feats, Duplicates: dups, Steps: update.Steps}, nil
}

// run splits b into chunks, queues them and stitches the replies in order.
func (s *Service) run(ctx context.Context, b *model.Batch) (*selection.Result, error) {
	n := b.Len()
	if n == 0 {
		return s.selector.Select(b)
	}

	chunks := (n + s.chunkSize - 1) / s.chunkSize
	replies := make(chan eventqueue.Reply, chunks)
	for i := 0; i < chunks; i++ {
		lo, hi := i*s.chunkSize, min((i+1)*s.chunkSize, n)
		job := eventqueue.Job{BatchID: b.ID, Index: i, Chunk: b.Slice(lo, hi), Reply: replies}
		if err := s.queue.Enqueue(ctx, job); err != nil {
			if errors.Is(err, eventqueue.ErrFull) {
				return nil, fmt.Errorf("%w: chunk %d of %d", ErrBackpressure, i, chunks)
			}
			return nil, fmt.Errorf("enqueue chunk %d: %w", i, err)
		}
	}

	parts := make([]*selection.Result, chunks)
	for received := 0; received < chunks; received++ {
		select {
		case r := <-replies:
			if r.Err != nil {
				return nil, r.Err
			}
			parts[r.Index] = r.Result
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for chunks: %w", ctx.Err())
		}
	}
	return selection.Merge(parts...), nil
}

func (s *Service) forget(ctx context.Context, keys []model.EventKey, dups []bool) {
	if s.deduper == nil {
		return
	}
	for i, k := range keys {
		if !dups[i] {
			s.deduper.Unrecord(ctx, k)
		}
	}
}

// Cutflow returns the accumulated cutflow of every channel.
func (s *Service) Cutflow(ctx context.Context) repository.Snapshot {
	return s.store.Snapshot(ctx)
}

// ResetCutflow clears the accumulated cutflow and histograms.
func (s *Service) ResetCutflow(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.Reset(ctx)
	s.hists = features.NewHistograms()
}

// Stats returns service statistics for monitoring.
func (s *Service) Stats() types.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := types.Stats{
		Channel:     s.selCfg.Channel.Name,
		Workers:     s.workerCount,
		HistEntries: s.hists.Entries(),
	}
	if s.started {
		st.Workers = s.pool.Size()
		st.QueueDepth = s.queue.Len()
		st.QueueCapacity = s.queue.Capacity()
		st.ChunksDone = s.pool.Processed()
		if s.deduper != nil {
			st.SeenEvents = s.deduper.Size()
		}
		st.UptimeSeconds = time.Since(s.startedAt).Seconds()
	}
	return st
}

// IsStarted reports whether the workers are running.
func (s *Service) IsStarted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

func checkBatch(b *model.Batch) error {
	if err := b.Validate(); err != nil {
		return fmt.Errorf("%w: %w", pairing.ErrMisaligned, err)
	}
	n := b.Len()
	if b.Leg2Indices.Len() != n || b.Leg1.Len() != n || b.Leg2.Len() != n {
		return fmt.Errorf("%w: leg indices %d/%d, collections %d/%d for %d events",
			pairing.ErrMisaligned, b.Leg1Indices.Len(), b.Leg2Indices.Len(), b.Leg1.Len(), b.Leg2.Len(), n)
	}
	for _, c := range []*model.Collection{&b.Leg1, &b.Leg2} {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("%w: %w", pairing.ErrMisaligned, err)
		}
	}
	return nil
}

// dropDuplicates clears the selection and the cut masks of duplicate events
// and returns the number of fresh ones.
func dropDuplicates(res *selection.Result, dups []bool) int {
	fresh := 0
	for i, dup := range dups {
		if !dup {
			fresh++
			continue
		}
		res.Pairs[i] = pairing.NoPair
		res.Candidates[i] = 0
		res.Stages[i] = disambiguate.StageNone
	}
	if fresh == len(dups) {
		return fresh
	}
	for si, step := range res.Cutflow {
		res.Cutflow[si].Mask = clearRows(step.Mask, dups)
	}
	return fresh
}

// clearRows returns a copy of mask with every value of the flagged events
// set to false.
func clearRows(mask ragged.Array[bool], rows []bool) ragged.Array[bool] {
	values := make([]bool, mask.Total())
	copy(values, mask.Values())
	offsets := mask.Offsets()
	for i, flagged := range rows {
		if !flagged {
			continue
		}
		for j := offsets[i]; j < offsets[i+1]; j++ {
			values[j] = false
		}
	}
	out, _ := ragged.WithValues(mask, values)
	return out
}

// tally counts pairs and events per step over the fresh events only.
func tally(channel string, res *selection.Result, dups []bool) repository.Update {
	u := repository.Update{Channel: channel, TieBreak: make(map[string]int64)}
	for _, dup := range dups {
		if dup {
			u.Duplicates++
		} else {
			u.Events++
		}
	}
	for si, step := range res.Cutflow {
		sc := repository.StepCount{Name: step.Name}
		for i, n := range ragged.CountTrue(step.Mask) {
			if dups[i] {
				continue
			}
			if si == 0 {
				u.Pairs += int64(step.Mask.Count(i))
			}
			sc.Pairs += int64(n)
			if n > 0 {
				sc.Events++
			}
		}
		u.Steps = append(u.Steps, sc)
	}
	for i, p := range res.Pairs {
		if dups[i] || p.Absent() {
			continue
		}
		u.Selected++
		u.TieBreak[res.Stages[i].String()]++
	}
	return u
}

func record(channel string, u repository.Update, res *selection.Result, dups []bool) {
	metrics.RecordEventsProcessed(channel, int(u.Events))
	for i := int64(0); i < u.Duplicates; i++ {
		metrics.RecordEventDuplicate()
	}
	metrics.RecordPairsGenerated(channel, int(u.Pairs))
	for _, st := range u.Steps {
		metrics.RecordCutStep(channel, st.Name, int(st.Pairs), int(st.Events))
	}
	metrics.RecordEventsSelected(channel, int(u.Selected))
	for i, p := range res.Pairs {
		if !dups[i] && !p.Absent() {
			metrics.RecordTieBreakStage(channel, res.Stages[i].String())
		}
	}
}
