package loadtest

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/httcp/internal/adapters/repository"
	"github.com/okian/httcp/internal/domain/types"
	"github.com/okian/httcp/internal/simulate"
	"github.com/okian/httcp/pkg/logger"
)

// Run submits simulated requests to the service and verifies its cutflow.
// The check assumes no other client feeds the same channel during the run.
func Run(ctx context.Context, cfg Config) (*Stats, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := logger.Get().Named("loadtest")
	c := newClient(cfg.BaseURL, cfg.Timeout)
	channel := cfg.Sample.Channel.Name

	log.Info(ctx, "starting load test",
		logger.String("base_url", cfg.BaseURL),
		logger.String("channel", channel),
		logger.Int("requests", cfg.Requests),
		logger.Int("events_per_request", cfg.EventsPerRequest),
		logger.Int("workers", cfg.Workers),
	)

	if err := checkHealth(ctx, c); err != nil {
		return nil, fmt.Errorf("service health check failed: %w", err)
	}
	before, err := cutflow(ctx, c, channel)
	if err != nil {
		return nil, err
	}

	gen, err := simulate.New(cfg.Sample)
	if err != nil {
		return nil, err
	}
	reqs := make([]*types.SelectRequest, cfg.Requests)
	for i := range reqs {
		reqs[i] = gen.Request(cfg.EventsPerRequest)
	}

	start := time.Now()
	stats := submit(ctx, c, cfg.Workers, reqs)
	stats.Duration = time.Since(start)

	log.Info(ctx, "submission completed",
		logger.Int("succeeded", stats.Succeeded),
		logger.Int("backpressured", stats.Backpressured),
		logger.Int("failed", stats.Failed),
		logger.Int64("selected", stats.Selected),
		logger.Duration("took", stats.Duration),
	)
	if err := ctx.Err(); err != nil {
		return stats, err
	}

	after, err := cutflow(ctx, c, channel)
	if err != nil {
		return stats, err
	}
	if err := verify(before, after, stats); err != nil {
		return stats, err
	}
	log.Info(ctx, "cutflow verified", logger.Int64("events", after.Events), logger.Int64("selected", after.Selected))
	return stats, nil
}

func checkHealth(ctx context.Context, c *client) error {
	status, err := c.get(ctx, "/healthz", nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("unexpected status %d", status)
	}
	return nil
}

// cutflow fetches one channel's record; a channel the service has not yet
// seen reads as empty.
func cutflow(ctx context.Context, c *client, channel string) (repository.Cutflow, error) {
	var cf repository.Cutflow
	status, err := c.get(ctx, "/cutflow?channel="+url.QueryEscape(channel), &cf)
	if err != nil {
		return cf, fmt.Errorf("fetch cutflow: %w", err)
	}
	switch status {
	case http.StatusOK:
		return cf, nil
	case http.StatusNotFound:
		return repository.Cutflow{Channel: channel}, nil
	}
	return cf, fmt.Errorf("fetch cutflow: unexpected status %d", status)
}

// submit posts reqs from a pool of workers.
func submit(ctx context.Context, c *client, workers int, reqs []*types.SelectRequest) *Stats {
	var (
		succeeded, backpressured, failed atomic.Int64
		events, duplicates, selected     atomic.Int64
	)

	reqCh := make(chan *types.SelectRequest, workers*2)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for req := range reqCh {
				var resp types.SelectResponse
				status, err := c.post(ctx, "/select", req, &resp)
				switch {
				case err != nil:
					failed.Add(1)
				case status == http.StatusOK:
					succeeded.Add(1)
					selected.Add(int64(resp.Selected))
					for _, ev := range resp.Events {
						events.Add(1)
						if ev.Duplicate {
							duplicates.Add(1)
						}
					}
				case status == http.StatusTooManyRequests:
					backpressured.Add(1)
				default:
					failed.Add(1)
				}
			}
		}()
	}

	go func() {
		defer close(reqCh)
		for _, r := range reqs {
			select {
			case <-ctx.Done():
				return
			case reqCh <- r:
			}
		}
	}()
	wg.Wait()

	return &Stats{
		Requests:      len(reqs),
		Succeeded:     int(succeeded.Load()),
		Backpressured: int(backpressured.Load()),
		Failed:        int(failed.Load()),
		Events:        events.Load(),
		Duplicates:    duplicates.Load(),
		Selected:      selected.Load(),
	}
}

// verify compares the cutflow growth with what the responses reported.
func verify(before, after repository.Cutflow, s *Stats) error {
	fresh := s.Events - s.Duplicates
	if got := after.Events - before.Events; got != fresh {
		return fmt.Errorf("%w: cutflow grew by %d events, responses reported %d fresh", ErrMismatch, got, fresh)
	}
	if got := after.Selected - before.Selected; got != s.Selected {
		return fmt.Errorf("%w: cutflow grew by %d selected, responses reported %d", ErrMismatch, got, s.Selected)
	}
	if got := after.Duplicates - before.Duplicates; got != s.Duplicates {
		return fmt.Errorf("%w: cutflow grew by %d duplicates, responses reported %d", ErrMismatch, got, s.Duplicates)
	}
	return nil
}
