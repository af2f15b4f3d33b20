package service

import (
	"github.com/okian/httcp/internal/adapters/repository"
	"github.com/okian/httcp/internal/domain/selection"
	"github.com/okian/httcp/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithSelection sets the selection configuration.
func WithSelection(cfg selection.Config) Option {
	return func(s *Service) {
		s.selCfg = cfg
	}
}

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of queued chunks.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the event deduplication cache. Zero
// disables duplicate detection, making repeated Select calls return equal
// results.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size >= 0 {
			s.dedupeSize = size
		}
	}
}

// WithChunkSize sets the number of events per queued job.
func WithChunkSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.chunkSize = size
		}
	}
}

// WithStore sets the cutflow store.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
