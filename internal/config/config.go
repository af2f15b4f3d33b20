// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New() builds a Config with defaults; Load layers file and env on top.
// - Validate reports unusable values with ErrInvalidConfig.
package config

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/okian/httcp/internal/domain/disambiguate"
	"github.com/okian/httcp/internal/domain/model"
	"github.com/okian/httcp/internal/domain/preselect"
	"github.com/okian/httcp/internal/domain/selection"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// Channel names the lepton pair channel: etau or mutau.
	Channel string `koanf:"channel"`

	// MinDeltaR and MaxTransverseMass are the preselection working points.
	MinDeltaR         float64 `koanf:"min_delta_r"`
	MaxTransverseMass float64 `koanf:"max_transverse_mass"`

	// PreSortLegs orders legs by their quality score before pairing.
	PreSortLegs bool `koanf:"presort_legs"`

	// Leg2PtTieBreak enables an extra tie-break stage on leg2 pt after the
	// discriminator. Off by default.
	Leg2PtTieBreak bool `koanf:"leg2_pt_tiebreak"`

	// WorkerCount sets the number of selection workers.
	WorkerCount int `koanf:"worker_count"`

	// QueueSize bounds the in-memory chunk queue.
	QueueSize int `koanf:"queue_size"`

	// ChunkSize is the number of events handed to one worker job.
	ChunkSize int `koanf:"chunk_size"`

	// DedupeSize sets the capacity of the seen-event cache. Zero turns
	// duplicate detection off.
	DedupeSize int `koanf:"dedupe_size"`

	// MaxBatchEvents caps the events accepted by one POST /select.
	MaxBatchEvents int `koanf:"max_batch_events"`
}

// New returns a Config holding the defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Addr:              ":9080",
		Channel:           model.ETau.Name,
		MinDeltaR:         0.5,
		MaxTransverseMass: 50,
		PreSortLegs:       true,
		Leg2PtTieBreak:    false,
		WorkerCount:       runtime.NumCPU(),
		QueueSize:         1024,
		ChunkSize:         4096,
		DedupeSize:        1_000_000,
		MaxBatchEvents:    100_000,
	}
}

// Validate checks every field that would otherwise fail later at runtime.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.WorkerCount <= 0:
		return fmt.Errorf("%w: worker_count must be positive, got %d", ErrInvalidConfig, c.WorkerCount)
	case c.QueueSize <= 0:
		return fmt.Errorf("%w: queue_size must be positive, got %d", ErrInvalidConfig, c.QueueSize)
	case c.ChunkSize <= 0:
		return fmt.Errorf("%w: chunk_size must be positive, got %d", ErrInvalidConfig, c.ChunkSize)
	case c.DedupeSize < 0:
		return fmt.Errorf("%w: dedupe_size must not be negative, got %d", ErrInvalidConfig, c.DedupeSize)
	case c.MaxBatchEvents <= 0:
		return fmt.Errorf("%w: max_batch_events must be positive, got %d", ErrInvalidConfig, c.MaxBatchEvents)
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: unknown log_format %q", ErrInvalidConfig, c.LogFormat)
	}
	if _, err := c.Selection(); err != nil {
		return err
	}
	return nil
}

// Selection builds the selector configuration.
func (c *Config) Selection() (selection.Config, error) {
	ch, err := model.ChannelByName(c.Channel)
	if err != nil {
		return selection.Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	cfg := selection.Config{
		Channel: ch,
		Thresholds: preselect.Thresholds{
			MinDeltaR:         c.MinDeltaR,
			MaxTransverseMass: c.MaxTransverseMass,
		},
		TieBreak:    disambiguate.TieBreak{Leg2Pt: c.Leg2PtTieBreak},
		PreSortLegs: c.PreSortLegs,
	}
	if err := cfg.Validate(); err != nil {
		return selection.Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return cfg, nil
}
