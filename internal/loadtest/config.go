// Package loadtest drives a running selection service over HTTP and checks
// that its accumulated cutflow agrees with the responses it returned.
package loadtest

import (
	"errors"
	"fmt"
	"time"

	"github.com/okian/httcp/internal/simulate"
)

// ErrInvalidConfig is returned by Config.Validate.
var ErrInvalidConfig = errors.New("invalid load test configuration")

// ErrMismatch is returned when the server cutflow disagrees with the
// submitted requests.
var ErrMismatch = errors.New("cutflow mismatch")

// Config holds configuration for a load test run.
type Config struct {
	BaseURL          string        // Base URL of the service
	Requests         int           // Number of /select requests
	EventsPerRequest int           // Events in each request
	Workers          int           // Number of concurrent submitters
	Timeout          time.Duration // HTTP request timeout
	Sample           simulate.Config
}

// DefaultConfig returns a small run against a local service.
func DefaultConfig() Config {
	return Config{
		BaseURL:          "http://localhost:9080",
		Requests:         100,
		EventsPerRequest: 500,
		Workers:          4,
		Timeout:          30 * time.Second,
		Sample:           simulate.DefaultConfig(),
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	switch {
	case c.BaseURL == "":
		return fmt.Errorf("%w: base URL must not be empty", ErrInvalidConfig)
	case c.Requests < 1:
		return fmt.Errorf("%w: requests must be positive, got %d", ErrInvalidConfig, c.Requests)
	case c.EventsPerRequest < 1:
		return fmt.Errorf("%w: events per request must be positive, got %d", ErrInvalidConfig, c.EventsPerRequest)
	case c.Workers < 1:
		return fmt.Errorf("%w: workers must be positive, got %d", ErrInvalidConfig, c.Workers)
	case c.Timeout <= 0:
		return fmt.Errorf("%w: timeout must be positive", ErrInvalidConfig)
	}
	return c.Sample.Validate()
}

// Stats summarises a run.
type Stats struct {
	Requests      int           `json:"requests" yaml:"requests"`
	Succeeded     int           `json:"succeeded" yaml:"succeeded"`
	Backpressured int           `json:"backpressured" yaml:"backpressured"`
	Failed        int           `json:"failed" yaml:"failed"`
	Events        int64         `json:"events" yaml:"events"`
	Duplicates    int64         `json:"duplicates" yaml:"duplicates"`
	Selected      int64         `json:"selected" yaml:"selected"`
	Duration      time.Duration `json:"duration" yaml:"duration"`
}
