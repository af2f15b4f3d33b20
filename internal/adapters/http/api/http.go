// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/okian/httcp/internal/adapters/repository"
	service "github.com/okian/httcp/internal/app"
	"github.com/okian/httcp/internal/domain/model"
	"github.com/okian/httcp/internal/domain/pairing"
	"github.com/okian/httcp/internal/domain/selection"
	"github.com/okian/httcp/internal/domain/types"
)

const defaultMaxBatchEvents = 100_000

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the service implementation.
type Dependencies interface {
	// Channel names the channel every request is selected in.
	Channel() string

	// Select runs the selection on one batch.
	Select(ctx context.Context, b *model.Batch) (*service.Outcome, error)

	// Cutflow returns the accumulated cutflow.
	Cutflow(ctx context.Context) repository.Snapshot

	// Stats returns runtime statistics.
	Stats() types.Stats

	// WriteHistograms writes the feature histograms as YODA text.
	WriteHistograms(w io.Writer) error
}

// Option configures a Server.
type Option func(*Server)

// WithMaxBatchEvents caps the number of events accepted per request.
func WithMaxBatchEvents(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBatchEvents = n
		}
	}
}

// Server wires HTTP routes for the selection API.
type Server struct {
	deps           Dependencies
	maxBatchEvents int

	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	selectHandler  *SelectHandler
	cutflowHandler *CutflowHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{deps: deps, maxBatchEvents: defaultMaxBatchEvents}
	for _, opt := range opts {
		opt(s)
	}
	s.healthHandler = NewHealthHandler()
	s.statsHandler = NewStatsHandler(deps)
	s.selectHandler = NewSelectHandler(deps, s.maxBatchEvents)
	s.cutflowHandler = NewCutflowHandler(deps)
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.Handle("/metrics", MetricsHandler())
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/select", MetricsMiddleware(s.selectHandler.HandleSelect, "select"))
	mux.HandleFunc("/cutflow", MetricsMiddleware(s.cutflowHandler.HandleCutflow, "cutflow"))
	mux.HandleFunc("/histograms", MetricsMiddleware(s.cutflowHandler.HandleHistograms, "histograms"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	writeJSON(w, status, errorResponse{Code: code, Message: err.Error()})
}

// classify maps an error to its HTTP status and error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrMethodNotAllowed):
		return http.StatusMethodNotAllowed, "method_not_allowed"
	case errors.Is(err, ErrTooLarge):
		return http.StatusRequestEntityTooLarge, "too_large"
	case errors.Is(err, ErrBackpressure), errors.Is(err, service.ErrBackpressure):
		return http.StatusTooManyRequests, "backpressure"
	case errors.Is(err, ErrUnavailable), errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, "unavailable"
	case errors.Is(err, ErrNotFound), errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, pairing.ErrMisaligned),
		errors.Is(err, pairing.ErrIndexOutOfRange),
		errors.Is(err, types.ErrInvalidIndex),
		errors.Is(err, selection.ErrChannelMismatch):
		return http.StatusBadRequest, "bad_request"
	default:
		return http.StatusInternalServerError, "internal"
	}
}
