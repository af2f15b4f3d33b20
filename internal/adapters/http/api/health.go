package api

import "net/http"

// HealthHandler handles health check requests.
type HealthHandler struct{}

// NewHealthHandler creates a new health handler.
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// HandleHealth handles GET /healthz requests.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, NewKind("api.healthz", ErrMethodNotAllowed))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
