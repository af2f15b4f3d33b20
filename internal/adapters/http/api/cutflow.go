package api

import (
	"bytes"
	"net/http"

	"github.com/okian/httcp/internal/adapters/repository"
)

// CutflowHandler serves the accumulated cutflow and feature histograms.
type CutflowHandler struct {
	deps Dependencies
}

// NewCutflowHandler creates a new cutflow handler.
func NewCutflowHandler(deps Dependencies) *CutflowHandler {
	return &CutflowHandler{deps: deps}
}

// HandleCutflow handles GET /cutflow and GET /cutflow?channel=<name>.
func (h *CutflowHandler) HandleCutflow(w http.ResponseWriter, r *http.Request) {
	const op = "api.cutflow"
	if r.Method != http.MethodGet {
		writeError(w, NewKind(op, ErrMethodNotAllowed))
		return
	}

	snap := h.deps.Cutflow(r.Context())
	name := r.URL.Query().Get("channel")
	if name == "" {
		writeJSON(w, http.StatusOK, snap)
		return
	}
	for _, cf := range snap.Channels {
		if cf.Channel == name {
			writeJSON(w, http.StatusOK, cf)
			return
		}
	}
	writeError(w, WrapKind(op, ErrNotFound, repository.ErrNotFound))
}

// HandleHistograms handles GET /histograms, returning YODA text.
func (h *CutflowHandler) HandleHistograms(w http.ResponseWriter, r *http.Request) {
	const op = "api.histograms"
	if r.Method != http.MethodGet {
		writeError(w, NewKind(op, ErrMethodNotAllowed))
		return
	}
	var buf bytes.Buffer
	if err := h.deps.WriteHistograms(&buf); err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
