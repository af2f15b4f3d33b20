package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	service "github.com/okian/httcp/internal/app"
	"github.com/okian/httcp/internal/domain/model"
	"github.com/okian/httcp/internal/domain/types"
)

// SelectHandler handles selection requests.
type SelectHandler struct {
	deps      Dependencies
	maxEvents int
}

// NewSelectHandler creates a new select handler.
func NewSelectHandler(deps Dependencies, maxEvents int) *SelectHandler {
	return &SelectHandler{deps: deps, maxEvents: maxEvents}
}

// HandleSelect handles POST /select requests.
func (h *SelectHandler) HandleSelect(w http.ResponseWriter, r *http.Request) {
	const op = "api.select"
	if r.Method != http.MethodPost {
		writeError(w, NewKind(op, ErrMethodNotAllowed))
		return
	}

	var req types.SelectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	if len(req.Events) > h.maxEvents {
		writeError(w, WrapKind(op, ErrTooLarge, fmt.Errorf("%d events, limit %d", len(req.Events), h.maxEvents)))
		return
	}

	channel := h.deps.Channel()
	if req.Channel != "" && req.Channel != channel {
		writeError(w, WrapKind(op, ErrBadRequest, fmt.Errorf("channel %q is not served, want %q", req.Channel, channel)))
		return
	}
	ch, err := model.ChannelByName(channel)
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}

	batch, err := req.Batch(ch, uuid.NewString())
	if err != nil {
		writeError(w, WrapKind(op, ErrBadRequest, err))
		return
	}

	out, err := h.deps.Select(r.Context(), batch)
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, response(channel, out))
}

func response(channel string, out *service.Outcome) types.SelectResponse {
	res := out.Result
	resp := types.SelectResponse{
		BatchID:  out.BatchID,
		Channel:  channel,
		Selected: res.Selected(),
		Events:   make([]types.EventResult, res.Len()),
		Cutflow:  make([]types.CutStep, len(out.Steps)),
	}
	indices := res.Indices()
	for i := range resp.Events {
		resp.Events[i] = types.EventResult{
			Indices:       indices[i],
			Candidates:    res.Candidates[i],
			Stage:         res.Stages[i].String(),
			Duplicate:     out.Duplicates[i],
			InvariantMass: out.Features.InvariantMass[i],
			DeltaR:        out.Features.DeltaR[i],
		}
	}
	for i, st := range out.Steps {
		resp.Cutflow[i] = types.CutStep{Name: st.Name, Pairs: st.Pairs, Events: st.Events}
	}
	return resp
}
