// Package types contains the request and response shapes of the selection API.
package types

import (
	"fmt"

	"github.com/okian/httcp/internal/domain/model"
)

// Lepton is one reconstructed object. Score is the isolation for the first
// leg and the tau discriminator for the second.
type Lepton struct {
	Pt     float64 `json:"pt"`
	Eta    float64 `json:"eta"`
	Phi    float64 `json:"phi"`
	Mass   float64 `json:"mass"`
	Charge int32   `json:"charge"`
	Score  float64 `json:"score"`
}

// MET is the missing transverse energy of one event.
type MET struct {
	Pt  float64 `json:"pt"`
	Phi float64 `json:"phi"`
}

// Event is one collision in a selection request. Omitted index lists mean
// every object of that leg is eligible. Run, LuminosityBlock and Event are
// optional; events without them are never treated as duplicates.
type Event struct {
	Run             *uint32  `json:"run,omitempty"`
	LuminosityBlock *uint32  `json:"luminosityBlock,omitempty"`
	Event           *uint64  `json:"event,omitempty"`
	Leg1            []Lepton `json:"leg1"`
	Leg2            []Lepton `json:"leg2"`
	MET             MET      `json:"met"`
	Leg1Indices     []int32  `json:"leg1_indices,omitempty"`
	Leg2Indices     []int32  `json:"leg2_indices,omitempty"`
}

// Key returns the event key. ok is false when the event carries none of
// run, luminosityBlock and event.
func (e *Event) Key() (key model.EventKey, ok bool, err error) {
	if e.Run == nil && e.LuminosityBlock == nil && e.Event == nil {
		return model.EventKey{}, false, nil
	}
	if e.Run == nil || e.Event == nil {
		return model.EventKey{}, false, fmt.Errorf("%w: run and event are both required", ErrInvalidKey)
	}
	key = model.EventKey{Run: *e.Run, Event: *e.Event}
	if e.LuminosityBlock != nil {
		key.Lumi = *e.LuminosityBlock
	}
	return key, true, nil
}

// SetKey fills run, luminosityBlock and event from k.
func (e *Event) SetKey(k model.EventKey) {
	e.Run, e.LuminosityBlock, e.Event = &k.Run, &k.Lumi, &k.Event
}

// SelectRequest is the body of POST /select.
type SelectRequest struct {
	Channel string  `json:"channel,omitempty"`
	Events  []Event `json:"events"`
}

// Batch converts the request into the columnar form used by the selector.
// Either every event carries a key or none does.
func (r *SelectRequest) Batch(ch model.Channel, id string) (*model.Batch, error) {
	b := model.NewBatchBuilder(ch, id, len(r.Events))
	keyed := 0
	for i, ev := range r.Events {
		key, ok, err := ev.Key()
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
		var kp *model.EventKey
		if ok {
			kp = &key
			keyed++
		}
		if keyed != 0 && keyed != i+1 {
			return nil, fmt.Errorf("event %d: %w: events with and without keys in one request", i, ErrInvalidKey)
		}
		if err := checkIndices(ev.Leg1Indices, len(ev.Leg1)); err != nil {
			return nil, fmt.Errorf("event %d leg1: %w", i, err)
		}
		if err := checkIndices(ev.Leg2Indices, len(ev.Leg2)); err != nil {
			return nil, fmt.Errorf("event %d leg2: %w", i, err)
		}
		b.Add(model.Event{
			Key:         kp,
			Leg1:        objects(ev.Leg1, true),
			Leg2:        objects(ev.Leg2, false),
			METPt:       ev.MET.Pt,
			METPhi:      ev.MET.Phi,
			Leg1Indices: ev.Leg1Indices,
			Leg2Indices: ev.Leg2Indices,
		})
	}
	return b.Build(), nil
}

func checkIndices(idx []int32, n int) error {
	for _, i := range idx {
		if int(i) >= n {
			return fmt.Errorf("%w: index %d with %d objects", ErrInvalidIndex, i, n)
		}
	}
	return nil
}

func objects(in []Lepton, isolation bool) []model.Object {
	out := make([]model.Object, len(in))
	for i, l := range in {
		out[i] = model.Object{Pt: l.Pt, Eta: l.Eta, Phi: l.Phi, Mass: l.Mass, Charge: l.Charge}
		if isolation {
			out[i].Isolation = l.Score
		} else {
			out[i].Discriminator = l.Score
		}
	}
	return out
}

// EventResult is the outcome for one event. Indices is empty when no pair
// was selected.
type EventResult struct {
	Indices       []int32 `json:"indices"`
	Candidates    int     `json:"candidates"`
	Stage         string  `json:"stage"`
	Duplicate     bool    `json:"duplicate,omitempty"`
	InvariantMass float64 `json:"hcand_invm"`
	DeltaR        float64 `json:"hcand_dr"`
}

// CutStep is the number of pairs and events left after one cut.
type CutStep struct {
	Name   string `json:"name"`
	Pairs  int64  `json:"pairs"`
	Events int64  `json:"events"`
}

// SelectResponse is the body returned by POST /select.
type SelectResponse struct {
	BatchID  string        `json:"batch_id"`
	Channel  string        `json:"channel"`
	Selected int           `json:"selected"`
	Events   []EventResult `json:"events"`
	Cutflow  []CutStep     `json:"cutflow"`
}

// Stats is the body returned by GET /stats.
type Stats struct {
	Channel       string  `json:"channel"`
	Workers       int     `json:"workers"`
	QueueDepth    int     `json:"queue_depth"`
	QueueCapacity int     `json:"queue_capacity"`
	ChunksDone    int64   `json:"chunks_processed"`
	SeenEvents    int64   `json:"seen_events"`
	HistEntries   int64   `json:"histogram_entries"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}
