package selection

import (
	"github.com/okian/httcp/internal/domain/disambiguate"
	"github.com/okian/httcp/internal/domain/pairing"
	"github.com/okian/httcp/internal/domain/preselect"
)

// Result is the per-event outcome of Select. Pairs, Candidates and Stages
// have one entry per event; Cutflow masks have the shape of the raw pair
// table.
type Result struct {
	// Pairs holds the selected pair, or pairing.NoPair.
	Pairs []pairing.Pair
	// Cutflow holds one cumulative mask per cut.
	Cutflow preselect.Cutflow
	// Candidates is the number of pairs that passed every cut.
	Candidates []int
	// Stages is the tie-break stage that decided each event.
	Stages []disambiguate.Stage
}

// Len returns the number of events.
func (r *Result) Len() int {
	return len(r.Pairs)
}

// Selected returns the number of events with a pair.
func (r *Result) Selected() int {
	n := 0
	for _, p := range r.Pairs {
		if !p.Absent() {
			n++
		}
	}
	return n
}

// Indices returns the selection as [leg1, leg2] per event, or an empty list
// when no pair was selected.
func (r *Result) Indices() [][]int32 {
	out := make([][]int32, len(r.Pairs))
	for i, p := range r.Pairs {
		if p.Absent() {
			out[i] = []int32{}
			continue
		}
		out[i] = []int32{p.Leg1, p.Leg2}
	}
	return out
}

// Merge concatenates results of consecutive event ranges.
func Merge(parts ...*Result) *Result {
	out := &Result{}
	flows := make([]preselect.Cutflow, 0, len(parts))
	for _, p := range parts {
		out.Pairs = append(out.Pairs, p.Pairs...)
		out.Candidates = append(out.Candidates, p.Candidates...)
		out.Stages = append(out.Stages, p.Stages...)
		flows = append(flows, p.Cutflow)
	}
	out.Cutflow = preselect.Concat(flows...)
	return out
}
