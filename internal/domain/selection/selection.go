// Package selection chains pair generation, preselection and tie-breaking
// into one call that yields exactly one decision per event.
package selection

import (
	"fmt"

	"github.com/okian/httcp/internal/domain/disambiguate"
	"github.com/okian/httcp/internal/domain/model"
	"github.com/okian/httcp/internal/domain/pairing"
	"github.com/okian/httcp/internal/domain/preselect"
)

// Column names written by the selector.
const (
	ColumnPairIndices = "pair_indices"
	stepsPrefix       = "steps."
)

// Selector runs the lepton pair selection for one channel.
type Selector struct {
	cfg Config
}

// New validates cfg and returns a Selector.
func New(cfg Config) (*Selector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Selector{cfg: cfg}, nil
}

// Config returns the selector configuration.
func (s *Selector) Config() Config {
	return s.cfg
}

// Uses lists the input columns the selector reads.
func (s *Selector) Uses() []string {
	return s.cfg.Channel.Uses()
}

// Produces lists the output columns the selector writes.
func (s *Selector) Produces() []string {
	out := make([]string, 0, len(preselect.CutNames)+1)
	for _, n := range preselect.CutNames {
		out = append(out, stepsPrefix+n)
	}
	return append(out, ColumnPairIndices)
}

// Select returns one decision per event of b. Inputs are not modified.
func (s *Selector) Select(b *model.Batch) (*Result, error) {
	if err := s.check(b); err != nil {
		return nil, err
	}

	table, err := pairing.Cartesian(b.Leg1Indices, b.Leg2Indices, &b.Leg1, &b.Leg2,
		pairing.WithPreSort(s.cfg.PreSortLegs))
	if err != nil {
		return nil, err
	}

	flow, err := preselect.Apply(table, b.MET, s.cfg.Thresholds)
	if err != nil {
		return nil, err
	}

	survivors, err := table.Filter(flow.Final())
	if err != nil {
		return nil, err
	}

	events := b.Len()
	res := &Result{
		Pairs:      make([]pairing.Pair, events),
		Cutflow:    flow,
		Candidates: make([]int, events),
		Stages:     make([]disambiguate.Stage, events),
	}
	var cands []disambiguate.Candidate
	for i := 0; i < events; i++ {
		pairs := survivors.Pairs.Row(i)
		res.Candidates[i] = len(pairs)
		switch len(pairs) {
		case 0:
			res.Pairs[i] = pairing.NoPair
		case 1:
			res.Pairs[i] = pairs[0]
			res.Stages[i] = disambiguate.StageSingle
		default:
			l1, l2 := survivors.Leg1.Row(i), survivors.Leg2.Row(i)
			cands = cands[:0]
			for j := range pairs {
				cands = append(cands, disambiguate.Candidate{
					Leg1Isolation:     l1[j].Isolation,
					Leg1Pt:            l1[j].Pt,
					Leg2Discriminator: l2[j].Discriminator,
					Leg2Pt:            l2[j].Pt,
				})
			}
			best, stage := disambiguate.Best(cands, s.cfg.TieBreak)
			res.Pairs[i] = pairs[best]
			res.Stages[i] = stage
		}
	}
	return res, nil
}

func (s *Selector) check(b *model.Batch) error {
	ch := s.cfg.Channel
	if b.Leg1.Name != "" && b.Leg1.Name != ch.Leg1.Collection {
		return fmt.Errorf("%w: leg1 is %s, channel %s reads %s", ErrChannelMismatch, b.Leg1.Name, ch.Name, ch.Leg1.Collection)
	}
	if b.Leg2.Name != "" && b.Leg2.Name != ch.Leg2.Collection {
		return fmt.Errorf("%w: leg2 is %s, channel %s reads %s", ErrChannelMismatch, b.Leg2.Name, ch.Name, ch.Leg2.Collection)
	}
	if err := b.Validate(); err != nil {
		return fmt.Errorf("%w: %w", pairing.ErrMisaligned, err)
	}
	if err := b.Leg1.Validate(model.FieldIsolation); err != nil {
		return fmt.Errorf("%w: leg1: %w", pairing.ErrMisaligned, err)
	}
	if err := b.Leg2.Validate(model.FieldDiscriminator); err != nil {
		return fmt.Errorf("%w: leg2: %w", pairing.ErrMisaligned, err)
	}
	return nil
}
