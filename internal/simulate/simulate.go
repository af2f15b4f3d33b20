// Package simulate generates synthetic lepton+tau events.
//
// Events are drawn from a seeded source so a given Config always yields the
// same sample. A configurable share of events carries a back-to-back,
// opposite-sign pair with MET aligned to the light lepton, which passes the
// standard preselection. The rest are random combinatorics.
package simulate

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/google/uuid"

	"github.com/okian/httcp/internal/domain/model"
	"github.com/okian/httcp/internal/domain/types"
)

const (
	electronMass = 0.000511
	muonMass     = 0.10566
	tauMass      = 1.777

	minPt      = 20.0
	meanPtTail = 20.0
	maxEta     = 2.4
)

// Config controls the generated sample.
type Config struct {
	Channel model.Channel
	Seed    uint64
	Run     uint32
	// MaxLeg1 and MaxLeg2 bound the per-event object multiplicity.
	MaxLeg1 int
	MaxLeg2 int
	// SignalFraction is the share of events with a resonant pair.
	SignalFraction float64
	// DuplicateFraction is the share of events that reuse an earlier key.
	DuplicateFraction float64
	// EventsPerLumi sets how often the luminosity block advances.
	EventsPerLumi int
}

// DefaultConfig returns an e-tau sample with 40% signal and no duplicates.
func DefaultConfig() Config {
	return Config{
		Channel:        model.ETau,
		Seed:           1,
		Run:            1,
		MaxLeg1:        3,
		MaxLeg2:        3,
		SignalFraction: 0.4,
		EventsPerLumi:  1000,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.MaxLeg1 < 0 || c.MaxLeg2 < 0 {
		return fmt.Errorf("%w: negative multiplicity", ErrInvalidConfig)
	}
	if c.SignalFraction < 0 || c.SignalFraction > 1 || c.DuplicateFraction < 0 || c.DuplicateFraction > 1 {
		return fmt.Errorf("%w: fractions must be within [0, 1]", ErrInvalidConfig)
	}
	if c.EventsPerLumi < 1 {
		return fmt.Errorf("%w: events per lumi must be positive", ErrInvalidConfig)
	}
	return nil
}

// Generator produces events. It is not safe for concurrent use.
type Generator struct {
	cfg  Config
	rng  *rand.Rand
	next uint64
	keys []model.EventKey
}

// New returns a Generator for cfg.
func New(cfg Config) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Generator{
		cfg: cfg,
		rng: rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
	}, nil
}

// Events returns the next n events in request form.
func (g *Generator) Events(n int) []types.Event {
	out := make([]types.Event, n)
	for i := range out {
		out[i] = g.event()
	}
	return out
}

// Request wraps the next n events in a selection request.
func (g *Generator) Request(n int) *types.SelectRequest {
	return &types.SelectRequest{Channel: g.cfg.Channel.Name, Events: g.Events(n)}
}

// Batch returns the next n events as a batch with a random ID.
func (g *Generator) Batch(n int) (*model.Batch, error) {
	return g.Request(n).Batch(g.cfg.Channel, uuid.NewString())
}

func (g *Generator) event() types.Event {
	key := g.key()
	var ev types.Event
	ev.SetKey(key)

	leg1Mass := electronMass
	if g.cfg.Channel.Leg1.Collection == model.MuTau.Leg1.Collection {
		leg1Mass = muonMass
	}

	if g.rng.Float64() < g.cfg.SignalFraction && g.cfg.MaxLeg1 > 0 && g.cfg.MaxLeg2 > 0 {
		l1, l2, met := g.resonance(leg1Mass)
		ev.Leg1 = append(ev.Leg1, l1)
		ev.Leg2 = append(ev.Leg2, l2)
		ev.MET = met
	} else {
		ev.MET = types.MET{Pt: g.pt(), Phi: g.phi()}
	}
	for n := g.multiplicity(g.cfg.MaxLeg1) - len(ev.Leg1); n > 0; n-- {
		ev.Leg1 = append(ev.Leg1, g.lepton(leg1Mass, g.isolation()))
	}
	for n := g.multiplicity(g.cfg.MaxLeg2) - len(ev.Leg2); n > 0; n-- {
		ev.Leg2 = append(ev.Leg2, g.lepton(tauMass, g.rng.Float64()))
	}
	if ev.Leg1 == nil {
		ev.Leg1 = []types.Lepton{}
	}
	if ev.Leg2 == nil {
		ev.Leg2 = []types.Lepton{}
	}
	return ev
}

func (g *Generator) key() model.EventKey {
	if len(g.keys) > 0 && g.rng.Float64() < g.cfg.DuplicateFraction {
		return g.keys[g.rng.IntN(len(g.keys))]
	}
	g.next++
	k := model.EventKey{
		Run:   g.cfg.Run,
		Lumi:  uint32(g.next/uint64(g.cfg.EventsPerLumi)) + 1,
		Event: g.next,
	}
	g.keys = append(g.keys, k)
	return k
}

// resonance draws a back-to-back opposite-sign pair. MET follows leg1, as
// the neutrinos of a leptonic tau decay do.
func (g *Generator) resonance(leg1Mass float64) (types.Lepton, types.Lepton, types.MET) {
	phi := g.phi()
	charge := int32(1)
	if g.rng.IntN(2) == 0 {
		charge = -1
	}
	l1 := types.Lepton{
		Pt: g.pt() + 10, Eta: g.eta(), Phi: phi, Mass: leg1Mass,
		Charge: charge, Score: g.isolation() / 2,
	}
	l2 := types.Lepton{
		Pt: g.pt() + 10, Eta: g.eta(), Phi: wrap(phi + math.Pi + g.rng.NormFloat64()*0.2), Mass: tauMass,
		Charge: -charge, Score: 0.8 + 0.2*g.rng.Float64(),
	}
	met := types.MET{Pt: 5 + 10*g.rng.Float64(), Phi: wrap(phi + g.rng.NormFloat64()*0.1)}
	return l1, l2, met
}

func (g *Generator) lepton(mass, score float64) types.Lepton {
	charge := int32(1)
	if g.rng.IntN(2) == 0 {
		charge = -1
	}
	return types.Lepton{Pt: g.pt(), Eta: g.eta(), Phi: g.phi(), Mass: mass, Charge: charge, Score: score}
}

func (g *Generator) multiplicity(max int) int {
	if max == 0 {
		return 0
	}
	return g.rng.IntN(max + 1)
}

func (g *Generator) pt() float64        { return minPt + g.rng.ExpFloat64()*meanPtTail }
func (g *Generator) eta() float64       { return (2*g.rng.Float64() - 1) * maxEta }
func (g *Generator) phi() float64       { return (2*g.rng.Float64() - 1) * math.Pi }
func (g *Generator) isolation() float64 { return g.rng.ExpFloat64() * 0.1 }

func wrap(phi float64) float64 {
	return math.Remainder(phi, 2*math.Pi)
}
