// Package features computes observables of the selected lepton pair.
package features

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"go-hep.org/x/hep/hbook"

	"github.com/okian/httcp/internal/domain/model"
	"github.com/okian/httcp/internal/domain/pairing"
	"github.com/okian/httcp/internal/domain/physics"
)

// EmptyFloat fills feature columns of events without a selected pair.
const EmptyFloat = -99999.0

// Column names.
const (
	ColumnInvariantMass = "hcand_invm"
	ColumnDeltaR        = "hcand_dr"
)

// Features holds one value per event.
type Features struct {
	InvariantMass []float64 `json:"hcand_invm"`
	DeltaR        []float64 `json:"hcand_dr"`
}

// Compute derives the pair features for every event of b.
func Compute(b *model.Batch, pairs []pairing.Pair) (*Features, error) {
	if len(pairs) != b.Len() {
		return nil, fmt.Errorf("%w: %d pairs for %d events", pairing.ErrMisaligned, len(pairs), b.Len())
	}
	f := &Features{
		InvariantMass: make([]float64, len(pairs)),
		DeltaR:        make([]float64, len(pairs)),
	}
	for i, p := range pairs {
		if p.Absent() {
			f.InvariantMass[i] = EmptyFloat
			f.DeltaR[i] = EmptyFloat
			continue
		}
		l1, l2 := b.Leg1.Object(i, p.Leg1), b.Leg2.Object(i, p.Leg2)
		f.InvariantMass[i] = physics.InvariantMass(l1, l2)
		f.DeltaR[i] = physics.DeltaR(l1, l2)
	}
	return f, nil
}

// Histograms accumulates feature distributions. It is safe for concurrent use.
type Histograms struct {
	mu            sync.Mutex
	invariantMass *hbook.H1D
	deltaR        *hbook.H1D
}

// NewHistograms returns empty histograms with the standard binning.
func NewHistograms() *Histograms {
	h := &Histograms{
		invariantMass: hbook.NewH1D(50, 0, 250),
		deltaR:        hbook.NewH1D(50, 0, 5),
	}
	h.invariantMass.Annotation()["name"] = ColumnInvariantMass
	h.invariantMass.Annotation()["title"] = "m(l1, l2) [GeV]"
	h.deltaR.Annotation()["name"] = ColumnDeltaR
	h.deltaR.Annotation()["title"] = "dR(l1, l2)"
	return h
}

// Fill adds every non-empty value of f with unit weight.
func (h *Histograms) Fill(f *Features) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := range f.InvariantMass {
		if f.InvariantMass[i] == EmptyFloat {
			continue
		}
		h.invariantMass.Fill(f.InvariantMass[i], 1)
		h.deltaR.Fill(f.DeltaR[i], 1)
	}
}

// Entries returns the number of filled pairs.
func (h *Histograms) Entries() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.invariantMass.Entries()
}

// WriteYODA writes both histograms in YODA text format.
func (h *Histograms) WriteYODA(w io.Writer) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	var buf bytes.Buffer
	for _, hist := range []*hbook.H1D{h.invariantMass, h.deltaR} {
		raw, err := hist.MarshalYODA()
		if err != nil {
			return fmt.Errorf("marshal %v: %w", hist.Name(), err)
		}
		buf.Write(raw)
	}
	_, err := w.Write(buf.Bytes())
	return err
}
