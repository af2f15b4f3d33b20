package columnar

import (
	"fmt"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/memory"

	"github.com/okian/httcp/internal/domain/model"
	"github.com/okian/httcp/internal/domain/ragged"
)

// FromRecord decodes one record of NanoAOD-like branches into a batch.
//
// Each leg reads <Collection>_pt, _eta, _phi, _mass, _charge and
// <Collection>_<ScoreColumn> as list columns, MET_pt and MET_phi as scalar
// columns. run, luminosityBlock and event are optional; without them the
// batch has no event keys. leg1_indices and leg2_indices are optional; without
// them every object is eligible.
func FromRecord(rec arrow.Record, ch model.Channel, id string) (*model.Batch, error) {
	leg1, err := readCollection(rec, ch.Leg1, true)
	if err != nil {
		return nil, err
	}
	leg2, err := readCollection(rec, ch.Leg2, false)
	if err != nil {
		return nil, err
	}

	b := &model.Batch{ID: id, Leg1: leg1, Leg2: leg2}
	if b.MET.Pt, err = scalarFloats(rec, ColumnMETPt); err != nil {
		return nil, err
	}
	if b.MET.Phi, err = scalarFloats(rec, ColumnMETPhi); err != nil {
		return nil, err
	}
	if b.Keys, err = readKeys(rec); err != nil {
		return nil, err
	}
	if b.Leg1Indices, err = indices(rec, ColumnLeg1Indices, &b.Leg1); err != nil {
		return nil, err
	}
	if b.Leg2Indices, err = indices(rec, ColumnLeg2Indices, &b.Leg2); err != nil {
		return nil, err
	}
	return b, nil
}

func readCollection(rec arrow.Record, leg model.LegSpec, isolation bool) (model.Collection, error) {
	c := model.Collection{Name: leg.Collection}
	var err error
	for _, f := range []struct {
		field model.Field
		dst   *ragged.Array[float64]
	}{
		{model.FieldPt, &c.Pt},
		{model.FieldEta, &c.Eta},
		{model.FieldPhi, &c.Phi},
		{model.FieldMass, &c.Mass},
	} {
		if *f.dst, err = floatList(rec, column(leg.Collection, f.field)); err != nil {
			return c, err
		}
	}
	if c.Charge, err = int32List(rec, column(leg.Collection, model.FieldCharge)); err != nil {
		return c, err
	}
	score, err := floatList(rec, leg.Collection+"_"+leg.ScoreColumn)
	if err != nil {
		return c, err
	}
	if isolation {
		c.Isolation = score
	} else {
		c.Discriminator = score
	}
	return c, nil
}

func scalarFloats(rec arrow.Record, name string) ([]float64, error) {
	col, err := require(rec, name)
	if err != nil {
		return nil, err
	}
	out, err := floats(col)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

func readKeys(rec arrow.Record) ([]model.EventKey, error) {
	cols := [3][]int64{}
	for i, name := range []string{ColumnRun, ColumnLumi, ColumnEvent} {
		col, ok := lookup(rec, name)
		if !ok {
			return nil, nil
		}
		v, err := ints(col)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		cols[i] = v
	}
	keys := make([]model.EventKey, rec.NumRows())
	for i := range keys {
		keys[i] = model.EventKey{Run: uint32(cols[0][i]), Lumi: uint32(cols[1][i]), Event: uint64(cols[2][i])}
	}
	return keys, nil
}

func indices(rec arrow.Record, name string, c *model.Collection) (ragged.Array[int32], error) {
	if _, ok := lookup(rec, name); !ok {
		return model.AllIndices(c), nil
	}
	return int32List(rec, name)
}

// EventsSchema returns the schema written by EventsRecord for channel ch.
func EventsSchema(ch model.Channel) *arrow.Schema {
	fields := []arrow.Field{
		{Name: ColumnRun, Type: arrow.PrimitiveTypes.Uint32},
		{Name: ColumnLumi, Type: arrow.PrimitiveTypes.Uint32},
		{Name: ColumnEvent, Type: arrow.PrimitiveTypes.Uint64},
	}
	for _, leg := range []model.LegSpec{ch.Leg1, ch.Leg2} {
		for _, f := range []model.Field{model.FieldPt, model.FieldEta, model.FieldPhi, model.FieldMass} {
			fields = append(fields, arrow.Field{Name: column(leg.Collection, f), Type: arrow.ListOf(arrow.PrimitiveTypes.Float64)})
		}
		fields = append(fields,
			arrow.Field{Name: column(leg.Collection, model.FieldCharge), Type: arrow.ListOf(arrow.PrimitiveTypes.Int32)},
			arrow.Field{Name: leg.Collection + "_" + leg.ScoreColumn, Type: arrow.ListOf(arrow.PrimitiveTypes.Float64)},
		)
	}
	fields = append(fields,
		arrow.Field{Name: ColumnMETPt, Type: arrow.PrimitiveTypes.Float64},
		arrow.Field{Name: ColumnMETPhi, Type: arrow.PrimitiveTypes.Float64},
		arrow.Field{Name: ColumnLeg1Indices, Type: arrow.ListOf(arrow.PrimitiveTypes.Int32)},
		arrow.Field{Name: ColumnLeg2Indices, Type: arrow.ListOf(arrow.PrimitiveTypes.Int32)},
	)
	md := arrow.NewMetadata([]string{MetadataChannel}, []string{ch.Name})
	return arrow.NewSchema(fields, &md)
}

// EventsRecord encodes b in the layout read by FromRecord. The batch must
// carry event keys and both scores.
func EventsRecord(mem memory.Allocator, b *model.Batch, ch model.Channel) (arrow.Record, error) {
	if len(b.Keys) != b.Len() {
		return nil, fmt.Errorf("%w: %d event keys for %d events", ErrMissingColumn, len(b.Keys), b.Len())
	}
	if b.Leg1.Isolation.IsZero() || b.Leg2.Discriminator.IsZero() {
		return nil, fmt.Errorf("%w: batch has no leg scores", ErrMissingColumn)
	}

	run := array.NewUint32Builder(mem)
	defer run.Release()
	lumi := array.NewUint32Builder(mem)
	defer lumi.Release()
	event := array.NewUint64Builder(mem)
	defer event.Release()
	for _, k := range b.Keys {
		run.Append(k.Run)
		lumi.Append(k.Lumi)
		event.Append(k.Event)
	}

	cols := []arrow.Array{run.NewArray(), lumi.NewArray(), event.NewArray()}
	for _, leg := range []struct {
		c     *model.Collection
		score ragged.Array[float64]
	}{
		{&b.Leg1, b.Leg1.Isolation},
		{&b.Leg2, b.Leg2.Discriminator},
	} {
		cols = append(cols,
			buildFloatList(mem, leg.c.Pt),
			buildFloatList(mem, leg.c.Eta),
			buildFloatList(mem, leg.c.Phi),
			buildFloatList(mem, leg.c.Mass),
			buildInt32List(mem, leg.c.Charge),
			buildFloatList(mem, leg.score),
		)
	}
	cols = append(cols,
		buildFloats(mem, b.MET.Pt),
		buildFloats(mem, b.MET.Phi),
		buildInt32List(mem, b.Leg1Indices),
		buildInt32List(mem, b.Leg2Indices),
	)
	defer releaseAll(cols)

	return array.NewRecord(EventsSchema(ch), cols, int64(b.Len())), nil
}
