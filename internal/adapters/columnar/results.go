package columnar

import (
	"fmt"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/memory"

	"github.com/okian/httcp/internal/domain/features"
	"github.com/okian/httcp/internal/domain/model"
	"github.com/okian/httcp/internal/domain/ragged"
	"github.com/okian/httcp/internal/domain/selection"
)

// Result columns besides the produced step masks and features.
const (
	ColumnCandidates = "pair_candidates"
	ColumnStage      = "pair_stage"
)

// ResultSchema returns the schema written by ResultRecord for the given
// step names.
func ResultSchema(ch model.Channel, steps []string) *arrow.Schema {
	fields := []arrow.Field{
		{Name: ColumnRun, Type: arrow.PrimitiveTypes.Uint32},
		{Name: ColumnLumi, Type: arrow.PrimitiveTypes.Uint32},
		{Name: ColumnEvent, Type: arrow.PrimitiveTypes.Uint64},
		{Name: selection.ColumnPairIndices, Type: arrow.ListOf(arrow.PrimitiveTypes.Int32)},
		{Name: ColumnCandidates, Type: arrow.PrimitiveTypes.Int32},
		{Name: ColumnStage, Type: arrow.BinaryTypes.String},
		{Name: features.ColumnInvariantMass, Type: arrow.PrimitiveTypes.Float64},
		{Name: features.ColumnDeltaR, Type: arrow.PrimitiveTypes.Float64},
	}
	for _, s := range steps {
		fields = append(fields, arrow.Field{Name: "steps." + s, Type: arrow.ListOf(arrow.FixedWidthTypes.Boolean)})
	}
	md := arrow.NewMetadata([]string{MetadataChannel}, []string{ch.Name})
	return arrow.NewSchema(fields, &md)
}

// ResultRecord encodes the selection of b: one row per event with the
// selected indices, features and the per-pair cumulative step masks.
// Events without keys are written with zero run, lumi and event.
func ResultRecord(mem memory.Allocator, ch model.Channel, b *model.Batch, res *selection.Result, f *features.Features) (arrow.Record, error) {
	n := res.Len()
	if n != b.Len() || len(f.InvariantMass) != n {
		return nil, fmt.Errorf("result has %d events, features %d, batch %d", n, len(f.InvariantMass), b.Len())
	}

	run := array.NewUint32Builder(mem)
	defer run.Release()
	lumi := array.NewUint32Builder(mem)
	defer lumi.Release()
	event := array.NewUint64Builder(mem)
	defer event.Release()
	cands := array.NewInt32Builder(mem)
	defer cands.Release()
	stage := array.NewStringBuilder(mem)
	defer stage.Release()

	for i := 0; i < n; i++ {
		var k model.EventKey
		if b.Keys != nil {
			k = b.Keys[i]
		}
		run.Append(k.Run)
		lumi.Append(k.Lumi)
		event.Append(k.Event)
		cands.Append(int32(res.Candidates[i]))
		stage.Append(res.Stages[i].String())
	}

	cols := []arrow.Array{
		run.NewArray(),
		lumi.NewArray(),
		event.NewArray(),
		buildInt32List(mem, ragged.FromRows(res.Indices())),
		cands.NewArray(),
		stage.NewArray(),
		buildFloats(mem, f.InvariantMass),
		buildFloats(mem, f.DeltaR),
	}
	for _, s := range res.Cutflow {
		cols = append(cols, buildBoolList(mem, s.Mask))
	}
	defer releaseAll(cols)

	return array.NewRecord(ResultSchema(ch, res.Cutflow.Names()), cols, int64(n)), nil
}
