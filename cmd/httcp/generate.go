package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/memory"
	"github.com/spf13/cobra"

	"github.com/okian/httcp/internal/adapters/columnar"
	"github.com/okian/httcp/internal/domain/model"
	"github.com/okian/httcp/internal/simulate"
	"github.com/okian/httcp/pkg/logger"
)

type generateOptions struct {
	events    int
	batchSize int
	out       string
	sim       simulate.Config
}

func newGenerateCommand(root *rootOptions) *cobra.Command {
	opts := &generateOptions{sim: simulate.DefaultConfig()}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a synthetic event sample",
		Long: `Generates events with a resonant opposite-sign pair in a configurable share
of them. The output format follows the --out extension: .parquet and .arrow
write columnar files readable by "select", .json writes a /select request
body and - writes that request to stdout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGenerate(cmd.Context(), root, opts, cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.IntVar(&opts.events, "events", 10000, "number of events")
	f.IntVar(&opts.batchSize, "batch-size", 65536, "events per written record batch")
	f.StringVar(&opts.out, "out", "-", "output path (.parquet, .arrow, .json or -)")
	f.Uint64Var(&opts.sim.Seed, "seed", opts.sim.Seed, "random seed")
	f.Uint32Var(&opts.sim.Run, "run", opts.sim.Run, "run number of the generated events")
	f.IntVar(&opts.sim.MaxLeg1, "max-leg1", opts.sim.MaxLeg1, "maximum leg1 objects per event")
	f.IntVar(&opts.sim.MaxLeg2, "max-leg2", opts.sim.MaxLeg2, "maximum leg2 objects per event")
	f.Float64Var(&opts.sim.SignalFraction, "signal-fraction", opts.sim.SignalFraction, "share of events with a resonant pair")
	f.Float64Var(&opts.sim.DuplicateFraction, "duplicate-fraction", opts.sim.DuplicateFraction, "share of events reusing an earlier event key")
	return cmd
}

func runGenerate(ctx context.Context, root *rootOptions, opts *generateOptions, stdout io.Writer) error {
	if opts.events < 0 {
		return fmt.Errorf("events must not be negative, got %d", opts.events)
	}
	if opts.batchSize < 1 {
		return fmt.Errorf("batch-size must be positive, got %d", opts.batchSize)
	}
	ch, err := model.ChannelByName(root.cfg.Channel)
	if err != nil {
		return err
	}
	cfg := opts.sim
	cfg.Channel = ch
	gen, err := simulate.New(cfg)
	if err != nil {
		return err
	}

	if opts.out == "-" || strings.EqualFold(filepath.Ext(opts.out), ".json") {
		err = writeTo(opts.out, stdout, func(w io.Writer) error {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(gen.Request(opts.events))
		})
	} else {
		err = writeColumnar(gen, ch, opts)
	}
	if err != nil {
		return err
	}

	logger.Get().Info(ctx, "sample generated",
		logger.String("channel", ch.Name),
		logger.Int("events", opts.events),
		logger.String("out", opts.out),
	)
	return nil
}

func writeColumnar(gen *simulate.Generator, ch model.Channel, opts *generateOptions) error {
	if _, err := columnar.FormatFromPath(opts.out); err != nil {
		return err
	}
	mem := memory.NewGoAllocator()

	var recs []arrow.Record
	defer func() {
		for _, r := range recs {
			r.Release()
		}
	}()
	for done := 0; done < opts.events; {
		n := min(opts.batchSize, opts.events-done)
		b, err := gen.Batch(n)
		if err != nil {
			return err
		}
		rec, err := columnar.EventsRecord(mem, b, ch)
		if err != nil {
			return err
		}
		recs = append(recs, rec)
		done += n
	}
	return columnar.WriteFile(opts.out, columnar.EventsSchema(ch), recs...)
}
