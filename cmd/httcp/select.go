package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/memory"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/okian/httcp/internal/adapters/columnar"
	service "github.com/okian/httcp/internal/app"
	"github.com/okian/httcp/internal/domain/model"
	"github.com/okian/httcp/pkg/logger"
)

type selectOptions struct {
	outDir     string
	report     string
	histograms string
	jobs       int
	batchSize  int
}

func newSelectCommand(root *rootOptions) *cobra.Command {
	opts := &selectOptions{}

	cmd := &cobra.Command{
		Use:   "select [flags] FILE...",
		Short: "Select one lepton pair per event from Parquet or Arrow files",
		Long: `Reads NanoAOD-style columns from each input file, runs the pair selection
and writes one result file per input next to --out-dir. The accumulated
cutflow is written as YAML to --report.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSelect(cmd.Context(), root, opts, args, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.outDir, "out-dir", "", "directory for per-file selection results (skipped when empty)")
	cmd.Flags().StringVar(&opts.report, "report", "-", "cutflow report path, - for stdout")
	cmd.Flags().StringVar(&opts.histograms, "histograms", "", "YODA file for the pair feature histograms")
	cmd.Flags().IntVar(&opts.jobs, "jobs", runtime.NumCPU(), "files processed concurrently")
	cmd.Flags().IntVar(&opts.batchSize, "batch-size", 65536, "events read per batch")
	return cmd
}

func runSelect(ctx context.Context, root *rootOptions, opts *selectOptions, files []string, stdout io.Writer) error {
	log := logger.Get()
	cfg := root.cfg

	ch, err := model.ChannelByName(cfg.Channel)
	if err != nil {
		return err
	}
	svc, err := newService(cfg)
	if err != nil {
		return err
	}
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := svc.Stop(stopCtx); err != nil {
			log.Error(stopCtx, "service shutdown failed", logger.Error(err))
		}
	}()

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	if opts.jobs > 0 {
		g.SetLimit(opts.jobs)
	}
	for _, path := range files {
		g.Go(func() error {
			return selectFile(gctx, svc, ch, path, opts)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	log.Info(ctx, "selection finished",
		logger.Int("files", len(files)),
		logger.Duration("took", time.Since(start)),
	)

	if opts.histograms != "" {
		if err := writeTo(opts.histograms, stdout, svc.WriteHistograms); err != nil {
			return fmt.Errorf("write histograms: %w", err)
		}
	}
	return writeTo(opts.report, stdout, func(w io.Writer) error {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(svc.Cutflow(ctx)); err != nil {
			return fmt.Errorf("encode report: %w", err)
		}
		return enc.Close()
	})
}

// selectFile runs every batch of path through svc and writes the results.
func selectFile(ctx context.Context, svc *service.Service, ch model.Channel, path string, opts *selectOptions) error {
	log := logger.Get()
	mem := memory.NewGoAllocator()

	batches, err := columnar.ReadFile(ctx, path, ch, columnar.WithAllocator(mem), columnar.WithBatchSize(opts.batchSize))
	if err != nil {
		return err
	}

	var (
		recs   []arrow.Record
		schema *arrow.Schema
		events int
		picked int
	)
	defer func() {
		for _, r := range recs {
			r.Release()
		}
	}()
	for _, b := range batches {
		out, err := svc.Select(ctx, b)
		if err != nil {
			return fmt.Errorf("%s: batch %s: %w", path, b.ID, err)
		}
		events += b.Len()
		picked += out.Result.Selected()
		if opts.outDir == "" {
			continue
		}
		rec, err := columnar.ResultRecord(mem, ch, b, out.Result, out.Features)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		recs = append(recs, rec)
		schema = rec.Schema()
	}
	log.Info(ctx, "file selected",
		logger.String("path", path),
		logger.Int("batches", len(batches)),
		logger.Int("events", events),
		logger.Int("selected", picked),
	)

	if opts.outDir == "" || schema == nil {
		return nil
	}
	dst := resultPath(opts.outDir, path)
	if err := columnar.WriteFile(dst, schema, recs...); err != nil {
		return fmt.Errorf("write %s: %w", dst, err)
	}
	log.Debug(ctx, "results written", logger.String("path", dst))
	return nil
}

// resultPath maps events.parquet to <dir>/events.pairs.parquet.
func resultPath(dir, input string) string {
	base := filepath.Base(input)
	ext := filepath.Ext(base)
	return filepath.Join(dir, strings.TrimSuffix(base, ext)+".pairs"+ext)
}

// writeTo calls fn on stdout when path is "-" and on a new file otherwise.
func writeTo(path string, stdout io.Writer, fn func(io.Writer) error) error {
	if path == "-" {
		return fn(stdout)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
