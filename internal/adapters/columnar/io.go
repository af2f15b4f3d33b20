// Package columnar reads event batches from and writes selection results to
// Parquet and Arrow IPC files.
package columnar

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/ipc"
	"github.com/apache/arrow/go/v14/parquet"
	"github.com/apache/arrow/go/v14/parquet/compress"
	"github.com/apache/arrow/go/v14/parquet/file"
	"github.com/apache/arrow/go/v14/parquet/pqarrow"

	"github.com/okian/httcp/internal/domain/model"
)

// Format is an on-disk layout.
type Format string

// Supported formats.
const (
	FormatParquet Format = "parquet"
	FormatIPC     Format = "arrow"
)

// FormatFromPath infers the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet", ".pq":
		return FormatParquet, nil
	case ".arrow", ".ipc", ".arrows":
		return FormatIPC, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
}

// ReadFile reads every event of path as batches of at most the configured
// batch size. Batch IDs are derived from the file name.
func ReadFile(ctx context.Context, path string, ch model.Channel, opts ...Option) ([]*model.Batch, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	prefix := filepath.Base(path)

	switch format {
	case FormatParquet:
		rdr, err := file.OpenParquetFile(path, false)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		defer rdr.Close()
		return readParquet(ctx, rdr, ch, prefix, newOptions(opts))
	default:
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		defer f.Close()
		return ReadIPC(ctx, f, ch, prefix, opts...)
	}
}

// ReadParquet reads a Parquet stream into batches.
func ReadParquet(ctx context.Context, r parquet.ReaderAtSeeker, ch model.Channel, prefix string, opts ...Option) ([]*model.Batch, error) {
	rdr, err := file.NewParquetReader(r)
	if err != nil {
		return nil, fmt.Errorf("parquet reader: %w", err)
	}
	defer rdr.Close()
	return readParquet(ctx, rdr, ch, prefix, newOptions(opts))
}

func readParquet(ctx context.Context, rdr *file.Reader, ch model.Channel, prefix string, o options) ([]*model.Batch, error) {
	fr, err := pqarrow.NewFileReader(rdr, pqarrow.ArrowReadProperties{Parallel: true, BatchSize: o.batchSize}, o.mem)
	if err != nil {
		return nil, fmt.Errorf("arrow reader: %w", err)
	}
	tbl, err := fr.ReadTable(ctx)
	if err != nil {
		return nil, fmt.Errorf("read table: %w", err)
	}
	defer tbl.Release()

	tr := array.NewTableReader(tbl, o.batchSize)
	defer tr.Release()

	var out []*model.Batch
	for tr.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		b, err := FromRecord(tr.Record(), ch, fmt.Sprintf("%s#%d", prefix, len(out)))
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

// ReadIPC reads an Arrow IPC stream into batches, one per record.
func ReadIPC(ctx context.Context, r io.Reader, ch model.Channel, prefix string, opts ...Option) ([]*model.Batch, error) {
	o := newOptions(opts)
	rdr, err := ipc.NewReader(r, ipc.WithAllocator(o.mem))
	if err != nil {
		return nil, fmt.Errorf("ipc reader: %w", err)
	}
	defer rdr.Release()

	var out []*model.Batch
	for rdr.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		b, err := FromRecord(rdr.Record(), ch, fmt.Sprintf("%s#%d", prefix, len(out)))
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if err := rdr.Err(); err != nil {
		return nil, fmt.Errorf("ipc read: %w", err)
	}
	return out, nil
}

// WriteParquet writes records sharing schema to w as Snappy-compressed Parquet.
func WriteParquet(w io.Writer, schema *arrow.Schema, recs ...arrow.Record) error {
	props := parquet.NewWriterProperties(
		parquet.WithCompression(compress.Codecs.Snappy),
		parquet.WithCreatedBy("httcp"),
	)
	fw, err := pqarrow.NewFileWriter(schema, w, props, pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema()))
	if err != nil {
		return fmt.Errorf("parquet writer: %w", err)
	}
	for _, rec := range recs {
		if err := fw.Write(rec); err != nil {
			_ = fw.Close()
			return fmt.Errorf("parquet write: %w", err)
		}
	}
	if err := fw.Close(); err != nil {
		return fmt.Errorf("parquet close: %w", err)
	}
	return nil
}

// WriteIPC writes records sharing schema to w as an Arrow IPC stream.
func WriteIPC(w io.Writer, schema *arrow.Schema, recs ...arrow.Record) error {
	iw := ipc.NewWriter(w, ipc.WithSchema(schema))
	for _, rec := range recs {
		if err := iw.Write(rec); err != nil {
			_ = iw.Close()
			return fmt.Errorf("ipc write: %w", err)
		}
	}
	if err := iw.Close(); err != nil {
		return fmt.Errorf("ipc close: %w", err)
	}
	return nil
}

// WriteFile writes records to path in the format implied by its extension.
func WriteFile(path string, schema *arrow.Schema, recs ...arrow.Record) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	if format == FormatParquet {
		// Closing the Parquet writer also closes f.
		err = WriteParquet(f, schema, recs...)
	} else {
		err = WriteIPC(f, schema, recs...)
	}
	if cerr := f.Close(); err == nil && cerr != nil && !errors.Is(cerr, os.ErrClosed) {
		err = fmt.Errorf("close %s: %w", path, cerr)
	}
	return err
}
