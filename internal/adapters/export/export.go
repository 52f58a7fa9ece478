// Package export persists a finished feature table to disk: one CSV per
// split partition, a Parquet file of the whole table and a YAML manifest.
// Every file is written to a temporary name and renamed into place.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/okian/pitwall/internal/adapters/warehouse"
	"github.com/okian/pitwall/internal/domain/features"
	"github.com/okian/pitwall/internal/domain/split"
	"github.com/okian/pitwall/pkg/logger"
)

// File names inside the output directory.
const (
	ParquetFile  = "features.parquet"
	ManifestFile = "manifest.yaml"
	csvPattern   = "features_%s.csv"
	stagePattern = ".run-*"
)

const (
	dirPermission  = 0o755
	filePermission = 0o644
)

// CSVFile returns the CSV file name of a partition.
func CSVFile(partition string) string {
	return fmt.Sprintf(csvPattern, partition)
}

// Exporter writes feature tables into one directory.
type Exporter struct {
	dir    string
	logger logger.Logger
}

// New creates an Exporter rooted at dir.
func New(dir string, opts ...Option) *Exporter {
	e := &Exporter{dir: dir, logger: logger.Nop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Dir returns the output directory.
func (e *Exporter) Dir() string { return e.dir }

// WriteCSV writes one file per partition, each with the full header and its
// rows in table order. Partitions without rows still get a header-only file.
// It returns the written paths in partition order.
func (e *Exporter) WriteCSV(ctx context.Context, t *features.Table) ([]string, error) {
	if err := os.MkdirAll(e.dir, dirPermission); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWrite, err)
	}
	paths := make([]string, 0, len(split.Partitions))
	for _, p := range split.Partitions {
		path := filepath.Join(e.dir, CSVFile(p))
		rows := split.Rows(t, p)
		err := e.atomically(path, func(f *os.File) error {
			return writeCSV(f, rows)
		})
		if err != nil {
			return nil, err
		}
		e.logger.Info(ctx, "partition exported", logger.String("partition", p),
			logger.Int("rows", len(rows)), logger.String("path", path))
		paths = append(paths, path)
	}
	return paths, nil
}

func writeCSV(f *os.File, rows []features.Row) error {
	w := csv.NewWriter(f)
	if err := w.Write(features.ColumnNames()); err != nil {
		return err
	}
	record := make([]string, len(features.Columns()))
	for i := range rows {
		for j, v := range rows[i].Values() {
			record[j] = formatCell(v)
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// formatCell renders a cell with the shortest exact representation. Null
// cells are empty.
func formatCell(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}

// WriteParquet stages the table in an in-process DuckDB and copies it to
// features.parquet ordered by (year, round, result_id).
func (e *Exporter) WriteParquet(ctx context.Context, t *features.Table) (string, error) {
	if err := os.MkdirAll(e.dir, dirPermission); err != nil {
		return "", fmt.Errorf("%w: %w", ErrWrite, err)
	}
	w, err := warehouse.Open(ctx, warehouse.DriverDuckDB, "", warehouse.WithLogger(e.logger))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrWrite, err)
	}
	defer func() { _ = w.Close() }()

	const staging = "features"
	if err := w.WriteFeatures(ctx, staging, t); err != nil {
		return "", fmt.Errorf("%w: %w", ErrWrite, err)
	}

	path := filepath.Join(e.dir, ParquetFile)
	tmp := path + ".tmp"
	_ = os.Remove(tmp)
	if err := w.CopyToParquet(ctx, staging, tmp, "year", "round", "result_id"); err != nil {
		return "", fmt.Errorf("%w: %w", ErrWrite, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("%w: %w", ErrWrite, err)
	}
	e.logger.Info(ctx, "parquet exported", logger.Int("rows", t.Len()), logger.String("path", path))
	return path, nil
}

// atomically writes through a temp file in the target directory and renames
// it over path once fill succeeds.
func (e *Exporter) atomically(path string, fill func(*os.File) error) error {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	tmp := f.Name()
	if err := f.Chmod(filePermission); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	if err := fill(f); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("%w: %s: %w", ErrWrite, path, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("%w: %s: %w", ErrWrite, path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("%w: %s: %w", ErrWrite, path, err)
	}
	return nil
}

// Stage returns an Exporter writing into a fresh hidden directory inside
// e's directory. Nothing in e's directory changes until Commit; Discard
// removes the staging directory and whatever it still holds.
func (e *Exporter) Stage() (*Exporter, error) {
	if err := os.MkdirAll(e.dir, dirPermission); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWrite, err)
	}
	dir, err := os.MkdirTemp(e.dir, stagePattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWrite, err)
	}
	return &Exporter{dir: dir, logger: e.logger}, nil
}

// Commit moves files written by staged into e's directory, keeping their
// base names, and returns the new paths in the same order.
func (e *Exporter) Commit(ctx context.Context, staged *Exporter, files []string) ([]string, error) {
	out := make([]string, 0, len(files))
	for _, f := range files {
		dst := filepath.Join(e.dir, filepath.Base(f))
		if err := os.Rename(f, dst); err != nil {
			return out, fmt.Errorf("%w: %s: %w", ErrWrite, dst, err)
		}
		out = append(out, dst)
	}
	e.logger.Info(ctx, "outputs committed", logger.Int("files", len(out)), logger.String("dir", e.dir))
	return out, nil
}

// Discard removes the staging directory of an Exporter returned by Stage.
func (e *Exporter) Discard() error {
	return os.RemoveAll(e.dir)
}
