package warehouse

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/okian/pitwall/pkg/logger"
)

// RegisterParquetViews creates or replaces one view per *.parquet file in
// dir, named prefix+stem. It returns the view names in file order.
func (w *Warehouse) RegisterParquetViews(ctx context.Context, dir string) ([]string, error) {
	if w.driver != DriverDuckDB {
		return nil, fmt.Errorf("%w: parquet views need %s, have %s", ErrUnsupportedDriver, DriverDuckDB, w.driver)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve parquet dir: %w", err)
	}
	files, err := filepath.Glob(filepath.Join(abs, "*.parquet"))
	if err != nil {
		return nil, fmt.Errorf("list parquet files: %w", err)
	}
	if len(files) == 0 {
		if _, statErr := os.Stat(abs); statErr != nil {
			return nil, fmt.Errorf("%w: parquet dir %s: %w", ErrSchemaViolation, abs, statErr)
		}
		w.logger.Warn(ctx, "no parquet files found", logger.String("dir", abs))
		return nil, nil
	}
	sort.Strings(files)

	views := make([]string, 0, len(files))
	for _, f := range files {
		view := w.prefix + strings.TrimSuffix(filepath.Base(f), ".parquet")
		q := fmt.Sprintf("CREATE OR REPLACE VIEW %s AS SELECT * FROM read_parquet(%s)",
			quoteIdent(view), quoteLiteral(f))
		if _, err := w.db.ExecContext(ctx, q); err != nil {
			return nil, fmt.Errorf("register view %s: %w", view, err)
		}
		views = append(views, view)
	}
	w.logger.Info(ctx, "parquet views registered", logger.Int("views", len(views)), logger.String("dir", abs))
	return views, nil
}

// CopyToParquet writes a table to a Parquet file ordered by the given
// columns. DuckDB only.
func (w *Warehouse) CopyToParquet(ctx context.Context, table, path string, orderBy ...string) error {
	if w.driver != DriverDuckDB {
		return fmt.Errorf("%w: parquet export needs %s, have %s", ErrUnsupportedDriver, DriverDuckDB, w.driver)
	}
	src := "SELECT * FROM " + quoteIdent(table)
	if len(orderBy) > 0 {
		quoted := make([]string, len(orderBy))
		for i, c := range orderBy {
			quoted[i] = quoteIdent(c)
		}
		src += " ORDER BY " + strings.Join(quoted, ", ")
	}
	q := fmt.Sprintf("COPY (%s) TO %s (FORMAT PARQUET)", src, quoteLiteral(path))
	if _, err := w.db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("copy %s to parquet: %w", table, err)
	}
	return nil
}
