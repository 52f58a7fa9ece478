package warehouse

import "github.com/okian/pitwall/pkg/logger"

// Option applies a configuration option to the Warehouse.
type Option func(*Warehouse)

// WithLogger sets the warehouse logger.
func WithLogger(l logger.Logger) Option {
	return func(w *Warehouse) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithTablePrefix prefixes every raw table name, e.g. "raw_" for
// raw_results.
func WithTablePrefix(prefix string) Option {
	return func(w *Warehouse) { w.prefix = prefix }
}

// WithParquetDir registers every *.parquet file in dir as a view on open.
// DuckDB only.
func WithParquetDir(dir string) Option {
	return func(w *Warehouse) { w.parquetDir = dir }
}
