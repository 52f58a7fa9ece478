// Package warehouse reads the raw race tables and writes feature tables
// through database/sql. Two drivers are supported: DuckDB, which can expose
// a directory of Parquet files as views, and pure-Go SQLite.
package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/marcboeker/go-duckdb/v2" // registers the "duckdb" driver
	_ "modernc.org/sqlite"                 // registers the "sqlite" driver

	"github.com/okian/pitwall/internal/domain/features"
	"github.com/okian/pitwall/pkg/logger"
)

// Supported driver names, as registered with database/sql.
const (
	DriverDuckDB = "duckdb"
	DriverSQLite = "sqlite"
)

type dialect struct {
	listTables string
	types      map[features.ColumnType]string
}

//nolint:gochecknoglobals // static dialect table
var dialects = map[string]dialect{
	DriverDuckDB: {
		listTables: `SELECT table_name, table_type FROM information_schema.tables
			WHERE table_schema = 'main' ORDER BY table_name`,
		types: map[features.ColumnType]string{
			features.TypeInt:    "BIGINT",
			features.TypeFloat:  "DOUBLE",
			features.TypeBool:   "BOOLEAN",
			features.TypeString: "VARCHAR",
		},
	},
	DriverSQLite: {
		listTables: `SELECT name, type FROM sqlite_master
			WHERE type IN ('table', 'view') AND name NOT LIKE 'sqlite_%' ORDER BY name`,
		types: map[features.ColumnType]string{
			features.TypeInt:    "INTEGER",
			features.TypeFloat:  "REAL",
			features.TypeBool:   "INTEGER",
			features.TypeString: "TEXT",
		},
	},
}

// Warehouse is an open connection to a raw-table warehouse.
type Warehouse struct {
	db      *sql.DB
	driver  string
	dialect dialect

	prefix     string
	parquetDir string
	logger     logger.Logger
}

// Open connects to the warehouse. An empty dsn opens an in-memory database.
// When a parquet directory is configured its files are registered as views
// before Open returns.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (*Warehouse, error) {
	d, ok := dialects[driver]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}

	w := &Warehouse{driver: driver, dialect: d, logger: logger.Nop()}
	for _, opt := range opts {
		opt(w)
	}

	if driver == DriverSQLite && dsn == "" {
		dsn = ":memory:"
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s warehouse: %w", driver, err)
	}
	if driver == DriverSQLite && dsn == ":memory:" {
		// Every SQLite connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s warehouse: %w", driver, err)
	}
	w.db = db

	if w.parquetDir != "" {
		if _, err := w.RegisterParquetViews(ctx, w.parquetDir); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	w.logger.Info(ctx, "warehouse opened", logger.String("driver", driver), logger.String("dsn", dsn))
	return w, nil
}

// DB exposes the underlying handle.
func (w *Warehouse) DB() *sql.DB { return w.db }

// Driver returns the driver name.
func (w *Warehouse) Driver() string { return w.driver }

// Close releases the connection pool.
func (w *Warehouse) Close() error { return w.db.Close() }

// table returns the quoted, prefixed name of a raw table.
func (w *Warehouse) table(name string) string {
	return quoteIdent(w.prefix + name)
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
