// Package config defines pipeline configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - Load layers a YAML file and PITWALL_* environment variables on top.
// - Validation errors wrap ErrInvalidConfig.
package config

import (
	"context"
	"fmt"
	"runtime"
)

// Supported warehouse drivers.
const (
	DriverDuckDB = "duckdb"
	DriverSQLite = "sqlite"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address for serve mode, e.g. ":9080".
	Addr string `koanf:"addr"`

	// WorkerCount sets the number of partition scan workers.
	WorkerCount int `koanf:"worker_count"`

	Window    WindowConfig    `koanf:"window"`
	Split     SplitConfig     `koanf:"split"`
	Warehouse WarehouseConfig `koanf:"warehouse"`
	Output    OutputConfig    `koanf:"output"`
	Toy       ToyConfig       `koanf:"toy"`
}

// WindowConfig holds the trailing window widths, in prior result rows.
type WindowConfig struct {
	Recent int `koanf:"recent"`
	DNF    int `koanf:"dnf"`
}

// SplitConfig holds the temporal partition boundaries.
// Seasons <= TrainEndYear train, seasons >= TestStartYear test.
type SplitConfig struct {
	TrainEndYear  int `koanf:"train_end_year"`
	TestStartYear int `koanf:"test_start_year"`
}

// WarehouseConfig locates the raw tables.
type WarehouseConfig struct {
	// Driver is duckdb or sqlite.
	Driver string `koanf:"driver"`
	// DSN is the database file; empty opens an in-memory database.
	DSN string `koanf:"dsn"`
	// ParquetDir, when set, registers every *.parquet file in it as a view
	// named TablePrefix+stem. Requires the duckdb driver.
	ParquetDir  string `koanf:"parquet_dir"`
	TablePrefix string `koanf:"table_prefix"`
}

// OutputConfig controls what a build persists.
type OutputConfig struct {
	Dir string `koanf:"dir"`
	// Parquet writes features.parquet through an in-process DuckDB.
	Parquet bool `koanf:"parquet"`
	// CSV writes one features_<partition>.csv per partition.
	CSV bool `koanf:"csv"`
	// Manifest writes manifest.yaml naming every column.
	Manifest bool `koanf:"manifest"`
	// Table writes the feature table back into the warehouse.
	Table bool `koanf:"table"`
	// MetricsFile, when set, receives the metrics registry after each build.
	MetricsFile string `koanf:"metrics_file"`
}

// ToyConfig shapes the synthetic warehouse generated by cmd/toydata.
type ToyConfig struct {
	Path      string `koanf:"path"`
	StartYear int    `koanf:"start_year"`
	Seasons   int    `koanf:"seasons"`
	Rounds    int    `koanf:"rounds"`
	Drivers   int    `koanf:"drivers"`
	Venues    int    `koanf:"venues"`
}

// New creates a Config populated with defaults. Context is accepted first to
// satisfy the project-wide convention and is currently unused.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:    "info",
		LogFormat:   "text",
		Addr:        ":9080",
		WorkerCount: runtime.NumCPU(),
		Window: WindowConfig{
			Recent: 5,
			DNF:    10,
		},
		Split: SplitConfig{
			TrainEndYear:  2016,
			TestStartYear: 2019,
		},
		Warehouse: WarehouseConfig{
			Driver: DriverSQLite,
			DSN:    "data/warehouse.db",
		},
		Output: OutputConfig{
			Dir:         "data/features",
			Parquet:     true,
			CSV:         true,
			Manifest:    true,
			MetricsFile: "data/features/pitwall.prom",
		},
		Toy: ToyConfig{
			Path:      "data/warehouse.db",
			StartYear: 2014,
			Seasons:   7,
			Rounds:    5,
			Drivers:   10,
			Venues:    3,
		},
	}
}

// Validate checks the invariants the pipeline relies on.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.WorkerCount < 1:
		return fmt.Errorf("%w: worker_count must be >= 1, got %d", ErrInvalidConfig, c.WorkerCount)
	case c.Window.Recent < 1:
		return fmt.Errorf("%w: window.recent must be >= 1, got %d", ErrInvalidConfig, c.Window.Recent)
	case c.Window.DNF < 1:
		return fmt.Errorf("%w: window.dnf must be >= 1, got %d", ErrInvalidConfig, c.Window.DNF)
	case c.Split.TrainEndYear >= c.Split.TestStartYear:
		return fmt.Errorf("%w: split.train_end_year %d must be < split.test_start_year %d",
			ErrInvalidConfig, c.Split.TrainEndYear, c.Split.TestStartYear)
	case c.Warehouse.Driver != DriverDuckDB && c.Warehouse.Driver != DriverSQLite:
		return fmt.Errorf("%w: unknown warehouse.driver %q", ErrInvalidConfig, c.Warehouse.Driver)
	case c.Warehouse.ParquetDir != "" && c.Warehouse.Driver != DriverDuckDB:
		return fmt.Errorf("%w: warehouse.parquet_dir requires the duckdb driver", ErrInvalidConfig)
	case c.Output.Dir == "":
		return fmt.Errorf("%w: output.dir must not be empty", ErrInvalidConfig)
	}
	return nil
}
