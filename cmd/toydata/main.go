// Command toydata writes a small synthetic racing warehouse for local runs
// and tests.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/okian/pitwall/internal/adapters/warehouse"
	"github.com/okian/pitwall/internal/config"
	"github.com/okian/pitwall/internal/toydata"
	"github.com/okian/pitwall/pkg/logger"
)

const dirPermission = 0o755

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		os.Stderr.WriteString("toydata: " + err.Error() + "\n")
		stop()
		os.Exit(1)
	}
}

// run parses flags on top of the toy.* configuration and writes the dataset.
func run(ctx context.Context, args []string, usage io.Writer) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	fs := flag.NewFlagSet("toydata", flag.ContinueOnError)
	fs.SetOutput(usage)
	var (
		path      = fs.String("path", cfg.Toy.Path, "warehouse file to write; empty writes nothing to disk")
		driver    = fs.String("driver", cfg.Warehouse.Driver, "warehouse driver: duckdb or sqlite")
		prefix    = fs.String("prefix", cfg.Warehouse.TablePrefix, "table name prefix")
		parquet   = fs.String("parquet", "", "also export every table as <dir>/<table>.parquet (duckdb only)")
		startYear = fs.Int("start-year", cfg.Toy.StartYear, "first season")
		seasons   = fs.Int("seasons", cfg.Toy.Seasons, "number of seasons")
		rounds    = fs.Int("rounds", cfg.Toy.Rounds, "races per season")
		drivers   = fs.Int("drivers", cfg.Toy.Drivers, "drivers per race")
		venues    = fs.Int("venues", cfg.Toy.Venues, "number of circuits")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		return fmt.Errorf("initialize logging: %w", err)
	}
	_ = logger.SetLevelString(cfg.LogLevel)
	log := logger.Named("toydata")

	d, err := toydata.Generate(toydata.Config{
		StartYear: *startYear,
		Seasons:   *seasons,
		Rounds:    *rounds,
		Drivers:   *drivers,
		Venues:    *venues,
	})
	if err != nil {
		return err
	}

	if dir := filepath.Dir(*path); *path != "" && dir != "." {
		if err := os.MkdirAll(dir, dirPermission); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	w, err := warehouse.Open(ctx, *driver, *path, warehouse.WithLogger(log), warehouse.WithTablePrefix(*prefix))
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()

	if err := d.Write(ctx, w.DB(), *prefix, toydata.WithLogger(log)); err != nil {
		return err
	}
	if err := w.CheckSchema(ctx); err != nil {
		return err
	}

	if *parquet != "" {
		if err := os.MkdirAll(*parquet, dirPermission); err != nil {
			return fmt.Errorf("create %s: %w", *parquet, err)
		}
		for _, t := range d.Tables {
			out := filepath.Join(*parquet, t.Name+".parquet")
			if err := w.CopyToParquet(ctx, *prefix+t.Name, out); err != nil {
				return err
			}
		}
		log.Info(ctx, "toy parquet files written", logger.String("dir", *parquet), logger.Int("tables", len(d.Tables)))
	}

	log.Info(ctx, "toy warehouse written",
		logger.String("path", *path),
		logger.String("driver", *driver),
		logger.Int("seasons", *seasons),
		logger.Int("rounds", *rounds),
		logger.Int("drivers", *drivers),
	)
	return nil
}
