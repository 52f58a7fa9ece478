package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/okian/pitwall/internal/adapters/export"
	"github.com/okian/pitwall/internal/adapters/http/api"
	"github.com/okian/pitwall/internal/adapters/http/swagger"
	"github.com/okian/pitwall/internal/adapters/warehouse"
	app "github.com/okian/pitwall/internal/app"
	"github.com/okian/pitwall/internal/config"
	"github.com/okian/pitwall/internal/domain/features"
	"github.com/okian/pitwall/pkg/logger"
	"github.com/okian/pitwall/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

// Commands.
const (
	cmdBuild   = "build"
	cmdServe   = "serve"
	cmdInspect = "inspect"
	cmdColumns = "columns"
)

var errUsage = errors.New("usage: pitwall [build|serve|inspect|columns]")

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		os.Stderr.WriteString("pitwall: " + err.Error() + "\n")
		stop()
		os.Exit(1)
	}
}

// run dispatches one command. The default command is build.
func run(ctx context.Context, args []string, out io.Writer) error {
	cmd := cmdBuild
	if len(args) > 0 {
		cmd = args[0]
	}
	if len(args) > 1 {
		return errUsage
	}

	if cmd == cmdColumns {
		return printColumns(out)
	}
	if cmd != cmdBuild && cmd != cmdServe && cmd != cmdInspect {
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		return fmt.Errorf("initialize logging: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	w, err := warehouse.Open(ctx, cfg.Warehouse.Driver, cfg.Warehouse.DSN,
		warehouse.WithLogger(log.Named("warehouse")),
		warehouse.WithTablePrefix(cfg.Warehouse.TablePrefix),
		warehouse.WithParquetDir(cfg.Warehouse.ParquetDir),
	)
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()

	switch cmd {
	case cmdInspect:
		return inspect(ctx, w, out)
	case cmdServe:
		return serve(ctx, cfg, w, log)
	default:
		svc, err := newService(cfg, w, log)
		if err != nil {
			return err
		}
		_, err = svc.Run(ctx)
		return err
	}
}

// newService builds the pipeline service from configuration.
func newService(cfg *config.Config, w *warehouse.Warehouse, log logger.Logger) (*app.Service, error) {
	opts := []app.Option{
		app.WithLogger(log),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithWindows(cfg.Window.Recent, cfg.Window.DNF),
		app.WithSplit(cfg.Split.TrainEndYear, cfg.Split.TestStartYear),
		app.WithMetricsFile(cfg.Output.MetricsFile),
	}
	if cfg.Output.CSV || cfg.Output.Parquet || cfg.Output.Manifest {
		exp := export.New(cfg.Output.Dir, export.WithLogger(log.Named("export")))
		opts = append(opts, app.WithExporter(exp, cfg.Output.CSV, cfg.Output.Parquet, cfg.Output.Manifest))
	}
	if cfg.Output.Table {
		opts = append(opts, app.WithTableWriter(w, app.DefaultTableName))
	}
	return app.New(w, opts...)
}

// serve builds the table once, publishes it and serves the read API until
// ctx is cancelled.
func serve(ctx context.Context, cfg *config.Config, w *warehouse.Warehouse, log logger.Logger) error {
	registerRuntimeCollectors()

	svc, err := newService(cfg, w, log)
	if err != nil {
		return err
	}
	if _, err := svc.Run(ctx); err != nil {
		return err
	}

	// HTTP mux and routes.
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc.Store()).Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}
	log.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
		return err
	}
	log.Info(ctx, "server stopped")
	return nil
}

// registerRuntimeCollectors adds Go runtime and process metrics to the
// registry /healthz serves. Repeated calls are no-ops.
func registerRuntimeCollectors() {
	reg := metrics.GetRegistry()
	for _, c := range []prometheus.Collector{
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				logger.Get().Warn(context.Background(), "collector not registered", logger.Error(err))
			}
		}
	}
}

func inspect(ctx context.Context, w *warehouse.Warehouse, out io.Writer) error {
	tables, err := w.Inspect(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tKIND\tROWS")
	for _, t := range tables {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", t.Name, t.Kind, t.Rows)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	return w.CheckSchema(ctx)
}

func printColumns(out io.Writer) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tTYPE\tROLE\tNULLABLE\tDOC")
	for _, c := range features.Columns() {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%s\n", c.Name, c.Type, c.Role, c.Nullable, c.Doc)
	}
	return tw.Flush()
}
