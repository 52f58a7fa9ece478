// Package service wires the warehouse, the feature pipeline, the exporters
// and the published feature store into one build run.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/pitwall/internal/adapters/export"
	workerpool "github.com/okian/pitwall/internal/adapters/mq/worker"
	repository "github.com/okian/pitwall/internal/adapters/repository"
	"github.com/okian/pitwall/internal/domain/aggregate"
	"github.com/okian/pitwall/internal/domain/features"
	"github.com/okian/pitwall/internal/domain/model"
	"github.com/okian/pitwall/internal/domain/split"
	"github.com/okian/pitwall/internal/domain/store"
	"github.com/okian/pitwall/pkg/logger"
	"github.com/okian/pitwall/pkg/metrics"
)

// Stage names reported to metrics and logs.
const (
	StageSchema    = "schema"
	StageLoad      = "load"
	StageStore     = "store"
	StageAggregate = "aggregate"
	StageAssemble  = "assemble"
	StageSplit     = "split"
	StagePersist   = "persist"
)

// Violation kinds reported to metrics when a run aborts.
const (
	violationSchema   = "schema"
	violationOrdering = "ordering"
	violationOther    = "other"
)

// Source supplies the raw tables of one run.
type Source interface {
	CheckSchema(ctx context.Context) error
	LoadResults(ctx context.Context) ([]model.Result, error)
	LoadQualifying(ctx context.Context) ([]model.Qualifying, error)
}

// TableWriter persists the feature table back into a database.
type TableWriter interface {
	WriteFeatures(ctx context.Context, name string, t *features.Table) error
}

// Result describes one successful run.
type Result struct {
	RunID     string
	StartedAt time.Time
	Duration  time.Duration
	Rows      int
	Table     *features.Table
	Stats     []split.Stats
	Files     []string
}

// Service runs the feature build. A Service may be run repeatedly; runs are
// serialized and only a successful run replaces the published snapshot.
type Service struct {
	mu sync.Mutex

	source Source

	window aggregate.Config
	split  *split.Labeler

	workerCount int

	exporter     *export.Exporter
	writeCSV     bool
	writeParquet bool
	writeMeta    bool

	tableWriter TableWriter
	tableName   string

	metricsFile string

	store  *repository.FeatureStore
	now    func() time.Time
	logger logger.Logger

	trainEnd, testStart int
}

// New validates the configuration and returns a Service reading from src.
func New(src Source, opts ...Option) (*Service, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: nil source", ErrInvalidOption)
	}
	s := &Service{
		source:      src,
		window:      aggregate.Config{RecentWidth: DefaultRecentWidth, DNFWidth: DefaultDNFWidth},
		trainEnd:    DefaultTrainEndYear,
		testStart:   DefaultTestStartYear,
		workerCount: runtime.NumCPU(),
		now:         time.Now,
		logger:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.window.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidOption, err)
	}
	l, err := split.New(s.trainEnd, s.testStart)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidOption, err)
	}
	s.split = l
	if s.store == nil {
		s.store = repository.NewFeatureStore(repository.WithLogger(s.logger), repository.WithClock(s.now))
	}
	if s.tableWriter != nil && s.tableName == "" {
		s.tableName = DefaultTableName
	}
	return s, nil
}

// Store returns the feature store successful runs publish into.
func (s *Service) Store() *repository.FeatureStore { return s.store }

// Run performs one build: schema check, load, ordering, aggregation,
// assembly, labeling, persistence and publication. Outputs are staged and
// only moved into the output directory once every writer has succeeded, so
// a failed run leaves the output directory and the published snapshot as
// they were.
func (s *Service) Run(ctx context.Context) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := &Result{RunID: uuid.NewString(), StartedAt: s.now()}
	log := s.logger.With(logger.String("run_id", res.RunID))
	log.Info(ctx, "feature build started",
		logger.Int("recent_width", s.window.RecentWidth),
		logger.Int("dnf_width", s.window.DNFWidth),
		logger.Int("train_end_year", s.split.TrainEnd()),
		logger.Int("test_start_year", s.split.TestStart()),
	)

	err := s.run(ctx, log, res)
	res.Duration = s.now().Sub(res.StartedAt)

	status := metrics.StatusSuccess
	if err != nil {
		status = metrics.StatusFailure
		metrics.RecordViolation(violationKind(err))
		log.Error(ctx, "feature build failed", logger.Error(err), logger.Duration("took", res.Duration))
	}
	metrics.RecordRun(status, float64(res.StartedAt.Unix()), res.Duration.Seconds())
	if s.metricsFile != "" {
		if werr := metrics.WriteTextfile(s.metricsFile); werr != nil {
			log.Warn(ctx, "metrics textfile not written", logger.String("path", s.metricsFile), logger.Error(werr))
		}
	}
	if err != nil {
		return nil, err
	}

	log.Info(ctx, "feature build finished",
		logger.Int("rows", res.Rows),
		logger.Int("files", len(res.Files)),
		logger.Duration("took", res.Duration),
	)
	return res, nil
}

func (s *Service) run(ctx context.Context, log logger.Logger, res *Result) error {
	if err := s.stage(ctx, StageSchema, func() error { return s.source.CheckSchema(ctx) }); err != nil {
		return err
	}

	var (
		results    []model.Result
		qualifying []model.Qualifying
	)
	err := s.stage(ctx, StageLoad, func() error {
		var err error
		if results, err = s.source.LoadResults(ctx); err != nil {
			return err
		}
		qualifying, err = s.source.LoadQualifying(ctx)
		return err
	})
	if err != nil {
		return err
	}

	var st *store.Store
	err = s.stage(ctx, StageStore, func() error {
		var err error
		st, err = store.New(ctx, results, store.WithLogger(log))
		return err
	})
	if err != nil {
		return err
	}

	var aggs *aggregate.Table
	err = s.stage(ctx, StageAggregate, func() error {
		pool := workerpool.NewPool(s.workerCount, workerpool.WithPoolLogger(log))
		agg, err := aggregate.New(s.window, aggregate.WithExecutor(pool), aggregate.WithLogger(log))
		if err != nil {
			return err
		}
		aggs, err = agg.Aggregate(ctx, st)
		return err
	})
	if err != nil {
		return err
	}

	var table *features.Table
	err = s.stage(ctx, StageAssemble, func() error {
		var err error
		table, err = features.NewAssembler(features.WithLogger(log)).Assemble(ctx, st, aggs, qualifying)
		return err
	})
	if err != nil {
		return err
	}

	err = s.stage(ctx, StageSplit, func() error {
		s.split.Apply(table)
		if !split.Ordered(table) {
			return ErrSplitOrder
		}
		res.Stats = split.Summarize(table)
		return nil
	})
	if err != nil {
		return err
	}
	res.Table = table
	res.Rows = table.Len()
	s.report(ctx, log, res.Stats)

	if err := s.stage(ctx, StagePersist, func() error { return s.persist(ctx, res) }); err != nil {
		return err
	}

	s.store.Publish(ctx, res.RunID, table, res.Stats)
	return nil
}

// stage times fn under name.
func (s *Service) stage(ctx context.Context, name string, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	start := s.now()
	err := fn()
	metrics.ObserveStage(name, s.now().Sub(start).Seconds())
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func (s *Service) report(ctx context.Context, log logger.Logger, stats []split.Stats) {
	total := 0
	for _, st := range stats {
		total += st.Rows
		metrics.SetPartitionRows(st.Partition, st.Rows)
		metrics.SetTargetPositiveRate(features.ColumnTargetTop, st.Partition, st.TopRate)
		metrics.SetTargetPositiveRate(features.ColumnTargetDNF, st.Partition, st.DNFRate)
		log.Info(ctx, "partition summary",
			logger.String("partition", st.Partition),
			logger.Int("rows", st.Rows),
			logger.Int("min_season", st.MinSeason),
			logger.Int("max_season", st.MaxSeason),
			logger.Float64("top_rate", st.TopRate),
			logger.Float64("dnf_rate", st.DNFRate),
		)
		if st.Rows == 0 {
			log.Warn(ctx, "empty partition", logger.String("partition", st.Partition))
		}
	}
	metrics.AddFeatureRowsEmitted(total)
}

func (s *Service) persist(ctx context.Context, res *Result) (err error) {
	var staged *export.Exporter
	if s.exporter != nil {
		if staged, err = s.exporter.Stage(); err != nil {
			return err
		}
		defer func() {
			if derr := staged.Discard(); derr != nil {
				s.logger.Warn(ctx, "staging directory not removed", logger.String("dir", staged.Dir()), logger.Error(derr))
			}
		}()
		if err := s.export(ctx, staged, res); err != nil {
			return err
		}
	}
	if s.tableWriter != nil {
		if err := s.tableWriter.WriteFeatures(ctx, s.tableName, res.Table); err != nil {
			return err
		}
	}
	if staged != nil {
		files, err := s.exporter.Commit(ctx, staged, res.Files)
		res.Files = files
		if err != nil {
			return err
		}
	}
	return nil
}

// export writes the enabled file outputs into e and records their paths.
func (s *Service) export(ctx context.Context, e *export.Exporter, res *Result) error {
	if s.writeCSV {
		files, err := e.WriteCSV(ctx, res.Table)
		if err != nil {
			return err
		}
		res.Files = append(res.Files, files...)
	}
	if s.writeParquet {
		file, err := e.WriteParquet(ctx, res.Table)
		if err != nil {
			return err
		}
		res.Files = append(res.Files, file)
	}
	if s.writeMeta {
		m := export.NewManifest(res.RunID, res.StartedAt, res.Rows, res.Stats)
		m.Window.Recent = s.window.RecentWidth
		m.Window.DNF = s.window.DNFWidth
		m.Split.TrainEndYear = s.split.TrainEnd()
		m.Split.TestStartYear = s.split.TestStart()
		file, err := e.WriteManifest(ctx, m, res.Files...)
		if err != nil {
			return err
		}
		res.Files = append(res.Files, file)
	}
	return nil
}

func violationKind(err error) string {
	switch {
	case errors.Is(err, store.ErrSchemaViolation):
		return violationSchema
	case errors.Is(err, store.ErrOrderingViolation):
		return violationOrdering
	default:
		return violationOther
	}
}
