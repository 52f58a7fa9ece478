package service

import (
	"time"

	"github.com/okian/pitwall/internal/adapters/export"
	repository "github.com/okian/pitwall/internal/adapters/repository"
	"github.com/okian/pitwall/pkg/logger"
)

// Defaults used when no option overrides them.
const (
	DefaultRecentWidth   = 5
	DefaultDNFWidth      = 10
	DefaultTrainEndYear  = 2016
	DefaultTestStartYear = 2019
	DefaultTableName     = "features"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWindows sets the recent-form and DNF-rate window widths in rows.
// Widths are validated by New.
func WithWindows(recent, dnf int) Option {
	return func(s *Service) {
		s.window.RecentWidth = recent
		s.window.DNFWidth = dnf
	}
}

// WithSplit sets the last training season and the first test season.
func WithSplit(trainEnd, testStart int) Option {
	return func(s *Service) {
		s.trainEnd = trainEnd
		s.testStart = testStart
	}
}

// WithWorkerCount sets the number of goroutines scanning partitions.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithExporter writes the selected file outputs through e after every
// successful run.
func WithExporter(e *export.Exporter, csv, parquet, manifest bool) Option {
	return func(s *Service) {
		s.exporter = e
		s.writeCSV = csv
		s.writeParquet = parquet
		s.writeMeta = manifest
	}
}

// WithTableWriter writes the feature table into a database table named name.
func WithTableWriter(w TableWriter, name string) Option {
	return func(s *Service) {
		s.tableWriter = w
		s.tableName = name
	}
}

// WithMetricsFile dumps the metrics registry to path after every run.
func WithMetricsFile(path string) Option {
	return func(s *Service) {
		s.metricsFile = path
	}
}

// WithStore publishes into st instead of a private store.
func WithStore(st *repository.FeatureStore) Option {
	return func(s *Service) {
		if st != nil {
			s.store = st
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
