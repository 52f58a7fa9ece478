// Package aggregate computes, for every result row and grouping key, the
// trailing-window and all-prior-history statistics over rows that strictly
// precede it. Rows of the same event never precede each other.
package aggregate

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/pitwall/internal/domain/model"
	"github.com/okian/pitwall/internal/domain/store"
	"github.com/okian/pitwall/pkg/logger"
	"github.com/okian/pitwall/pkg/metrics"
)

// Config holds the trailing window widths, counted in prior rows of the key.
type Config struct {
	RecentWidth int
	DNFWidth    int
}

// Validate checks both widths are at least one row.
func (c Config) Validate() error {
	if c.RecentWidth < 1 {
		return fmt.Errorf("%w: recent width %d", ErrInvalidWindow, c.RecentWidth)
	}
	if c.DNFWidth < 1 {
		return fmt.Errorf("%w: dnf width %d", ErrInvalidWindow, c.DNFWidth)
	}
	return nil
}

// Snapshot is the aggregate state of one grouping key just before a row.
type Snapshot struct {
	// Trailing window of RecentWidth rows.
	TopRateRecent       Optional
	DNFRateRecent       Optional
	PointsAvgRecent     Optional
	PositionDeltaRecent Optional

	// Trailing window of DNFWidth rows.
	DNFRateWindow Optional

	// All prior history.
	Count         int
	TopRate       Optional
	DNFRate       Optional
	PointsSum     float64
	Wins          int
	Podiums       int
	PointsAvg     Optional
	PositionDelta Optional
}

// Table holds one Snapshot per row index for every grouping kind.
type Table struct {
	rows   int
	byKind [len(model.KeyKinds)][]Snapshot
}

// NewTable allocates slots for n rows.
func NewTable(n int) *Table {
	t := &Table{rows: n}
	for i := range t.byKind {
		t.byKind[i] = make([]Snapshot, n)
	}
	return t
}

// Len returns the number of rows covered.
func (t *Table) Len() int { return t.rows }

// Get returns the snapshot of row i for kind.
func (t *Table) Get(kind model.KeyKind, i int) Snapshot { return t.byKind[kind][i] }

// slots returns the writable slice for kind.
func (t *Table) slots(kind model.KeyKind) []Snapshot { return t.byKind[kind] }

// ScanFunc scans one partition.
type ScanFunc func(ctx context.Context, p model.Partition) error

// Executor runs a scan over every partition. Partitions are independent, so
// an executor may run them concurrently; each partition must be scanned by
// one goroutine. Execute returns the first scan error.
type Executor interface {
	Execute(ctx context.Context, parts []model.Partition, scan ScanFunc) error
}

// Sequential runs partitions one after another on the calling goroutine.
type Sequential struct{}

// Execute implements Executor.
func (Sequential) Execute(ctx context.Context, parts []model.Partition, scan ScanFunc) error {
	for _, p := range parts {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := scan(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Aggregator computes Snapshots. It is immutable after New.
type Aggregator struct {
	cfg  Config
	exec Executor
	log  logger.Logger
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithExecutor sets how partitions are scheduled.
func WithExecutor(e Executor) Option {
	return func(a *Aggregator) {
		if e != nil {
			a.exec = e
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(a *Aggregator) {
		if l != nil {
			a.log = l
		}
	}
}

// New validates cfg and returns an Aggregator.
func New(cfg Config, opts ...Option) (*Aggregator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	a := &Aggregator{cfg: cfg, exec: Sequential{}, log: logger.Nop()}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Config returns the window configuration.
func (a *Aggregator) Config() Config { return a.cfg }

// Aggregate scans every partition of every grouping kind and returns the
// filled table.
func (a *Aggregator) Aggregate(ctx context.Context, s *store.Store) (*Table, error) {
	start := time.Now()
	t := NewTable(s.Len())
	parts := s.AllPartitions()

	err := a.exec.Execute(ctx, parts, func(ctx context.Context, p model.Partition) error {
		return a.Scan(ctx, s, p, t)
	})
	if err != nil {
		return nil, fmt.Errorf("aggregate: %w", err)
	}

	a.log.Info(ctx, "aggregates computed",
		logger.Int("rows", s.Len()),
		logger.Int("partitions", len(parts)),
		logger.Int("recent_width", a.cfg.RecentWidth),
		logger.Int("dnf_width", a.cfg.DNFWidth),
		logger.Duration("took", time.Since(start)),
	)
	return t, nil
}

// Scan walks one partition in chronological order and writes the snapshot of
// every row into t. Rows of one event are snapshotted together before any of
// them is pushed into the running state. Scan writes only the slots of
// p.Rows, so disjoint partitions may be scanned concurrently.
func (a *Aggregator) Scan(ctx context.Context, s *store.Store, p model.Partition, t *Table) error {
	if t.Len() != s.Len() {
		return fmt.Errorf("%w: table has %d rows, store %d", ErrRowMismatch, t.Len(), s.Len())
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	out := t.slots(p.Kind)
	recent := newWindow(a.cfg.RecentWidth)
	dnf := newWindow(a.cfg.DNFWidth)
	var all career

	for g := 0; g < len(p.Rows); {
		head := s.Row(p.Rows[g])
		h := g + 1
		for h < len(p.Rows) {
			r := s.Row(p.Rows[h])
			if r.Season != head.Season || r.Round != head.Round {
				break
			}
			h++
		}

		snap := snapshot(recent, dnf, &all)
		for _, idx := range p.Rows[g:h] {
			out[idx] = snap
		}
		for _, idx := range p.Rows[g:h] {
			smp := sampleOf(s.Row(idx), s.Outcome(idx))
			recent.push(smp)
			dnf.push(smp)
			all.push(smp)
		}
		g = h
	}

	metrics.RecordPartitionScan()
	return nil
}

func snapshot(recent, dnf *window, all *career) Snapshot {
	return Snapshot{
		TopRateRecent:       recent.topRate(),
		DNFRateRecent:       recent.dnfRate(),
		PointsAvgRecent:     recent.pointsAvg(),
		PositionDeltaRecent: recent.deltaAvg(),
		DNFRateWindow:       dnf.dnfRate(),
		Count:               all.count,
		TopRate:             mean(all.top, all.count),
		DNFRate:             mean(all.dnf, all.count),
		PointsSum:           all.points,
		Wins:                all.wins,
		Podiums:             all.podiums,
		PointsAvg:           mean(all.points, all.count),
		PositionDelta:       mean(all.deltaSum, all.deltaRows),
	}
}
