// Package store holds the immutable, chronologically ordered snapshot of
// result rows a run computes over.
package store

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"github.com/okian/pitwall/internal/domain/dedupe"
	"github.com/okian/pitwall/internal/domain/model"
	"github.com/okian/pitwall/internal/domain/outcome"
	"github.com/okian/pitwall/pkg/logger"
)

// Store is the Event Result Store. Rows are sorted by (season, round,
// result id); that order is the only meaning of "preceding".
type Store struct {
	rows     []model.Result
	outcomes []model.Outcome
	events   []model.Event
	log      logger.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for load diagnostics.
func WithLogger(l logger.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// New validates results and builds the ordered snapshot. The input slice is
// not modified. Ordering violations are fatal and name the offending key.
func New(ctx context.Context, results []model.Result, opts ...Option) (*Store, error) {
	s := &Store{log: logger.Nop()}
	for _, opt := range opts {
		opt(s)
	}

	rows := slices.Clone(results)
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Season != b.Season {
			return a.Season < b.Season
		}
		if a.Round != b.Round {
			return a.Round < b.Round
		}
		return a.ResultID < b.ResultID
	})

	if err := validateRows(ctx, rows); err != nil {
		return nil, err
	}
	events, err := orderEvents(rows)
	if err != nil {
		return nil, err
	}

	s.rows = rows
	s.events = events
	s.outcomes = make([]model.Outcome, len(rows))
	for i, r := range rows {
		s.outcomes[i] = outcome.Derive(r)
	}

	s.log.Info(ctx, "result store built",
		logger.Int("rows", len(rows)),
		logger.Int("events", len(events)),
	)
	return s, nil
}

func validateRows(ctx context.Context, rows []model.Result) error {
	entries := dedupe.NewInMemoryDeduper[model.Entry](dedupe.WithCapacity(len(rows)))
	ids := dedupe.NewInMemoryDeduper[int64](dedupe.WithCapacity(len(rows)))
	for _, r := range rows {
		if r.Season <= 0 || r.Round <= 0 {
			return fmt.Errorf("%w: result %d has season %d round %d", ErrSchemaViolation, r.ResultID, r.Season, r.Round)
		}
		if ids.SeenAndRecord(ctx, r.ResultID) {
			return fmt.Errorf("%w: duplicate result id %d", ErrSchemaViolation, r.ResultID)
		}
		e := model.Entry{EventID: r.EventID, ParticipantID: r.ParticipantID}
		if entries.SeenAndRecord(ctx, e) {
			return fmt.Errorf("%w: two result rows for %s", ErrOrderingViolation, e)
		}
	}
	return nil
}

// orderEvents collects distinct events from rows already sorted by
// (season, round) and checks the event invariants.
func orderEvents(rows []model.Result) ([]model.Event, error) {
	type slot struct{ season, round int }
	byID := make(map[int64]model.Event)
	bySlot := make(map[slot]int64)
	var events []model.Event

	for _, r := range rows {
		ev := r.Event()
		if prev, ok := byID[ev.ID]; ok {
			if prev.Season != ev.Season || prev.Round != ev.Round {
				return nil, fmt.Errorf("%w: event %d appears as season %d round %d and season %d round %d",
					ErrOrderingViolation, ev.ID, prev.Season, prev.Round, ev.Season, ev.Round)
			}
			if !prev.Date.Equal(ev.Date) || prev.VenueID != ev.VenueID {
				return nil, fmt.Errorf("%w: event %d rows disagree on date or venue", ErrOrderingViolation, ev.ID)
			}
			continue
		}
		k := slot{ev.Season, ev.Round}
		if other, ok := bySlot[k]; ok {
			return nil, fmt.Errorf("%w: events %d and %d share season %d round %d",
				ErrOrderingViolation, other, ev.ID, ev.Season, ev.Round)
		}
		if n := len(events); n > 0 && !ev.Date.IsZero() && ev.Date.Before(events[n-1].Date) {
			last := events[n-1]
			return nil, fmt.Errorf("%w: event %d (season %d round %d, %s) is dated before event %d (season %d round %d, %s)",
				ErrOrderingViolation, ev.ID, ev.Season, ev.Round, ev.Date.Format("2006-01-02"),
				last.ID, last.Season, last.Round, last.Date.Format("2006-01-02"))
		}
		byID[ev.ID] = ev
		bySlot[k] = ev.ID
		events = append(events, ev)
	}
	return events, nil
}

// Len returns the number of result rows.
func (s *Store) Len() int { return len(s.rows) }

// Row returns the i-th row in chronological order.
func (s *Store) Row(i int) model.Result { return s.rows[i] }

// Outcome returns the derived outcome of the i-th row.
func (s *Store) Outcome(i int) model.Outcome { return s.outcomes[i] }

// Rows returns the ordered rows. Callers must not modify the slice.
func (s *Store) Rows() []model.Result { return s.rows }

// Events returns the distinct events in (season, round) order.
func (s *Store) Events() []model.Event { return s.events }

// Partitions groups row indices by the grouping key of kind. Rows inside a
// partition keep the global order; partitions are sorted by key.
func (s *Store) Partitions(kind model.KeyKind) []model.Partition {
	index := make(map[model.GroupKey]int)
	var parts []model.Partition
	for i, r := range s.rows {
		k := model.KeyOf(kind, r)
		p, ok := index[k]
		if !ok {
			p = len(parts)
			index[k] = p
			parts = append(parts, model.Partition{Kind: kind, Key: k})
		}
		parts[p].Rows = append(parts[p].Rows, i)
	}
	sort.Slice(parts, func(i, j int) bool { return parts[i].Key.Less(parts[j].Key) })
	return parts
}

// AllPartitions returns the partitions of every grouping kind, kind by kind.
func (s *Store) AllPartitions() []model.Partition {
	var all []model.Partition
	for _, kind := range model.KeyKinds {
		all = append(all, s.Partitions(kind)...)
	}
	return all
}
