package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/pitwall/internal/domain/features"
	"github.com/okian/pitwall/internal/domain/split"
	"github.com/okian/pitwall/pkg/logger"
	"github.com/okian/pitwall/pkg/metrics"
)

// Snapshot is an immutable, fully built feature table plus lookup indexes.
// Readers holding a Snapshot never observe a later publish.
type Snapshot struct {
	RunID       string
	PublishedAt time.Time
	Table       *features.Table
	Stats       []split.Stats

	byParticipant map[int64][]int
	byEvent       map[int64][]int
}

func newSnapshot(runID string, t *features.Table, stats []split.Stats, now time.Time) *Snapshot {
	s := &Snapshot{
		RunID:         runID,
		PublishedAt:   now,
		Table:         t,
		Stats:         stats,
		byParticipant: make(map[int64][]int),
		byEvent:       make(map[int64][]int),
	}
	for i := range t.Rows {
		r := &t.Rows[i]
		s.byParticipant[r.ParticipantID] = append(s.byParticipant[r.ParticipantID], i)
		s.byEvent[r.EventID] = append(s.byEvent[r.EventID], i)
	}
	return s
}

func (s *Snapshot) rows(idx []int) []features.Row {
	out := make([]features.Row, len(idx))
	for i, j := range idx {
		out[i] = s.Table.Rows[j]
	}
	return out
}

// FeatureStore publishes feature tables by swapping an atomic pointer, so a
// table becomes visible whole or not at all.
type FeatureStore struct {
	snapshot atomic.Pointer[Snapshot]

	// publishMu serializes writers; readers never lock.
	publishMu sync.Mutex
	now       func() time.Time
	logger    logger.Logger
}

// NewFeatureStore creates an empty store.
func NewFeatureStore(opts ...Option) *FeatureStore {
	s := &FeatureStore{now: time.Now, logger: logger.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Publish builds the indexes for t and makes it the current snapshot. The
// table must not be modified afterwards.
func (s *FeatureStore) Publish(ctx context.Context, runID string, t *features.Table, stats []split.Stats) *Snapshot {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	snap := newSnapshot(runID, t, stats, s.now())
	prev := s.snapshot.Swap(snap)

	metrics.UpdatePublishedRows(t.Len())
	fields := []logger.Field{logger.String("run_id", runID), logger.Int("rows", t.Len())}
	if prev != nil {
		fields = append(fields, logger.String("replaced_run_id", prev.RunID))
	}
	s.logger.Info(ctx, "feature table published", fields...)
	return snap
}

// Current implements Store.
func (s *FeatureStore) Current(_ context.Context) (*Snapshot, error) {
	snap := s.snapshot.Load()
	if snap == nil {
		return nil, ErrNotPublished
	}
	return snap, nil
}

// ByParticipant implements Store.
func (s *FeatureStore) ByParticipant(ctx context.Context, participantID int64) ([]features.Row, error) {
	snap, err := s.Current(ctx)
	if err != nil {
		return nil, err
	}
	idx, ok := snap.byParticipant[participantID]
	if !ok {
		return nil, ErrNotFound
	}
	return snap.rows(idx), nil
}

// Row implements Store.
func (s *FeatureStore) Row(ctx context.Context, participantID, eventID int64) (features.Row, error) {
	snap, err := s.Current(ctx)
	if err != nil {
		return features.Row{}, err
	}
	for _, i := range snap.byParticipant[participantID] {
		if snap.Table.Rows[i].EventID == eventID {
			return snap.Table.Rows[i], nil
		}
	}
	return features.Row{}, ErrNotFound
}

// ByEvent implements Store.
func (s *FeatureStore) ByEvent(ctx context.Context, eventID int64) ([]features.Row, error) {
	snap, err := s.Current(ctx)
	if err != nil {
		return nil, err
	}
	idx, ok := snap.byEvent[eventID]
	if !ok {
		return nil, ErrNotFound
	}
	return snap.rows(idx), nil
}

// Count implements Store.
func (s *FeatureStore) Count(_ context.Context) int {
	snap := s.snapshot.Load()
	if snap == nil {
		return 0
	}
	return snap.Table.Len()
}
