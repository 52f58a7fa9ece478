// Package split labels feature rows with a temporal partition by season.
package split

import (
	"fmt"
	"sort"

	"github.com/okian/pitwall/internal/domain/features"
)

// Partition labels, in temporal order.
const (
	Train      = "train"
	Validation = "validation"
	Test       = "test"
)

// Partitions lists the labels in temporal order.
var Partitions = [...]string{Train, Validation, Test} //nolint:gochecknoglobals // fixed set

// Labeler maps a season to its partition. It is immutable after New.
type Labeler struct {
	trainEnd  int
	testStart int
}

// New returns a Labeler: seasons <= trainEnd are train, seasons >= testStart
// are test and anything between is validation. trainEnd must be < testStart.
func New(trainEnd, testStart int) (*Labeler, error) {
	if trainEnd >= testStart {
		return nil, fmt.Errorf("%w: train end %d must be before test start %d", ErrInvalidBoundaries, trainEnd, testStart)
	}
	return &Labeler{trainEnd: trainEnd, testStart: testStart}, nil
}

// TrainEnd returns the last training season.
func (l *Labeler) TrainEnd() int { return l.trainEnd }

// TestStart returns the first test season.
func (l *Labeler) TestStart() int { return l.testStart }

// Label returns the partition of season.
func (l *Labeler) Label(season int) string {
	switch {
	case season <= l.trainEnd:
		return Train
	case season >= l.testStart:
		return Test
	default:
		return Validation
	}
}

// Apply sets the Split field of every row in place. Row order is unchanged.
func (l *Labeler) Apply(t *features.Table) {
	for i := range t.Rows {
		t.Rows[i].Split = l.Label(t.Rows[i].Season)
	}
}

// Stats summarizes one partition.
type Stats struct {
	Partition    string  `json:"partition" yaml:"partition"`
	Rows         int     `json:"rows" yaml:"rows"`
	MinSeason    int     `json:"min_season,omitempty" yaml:"min_season,omitempty"`
	MaxSeason    int     `json:"max_season,omitempty" yaml:"max_season,omitempty"`
	TopPositives int     `json:"top_positives" yaml:"top_positives"`
	TopRate      float64 `json:"top_rate" yaml:"top_rate"`
	DNFPositives int     `json:"dnf_positives" yaml:"dnf_positives"`
	DNFRate      float64 `json:"dnf_rate" yaml:"dnf_rate"`
}

// Summarize returns per-partition row counts, season range and target class
// distribution, in temporal partition order. Empty partitions are included.
func Summarize(t *features.Table) []Stats {
	byName := make(map[string]*Stats, len(Partitions))
	out := make([]Stats, len(Partitions))
	for i, p := range Partitions {
		out[i].Partition = p
		byName[p] = &out[i]
	}

	for i := range t.Rows {
		r := &t.Rows[i]
		st, ok := byName[r.Split]
		if !ok {
			continue
		}
		if st.Rows == 0 || r.Season < st.MinSeason {
			st.MinSeason = r.Season
		}
		if r.Season > st.MaxSeason {
			st.MaxSeason = r.Season
		}
		st.Rows++
		if r.TargetTop {
			st.TopPositives++
		}
		if r.TargetDNF {
			st.DNFPositives++
		}
	}

	for i := range out {
		if out[i].Rows > 0 {
			out[i].TopRate = float64(out[i].TopPositives) / float64(out[i].Rows)
			out[i].DNFRate = float64(out[i].DNFPositives) / float64(out[i].Rows)
		}
	}
	return out
}

// Rows returns the rows of one partition in table order.
func Rows(t *features.Table, partition string) []features.Row {
	var rows []features.Row
	for _, r := range t.Rows {
		if r.Split == partition {
			rows = append(rows, r)
		}
	}
	return rows
}

// Ordered reports whether partitions are monotonic in season across t: no
// season of a later partition precedes a season of an earlier one.
func Ordered(t *features.Table) bool {
	rank := map[string]int{Train: 0, Validation: 1, Test: 2}
	type span struct{ season, rank int }
	spans := make([]span, 0, len(t.Rows))
	for _, r := range t.Rows {
		spans = append(spans, span{r.Season, rank[r.Split]})
	}
	sort.SliceStable(spans, func(i, j int) bool { return spans[i].season < spans[j].season })
	for i := 1; i < len(spans); i++ {
		if spans[i].rank < spans[i-1].rank {
			return false
		}
	}
	return true
}
