// Package features assembles one flat, fully resolved feature row per
// result row from the store, the aggregate table and qualifying records.
package features

import (
	"time"
)

// KeyForm holds the resolved trailing-window metrics of one grouping key.
type KeyForm struct {
	TopRateRecent       float64
	DNFRateRecent       float64
	PointsAvgRecent     float64
	PositionDeltaRecent float64
	DNFRateWindow       float64
}

// Career holds the resolved all-prior-history metrics of an entity.
type Career struct {
	Races       int
	TopRate     float64
	DNFRate     float64
	PointsTotal float64
	Wins        int
	Podiums     int
}

// Row is one (event, participant) feature row. Every aggregate is resolved;
// only same-event side info may be null.
type Row struct {
	// Identifiers.
	ResultID      int64
	EventID       int64
	ParticipantID int64
	TeamID        int64
	VenueID       int64
	Season        int
	Round         int
	Date          time.Time

	// Labels of this row's own event. Never inputs to any aggregate of it.
	TargetTop bool
	TargetDNF bool

	// Same-event side info known before the start.
	Grid               *int
	QualifyingPosition *int
	QualifyingSessions *int
	StartPosition      *int
	GridTop5           bool
	GridTop10          bool

	// Trailing windows per grouping key.
	Driver      KeyForm
	DriverVenue KeyForm
	Team        KeyForm

	// All-time participant record at this venue.
	VenueRaces   int
	VenueTopRate float64
	VenueDNFRate float64

	DriverCareer Career
	TeamCareer   Career

	// Split is the temporal partition label, set by the split labeler.
	Split string
}

// Values returns the row's cells in Columns() order. Null cells are nil.
func (r *Row) Values() []any {
	cols := columns()
	out := make([]any, len(cols))
	for i, c := range cols {
		out[i] = c.value(r)
	}
	return out
}

// Value returns the cell of the named column.
func (r *Row) Value(name string) (any, bool) {
	c, ok := columnIndex()[name]
	if !ok {
		return nil, false
	}
	return columns()[c].value(r), true
}
