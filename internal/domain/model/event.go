// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"time"
)

// Event is one race instance. (Season, Round) orders events and agrees
// with Date; no two events share it.
type Event struct {
	ID      int64
	Season  int
	Round   int
	VenueID int64
	Date    time.Time
}

// Result is one (event, participant) row with the event fields denormalized.
// FinishPosition is nil iff the participant did not finish.
type Result struct {
	ResultID      int64
	EventID       int64
	ParticipantID int64
	TeamID        int64
	VenueID       int64
	Season        int
	Round         int
	Date          time.Time

	Grid               *int // starting slot; nil or <= 0 means pit lane / unknown
	QualifyingPosition *int
	FinishPosition     *int
	FinishOrder        *int // classification order, present for every starter
	Status             string
	Points             float64
}

// Event returns the event fields carried by the row.
func (r Result) Event() Event {
	return Event{ID: r.EventID, Season: r.Season, Round: r.Round, VenueID: r.VenueID, Date: r.Date}
}

// Qualifying is the qualifying-session record paired with a result.
// Q1..Q3 hold lap times as text; empty means the session was not reached.
type Qualifying struct {
	EventID       int64
	ParticipantID int64
	TeamID        int64
	Position      *int
	Q1, Q2, Q3    string
}

// Sessions counts the qualifying sessions with a recorded time.
func (q Qualifying) Sessions() int {
	n := 0
	for _, t := range [...]string{q.Q1, q.Q2, q.Q3} {
		if t != "" {
			n++
		}
	}
	return n
}

// Outcome holds the two booleans derived from a result row. They are the
// training labels of the row itself and aggregation inputs for later rows.
type Outcome struct {
	ReachedTop   bool
	DidNotFinish bool
}

// Entry pairs an (event, participant) identity; used as a map key.
type Entry struct {
	EventID       int64
	ParticipantID int64
}

func (e Entry) String() string {
	return fmt.Sprintf("event=%d participant=%d", e.EventID, e.ParticipantID)
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int { return &v }
