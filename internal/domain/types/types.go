// Package types contains the read shapes served over HTTP.
package types

import (
	"time"

	"github.com/okian/pitwall/internal/domain/split"
)

// FeatureRow is one feature row keyed by column name. Null cells are JSON
// null.
type FeatureRow struct {
	ResultID      int64          `json:"result_id"`
	EventID       int64          `json:"race_id"`
	ParticipantID int64          `json:"driver_id"`
	Season        int            `json:"year"`
	Round         int            `json:"round"`
	Split         string         `json:"split"`
	Values        map[string]any `json:"values"`
}

// ParticipantFeatures lists the rows of one participant in race order.
type ParticipantFeatures struct {
	ParticipantID int64        `json:"driver_id"`
	Rows          []FeatureRow `json:"rows"`
}

// EventFeatures lists the rows of one race.
type EventFeatures struct {
	EventID int64        `json:"race_id"`
	Rows    []FeatureRow `json:"rows"`
}

// Column documents one output column.
type Column struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Role     string `json:"role"`
	Nullable bool   `json:"nullable"`
	Doc      string `json:"doc,omitempty"`
}

// Stats summarizes the published table.
type Stats struct {
	RunID       string        `json:"run_id"`
	PublishedAt time.Time     `json:"published_at"`
	Rows        int           `json:"rows"`
	Partitions  []split.Stats `json:"partitions"`
}
