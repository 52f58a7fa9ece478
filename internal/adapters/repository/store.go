// Package repository holds the published feature table served to readers.
package repository

import (
	"context"

	"github.com/okian/pitwall/internal/domain/features"
)

// Store provides read access to the latest published feature table.
type Store interface {
	// Current returns the latest snapshot or ErrNotPublished.
	Current(ctx context.Context) (*Snapshot, error)

	// ByParticipant returns every row of a participant in chronological order.
	// Returns ErrNotFound if the participant is unknown.
	ByParticipant(ctx context.Context, participantID int64) ([]features.Row, error)

	// Row returns the row of one participant at one event.
	Row(ctx context.Context, participantID, eventID int64) (features.Row, error)

	// ByEvent returns every row of an event in result id order.
	ByEvent(ctx context.Context, eventID int64) ([]features.Row, error)

	// Count returns the number of rows in the current snapshot.
	Count(ctx context.Context) int
}
