// Package outcome derives the two booleans every result row carries: whether
// the participant reached the top threshold and whether they failed to finish.
package outcome

import (
	"strings"

	"github.com/okian/pitwall/internal/domain/model"
)

const (
	// TopThreshold is the last finishing position that counts as reaching the top.
	TopThreshold = 10

	// StatusFinished is the status of a participant who completed full distance.
	StatusFinished = "Finished"

	lappedPrefix = "+"
)

// DidNotFinish reports whether status is a non-finish. Only "Finished" and
// lapped statuses ("+1 Lap", "+2 Laps", ...) count as finishing; every other
// status, including disqualification, is a non-finish.
func DidNotFinish(status string) bool {
	return status != StatusFinished && !strings.HasPrefix(status, lappedPrefix)
}

// ReachedTop reports whether the ordinal finish position is within
// TopThreshold. Nil is false.
func ReachedTop(finishOrder *int) bool {
	return finishOrder != nil && *finishOrder >= 1 && *finishOrder <= TopThreshold
}

// Ordinal returns the ordinal finish of r: the classification order, or the
// finish position when the order is absent.
func Ordinal(r model.Result) *int {
	if r.FinishOrder != nil {
		return r.FinishOrder
	}
	return r.FinishPosition
}

// Derive computes both outcome booleans for r.
func Derive(r model.Result) model.Outcome {
	return model.Outcome{
		ReachedTop:   ReachedTop(Ordinal(r)),
		DidNotFinish: DidNotFinish(r.Status),
	}
}

// IsWin reports whether the ordinal finish is first.
func IsWin(r model.Result) bool {
	o := Ordinal(r)
	return o != nil && *o == 1
}

// IsPodium reports whether the ordinal finish is in the first three.
func IsPodium(r model.Result) bool {
	o := Ordinal(r)
	return o != nil && *o >= 1 && *o <= 3
}

// PositionDelta returns finish order minus grid. ok is false when the row has
// no ordinal finish or no usable grid slot (nil or <= 0).
func PositionDelta(r model.Result) (delta float64, ok bool) {
	o := Ordinal(r)
	if o == nil || r.Grid == nil || *r.Grid <= 0 {
		return 0, false
	}
	return float64(*o - *r.Grid), true
}
