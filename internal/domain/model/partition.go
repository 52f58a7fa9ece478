package model

import "fmt"

// KeyKind names a grouping dimension for aggregation.
type KeyKind int

// Grouping dimensions.
const (
	KeyParticipant KeyKind = iota
	KeyParticipantVenue
	KeyTeam
)

// KeyKinds lists every grouping dimension in column order.
var KeyKinds = [...]KeyKind{KeyParticipant, KeyParticipantVenue, KeyTeam} //nolint:gochecknoglobals // fixed set

func (k KeyKind) String() string {
	switch k {
	case KeyParticipant:
		return "participant"
	case KeyParticipantVenue:
		return "participant_venue"
	case KeyTeam:
		return "team"
	default:
		return fmt.Sprintf("KeyKind(%d)", int(k))
	}
}

// GroupKey identifies one partition within a KeyKind. Unused fields are zero.
type GroupKey struct {
	Participant int64
	Venue       int64
	Team        int64
}

// KeyOf extracts the grouping key of r for kind.
func KeyOf(kind KeyKind, r Result) GroupKey {
	switch kind {
	case KeyParticipant:
		return GroupKey{Participant: r.ParticipantID}
	case KeyParticipantVenue:
		return GroupKey{Participant: r.ParticipantID, Venue: r.VenueID}
	case KeyTeam:
		return GroupKey{Team: r.TeamID}
	default:
		return GroupKey{}
	}
}

// Less orders keys by participant, then venue, then team.
func (g GroupKey) Less(o GroupKey) bool {
	if g.Participant != o.Participant {
		return g.Participant < o.Participant
	}
	if g.Venue != o.Venue {
		return g.Venue < o.Venue
	}
	return g.Team < o.Team
}

// Partition is the chronologically ordered set of row indices sharing one
// grouping key. It is the unit of work handed to a scan worker.
type Partition struct {
	Kind KeyKind
	Key  GroupKey
	Rows []int
}

func (p Partition) String() string {
	return fmt.Sprintf("%s{participant=%d venue=%d team=%d rows=%d}",
		p.Kind, p.Key.Participant, p.Key.Venue, p.Key.Team, len(p.Rows))
}
