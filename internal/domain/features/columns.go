package features

import (
	"slices"
	"sync"
)

// ColumnType is the storage type of a column.
type ColumnType int

// Column storage types.
const (
	TypeInt ColumnType = iota
	TypeFloat
	TypeBool
	TypeString
)

func (t ColumnType) String() string {
	switch t {
	case TypeInt:
		return "int"
	case TypeFloat:
		return "float"
	case TypeBool:
		return "bool"
	default:
		return "string"
	}
}

// Role groups columns by how downstream training uses them.
type Role int

// Column roles.
const (
	RoleIdentifier Role = iota
	RoleTarget
	RoleFeature
	RolePartition
)

func (r Role) String() string {
	switch r {
	case RoleIdentifier:
		return "identifier"
	case RoleTarget:
		return "target"
	case RoleFeature:
		return "feature"
	default:
		return "partition"
	}
}

// Column describes one named output column.
type Column struct {
	Name     string
	Type     ColumnType
	Role     Role
	Nullable bool
	Doc      string
	value    func(*Row) any
}

// Target and partition column names.
const (
	ColumnTargetTop = "target_top_10"
	ColumnTargetDNF = "target_dnf"
	ColumnSplit     = "split"
)

func nullable(p *int) any {
	if p == nil {
		return nil
	}
	return int64(*p)
}

func formColumns(prefix, who string, form func(*Row) *KeyForm) []Column {
	return []Column{
		{Name: prefix + "top10_rate_recent", Type: TypeFloat, Role: RoleFeature,
			Doc:   "share of top-10 finishes over the recent window of " + who,
			value: func(r *Row) any { return form(r).TopRateRecent }},
		{Name: prefix + "dnf_rate_recent", Type: TypeFloat, Role: RoleFeature,
			Doc:   "share of non-finishes over the recent window of " + who,
			value: func(r *Row) any { return form(r).DNFRateRecent }},
		{Name: prefix + "avg_points_recent", Type: TypeFloat, Role: RoleFeature,
			Doc:   "mean points over the recent window of " + who,
			value: func(r *Row) any { return form(r).PointsAvgRecent }},
		{Name: prefix + "avg_position_delta_recent", Type: TypeFloat, Role: RoleFeature,
			Doc:   "mean finish order minus grid over the recent window of " + who,
			value: func(r *Row) any { return form(r).PositionDeltaRecent }},
		{Name: prefix + "dnf_rate_dnf_window", Type: TypeFloat, Role: RoleFeature,
			Doc:   "share of non-finishes over the dnf window of " + who,
			value: func(r *Row) any { return form(r).DNFRateWindow }},
	}
}

func careerColumns(prefix, who string, career func(*Row) *Career) []Column {
	return []Column{
		{Name: prefix + "races", Type: TypeInt, Role: RoleFeature,
			Doc:   "prior races of " + who,
			value: func(r *Row) any { return int64(career(r).Races) }},
		{Name: prefix + "top10_rate", Type: TypeFloat, Role: RoleFeature,
			Doc:   "career share of top-10 finishes of " + who,
			value: func(r *Row) any { return career(r).TopRate }},
		{Name: prefix + "dnf_rate", Type: TypeFloat, Role: RoleFeature,
			Doc:   "career share of non-finishes of " + who,
			value: func(r *Row) any { return career(r).DNFRate }},
		{Name: prefix + "points", Type: TypeFloat, Role: RoleFeature,
			Doc:   "career points of " + who,
			value: func(r *Row) any { return career(r).PointsTotal }},
		{Name: prefix + "wins", Type: TypeInt, Role: RoleFeature,
			Doc:   "career wins of " + who,
			value: func(r *Row) any { return int64(career(r).Wins) }},
		{Name: prefix + "podiums", Type: TypeInt, Role: RoleFeature,
			Doc:   "career podiums of " + who,
			value: func(r *Row) any { return int64(career(r).Podiums) }},
	}
}

func buildColumns() []Column {
	cols := []Column{
		{Name: "result_id", Type: TypeInt, Role: RoleIdentifier, value: func(r *Row) any { return r.ResultID }},
		{Name: "race_id", Type: TypeInt, Role: RoleIdentifier, value: func(r *Row) any { return r.EventID }},
		{Name: "driver_id", Type: TypeInt, Role: RoleIdentifier, value: func(r *Row) any { return r.ParticipantID }},
		{Name: "constructor_id", Type: TypeInt, Role: RoleIdentifier, value: func(r *Row) any { return r.TeamID }},
		{Name: "circuit_id", Type: TypeInt, Role: RoleIdentifier, value: func(r *Row) any { return r.VenueID }},
		{Name: "year", Type: TypeInt, Role: RoleIdentifier, value: func(r *Row) any { return int64(r.Season) }},
		{Name: "round", Type: TypeInt, Role: RoleIdentifier, value: func(r *Row) any { return int64(r.Round) }},
		{Name: "race_date", Type: TypeString, Role: RoleIdentifier, Nullable: true, value: func(r *Row) any {
			if r.Date.IsZero() {
				return nil
			}
			return r.Date.Format("2006-01-02")
		}},

		{Name: ColumnTargetTop, Type: TypeBool, Role: RoleTarget,
			Doc:   "finished in the top 10 of this race",
			value: func(r *Row) any { return r.TargetTop }},
		{Name: ColumnTargetDNF, Type: TypeBool, Role: RoleTarget,
			Doc:   "did not finish this race",
			value: func(r *Row) any { return r.TargetDNF }},

		{Name: "grid_position", Type: TypeInt, Role: RoleFeature, Nullable: true,
			Doc:   "starting grid slot",
			value: func(r *Row) any { return nullable(r.Grid) }},
		{Name: "qualifying_position", Type: TypeInt, Role: RoleFeature, Nullable: true,
			Doc:   "qualifying classification",
			value: func(r *Row) any { return nullable(r.QualifyingPosition) }},
		{Name: "qualifying_sessions", Type: TypeInt, Role: RoleFeature, Nullable: true,
			Doc:   "qualifying sessions with a recorded time",
			value: func(r *Row) any { return nullable(r.QualifyingSessions) }},
		{Name: "start_position", Type: TypeInt, Role: RoleFeature, Nullable: true,
			Doc:   "qualifying position, or grid slot when qualifying is missing",
			value: func(r *Row) any { return nullable(r.StartPosition) }},
		{Name: "grid_top_5", Type: TypeBool, Role: RoleFeature,
			Doc:   "grid slot is 5 or better",
			value: func(r *Row) any { return r.GridTop5 }},
		{Name: "grid_top_10", Type: TypeBool, Role: RoleFeature,
			Doc:   "grid slot is 10 or better",
			value: func(r *Row) any { return r.GridTop10 }},
	}

	cols = append(cols, formColumns("driver_", "the driver", func(r *Row) *KeyForm { return &r.Driver })...)
	cols = append(cols, formColumns("driver_circuit_", "the driver at this circuit", func(r *Row) *KeyForm { return &r.DriverVenue })...)
	cols = append(cols, formColumns("constructor_", "the constructor", func(r *Row) *KeyForm { return &r.Team })...)

	cols = append(cols,
		Column{Name: "driver_circuit_races", Type: TypeInt, Role: RoleFeature,
			Doc:   "prior races of the driver at this circuit",
			value: func(r *Row) any { return int64(r.VenueRaces) }},
		Column{Name: "driver_circuit_top10_rate", Type: TypeFloat, Role: RoleFeature,
			Doc:   "all-time share of top-10 finishes of the driver at this circuit",
			value: func(r *Row) any { return r.VenueTopRate }},
		Column{Name: "driver_circuit_dnf_rate", Type: TypeFloat, Role: RoleFeature,
			Doc:   "all-time share of non-finishes of the driver at this circuit",
			value: func(r *Row) any { return r.VenueDNFRate }},
	)

	cols = append(cols, careerColumns("driver_career_", "the driver", func(r *Row) *Career { return &r.DriverCareer })...)
	cols = append(cols, careerColumns("constructor_career_", "the constructor", func(r *Row) *Career { return &r.TeamCareer })...)

	cols = append(cols, Column{Name: ColumnSplit, Type: TypeString, Role: RolePartition,
		Doc:   "temporal partition: train, validation or test",
		value: func(r *Row) any { return r.Split }})
	return cols
}

var columns = sync.OnceValue(buildColumns) //nolint:gochecknoglobals // immutable registry

var columnIndex = sync.OnceValue(func() map[string]int { //nolint:gochecknoglobals // immutable registry
	idx := make(map[string]int)
	for i, c := range columns() {
		idx[c.Name] = i
	}
	return idx
})

// Columns returns a copy of every output column in table order. The set and
// order are fixed and independent of configuration.
func Columns() []Column { return slices.Clone(columns()) }

// ColumnNames returns the names of Columns() in order.
func ColumnNames() []string {
	cols := columns()
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}

func namesByRole(role Role) []string {
	var names []string
	for _, c := range columns() {
		if c.Role == role {
			names = append(names, c.Name)
		}
	}
	return names
}

// FeatureColumns returns the model input columns: everything except
// identifiers, targets and the partition label.
func FeatureColumns() []string { return namesByRole(RoleFeature) }

// TargetColumns returns the label columns.
func TargetColumns() []string { return namesByRole(RoleTarget) }

// IdentifierColumns returns the key columns.
func IdentifierColumns() []string { return namesByRole(RoleIdentifier) }
