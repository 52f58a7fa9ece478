// Package toydata generates a small, fully deterministic race warehouse for
// local runs and tests. The shape mirrors the public race dataset: races,
// drivers, constructors, circuits, status, qualifying, results and seasons.
package toydata

import (
	"fmt"
	"strconv"
)

// Status ids written to the status table.
const (
	StatusFinished  = 1
	StatusPlusOne   = 2
	StatusAccident  = 3
	StatusCollision = 4
	StatusEngine    = 5
)

// Generation constants.
const (
	driversPerTeam   = 2
	maxRounds        = 12 // race dates are the 15th of month <round>
	dnfMinSlot       = 8  // only slots beyond this can retire
	dnfModulus       = 3
	pointsTopSlot    = 10
	pointsBase       = 26
	pointsStep       = 2
	fullRaceLaps     = 50
	lapsPerSlotOnDNF = 5
	q2Cutoff         = 15
	q3Cutoff         = 10
	q1Offset         = 20
	q2Offset         = 19
	q3Offset         = 18
)

// Config shapes the generated dataset.
type Config struct {
	StartYear int
	Seasons   int
	Rounds    int
	Drivers   int
	Venues    int
}

// Default returns seven seasons from 2014 with five rounds, ten drivers on
// five teams and three circuits.
func Default() Config {
	return Config{StartYear: 2014, Seasons: 7, Rounds: 5, Drivers: 10, Venues: 3}
}

// Validate reports the first unusable field.
func (c Config) Validate() error {
	switch {
	case c.StartYear < 1:
		return fmt.Errorf("%w: start year must be positive", ErrInvalidConfig)
	case c.Seasons < 1:
		return fmt.Errorf("%w: seasons must be at least 1", ErrInvalidConfig)
	case c.Rounds < 1 || c.Rounds > maxRounds:
		return fmt.Errorf("%w: rounds must be between 1 and %d", ErrInvalidConfig, maxRounds)
	case c.Drivers < 1:
		return fmt.Errorf("%w: drivers must be at least 1", ErrInvalidConfig)
	case c.Venues < 1:
		return fmt.Errorf("%w: venues must be at least 1", ErrInvalidConfig)
	}
	return nil
}

// Teams returns the number of constructors, two drivers each.
func (c Config) Teams() int {
	return (c.Drivers + driversPerTeam - 1) / driversPerTeam
}

// Column is one column of a generated table.
type Column struct {
	Name string
	Type string // INTEGER, DOUBLE or TEXT; valid in SQLite and DuckDB
}

// Table is one generated table.
type Table struct {
	Name    string
	Columns []Column
	Rows    [][]any
}

// Dataset is the full generated warehouse, tables in write order.
type Dataset struct {
	Config Config
	Tables []Table
}

// Table returns the named table, or nil.
func (d *Dataset) Table(name string) *Table {
	for i := range d.Tables {
		if d.Tables[i].Name == name {
			return &d.Tables[i]
		}
	}
	return nil
}

func cols(pairs ...string) []Column {
	out := make([]Column, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, Column{Name: pairs[i], Type: pairs[i+1]})
	}
	return out
}

func teamOf(driverID int) int {
	return (driverID-1)/driversPerTeam + 1
}

// Generate builds the dataset. The same Config always yields the same rows.
func Generate(cfg Config) (*Dataset, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	d := &Dataset{Config: cfg}
	races := races(cfg)
	d.Tables = []Table{
		races,
		drivers(cfg),
		constructors(cfg),
		circuits(cfg),
		status(),
		qualifying(cfg, len(races.Rows)),
		results(cfg, len(races.Rows)),
		seasons(cfg),
	}
	return d, nil
}

func races(cfg Config) Table {
	t := Table{Name: "races", Columns: cols(
		"raceId", "INTEGER", "year", "INTEGER", "round", "INTEGER", "circuitId", "INTEGER",
		"name", "TEXT", "date", "TEXT", "time", "TEXT",
	)}
	raceID := 1
	for year := cfg.StartYear; year < cfg.StartYear+cfg.Seasons; year++ {
		for round := 1; round <= cfg.Rounds; round++ {
			t.Rows = append(t.Rows, []any{
				raceID, year, round, round%cfg.Venues + 1,
				"Grand Prix " + strconv.Itoa(round),
				fmt.Sprintf("%d-%02d-15", year, round),
				"14:00:00",
			})
			raceID++
		}
	}
	return t
}

func drivers(cfg Config) Table {
	t := Table{Name: "drivers", Columns: cols(
		"driverId", "INTEGER", "driverRef", "TEXT", "number", "INTEGER", "code", "TEXT",
		"forename", "TEXT", "surname", "TEXT", "dob", "TEXT", "nationality", "TEXT",
	)}
	for i := 1; i <= cfg.Drivers; i++ {
		t.Rows = append(t.Rows, []any{
			i, "driver_" + strconv.Itoa(i), i, fmt.Sprintf("DR%02d", i),
			"Driver", strconv.Itoa(i), fmt.Sprintf("199%d-01-01", i%10), "Country",
		})
	}
	return t
}

func constructors(cfg Config) Table {
	t := Table{Name: "constructors", Columns: cols(
		"constructorId", "INTEGER", "constructorRef", "TEXT", "name", "TEXT", "nationality", "TEXT",
	)}
	for i := 1; i <= cfg.Teams(); i++ {
		t.Rows = append(t.Rows, []any{i, "team_" + strconv.Itoa(i), "Team " + strconv.Itoa(i), "Country"})
	}
	return t
}

func circuits(cfg Config) Table {
	t := Table{Name: "circuits", Columns: cols(
		"circuitId", "INTEGER", "circuitRef", "TEXT", "name", "TEXT",
		"location", "TEXT", "country", "TEXT", "lat", "DOUBLE", "lng", "DOUBLE", "alt", "INTEGER",
	)}
	for i := 1; i <= cfg.Venues; i++ {
		t.Rows = append(t.Rows, []any{
			i, "circuit_" + strconv.Itoa(i), "Circuit " + strconv.Itoa(i),
			"City " + strconv.Itoa(i), "Country", 50.0 + float64(i), 4.0 + float64(i), 100,
		})
	}
	return t
}

func status() Table {
	return Table{Name: "status", Columns: cols("statusId", "INTEGER", "status", "TEXT"), Rows: [][]any{
		{StatusFinished, "Finished"},
		{StatusPlusOne, "+1 Lap"},
		{StatusAccident, "Accident"},
		{StatusCollision, "Collision"},
		{StatusEngine, "Engine"},
	}}
}

// qualifying classifies drivers in id order at every race. Q2 and Q3 times
// exist only inside their cut-offs.
func qualifying(cfg Config, nRaces int) Table {
	t := Table{Name: "qualifying", Columns: cols(
		"qualifyId", "INTEGER", "raceId", "INTEGER", "driverId", "INTEGER", "constructorId", "INTEGER",
		"number", "INTEGER", "position", "INTEGER", "q1", "TEXT", "q2", "TEXT", "q3", "TEXT",
	)}
	qualifyID := 1
	for raceID := 1; raceID <= nRaces; raceID++ {
		for pos := 1; pos <= cfg.Drivers; pos++ {
			var q2, q3 any
			if pos <= q2Cutoff {
				q2 = fmt.Sprintf("1:%d.%03d", pos+q2Offset, pos)
			}
			if pos <= q3Cutoff {
				q3 = fmt.Sprintf("1:%d.%03d", pos+q3Offset, pos)
			}
			t.Rows = append(t.Rows, []any{
				qualifyID, raceID, pos, teamOf(pos), pos, pos,
				fmt.Sprintf("1:%d.%03d", pos+q1Offset, pos), q2, q3,
			})
			qualifyID++
		}
	}
	return t
}

// Retired reports whether the driver in grid slot slot retires at race
// raceID. Only slots beyond dnfMinSlot ever retire.
func Retired(slot, raceID int) bool {
	return slot > dnfMinSlot && (slot+raceID)%dnfModulus == 0
}

// results finishes every driver in grid order except for deterministic
// retirements.
func results(cfg Config, nRaces int) Table {
	t := Table{Name: "results", Columns: cols(
		"resultId", "INTEGER", "raceId", "INTEGER", "driverId", "INTEGER", "constructorId", "INTEGER",
		"number", "INTEGER", "grid", "INTEGER", "position", "INTEGER", "positionText", "TEXT",
		"positionOrder", "INTEGER", "points", "DOUBLE", "laps", "INTEGER", "statusId", "INTEGER",
	)}
	resultID := 1
	for raceID := 1; raceID <= nRaces; raceID++ {
		for slot := 1; slot <= cfg.Drivers; slot++ {
			dnf := Retired(slot, raceID)
			var (
				position any = slot
				text         = strconv.Itoa(slot)
				statusID     = StatusFinished
				laps         = fullRaceLaps
				points       = 0.0
			)
			if dnf {
				position, text, statusID, laps = nil, "R", StatusAccident, slot*lapsPerSlotOnDNF
			} else if slot <= pointsTopSlot {
				points = float64(max(0, pointsBase-slot*pointsStep))
			}
			t.Rows = append(t.Rows, []any{
				resultID, raceID, slot, teamOf(slot), slot, slot, position, text,
				slot, points, laps, statusID,
			})
			resultID++
		}
	}
	return t
}

func seasons(cfg Config) Table {
	t := Table{Name: "seasons", Columns: cols("year", "INTEGER", "url", "TEXT")}
	for year := cfg.StartYear; year < cfg.StartYear+cfg.Seasons; year++ {
		t.Rows = append(t.Rows, []any{year, fmt.Sprintf("http://en.wikipedia.org/wiki/%d_Formula_One_season", year)})
	}
	return t
}
