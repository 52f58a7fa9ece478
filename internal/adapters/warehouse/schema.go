package warehouse

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/okian/pitwall/pkg/logger"
)

// Raw table names, before the configured prefix.
const (
	TableRaces      = "races"
	TableResults    = "results"
	TableQualifying = "qualifying"
	TableStatus     = "status"
)

// requiredSchema lists the columns each raw table must expose. Names match
// case-insensitively.
//
//nolint:gochecknoglobals // static schema table
var requiredSchema = []struct {
	table   string
	columns []string
}{
	{TableRaces, []string{"raceId", "year", "round", "circuitId", "name", "date"}},
	{TableResults, []string{
		"resultId", "raceId", "driverId", "constructorId", "grid",
		"position", "positionOrder", "points", "laps", "statusId",
	}},
	{TableQualifying, []string{"qualifyId", "raceId", "driverId", "constructorId", "position"}},
	{TableStatus, []string{"statusId", "status"}},
}

//nolint:gochecknoglobals // static schema table
var optionalTables = []string{
	"drivers", "constructors", "circuits", "seasons", "sprint_results", "pit_stops",
	"lap_times", "constructor_results", "constructor_standings", "driver_standings",
}

// TableInfo describes one table or view in the warehouse.
type TableInfo struct {
	Name string `json:"name" yaml:"name"`
	Kind string `json:"kind" yaml:"kind"` // table or view
	Rows int64  `json:"rows" yaml:"rows"`
}

// Tables lists every table and view with its row count.
func (w *Warehouse) Tables(ctx context.Context) ([]TableInfo, error) {
	rows, err := w.db.QueryContext(ctx, w.dialect.listTables)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var out []TableInfo
	for rows.Next() {
		var name, kind string
		if err := rows.Scan(&name, &kind); err != nil {
			return nil, fmt.Errorf("list tables: %w", err)
		}
		info := TableInfo{Name: name, Kind: "table"}
		if strings.Contains(strings.ToUpper(kind), "VIEW") {
			info.Kind = "view"
		}
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}

	for i := range out {
		q := "SELECT COUNT(*) FROM " + quoteIdent(out[i].Name)
		if err := w.db.QueryRowContext(ctx, q).Scan(&out[i].Rows); err != nil {
			return nil, fmt.Errorf("count %s: %w", out[i].Name, err)
		}
	}
	return out, nil
}

// Inspect logs and returns the warehouse contents.
func (w *Warehouse) Inspect(ctx context.Context) ([]TableInfo, error) {
	tables, err := w.Tables(ctx)
	if err != nil {
		return nil, err
	}
	for _, t := range tables {
		w.logger.Info(ctx, "warehouse object",
			logger.String("name", t.Name), logger.String("kind", t.Kind), logger.Int64("rows", t.Rows))
	}
	return tables, nil
}

// columns returns the lower-cased column names of a table.
func (w *Warehouse) columns(ctx context.Context, table string) ([]string, error) {
	rows, err := w.db.QueryContext(ctx, "SELECT * FROM "+table+" LIMIT 0")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	for i := range cols {
		cols[i] = strings.ToLower(cols[i])
	}
	return cols, nil
}

// hasColumn reports whether a raw table has the column. Errors read as false.
func (w *Warehouse) hasColumn(ctx context.Context, table, column string) bool {
	cols, err := w.columns(ctx, w.table(table))
	if err != nil {
		return false
	}
	return slices.Contains(cols, strings.ToLower(column))
}

// CheckSchema verifies that every required raw table exists with its
// required columns. All problems are reported in one ErrSchemaViolation.
func (w *Warehouse) CheckSchema(ctx context.Context) error {
	tables, err := w.Tables(ctx)
	if err != nil {
		return err
	}
	present := make(map[string]bool, len(tables))
	for _, t := range tables {
		present[strings.ToLower(t.Name)] = true
	}

	var problems []string
	for _, req := range requiredSchema {
		name := w.prefix + req.table
		if !present[strings.ToLower(name)] {
			problems = append(problems, "missing table "+name)
			continue
		}
		cols, err := w.columns(ctx, w.table(req.table))
		if err != nil {
			problems = append(problems, fmt.Sprintf("read columns of %s: %v", name, err))
			continue
		}
		var missing []string
		for _, c := range req.columns {
			if !slices.Contains(cols, strings.ToLower(c)) {
				missing = append(missing, c)
			}
		}
		if len(missing) > 0 {
			problems = append(problems, fmt.Sprintf("%s missing columns %s", name, strings.Join(missing, ", ")))
			continue
		}
		w.logger.Debug(ctx, "schema valid", logger.String("table", name))
	}

	for _, t := range optionalTables {
		if present[strings.ToLower(w.prefix+t)] {
			w.logger.Info(ctx, "optional table found", logger.String("table", w.prefix+t))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrSchemaViolation, strings.Join(problems, "; "))
	}
	w.logger.Info(ctx, "schema checks passed", logger.Int("tables", len(requiredSchema)))
	return nil
}
