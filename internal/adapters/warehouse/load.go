package warehouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/okian/pitwall/internal/domain/model"
	"github.com/okian/pitwall/pkg/logger"
	"github.com/okian/pitwall/pkg/metrics"
)

var errMissingDate = errors.New("missing date")

// nullMarker is how the public race dataset spells a missing value.
const nullMarker = `\N`

//nolint:gochecknoglobals // accepted date layouts
var dateLayouts = []string{"2006-01-02", time.RFC3339, "2006-01-02 15:04:05"}

// LoadResults reads every result row joined with its race and status,
// ordered by (year, round, resultId).
func (w *Warehouse) LoadResults(ctx context.Context) ([]model.Result, error) {
	q := fmt.Sprintf(`SELECT r.resultId, r.raceId, r.driverId, r.constructorId, ra.circuitId,
			ra.year, ra.round, ra.date, r.grid, r.position, r.positionOrder, s.status, r.points
		FROM %s r
		JOIN %s ra ON ra.raceId = r.raceId
		LEFT JOIN %s s ON s.statusId = r.statusId
		ORDER BY ra.year, ra.round, r.resultId`,
		w.table(TableResults), w.table(TableRaces), w.table(TableStatus))

	rows, err := w.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("%w: query results: %w", ErrSchemaViolation, err)
	}
	defer rows.Close()

	var out []model.Result
	for rows.Next() {
		var (
			r                   model.Result
			date                any
			grid, finish, order any
			status              sql.NullString
			points              sql.NullFloat64
		)
		if err := rows.Scan(&r.ResultID, &r.EventID, &r.ParticipantID, &r.TeamID, &r.VenueID,
			&r.Season, &r.Round, &date, &grid, &finish, &order, &status, &points); err != nil {
			return nil, fmt.Errorf("%w: scan result row %d: %w", ErrSchemaViolation, len(out)+1, err)
		}
		if r.Date, err = parseDate(date); err != nil {
			return nil, fmt.Errorf("%w: result %d: %w", ErrSchemaViolation, r.ResultID, err)
		}
		if r.Grid, err = optionalInt(grid); err != nil {
			return nil, fmt.Errorf("%w: result %d grid: %w", ErrSchemaViolation, r.ResultID, err)
		}
		if r.FinishPosition, err = optionalInt(finish); err != nil {
			return nil, fmt.Errorf("%w: result %d position: %w", ErrSchemaViolation, r.ResultID, err)
		}
		if r.FinishOrder, err = optionalInt(order); err != nil {
			return nil, fmt.Errorf("%w: result %d positionOrder: %w", ErrSchemaViolation, r.ResultID, err)
		}
		r.Status = status.String
		r.Points = points.Float64
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: read results: %w", ErrSchemaViolation, err)
	}

	metrics.AddResultRowsLoaded(len(out))
	w.logger.Info(ctx, "results loaded", logger.Int("rows", len(out)))
	return out, nil
}

// LoadQualifying reads every qualifying record ordered by (raceId,
// qualifyId). Q1..Q3 are read when the table has them.
func (w *Warehouse) LoadQualifying(ctx context.Context) ([]model.Qualifying, error) {
	sessions := make([]string, 3)
	for i, c := range []string{"q1", "q2", "q3"} {
		sessions[i] = "NULL"
		if w.hasColumn(ctx, TableQualifying, c) {
			sessions[i] = "q." + c
		}
	}
	q := fmt.Sprintf(`SELECT q.raceId, q.driverId, q.constructorId, q.position, %s
		FROM %s q
		ORDER BY q.raceId, q.qualifyId`,
		strings.Join(sessions, ", "), w.table(TableQualifying))

	rows, err := w.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("%w: query qualifying: %w", ErrSchemaViolation, err)
	}
	defer rows.Close()

	var out []model.Qualifying
	for rows.Next() {
		var (
			rec        model.Qualifying
			pos        any
			q1, q2, q3 sql.NullString
		)
		if err := rows.Scan(&rec.EventID, &rec.ParticipantID, &rec.TeamID, &pos, &q1, &q2, &q3); err != nil {
			return nil, fmt.Errorf("%w: scan qualifying row %d: %w", ErrSchemaViolation, len(out)+1, err)
		}
		if rec.Position, err = optionalInt(pos); err != nil {
			return nil, fmt.Errorf("%w: qualifying %s position: %w", ErrSchemaViolation,
				model.Entry{EventID: rec.EventID, ParticipantID: rec.ParticipantID}, err)
		}
		rec.Q1, rec.Q2, rec.Q3 = lapTime(q1), lapTime(q2), lapTime(q3)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: read qualifying: %w", ErrSchemaViolation, err)
	}

	metrics.AddQualifyingRowsLoaded(len(out))
	w.logger.Info(ctx, "qualifying loaded", logger.Int("rows", len(out)))
	return out, nil
}

func lapTime(s sql.NullString) string {
	v := strings.TrimSpace(s.String)
	if !s.Valid || v == nullMarker {
		return ""
	}
	return v
}

// optionalInt converts a scanned cell to *int. NULL, empty text and the
// dataset's null marker all read as nil.
func optionalInt(v any) (*int, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case int64:
		return model.IntPtr(int(t)), nil
	case int32:
		return model.IntPtr(int(t)), nil
	case int:
		return model.IntPtr(t), nil
	case float64:
		if t != float64(int(t)) {
			return nil, fmt.Errorf("non-integral value %v", t)
		}
		return model.IntPtr(int(t)), nil
	case []byte:
		return optionalInt(string(t))
	case string:
		s := strings.TrimSpace(t)
		if s == "" || s == nullMarker {
			return nil, nil
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("not an integer: %q", s)
		}
		return &n, nil
	default:
		return nil, fmt.Errorf("unexpected type %T", v)
	}
}

// parseDate accepts the date as a driver time value or text.
func parseDate(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), nil
	case []byte:
		return parseDate(string(t))
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range dateLayouts {
			if d, err := time.Parse(layout, s); err == nil {
				return d.UTC(), nil
			}
		}
		return time.Time{}, fmt.Errorf("unparseable date %q", s)
	case nil:
		return time.Time{}, errMissingDate
	default:
		return time.Time{}, fmt.Errorf("unexpected date type %T", v)
	}
}
