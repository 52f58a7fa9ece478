package features

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/pitwall/internal/domain/aggregate"
	"github.com/okian/pitwall/internal/domain/dedupe"
	"github.com/okian/pitwall/internal/domain/model"
	"github.com/okian/pitwall/internal/domain/store"
	"github.com/okian/pitwall/pkg/logger"
)

// Grid flag cut-offs.
const (
	gridTop5  = 5
	gridTop10 = 10
)

// Table is the assembled feature table in store order.
type Table struct {
	Rows []Row
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// Assembler joins store rows with their aggregates and qualifying records.
type Assembler struct {
	log logger.Logger
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(a *Assembler) {
		if l != nil {
			a.log = l
		}
	}
}

// NewAssembler returns an Assembler.
func NewAssembler(opts ...Option) *Assembler {
	a := &Assembler{log: logger.Nop()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Assemble produces exactly one row per store row. Missing qualifying
// records leave the qualifying fields null; undefined aggregates resolve
// through the fallback chain and never drop a row.
func (a *Assembler) Assemble(ctx context.Context, s *store.Store, aggs *aggregate.Table, qualifying []model.Qualifying) (*Table, error) {
	if aggs.Len() != s.Len() {
		return nil, fmt.Errorf("%w: %d aggregate rows for %d results", ErrRowMismatch, aggs.Len(), s.Len())
	}
	start := time.Now()
	quali := a.indexQualifying(ctx, qualifying)

	t := &Table{Rows: make([]Row, s.Len())}
	paired := 0
	for i := range t.Rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r := s.Row(i)
		q, ok := quali[model.Entry{EventID: r.EventID, ParticipantID: r.ParticipantID}]
		if ok {
			paired++
		}
		t.Rows[i] = assembleRow(r, s.Outcome(i), q, ok,
			aggs.Get(model.KeyParticipant, i),
			aggs.Get(model.KeyParticipantVenue, i),
			aggs.Get(model.KeyTeam, i),
		)
	}

	a.log.Info(ctx, "feature rows assembled",
		logger.Int("rows", len(t.Rows)),
		logger.Int("with_qualifying", paired),
		logger.Int("columns", len(columns())),
		logger.Duration("took", time.Since(start)),
	)
	return t, nil
}

// indexQualifying keys records by (event, participant), keeping the first of
// any duplicates.
func (a *Assembler) indexQualifying(ctx context.Context, qualifying []model.Qualifying) map[model.Entry]model.Qualifying {
	seen := dedupe.NewInMemoryDeduper[model.Entry](dedupe.WithCapacity(len(qualifying)))
	idx := make(map[model.Entry]model.Qualifying, len(qualifying))
	for _, q := range qualifying {
		e := model.Entry{EventID: q.EventID, ParticipantID: q.ParticipantID}
		if seen.SeenAndRecord(ctx, e) {
			continue
		}
		idx[e] = q
	}
	if d := seen.Duplicates(); d > 0 {
		a.log.Warn(ctx, "duplicate qualifying records ignored", logger.Int64("duplicates", d))
	}
	return idx
}

func assembleRow(r model.Result, o model.Outcome, q model.Qualifying, hasQuali bool, driver, venue, team aggregate.Snapshot) Row {
	row := Row{
		ResultID:      r.ResultID,
		EventID:       r.EventID,
		ParticipantID: r.ParticipantID,
		TeamID:        r.TeamID,
		VenueID:       r.VenueID,
		Season:        r.Season,
		Round:         r.Round,
		Date:          r.Date,
		TargetTop:     o.ReachedTop,
		TargetDNF:     o.DidNotFinish,
		Grid:          r.Grid,
	}
	onGrid := r.Grid != nil && *r.Grid >= 1
	if onGrid {
		row.StartPosition = r.Grid
	}

	if hasQuali {
		sessions := q.Sessions()
		row.QualifyingSessions = &sessions
		row.QualifyingPosition = q.Position
		if q.Position != nil {
			row.StartPosition = q.Position
		}
	}
	if onGrid {
		row.GridTop5 = *r.Grid <= gridTop5
		row.GridTop10 = *r.Grid <= gridTop10
	}

	row.Driver = resolveForm(driver, driver)
	row.DriverVenue = resolveForm(venue, driver)
	row.Team = resolveForm(team, team)

	row.VenueRaces = venue.Count
	row.VenueTopRate = venue.TopRate.Or(driver.TopRate).OrZero()
	row.VenueDNFRate = venue.DNFRate.Or(driver.DNFRate).OrZero()

	row.DriverCareer = resolveCareer(driver)
	row.TeamCareer = resolveCareer(team)
	return row
}

// resolveForm resolves trailing-window metrics of own: the window value, else
// the same metric of the entity's career, else 0.
func resolveForm(own, career aggregate.Snapshot) KeyForm {
	return KeyForm{
		TopRateRecent:       own.TopRateRecent.Or(career.TopRate).OrZero(),
		DNFRateRecent:       own.DNFRateRecent.Or(career.DNFRate).OrZero(),
		PointsAvgRecent:     own.PointsAvgRecent.Or(career.PointsAvg).OrZero(),
		PositionDeltaRecent: own.PositionDeltaRecent.Or(career.PositionDelta).OrZero(),
		DNFRateWindow:       own.DNFRateWindow.Or(career.DNFRate).OrZero(),
	}
}

func resolveCareer(s aggregate.Snapshot) Career {
	return Career{
		Races:       s.Count,
		TopRate:     s.TopRate.OrZero(),
		DNFRate:     s.DNFRate.OrZero(),
		PointsTotal: s.PointsSum,
		Wins:        s.Wins,
		Podiums:     s.Podiums,
	}
}
