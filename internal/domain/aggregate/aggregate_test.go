package aggregate_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/pitwall/internal/domain/aggregate"
	"github.com/okian/pitwall/internal/domain/model"
	"github.com/okian/pitwall/internal/domain/store"
	. "github.com/smartystreets/goconvey/convey"
)

// race appends one result for participant at (season, round). Event ids are
// derived from the slot so every participant in a slot shares the event.
func race(rows []model.Result, season, round int, participant, team, venue int64, order int, status string, points float64) []model.Result {
	return append(rows, model.Result{
		ResultID:      int64(len(rows) + 1),
		EventID:       int64(season*100 + round),
		ParticipantID: participant,
		TeamID:        team,
		VenueID:       venue,
		Season:        season,
		Round:         round,
		Date:          time.Date(season, time.Month(round), 1, 0, 0, 0, 0, time.UTC),
		Grid:          model.IntPtr(order),
		FinishOrder:   model.IntPtr(order),
		Status:        status,
		Points:        points,
	})
}

func build(t *testing.T, rows []model.Result, cfg aggregate.Config, opts ...aggregate.Option) (*store.Store, *aggregate.Table) {
	t.Helper()
	s, err := store.New(context.Background(), rows)
	if err != nil {
		t.Fatal(err)
	}
	a, err := aggregate.New(cfg, opts...)
	if err != nil {
		t.Fatal(err)
	}
	tbl, err := a.Aggregate(context.Background(), s)
	if err != nil {
		t.Fatal(err)
	}
	return s, tbl
}

// indexOf finds the store index of the row for participant at (season, round).
func indexOf(s *store.Store, participant int64, season, round int) int {
	for i, r := range s.Rows() {
		if r.ParticipantID == participant && r.Season == season && r.Round == round {
			return i
		}
	}
	return -1
}

func TestConfigValidate(t *testing.T) {
	Convey("Given window configurations", t, func() {
		So(aggregate.Config{RecentWidth: 1, DNFWidth: 1}.Validate(), ShouldBeNil)

		_, err := aggregate.New(aggregate.Config{RecentWidth: 0, DNFWidth: 3})
		So(errors.Is(err, aggregate.ErrInvalidWindow), ShouldBeTrue)

		_, err = aggregate.New(aggregate.Config{RecentWidth: 3, DNFWidth: -1})
		So(errors.Is(err, aggregate.ErrInvalidWindow), ShouldBeTrue)
	})
}

func TestTrailingWindow(t *testing.T) {
	Convey("Given a participant with two prior races and a width of five", t, func() {
		var rows []model.Result
		rows = race(rows, 2016, 1, 1, 1, 1, 2, "Finished", 18)
		rows = race(rows, 2016, 2, 1, 1, 2, 14, "Engine", 0)
		rows = race(rows, 2016, 3, 1, 1, 3, 4, "Finished", 12)
		s, tbl := build(t, rows, aggregate.Config{RecentWidth: 5, DNFWidth: 10})

		Convey("When reading the third race", func() {
			snap := tbl.Get(model.KeyParticipant, indexOf(s, 1, 2016, 3))

			Convey("Then the means are over exactly the two priors", func() {
				So(snap.TopRateRecent, ShouldResemble, aggregate.Some(0.5))
				So(snap.DNFRateRecent, ShouldResemble, aggregate.Some(0.5))
				So(snap.PointsAvgRecent, ShouldResemble, aggregate.Some(9))
				So(snap.DNFRateWindow, ShouldResemble, aggregate.Some(0.5))
				So(snap.Count, ShouldEqual, 2)
				So(snap.PointsSum, ShouldEqual, 18)
			})
		})

		Convey("When reading the first race", func() {
			snap := tbl.Get(model.KeyParticipant, indexOf(s, 1, 2016, 1))

			Convey("Then every mean is undefined and counts are zero", func() {
				So(snap.TopRateRecent.Valid, ShouldBeFalse)
				So(snap.DNFRateRecent.Valid, ShouldBeFalse)
				So(snap.PointsAvgRecent.Valid, ShouldBeFalse)
				So(snap.PositionDeltaRecent.Valid, ShouldBeFalse)
				So(snap.DNFRateWindow.Valid, ShouldBeFalse)
				So(snap.TopRate.Valid, ShouldBeFalse)
				So(snap.DNFRate.Valid, ShouldBeFalse)
				So(snap.Count, ShouldEqual, 0)
				So(snap.Wins, ShouldEqual, 0)
			})
		})
	})

	Convey("Given more prior races than the window holds", t, func() {
		var rows []model.Result
		// Orders 1, 2, 3, 20, 20 then a sixth race.
		for round, order := range []int{1, 2, 3, 20, 20, 5} {
			rows = race(rows, 2017, round+1, 1, 1, 1, order, "Finished", 0)
		}
		s, tbl := build(t, rows, aggregate.Config{RecentWidth: 2, DNFWidth: 4})

		Convey("When reading the sixth race", func() {
			snap := tbl.Get(model.KeyParticipant, indexOf(s, 1, 2017, 6))

			Convey("Then the recent window only sees the last two", func() {
				So(snap.TopRateRecent, ShouldResemble, aggregate.Some(0))
			})

			Convey("Then the career still counts all five", func() {
				So(snap.Count, ShouldEqual, 5)
				So(snap.TopRate, ShouldResemble, aggregate.Some(0.6))
				So(snap.Wins, ShouldEqual, 1)
				So(snap.Podiums, ShouldEqual, 3)
			})
		})
	})
}

func TestPositionDelta(t *testing.T) {
	Convey("Given rows with and without a usable grid", t, func() {
		rows := race(nil, 2016, 1, 1, 1, 1, 5, "Finished", 10)
		rows[0].Grid = model.IntPtr(8) // gained three places
		rows = race(rows, 2016, 2, 1, 1, 1, 7, "Finished", 6)
		rows[1].Grid = model.IntPtr(0) // pit lane start
		rows = race(rows, 2016, 3, 1, 1, 1, 9, "Finished", 2)
		rows[2].Grid = nil
		rows = race(rows, 2016, 4, 1, 1, 1, 1, "Finished", 25)
		s, tbl := build(t, rows, aggregate.Config{RecentWidth: 5, DNFWidth: 5})

		Convey("Then rows without a grid are skipped for the delta only", func() {
			snap := tbl.Get(model.KeyParticipant, indexOf(s, 1, 2016, 4))
			So(snap.PositionDeltaRecent, ShouldResemble, aggregate.Some(-3))
			So(snap.PositionDelta, ShouldResemble, aggregate.Some(-3))
			So(snap.PointsAvgRecent, ShouldResemble, aggregate.Some(6))
		})
	})
}

func TestSameEventIsolation(t *testing.T) {
	Convey("Given two teammates in the same races", t, func() {
		var rows []model.Result
		rows = race(rows, 2016, 1, 1, 7, 1, 1, "Finished", 25)
		rows = race(rows, 2016, 1, 2, 7, 1, 12, "Accident", 0)
		rows = race(rows, 2016, 2, 1, 7, 2, 3, "Finished", 15)
		rows = race(rows, 2016, 2, 2, 7, 2, 4, "Finished", 12)
		s, tbl := build(t, rows, aggregate.Config{RecentWidth: 5, DNFWidth: 10})

		Convey("Then at the first race neither sees the other", func() {
			a := tbl.Get(model.KeyTeam, indexOf(s, 1, 2016, 1))
			b := tbl.Get(model.KeyTeam, indexOf(s, 2, 2016, 1))
			So(a.Count, ShouldEqual, 0)
			So(b.Count, ShouldEqual, 0)
		})

		Convey("Then at the second race both see both first-race rows", func() {
			a := tbl.Get(model.KeyTeam, indexOf(s, 1, 2016, 2))
			b := tbl.Get(model.KeyTeam, indexOf(s, 2, 2016, 2))
			So(a, ShouldResemble, b)
			So(a.Count, ShouldEqual, 2)
			So(a.DNFRate, ShouldResemble, aggregate.Some(0.5))
			So(a.PointsSum, ShouldEqual, 25)
			So(a.Wins, ShouldEqual, 1)
		})
	})
}

func TestVenueRate(t *testing.T) {
	Convey("Given three prior visits to a venue with top results true, false, true", t, func() {
		var rows []model.Result
		rows = race(rows, 2014, 1, 1, 1, 9, 3, "Finished", 15)
		rows = race(rows, 2014, 2, 1, 1, 4, 15, "Finished", 0)
		rows = race(rows, 2015, 1, 1, 1, 9, 16, "Finished", 0)
		rows = race(rows, 2016, 1, 1, 1, 9, 8, "+1 Lap", 4)
		rows = race(rows, 2017, 1, 1, 1, 9, 20, "Engine", 0)
		s, tbl := build(t, rows, aggregate.Config{RecentWidth: 5, DNFWidth: 10})

		Convey("When reading the fourth visit", func() {
			snap := tbl.Get(model.KeyParticipantVenue, indexOf(s, 1, 2017, 1))

			Convey("Then the venue rate is two thirds and excludes the race itself", func() {
				So(snap.Count, ShouldEqual, 3)
				So(snap.TopRate.Value, ShouldAlmostEqual, 2.0/3.0)
				So(snap.DNFRate, ShouldResemble, aggregate.Some(0))
			})
		})
	})
}

func TestNoLeakage(t *testing.T) {
	Convey("Given a history and a variant with the last race outcome flipped", t, func() {
		var rows []model.Result
		rows = race(rows, 2016, 1, 1, 1, 1, 1, "Finished", 25)
		rows = race(rows, 2016, 1, 2, 1, 1, 2, "Finished", 18)
		rows = race(rows, 2016, 2, 1, 1, 1, 3, "Finished", 15)
		rows = race(rows, 2016, 2, 2, 1, 1, 5, "Finished", 10)
		flipped := make([]model.Result, len(rows))
		copy(flipped, rows)
		flipped[2].Status = "Collision"
		flipped[2].FinishOrder = model.IntPtr(20)
		flipped[2].Points = 0

		cfg := aggregate.Config{RecentWidth: 3, DNFWidth: 3}
		s1, t1 := build(t, rows, cfg)
		s2, t2 := build(t, flipped, cfg)

		Convey("Then the flipped row sees identical aggregates for every key", func() {
			for _, kind := range model.KeyKinds {
				i := indexOf(s1, 1, 2016, 2)
				So(t1.Get(kind, i), ShouldResemble, t2.Get(kind, indexOf(s2, 1, 2016, 2)))
			}
		})

		Convey("Then the teammate at the same race is also unaffected", func() {
			i := indexOf(s1, 2, 2016, 2)
			So(t1.Get(model.KeyTeam, i), ShouldResemble, t2.Get(model.KeyTeam, indexOf(s2, 2, 2016, 2)))
		})
	})
}

// goroutineExecutor scans every partition on its own goroutine.
type goroutineExecutor struct{}

func (goroutineExecutor) Execute(ctx context.Context, parts []model.Partition, scan aggregate.ScanFunc) error {
	var wg sync.WaitGroup
	errs := make([]error, len(parts))
	for i, p := range parts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = scan(ctx, p)
		}()
	}
	wg.Wait()
	return errors.Join(errs...)
}

func TestExecutorsAgree(t *testing.T) {
	Convey("Given a multi-season grid of drivers", t, func() {
		var rows []model.Result
		for season := 2014; season <= 2016; season++ {
			for round := 1; round <= 4; round++ {
				for driver := int64(1); driver <= 6; driver++ {
					order := int((driver+int64(round)+int64(season))%6) + 1
					status := "Finished"
					if (driver+int64(round))%4 == 0 {
						status = "Engine"
					}
					rows = race(rows, season, round, driver, (driver+1)/2, int64(round%3+1), order, status, float64(10-order))
				}
			}
		}
		cfg := aggregate.Config{RecentWidth: 3, DNFWidth: 5}

		Convey("When aggregated sequentially and concurrently", func() {
			s, seq := build(t, rows, cfg)
			_, par := build(t, rows, cfg, aggregate.WithExecutor(goroutineExecutor{}))

			Convey("Then both tables are identical", func() {
				for _, kind := range model.KeyKinds {
					for i := 0; i < s.Len(); i++ {
						So(par.Get(kind, i), ShouldResemble, seq.Get(kind, i))
					}
				}
			})
		})
	})
}

func TestScanGuards(t *testing.T) {
	Convey("Given a store and a table of the wrong size", t, func() {
		s, err := store.New(context.Background(), race(nil, 2016, 1, 1, 1, 1, 1, "Finished", 25))
		So(err, ShouldBeNil)
		a, err := aggregate.New(aggregate.Config{RecentWidth: 1, DNFWidth: 1})
		So(err, ShouldBeNil)

		Convey("Then Scan refuses it", func() {
			err := a.Scan(context.Background(), s, s.Partitions(model.KeyParticipant)[0], aggregate.NewTable(5))
			So(errors.Is(err, aggregate.ErrRowMismatch), ShouldBeTrue)
		})

		Convey("Then a cancelled context stops Aggregate", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_, err := a.Aggregate(ctx, s)
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
		})
	})
}

func TestOptional(t *testing.T) {
	Convey("Given optional values", t, func() {
		So(aggregate.None().Or(aggregate.Some(0.25)), ShouldResemble, aggregate.Some(0.25))
		So(aggregate.Some(0).Or(aggregate.Some(0.25)), ShouldResemble, aggregate.Some(0))
		So(aggregate.None().OrZero(), ShouldEqual, 0)
		So(aggregate.Some(0.5).String(), ShouldEqual, "0.5")
		So(aggregate.None().String(), ShouldEqual, "undefined")
	})
}
