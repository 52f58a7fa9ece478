package features_test

import (
	"strings"
	"testing"
	"time"

	"github.com/okian/pitwall/internal/domain/features"
	"github.com/okian/pitwall/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestColumns(t *testing.T) {
	Convey("Given the column registry", t, func() {
		cols := features.Columns()

		Convey("Then every column has a unique non-empty name", func() {
			seen := map[string]bool{}
			for _, c := range cols {
				So(c.Name, ShouldNotBeBlank)
				So(seen[c.Name], ShouldBeFalse)
				seen[c.Name] = true
			}
		})

		Convey("Then overwriting the returned slice leaves the registry intact", func() {
			mine := features.Columns()
			mine[0] = features.Column{Name: "overwritten"}
			mine[len(mine)-1].Name = "also_overwritten"
			again := features.Columns()
			So(again[0].Name, ShouldEqual, "result_id")
			So(again[len(again)-1].Name, ShouldEqual, features.ColumnSplit)
			So(features.ColumnNames()[0], ShouldEqual, "result_id")
			row := features.Row{ResultID: 42}
			So(row.Values()[0], ShouldEqual, int64(42))
		})

		Convey("Then the order is stable across calls", func() {
			So(features.ColumnNames(), ShouldResemble, features.ColumnNames())
			So(features.ColumnNames()[0], ShouldEqual, "result_id")
			So(features.ColumnNames()[len(cols)-1], ShouldEqual, features.ColumnSplit)
		})

		Convey("Then feature columns exclude identifiers, targets and the split", func() {
			fc := features.FeatureColumns()
			for _, name := range append(features.IdentifierColumns(), features.ColumnTargetTop, features.ColumnTargetDNF, features.ColumnSplit) {
				So(fc, ShouldNotContain, name)
			}
			So(fc, ShouldContain, "driver_top10_rate_recent")
			So(fc, ShouldContain, "driver_circuit_top10_rate")
			So(fc, ShouldContain, "constructor_career_points")
			So(fc, ShouldContain, "grid_top_5")
			So(features.TargetColumns(), ShouldResemble, []string{features.ColumnTargetTop, features.ColumnTargetDNF})
		})

		Convey("Then every feature column is documented", func() {
			for _, c := range cols {
				if c.Role == features.RoleFeature || c.Role == features.RoleTarget {
					So(strings.TrimSpace(c.Doc), ShouldNotBeEmpty)
				}
			}
		})
	})
}

func TestRowValues(t *testing.T) {
	Convey("Given a row with null side info", t, func() {
		r := features.Row{
			ResultID: 42, EventID: 7, ParticipantID: 3, Season: 2017, Round: 4,
			Date:      time.Date(2017, 4, 15, 0, 0, 0, 0, time.UTC),
			Grid:      model.IntPtr(6),
			TargetTop: true,
			Driver:    features.KeyForm{TopRateRecent: 0.4},
			Split:     "validation",
		}

		Convey("When reading its values", func() {
			values := r.Values()

			Convey("Then there is one value per column", func() {
				So(len(values), ShouldEqual, len(features.Columns()))
				So(values[0], ShouldEqual, int64(42))
			})

			Convey("Then named lookups return typed cells", func() {
				v, ok := r.Value("race_date")
				So(ok, ShouldBeTrue)
				So(v, ShouldEqual, "2017-04-15")

				v, _ = r.Value("grid_position")
				So(v, ShouldEqual, int64(6))

				v, _ = r.Value("qualifying_position")
				So(v, ShouldBeNil)

				v, _ = r.Value("driver_top10_rate_recent")
				So(v, ShouldEqual, 0.4)

				v, _ = r.Value(features.ColumnSplit)
				So(v, ShouldEqual, "validation")

				_, ok = r.Value("no_such_column")
				So(ok, ShouldBeFalse)
			})
		})
	})
}
