package types_test

import (
	"encoding/json"
	"testing"

	types "github.com/okian/pitwall/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestFeatureRowJSON(t *testing.T) {
	Convey("Given a feature row with a null cell", t, func() {
		row := types.FeatureRow{
			ResultID: 11, EventID: 3, ParticipantID: 7, Season: 2017, Round: 2, Split: "validation",
			Values: map[string]any{"grid_position": nil, "driver_top10_rate_recent": 0.5},
		}

		Convey("When it is encoded", func() {
			data, err := json.Marshal(row)
			So(err, ShouldBeNil)

			Convey("Then dataset column names are used and nulls survive", func() {
				var got map[string]any
				So(json.Unmarshal(data, &got), ShouldBeNil)
				So(got["race_id"], ShouldEqual, 3.0)
				So(got["driver_id"], ShouldEqual, 7.0)
				So(got["year"], ShouldEqual, 2017.0)
				values := got["values"].(map[string]any)
				So(values, ShouldContainKey, "grid_position")
				So(values["grid_position"], ShouldBeNil)
				So(values["driver_top10_rate_recent"], ShouldEqual, 0.5)
			})
		})

		Convey("When a column without doc is encoded", func() {
			data, err := json.Marshal(types.Column{Name: "year", Type: "int", Role: "identifier"})
			So(err, ShouldBeNil)

			Convey("Then the doc field is omitted", func() {
				So(string(data), ShouldEqual, `{"name":"year","type":"int","role":"identifier","nullable":false}`)
			})
		})
	})
}
