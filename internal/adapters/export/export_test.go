package export

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/okian/pitwall/internal/adapters/warehouse"
	"github.com/okian/pitwall/internal/domain/features"
	"github.com/okian/pitwall/internal/domain/model"
	"github.com/okian/pitwall/internal/domain/split"
	. "github.com/smartystreets/goconvey/convey"
)

func sampleTable() *features.Table {
	day := func(y int) time.Time { return time.Date(y, 3, 1, 0, 0, 0, 0, time.UTC) }
	return &features.Table{Rows: []features.Row{
		{ResultID: 1, EventID: 1, ParticipantID: 7, Season: 2016, Round: 1, Date: day(2016),
			Grid: model.IntPtr(2), TargetTop: true, Split: split.Train,
			Driver: features.KeyForm{TopRateRecent: 1.0 / 3}},
		{ResultID: 2, EventID: 1, ParticipantID: 8, Season: 2016, Round: 1, Date: day(2016),
			TargetDNF: true, Split: split.Train},
		{ResultID: 3, EventID: 2, ParticipantID: 7, Season: 2017, Round: 1, Date: day(2017),
			Split: split.Validation},
	}}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return records
}

func TestWriteCSV(t *testing.T) {
	Convey("Given a labeled feature table", t, func() {
		ctx := context.Background()
		dir := filepath.Join(t.TempDir(), "out")
		e := New(dir)

		Convey("When it is exported", func() {
			paths, err := e.WriteCSV(ctx, sampleTable())
			So(err, ShouldBeNil)

			Convey("Then one file per partition is written in order", func() {
				So(paths, ShouldResemble, []string{
					filepath.Join(dir, "features_train.csv"),
					filepath.Join(dir, "features_validation.csv"),
					filepath.Join(dir, "features_test.csv"),
				})
			})

			Convey("Then each file has the full header and its rows", func() {
				train := readCSV(t, paths[0])
				So(train[0], ShouldResemble, features.ColumnNames())
				So(len(train), ShouldEqual, 3)
				So(len(readCSV(t, paths[1])), ShouldEqual, 2)
				So(len(readCSV(t, paths[2])), ShouldEqual, 1)
			})

			Convey("Then cells use exact, stable formatting", func() {
				train := readCSV(t, paths[0])
				idx := map[string]int{}
				for i, n := range train[0] {
					idx[n] = i
				}
				So(train[1][idx["grid_position"]], ShouldEqual, "2")
				So(train[2][idx["grid_position"]], ShouldEqual, "")
				So(train[1][idx[features.ColumnTargetTop]], ShouldEqual, "true")
				So(train[1][idx["driver_top10_rate_recent"]], ShouldEqual, "0.3333333333333333")
				So(train[1][idx["race_date"]], ShouldEqual, "2016-03-01")
			})

			Convey("Then no temp files are left behind", func() {
				entries, err := os.ReadDir(dir)
				So(err, ShouldBeNil)
				for _, en := range entries {
					So(strings.HasPrefix(en.Name(), "."), ShouldBeFalse)
				}
			})
		})

		Convey("When the same table is exported twice", func() {
			first, err := e.WriteCSV(ctx, sampleTable())
			So(err, ShouldBeNil)
			before, err := os.ReadFile(first[0])
			So(err, ShouldBeNil)

			second, err := New(filepath.Join(t.TempDir(), "again")).WriteCSV(ctx, sampleTable())
			So(err, ShouldBeNil)
			after, err := os.ReadFile(second[0])
			So(err, ShouldBeNil)

			Convey("Then the bytes are identical", func() {
				So(string(after), ShouldEqual, string(before))
			})
		})
	})
}

func TestManifest(t *testing.T) {
	Convey("Given a manifest for a build", t, func() {
		ctx := context.Background()
		dir := t.TempDir()
		e := New(dir)
		stats := []split.Stats{{Partition: split.Train, Rows: 2, MinSeason: 2016, MaxSeason: 2016, TopPositives: 1, TopRate: 0.5}}
		m := NewManifest("run-42", time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC), 3, stats)
		m.Window.Recent, m.Window.DNF = 5, 10
		m.Split.TrainEndYear, m.Split.TestStartYear = 2016, 2019

		Convey("When it is written and read back", func() {
			path, err := e.WriteManifest(ctx, m, filepath.Join(dir, "features_train.csv"))
			So(err, ShouldBeNil)
			got, err := ReadManifest(path)
			So(err, ShouldBeNil)

			Convey("Then every column and statistic survives", func() {
				So(got.RunID, ShouldEqual, "run-42")
				So(got.Rows, ShouldEqual, 3)
				So(got.Window.Recent, ShouldEqual, 5)
				So(got.Split.TestStartYear, ShouldEqual, 2019)
				So(len(got.Columns), ShouldEqual, len(features.Columns()))
				So(got.FeatureColumns, ShouldResemble, features.FeatureColumns())
				So(got.TargetColumns, ShouldResemble, []string{features.ColumnTargetTop, features.ColumnTargetDNF})
				So(got.Partitions, ShouldResemble, stats)
				So(got.Files, ShouldResemble, []string{"features_train.csv"})
			})
		})
	})
}

func TestWriteParquet(t *testing.T) {
	Convey("Given a feature table", t, func() {
		ctx := context.Background()
		e := New(t.TempDir())

		Convey("When it is exported to parquet", func() {
			path, err := e.WriteParquet(ctx, sampleTable())
			So(err, ShouldBeNil)

			Convey("Then the file holds every row in order", func() {
				w, err := warehouse.Open(ctx, warehouse.DriverDuckDB, "")
				So(err, ShouldBeNil)
				defer w.Close()

				rows, err := w.DB().QueryContext(ctx, "SELECT result_id FROM read_parquet('"+path+"')")
				So(err, ShouldBeNil)
				defer rows.Close()
				var ids []int64
				for rows.Next() {
					var id int64
					So(rows.Scan(&id), ShouldBeNil)
					ids = append(ids, id)
				}
				So(ids, ShouldResemble, []int64{1, 2, 3})
			})
		})
	})
}

func TestStage(t *testing.T) {
	Convey("Given an exporter over a directory with an earlier file", t, func() {
		ctx := context.Background()
		dir := t.TempDir()
		old := filepath.Join(dir, CSVFile(split.Test))
		So(os.WriteFile(old, []byte("old\n"), filePermission), ShouldBeNil)
		e := New(dir)

		staged, err := e.Stage()
		So(err, ShouldBeNil)
		paths, err := staged.WriteCSV(ctx, sampleTable())
		So(err, ShouldBeNil)

		Convey("When the staged files are discarded", func() {
			So(staged.Discard(), ShouldBeNil)

			Convey("Then the directory is untouched", func() {
				entries, _ := os.ReadDir(dir)
				So(len(entries), ShouldEqual, 1)
				data, _ := os.ReadFile(old)
				So(string(data), ShouldEqual, "old\n")
			})
		})

		Convey("When the staged files are committed", func() {
			committed, err := e.Commit(ctx, staged, paths)
			So(err, ShouldBeNil)
			So(staged.Discard(), ShouldBeNil)

			Convey("Then they replace the earlier files under the same names", func() {
				So(committed, ShouldResemble, []string{
					filepath.Join(dir, CSVFile(split.Train)),
					filepath.Join(dir, CSVFile(split.Validation)),
					filepath.Join(dir, CSVFile(split.Test)),
				})
				records := readCSV(t, old)
				So(len(records), ShouldEqual, 1)
				So(records[0][0], ShouldEqual, "result_id")
				entries, _ := os.ReadDir(dir)
				So(len(entries), ShouldEqual, 3)
			})
		})
	})
}
