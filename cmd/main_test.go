package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/okian/pitwall/internal/adapters/export"
	"github.com/okian/pitwall/internal/adapters/warehouse"
	"github.com/okian/pitwall/internal/domain/features"
	"github.com/okian/pitwall/internal/toydata"
	"github.com/smartystreets/goconvey/convey"
)

// toyEnv writes a small SQLite warehouse and points the config at it.
func toyEnv(t *testing.T) (outDir string) {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()
	dsn := filepath.Join(dir, "warehouse.db")

	w, err := warehouse.Open(ctx, warehouse.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	d, err := toydata.Generate(toydata.Config{StartYear: 2015, Seasons: 5, Rounds: 2, Drivers: 6, Venues: 2})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if err := d.Write(ctx, w.DB(), ""); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	outDir = filepath.Join(dir, "features")
	t.Setenv("PITWALL_CONFIG", "")
	t.Setenv("PITWALL_LOG_LEVEL", "error")
	t.Setenv("PITWALL_WAREHOUSE_DRIVER", "sqlite")
	t.Setenv("PITWALL_WAREHOUSE_DSN", dsn)
	t.Setenv("PITWALL_OUTPUT_DIR", outDir)
	t.Setenv("PITWALL_OUTPUT_PARQUET", "false")
	t.Setenv("PITWALL_OUTPUT_TABLE", "true")
	t.Setenv("PITWALL_OUTPUT_METRICS_FILE", filepath.Join(outDir, "pitwall.prom"))
	return outDir
}

func TestRunCommands(t *testing.T) {
	convey.Convey("Given the pitwall command line", t, func() {
		ctx := context.Background()
		var out bytes.Buffer

		convey.Convey("When the command is unknown", func() {
			err := run(ctx, []string{"train"}, &out)

			convey.Convey("Then usage is reported", func() {
				convey.So(errors.Is(err, errUsage), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When too many arguments are given", func() {
			err := run(ctx, []string{"build", "now"}, &out)

			convey.Convey("Then usage is reported", func() {
				convey.So(errors.Is(err, errUsage), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When columns are listed", func() {
			err := run(ctx, []string{"columns"}, &out)
			lines := strings.Split(strings.TrimSpace(out.String()), "\n")

			convey.Convey("Then every registry column is printed under a header", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(len(lines), convey.ShouldEqual, len(features.Columns())+1)
				convey.So(lines[0], convey.ShouldStartWith, "NAME")
				convey.So(lines[1], convey.ShouldStartWith, "result_id")
				convey.So(lines[len(lines)-1], convey.ShouldStartWith, features.ColumnSplit)
			})
		})
	})
}

func TestRunBuild(t *testing.T) {
	convey.Convey("Given a toy warehouse configured through the environment", t, func() {
		ctx := context.Background()
		outDir := toyEnv(t)
		var out bytes.Buffer

		convey.Convey("When the default command runs", func() {
			err := run(ctx, nil, &out)

			convey.Convey("Then the feature files are written", func() {
				convey.So(err, convey.ShouldBeNil)
				m, err := export.ReadManifest(filepath.Join(outDir, export.ManifestFile))
				convey.So(err, convey.ShouldBeNil)
				convey.So(m.Rows, convey.ShouldEqual, 5*2*6)
				_, err = os.Stat(filepath.Join(outDir, export.CSVFile("test")))
				convey.So(err, convey.ShouldBeNil)
				_, err = os.Stat(filepath.Join(outDir, "pitwall.prom"))
				convey.So(err, convey.ShouldBeNil)
			})

			convey.Convey("And inspect lists the written feature table", func() {
				out.Reset()
				err := run(ctx, []string{"inspect"}, &out)
				convey.So(err, convey.ShouldBeNil)
				convey.So(out.String(), convey.ShouldContainSubstring, "results")
				convey.So(out.String(), convey.ShouldContainSubstring, "features")
			})
		})

		convey.Convey("When the split boundaries are invalid", func() {
			t.Setenv("PITWALL_SPLIT_TRAIN_END_YEAR", "2020")
			err := run(ctx, []string{"build"}, &out)

			convey.Convey("Then configuration loading fails", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "load config")
			})
		})
	})
}
