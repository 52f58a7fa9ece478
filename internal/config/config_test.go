package config_test

import (
	"context"
	"errors"
	"runtime"
	"testing"

	"github.com/okian/pitwall/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.Window.Recent, convey.ShouldEqual, 5)
			convey.So(cfg.Window.DNF, convey.ShouldEqual, 10)
			convey.So(cfg.Split.TrainEndYear, convey.ShouldEqual, 2016)
			convey.So(cfg.Split.TestStartYear, convey.ShouldEqual, 2019)
			convey.So(cfg.Warehouse.Driver, convey.ShouldEqual, config.DriverSQLite)
			convey.So(cfg.Output.CSV, convey.ShouldBeTrue)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a valid default config", t, func() {
		cfg := config.New(context.Background())

		cases := []struct {
			name   string
			mutate func(c *config.Config)
		}{
			{"empty addr", func(c *config.Config) { c.Addr = "" }},
			{"zero workers", func(c *config.Config) { c.WorkerCount = 0 }},
			{"zero recent window", func(c *config.Config) { c.Window.Recent = 0 }},
			{"negative dnf window", func(c *config.Config) { c.Window.DNF = -1 }},
			{"equal boundaries", func(c *config.Config) { c.Split.TestStartYear = c.Split.TrainEndYear }},
			{"inverted boundaries", func(c *config.Config) { c.Split.TrainEndYear, c.Split.TestStartYear = 2020, 2010 }},
			{"unknown driver", func(c *config.Config) { c.Warehouse.Driver = "postgres" }},
			{"parquet dir on sqlite", func(c *config.Config) { c.Warehouse.ParquetDir = "/tmp/raw" }},
			{"empty output dir", func(c *config.Config) { c.Output.Dir = "" }},
		}

		for _, tc := range cases {
			convey.Convey("When it has "+tc.name, func() {
				broken := *cfg
				tc.mutate(&broken)

				convey.Convey("Then validation fails with ErrInvalidConfig", func() {
					convey.So(errors.Is(broken.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
				})
			})
		}

		convey.Convey("When parquet_dir is used with duckdb", func() {
			cfg.Warehouse.Driver = config.DriverDuckDB
			cfg.Warehouse.ParquetDir = "/tmp/raw"

			convey.Convey("Then it is accepted", func() {
				convey.So(cfg.Validate(), convey.ShouldBeNil)
			})
		})
	})
}
