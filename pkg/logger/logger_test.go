package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLoggerInit(t *testing.T) {
	Convey("Given the global logger", t, func() {
		Convey("When initialized with defaults", func() {
			err := Init()

			Convey("Then Get returns a usable logger", func() {
				So(err, ShouldBeNil)
				So(Get(), ShouldNotBeNil)
				So(Sync(), ShouldBeNil)
			})
		})

		Convey("When initialized with an unknown format", func() {
			err := Init(WithFormat("xml"))

			Convey("Then it should fail", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}

func TestLoggerJSONOutput(t *testing.T) {
	Convey("Given a JSON logger writing to a buffer", t, func() {
		var buf bytes.Buffer
		So(Init(WithFormat(FormatJSON), WithOutput(&buf)), ShouldBeNil)
		ctx := context.Background()

		Convey("When logging with fields", func() {
			Named("store").Info(ctx, "rows loaded",
				Int("rows", 35),
				String("driver", "sqlite"),
				Bool("ok", true),
				Duration("took", 1500*time.Millisecond),
			)

			Convey("Then the record carries the group and fields", func() {
				var rec map[string]any
				So(json.Unmarshal(buf.Bytes(), &rec), ShouldBeNil)
				So(rec["msg"], ShouldEqual, "rows loaded")
				group, ok := rec["store"].(map[string]any)
				So(ok, ShouldBeTrue)
				So(group["rows"], ShouldEqual, 35.0)
				So(group["driver"], ShouldEqual, "sqlite")
				So(group["took"], ShouldEqual, "1.5s")
				So(group["source"], ShouldContainSubstring, "logger_test.go")
			})
		})

		Convey("When logging through a logger with bound fields", func() {
			Get().With(String("run_id", "r-1")).Warn(ctx, "empty partition", String("partition", "test"))

			Convey("Then the bound field is on the record", func() {
				var rec map[string]any
				So(json.Unmarshal(buf.Bytes(), &rec), ShouldBeNil)
				So(rec["run_id"], ShouldEqual, "r-1")
				So(rec["partition"], ShouldEqual, "test")
			})
		})

		Convey("When the level filters the message", func() {
			So(SetLevelString("warn"), ShouldBeNil)
			Get().Info(ctx, "hidden")
			Get().Warn(ctx, "shown")
			So(SetLevelString("info"), ShouldBeNil)

			Convey("Then only the warning is written", func() {
				So(strings.Contains(buf.String(), "hidden"), ShouldBeFalse)
				So(strings.Contains(buf.String(), "shown"), ShouldBeTrue)
			})
		})
	})
}

func TestSetLevelString(t *testing.T) {
	Convey("Given level strings", t, func() {
		for _, lvl := range []string{"debug", "INFO", "", "warning", "error"} {
			So(SetLevelString(lvl), ShouldBeNil)
		}
		So(SetLevelString("loud"), ShouldNotBeNil)
		So(SetLevelString("info"), ShouldBeNil)
	})
}

func TestNop(t *testing.T) {
	Convey("Given a nop logger", t, func() {
		l := Nop()

		Convey("Then logging never panics", func() {
			So(func() {
				l.Info(context.Background(), "nothing", Int("n", 1))
				l.Named("x").Error(context.Background(), "nothing")
			}, ShouldNotPanic)
		})
	})
}
