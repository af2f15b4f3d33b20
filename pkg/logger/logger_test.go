package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestInit(t *testing.T) {
	Convey("Given the default initialization", t, func() {
		So(Init(), ShouldBeNil)
		defer func() { So(Sync(), ShouldBeNil) }()

		Convey("Then the global and named loggers are available", func() {
			So(Get(), ShouldNotBeNil)
			So(Named("test"), ShouldNotBeNil)
		})
	})
}

func TestInitWithFormat(t *testing.T) {
	ctx := context.Background()

	Convey("Given a JSON logger", t, func() {
		var buf bytes.Buffer
		So(InitWithFormat(FormatJSON, &buf), ShouldBeNil)
		SetLevel(slog.LevelInfo)

		Convey("When logging typed fields through a named logger", func() {
			Named("selection").Info(ctx, "chunk done",
				Int("events", 10),
				Int64("pairs", 42),
				Bool("duplicate", false),
				Duration("took", time.Millisecond),
				Error(errors.New("boom")),
			)

			Convey("Then one JSON record is written under the group", func() {
				var rec map[string]interface{}
				So(json.Unmarshal(buf.Bytes(), &rec), ShouldBeNil)
				So(rec["msg"], ShouldEqual, "chunk done")
				group, ok := rec["selection"].(map[string]interface{})
				So(ok, ShouldBeTrue)
				So(group["events"], ShouldEqual, float64(10))
				So(group["source"], ShouldContainSubstring, "logger_test.go")
			})
		})

		Convey("When the level filters the record", func() {
			So(SetLevelString("error"), ShouldBeNil)
			Get().Debug(ctx, "hidden")
			So(buf.Len(), ShouldEqual, 0)
			So(SetLevelString("info"), ShouldBeNil)
		})
	})

	Convey("Given a text logger", t, func() {
		var buf bytes.Buffer
		So(InitWithFormat(FormatText, &buf), ShouldBeNil)
		Get().Warn(ctx, "hello", String("k", "v"))
		So(strings.Contains(buf.String(), "k=v"), ShouldBeTrue)
	})

	Convey("Given an unknown format", t, func() {
		So(InitWithFormat("xml", &bytes.Buffer{}), ShouldNotBeNil)
	})

	Convey("Given an unknown level", t, func() {
		So(SetLevelString("loud"), ShouldNotBeNil)
	})
}
