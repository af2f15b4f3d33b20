package main

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/smartystreets/goconvey/convey"
	"gopkg.in/yaml.v3"

	"github.com/okian/httcp/internal/adapters/columnar"
	"github.com/okian/httcp/internal/adapters/repository"
	"github.com/okian/httcp/internal/domain/model"
	"github.com/okian/httcp/internal/domain/types"
)

func execute(args ...string) (string, error) {
	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestGenerateCommand(t *testing.T) {
	convey.Convey("Given the generate command", t, func() {
		convey.Convey("When writing a request to stdout", func() {
			out, err := execute("generate", "--events", "25", "--seed", "7")
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then the output is a decodable select request", func() {
				var req types.SelectRequest
				convey.So(json.Unmarshal([]byte(out), &req), convey.ShouldBeNil)
				convey.So(req.Channel, convey.ShouldEqual, "etau")
				convey.So(req.Events, convey.ShouldHaveLength, 25)
			})
		})

		convey.Convey("When writing a Parquet file in several batches", func() {
			path := filepath.Join(t.TempDir(), "events.parquet")
			_, err := execute("generate", "--events", "300", "--batch-size", "128", "--out", path)
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then every event can be read back", func() {
				batches, err := columnar.ReadFile(t.Context(), path, model.ETau)
				convey.So(err, convey.ShouldBeNil)
				total := 0
				for _, b := range batches {
					total += b.Len()
				}
				convey.So(total, convey.ShouldEqual, 300)
			})
		})

		convey.Convey("When the output extension is unknown", func() {
			_, err := execute("generate", "--events", "10", "--out", filepath.Join(t.TempDir(), "events.csv"))

			convey.Convey("Then the command fails", func() {
				convey.So(err, convey.ShouldWrap, columnar.ErrUnsupportedFormat)
			})
		})

		convey.Convey("When the channel is unknown", func() {
			_, err := execute("generate", "--channel", "tautau")

			convey.Convey("Then configuration validation fails", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})
	})
}

func TestSelectCommand(t *testing.T) {
	convey.Convey("Given a generated mu-tau sample", t, func() {
		dir := t.TempDir()
		input := filepath.Join(dir, "sample.arrow")
		_, err := execute("generate", "--channel", "mutau", "--events", "400", "--signal-fraction", "1", "--out", input)
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("When selecting it with a report and histograms", func() {
			outDir := filepath.Join(dir, "out")
			report := filepath.Join(dir, "report.yaml")
			hists := filepath.Join(dir, "hists.yoda")
			_, err := execute("select", "--channel", "mutau", "--out-dir", outDir,
				"--report", report, "--histograms", hists, "--jobs", "2", input)
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then the report holds the cutflow of every event", func() {
				raw, err := os.ReadFile(report)
				convey.So(err, convey.ShouldBeNil)
				var snap repository.Snapshot
				convey.So(yaml.Unmarshal(raw, &snap), convey.ShouldBeNil)
				convey.So(snap.Channels, convey.ShouldHaveLength, 1)

				cf := snap.Channels[0]
				convey.So(cf.Channel, convey.ShouldEqual, "mutau")
				convey.So(cf.Events, convey.ShouldEqual, 400)
				convey.So(cf.Selected, convey.ShouldBeGreaterThan, 0)
				convey.So(cf.Selected, convey.ShouldBeLessThanOrEqualTo, cf.Events)
				convey.So(cf.Steps, convey.ShouldHaveLength, 3)
				convey.So(cf.Steps[0].Name, convey.ShouldEqual, "opposite_sign")
			})

			convey.Convey("And a result file is written per input", func() {
				_, err := os.Stat(filepath.Join(outDir, "sample.pairs.arrow"))
				convey.So(err, convey.ShouldBeNil)
			})

			convey.Convey("And the histograms are written as YODA", func() {
				raw, err := os.ReadFile(hists)
				convey.So(err, convey.ShouldBeNil)
				convey.So(string(raw), convey.ShouldContainSubstring, "BEGIN YODA_HISTO1D")
			})
		})

		convey.Convey("When the report goes to stdout", func() {
			out, err := execute("select", "--channel", "mutau", input)
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then stdout carries the YAML report", func() {
				convey.So(out, convey.ShouldContainSubstring, "channel: mutau")
			})
		})

		convey.Convey("When an input is missing", func() {
			_, err := execute("select", filepath.Join(dir, "missing.parquet"))

			convey.Convey("Then the command fails", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})
	})
}

func TestResultPath(t *testing.T) {
	convey.Convey("Given an input path", t, func() {
		convey.So(resultPath("out", "/data/run1/events.parquet"), convey.ShouldEqual, filepath.Join("out", "events.pairs.parquet"))
		convey.So(resultPath("out", "b.arrow"), convey.ShouldEqual, filepath.Join("out", "b.pairs.arrow"))
	})
}
