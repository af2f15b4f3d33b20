package loadtest

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/httcp/internal/adapters/http/api"
	"github.com/okian/httcp/internal/adapters/repository"
	service "github.com/okian/httcp/internal/app"
	"github.com/okian/httcp/pkg/logger"
)

func init() {
	if err := logger.InitWithFormat(logger.FormatText, io.Discard); err != nil {
		panic(err)
	}
}

func TestRun(t *testing.T) {
	convey.Convey("Given a running selection service", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		svc, err := service.New(service.WithWorkerCount(2), service.WithChunkSize(64))
		convey.So(err, convey.ShouldBeNil)
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		mux := http.NewServeMux()
		api.NewServer(svc).Register(mux)
		srv := httptest.NewServer(mux)
		defer srv.Close()

		cfg := DefaultConfig()
		cfg.BaseURL = srv.URL
		cfg.Requests = 12
		cfg.EventsPerRequest = 150
		cfg.Workers = 3
		cfg.Sample.DuplicateFraction = 0.1

		convey.Convey("When the load test runs", func() {
			stats, err := Run(ctx, cfg)

			convey.Convey("Then the cutflow matches the responses", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(stats.Succeeded, convey.ShouldEqual, 12)
				convey.So(stats.Failed, convey.ShouldEqual, 0)
				convey.So(stats.Events, convey.ShouldEqual, 12*150)
				convey.So(stats.Duplicates, convey.ShouldBeGreaterThan, 0)
				convey.So(stats.Selected, convey.ShouldBeGreaterThan, 0)
			})

			convey.Convey("And a second run with the same seed sees only duplicates", func() {
				convey.So(err, convey.ShouldBeNil)
				again, err := Run(ctx, cfg)
				convey.So(err, convey.ShouldBeNil)
				convey.So(again.Duplicates, convey.ShouldEqual, again.Events)
				convey.So(again.Selected, convey.ShouldEqual, 0)
			})
		})
	})

	convey.Convey("Given an unreachable service", t, func() {
		cfg := DefaultConfig()
		cfg.BaseURL = "http://127.0.0.1:1"
		cfg.Timeout = time.Second

		convey.Convey("Then the health check fails", func() {
			_, err := Run(context.Background(), cfg)
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestVerify(t *testing.T) {
	convey.Convey("Given cutflow records before and after a run", t, func() {
		before := repository.Cutflow{Events: 10, Selected: 4, Duplicates: 1}
		after := repository.Cutflow{Events: 20, Selected: 9, Duplicates: 3}

		convey.Convey("When the responses agree", func() {
			s := &Stats{Events: 12, Duplicates: 2, Selected: 5}
			convey.So(verify(before, after, s), convey.ShouldBeNil)
		})

		convey.Convey("When the responses disagree", func() {
			s := &Stats{Events: 12, Duplicates: 2, Selected: 6}
			convey.So(verify(before, after, s), convey.ShouldWrap, ErrMismatch)
		})
	})
}

func TestConfigValidate(t *testing.T) {
	convey.Convey("Given the default configuration", t, func() {
		convey.So(DefaultConfig().Validate(), convey.ShouldBeNil)

		convey.Convey("Then non-positive workers are rejected", func() {
			cfg := DefaultConfig()
			cfg.Workers = 0
			convey.So(cfg.Validate(), convey.ShouldWrap, ErrInvalidConfig)
		})
	})
}
