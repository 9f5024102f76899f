package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	app "github.com/okian/tagrank/internal/app"
	"github.com/okian/tagrank/internal/config"
	"github.com/okian/tagrank/internal/scheduler"
	"github.com/okian/tagrank/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

func TestOpenStore(t *testing.T) {
	convey.Convey("Given a config", t, func() {
		cfg := config.New()

		convey.Convey("Without db_path no store is opened", func() {
			store, err := openStore(context.Background(), cfg)
			convey.So(err, convey.ShouldBeNil)
			convey.So(store, convey.ShouldBeNil)
			convey.So(closeStore(store), convey.ShouldBeNil)
		})

		convey.Convey("With db_path SQLite is opened", func() {
			cfg.DBPath = filepath.Join(t.TempDir(), "data", "tagrank.db")
			store, err := openStore(context.Background(), cfg)
			convey.So(err, convey.ShouldBeNil)
			convey.So(store, convey.ShouldNotBeNil)
			convey.So(closeStore(store), convey.ShouldBeNil)
		})
	})
}

func TestNewMux(t *testing.T) {
	convey.Convey("Given the server mux", t, func() {
		svc := app.New(app.WithWorkerCount(1), app.WithLogger(logger.Nop()))
		mux := newMux(context.Background(), config.New(), svc)

		for _, path := range []string{"/healthz", "/stats", "/openapi.yaml", "/api-docs", "/tags"} {
			req := httptest.NewRequest(http.MethodGet, path, http.NoBody)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
		}

		convey.Convey("Leaderboard limits are capped by config", func() {
			req := httptest.NewRequest(http.MethodGet, "/leaderboard?tag=t1&limit=101", http.NoBody)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			convey.So(w.Code, convey.ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestRun(t *testing.T) {
	convey.Convey("Given a config on a free port", t, func() {
		cfg := config.New()
		cfg.Addr = "127.0.0.1:0"
		cfg.WorkerCount = 1
		cfg.DBPath = filepath.Join(t.TempDir(), "tagrank.db")

		convey.Convey("run returns cleanly once the context ends", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
			defer cancel()
			convey.So(run(ctx, cfg, logger.Nop()), convey.ShouldBeNil)
		})

		convey.Convey("run starts the scheduler when configured", func() {
			cfg.AutoplaySchedule = "@every 1h"
			ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
			defer cancel()
			convey.So(run(ctx, cfg, logger.Nop()), convey.ShouldBeNil)
		})

		convey.Convey("a bad schedule fails before serving", func() {
			cfg.AutoplaySchedule = "not a schedule"
			err := run(context.Background(), cfg, logger.Nop())
			convey.So(errors.Is(err, scheduler.ErrInvalidSchedule), convey.ShouldBeTrue)
		})

		convey.Convey("a taken address is reported", func() {
			ln := httptest.NewServer(http.NotFoundHandler())
			defer ln.Close()
			cfg.Addr = ln.Listener.Addr().String()
			err := run(context.Background(), cfg, logger.Nop())
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestMetricsUpdaters(t *testing.T) {
	convey.Convey("Given a started service", t, func() {
		svc := app.New(app.WithWorkerCount(2), app.WithLogger(logger.Nop()))
		convey.So(svc.Start(context.Background()), convey.ShouldBeNil)
		defer func() { _ = svc.Stop(context.Background()) }()

		convey.So(func() { updateSystemMetrics() }, convey.ShouldNotPanic)
		convey.So(func() { updateServiceMetrics(context.Background(), svc) }, convey.ShouldNotPanic)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		convey.So(func() {
			startSystemMetricsUpdater(ctx)
			startServiceMetricsUpdater(ctx, svc)
		}, convey.ShouldNotPanic)
	})
}
