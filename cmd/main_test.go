package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	app "github.com/okian/growthdesk/internal/app"
	"github.com/okian/growthdesk/internal/config"
	"github.com/okian/growthdesk/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func TestMainFunction(t *testing.T) {
	convey.Convey("Given the main application", t, func() {
		convey.Convey("When loading configuration from the environment", func() {
			t.Setenv("GROWTHDESK_ADDR", ":8080")
			t.Setenv("GROWTHDESK_MAX_CANDIDATES", "1000")
			t.Setenv("GROWTHDESK_NAME_FALLBACK", "false")

			cfg, err := config.Load(context.Background())

			convey.Convey("Then the overrides are applied", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.MaxCandidates, convey.ShouldEqual, 1000)
				convey.So(cfg.NameFallback, convey.ShouldBeFalse)
			})
		})

		convey.Convey("When building the service from configuration", func() {
			cfg := config.New()
			cfg.DBPath = filepath.Join(t.TempDir(), "main.db")
			cfg.NameFallback = false
			svc := newService(cfg, logger.Get())

			convey.Convey("Then the settings reach the service", func() {
				stats := svc.GetStats()
				convey.So(stats["nameFallback"], convey.ShouldEqual, false)
				convey.So(stats["maxCandidates"], convey.ShouldEqual, cfg.MaxCandidates)
				convey.So(stats["dbPath"], convey.ShouldEqual, cfg.DBPath)
				convey.So(stats["referenceTTLMs"], convey.ShouldEqual, int64(cfg.ReferenceCacheTTLMS))
			})
		})
	})
}

func TestMainMux(t *testing.T) {
	convey.Convey("Given the full route table", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		svc := app.New(app.WithDatabasePath(filepath.Join(t.TempDir(), "mux.db")))
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()
		mux := newMux(ctx, svc)

		get := func(path string) *httptest.ResponseRecorder {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
			return w
		}

		convey.Convey("Then the API, docs and console are served", func() {
			convey.So(get("/healthz").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/clients").Body.String(), convey.ShouldEqual, "[]\n")
			convey.So(get("/openapi.yaml").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/api-docs").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/").Body.String(), convey.ShouldContainSubstring, "growthdesk")
			convey.So(get("/engagement/searches").Body.String(), convey.ShouldEqual, "[]\n")
			convey.So(get("/stats").Body.String(), convey.ShouldContainSubstring, `"storeReachable":true`)
		})

		convey.Convey("And a filter round trip works", func() {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/filter",
				strings.NewReader(`{"client":"acme","candidates":[{"name":"Ann"}]}`)))
			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			convey.So(w.Body.String(), convey.ShouldContainSubstring, `"final":1`)
		})
	})
}

func TestMainApplicationComponents(t *testing.T) {
	convey.Convey("Given main application components", t, func() {
		convey.Convey("When the system metrics updater runs until cancelled", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()

			convey.So(func() { startSystemMetricsUpdater(ctx) }, convey.ShouldNotPanic)
		})

		convey.Convey("When the service metrics updater runs on a stopped service", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()

			convey.So(func() { startServiceMetricsUpdater(ctx, app.New()) }, convey.ShouldNotPanic)
		})

		convey.Convey("When updating system metrics", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
		})
	})
}

func TestMainApplicationErrorHandling(t *testing.T) {
	convey.Convey("Given invalid configuration", t, func() {
		t.Setenv("GROWTHDESK_DB_PATH", "")
		t.Setenv("GROWTHDESK_RECENT_DEFAULT_LIMIT", "0")

		convey.Convey("When running the application", func() {
			err := run(context.Background())

			convey.Convey("Then it fails before serving", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}
