package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	app "github.com/okian/songlab/internal/app"
	"github.com/okian/songlab/internal/config"
	"github.com/okian/songlab/internal/domain/model"
	"github.com/okian/songlab/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

const sampleBody = `{"result_id":"main-1","metrics":{"f2_hz":1890,"chest_head_ratio":1.42,"clarity":0.68,"power_db":-11.7,"f0_mean_hz":348,"f0_median_hz":342},"interpretation":"Warm tone. Solid support."}`

func get(url string) (int, string) {
	resp, err := http.Get(url) //nolint:noctx // test helper
	if err != nil {
		return 0, err.Error()
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestNewMux(t *testing.T) {
	convey.Convey("Given the assembled application", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		cfg := config.New(ctx)
		cfg.WorkerCount = 2
		log := logger.Discard()

		svc := newService(cfg, log)
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		mux, apiServer := newMux(ctx, cfg, svc, log)
		convey.So(apiServer, convey.ShouldNotBeNil)
		ts := httptest.NewServer(mux)
		defer ts.Close()

		convey.Convey("When the static page is requested", func() {
			status, body := get(ts.URL + "/")

			convey.Convey("Then the meter page should be served", func() {
				convey.So(status, convey.ShouldEqual, http.StatusOK)
				convey.So(body, convey.ShouldContainSubstring, "/v1/monitor")
			})
		})

		convey.Convey("When the API document is requested", func() {
			status, body := get(ts.URL + "/openapi.yaml")

			convey.Convey("Then it should be served", func() {
				convey.So(status, convey.ShouldEqual, http.StatusOK)
				convey.So(body, convey.ShouldContainSubstring, "/v1/results")
			})
		})

		convey.Convey("When a result is submitted and fetched", func() {
			resp, err := http.Post(ts.URL+"/v1/results", "application/json", bytes.NewBufferString(sampleBody)) //nolint:noctx // test
			convey.So(err, convey.ShouldBeNil)
			_ = resp.Body.Close()
			convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusAccepted)

			var status int
			var body string
			deadline := time.Now().Add(5 * time.Second)
			for time.Now().Before(deadline) {
				status, body = get(ts.URL + "/v1/results/main-1")
				if status == http.StatusOK {
					break
				}
				time.Sleep(10 * time.Millisecond)
			}

			convey.Convey("Then the scored report should be returned", func() {
				convey.So(status, convey.ShouldEqual, http.StatusOK)
				var report model.Report
				convey.So(json.Unmarshal([]byte(body), &report), convey.ShouldBeNil)
				convey.So(report.ResultID, convey.ShouldEqual, "main-1")
				convey.So(report.TypeCode, convey.ShouldEqual, "BLCP")
			})
		})

		convey.Convey("When stats are requested", func() {
			status, body := get(ts.URL + "/stats")

			convey.Convey("Then the service should report as started", func() {
				convey.So(status, convey.ShouldEqual, http.StatusOK)
				convey.So(body, convey.ShouldContainSubstring, `"started":true`)
			})
		})
	})
}

func TestWaitMonitors(t *testing.T) {
	convey.Convey("Given a server with no open monitor sessions", t, func() {
		cfg := config.New(context.Background())
		svc := app.New()
		_, apiServer := newMux(context.Background(), cfg, svc, logger.Discard())

		convey.Convey("Then waiting should return immediately", func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			start := time.Now()
			waitMonitors(ctx, apiServer.Monitor(), logger.Discard())
			convey.So(time.Since(start) < 500*time.Millisecond, convey.ShouldBeTrue)
		})
	})
}

func TestSystemMetrics(t *testing.T) {
	convey.Convey("Given the system metrics updater", t, func() {
		convey.Convey("Then a single update should not panic", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
		})

		convey.Convey("Then the loop should return once the context ends", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()
			done := make(chan struct{})
			go func() {
				startSystemMetricsUpdater(ctx)
				close(done)
			}()
			stopped := false
			select {
			case <-done:
				stopped = true
			case <-time.After(2 * time.Second):
			}
			convey.So(stopped, convey.ShouldBeTrue)
		})
	})
}
