package service_test

import (
	"context"
	"testing"
	"time"

	service "github.com/okian/songlab/internal/app"
	"github.com/okian/songlab/internal/domain/model"
	"github.com/okian/songlab/internal/domain/scoring"
	"github.com/okian/songlab/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func sampleResult() model.AnalysisResult {
	return model.AnalysisResult{
		Metrics: model.MetricsRecord{
			model.MetricF0MeanHz:       348,
			model.MetricF0MedianHz:     342,
			model.MetricF2Hz:           1890,
			model.MetricChestHeadRatio: 1.42,
			model.MetricClarity:        0.68,
			model.MetricPowerDB:        -11.7,
		},
		Interpretation: "Warm tone. Solid support. Watch the top notes. Practise sirens daily.",
	}
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it should have sensible defaults", func() {
			So(svc, ShouldNotBeNil)
			stats := svc.GetStats()
			So(stats["started"], ShouldEqual, false)
			So(stats["queueSize"], ShouldEqual, 10000)
			So(stats["axes"], ShouldEqual, len(scoring.DefaultAxes()))
		})
	})

	Convey("Given a new service with custom options", t, func() {
		svc := service.New(
			service.WithWorkerCount(3),
			service.WithQueueSize(500),
			service.WithDedupeSize(250),
			service.WithStoreCapacity(20),
			service.WithAxes(scoring.DefaultAxes()[:2]),
		)

		Convey("Then the options should be reflected in stats", func() {
			stats := svc.GetStats()
			So(stats["workerCount"], ShouldEqual, 3)
			So(stats["queueSize"], ShouldEqual, 500)
			So(stats["dedupeSize"], ShouldEqual, 250)
			So(stats["storeCapacity"], ShouldEqual, 20)
			So(stats["axes"], ShouldEqual, 2)
		})

		Convey("Then invalid values should keep the defaults", func() {
			svc := service.New(service.WithWorkerCount(-1), service.WithQueueSize(0))
			stats := svc.GetStats()
			So(stats["queueSize"], ShouldEqual, 10000)
			So(stats["workerCount"].(int), ShouldBeGreaterThan, 0)
		})
	})
}

func TestService_Start(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := service.New(service.WithWorkerCount(2))
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		defer func() { _ = svc.Stop(ctx) }()

		Convey("When starting the service", func() {
			err := svc.Start(ctx)

			Convey("Then it should start successfully", func() {
				So(err, ShouldBeNil)
			})

			Convey("And it should be marked as started", func() {
				stats := svc.GetStats()
				So(stats["started"], ShouldEqual, true)
				So(stats["queueLength"], ShouldEqual, 0)
				So(stats["storedReports"], ShouldEqual, 0)
			})

			Convey("And a second Start should be a no-op", func() {
				So(svc.Start(ctx), ShouldBeNil)
			})
		})
	})
}

func TestService_InjectedLogger(t *testing.T) {
	Convey("Given a service with a discarding logger", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		Convey("Then it should build, start and score without the global logger", func() {
			var svc *service.Service
			So(func() {
				svc = service.New(service.WithWorkerCount(1), service.WithLogger(logger.Discard()))
			}, ShouldNotPanic)
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Enqueue(ctx, model.Submission{ResultID: "quiet-1", Result: sampleResult()}), ShouldBeTrue)
			So(svc.Stop(ctx), ShouldBeNil)
		})
	})
}

func TestService_Stop(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc := service.New(service.WithWorkerCount(2))
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		So(svc.Start(ctx), ShouldBeNil)

		Convey("When stopping the service", func() {
			So(svc.Stop(ctx), ShouldBeNil)

			Convey("Then it should be marked as stopped", func() {
				So(svc.GetStats()["started"], ShouldEqual, false)
			})

			Convey("And submissions should be refused", func() {
				ok := svc.Enqueue(ctx, model.Submission{ResultID: "late", Result: sampleResult()})
				So(ok, ShouldBeFalse)
			})

			Convey("And stopping again should be a no-op", func() {
				So(svc.Stop(ctx), ShouldBeNil)
			})
		})
	})
}

func TestService_BeforeStart(t *testing.T) {
	Convey("Given a service that was never started", t, func() {
		svc := service.New()
		ctx := context.Background()

		Convey("Then synchronous scoring should still work", func() {
			report := svc.Evaluate(sampleResult())
			So(report.TypeCode, ShouldEqual, "BLCP")
		})

		Convey("Then store lookups should report it is not started", func() {
			_, err := svc.Get(ctx, "x")
			So(err, ShouldEqual, service.ErrNotStarted)
			_, err = svc.Recent(ctx, 1)
			So(err, ShouldEqual, service.ErrNotStarted)
		})

		Convey("Then deduplication should be inert", func() {
			So(svc.SeenAndRecord(ctx, "x"), ShouldBeFalse)
			svc.Unrecord(ctx, "x")
			So(svc.Size(), ShouldEqual, 0)
		})

		Convey("Then Enqueue should refuse", func() {
			So(svc.Enqueue(ctx, model.Submission{ResultID: "x"}), ShouldBeFalse)
		})
	})
}

func TestService_Dedupe(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc := service.New(service.WithWorkerCount(1))
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		Convey("When an id is recorded twice", func() {
			first := svc.SeenAndRecord(ctx, "r-1")
			second := svc.SeenAndRecord(ctx, "r-1")

			Convey("Then only the second should be a duplicate", func() {
				So(first, ShouldBeFalse)
				So(second, ShouldBeTrue)
				So(svc.Size(), ShouldEqual, 1)
			})

			Convey("And unrecording should allow a retry", func() {
				svc.Unrecord(ctx, "r-1")
				So(svc.SeenAndRecord(ctx, "r-1"), ShouldBeFalse)
			})
		})
	})
}
