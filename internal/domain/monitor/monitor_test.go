package monitor_test

import (
	"context"
	"errors"
	"io"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	model "github.com/okian/songlab/internal/domain/model"
	monitor "github.com/okian/songlab/internal/domain/monitor"
	. "github.com/smartystreets/goconvey/convey"
)

// window builds a square wave whose RMS equals amp.
func window(amp float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		if i%2 == 0 {
			out[i] = amp
		} else {
			out[i] = -amp
		}
	}
	return out
}

func closedWithin(ch <-chan struct{}, d time.Duration) bool {
	select {
	case <-ch:
		return true
	case <-time.After(d):
		return false
	}
}

type fakeStream struct {
	mu        sync.Mutex
	amp       float64
	reads     int
	failAfter int
	failErr   error
	closes    int32
}

func (f *fakeStream) ReadWindow(dst []float64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if f.failErr != nil && f.reads > f.failAfter {
		return 0, f.failErr
	}
	copy(dst, window(f.amp, len(dst)))
	return len(dst), nil
}

func (f *fakeStream) Close() error {
	atomic.AddInt32(&f.closes, 1)
	return nil
}

func sourceOf(s monitor.Stream, err error) monitor.Source {
	return monitor.SourceFunc(func(context.Context) (monitor.Stream, error) {
		return s, err
	})
}

func TestRMSLevel(t *testing.T) {
	Convey("Given sample windows", t, func() {
		Convey("Then the RMS should be scaled to the meter range", func() {
			level, ok := monitor.RMSLevel(window(0.1, 64), 300)
			So(ok, ShouldBeTrue)
			So(level, ShouldAlmostEqual, 30, 1e-9)
		})

		Convey("Then loud input should clamp at 100", func() {
			level, _ := monitor.RMSLevel(window(1, 64), 300)
			So(level, ShouldEqual, 100)
		})

		Convey("Then non-finite samples should be skipped", func() {
			level, ok := monitor.RMSLevel([]float64{math.NaN(), 0.1, math.Inf(1), -0.1}, 300)
			So(ok, ShouldBeTrue)
			So(level, ShouldAlmostEqual, 30, 1e-9)

			_, ok = monitor.RMSLevel([]float64{math.NaN()}, 300)
			So(ok, ShouldBeFalse)
			_, ok = monitor.RMSLevel(nil, 300)
			So(ok, ShouldBeFalse)
		})
	})
}

func TestNoiseFloor(t *testing.T) {
	Convey("Given a level history", t, func() {
		cal := monitor.DefaultCalibration()
		levels := make([]float64, 0, 50)
		for i := 50; i >= 1; i-- {
			levels = append(levels, float64(i))
		}

		Convey("When fewer than fifty readings exist", func() {
			_, ok := monitor.NoiseFloor(levels[:49], cal)
			So(ok, ShouldBeFalse)
		})

		Convey("When fifty readings exist", func() {
			floor, ok := monitor.NoiseFloor(levels, cal)

			Convey("Then the 20th percentile should be used", func() {
				So(ok, ShouldBeTrue)
				So(floor, ShouldEqual, 11)
			})
		})
	})
}

func TestSNR(t *testing.T) {
	Convey("Given a noise floor", t, func() {
		cal := monitor.DefaultCalibration()

		Convey("Then a tenfold signal should be 20 dB", func() {
			db, ok := monitor.SNR(30, 3, cal)
			So(ok, ShouldBeTrue)
			So(db, ShouldAlmostEqual, 20, 1e-9)
		})

		Convey("Then a zero floor should use the epsilon and clamp at 40", func() {
			db, ok := monitor.SNR(50, 0, cal)
			So(ok, ShouldBeTrue)
			So(db, ShouldEqual, 40)
		})

		Convey("Then no contrast should give no estimate", func() {
			_, ok := monitor.SNR(3, 3, cal)
			So(ok, ShouldBeFalse)
			_, ok = monitor.SNR(2, 3, cal)
			So(ok, ShouldBeFalse)
		})

		Convey("Then raising the signal should never lower the SNR", func() {
			prev := 0.0
			for signal := 3.5; signal <= 100; signal += 0.5 {
				db, ok := monitor.SNR(signal, 3, cal)
				So(ok, ShouldBeTrue)
				So(db, ShouldBeGreaterThanOrEqualTo, prev)
				prev = db
			}
		})
	})
}

func TestClassify(t *testing.T) {
	Convey("Given the default thresholds", t, func() {
		cal := monitor.DefaultCalibration()

		Convey("Then boundaries should be strict", func() {
			So(monitor.Classify(25.0, cal), ShouldEqual, model.QualityGood)
			So(monitor.Classify(25.01, cal), ShouldEqual, model.QualityExcellent)
			So(monitor.Classify(20.0, cal), ShouldEqual, model.QualityFair)
			So(monitor.Classify(15.0, cal), ShouldEqual, model.QualityPoor)
			So(monitor.Classify(0, cal), ShouldEqual, model.QualityPoor)
			So(monitor.Classify(math.NaN(), cal), ShouldEqual, model.QualityUnknown)
		})
	})
}

func TestPhoneDistance(t *testing.T) {
	Convey("Given recent levels", t, func() {
		cal := monitor.DefaultCalibration()
		steady := make([]float64, 20)
		for i := range steady {
			steady[i] = 40
		}

		Convey("Then a steady moderate level should pass", func() {
			So(monitor.PhoneDistance(steady, cal), ShouldBeTrue)
		})

		Convey("Then a short history should not pass", func() {
			So(monitor.PhoneDistance(steady[:19], cal), ShouldBeFalse)
		})

		Convey("Then an unstable level should not pass", func() {
			jumpy := make([]float64, 20)
			for i := range jumpy {
				jumpy[i] = 20 + float64(i%2)*40
			}
			mean, variance := monitor.MeanVariance(jumpy)
			So(mean, ShouldEqual, 40)
			So(variance, ShouldEqual, 400)
			So(monitor.PhoneDistance(jumpy, cal), ShouldBeFalse)
		})

		Convey("Then a level outside the band should not pass", func() {
			loud := make([]float64, 20)
			for i := range loud {
				loud[i] = 90
			}
			So(monitor.PhoneDistance(loud, cal), ShouldBeFalse)
		})

		Convey("Then only the latest window should count", func() {
			history := append([]float64{100, 0, 100, 0}, steady...)
			So(monitor.PhoneDistance(history, cal), ShouldBeTrue)
		})
	})
}

func TestTick(t *testing.T) {
	Convey("Given a fresh monitor", t, func() {
		m := monitor.New()

		Convey("When fewer than fifty windows were sampled", func() {
			var snap model.QualitySnapshot
			for i := 0; i < 49; i++ {
				snap = m.Tick(window(0.01, 64))
			}

			Convey("Then there should be no estimates yet", func() {
				So(snap.Level, ShouldAlmostEqual, 3, 1e-9)
				So(snap.NoiseFloor, ShouldBeNil)
				So(snap.SNRDB, ShouldBeNil)
				So(snap.Quality, ShouldEqual, model.QualityUnknown)
				So(snap.Environment.BackgroundNoise, ShouldBeFalse)
				So(snap.Environment.PhoneDistance, ShouldBeFalse)
			})
		})

		Convey("When a quiet room is followed by a steady voice", func() {
			for i := 0; i < 40; i++ {
				m.Tick(window(0.01, 64))
			}
			var snap model.QualitySnapshot
			for i := 0; i < 10; i++ {
				snap = m.Tick(window(0.2, 64))
			}

			Convey("Then the floor, SNR and class should be estimated", func() {
				So(snap.Level, ShouldAlmostEqual, 60, 1e-9)
				So(*snap.NoiseFloor, ShouldAlmostEqual, 3, 1e-9)
				So(*snap.SNRDB, ShouldAlmostEqual, 26.0206, 1e-3)
				So(snap.Quality, ShouldEqual, model.QualityExcellent)
				So(snap.Environment.BackgroundNoise, ShouldBeTrue)
				So(snap.Environment.QuietLocation, ShouldBeTrue)
				So(snap.Environment.PhoneDistance, ShouldBeFalse)
			})

			Convey("And the voice holds for another twenty windows", func() {
				for i := 0; i < 20; i++ {
					snap = m.Tick(window(0.2, 64))
				}

				Convey("Then the distance check should pass", func() {
					So(snap.Environment.PhoneDistance, ShouldBeTrue)
					So(m.Snapshot().Environment.PhoneDistance, ShouldBeTrue)
				})
			})
		})

		Convey("When a window has no finite samples", func() {
			m.Tick(window(0.1, 64))
			snap := m.Tick([]float64{math.NaN(), math.Inf(-1)})
			empty := m.Tick(nil)

			Convey("Then the previous snapshot should be kept", func() {
				So(snap.Level, ShouldAlmostEqual, 30, 1e-9)
				So(empty.Level, ShouldAlmostEqual, 30, 1e-9)
			})
		})
	})

	Convey("Given a small rolling buffer", t, func() {
		cal := monitor.DefaultCalibration()
		cal.BufferCapacity = 10
		cal.NoiseFloorMinSamples = 5
		m := monitor.New(monitor.WithCalibration(cal))

		for i := 0; i < 10; i++ {
			m.Tick(window(0.2, 64))
		}
		var snap model.QualitySnapshot
		for i := 0; i < 10; i++ {
			snap = m.Tick(window(0.01, 64))
		}

		Convey("Then old readings should be evicted", func() {
			So(*snap.NoiseFloor, ShouldAlmostEqual, 3, 1e-9)
			So(snap.SNRDB, ShouldBeNil)
			So(snap.Quality, ShouldEqual, model.QualityUnknown)
		})
	})
}

func TestStartFailures(t *testing.T) {
	Convey("Given a monitor with an existing reading", t, func() {
		m := monitor.New()
		m.Tick(window(0.1, 64))

		Convey("When permission is denied", func() {
			err := m.Start(context.Background(), sourceOf(nil, monitor.ErrPermission))

			Convey("Then only the permission flag should change", func() {
				So(errors.Is(err, monitor.ErrPermission), ShouldBeTrue)
				So(monitor.FailureKind(err), ShouldEqual, "permission")
				snap := m.Snapshot()
				So(snap.Environment.MicPermission, ShouldBeFalse)
				So(snap.Level, ShouldAlmostEqual, 30, 1e-9)
				So(m.Running(), ShouldBeFalse)
				So(errors.Is(m.Err(), monitor.ErrPermission), ShouldBeTrue)
			})
		})

		Convey("When the source fails for an unknown reason", func() {
			err := m.Start(context.Background(), sourceOf(nil, errors.New("no such card")))

			Convey("Then it should surface as a device error", func() {
				So(errors.Is(err, monitor.ErrDevice), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "no such card")
			})
		})

		Convey("When the source is nil", func() {
			err := m.Start(context.Background(), nil)
			So(errors.Is(err, monitor.ErrNilSource), ShouldBeTrue)
		})
	})
}

func TestStartStop(t *testing.T) {
	Convey("Given a monitor with a live stream", t, func() {
		snaps := make(chan model.QualitySnapshot, 256)
		m := monitor.New(
			monitor.WithTickInterval(time.Millisecond),
			monitor.WithWindowSize(64),
			monitor.WithListener(func(s model.QualitySnapshot) {
				select {
				case snaps <- s:
				default:
				}
			}),
		)
		stream := &fakeStream{amp: 0.1}

		err := m.Start(context.Background(), sourceOf(stream, nil))
		So(err, ShouldBeNil)

		var first model.QualitySnapshot
		published := false
		select {
		case first = <-snaps:
			published = true
		case <-time.After(2 * time.Second):
		}
		So(published, ShouldBeTrue)

		Convey("Then snapshots should be published with mic permission", func() {
			So(first.Environment.MicPermission, ShouldBeTrue)
			So(first.Level, ShouldAlmostEqual, 30, 1e-9)
			So(m.Running(), ShouldBeTrue)
			So(m.Stop(), ShouldBeNil)
		})

		Convey("Then a second start should be rejected", func() {
			err := m.Start(context.Background(), sourceOf(&fakeStream{}, nil))
			So(errors.Is(err, monitor.ErrAlreadyRunning), ShouldBeTrue)
			So(m.Stop(), ShouldBeNil)
		})

		Convey("When stopped twice", func() {
			So(m.Stop(), ShouldBeNil)
			So(m.Stop(), ShouldBeNil)

			Convey("Then the stream should be closed exactly once", func() {
				So(atomic.LoadInt32(&stream.closes), ShouldEqual, 1)
				So(m.Running(), ShouldBeFalse)
			})

			Convey("Then no tick should run afterwards", func() {
				stream.mu.Lock()
				reads := stream.reads
				stream.mu.Unlock()
				time.Sleep(20 * time.Millisecond)
				stream.mu.Lock()
				defer stream.mu.Unlock()
				So(stream.reads, ShouldEqual, reads)
			})
		})
	})

	Convey("Given a monitor that was never started", t, func() {
		m := monitor.New()
		So(m.Stop(), ShouldBeNil)
		So(m.Done(), ShouldBeNil)
	})
}

func TestStopFromListener(t *testing.T) {
	Convey("Given a listener that stops the monitor on the first snapshot", t, func() {
		var m *monitor.Monitor
		var calls int32
		stopped := make(chan error, 1)
		m = monitor.New(
			monitor.WithTickInterval(time.Millisecond),
			monitor.WithWindowSize(64),
			monitor.WithListener(func(model.QualitySnapshot) {
				if atomic.AddInt32(&calls, 1) == 1 {
					stopped <- m.Stop()
				}
			}),
		)
		stream := &fakeStream{amp: 0.1}
		So(m.Start(context.Background(), sourceOf(stream, nil)), ShouldBeNil)
		done := m.Done()

		Convey("Then Stop should return without deadlocking", func() {
			var err error
			returned := false
			select {
			case err = <-stopped:
				returned = true
			case <-time.After(2 * time.Second):
			}
			So(returned, ShouldBeTrue)
			So(err, ShouldBeNil)

			Convey("And the session should end with the stream closed once", func() {
				So(closedWithin(done, 2*time.Second), ShouldBeTrue)
				So(atomic.LoadInt32(&stream.closes), ShouldEqual, 1)
				So(atomic.LoadInt32(&calls), ShouldEqual, 1)
				So(m.Running(), ShouldBeFalse)
				So(m.Stop(), ShouldBeNil)
			})
		})
	})
}

func TestStreamEnd(t *testing.T) {
	Convey("Given a stream that ends", t, func() {
		m := monitor.New(monitor.WithTickInterval(time.Millisecond), monitor.WithWindowSize(32))
		stream := &fakeStream{amp: 0.1, failAfter: 3, failErr: io.EOF}
		So(m.Start(context.Background(), sourceOf(stream, nil)), ShouldBeNil)
		done := m.Done()

		So(closedWithin(done, 2*time.Second), ShouldBeTrue)

		Convey("Then the stream should be released without an error", func() {
			So(atomic.LoadInt32(&stream.closes), ShouldEqual, 1)
			So(m.Err(), ShouldBeNil)
			So(m.Running(), ShouldBeFalse)
			So(m.Stop(), ShouldBeNil)
		})
	})

	Convey("Given a stream that fails", t, func() {
		m := monitor.New(monitor.WithTickInterval(time.Millisecond), monitor.WithWindowSize(32))
		boom := errors.New("device unplugged")
		stream := &fakeStream{amp: 0.1, failAfter: 1, failErr: boom}
		So(m.Start(context.Background(), sourceOf(stream, nil)), ShouldBeNil)
		done := m.Done()

		So(closedWithin(done, 2*time.Second), ShouldBeTrue)

		Convey("Then the failure should be reported and the stream released", func() {
			So(errors.Is(m.Err(), boom), ShouldBeTrue)
			So(atomic.LoadInt32(&stream.closes), ShouldEqual, 1)
		})
	})

	Convey("Given a cancelled parent context", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		m := monitor.New(monitor.WithTickInterval(time.Millisecond))
		stream := &fakeStream{amp: 0.1}
		So(m.Start(ctx, sourceOf(stream, nil)), ShouldBeNil)
		done := m.Done()
		cancel()

		So(closedWithin(done, 2*time.Second), ShouldBeTrue)

		Convey("Then the stream should be released", func() {
			So(atomic.LoadInt32(&stream.closes), ShouldEqual, 1)
			So(m.Err(), ShouldBeNil)
		})
	})
}
