package model_test

import (
	"encoding/json"
	"math"
	"testing"

	model "github.com/okian/songlab/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestMetricsRecord(t *testing.T) {
	convey.Convey("Given a metrics record", t, func() {
		rec := model.MetricsRecord{
			model.MetricF2Hz:    1890,
			model.MetricClarity: math.NaN(),
			model.MetricPowerDB: math.Inf(-1),
		}

		convey.Convey("When looking up a finite value", func() {
			v, ok := rec.Lookup(model.MetricF2Hz)

			convey.Convey("Then it should be returned", func() {
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(v, convey.ShouldEqual, 1890)
			})
		})

		convey.Convey("When looking up non-finite or missing values", func() {
			_, okNaN := rec.Lookup(model.MetricClarity)
			_, okInf := rec.Lookup(model.MetricPowerDB)
			_, okMissing := rec.Lookup(model.MetricChestHeadRatio)

			convey.Convey("Then they should all be reported as unavailable", func() {
				convey.So(okNaN, convey.ShouldBeFalse)
				convey.So(okInf, convey.ShouldBeFalse)
				convey.So(okMissing, convey.ShouldBeFalse)
				convey.So(math.IsNaN(rec.Value(model.MetricChestHeadRatio)), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the record is nil", func() {
			var empty model.MetricsRecord
			_, ok := empty.Lookup(model.MetricF2Hz)

			convey.Convey("Then lookups should not panic and report absence", func() {
				convey.So(ok, convey.ShouldBeFalse)
			})
		})

		convey.Convey("When marshalling to JSON", func() {
			data, err := json.Marshal(rec)

			convey.Convey("Then non-finite values should be omitted", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(string(data), convey.ShouldEqual, `{"f2_hz":1890}`)
			})
		})
	})
}

func TestMetricsRecordUnmarshal(t *testing.T) {
	convey.Convey("Given a JSON payload from the analysis service", t, func() {
		payload := `{
			"metrics": {
				"f2_hz": 1890,
				"chest_head_ratio": null,
				"clarity": "0.68",
				"power_db": "NaN",
				"label": true
			},
			"interpretation": "Bright tone."
		}`

		var res model.AnalysisResult
		err := json.Unmarshal([]byte(payload), &res)

		convey.Convey("Then only usable numbers should survive", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(res.Interpretation, convey.ShouldEqual, "Bright tone.")
			convey.So(res.Metrics, convey.ShouldHaveLength, 2)
			convey.So(res.Metrics[model.MetricF2Hz], convey.ShouldEqual, 1890)
			convey.So(res.Metrics[model.MetricClarity], convey.ShouldEqual, 0.68)

			_, hasRatio := res.Metrics[model.MetricChestHeadRatio]
			convey.So(hasRatio, convey.ShouldBeFalse)
		})
	})

	convey.Convey("Given a null metrics object", t, func() {
		var res model.AnalysisResult
		err := json.Unmarshal([]byte(`{"metrics": null}`), &res)

		convey.Convey("Then the record should be nil", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(res.Metrics, convey.ShouldBeNil)
		})
	})

	convey.Convey("Given a malformed metrics value", t, func() {
		var res model.AnalysisResult
		err := json.Unmarshal([]byte(`{"metrics": [1,2]}`), &res)

		convey.Convey("Then decoding should fail", func() {
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestQualitySnapshot(t *testing.T) {
	convey.Convey("Given a fresh quality snapshot", t, func() {
		snap := model.NewQualitySnapshot()

		convey.Convey("Then it should start unknown with no estimates", func() {
			convey.So(snap.Quality, convey.ShouldEqual, model.QualityUnknown)
			convey.So(snap.NoiseFloor, convey.ShouldBeNil)
			convey.So(snap.SNRDB, convey.ShouldBeNil)
			convey.So(snap.Environment.MicPermission, convey.ShouldBeFalse)
		})

		convey.Convey("When cloning a snapshot with estimates", func() {
			floor, snr := 4.0, 22.0
			snap.NoiseFloor = &floor
			snap.SNRDB = &snr
			clone := snap.Clone()
			*clone.NoiseFloor = 99

			convey.Convey("Then the clone should not share pointers", func() {
				convey.So(*snap.NoiseFloor, convey.ShouldEqual, 4.0)
				convey.So(*clone.SNRDB, convey.ShouldEqual, 22.0)
			})
		})
	})
}
