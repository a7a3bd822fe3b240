package monitor

import (
	"math"
	"sort"

	model "github.com/okian/songlab/internal/domain/model"
)

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

func clamp(x, lo, hi float64) float64 {
	return math.Min(math.Max(x, lo), hi)
}

// RMSLevel converts a window of samples in [-1,1] into a 0..100 meter
// reading. Non-finite samples are skipped; ok is false when none remain.
func RMSLevel(samples []float64, scale float64) (level float64, ok bool) {
	var sum float64
	n := 0
	for _, s := range samples {
		if !finite(s) {
			continue
		}
		sum += s * s
		n++
	}
	if n == 0 {
		return 0, false
	}
	level = math.Sqrt(sum/float64(n)) * scale
	if !finite(level) {
		return 0, false
	}
	return clamp(level, 0, maxLevel), true
}

// NoiseFloor is the low percentile of the recent levels, or ok=false while
// there are fewer than cal.NoiseFloorMinSamples of them.
func NoiseFloor(levels []float64, cal Calibration) (floor float64, ok bool) {
	if len(levels) == 0 || len(levels) < cal.NoiseFloorMinSamples {
		return 0, false
	}
	sorted := append([]float64(nil), levels...)
	sort.Float64s(sorted)
	idx := int(math.Floor(float64(len(sorted)) * cal.NoiseFloorPercentile))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx], true
}

// SNR is the ratio of signal to noise floor in dB, clamped to
// [0, cal.MaxSNRDB]. ok is false when the signal does not exceed the floor.
func SNR(signal, floor float64, cal Calibration) (db float64, ok bool) {
	if !finite(signal) || !finite(floor) || signal <= floor {
		return 0, false
	}
	db = 20 * math.Log10(signal/math.Max(floor, cal.NoiseFloorEpsilon))
	if math.IsNaN(db) {
		return 0, false
	}
	return clamp(db, 0, cal.MaxSNRDB), true
}

// Classify grades an SNR. Every threshold is a strict lower bound, so a
// reading exactly on a threshold falls into the class below it.
func Classify(db float64, cal Calibration) model.QualityClass {
	switch {
	case !finite(db):
		return model.QualityUnknown
	case db > cal.ExcellentAboveDB:
		return model.QualityExcellent
	case db > cal.GoodAboveDB:
		return model.QualityGood
	case db > cal.FairAboveDB:
		return model.QualityFair
	default:
		return model.QualityPoor
	}
}

// MeanVariance returns the mean and population variance of values.
func MeanVariance(values []float64) (mean, variance float64) {
	if len(values) == 0 {
		return 0, 0
	}
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	return mean, variance / float64(len(values))
}

// PhoneDistance reports whether the most recent levels look like a steady,
// reasonably loud, unclipped voice: a proxy for holding the mic at the
// right distance. It stays false until a full window is available.
func PhoneDistance(levels []float64, cal Calibration) bool {
	if cal.DistanceWindow <= 0 || len(levels) < cal.DistanceWindow {
		return false
	}
	mean, variance := MeanVariance(levels[len(levels)-cal.DistanceWindow:])
	return mean > cal.DistanceMeanMin && mean < cal.DistanceMeanMax && variance < cal.DistanceVarianceMax
}

// Peak returns the largest value, or ok=false for an empty slice.
func Peak(values []float64) (peak float64, ok bool) {
	if len(values) == 0 {
		return 0, false
	}
	peak = values[0]
	for _, v := range values[1:] {
		if v > peak {
			peak = v
		}
	}
	return peak, true
}
