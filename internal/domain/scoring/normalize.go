package scoring

import (
	"math"
	"strconv"

	model "github.com/okian/songlab/internal/domain/model"
)

const (
	minScore = -100
	maxScore = 100
)

// round rounds half up, so -0.5 becomes 0 and 2.5 becomes 3.
func round(x float64) float64 {
	return math.Floor(x + 0.5)
}

func roundInt(x float64) int {
	return int(round(x))
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// ClampValue bounds raw into [lo, hi]. A non-finite raw becomes the midpoint.
func ClampValue(raw, lo, hi float64) float64 {
	if !finite(raw) {
		return (lo + hi) / 2
	}
	return math.Min(math.Max(raw, lo), hi)
}

// ScoreOf maps value onto -100..100 around the axis midpoint.
func ScoreOf(value, lo, hi float64) int {
	mid := (lo + hi) / 2
	half := (hi - lo) / 2
	raw := (value - mid) / half * 100
	if !finite(raw) {
		return 0
	}
	return roundInt(math.Min(math.Max(raw, minScore), maxScore))
}

// PercentOf is the rounded share of [lo, hi] covered by value.
func PercentOf(value, lo, hi float64) int {
	p := (value - lo) / (hi - lo) * 100
	if !finite(p) {
		return 0
	}
	return roundInt(p)
}

// Position places a score on a 0..100 track; 0 sits at 50.
func Position(score int) float64 {
	return float64(score+maxScore) / 2
}

// FormatScore renders a score with an explicit plus sign when positive.
func FormatScore(score int) string {
	if score > 0 {
		return "+" + strconv.Itoa(score)
	}
	return strconv.Itoa(score)
}

// formatValue calls the axis formatter and never lets it fail.
func formatValue(format func(float64) string, v float64) (out string, ok bool) {
	if format == nil {
		return strconv.FormatFloat(v, 'f', -1, 64), false
	}
	defer func() {
		if r := recover(); r != nil {
			out, ok = strconv.FormatFloat(v, 'f', -1, 64), false
		}
	}()
	return format(v), true
}

// ScoreAxis scores one axis against rec. A missing key is handled exactly
// like a non-finite value.
func ScoreAxis(axis model.AxisConfig, rec model.MetricsRecord) model.AxisScore {
	raw, present := rec.Lookup(axis.MetricKey)
	value := ClampValue(raw, axis.MinValue, axis.MaxValue)
	score := ScoreOf(value, axis.MinValue, axis.MaxValue)
	display, formatted := formatValue(axis.Format, value)

	return model.AxisScore{
		ID:           axis.ID,
		Label:        axis.Label,
		MinLabel:     axis.MinLabel,
		MaxLabel:     axis.MaxLabel,
		MetricKey:    axis.MetricKey,
		RawValue:     value,
		DisplayValue: display,
		Percent:      PercentOf(value, axis.MinValue, axis.MaxValue),
		Score:        score,
		Position:     Position(score),
		NegativeCode: string(axis.NegativeCode),
		PositiveCode: string(axis.PositiveCode),
		Fallback:     !present || !formatted,
	}
}

// ScoreAxes scores every axis independently, preserving order.
func ScoreAxes(axes []model.AxisConfig, rec model.MetricsRecord) []model.AxisScore {
	out := make([]model.AxisScore, 0, len(axes))
	for _, a := range axes {
		out = append(out, ScoreAxis(a, rec))
	}
	return out
}
