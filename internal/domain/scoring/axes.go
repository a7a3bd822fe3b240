// Package scoring turns raw acoustic metrics into bounded scores, a type
// code, practice pitch ranges and segmented feedback. Everything here is
// pure: no I/O and no shared mutable state, so it is safe for concurrent use.
package scoring

import (
	"strconv"

	model "github.com/okian/songlab/internal/domain/model"
)

// Axis identifiers in type-code order.
const (
	AxisBrightness = "brightness"
	AxisThickness  = "thickness"
	AxisClarity    = "clarity"
	AxisPower      = "power"
)

// NotReady is shown wherever a value cannot be derived.
const NotReady = "Data is not ready yet."

// DefaultAxes returns the four scored dimensions in fixed order.
func DefaultAxes() []model.AxisConfig {
	return []model.AxisConfig{
		{
			ID:           AxisBrightness,
			Label:        "Brightness",
			MinLabel:     "Dark",
			MaxLabel:     "Bright",
			MetricKey:    model.MetricF2Hz,
			MinValue:     400,
			MaxValue:     2800,
			Format:       func(v float64) string { return strconv.Itoa(roundInt(v)) + " Hz" },
			NegativeCode: 'D',
			PositiveCode: 'B',
		},
		{
			ID:           AxisThickness,
			Label:        "Thickness",
			MinLabel:     "Thin",
			MaxLabel:     "Thick",
			MetricKey:    model.MetricChestHeadRatio,
			MinValue:     0.5,
			MaxValue:     3.5,
			Format:       func(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) },
			NegativeCode: 'L',
			PositiveCode: 'T',
		},
		{
			ID:           AxisClarity,
			Label:        "Clarity",
			MinLabel:     "Airy",
			MaxLabel:     "Clean",
			MetricKey:    model.MetricClarity,
			MinValue:     0,
			MaxValue:     1,
			Format:       func(v float64) string { return strconv.Itoa(roundInt(v*100)) + "%" },
			NegativeCode: 'A',
			PositiveCode: 'C',
		},
		{
			ID:           AxisPower,
			Label:        "Power",
			MinLabel:     "Soft",
			MaxLabel:     "Energetic",
			MetricKey:    model.MetricPowerDB,
			MinValue:     -60,
			MaxValue:     10,
			Format:       func(v float64) string { return strconv.FormatFloat(v, 'f', 1, 64) + " dB" },
			NegativeCode: 'S',
			PositiveCode: 'P',
		},
	}
}
