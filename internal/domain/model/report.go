package model

import "time"

// AxisConfig describes one scored dimension. Configs are built once at
// startup and never mutated.
type AxisConfig struct {
	ID           string
	Label        string
	MinLabel     string
	MaxLabel     string
	MetricKey    string
	MinValue     float64
	MaxValue     float64
	Format       func(value float64) string
	NegativeCode byte
	PositiveCode byte
}

// AxisScore is the bounded, presentable result for one axis.
type AxisScore struct {
	ID           string  `json:"id"`
	Label        string  `json:"label"`
	MinLabel     string  `json:"minLabel"`
	MaxLabel     string  `json:"maxLabel"`
	MetricKey    string  `json:"metricKey"`
	RawValue     float64 `json:"rawValue"`
	DisplayValue string  `json:"displayValue"`
	Percent      int     `json:"percent"`
	Score        int     `json:"score"`
	Position     float64 `json:"position"`
	NegativeCode string  `json:"negativeCode"`
	PositiveCode string  `json:"positiveCode"`
	// Fallback is set when the metric was unusable or the formatter failed.
	Fallback bool `json:"fallback"`
}

// PitchZones holds the stability and practice note ranges.
type PitchZones struct {
	Stability string `json:"stability"`
	Practice  string `json:"practice"`
}

// InterpretationSegments splits a narrative into display categories.
type InterpretationSegments struct {
	Tone     string `json:"tone"`
	Strength string `json:"strength"`
	Caution  string `json:"caution"`
	Routine  string `json:"routine"`
	Insight  string `json:"insight"`
}

// PracticeFocus suggests what to practise next.
type PracticeFocus struct {
	Query       string   `json:"query"`
	WeakestAxis string   `json:"weakestAxis,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`
}

// Report is the full presentation of one analysis result.
type Report struct {
	ResultID string                 `json:"resultId,omitempty"`
	Axes     []AxisScore            `json:"axes"`
	TypeCode string                 `json:"typeCode"`
	Pitch    PitchZones             `json:"pitch"`
	Segments InterpretationSegments `json:"segments"`
	Focus    PracticeFocus          `json:"focus"`
	ScoredAt time.Time              `json:"scoredAt"`
}
