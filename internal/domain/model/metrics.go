// Package model contains domain models passed between layers.
package model

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// Well-known metric keys produced by the acoustic analysis service.
const (
	MetricF0MeanHz       = "f0_mean_hz"
	MetricF0MedianHz     = "f0_median_hz"
	MetricF1Hz           = "f1_hz"
	MetricF2Hz           = "f2_hz"
	MetricF3Hz           = "f3_hz"
	MetricChestHeadRatio = "chest_head_ratio"
	MetricClarity        = "clarity"
	MetricPowerDB        = "power_db"
)

// MetricsRecord maps a metric name to its measured value. A key may be
// absent, and a present value may be non-finite; readers must use Lookup.
type MetricsRecord map[string]float64

// Lookup returns the value for key and whether it is present and finite.
func (m MetricsRecord) Lookup(key string) (float64, bool) {
	if m == nil {
		return math.NaN(), false
	}
	v, ok := m[key]
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return math.NaN(), false
	}
	return v, true
}

// Value returns the raw value for key, or NaN when it is absent.
func (m MetricsRecord) Value(key string) float64 {
	if m == nil {
		return math.NaN()
	}
	v, ok := m[key]
	if !ok {
		return math.NaN()
	}
	return v
}

// UnmarshalJSON keeps numeric entries only. null, booleans and objects are
// dropped; the strings "NaN", "Infinity" and "-Infinity" are dropped too,
// since a non-finite value is treated exactly like an absent one.
func (m *MetricsRecord) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("metrics record: %w", err)
	}
	if raw == nil {
		*m = nil
		return nil
	}
	out := make(MetricsRecord, len(raw))
	for k, v := range raw {
		if string(v) == "null" {
			continue
		}
		var f float64
		if err := json.Unmarshal(v, &f); err == nil {
			out[k] = f
			continue
		}
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
				out[k] = f
			}
		}
	}
	*m = out
	return nil
}

// MarshalJSON omits non-finite values, which encoding/json cannot represent.
func (m MetricsRecord) MarshalJSON() ([]byte, error) {
	if m == nil {
		return []byte("null"), nil
	}
	clean := make(map[string]float64, len(m))
	for k, v := range m {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		clean[k] = v
	}
	return json.Marshal(clean)
}

// AnalysisResult is what the external analysis service returns for one
// recording.
type AnalysisResult struct {
	Metrics        MetricsRecord `json:"metrics"`
	Interpretation string        `json:"interpretation"`
}

// Submission is an analysis result queued for asynchronous scoring.
type Submission struct {
	ResultID   string
	Result     AnalysisResult
	ReceivedAt time.Time
}
