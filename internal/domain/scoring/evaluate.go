package scoring

import (
	"time"

	model "github.com/okian/songlab/internal/domain/model"
)

// Option applies a configuration option to the Evaluator.
type Option func(*Evaluator)

// WithAxes replaces the default axis set.
func WithAxes(axes []model.AxisConfig) Option {
	return func(e *Evaluator) {
		if len(axes) > 0 {
			e.axes = append([]model.AxisConfig(nil), axes...)
		}
	}
}

// WithClock sets the time source used to stamp reports.
func WithClock(now func() time.Time) Option {
	return func(e *Evaluator) {
		if now != nil {
			e.now = now
		}
	}
}

// Evaluator runs the full presentation pipeline over one analysis result.
// It holds only read-only configuration, so one instance may serve many
// goroutines.
type Evaluator struct {
	axes []model.AxisConfig
	now  func() time.Time
}

// NewEvaluator creates an evaluator with the default axes.
func NewEvaluator(opts ...Option) *Evaluator {
	e := &Evaluator{
		axes: DefaultAxes(),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Axes returns a copy of the configured axes.
func (e *Evaluator) Axes() []model.AxisConfig {
	return append([]model.AxisConfig(nil), e.axes...)
}

// Evaluate scores the axes, derives the type code, pitch zones, segments
// and practice focus. A nil metrics record produces no axes and the empty
// type code; every other failure is absorbed by a per-field fallback.
func (e *Evaluator) Evaluate(res model.AnalysisResult) model.Report {
	scores := []model.AxisScore{}
	if res.Metrics != nil {
		scores = ScoreAxes(e.axes, res.Metrics)
	}

	return model.Report{
		Axes:     scores,
		TypeCode: DeriveTypeCode(scores),
		Pitch:    DerivePitchZones(res.Metrics),
		Segments: Segment(res.Interpretation),
		Focus:    DerivePracticeFocus(res.Metrics, scores),
		ScoredAt: e.now().UTC(),
	}
}

// Evaluate runs a default evaluator over res.
func Evaluate(res model.AnalysisResult, opts ...Option) model.Report {
	return NewEvaluator(opts...).Evaluate(res)
}

// FallbackAxes lists the axes of a report that needed a fallback.
func FallbackAxes(r model.Report) []string {
	var out []string
	for _, a := range r.Axes {
		if a.Fallback {
			out = append(out, a.ID)
		}
	}
	return out
}
