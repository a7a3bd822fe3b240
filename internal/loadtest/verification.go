package loadtest

import (
	"context"
	"fmt"
	"slices"

	"github.com/okian/songlab/internal/domain/model"
	"github.com/okian/songlab/internal/domain/scoring"
	"github.com/okian/songlab/pkg/logger"
)

// compareReports lists how got differs from want. Result ids and scoring
// timestamps are not compared.
func compareReports(want, got *model.Report) []string {
	var diffs []string
	if want.TypeCode != got.TypeCode {
		diffs = append(diffs, fmt.Sprintf("typeCode %q != %q", got.TypeCode, want.TypeCode))
	}
	if len(want.Axes) != len(got.Axes) {
		diffs = append(diffs, fmt.Sprintf("axes count %d != %d", len(got.Axes), len(want.Axes)))
	} else {
		for i := range want.Axes {
			w, g := want.Axes[i], got.Axes[i]
			if w.ID != g.ID || w.Score != g.Score || w.Percent != g.Percent ||
				w.DisplayValue != g.DisplayValue || w.Fallback != g.Fallback {
				diffs = append(diffs, fmt.Sprintf("axis %s: score %d/%d percent %d/%d display %q/%q",
					w.ID, g.Score, w.Score, g.Percent, w.Percent, g.DisplayValue, w.DisplayValue))
			}
		}
	}
	if want.Pitch != got.Pitch {
		diffs = append(diffs, fmt.Sprintf("pitch %+v != %+v", got.Pitch, want.Pitch))
	}
	if want.Segments != got.Segments {
		diffs = append(diffs, fmt.Sprintf("segments %+v != %+v", got.Segments, want.Segments))
	}
	if want.Focus.Query != got.Focus.Query || want.Focus.WeakestAxis != got.Focus.WeakestAxis ||
		!slices.Equal(want.Focus.Keywords, got.Focus.Keywords) {
		diffs = append(diffs, fmt.Sprintf("focus %+v != %+v", got.Focus, want.Focus))
	}
	return diffs
}

// verifyReports rescores every fetched submission locally and checks the
// service produced the same report.
func verifyReports(ctx context.Context, config *Config, subs []Submission, reports map[int]model.Report, stats *Stats) error {
	log := logger.Get()
	if len(reports) == 0 {
		return fmt.Errorf("no reports to verify")
	}

	eval := scoring.NewEvaluator()
	typeCodes := make(map[string]int)
	fallbacks := 0
	for i, got := range reports {
		want := eval.Evaluate(subs[i].Result())
		diffs := compareReports(&want, &got)
		if len(diffs) > 0 {
			stats.Mismatched++
			if config.Verbose {
				log.Warn(ctx, "report mismatch",
					logger.String("resultID", subs[i].ResultID),
					logger.Any("diffs", diffs))
			}
			continue
		}
		if got.ResultID != subs[i].ResultID {
			stats.Mismatched++
			continue
		}
		stats.Verified++
		typeCodes[got.TypeCode]++
		fallbacks += len(scoring.FallbackAxes(got))
	}

	log.Info(ctx, "verification completed",
		logger.Int("verified", stats.Verified),
		logger.Int("mismatched", stats.Mismatched),
		logger.Int("distinctTypeCodes", len(typeCodes)),
		logger.Int("fallbackAxes", fallbacks))

	if stats.Mismatched > 0 {
		return fmt.Errorf("%d of %d reports differ from local scoring", stats.Mismatched, len(reports))
	}
	return nil
}
