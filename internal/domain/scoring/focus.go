package scoring

import (
	model "github.com/okian/songlab/internal/domain/model"
)

const (
	headVoiceAbove   = 2.5
	chestVoiceBelow  = 1.0
	resonanceBelow   = 0.4
	lessonSuffix     = " vocal lesson"
	resonanceSuffix  = " resonance clarity"
	defaultFocusArea = "vocal technique"
)

//nolint:gochecknoglobals // fixed lookup table
var axisKeywords = map[string][]string{
	AxisBrightness: {"formant control lesson", "resonance training", "building a bright tone"},
	AxisThickness:  {"register transition drills", "mix voice training", "tone thickness control"},
	AxisClarity:    {"vocal fold adduction exercises", "clear diction training", "building a clean tone"},
	AxisPower:      {"diaphragmatic breathing", "vocal intensity control", "powerful phonation"},
}

var fallbackKeywords = []string{"basic vocal technique"} //nolint:gochecknoglobals // fixed lookup table

// PracticeQuery builds a lesson search phrase from the chest/head balance
// and clarity.
func PracticeQuery(rec model.MetricsRecord) string {
	focus := defaultFocusArea
	if ratio, ok := rec.Lookup(model.MetricChestHeadRatio); ok {
		switch {
		case ratio > headVoiceAbove:
			focus = "head voice transition"
		case ratio < chestVoiceBelow:
			focus = "chest voice support"
		default:
			focus = "mix voice balance"
		}
	}
	if clarity, ok := rec.Lookup(model.MetricClarity); ok && clarity < resonanceBelow {
		focus += resonanceSuffix
	}
	return focus + lessonSuffix
}

// WeakestAxis returns the lowest-scoring axis; the first one wins a tie.
func WeakestAxis(scores []model.AxisScore) (string, bool) {
	if len(scores) == 0 {
		return "", false
	}
	weakest := scores[0]
	for _, s := range scores[1:] {
		if s.Score < weakest.Score {
			weakest = s
		}
	}
	return weakest.ID, true
}

// DerivePracticeFocus suggests what to practise next.
func DerivePracticeFocus(rec model.MetricsRecord, scores []model.AxisScore) model.PracticeFocus {
	focus := model.PracticeFocus{Query: PracticeQuery(rec)}

	axis, ok := WeakestAxis(scores)
	keywords, known := axisKeywords[axis]
	if !ok || !known {
		keywords = fallbackKeywords
	}
	focus.WeakestAxis = axis
	focus.Keywords = append([]string(nil), keywords...)
	return focus
}
