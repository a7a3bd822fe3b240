package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/okian/songlab/internal/domain/model"
	"github.com/okian/songlab/internal/domain/scoring"
	"github.com/okian/songlab/pkg/metrics"
)

// maxBodyBytes bounds request bodies; analysis results are small.
const maxBodyBytes = 1 << 20

// ScoreDependencies defines what synchronous scoring needs.
type ScoreDependencies interface {
	Evaluate(res model.AnalysisResult) model.Report
}

// ScoreHandler renders reports synchronously.
type ScoreHandler struct {
	deps ScoreDependencies
}

// NewScoreHandler creates a new score handler.
func NewScoreHandler(deps ScoreDependencies) *ScoreHandler {
	return &ScoreHandler{deps: deps}
}

// HandleScore handles POST /v1/score requests.
func (h *ScoreHandler) HandleScore(w http.ResponseWriter, r *http.Request) {
	const op = "api.score"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var res model.AnalysisResult
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&res); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	start := time.Now()
	report := h.deps.Evaluate(res)
	metrics.RecordScoringLatency(float64(time.Since(start).Microseconds()) / 1000)
	metrics.RecordReportScored()
	for _, axis := range scoring.FallbackAxes(report) {
		metrics.RecordScoringFallback(axis)
	}

	writeJSON(w, http.StatusOK, report)
}
