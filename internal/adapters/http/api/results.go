package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/okian/songlab/internal/adapters/repository"
	"github.com/okian/songlab/internal/domain/dedupe"
	"github.com/okian/songlab/internal/domain/model"
	"github.com/okian/songlab/pkg/metrics"
)

// ResultsDependencies defines the interface for async result ingestion.
type ResultsDependencies interface {
	dedupe.Deduper
	Enqueue(ctx context.Context, s model.Submission) bool
	Get(ctx context.Context, id string) (model.Report, error)
	Recent(ctx context.Context, n int) ([]model.Report, error)
}

// resultRequest mirrors the OpenAPI schema for POST /v1/results.
type resultRequest struct {
	ResultID       string              `json:"result_id"`
	Metrics        model.MetricsRecord `json:"metrics"`
	Interpretation string              `json:"interpretation"`
}

// ResultsHandler handles result submission and lookup.
type ResultsHandler struct {
	deps     ResultsDependencies
	maxLimit int
	now      func() time.Time
}

// NewResultsHandler creates a new results handler.
func NewResultsHandler(deps ResultsDependencies, maxLimit int) *ResultsHandler {
	if maxLimit < 1 {
		maxLimit = defaultMaxRecentLimit
	}
	return &ResultsHandler{deps: deps, maxLimit: maxLimit, now: time.Now}
}

// HandleResults handles POST /v1/results and GET /v1/results?limit=N.
func (h *ResultsHandler) HandleResults(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.handlePost(w, r)
	case http.MethodGet:
		h.handleList(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *ResultsHandler) handlePost(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_result"
	var req resultRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	id := strings.TrimSpace(req.ResultID)
	if id == "" {
		id = uuid.NewString()
	}
	if strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("result_id must not contain '/'")))
		return
	}

	// Idempotency check: mark as seen first.
	if h.deps.SeenAndRecord(r.Context(), id) {
		metrics.RecordResultDuplicate()
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", ResultID: id, Duplicate: true})
		return
	}

	sub := model.Submission{
		ResultID:   id,
		Result:     model.AnalysisResult{Metrics: req.Metrics, Interpretation: req.Interpretation},
		ReceivedAt: h.now(),
	}
	if ok := h.deps.Enqueue(r.Context(), sub); !ok {
		// Roll back the "seen" mark so the client can retry.
		h.deps.Unrecord(r.Context(), id)
		writeError(w, http.StatusTooManyRequests, "backpressure", NewKind(op, ErrBackpressure))
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", ResultID: id})
}

func (h *ResultsHandler) handleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_results"
	n := h.maxLimit
	if limit := r.URL.Query().Get("limit"); limit != "" {
		v, err := strconv.Atoi(limit)
		if err != nil || v < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		if v > h.maxLimit {
			writeError(w, http.StatusBadRequest, "limit_exceeded", NewKind(op, ErrBadRequest))
			return
		}
		n = v
	}
	reports, err := h.deps.Recent(r.Context(), n)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, reports)
}

// HandleGetResult handles GET /v1/results/{id} requests.
func (h *ResultsHandler) HandleGetResult(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_result"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/v1/results/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	report, err := h.deps.Get(r.Context(), id)
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "not_found", Wrap(op, err))
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, repository.ErrNotFound)
}
