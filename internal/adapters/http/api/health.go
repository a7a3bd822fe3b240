package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/songlab/pkg/metrics"
)

// HealthHandler answers liveness probes with the Prometheus exposition of
// the service registry, so a scrape doubles as a health check.
type HealthHandler struct {
	metrics http.Handler
}

// NewHealthHandler creates a health handler over the metrics registry.
func NewHealthHandler() *HealthHandler {
	reg := metrics.GetRegistry()
	return &HealthHandler{
		metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{
			Registry:          reg,
			EnableOpenMetrics: true,
		}),
	}
}

// HandleHealth handles GET /healthz requests.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.NotFound(w, r)
		return
	}
	h.metrics.ServeHTTP(w, r)
}
