package api

import (
	"net/http"
)

// StatsProvider reports service counters for GET /stats.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// StatsHandler serves the service stats plus the number of live monitor
// connections.
type StatsHandler struct {
	provider StatsProvider
	monitor  *MonitorHandler
}

// NewStatsHandler creates a stats handler. mon may be nil.
func NewStatsHandler(provider StatsProvider, mon *MonitorHandler) *StatsHandler {
	return &StatsHandler{provider: provider, monitor: mon}
}

// HandleStats handles GET /stats requests.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	stats := map[string]interface{}{}
	if h.provider != nil {
		for k, v := range h.provider.GetStats() {
			stats[k] = v
		}
	}
	if h.monitor != nil {
		stats["monitorSessions"] = h.monitor.Active()
	}
	writeJSON(w, http.StatusOK, stats)
}
