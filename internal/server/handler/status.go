package handler

import (
	"net/http"
	"time"
)

// StatusHandler serves the runtime mode and tracked pairs.
type StatusHandler struct {
	Mode      string
	Pairs     []string
	StartedAt time.Time
}

// NewStatusHandler creates a StatusHandler.
func NewStatusHandler(mode string, pairs []string, startedAt time.Time) *StatusHandler {
	return &StatusHandler{Mode: mode, Pairs: pairs, StartedAt: startedAt}
}

// GetStatus responds with the current mode, pairs and uptime.
// GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	pairs := h.Pairs
	if pairs == nil {
		pairs = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"mode":           h.Mode,
		"pairs":          pairs,
		"uptime_seconds": int64(time.Since(h.StartedAt).Seconds()),
	})
}
