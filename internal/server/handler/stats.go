package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sevigo/resizer/internal/core"
)

// StatsHandler reports worker lane statistics as JSON.
type StatsHandler struct {
	reporter core.StatsReporter
	logger   *slog.Logger
}

// NewStatsHandler creates a stats handler backed by reporter.
func NewStatsHandler(reporter core.StatsReporter, logger *slog.Logger) *StatsHandler {
	return &StatsHandler{reporter: reporter, logger: logger}
}

// Handle writes the current snapshot.
func (h *StatsHandler) Handle(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.reporter.Stats()); err != nil {
		h.logger.Error("failed to encode stats", "error", err)
	}
}
