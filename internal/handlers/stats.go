package handlers

import (
	"encoding/json"
	"net/http"

	"notelink-ai/internal/contextutil"
	"notelink-ai/internal/indexer"
)

// StatsHandler exposes index coverage statistics.
type StatsHandler struct {
	pipeline       *indexer.Pipeline
	embeddingModel string
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(pipeline *indexer.Pipeline, embeddingModel string) *StatsHandler {
	return &StatsHandler{pipeline: pipeline, embeddingModel: embeddingModel}
}

// ServeHTTP returns the current index statistics.
func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodGet {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	stats, err := h.pipeline.Stats(ctx, h.embeddingModel)
	if err != nil {
		logger.ErrorContext(ctx, "failed to compute index stats", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to compute index stats")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(stats); err != nil {
		logger.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}
