package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"notelink-ai/internal/contextutil"
	"notelink-ai/internal/storage"
)

// FeedbackHandler records up/down votes on insight core claims. Voted claims
// feed the ranking step's feedback-similarity term on later runs.
type FeedbackHandler struct {
	feedbackRepo storage.FeedbackStore
}

// NewFeedbackHandler creates a new FeedbackHandler.
func NewFeedbackHandler(feedbackRepo storage.FeedbackStore) *FeedbackHandler {
	return &FeedbackHandler{feedbackRepo: feedbackRepo}
}

// FeedbackRequest is the request payload for recording feedback.
type FeedbackRequest struct {
	Claim string `json:"claim"`
	Vote  int    `json:"vote"` // +1 or -1
}

// FeedbackResponse acknowledges a recorded vote.
type FeedbackResponse struct {
	ID string `json:"id"`
}

// ServeHTTP records one vote.
func (h *FeedbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req FeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Claim = strings.TrimSpace(req.Claim)
	if req.Claim == "" {
		writeError(w, http.StatusBadRequest, "Claim is required")
		return
	}
	if req.Vote != 1 && req.Vote != -1 {
		writeError(w, http.StatusBadRequest, "Vote must be +1 or -1")
		return
	}

	rec := &storage.FeedbackRecord{Claim: req.Claim, Vote: req.Vote}
	if err := h.feedbackRepo.Insert(ctx, rec); err != nil {
		logger.ErrorContext(ctx, "failed to record feedback", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to record feedback")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(FeedbackResponse{ID: rec.ID}); err != nil {
		logger.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}
