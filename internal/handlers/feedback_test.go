package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/mock/gomock"

	"notelink-ai/internal/storage"
	storage_mocks "notelink-ai/internal/storage/mocks"
)

func TestFeedbackHandler_RecordsVote(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := storage_mocks.NewMockFeedbackStore(ctrl)
	repo.EXPECT().
		Insert(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, rec *storage.FeedbackRecord) error {
			if rec.Claim != "spacing improves retention" {
				t.Errorf("inserted Claim = %q", rec.Claim)
			}
			if rec.Vote != 1 {
				t.Errorf("inserted Vote = %d, want 1", rec.Vote)
			}
			rec.ID = "feedback-1"
			return nil
		})

	handler := NewFeedbackHandler(repo)
	req := httptest.NewRequest(http.MethodPost, "/api/feedback",
		strings.NewReader(`{"claim": "  spacing improves retention  ", "vote": 1}`))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp FeedbackResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.ID != "feedback-1" {
		t.Errorf("response ID = %q", resp.ID)
	}
}

func TestFeedbackHandler_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "malformed json", body: `{"claim": `},
		{name: "empty claim", body: `{"claim": "   ", "vote": 1}`},
		{name: "zero vote", body: `{"claim": "a claim", "vote": 0}`},
		{name: "out of range vote", body: `{"claim": "a claim", "vote": 5}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			handler := NewFeedbackHandler(storage_mocks.NewMockFeedbackStore(ctrl))
			req := httptest.NewRequest(http.MethodPost, "/api/feedback", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestFeedbackHandler_MethodNotAllowed(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	handler := NewFeedbackHandler(storage_mocks.NewMockFeedbackStore(ctrl))
	req := httptest.NewRequest(http.MethodGet, "/api/feedback", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestFeedbackHandler_StorageFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := storage_mocks.NewMockFeedbackStore(ctrl)
	repo.EXPECT().
		Insert(gomock.Any(), gomock.Any()).
		Return(errors.New("disk full"))

	handler := NewFeedbackHandler(repo)
	req := httptest.NewRequest(http.MethodPost, "/api/feedback",
		strings.NewReader(`{"claim": "a claim", "vote": -1}`))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}
