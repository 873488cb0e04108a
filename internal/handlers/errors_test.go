package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatusForError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil error", err: nil, want: http.StatusInternalServerError},
		{name: "qdrant failure", err: errors.New("qdrant: connection refused"), want: http.StatusServiceUnavailable},
		{name: "wrapped vector failure", err: fmt.Errorf("retrieval: %w", errors.New("vector search failed")), want: http.StatusServiceUnavailable},
		{name: "embedding failure", err: errors.New("failed to embed query"), want: http.StatusBadGateway},
		{name: "llm failure", err: errors.New("llm chat completion timed out"), want: http.StatusBadGateway},
		{name: "anything else", err: errors.New("sqlite is locked"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, message := statusForError(tt.err)
			if got != tt.want {
				t.Errorf("statusForError() = %d, want %d", got, tt.want)
			}
			if message == "" {
				t.Error("statusForError() message should not be empty")
			}
		})
	}
}
