package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}

// statusForError maps pipeline errors to HTTP status codes by their source:
// vector store problems read as 503, LLM/embedding problems as 502,
// everything else as 500.
func statusForError(err error) (int, string) {
	if err == nil {
		return http.StatusInternalServerError, "Internal server error"
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "vector") || strings.Contains(msg, "qdrant"):
		return http.StatusServiceUnavailable, "Vector store unavailable"
	case strings.Contains(msg, "embed") || strings.Contains(msg, "llm") || strings.Contains(msg, "chat completion"):
		return http.StatusBadGateway, "External service error"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}
