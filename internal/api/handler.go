// Package api provides HTTP handlers for the JecnaBot peer.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ashureev/jecnabot/internal/store"
)

// Handler provides common handler utilities.
type Handler struct {
	repo     store.Repository
	tokenTTL time.Duration
	now      func() time.Time
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(repo store.Repository, tokenTTL time.Duration) *Handler {
	return &Handler{
		repo:     repo,
		tokenTTL: tokenTTL,
		now:      time.Now,
	}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}
