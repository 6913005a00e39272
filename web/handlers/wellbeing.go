package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/memovo/memovo/internal/wellbeing"
	"github.com/memovo/memovo/pkg/types"
)

// WellbeingHandlers contains HTTP handlers for daily wellbeing insights.
type WellbeingHandlers struct {
	service *wellbeing.Service
}

// NewWellbeingHandlers creates a new WellbeingHandlers instance.
func NewWellbeingHandlers(service *wellbeing.Service) *WellbeingHandlers {
	return &WellbeingHandlers{service: service}
}

// InsightsRequest represents the request body for daily insights.
type InsightsRequest struct {
	Usage []types.AppUsage `json:"usage,omitempty"`
}

// DailyInsights handles POST /api/users/{userId}/wellbeing - returns a daily
// wellbeing insight from recent mood data and reported app usage. The
// analysis is best-effort: when the model or store fails the response falls
// back to a generic insight rather than an error.
func (h *WellbeingHandlers) DailyInsights(w http.ResponseWriter, r *http.Request) {
	userID := extractID(r, "userId")
	if userID == "" {
		respondError(w, http.StatusBadRequest, "user ID is required", nil)
		return
	}

	var req InsightsRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "failed to parse request body", err)
			return
		}
	}

	insight := h.service.DailyInsights(r.Context(), userID, req.Usage)
	respondJSON(w, http.StatusOK, insight)
}
