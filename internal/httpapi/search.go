package httpapi

import (
	"net/http"

	"github.com/lucenthq/lucent/internal/engine"
)

type searchResponse struct {
	Plan    engine.Plan        `json:"plan"`
	Results []engine.SearchHit `json:"results"`
}

// handleSearch serves GET /api/search: plan + first-pass hits, no
// extraction/ranking/synthesis (spec.md §6.1).
func (a *API) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}

	plan, hits := a.pipeline.Search(r.Context(), q)
	writeJSON(w, http.StatusOK, searchResponse{Plan: plan, Results: hits})
}
