package httpapi

import (
	"net/http"

	"github.com/lucenthq/lucent/internal/bandit"
)

type preferencesResponse struct {
	TopArms           []bandit.ArmScore `json:"topArms"`
	TotalInteractions int               `json:"totalInteractions"`
}

// handlePreferences serves GET /api/preferences: a user's top 5 arms and
// total interaction count (spec.md §6.1).
func (a *API) handlePreferences(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}

	topArms, total, err := a.store.Preferences(r.Context(), userID)
	if err != nil {
		a.logger.ErrorContext(r.Context(), "httpapi: failed to load preferences", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load preferences")
		return
	}
	if topArms == nil {
		topArms = []bandit.ArmScore{}
	}
	writeJSON(w, http.StatusOK, preferencesResponse{TopArms: topArms, TotalInteractions: total})
}

// handlePreferencesDelete serves DELETE /api/preferences: wipe a user's
// per-user state (spec.md §6.1).
func (a *API) handlePreferencesDelete(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}

	if err := a.store.Reset(r.Context(), userID); err != nil {
		a.logger.ErrorContext(r.Context(), "httpapi: failed to reset preferences", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to reset preferences")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
