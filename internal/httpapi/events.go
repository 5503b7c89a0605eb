package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/lucenthq/lucent/internal/engine"
)

// handleEventsPost serves POST /api/events: ingest one UserEvent. Event
// intake is best-effort: an unknown or malformed userId is logged and the
// event is dropped silently rather than rejected with a 4xx (spec.md §7).
func (a *API) handleEventsPost(w http.ResponseWriter, r *http.Request) {
	var event engine.UserEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if event.UserID == "" {
		a.logger.WarnContext(r.Context(), "httpapi: dropping event with missing userId")
		writeJSON(w, http.StatusOK, map[string]bool{"success": false})
		return
	}

	if err := a.store.Append(r.Context(), event); err != nil {
		a.logger.ErrorContext(r.Context(), "httpapi: failed to append event", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to record event")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// handleEventsGet serves GET /api/events: list a user's events
// (spec.md §6.1).
func (a *API) handleEventsGet(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}

	events, err := a.store.ListEvents(r.Context(), userID)
	if err != nil {
		a.logger.ErrorContext(r.Context(), "httpapi: failed to list events", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}
	if events == nil {
		events = []engine.UserEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}
