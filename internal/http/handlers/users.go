package handlers

import (
	"net/http"
	"strings"

	"oracle/internal/domain"
)

// GetUser upserts the user on first sight and returns the current balance.
// The state field mirrors the job state vocabulary so the UI can treat the
// response like any other finished fetch.
func (a *App) GetUser(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.URL.Query().Get("userId"))
	if userID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "userId is required")
		return
	}

	user, err := a.Users.Upsert(r.Context(), userID)
	if err != nil {
		a.Logger.Error().Err(err).Str("user_id", userID).Msg("upsert user failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load user")
		return
	}

	a.json(w, http.StatusOK, map[string]any{
		"id":      user.ID,
		"credits": user.Credits,
		"state":   domain.JobStateComplete,
	})
}
