package handlers

import (
	"net/http"

	"nebula-backend/internal/models"
	"nebula-backend/internal/services"
	"nebula-backend/pkg/httputil"

	"github.com/rs/zerolog"
)

type SettingsHandlers struct {
	preferences *services.PreferencesService
	log         zerolog.Logger
}

func NewSettingsHandlers(preferences *services.PreferencesService, log zerolog.Logger) *SettingsHandlers {
	return &SettingsHandlers{preferences: preferences, log: log.With().Str("handler", "settings").Logger()}
}

// HandleGetBackground handles GET /v1/settings/background.
func (h *SettingsHandlers) HandleGetBackground(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromRequest(w, r)
	if !ok {
		return
	}
	pref, err := h.preferences.Background(r.Context(), session.UserID)
	if err != nil {
		respondServiceError(w, h.log, err, "Failed to load background")
		return
	}
	httputil.RespondJSON(w, http.StatusOK, pref)
}

// HandleUpdateBackground handles PUT /v1/settings/background.
func (h *SettingsHandlers) HandleUpdateBackground(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromRequest(w, r)
	if !ok {
		return
	}
	var req models.UpdateBackgroundRequest
	if err := httputil.DecodeJSON(w, r, maxJSONBody, &req); err != nil {
		respondDecodeError(w, err)
		return
	}
	pref, err := h.preferences.SetBackground(r.Context(), session.UserID, req)
	if err != nil {
		respondServiceError(w, h.log, err, "Failed to save background")
		return
	}
	httputil.RespondJSON(w, http.StatusOK, pref)
}
