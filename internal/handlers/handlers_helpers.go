package handlers

import (
	"errors"
	"net/http"

	"nebula-backend/internal/auth"
	"nebula-backend/internal/models"
	"nebula-backend/internal/services"
	"nebula-backend/pkg/httputil"

	"github.com/rs/zerolog"
)

// maxJSONBody bounds request bodies that carry no attachments.
const maxJSONBody = 1 << 20

// sessionFromRequest returns the caller's identity. The JWT middleware always
// sets it on authenticated routes; a missing identity means a routing bug.
func sessionFromRequest(w http.ResponseWriter, r *http.Request) (models.SessionIdentity, bool) {
	session, ok := auth.GetSessionFromContext(r.Context())
	if !ok || session.UserID == "" {
		httputil.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return models.SessionIdentity{}, false
	}
	return session, true
}

// respondServiceError maps the shared service sentinels to HTTP statuses.
// Errors carrying a localized notice are returned with it.
func respondServiceError(w http.ResponseWriter, log zerolog.Logger, err error, fallback string) {
	var te *services.ToolError
	if errors.As(err, &te) {
		status := http.StatusBadRequest
		if errors.Is(err, services.ErrDuplicate) {
			status = http.StatusConflict
		}
		httputil.RespondNotice(w, status, te.Error(), models.Notice{Title: te.Title, Description: te.Description})
		return
	}

	switch {
	case errors.Is(err, services.ErrValidation):
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrDuplicate):
		httputil.RespondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrItemNotFound):
		httputil.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrForbidden):
		httputil.RespondError(w, http.StatusForbidden, err.Error())
	default:
		log.Error().Err(err).Msg(fallback)
		httputil.RespondError(w, http.StatusInternalServerError, fallback)
	}
}

func respondDecodeError(w http.ResponseWriter, err error) {
	if errors.Is(err, httputil.ErrBodyTooLarge) {
		httputil.RespondError(w, http.StatusRequestEntityTooLarge, err.Error())
		return
	}
	httputil.RespondError(w, http.StatusBadRequest, "Invalid request payload")
}
