package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"nebula-backend/internal/auth"
	api_models "nebula-backend/internal/models"
	db_models "nebula-backend/internal/models"
	"nebula-backend/internal/services"
	"nebula-backend/internal/store"
	"nebula-backend/pkg/httputil"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// AuthService defines the interface expected from the auth service.
type AuthService interface {
	Signup(ctx context.Context, email, password, name string) (*db_models.User, error)
	Login(ctx context.Context, email, password string) (string, *db_models.User, error)
	Approve(ctx context.Context, adminID, userID uuid.UUID) (*db_models.User, error)
}

type AuthHandler struct {
	authService AuthService
	log         zerolog.Logger
	now         func() time.Time
}

func NewAuthHandler(authSvc AuthService, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authSvc,
		log:         log.With().Str("handler", "auth").Logger(),
		now:         time.Now,
	}
}

func toUserResponse(u *db_models.User) api_models.UserResponse {
	return api_models.UserResponse{
		ID:         u.ID,
		Email:      u.Email,
		Name:       u.Name,
		IsApproved: u.IsApproved,
	}
}

// HandleSignup handles the POST /v1/auth/signup request.
func (h *AuthHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req api_models.SignupRequest
	if err := httputil.DecodeJSON(w, r, maxJSONBody, &req); err != nil {
		respondDecodeError(w, err)
		return
	}
	if req.Email == "" || req.Password == "" {
		httputil.RespondError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	user, err := h.authService.Signup(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUserAlreadyExists):
			httputil.RespondError(w, http.StatusConflict, err.Error())
		case errors.Is(err, services.ErrValidation):
			httputil.RespondError(w, http.StatusBadRequest, err.Error())
		default:
			h.log.Error().Err(err).Msg("signup failed")
			httputil.RespondError(w, http.StatusInternalServerError, "Signup failed due to an internal error")
		}
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, toUserResponse(user))
}

// HandleLogin handles the POST /v1/auth/login request.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req api_models.LoginRequest
	if err := httputil.DecodeJSON(w, r, maxJSONBody, &req); err != nil {
		respondDecodeError(w, err)
		return
	}

	token, user, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		var ae *services.AuthError
		switch {
		case errors.As(err, &ae) && errors.Is(err, services.ErrAccountNotApproved):
			httputil.RespondNotice(w, http.StatusForbidden, err.Error(), ae.Notice)
		case errors.As(err, &ae):
			httputil.RespondNotice(w, http.StatusUnauthorized, err.Error(), ae.Notice)
		default:
			h.log.Error().Err(err).Msg("login failed")
			httputil.RespondError(w, http.StatusInternalServerError, "Login failed due to an internal error")
		}
		return
	}

	httputil.RespondJSON(w, http.StatusOK, api_models.AuthResponse{
		AccessToken: token,
		User:        toUserResponse(user),
	})
}

// HandleMe handles GET /v1/me. The optional tz query parameter (an IANA zone
// name) selects the clock the greeting is computed in.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromRequest(w, r)
	if !ok {
		return
	}
	now := h.now()
	if tz := r.URL.Query().Get("tz"); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			httputil.RespondError(w, http.StatusBadRequest, "Unknown time zone")
			return
		}
		now = now.In(loc)
	}
	httputil.RespondJSON(w, http.StatusOK, api_models.MeResponse{
		Session:  session,
		Greeting: services.Greeting(now, session.SessionID),
	})
}

// HandleApproveUser handles POST /v1/admin/users/{userID}/approve.
func (h *AuthHandler) HandleApproveUser(w http.ResponseWriter, r *http.Request) {
	adminID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	user, err := h.authService.Approve(r.Context(), adminID, userID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrForbidden):
			httputil.RespondError(w, http.StatusForbidden, err.Error())
		case errors.Is(err, store.ErrNotFound):
			httputil.RespondError(w, http.StatusNotFound, "User not found")
		default:
			h.log.Error().Err(err).Str("user_id", userID.String()).Msg("approve failed")
			httputil.RespondError(w, http.StatusInternalServerError, "Approval failed due to an internal error")
		}
		return
	}
	httputil.RespondJSON(w, http.StatusOK, toUserResponse(user))
}
