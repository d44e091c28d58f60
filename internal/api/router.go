package api

import (
	"net/http"
	"time"

	"nebula-backend/internal/config"
	"nebula-backend/internal/handlers"
	"nebula-backend/pkg/httputil"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

// RouterDependencies holds all the dependencies required by the router setup,
// primarily handlers and configuration.
type RouterDependencies struct {
	AuthHandler     *handlers.AuthHandler
	ChatHandler     *handlers.ChatHandlers
	SettingsHandler *handlers.SettingsHandlers
	ToolsHandler    *handlers.ToolsHandlers
	Config          *config.Config
	Logger          zerolog.Logger
}

// NewRouter creates and configures the main Chi router for the application.
func NewRouter(deps RouterDependencies) *chi.Mux {
	r := chi.NewRouter()
	log := deps.Logger

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(log))
	r.Use(middleware.Recoverer)
	// Webhook round-trips may take up to the webhook timeout.
	r.Use(middleware.Timeout(deps.Config.WebhookTimeout + 15*time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Config.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1/auth", func(r chi.Router) {
		if deps.AuthHandler == nil {
			panic("AuthHandler dependency is nil in router setup")
		}
		r.Post("/signup", deps.AuthHandler.HandleSignup)
		r.Post("/login", deps.AuthHandler.HandleLogin)
	})

	r.Route("/v1", func(r chi.Router) {
		r.Use(JwtAuthMiddleware(deps.Config.JWTSecret, log))

		r.Get("/me", deps.AuthHandler.HandleMe)
		r.With(RequireAdmin).Post("/admin/users/{userID}/approve", deps.AuthHandler.HandleApproveUser)

		if deps.ChatHandler != nil {
			r.Route("/chat", func(r chi.Router) {
				r.Get("/messages", deps.ChatHandler.HandleListMessages)
				r.Post("/messages", deps.ChatHandler.HandleSendMessage)
				r.Delete("/messages", deps.ChatHandler.HandleClearMessages)

				r.Get("/recordings", deps.ChatHandler.HandleRecordingStatus)
				r.Post("/recordings", deps.ChatHandler.HandleStartRecording)
				r.Post("/recordings/chunks", deps.ChatHandler.HandleAppendChunk)
				r.Post("/recordings/stop", deps.ChatHandler.HandleStopRecording)
				r.Delete("/recordings", deps.ChatHandler.HandleCancelRecording)
			})
		} else {
			log.Warn().Msg("ChatHandler dependency is nil, skipping /v1/chat routes")
		}

		if deps.SettingsHandler != nil {
			r.Get("/settings/background", deps.SettingsHandler.HandleGetBackground)
			r.Put("/settings/background", deps.SettingsHandler.HandleUpdateBackground)
		} else {
			log.Warn().Msg("SettingsHandler dependency is nil, skipping /v1/settings routes")
		}

		if deps.ToolsHandler != nil {
			r.Route("/calendar/events", func(r chi.Router) {
				r.Get("/", deps.ToolsHandler.HandleListEvents)
				r.Post("/", deps.ToolsHandler.HandleCreateEvent)
				r.Delete("/{eventID}", deps.ToolsHandler.HandleDeleteEvent)
			})
			r.Route("/music", func(r chi.Router) {
				r.Get("/", deps.ToolsHandler.HandleListMusic)
				r.Post("/", deps.ToolsHandler.HandleCreateMusic)
				r.Get("/genres", deps.ToolsHandler.HandleListGenres)
				r.Delete("/{musicID}", deps.ToolsHandler.HandleDeleteMusic)
			})
			r.Route("/videos", func(r chi.Router) {
				r.Get("/", deps.ToolsHandler.HandleListVideos)
				r.Post("/", deps.ToolsHandler.HandleCreateVideo)
				r.Get("/tags", deps.ToolsHandler.HandleListTags)
				r.Delete("/{videoID}", deps.ToolsHandler.HandleDeleteVideo)
			})
		} else {
			log.Warn().Msg("ToolsHandler dependency is nil, skipping tool routes")
		}
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httputil.RespondError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httputil.RespondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	return r
}
