package handlers

import (
	"net/http"

	"nebula-backend/internal/models"
	"nebula-backend/internal/services"
	"nebula-backend/pkg/httputil"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// ToolsHandlers serves the calendar, music and video bookmarks.
type ToolsHandlers struct {
	calendar *services.CalendarService
	music    *services.MusicService
	videos   *services.VideoService
	log      zerolog.Logger
}

func NewToolsHandlers(calendar *services.CalendarService, music *services.MusicService, videos *services.VideoService, log zerolog.Logger) *ToolsHandlers {
	return &ToolsHandlers{
		calendar: calendar,
		music:    music,
		videos:   videos,
		log:      log.With().Str("handler", "tools").Logger(),
	}
}

// HandleListEvents handles GET /v1/calendar/events[?date=YYYY-MM-DD].
func (h *ToolsHandlers) HandleListEvents(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromRequest(w, r)
	if !ok {
		return
	}
	var (
		events []models.CalendarEvent
		err    error
	)
	if raw := r.URL.Query().Get("date"); raw != "" {
		day, perr := h.calendar.ParseDate(raw)
		if perr != nil {
			respondServiceError(w, h.log, perr, "Invalid date")
			return
		}
		events, err = h.calendar.EventsOn(r.Context(), session.UserID, day)
	} else {
		events, err = h.calendar.Events(r.Context(), session.UserID)
	}
	if err != nil {
		respondServiceError(w, h.log, err, "Failed to load events")
		return
	}
	httputil.RespondJSON(w, http.StatusOK, events)
}

// HandleCreateEvent handles POST /v1/calendar/events.
func (h *ToolsHandlers) HandleCreateEvent(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromRequest(w, r)
	if !ok {
		return
	}
	var req models.CreateCalendarEventRequest
	if err := httputil.DecodeJSON(w, r, maxJSONBody, &req); err != nil {
		respondDecodeError(w, err)
		return
	}
	event, err := h.calendar.AddEvent(r.Context(), session.UserID, req)
	if err != nil {
		respondServiceError(w, h.log, err, "Failed to add event")
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, event)
}

// HandleDeleteEvent handles DELETE /v1/calendar/events/{eventID}.
func (h *ToolsHandlers) HandleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromRequest(w, r)
	if !ok {
		return
	}
	if err := h.calendar.DeleteEvent(r.Context(), session.UserID, chi.URLParam(r, "eventID")); err != nil {
		respondServiceError(w, h.log, err, "Failed to delete event")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleListMusic handles GET /v1/music[?q=&genre=].
func (h *ToolsHandlers) HandleListMusic(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromRequest(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	list, err := h.music.List(r.Context(), session.UserID, services.MusicFilter{Query: q.Get("q"), Genre: q.Get("genre")})
	if err != nil {
		respondServiceError(w, h.log, err, "Failed to load music")
		return
	}
	httputil.RespondJSON(w, http.StatusOK, list)
}

// HandleListGenres handles GET /v1/music/genres.
func (h *ToolsHandlers) HandleListGenres(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromRequest(w, r)
	if !ok {
		return
	}
	genres, err := h.music.Genres(r.Context(), session.UserID)
	if err != nil {
		respondServiceError(w, h.log, err, "Failed to load genres")
		return
	}
	httputil.RespondJSON(w, http.StatusOK, genres)
}

// HandleCreateMusic handles POST /v1/music.
func (h *ToolsHandlers) HandleCreateMusic(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromRequest(w, r)
	if !ok {
		return
	}
	var req models.CreateMusicRequest
	if err := httputil.DecodeJSON(w, r, maxJSONBody, &req); err != nil {
		respondDecodeError(w, err)
		return
	}
	item, err := h.music.Add(r.Context(), session.UserID, req)
	if err != nil {
		respondServiceError(w, h.log, err, "Failed to add music")
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, item)
}

// HandleDeleteMusic handles DELETE /v1/music/{musicID}.
func (h *ToolsHandlers) HandleDeleteMusic(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromRequest(w, r)
	if !ok {
		return
	}
	if err := h.music.Delete(r.Context(), session.UserID, chi.URLParam(r, "musicID")); err != nil {
		respondServiceError(w, h.log, err, "Failed to delete music")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleListVideos handles GET /v1/videos[?q=&tag=].
func (h *ToolsHandlers) HandleListVideos(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromRequest(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	list, err := h.videos.List(r.Context(), session.UserID, services.VideoFilter{Query: q.Get("q"), Tag: q.Get("tag")})
	if err != nil {
		respondServiceError(w, h.log, err, "Failed to load videos")
		return
	}
	httputil.RespondJSON(w, http.StatusOK, list)
}

// HandleListTags handles GET /v1/videos/tags.
func (h *ToolsHandlers) HandleListTags(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromRequest(w, r)
	if !ok {
		return
	}
	tags, err := h.videos.Tags(r.Context(), session.UserID)
	if err != nil {
		respondServiceError(w, h.log, err, "Failed to load tags")
		return
	}
	httputil.RespondJSON(w, http.StatusOK, tags)
}

// HandleCreateVideo handles POST /v1/videos.
func (h *ToolsHandlers) HandleCreateVideo(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromRequest(w, r)
	if !ok {
		return
	}
	var req models.CreateVideoRequest
	if err := httputil.DecodeJSON(w, r, maxJSONBody, &req); err != nil {
		respondDecodeError(w, err)
		return
	}
	item, err := h.videos.Add(r.Context(), session.UserID, req)
	if err != nil {
		respondServiceError(w, h.log, err, "Failed to add video")
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, item)
}

// HandleDeleteVideo handles DELETE /v1/videos/{videoID}.
func (h *ToolsHandlers) HandleDeleteVideo(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromRequest(w, r)
	if !ok {
		return
	}
	if err := h.videos.Delete(r.Context(), session.UserID, chi.URLParam(r, "videoID")); err != nil {
		respondServiceError(w, h.log, err, "Failed to delete video")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
