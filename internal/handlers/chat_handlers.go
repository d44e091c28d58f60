package handlers

import (
	"errors"
	"io"
	"net/http"

	"nebula-backend/internal/attachments"
	"nebula-backend/internal/logger"
	"nebula-backend/internal/models"
	"nebula-backend/internal/recorder"
	"nebula-backend/internal/services"
	"nebula-backend/pkg/httputil"

	"github.com/rs/zerolog"
)

// ChatHandlers handles HTTP requests for the conversation and voice recording.
type ChatHandlers struct {
	chatService      *services.ChatService
	recordingService *services.RecordingService
	maxBodyBytes     int64
	log              zerolog.Logger
}

// maxAttachmentsPerBody sizes the request body limit, not the attachment count.
const maxAttachmentsPerBody = 4

// NewChatHandlers creates a new ChatHandlers instance. maxAttachmentBytes
// bounds a single decoded attachment.
func NewChatHandlers(chatService *services.ChatService, recordingService *services.RecordingService, maxAttachmentBytes int64, log zerolog.Logger) *ChatHandlers {
	return &ChatHandlers{
		chatService:      chatService,
		recordingService: recordingService,
		maxBodyBytes:     base64Len(maxAttachmentBytes)*maxAttachmentsPerBody + maxJSONBody,
		log:              log.With().Str("handler", "chat").Logger(),
	}
}

func (h *ChatHandlers) conversationResponse(w http.ResponseWriter, r *http.Request, owner string) (models.ConversationResponse, bool) {
	conv, err := h.chatService.Conversation(r.Context(), owner)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", owner).Msg("opening conversation failed")
		httputil.RespondError(w, http.StatusInternalServerError, "Failed to load messages")
		return models.ConversationResponse{}, false
	}
	return models.ConversationResponse{Messages: conv.Messages(), IsLoading: conv.IsLoading()}, true
}

// HandleListMessages handles GET /v1/chat/messages.
func (h *ChatHandlers) HandleListMessages(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromRequest(w, r)
	if !ok {
		return
	}
	resp, ok := h.conversationResponse(w, r, session.UserID)
	if !ok {
		return
	}
	httputil.RespondJSON(w, http.StatusOK, resp)
}

// HandleSendMessage handles POST /v1/chat/messages. A failed webhook round-trip
// still answers 200: the apology is part of the log and the warning is
// returned next to it.
func (h *ChatHandlers) HandleSendMessage(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromRequest(w, r)
	if !ok {
		return
	}
	var req models.SendMessageRequest
	if err := httputil.DecodeJSON(w, r, h.maxBodyBytes, &req); err != nil {
		respondDecodeError(w, err)
		return
	}

	res, err := h.chatService.Send(r.Context(), session, req.Message, req.Attachments)
	warnings := h.chatService.DrainWarnings(session.UserID)
	if err != nil {
		reqLog := logger.FromContext(r.Context(), h.log)
		switch {
		case errors.Is(err, services.ErrSendInProgress):
			httputil.RespondError(w, http.StatusConflict, err.Error())
			return
		case errors.Is(err, attachments.ErrTooLarge):
			httputil.RespondError(w, http.StatusRequestEntityTooLarge, err.Error())
			return
		case errors.Is(err, services.ErrValidation):
			httputil.RespondError(w, http.StatusBadRequest, err.Error())
			return
		case !res.Sent:
			reqLog.Error().Err(err).Str("user_id", session.UserID).Msg("sending message failed")
			httputil.RespondError(w, http.StatusInternalServerError, "Failed to send message")
			return
		}
		// Persisting failed after both messages were appended.
		reqLog.Error().Err(err).Str("user_id", session.UserID).Msg("saving chat history failed")
	}

	resp := models.SendMessageResponse{Sent: res.Sent, Messages: []models.Message{}, Warnings: warnings}
	if res.Sent {
		resp.Messages = []models.Message{res.User, res.Reply}
	}
	httputil.RespondJSON(w, http.StatusOK, resp)
}

// HandleClearMessages handles DELETE /v1/chat/messages.
func (h *ChatHandlers) HandleClearMessages(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromRequest(w, r)
	if !ok {
		return
	}
	if err := h.chatService.Clear(r.Context(), session.UserID); err != nil {
		h.log.Error().Err(err).Str("user_id", session.UserID).Msg("clearing messages failed")
		httputil.RespondError(w, http.StatusInternalServerError, "Failed to clear messages")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleRecordingStatus handles GET /v1/chat/recordings.
func (h *ChatHandlers) HandleRecordingStatus(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromRequest(w, r)
	if !ok {
		return
	}
	httputil.RespondJSON(w, http.StatusOK, h.recordingService.Status(session.UserID))
}

// HandleStartRecording handles POST /v1/chat/recordings.
func (h *ChatHandlers) HandleStartRecording(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromRequest(w, r)
	if !ok {
		return
	}
	if err := h.recordingService.Start(r.Context(), session); err != nil {
		h.respondRecordingError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, h.recordingService.Status(session.UserID))
}

// HandleAppendChunk handles POST /v1/chat/recordings/chunks. The body is the
// raw audio chunk.
func (h *ChatHandlers) HandleAppendChunk(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromRequest(w, r)
	if !ok {
		return
	}
	defer r.Body.Close()
	chunk, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			httputil.RespondError(w, http.StatusRequestEntityTooLarge, httputil.ErrBodyTooLarge.Error())
			return
		}
		httputil.RespondError(w, http.StatusBadRequest, "Failed to read audio chunk")
		return
	}
	if err := h.recordingService.Append(session.UserID, chunk); err != nil {
		h.respondRecordingError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusAccepted, h.recordingService.Status(session.UserID))
}

// HandleStopRecording handles POST /v1/chat/recordings/stop. The recording is
// sent as an audio message and the updated log is returned.
func (h *ChatHandlers) HandleStopRecording(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromRequest(w, r)
	if !ok {
		return
	}
	err := h.recordingService.Stop(r.Context(), session.UserID)
	warnings := h.chatService.DrainWarnings(session.UserID)
	if err != nil {
		h.respondRecordingError(w, err)
		return
	}
	conv, ok := h.conversationResponse(w, r, session.UserID)
	if !ok {
		return
	}
	httputil.RespondJSON(w, http.StatusOK, models.SendMessageResponse{
		Sent:     true,
		Messages: conv.Messages,
		Warnings: warnings,
	})
}

// HandleCancelRecording handles DELETE /v1/chat/recordings.
func (h *ChatHandlers) HandleCancelRecording(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFromRequest(w, r)
	if !ok {
		return
	}
	if err := h.recordingService.Cancel(session.UserID); err != nil {
		h.respondRecordingError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ChatHandlers) respondRecordingError(w http.ResponseWriter, err error) {
	var mae *recorder.MediaAccessError
	switch {
	case errors.As(err, &mae):
		httputil.RespondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, recorder.ErrAlreadyRecording):
		httputil.RespondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, recorder.ErrNotRecording):
		httputil.RespondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, attachments.ErrEmpty):
		httputil.RespondError(w, http.StatusBadRequest, "Recording contains no audio")
	case errors.Is(err, attachments.ErrTooLarge):
		httputil.RespondError(w, http.StatusRequestEntityTooLarge, err.Error())
	default:
		h.log.Error().Err(err).Msg("recording request failed")
		httputil.RespondError(w, http.StatusInternalServerError, "Recording failed")
	}
}

func base64Len(n int64) int64 {
	return (n + 2) / 3 * 4
}
