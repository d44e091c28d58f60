package models

import (
	"github.com/google/uuid"
)

// --- Request Structs ---

// SignupRequest defines the expected body for the signup endpoint.
type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

// LoginRequest defines the expected body for the login endpoint.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AttachmentUpload is one attachment in a send request. Data may be plain
// base64 or a full data URL; MimeType is sniffed when omitted.
type AttachmentUpload struct {
	Type     string `json:"type"`
	Name     string `json:"name"`
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data"`
}

// SendMessageRequest defines the body for POST /v1/chat/messages.
type SendMessageRequest struct {
	Message     string             `json:"message"`
	Attachments []AttachmentUpload `json:"attachments,omitempty"`
}

// UpdateBackgroundRequest defines the body for PUT /v1/settings/background.
type UpdateBackgroundRequest struct {
	Type      BackgroundType `json:"type"`
	CustomURL string         `json:"customUrl,omitempty"`
}

// CreateCalendarEventRequest defines the body for POST /v1/calendar/events.
// Date is YYYY-MM-DD.
type CreateCalendarEventRequest struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Date        string `json:"date"`
	Time        string `json:"time,omitempty"`
	MeetingURL  string `json:"meetingUrl,omitempty"`
	Reminders   []int  `json:"reminders,omitempty"`
}

// CreateMusicRequest defines the body for POST /v1/music.
type CreateMusicRequest struct {
	URL    string `json:"url"`
	Title  string `json:"title,omitempty"`
	Artist string `json:"artist,omitempty"`
	Genre  string `json:"genre,omitempty"`
}

// CreateVideoRequest defines the body for POST /v1/videos. Tags is comma separated.
type CreateVideoRequest struct {
	URL         string `json:"url"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Tags        string `json:"tags,omitempty"`
}

// --- Response Structs ---

// UserResponse defines the user information returned by the API.
// Avoid returning sensitive info like HashedPassword.
type UserResponse struct {
	ID         uuid.UUID `json:"id"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	IsApproved bool      `json:"is_approved"`
}

// AuthResponse defines the response body for successful authentication.
type AuthResponse struct {
	AccessToken string       `json:"access_token"`
	User        UserResponse `json:"user"`
}

// MeResponse is returned by GET /v1/me.
type MeResponse struct {
	Session  SessionIdentity `json:"session"`
	Greeting string          `json:"greeting"`
}

// ErrorResponse defines the standard structure for API errors.
// Notice is set when the client should show a localized message.
type ErrorResponse struct {
	Error  string  `json:"error"`
	Notice *Notice `json:"notice,omitempty"`
}

// Notice is a transient, user visible warning (the UI renders it as a toast).
type Notice struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// ConversationResponse is the full log plus the in-flight flag.
type ConversationResponse struct {
	Messages  []Message `json:"messages"`
	IsLoading bool      `json:"is_loading"`
}

// SendMessageResponse is returned by POST /v1/chat/messages.
type SendMessageResponse struct {
	Sent     bool      `json:"sent"`
	Messages []Message `json:"messages"`
	Warnings []Notice  `json:"warnings,omitempty"`
}

// RecordingStatusResponse describes the caller's recorder.
type RecordingStatusResponse struct {
	State      string `json:"state"`
	ChunkCount int    `json:"chunk_count"`
	Bytes      int    `json:"bytes"`
}

// ListMusicResponse wraps a filtered music list.
type ListMusicResponse struct {
	Music  []MusicItem `json:"music"`
	Genres []string    `json:"genres"`
}

// ListVideosResponse wraps a filtered video list.
type ListVideosResponse struct {
	Videos []VideoItem `json:"videos"`
	Tags   []string    `json:"tags"`
}
