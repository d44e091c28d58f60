package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"nebula-backend/internal/api"
	"nebula-backend/internal/attachments"
	"nebula-backend/internal/config"
	"nebula-backend/internal/dispatch"
	"nebula-backend/internal/handlers"
	"nebula-backend/internal/models"
	"nebula-backend/internal/notify"
	"nebula-backend/internal/recorder"
	"nebula-backend/internal/services"
	"nebula-backend/internal/store/memory"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type webhook struct {
	mu     sync.Mutex
	bodies []map[string]any
	status int
}

func (wh *webhook) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)
	wh.mu.Lock()
	wh.bodies = append(wh.bodies, body)
	status := wh.status
	wh.mu.Unlock()
	if status != 0 {
		w.WriteHeader(status)
		return
	}
	_, _ = w.Write([]byte(`{"reply":"Hi there"}`))
}

type testServer struct {
	t       *testing.T
	handler http.Handler
	hook    *webhook
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log := zerolog.Nop()
	hook := &webhook{}
	hookSrv := httptest.NewServer(hook)
	t.Cleanup(hookSrv.Close)

	cfg := &config.Config{
		JWTSecret:       "test-secret",
		TokenExpiration: time.Hour,
		AdminEmails:     []string{"admin@example.com"},
		WebhookURL:      hookSrv.URL,
		WebhookTimeout:  5 * time.Second,
		AllowedOrigins:  []string{"http://localhost:3000"},
	}
	st := memory.NewStore()
	encoder := attachments.NewEncoder(1 << 20)
	chat := services.NewChatService(st, dispatch.NewClient(cfg.WebhookURL, cfg.WebhookTimeout, nil, log), notify.NewLogNotifier(log), encoder, log)
	recording := services.NewRecordingService(chat, services.RecordingOptions{
		Device:      recorder.UploadDevice{Mime: recorder.DefaultMimeType, Enabled: true},
		Encoder:     encoder,
		MaxDuration: time.Minute,
	}, log)

	router := api.NewRouter(api.RouterDependencies{
		AuthHandler:     handlers.NewAuthHandler(services.NewAuthService(st, cfg, log), log),
		ChatHandler:     handlers.NewChatHandlers(chat, recording, encoder.MaxBytes, log),
		SettingsHandler: handlers.NewSettingsHandlers(services.NewPreferencesService(st), log),
		ToolsHandler: handlers.NewToolsHandlers(
			services.NewCalendarService(st, time.UTC, log),
			services.NewMusicService(st, log),
			services.NewVideoService(st, log),
			log,
		),
		Config: cfg,
		Logger: log,
	})
	return &testServer{t: t, handler: router, hook: hook}
}

func (s *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case []byte:
		buf.Write(b)
	default:
		require.NoError(s.t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (s *testServer) signupAndLogin(email string) string {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/v1/auth/signup", "", models.SignupRequest{Email: email, Password: "s3cret-pass"})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = s.do(http.MethodPost, "/v1/auth/login", "", models.LoginRequest{Email: email, Password: "s3cret-pass"})
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[models.AuthResponse](s.t, rec).AccessToken
}

func TestApprovalFlow(t *testing.T) {
	s := newTestServer(t)
	adminToken := s.signupAndLogin("admin@example.com")

	rec := s.do(http.MethodPost, "/v1/auth/signup", "", models.SignupRequest{Email: "ana@example.com", Password: "s3cret-pass", Name: "Ana"})
	require.Equal(t, http.StatusCreated, rec.Code)
	ana := decode[models.UserResponse](t, rec)
	assert.False(t, ana.IsApproved)

	rec = s.do(http.MethodPost, "/v1/auth/signup", "", models.SignupRequest{Email: "ana@example.com", Password: "other-pass"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(http.MethodPost, "/v1/auth/login", "", models.LoginRequest{Email: "ana@example.com", Password: "s3cret-pass"})
	require.Equal(t, http.StatusForbidden, rec.Code)
	errResp := decode[models.ErrorResponse](t, rec)
	require.NotNil(t, errResp.Notice)
	assert.Equal(t, "Conta não aprovada", errResp.Notice.Title)

	rec = s.do(http.MethodPost, "/v1/auth/login", "", models.LoginRequest{Email: "ana@example.com", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodPost, "/v1/admin/users/"+ana.ID.String()+"/approve", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decode[models.UserResponse](t, rec).IsApproved)

	rec = s.do(http.MethodPost, "/v1/auth/login", "", models.LoginRequest{Email: "ana@example.com", Password: "s3cret-pass"})
	require.Equal(t, http.StatusOK, rec.Code)
	anaToken := decode[models.AuthResponse](t, rec).AccessToken

	rec = s.do(http.MethodPost, "/v1/admin/users/"+ana.ID.String()+"/approve", anaToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestChatRoundTrip(t *testing.T) {
	s := newTestServer(t)
	token := s.signupAndLogin("admin@example.com")

	rec := s.do(http.MethodGet, "/v1/chat/messages", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodPost, "/v1/chat/messages", token, models.SendMessageRequest{Message: "Hello"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	sent := decode[models.SendMessageResponse](t, rec)
	assert.True(t, sent.Sent)
	require.Len(t, sent.Messages, 2)
	assert.Equal(t, "Hello", sent.Messages[0].Content)
	assert.Equal(t, "Hi there", sent.Messages[1].Content)

	require.Len(t, s.hook.bodies, 1)
	assert.Equal(t, "Hello", s.hook.bodies[0]["message"])
	assert.Equal(t, []any{}, s.hook.bodies[0]["attachments"])
	session := s.hook.bodies[0]["session"].(map[string]any)
	assert.Equal(t, "admin@example.com", session["userEmail"])
	assert.Len(t, session["sessionId"], 8)

	rec = s.do(http.MethodPost, "/v1/chat/messages", token, models.SendMessageRequest{Message: "   "})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[models.SendMessageResponse](t, rec).Sent)

	s.hook.mu.Lock()
	s.hook.status = http.StatusBadGateway
	s.hook.mu.Unlock()
	rec = s.do(http.MethodPost, "/v1/chat/messages", token, models.SendMessageRequest{Message: "Again"})
	require.Equal(t, http.StatusOK, rec.Code)
	failed := decode[models.SendMessageResponse](t, rec)
	require.Len(t, failed.Messages, 2)
	assert.Equal(t, services.ApologyReply, failed.Messages[1].Content)
	assert.Equal(t, []models.Notice{services.SendFailureNotice}, failed.Warnings)

	rec = s.do(http.MethodGet, "/v1/chat/messages", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[models.ConversationResponse](t, rec).Messages, 4)

	rec = s.do(http.MethodDelete, "/v1/chat/messages", token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(http.MethodGet, "/v1/chat/messages", token, nil)
	assert.Empty(t, decode[models.ConversationResponse](t, rec).Messages)
}

func TestRecordingOverHTTP(t *testing.T) {
	s := newTestServer(t)
	token := s.signupAndLogin("admin@example.com")

	rec := s.do(http.MethodPost, "/v1/chat/recordings/stop", token, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(http.MethodPost, "/v1/chat/recordings", token, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "recording", decode[models.RecordingStatusResponse](t, rec).State)

	rec = s.do(http.MethodPost, "/v1/chat/recordings", token, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(http.MethodPost, "/v1/chat/recordings/chunks", token, []byte{0x1a, 0x45, 0xdf, 0xa3})
	require.Equal(t, http.StatusAccepted, rec.Code)
	status := decode[models.RecordingStatusResponse](t, rec)
	assert.Equal(t, 1, status.ChunkCount)
	assert.Equal(t, 4, status.Bytes)

	rec = s.do(http.MethodPost, "/v1/chat/recordings/stop", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[models.SendMessageResponse](t, rec)
	require.Len(t, resp.Messages, 2)
	assert.Equal(t, models.MessageTypeAudio, resp.Messages[0].Type)
	require.Len(t, resp.Messages[0].Attachments, 1)
	assert.Equal(t, "audio/webm", resp.Messages[0].Attachments[0].MimeType)
	assert.Equal(t, "audio", s.hook.bodies[0]["messageType"])

	rec = s.do(http.MethodPost, "/v1/chat/recordings", token, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = s.do(http.MethodDelete, "/v1/chat/recordings", token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Len(t, s.hook.bodies, 1)
}

func TestToolsAndSettings(t *testing.T) {
	s := newTestServer(t)
	token := s.signupAndLogin("admin@example.com")

	rec := s.do(http.MethodGet, "/v1/settings/background", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.BackgroundNebula, decode[models.BackgroundPreference](t, rec).Type)

	rec = s.do(http.MethodPut, "/v1/settings/background", token, models.UpdateBackgroundRequest{Type: "aurora"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, "/v1/music/", token, models.CreateMusicRequest{URL: "https://youtu.be/dQw4w9WgXcQ"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = s.do(http.MethodPost, "/v1/music/", token, models.CreateMusicRequest{URL: "https://youtu.be/dQw4w9WgXcQ"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	rec = s.do(http.MethodPost, "/v1/music/", token, models.CreateMusicRequest{URL: "https://example.com"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotNil(t, decode[models.ErrorResponse](t, rec).Notice)

	rec = s.do(http.MethodDelete, "/v1/videos/nope", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodGet, "/v1/calendar/events/?date=2025-12-25", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not found", decode[models.ErrorResponse](t, rec).Error)

	rec = s.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
