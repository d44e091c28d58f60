package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"nebula-backend/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var identity = models.SessionIdentity{UserID: "user-1", Email: "ana@example.com", SessionID: "abcd1234"}

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 5*time.Second, nil, zerolog.Nop())
}

func TestSendBodyShape(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, &got))
		_, _ = w.Write([]byte(`{"reply":"  Hi there \n"}`))
	})

	sentAt := time.Date(2024, 5, 10, 14, 30, 0, 0, time.FixedZone("BRT", -3*3600))
	reply, err := c.Send(context.Background(), Request{Message: "Hello", Session: identity, SentAt: sentAt})
	require.NoError(t, err)
	assert.Equal(t, "Hi there", reply.Reply)
	assert.Empty(t, reply.Attachments)

	assert.Equal(t, "Hello", got["message"])
	assert.Equal(t, "2024-05-10T17:30:00Z", got["timestamp"])
	assert.Equal(t, "conversation", got["messageType"])
	assert.Equal(t, []any{}, got["attachments"])
	assert.Equal(t, map[string]any{
		"userId":    "user-1",
		"userEmail": "ana@example.com",
		"sessionId": "abcd1234",
		"timestamp": "2024-05-10T17:30:00Z",
	}, got["session"])
}

func TestSendAttachments(t *testing.T) {
	var got wireBody
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"reply":"ok","attachments":[{"type":"image","data":"aGk=","name":"a.png","mimeType":"image/png"}]}`))
	})

	audio := models.Attachment{Kind: models.AttachmentAudio, Data: "AAEC", Name: "recording-1.webm", MimeType: "audio/webm"}
	reply, err := c.Send(context.Background(), Request{Attachments: []models.Attachment{audio}, Session: identity})
	require.NoError(t, err)

	assert.Equal(t, models.MessageTypeAudio, got.MessageType)
	require.Len(t, got.Attachments, 1)
	assert.Equal(t, wireAttachment{Type: models.AttachmentAudio, Data: "AAEC", Name: "recording-1.webm", MimeType: "audio/webm"}, got.Attachments[0])

	require.Len(t, reply.Attachments, 1)
	assert.Equal(t, models.AttachmentImage, reply.Attachments[0].Kind)
}

func TestSendEmptyBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	reply, err := c.Send(context.Background(), Request{Message: "Hello", Session: identity})
	require.NoError(t, err)
	assert.Equal(t, "", reply.Reply)
}

func TestSendFailures(t *testing.T) {
	tests := []struct {
		name       string
		handler    http.HandlerFunc
		wantStatus int
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
			wantStatus: http.StatusInternalServerError,
		},
		{
			name: "not found",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.NotFound(w, r)
			},
			wantStatus: http.StatusNotFound,
		},
		{
			name: "not json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("<html>oops</html>"))
			},
			wantStatus: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, tt.handler)
			_, err := c.Send(context.Background(), Request{Message: "Hello", Session: identity})
			var de *DispatchError
			require.True(t, errors.As(err, &de))
			assert.Equal(t, tt.wantStatus, de.StatusCode)
		})
	}
}

func TestSendTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(url, time.Second, nil, zerolog.Nop())
	_, err := c.Send(context.Background(), Request{Message: "Hello", Session: identity})
	var de *DispatchError
	require.True(t, errors.As(err, &de))
	assert.Zero(t, de.StatusCode)
}
