// Package dispatch posts conversation turns to the automation webhook.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"nebula-backend/internal/models"

	"github.com/rs/zerolog"
)

// maxReplyBytes bounds how much of a webhook response is read.
const maxReplyBytes = 32 << 20

// DispatchError is returned for any failed round-trip: transport failure,
// non-2xx status or a body that is not JSON. StatusCode is 0 when no response
// was received.
type DispatchError struct {
	StatusCode int
	Status     string
	Err        error
}

func (e *DispatchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("webhook dispatch failed with status %s: %v", e.Status, e.Err)
	}
	return fmt.Sprintf("webhook dispatch failed: %v", e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }

// Request is one outgoing conversation turn.
type Request struct {
	Message     string
	Attachments []models.Attachment
	Session     models.SessionIdentity
	SentAt      time.Time
}

// Reply is the webhook's answer. Both fields are optional.
type Reply struct {
	Reply       string              `json:"reply,omitempty"`
	Attachments []models.Attachment `json:"attachments,omitempty"`
}

type wireSession struct {
	UserID    string `json:"userId"`
	UserEmail string `json:"userEmail"`
	SessionID string `json:"sessionId"`
	Timestamp string `json:"timestamp"`
}

type wireAttachment struct {
	Type     models.AttachmentKind `json:"type"`
	Data     string                `json:"data"`
	Name     string                `json:"name"`
	MimeType string                `json:"mimeType"`
}

type wireBody struct {
	Message     string             `json:"message"`
	Timestamp   string             `json:"timestamp"`
	MessageType models.MessageType `json:"messageType"`
	Attachments []wireAttachment   `json:"attachments"`
	Session     wireSession        `json:"session"`
}

// Client performs a single POST per Send. It never retries.
type Client struct {
	url        string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewClient returns a Client for the given webhook URL. A nil httpClient gets
// a default client with the given timeout.
func NewClient(url string, timeout time.Duration, httpClient *http.Client, log zerolog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		url:        url,
		httpClient: httpClient,
		log:        log.With().Str("component", "webhook-dispatch").Logger(),
	}
}

// URL returns the configured endpoint.
func (c *Client) URL() string { return c.url }

// Send posts req and decodes the reply.
func (c *Client) Send(ctx context.Context, req Request) (*Reply, error) {
	sentAt := req.SentAt
	if sentAt.IsZero() {
		sentAt = time.Now()
	}
	stamp := sentAt.UTC().Format(time.RFC3339Nano)

	body := wireBody{
		Message:     req.Message,
		Timestamp:   stamp,
		MessageType: models.MessageTypeFor(req.Attachments),
		Attachments: make([]wireAttachment, 0, len(req.Attachments)),
		Session: wireSession{
			UserID:    req.Session.UserID,
			UserEmail: req.Session.Email,
			SessionID: req.Session.SessionID,
			Timestamp: stamp,
		},
	}
	for _, a := range req.Attachments {
		body.Attachments = append(body.Attachments, wireAttachment{
			Type:     a.Kind,
			Data:     a.Data,
			Name:     a.Name,
			MimeType: a.MimeType,
		})
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &DispatchError{Err: fmt.Errorf("encoding request: %w", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, &DispatchError{Err: fmt.Errorf("building request: %w", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.log.Warn().Err(err).Str("user_id", req.Session.UserID).Msg("webhook request failed")
		return nil, &DispatchError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		return nil, &DispatchError{StatusCode: resp.StatusCode, Status: resp.Status, Err: fmt.Errorf("reading response: %w", err)}
	}

	c.log.Debug().
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Str("message_type", string(body.MessageType)).
		Int("attachments", len(body.Attachments)).
		Msg("webhook responded")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &DispatchError{StatusCode: resp.StatusCode, Status: resp.Status, Err: fmt.Errorf("unexpected status")}
	}

	reply := &Reply{}
	if len(bytes.TrimSpace(raw)) == 0 {
		return reply, nil
	}
	if err := json.Unmarshal(raw, reply); err != nil {
		return nil, &DispatchError{StatusCode: resp.StatusCode, Status: resp.Status, Err: fmt.Errorf("decoding response: %w", err)}
	}
	reply.Reply = strings.TrimSpace(reply.Reply)
	return reply, nil
}
