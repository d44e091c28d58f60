package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"nebula-backend/internal/attachments"
	"nebula-backend/internal/models"
	"nebula-backend/internal/notify"
	"nebula-backend/internal/store"

	"github.com/rs/zerolog"
)

var ErrSendInProgress = errors.New("a message is already awaiting a reply")

// ChatService owns the per-user conversations. Each conversation is opened
// on first use and cached for the life of the process.
type ChatService struct {
	slots      store.SlotStore
	dispatcher Dispatcher
	notifier   notify.Notifier
	warnings   *notify.Collector
	encoder    *attachments.Encoder
	log        zerolog.Logger
	opts       []ConversationOption

	mu            sync.Mutex
	conversations map[string]*Conversation
}

// NewChatService wires the conversation dependencies. Warnings raised while
// handling a request go to notifier and are also collected so the caller can
// return them with the response.
func NewChatService(slots store.SlotStore, dispatcher Dispatcher, notifier notify.Notifier, encoder *attachments.Encoder, log zerolog.Logger, opts ...ConversationOption) *ChatService {
	warnings := notify.NewCollector()
	var fanout notify.Notifier = warnings
	if notifier != nil {
		fanout = notify.Multi{notifier, warnings}
	}
	if encoder == nil {
		encoder = attachments.NewEncoder(0)
	}
	return &ChatService{
		slots:         slots,
		dispatcher:    dispatcher,
		notifier:      fanout,
		warnings:      warnings,
		encoder:       encoder,
		log:           log.With().Str("component", "chat-service").Logger(),
		opts:          opts,
		conversations: make(map[string]*Conversation),
	}
}

// Conversation returns owner's conversation, opening it on first use.
func (s *ChatService) Conversation(ctx context.Context, owner string) (*Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.conversations[owner]; ok {
		return c, nil
	}
	c, err := OpenConversation(ctx, owner, s.slots, s.dispatcher, s.notifier, s.log, s.opts...)
	if err != nil {
		return nil, err
	}
	s.conversations[owner] = c
	return c, nil
}

// Send decodes the uploads and sends one turn for identity. It refuses to
// start a turn while the previous one is still awaiting its reply.
func (s *ChatService) Send(ctx context.Context, identity models.SessionIdentity, text string, uploads []models.AttachmentUpload) (SendResult, error) {
	atts, err := s.DecodeUploads(uploads)
	if err != nil {
		return SendResult{}, err
	}
	return s.SendAttachments(ctx, identity, text, atts)
}

// SendAttachments sends a turn whose attachments are already encoded.
func (s *ChatService) SendAttachments(ctx context.Context, identity models.SessionIdentity, text string, atts []models.Attachment) (SendResult, error) {
	c, err := s.Conversation(ctx, identity.UserID)
	if err != nil {
		return SendResult{}, err
	}
	return c.TrySendMessage(ctx, identity, text, atts)
}

// Clear empties owner's log.
func (s *ChatService) Clear(ctx context.Context, owner string) error {
	c, err := s.Conversation(ctx, owner)
	if err != nil {
		return err
	}
	return c.ClearMessages(ctx)
}

// DrainWarnings returns the warnings raised for owner since the last drain.
func (s *ChatService) DrainWarnings(owner string) []models.Notice {
	return s.warnings.Drain(owner)
}

// DecodeUploads validates and normalizes attachments from an API request.
func (s *ChatService) DecodeUploads(uploads []models.AttachmentUpload) ([]models.Attachment, error) {
	if len(uploads) == 0 {
		return nil, nil
	}
	out := make([]models.Attachment, 0, len(uploads))
	for i, u := range uploads {
		kind, ok := models.ParseAttachmentKind(strings.ToLower(strings.TrimSpace(u.Type)))
		if !ok {
			return nil, fmt.Errorf("%w: attachment %d has unknown type %q", ErrValidation, i, u.Type)
		}
		name := strings.TrimSpace(u.Name)
		if name == "" {
			name = fmt.Sprintf("%s-%d", kind, i+1)
		}
		a, err := s.encoder.FromDataURL(name, u.Data, strings.TrimSpace(u.MimeType), kind)
		if err != nil {
			return nil, fmt.Errorf("%w: attachment %q: %w", ErrValidation, name, err)
		}
		out = append(out, a)
	}
	return out, nil
}
