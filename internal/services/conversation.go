package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"nebula-backend/internal/dispatch"
	"nebula-backend/internal/models"
	"nebula-backend/internal/notify"
	"nebula-backend/internal/persist"
	"nebula-backend/internal/store"

	"github.com/rs/zerolog"
)

const (
	// FallbackReply is used when the webhook answers without a reply text.
	FallbackReply = "Olá! Este é um assistente de demonstração. Em breve o webhook real será implementado."
	// ApologyReply stands in for the assistant when the webhook round-trip fails.
	ApologyReply = "Desculpe, estou com dificuldades para processar sua mensagem no momento. Por favor, tente novamente mais tarde."
)

// SendFailureNotice is raised through the Notifier when a dispatch fails.
var SendFailureNotice = models.Notice{
	Title:       "Erro ao enviar mensagem",
	Description: "Não foi possível enviar sua mensagem. Tente novamente mais tarde.",
}

// Dispatcher delivers a turn to the automation backend.
type Dispatcher interface {
	Send(ctx context.Context, req dispatch.Request) (*dispatch.Reply, error)
}

// SendResult describes what a SendMessage call appended.
type SendResult struct {
	Sent bool
	// User and Reply are the two messages appended by an accepted send.
	User  models.Message
	Reply models.Message
	// DispatchFailed is true when Reply is the apology.
	DispatchFailed bool
}

// Conversation is one owner's message log. It keeps the log in memory and
// writes it through to the slot store after every change.
//
// Sends are not serialized: a second SendMessage while one is awaiting its
// reply is accepted and each reply is appended when its dispatch settles.
// Callers that need one turn at a time use TrySendMessage.
type Conversation struct {
	owner      string
	slots      store.SlotStore
	dispatcher Dispatcher
	notifier   notify.Notifier
	log        zerolog.Logger
	now        func() time.Time

	mu       sync.Mutex
	messages []models.Message
	inFlight int

	saveMu sync.Mutex
}

type ConversationOption func(*Conversation)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) ConversationOption {
	return func(c *Conversation) { c.now = now }
}

// OpenConversation loads owner's saved log. A saved log that cannot be parsed
// is logged and treated as empty; store failures are returned.
func OpenConversation(ctx context.Context, owner string, slots store.SlotStore, dispatcher Dispatcher, notifier notify.Notifier, log zerolog.Logger, opts ...ConversationOption) (*Conversation, error) {
	c := &Conversation{
		owner:      owner,
		slots:      slots,
		dispatcher: dispatcher,
		notifier:   notifier,
		log:        log.With().Str("component", "conversation").Str("owner", owner).Logger(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	saved, _, err := persist.LoadList[models.Message](ctx, slots, owner, persist.KeyChatMessages)
	switch {
	case persist.IsParseError(err):
		c.log.Warn().Err(err).Msg("discarding unreadable chat history")
	case err != nil:
		return nil, fmt.Errorf("loading chat history: %w", err)
	default:
		for i := range saved {
			// Histories imported without timestamps fall back to the id's instant.
			if saved[i].Timestamp.IsZero() {
				if at, err := models.MessageIDTime(saved[i].ID); err == nil {
					saved[i].Timestamp = at
				}
			}
		}
		c.messages = saved
	}
	return c, nil
}

// Messages returns a copy of the log.
func (c *Conversation) Messages() []models.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// IsLoading reports whether a send is awaiting its reply.
func (c *Conversation) IsLoading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight > 0
}

// SendMessage appends the user's turn, dispatches it and appends the reply.
// Blank text without attachments is ignored. An accepted send always appends
// exactly two messages; dispatch failures become the apology reply plus a
// warning and are not returned. The error is non-nil only when persisting
// failed, in which case the in-memory log is already updated.
//
// Once accepted, the turn is not tied to ctx's cancellation: the dispatch is
// bounded by the dispatcher's own timeout and both saves always run.
func (c *Conversation) SendMessage(ctx context.Context, identity models.SessionIdentity, text string, attachments []models.Attachment) (SendResult, error) {
	return c.send(ctx, identity, text, attachments, false)
}

// TrySendMessage is SendMessage, except that it returns ErrSendInProgress
// without appending anything while another send is awaiting its reply.
func (c *Conversation) TrySendMessage(ctx context.Context, identity models.SessionIdentity, text string, attachments []models.Attachment) (SendResult, error) {
	return c.send(ctx, identity, text, attachments, true)
}

func (c *Conversation) send(ctx context.Context, identity models.SessionIdentity, text string, attachments []models.Attachment, exclusive bool) (SendResult, error) {
	if strings.TrimSpace(text) == "" && len(attachments) == 0 {
		return SendResult{}, nil
	}
	ctx = context.WithoutCancel(ctx)

	sentAt := c.now()
	userMsg := models.Message{
		ID:          models.NewMessageID(sentAt),
		Content:     text,
		Sender:      models.SenderUser,
		Timestamp:   sentAt,
		Attachments: cloneAttachments(attachments),
		Type:        models.MessageTypeFor(attachments),
	}

	c.mu.Lock()
	if exclusive && c.inFlight > 0 {
		c.mu.Unlock()
		return SendResult{}, ErrSendInProgress
	}
	c.messages = append(c.messages, userMsg)
	c.inFlight++
	c.mu.Unlock()

	var errs []error
	if err := c.save(ctx); err != nil {
		errs = append(errs, err)
	}

	reply, dispatchErr := c.dispatcher.Send(ctx, dispatch.Request{
		Message:     text,
		Attachments: userMsg.Attachments,
		Session:     identity,
		SentAt:      sentAt,
	})

	repliedAt := c.now()
	replyMsg := models.Message{
		ID:        models.NewMessageID(repliedAt),
		Sender:    models.SenderAssistant,
		Timestamp: repliedAt,
	}
	if dispatchErr != nil {
		c.log.Error().Err(dispatchErr).Str("session_id", identity.SessionID).Msg("sending message to webhook failed")
		replyMsg.Content = ApologyReply
		if c.notifier != nil {
			if err := c.notifier.Warn(ctx, c.owner, SendFailureNotice); err != nil {
				c.log.Warn().Err(err).Msg("delivering send failure notice failed")
			}
		}
	} else {
		replyMsg.Content = reply.Reply
		if replyMsg.Content == "" {
			replyMsg.Content = FallbackReply
		}
		if len(reply.Attachments) > 0 {
			replyMsg.Attachments = cloneAttachments(reply.Attachments)
			replyMsg.Type = models.MessageTypeFor(reply.Attachments)
		}
	}

	c.mu.Lock()
	c.messages = append(c.messages, replyMsg)
	c.inFlight--
	c.mu.Unlock()

	if err := c.save(ctx); err != nil {
		errs = append(errs, err)
	}

	return SendResult{
		Sent:           true,
		User:           userMsg,
		Reply:          replyMsg,
		DispatchFailed: dispatchErr != nil,
	}, errors.Join(errs...)
}

// ClearMessages empties the log and removes the saved copy.
func (c *Conversation) ClearMessages(ctx context.Context) error {
	c.saveMu.Lock()
	defer c.saveMu.Unlock()

	c.mu.Lock()
	c.messages = nil
	c.mu.Unlock()

	if err := persist.Remove(ctx, c.slots, c.owner, persist.KeyChatMessages); err != nil {
		return fmt.Errorf("removing chat history: %w", err)
	}
	c.log.Info().Msg("chat history cleared")
	return nil
}

// save writes the current log. saveMu orders concurrent writers so the last
// write always carries the newest log.
func (c *Conversation) save(ctx context.Context) error {
	c.saveMu.Lock()
	defer c.saveMu.Unlock()
	messages := c.Messages()
	if err := persist.SaveList(ctx, c.slots, c.owner, persist.KeyChatMessages, messages); err != nil {
		c.log.Error().Err(err).Msg("saving chat history failed")
		return fmt.Errorf("saving chat history: %w", err)
	}
	return nil
}

func (c *Conversation) snapshotLocked() []models.Message {
	out := make([]models.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

func cloneAttachments(in []models.Attachment) []models.Attachment {
	if len(in) == 0 {
		return nil
	}
	out := make([]models.Attachment, len(in))
	copy(out, in)
	return out
}
