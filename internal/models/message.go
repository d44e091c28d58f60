package models

import (
	"time"
)

// Sender identifies who authored a message.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// AttachmentKind is the tag of the Attachment union.
type AttachmentKind string

const (
	AttachmentImage    AttachmentKind = "image"
	AttachmentAudio    AttachmentKind = "audio"
	AttachmentDocument AttachmentKind = "document"
)

// Valid reports whether k is one of the known attachment kinds.
func (k AttachmentKind) Valid() bool {
	switch k {
	case AttachmentImage, AttachmentAudio, AttachmentDocument:
		return true
	default:
		return false
	}
}

// ParseAttachmentKind normalises a user supplied kind string.
func ParseAttachmentKind(s string) (AttachmentKind, bool) {
	k := AttachmentKind(s)
	return k, k.Valid()
}

// Attachment is an inline, base64 encoded file payload bundled with a message.
// It has no lifecycle of its own: it lives and dies with its Message.
type Attachment struct {
	Kind     AttachmentKind `json:"type"`
	Data     string         `json:"data"` // base64, no data-URL prefix
	Name     string         `json:"name"`
	MimeType string         `json:"mimeType"`
}

// MessageType is the coarse classification sent to the webhook.
type MessageType string

const (
	MessageTypeConversation MessageType = "conversation"
	MessageTypeImage        MessageType = "image"
	MessageTypeAudio        MessageType = "audio"
	MessageTypeDocument     MessageType = "document"
	MessageTypeUnknown      MessageType = "unknown"
)

// MessageTypeFor derives the message type from the attachments carried with it.
// No attachments is a plain conversation turn; a single kind maps to that kind;
// a mix of kinds is unknown.
func MessageTypeFor(attachments []Attachment) MessageType {
	if len(attachments) == 0 {
		return MessageTypeConversation
	}
	first := attachments[0].Kind
	for _, a := range attachments[1:] {
		if a.Kind != first {
			return MessageTypeUnknown
		}
	}
	switch first {
	case AttachmentImage:
		return MessageTypeImage
	case AttachmentAudio:
		return MessageTypeAudio
	case AttachmentDocument:
		return MessageTypeDocument
	default:
		return MessageTypeUnknown
	}
}

// Message represents a single entry of the conversation log.
// Messages are immutable once appended.
type Message struct {
	ID          string       `json:"id"`
	Content     string       `json:"content"`
	Sender      Sender       `json:"sender"`
	Timestamp   time.Time    `json:"timestamp"`
	Attachments []Attachment `json:"attachments,omitempty"`
	Type        MessageType  `json:"messageType,omitempty"`
}

// SessionIdentity is the lightweight caller context attached to every dispatch.
type SessionIdentity struct {
	UserID    string `json:"userId"`
	Email     string `json:"userEmail"`
	SessionID string `json:"sessionId"`
}
