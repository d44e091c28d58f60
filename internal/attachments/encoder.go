// Package attachments turns user supplied files and captured audio into
// inline, base64 encoded models.Attachment records.
package attachments

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"nebula-backend/internal/models"

	"github.com/gabriel-vasile/mimetype"
)

var (
	ErrTooLarge       = errors.New("attachment exceeds the maximum size")
	ErrEmpty          = errors.New("attachment is empty")
	ErrInvalidKind    = errors.New("unknown attachment kind")
	ErrInvalidDataURL = errors.New("invalid data url")
	ErrInvalidBase64  = errors.New("attachment data is not valid base64")
)

// Source is a file-like input: a name, an optional declared MIME type and a
// way to read its bytes.
type Source interface {
	Name() string
	MimeType() string
	Open() (io.ReadCloser, error)
}

// Encoder converts sources into attachments. The zero value has no size limit.
type Encoder struct {
	MaxBytes int64
}

func NewEncoder(maxBytes int64) *Encoder {
	return &Encoder{MaxBytes: maxBytes}
}

// Encode reads src to completion and returns the attachment. The context is
// only checked before the read starts; an in-flight read is not cancelled.
func (e *Encoder) Encode(ctx context.Context, src Source, kind models.AttachmentKind) (models.Attachment, error) {
	if !kind.Valid() {
		return models.Attachment{}, fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}
	if err := ctx.Err(); err != nil {
		return models.Attachment{}, err
	}

	rc, err := src.Open()
	if err != nil {
		return models.Attachment{}, fmt.Errorf("opening %s: %w", src.Name(), err)
	}
	defer rc.Close()

	var r io.Reader = rc
	if e.MaxBytes > 0 {
		r = io.LimitReader(rc, e.MaxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return models.Attachment{}, fmt.Errorf("reading %s: %w", src.Name(), err)
	}
	return e.FromBytes(src.Name(), src.MimeType(), data, kind)
}

// FromBytes builds an attachment from raw bytes. An empty mimeType is sniffed
// from the content.
func (e *Encoder) FromBytes(name, mimeType string, data []byte, kind models.AttachmentKind) (models.Attachment, error) {
	if !kind.Valid() {
		return models.Attachment{}, fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}
	if len(data) == 0 {
		return models.Attachment{}, ErrEmpty
	}
	if e.MaxBytes > 0 && int64(len(data)) > e.MaxBytes {
		return models.Attachment{}, fmt.Errorf("%w (%d bytes)", ErrTooLarge, e.MaxBytes)
	}
	if strings.TrimSpace(mimeType) == "" {
		mimeType = mimetype.Detect(data).String()
	}
	return models.Attachment{
		Kind:     kind,
		Data:     base64.StdEncoding.EncodeToString(data),
		Name:     name,
		MimeType: mimeType,
	}, nil
}

// FromDataURL accepts either a "data:<mime>;base64,<payload>" URL or a bare
// base64 payload, strips the prefix and validates the payload.
func (e *Encoder) FromDataURL(name, value, mimeType string, kind models.AttachmentKind) (models.Attachment, error) {
	payload := strings.TrimSpace(value)
	if strings.HasPrefix(payload, "data:") {
		header, body, ok := strings.Cut(payload, ",")
		if !ok {
			return models.Attachment{}, ErrInvalidDataURL
		}
		if !strings.HasSuffix(header, ";base64") {
			return models.Attachment{}, fmt.Errorf("%w: must be base64 encoded", ErrInvalidDataURL)
		}
		if mimeType == "" {
			mimeType = strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64")
		}
		payload = body
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return models.Attachment{}, fmt.Errorf("%w: %v", ErrInvalidBase64, err)
	}
	return e.FromBytes(name, mimeType, data, kind)
}

// KindForMIME guesses the attachment kind from a MIME type.
func KindForMIME(mimeType string) models.AttachmentKind {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return models.AttachmentImage
	case strings.HasPrefix(mimeType, "audio/"):
		return models.AttachmentAudio
	default:
		return models.AttachmentDocument
	}
}

// Decode returns the raw bytes of an attachment.
func Decode(a models.Attachment) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(a.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBase64, err)
	}
	return b, nil
}

// FileSource adapts a path on disk to Source.
type FileSource struct {
	Path     string
	Declared string
}

func (f FileSource) Name() string     { return filepath.Base(f.Path) }
func (f FileSource) MimeType() string { return f.Declared }
func (f FileSource) Open() (io.ReadCloser, error) {
	return os.Open(f.Path)
}

// BytesSource adapts an in-memory buffer to Source.
type BytesSource struct {
	FileName string
	Mime     string
	Data     []byte
}

func (b BytesSource) Name() string     { return b.FileName }
func (b BytesSource) MimeType() string { return b.Mime }
func (b BytesSource) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(b.Data)), nil
}

// FromPath encodes the file at path. The MIME type is sniffed from the
// content.
func (e *Encoder) FromPath(ctx context.Context, path string, kind models.AttachmentKind) (models.Attachment, error) {
	return e.Encode(ctx, FileSource{Path: path}, kind)
}
