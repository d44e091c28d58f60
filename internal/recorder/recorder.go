// Package recorder drives a single audio capture: acquire a device stream,
// buffer chunks, then either finalize into one audio attachment or cancel.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"nebula-backend/internal/attachments"
	"nebula-backend/internal/models"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
)

const (
	DefaultMaxDuration   = 60 * time.Second
	DefaultChunkInterval = 250 * time.Millisecond
	DefaultMimeType      = "audio/webm"
)

type State int

const (
	StateIdle State = iota
	StateRecording
	StateFinalizing
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateFinalizing:
		return "finalizing"
	case StateCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var (
	ErrNotRecording     = errors.New("no recording in progress")
	ErrAlreadyRecording = errors.New("a recording is already in progress")
)

// MediaAccessError means the capture device could not be acquired, for
// example because permission was denied.
type MediaAccessError struct {
	Err error
}

func (e *MediaAccessError) Error() string {
	return fmt.Sprintf("could not access the microphone: %v", e.Err)
}

func (e *MediaAccessError) Unwrap() error { return e.Err }

// Device hands out capture streams.
type Device interface {
	Acquire(ctx context.Context) (Stream, error)
}

// Stream is an acquired capture stream. Release must be safe to call once.
type Stream interface {
	MimeType() string
	Release()
}

// Sink receives the finalized recording.
type Sink func(ctx context.Context, audio models.Attachment) error

// Timer is the subset of *time.Timer the controller needs.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d. Tests replace it to fire timeouts by hand.
type AfterFunc func(d time.Duration, f func()) Timer

func stdAfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

type Options struct {
	MaxDuration time.Duration
	Encoder     *attachments.Encoder
	AfterFunc   AfterFunc
	Now         func() time.Time
	Logger      zerolog.Logger
}

// Controller is safe for concurrent use. Each Start begins a new generation so
// a timeout that fires after Stop or Cancel is ignored.
type Controller struct {
	mu sync.Mutex

	device Device
	sink   Sink
	opts   Options
	log    zerolog.Logger

	state   State
	gen     uint64
	stream  Stream
	chunks  [][]byte
	size    int
	started time.Time
	timer   Timer
}

func New(device Device, sink Sink, opts Options) *Controller {
	if opts.MaxDuration <= 0 {
		opts.MaxDuration = DefaultMaxDuration
	}
	if opts.Encoder == nil {
		opts.Encoder = attachments.NewEncoder(0)
	}
	if opts.AfterFunc == nil {
		opts.AfterFunc = stdAfterFunc
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Controller{
		device: device,
		sink:   sink,
		opts:   opts,
		log:    opts.Logger.With().Str("component", "recorder").Logger(),
	}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Buffered returns the number of chunks and bytes captured so far.
func (c *Controller) Buffered() (chunks int, bytes int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.chunks), c.size
}

// Start acquires a stream and arms the max duration timer. On acquisition
// failure the controller stays idle and a *MediaAccessError is returned.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return ErrAlreadyRecording
	}
	// Reserve the slot while the device is being acquired.
	c.state = StateRecording
	c.gen++
	gen := c.gen
	c.mu.Unlock()

	stream, err := c.device.Acquire(ctx)
	if err != nil {
		c.mu.Lock()
		c.state = StateIdle
		c.mu.Unlock()
		c.log.Warn().Err(err).Msg("audio device unavailable")
		return &MediaAccessError{Err: err}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen || c.state != StateRecording {
		stream.Release()
		return ErrNotRecording
	}
	c.stream = stream
	c.chunks = nil
	c.size = 0
	c.started = c.opts.Now()
	c.timer = c.opts.AfterFunc(c.opts.MaxDuration, func() { c.expire(gen) })
	c.log.Debug().Dur("max_duration", c.opts.MaxDuration).Msg("recording started")
	return nil
}

// Chunk appends captured audio. Empty chunks are ignored. Once the buffer
// reaches the encoder's size limit the part of data that fits is kept and the
// recording is finalized as if the max duration had elapsed; later chunks get
// ErrNotRecording.
func (c *Controller) Chunk(data []byte) error {
	c.mu.Lock()
	if c.state != StateRecording || c.stream == nil {
		c.mu.Unlock()
		return ErrNotRecording
	}
	if len(data) == 0 {
		c.mu.Unlock()
		return nil
	}
	full := false
	if limit := c.opts.Encoder.MaxBytes; limit > 0 && int64(c.size+len(data)) >= limit {
		data = data[:limit-int64(c.size)]
		full = true
	}
	if len(data) > 0 {
		buf := make([]byte, len(data))
		copy(buf, data)
		c.chunks = append(c.chunks, buf)
		c.size += len(buf)
	}
	if !full {
		c.mu.Unlock()
		return nil
	}
	c.log.Info().Int("bytes", c.size).Msg("recording reached max size, finalizing")
	return c.finalizeLocked(context.Background())
}

// Stop finalizes the recording and hands the attachment to the sink. A
// recording with no captured audio emits nothing and returns
// attachments.ErrEmpty.
func (c *Controller) Stop(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateRecording || c.stream == nil {
		c.mu.Unlock()
		return ErrNotRecording
	}
	return c.finalizeLocked(ctx)
}

// Cancel drops buffered audio and releases the stream without emitting.
func (c *Controller) Cancel() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateRecording || c.stream == nil {
		return ErrNotRecording
	}
	c.state = StateCancelled
	c.teardownLocked()
	c.state = StateIdle
	c.log.Debug().Msg("recording cancelled")
	return nil
}

func (c *Controller) expire(gen uint64) {
	c.mu.Lock()
	if c.gen != gen || c.state != StateRecording || c.stream == nil {
		c.mu.Unlock()
		return
	}
	c.log.Info().Dur("max_duration", c.opts.MaxDuration).Msg("recording reached max duration, finalizing")
	if err := c.finalizeLocked(context.Background()); err != nil {
		c.log.Error().Err(err).Msg("auto-finalize failed")
	}
}

// finalizeLocked is entered with c.mu held and releases it before calling the
// sink.
func (c *Controller) finalizeLocked(ctx context.Context) error {
	c.state = StateFinalizing
	mime := c.stream.MimeType()
	if mime == "" {
		mime = DefaultMimeType
	}
	data := make([]byte, 0, c.size)
	for _, chunk := range c.chunks {
		data = append(data, chunk...)
	}
	name := fmt.Sprintf("recording-%d%s", c.opts.Now().Unix(), extensionFor(mime))
	elapsed := c.opts.Now().Sub(c.started)
	c.teardownLocked()
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		if c.state == StateFinalizing {
			c.state = StateIdle
		}
		c.mu.Unlock()
	}()

	audio, err := c.opts.Encoder.FromBytes(name, mime, data, models.AttachmentAudio)
	if err != nil {
		return err
	}
	c.log.Debug().Int("bytes", len(data)).Dur("elapsed", elapsed).Msg("recording finalized")
	if c.sink == nil {
		return nil
	}
	return c.sink(ctx, audio)
}

func extensionFor(mime string) string {
	base, _, _ := strings.Cut(mime, ";")
	if m := mimetype.Lookup(strings.TrimSpace(base)); m != nil && m.Extension() != "" {
		return m.Extension()
	}
	return ".webm"
}

func (c *Controller) teardownLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if c.stream != nil {
		c.stream.Release()
		c.stream = nil
	}
	c.chunks = nil
	c.size = 0
}
