package services

import (
	"context"
	"sync"
	"time"

	"nebula-backend/internal/attachments"
	"nebula-backend/internal/models"
	"nebula-backend/internal/recorder"

	"github.com/rs/zerolog"
)

// RecordingService keeps one audio recorder per user. A finalized recording
// is sent as an audio-only turn of the user's conversation.
type RecordingService struct {
	chat        *ChatService
	device      recorder.Device
	encoder     *attachments.Encoder
	maxDuration time.Duration
	afterFunc   recorder.AfterFunc
	log         zerolog.Logger

	mu        sync.Mutex
	recorders map[string]*recorder.Controller
}

type RecordingOptions struct {
	Device      recorder.Device
	Encoder     *attachments.Encoder
	MaxDuration time.Duration
	// AfterFunc overrides the max duration timer, for tests.
	AfterFunc recorder.AfterFunc
}

func NewRecordingService(chat *ChatService, opts RecordingOptions, log zerolog.Logger) *RecordingService {
	return &RecordingService{
		chat:        chat,
		device:      opts.Device,
		encoder:     opts.Encoder,
		maxDuration: opts.MaxDuration,
		afterFunc:   opts.AfterFunc,
		log:         log.With().Str("component", "recording-service").Logger(),
		recorders:   make(map[string]*recorder.Controller),
	}
}

// Start begins a recording for identity. The identity is captured so an
// auto-finalized recording is sent on the same session.
func (s *RecordingService) Start(ctx context.Context, identity models.SessionIdentity) error {
	s.mu.Lock()
	ctrl, ok := s.recorders[identity.UserID]
	if !ok || ctrl.State() == recorder.StateIdle {
		ctrl = recorder.New(s.device, s.sinkFor(identity), recorder.Options{
			MaxDuration: s.maxDuration,
			Encoder:     s.encoder,
			AfterFunc:   s.afterFunc,
			Logger:      s.log,
		})
		s.recorders[identity.UserID] = ctrl
	}
	s.mu.Unlock()
	return ctrl.Start(ctx)
}

// Append adds a chunk of captured audio.
func (s *RecordingService) Append(owner string, chunk []byte) error {
	ctrl, ok := s.controller(owner)
	if !ok {
		return recorder.ErrNotRecording
	}
	return ctrl.Chunk(chunk)
}

// Stop finalizes the recording and sends it.
func (s *RecordingService) Stop(ctx context.Context, owner string) error {
	ctrl, ok := s.controller(owner)
	if !ok {
		return recorder.ErrNotRecording
	}
	return ctrl.Stop(ctx)
}

// Cancel discards the recording.
func (s *RecordingService) Cancel(owner string) error {
	ctrl, ok := s.controller(owner)
	if !ok {
		return recorder.ErrNotRecording
	}
	return ctrl.Cancel()
}

// Status reports the recorder state and how much audio is buffered.
func (s *RecordingService) Status(owner string) models.RecordingStatusResponse {
	ctrl, ok := s.controller(owner)
	if !ok {
		return models.RecordingStatusResponse{State: recorder.StateIdle.String()}
	}
	chunks, size := ctrl.Buffered()
	return models.RecordingStatusResponse{
		State:      ctrl.State().String(),
		ChunkCount: chunks,
		Bytes:      size,
	}
}

func (s *RecordingService) controller(owner string) (*recorder.Controller, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.recorders[owner]
	return c, ok
}

func (s *RecordingService) sinkFor(identity models.SessionIdentity) recorder.Sink {
	return func(ctx context.Context, audio models.Attachment) error {
		// The send outlives the request that stopped the recording.
		ctx = context.WithoutCancel(ctx)
		conv, err := s.chat.Conversation(ctx, identity.UserID)
		if err != nil {
			return err
		}
		res, err := conv.SendMessage(ctx, identity, "", []models.Attachment{audio})
		if err != nil {
			s.log.Error().Err(err).Str("user_id", identity.UserID).Msg("sending recording failed")
			return err
		}
		s.log.Info().
			Str("user_id", identity.UserID).
			Bool("dispatch_failed", res.DispatchFailed).
			Msg("recording sent")
		return nil
	}
}
