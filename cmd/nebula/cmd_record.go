package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"nebula-backend/internal/attachments"
	"nebula-backend/internal/models"
	"nebula-backend/internal/recorder"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/cobra"
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Send a voice message",
	Long: `Stream an audio file through the recorder as if it were captured live.

The file is fed in chunk-interval slices. The recording stops when the file
ends or when --max is reached, and the audio is sent as a message. Ctrl-C
discards the recording.`,
	RunE: runRecord,
	Args: cobra.NoArgs,
}

func init() {
	recordCmd.Flags().String("from", "", "Audio file to stream (required)")
	recordCmd.Flags().Duration("max", recorder.DefaultMaxDuration, "Maximum recording duration")
	recordCmd.Flags().Int("chunk-size", 4096, "Bytes per captured chunk")
	_ = recordCmd.MarkFlagRequired("from")
}

func runRecord(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("from")
	maxDur, _ := cmd.Flags().GetDuration("max")
	chunkSize, _ := cmd.Flags().GetInt("chunk-size")

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	if maxDur <= 0 {
		maxDur = s.cfg.MaxRecordingDuration
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	mime := recorder.DefaultMimeType
	if m, err := mimetype.DetectFile(path); err == nil && strings.HasPrefix(m.String(), "audio/") {
		mime = m.String()
	}

	sent := make(chan error, 1)
	sink := func(ctx context.Context, audio models.Attachment) error {
		err := s.send(ctx, "", []models.Attachment{audio})
		sent <- err
		return err
	}
	rec := recorder.New(recorder.UploadDevice{Mime: mime, Enabled: s.cfg.AudioEnabled}, sink, recorder.Options{
		MaxDuration: maxDur,
		Encoder:     s.encoder,
		Logger:      s.log,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rec.Start(ctx); err != nil {
		var mae *recorder.MediaAccessError
		if errors.As(err, &mae) {
			return fmt.Errorf("audio capture is disabled (AUDIO_ENABLED=false): %w", err)
		}
		return err
	}
	fmt.Fprintf(os.Stderr, "Recording %s (max %s, Ctrl-C to discard)...\n", path, maxDur)

	feedErr := recorder.Feed(ctx, rec, f, chunkSize, s.cfg.ChunkInterval)
	discarded, err := finishRecording(ctx, rec, feedErr, sent)
	if discarded {
		fmt.Fprintln(os.Stderr, "Recording discarded.")
	}
	return err
}

// finishRecording settles the recording once the feed has ended. An interrupt
// discards audio still being captured, but a send the max duration or size
// limit already started is waited for so its reply is saved.
func finishRecording(ctx context.Context, rec *recorder.Controller, feedErr error, sent <-chan error) (bool, error) {
	switch {
	case ctx.Err() != nil:
		err := rec.Cancel()
		if errors.Is(err, recorder.ErrNotRecording) {
			return false, waitSent(rec, sent)
		}
		return err == nil, err
	case errors.Is(feedErr, recorder.ErrNotRecording):
		return false, waitSent(rec, sent)
	case feedErr != nil:
		_ = rec.Cancel()
		return false, feedErr
	}

	if err := rec.Stop(context.WithoutCancel(ctx)); err != nil {
		if errors.Is(err, recorder.ErrNotRecording) {
			return false, waitSent(rec, sent)
		}
		return false, err
	}
	return false, nil
}

// waitSent blocks until a finalize the controller started on its own is done.
func waitSent(rec *recorder.Controller, sent <-chan error) error {
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case err := <-sent:
			return err
		case <-tick.C:
			if rec.State() != recorder.StateIdle {
				continue
			}
			select {
			case err := <-sent:
				return err
			default:
				return attachments.ErrEmpty
			}
		}
	}
}
