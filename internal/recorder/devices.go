package recorder

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrPermissionDenied is what a device reports when capture is not allowed.
var ErrPermissionDenied = errors.New("permission denied")

// UploadDevice is a device whose audio arrives from a remote client in
// chunks. Acquire only fails when capture is disabled.
type UploadDevice struct {
	Mime    string
	Enabled bool
}

func (d UploadDevice) Acquire(ctx context.Context) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !d.Enabled {
		return nil, ErrPermissionDenied
	}
	return &uploadStream{mime: d.Mime}, nil
}

type uploadStream struct {
	mime string
}

func (s *uploadStream) MimeType() string { return s.mime }
func (s *uploadStream) Release()         {}

// Feed copies r into the controller in chunkSize slices, one slice per
// interval, until r is exhausted or ctx is done. It does not stop the
// recording; a controller that finalized on its own ends the feed with
// ErrNotRecording.
func Feed(ctx context.Context, c *Controller, r io.Reader, chunkSize int, interval time.Duration) error {
	if chunkSize <= 0 {
		chunkSize = 4096
	}
	var tick <-chan time.Time
	if interval > 0 {
		t := time.NewTicker(interval)
		defer t.Stop()
		tick = t.C
	}
	buf := make([]byte, chunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if cerr := c.Chunk(buf[:n]); cerr != nil {
				return cerr
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if tick == nil {
			if err := ctx.Err(); err != nil {
				return err
			}
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick:
		}
	}
}
