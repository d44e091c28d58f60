// Package notify delivers transient, user visible warnings (the web client
// shows them as toasts) and optionally mirrors them to an operator channel.
package notify

import (
	"context"
	"errors"
	"sync"

	"nebula-backend/internal/models"

	"github.com/rs/zerolog"
)

// Notifier receives warnings addressed to owner.
type Notifier interface {
	Warn(ctx context.Context, owner string, notice models.Notice) error
}

// LogNotifier writes warnings to the log.
type LogNotifier struct {
	log zerolog.Logger
}

func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log.With().Str("component", "notifier").Logger()}
}

func (n *LogNotifier) Warn(_ context.Context, owner string, notice models.Notice) error {
	n.log.Warn().Str("owner", owner).Str("title", notice.Title).Msg(notice.Description)
	return nil
}

// Multi fans a warning out to several notifiers and joins their errors.
type Multi []Notifier

func (m Multi) Warn(ctx context.Context, owner string, notice models.Notice) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Warn(ctx, owner, notice); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Collector buffers warnings per owner until they are drained. The HTTP layer
// drains it to return warnings alongside the response that produced them.
type Collector struct {
	mu      sync.Mutex
	pending map[string][]models.Notice
}

func NewCollector() *Collector {
	return &Collector{pending: make(map[string][]models.Notice)}
}

func (c *Collector) Warn(_ context.Context, owner string, notice models.Notice) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending[owner] = append(c.pending[owner], notice)
	return nil
}

// Drain returns and forgets the warnings collected for owner.
func (c *Collector) Drain(owner string) []models.Notice {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.pending[owner]
	delete(c.pending, owner)
	return out
}
