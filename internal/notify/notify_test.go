package notify

import (
	"context"
	"errors"
	"testing"

	"nebula-backend/internal/models"

	"github.com/rs/zerolog"
	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var notice = models.Notice{Title: "Erro ao enviar mensagem", Description: "Tente novamente."}

type failingNotifier struct{ err error }

func (f failingNotifier) Warn(context.Context, string, models.Notice) error { return f.err }

func TestCollectorDrain(t *testing.T) {
	c := NewCollector()
	require.NoError(t, c.Warn(context.Background(), "a", notice))
	require.NoError(t, c.Warn(context.Background(), "a", notice))
	require.NoError(t, c.Warn(context.Background(), "b", notice))

	assert.Len(t, c.Drain("a"), 2)
	assert.Empty(t, c.Drain("a"))
	assert.Len(t, c.Drain("b"), 1)
}

func TestMultiFansOutAndJoinsErrors(t *testing.T) {
	c := NewCollector()
	boom := errors.New("boom")
	m := Multi{NewLogNotifier(zerolog.Nop()), nil, failingNotifier{err: boom}, c}

	err := m.Warn(context.Background(), "a", notice)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []models.Notice{notice}, c.Drain("a"))
}

func TestSlackNotifierMessage(t *testing.T) {
	var gotURL string
	var got *slack.WebhookMessage
	n := NewSlackNotifier("https://hooks.slack.test/x")
	n.post = func(_ context.Context, url string, msg *slack.WebhookMessage) error {
		gotURL, got = url, msg
		return nil
	}

	require.NoError(t, n.Warn(context.Background(), "user-1", notice))
	assert.Equal(t, "https://hooks.slack.test/x", gotURL)
	assert.Equal(t, ":warning: *Erro ao enviar mensagem* (user `user-1`)", got.Text)
	require.Len(t, got.Attachments, 1)
	assert.Equal(t, "Tente novamente.", got.Attachments[0].Text)

	n.post = func(context.Context, string, *slack.WebhookMessage) error { return errors.New("403") }
	assert.Error(t, n.Warn(context.Background(), "user-1", notice))
}
