package notify

import (
	"context"
	"fmt"

	"nebula-backend/internal/models"

	"github.com/slack-go/slack"
)

// SlackNotifier mirrors warnings to a Slack incoming webhook so operators see
// webhook outages as they happen.
type SlackNotifier struct {
	webhookURL string
	post       func(ctx context.Context, url string, msg *slack.WebhookMessage) error
}

func NewSlackNotifier(webhookURL string) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		post:       slack.PostWebhookContext,
	}
}

func (n *SlackNotifier) Warn(ctx context.Context, owner string, notice models.Notice) error {
	msg := &slack.WebhookMessage{
		Text: fmt.Sprintf(":warning: *%s* (user `%s`)", notice.Title, owner),
		Attachments: []slack.Attachment{{
			Color: "warning",
			Text:  notice.Description,
		}},
	}
	if err := n.post(ctx, n.webhookURL, msg); err != nil {
		return fmt.Errorf("posting warning to slack: %w", err)
	}
	return nil
}
