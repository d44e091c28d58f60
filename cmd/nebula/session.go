package main

import (
	"context"
	"fmt"
	"os"
	"os/user"
	"strings"

	"nebula-backend/internal/attachments"
	"nebula-backend/internal/config"
	"nebula-backend/internal/dispatch"
	"nebula-backend/internal/logger"
	"nebula-backend/internal/models"
	"nebula-backend/internal/notify"
	"nebula-backend/internal/services"
	"nebula-backend/internal/store/file"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// session bundles everything a command needs to talk to the assistant.
type session struct {
	cfg      *config.Config
	log      zerolog.Logger
	identity models.SessionIdentity
	encoder  *attachments.Encoder
	warnings *notify.Collector
	conv     *services.Conversation
}

func openSession(cmd *cobra.Command) (*session, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	level := "warn"
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = "debug"
	}
	log := logger.New("nebula-cli", cfg.Environment, level)

	dataDir, _ := cmd.Flags().GetString("data-dir")
	if dataDir == "" {
		dataDir = cfg.DataDir
	}
	slots, err := file.NewSlotStore(dataDir)
	if err != nil {
		return nil, fmt.Errorf("opening data dir %s: %w", dataDir, err)
	}

	identity := resolveIdentity(cmd)
	warnings := notify.NewCollector()
	dispatcher := dispatch.NewClient(cfg.WebhookURL, cfg.WebhookTimeout, nil, log)

	conv, err := services.OpenConversation(cmd.Context(), identity.UserID, slots, dispatcher,
		notify.Multi{notify.NewLogNotifier(log), warnings}, log)
	if err != nil {
		return nil, err
	}

	return &session{
		cfg:      cfg,
		log:      log,
		identity: identity,
		encoder:  attachments.NewEncoder(cfg.MaxAttachmentBytes),
		warnings: warnings,
		conv:     conv,
	}, nil
}

// resolveIdentity picks the caller identity from flags, then the
// environment. Every invocation is a new session.
func resolveIdentity(cmd *cobra.Command) models.SessionIdentity {
	userID, _ := cmd.Flags().GetString("user")
	if userID == "" {
		userID = os.Getenv("NEBULA_USER")
	}
	if userID == "" {
		if u, err := user.Current(); err == nil {
			userID = u.Username
		}
	}
	if userID == "" {
		userID = "local"
	}
	email, _ := cmd.Flags().GetString("email")
	if email == "" {
		email = os.Getenv("NEBULA_EMAIL")
	}
	return models.SessionIdentity{
		UserID:    userID,
		Email:     email,
		SessionID: strings.ReplaceAll(uuid.NewString(), "-", "")[:8],
	}
}

func (s *session) send(ctx context.Context, text string, atts []models.Attachment) error {
	res, err := s.conv.SendMessage(ctx, s.identity, text, atts)
	if err != nil {
		// The reply is already in the log; only saving it failed.
		s.log.Warn().Err(err).Msg("conversation not saved")
	}
	if !res.Sent {
		return fmt.Errorf("nothing to send: give a message or an attachment")
	}
	printMessage(res.Reply)
	s.printWarnings()
	return nil
}

func (s *session) printWarnings() {
	for _, n := range s.warnings.Drain(s.identity.UserID) {
		fmt.Fprintf(os.Stderr, "! %s: %s\n", n.Title, n.Description)
	}
}

func printMessage(m models.Message) {
	who := "você"
	if m.Sender == models.SenderAssistant {
		who = "nebula"
	}
	fmt.Printf("[%s] %s: %s\n", m.Timestamp.Local().Format("02/01 15:04"), who, m.Content)
	for _, a := range m.Attachments {
		fmt.Printf("    %s %s (%s)\n", label(a.Kind), a.Name, a.MimeType)
	}
}

func label(k models.AttachmentKind) string {
	switch k {
	case models.AttachmentImage:
		return "[imagem]"
	case models.AttachmentAudio:
		return "[áudio]"
	case models.AttachmentDocument:
		return "[documento]"
	default:
		return "[anexo]"
	}
}
