package main

import (
	"fmt"
	"strings"

	"nebula-backend/internal/attachments"
	"nebula-backend/internal/models"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/cobra"
)

var sendCmd = &cobra.Command{
	Use:   "send [text]",
	Short: "Send a message to the assistant",
	Long:  `Send a message, optionally with image and document attachments, and print the reply.`,
	RunE:  runSend,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the saved conversation",
	RunE:  runHistory,
	Args:  cobra.NoArgs,
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Erase the saved conversation",
	RunE:  runClear,
	Args:  cobra.NoArgs,
}

func init() {
	sendCmd.Flags().StringArray("image", nil, "Attach an image file (repeatable)")
	sendCmd.Flags().StringArray("document", nil, "Attach a document file (repeatable)")
	sendCmd.Flags().StringArray("file", nil, "Attach a file, guessing its kind from the content (repeatable)")
}

func runSend(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}

	var atts []models.Attachment
	for _, opt := range []struct {
		flag string
		kind models.AttachmentKind
	}{
		{"image", models.AttachmentImage},
		{"document", models.AttachmentDocument},
	} {
		paths, _ := cmd.Flags().GetStringArray(opt.flag)
		for _, p := range paths {
			a, err := s.encoder.FromPath(cmd.Context(), p, opt.kind)
			if err != nil {
				return fmt.Errorf("attaching %s: %w", p, err)
			}
			atts = append(atts, a)
		}
	}

	files, _ := cmd.Flags().GetStringArray("file")
	for _, p := range files {
		m, err := mimetype.DetectFile(p)
		if err != nil {
			return fmt.Errorf("attaching %s: %w", p, err)
		}
		a, err := s.encoder.Encode(cmd.Context(), attachments.FileSource{Path: p, Declared: m.String()}, attachments.KindForMIME(m.String()))
		if err != nil {
			return fmt.Errorf("attaching %s: %w", p, err)
		}
		atts = append(atts, a)
	}

	return s.send(cmd.Context(), strings.Join(args, " "), atts)
}

func runHistory(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	msgs := s.conv.Messages()
	if len(msgs) == 0 {
		fmt.Println("No messages yet.")
		return nil
	}
	for _, m := range msgs {
		printMessage(m)
	}
	return nil
}

func runClear(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	if err := s.conv.ClearMessages(cmd.Context()); err != nil {
		return err
	}
	fmt.Println("Conversation cleared.")
	return nil
}
