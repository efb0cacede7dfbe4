package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/neilberkman/docchat/internal/core/api"
	"github.com/neilberkman/docchat/internal/core/app"
	"github.com/neilberkman/docchat/internal/core/models"
	"github.com/spf13/cobra"
)

var (
	chatConversation string
	chatMode         string
)

var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Ask a question, or chat interactively",
	Long: `Send a message and print the answer. Without a message, reads questions
from stdin one line at a time.

Interactive commands:
  /new          start a new conversation
  /mode <mode>  switch to general or rag
  /quit         exit

Examples:
  docchat chat "What does the contract say about renewals?"
  docchat chat --mode rag -c 42 "And the termination clause?"
  docchat chat`,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringVarP(&chatConversation, "conversation", "c", "", "Continue this conversation")
	chatCmd.Flags().StringVarP(&chatMode, "mode", "m", "", "Chat mode: general or rag (default: last used)")
}

func runChat(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(ctx context.Context, a *app.App) error {
		if _, err := a.Chat.LoadConversations(ctx); err != nil {
			return fmt.Errorf("failed to list conversations: %w", err)
		}
		if chatMode != "" {
			if err := a.SetMode(models.ChatMode(strings.ToLower(chatMode))); err != nil {
				return err
			}
		}
		if chatConversation != "" {
			if _, err := a.Chat.LoadConversation(ctx, models.ID(chatConversation)); err != nil {
				return fmt.Errorf("failed to load conversation: %w", err)
			}
		}

		if len(args) > 0 {
			return ask(ctx, a, strings.Join(args, " "))
		}
		return chatLoop(ctx, a)
	})
}

func ask(ctx context.Context, a *app.App, text string) error {
	spinner := NewSpinner("Thinking...")
	spinner.Start()
	reply, err := a.Chat.SendMessage(ctx, text)
	spinner.Stop()
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	fmt.Println(reply.Message)
	printSources(reply.Sources)
	if snap := a.Chat.Snapshot(); snap.Active != nil && chatConversation == "" {
		chatConversation = snap.Active.ID.String()
		fmt.Printf("\n(conversation %s)\n", chatConversation)
	}
	return nil
}

func chatLoop(ctx context.Context, a *app.App) error {
	fmt.Printf("Chatting in %s mode. Type /quit to exit.\n", a.Chat.Mode())
	for {
		line, err := promptLine("> ")
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		switch {
		case line == "":
			continue
		case line == "/quit" || line == "/exit":
			return nil
		case line == "/new":
			a.Chat.StartNewConversation()
			chatConversation = ""
			fmt.Println("Started a new conversation")
			continue
		case strings.HasPrefix(line, "/mode"):
			mode := models.ChatMode(strings.TrimSpace(strings.TrimPrefix(line, "/mode")))
			if err := a.SetMode(mode); err != nil {
				fmt.Println("Error:", describe(err))
				continue
			}
			fmt.Printf("Switched to %s mode\n", mode)
			continue
		}

		if err := ask(ctx, a, line); err != nil {
			if api.IsKind(err, api.KindSessionExpired) || ctx.Err() != nil {
				return err
			}
			fmt.Println("Error:", describe(err))
		}
		fmt.Println()
	}
}
