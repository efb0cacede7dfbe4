package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/neilberkman/docchat/internal/core/app"
	"github.com/neilberkman/docchat/internal/core/filter"
	"github.com/neilberkman/docchat/internal/core/models"
	"github.com/spf13/cobra"
)

var (
	convLimit  int
	convFilter string
)

var conversationsCmd = &cobra.Command{
	Use:     "conversations",
	Aliases: []string{"convs"},
	Short:   "Browse and delete conversations",
}

var conversationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List conversations",
	Long: `List conversations in the order the server returns them.

Examples:
  docchat conversations list
  docchat conversations list --limit 10
  docchat conversations list --filter "budget after:last week"`,
	Args: cobra.NoArgs,
	RunE: runConversationsList,
}

var conversationsShowCmd = &cobra.Command{
	Use:   "show <conversation-id>",
	Short: "Print the messages of a conversation",
	Args:  cobra.ExactArgs(1),
	RunE:  runConversationsShow,
}

var conversationsDeleteCmd = &cobra.Command{
	Use:   "delete <conversation-id>",
	Short: "Delete a conversation",
	Args:  cobra.ExactArgs(1),
	RunE:  runConversationsDelete,
}

func init() {
	rootCmd.AddCommand(conversationsCmd)
	conversationsCmd.AddCommand(conversationsListCmd, conversationsShowCmd, conversationsDeleteCmd)

	conversationsListCmd.Flags().IntVar(&convLimit, "limit", 20, "Maximum number of conversations to display")
	conversationsListCmd.Flags().StringVarP(&convFilter, "filter", "f", "", "Filter by title and date (after:, before:, date:)")
}

func runConversationsList(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(ctx context.Context, a *app.App) error {
		convs, err := a.Chat.LoadConversations(ctx)
		if err != nil {
			return fmt.Errorf("failed to list conversations: %w", err)
		}
		convs = filter.Parse(convFilter, time.Now()).Conversations(convs)

		// Apply limit (interface concern - pagination)
		if len(convs) > convLimit {
			convs = convs[:convLimit]
		}

		if len(convs) == 0 {
			if convFilter != "" {
				fmt.Printf("No conversations match: %s\n", convFilter)
			} else {
				fmt.Println("No conversations yet. Run 'docchat chat' to start one.")
			}
			return nil
		}

		fmt.Printf("Showing %d conversation(s)\n\n", len(convs))
		for i, c := range convs {
			fmt.Printf("[%d] %s\n", i+1, c.ID)
			fmt.Printf("    Title:   %s\n", truncateSummary(conversationTitle(c), 80))
			fmt.Printf("    Created: %s\n", formatTimestamp(c.CreatedAt.Time))
			fmt.Println()
		}
		return nil
	})
}

func runConversationsShow(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(ctx context.Context, a *app.App) error {
		msgs, err := a.Chat.LoadConversation(ctx, models.ID(args[0]))
		if err != nil {
			return fmt.Errorf("failed to load conversation: %w", err)
		}
		if len(msgs) == 0 {
			fmt.Println("This conversation has no messages.")
			return nil
		}
		for _, m := range msgs {
			printMessage(m)
		}
		return nil
	})
}

func runConversationsDelete(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(ctx context.Context, a *app.App) error {
		if err := a.Chat.DeleteConversation(ctx, models.ID(args[0])); err != nil {
			return fmt.Errorf("failed to delete conversation: %w", err)
		}
		fmt.Printf("Deleted conversation %s\n", args[0])
		return nil
	})
}

func conversationTitle(c models.Conversation) string {
	if strings.TrimSpace(c.Title) == "" {
		return "(untitled)"
	}
	return c.Title
}

func printMessage(m models.Message) {
	label := "YOU"
	if m.Role == models.RoleAssistant {
		label = "ASSISTANT"
	}
	header := label
	if !m.CreatedAt.IsZero() {
		header += " _" + m.CreatedAt.Local().Format("Jan 02, 2006 15:04:05") + "_"
	}
	fmt.Println(header)
	fmt.Println(m.Content)
	printSources(m.Sources)
	fmt.Println()
}

func printSources(sources []models.Source) {
	if len(sources) == 0 {
		return
	}
	fmt.Println("Sources:")
	for _, s := range sources {
		if s.SimilarityScore != nil {
			fmt.Printf("  - %s (%.2f)\n", s.Filename, *s.SimilarityScore)
		} else {
			fmt.Printf("  - %s\n", s.Filename)
		}
	}
}
