package cli

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/neilberkman/docchat/internal/core/app"
	"github.com/neilberkman/docchat/internal/core/dashboard"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show document and chat statistics",
	Long: `Display the dashboard summary for the signed-in user.

Shows document counts, indexing progress, storage used and chat activity.`,
	Args: cobra.NoArgs,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(ctx context.Context, a *app.App) error {
		s, err := a.Dashboard.Summary(ctx)
		if err != nil {
			return fmt.Errorf("failed to load statistics: %w", err)
		}
		printSummary(s)
		return nil
	})
}

func printSummary(s *dashboard.Summary) {
	fmt.Println("Documents")
	fmt.Println("=========")
	fmt.Printf("Total Documents:   %s\n", humanize.Comma(int64(s.Documents.TotalDocuments)))
	fmt.Printf("Indexed:           %s (%s)\n",
		humanize.Comma(int64(s.Documents.ProcessedDocuments)), dashboard.FormatPercent(s.IndexedPercent()))
	fmt.Printf("Total Chunks:      %s\n", humanize.Comma(int64(s.Documents.TotalChunks)))
	fmt.Printf("Storage Used:      %s\n", humanize.Bytes(uint64(s.Documents.TotalSize)))
	fmt.Println()

	fmt.Println("Chat")
	fmt.Println("====")
	fmt.Printf("Conversations:     %s\n", humanize.Comma(int64(s.Chat.TotalConversations)))
	fmt.Printf("Messages:          %s\n", humanize.Comma(int64(s.Chat.TotalMessages)))
	fmt.Printf("Per Conversation:  %.1f\n", s.MessagesPerConversation())
}
