package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/neilberkman/docchat/internal/core/app"
	"github.com/neilberkman/docchat/internal/core/export"
	"github.com/neilberkman/docchat/internal/core/models"
	"github.com/spf13/cobra"
)

var (
	exportOutput string
)

var exportCmd = &cobra.Command{
	Use:   "export <conversation-id>",
	Short: "Export a conversation to markdown",
	Long: `Export a conversation to a markdown file.

By default exports to current directory as conversation-<id>.md.
Use --output to specify a custom path, or "-" for stdout. The layout comes
from ~/.config/docchat/export_template.md when that file exists.

Examples:
  docchat export 42
  docchat export 42 --output ~/renewals.md
  docchat export 42 -o -`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file path (default: conversation-<id>.md in current directory)")
}

func runExport(cmd *cobra.Command, args []string) error {
	id := models.ID(args[0])

	return withSession(cmd, func(ctx context.Context, a *app.App) error {
		convs, err := a.Chat.LoadConversations(ctx)
		if err != nil {
			return fmt.Errorf("failed to list conversations: %w", err)
		}
		conv := models.Conversation{ID: id}
		for _, c := range convs {
			if c.ID == id {
				conv = c
				break
			}
		}

		msgs, err := a.Chat.LoadConversation(ctx, id)
		if err != nil {
			return fmt.Errorf("conversation not found: %w", err)
		}

		out, err := export.Transcript(a.Config.ExportTemplate, conv, msgs, time.Now())
		if err != nil {
			return err
		}

		if exportOutput == "-" {
			fmt.Print(out)
			return nil
		}

		// Determine output path
		outputPath := exportOutput
		if outputPath == "" {
			outputPath = fmt.Sprintf("conversation-%s.md", id)
		}
		if !filepath.IsAbs(outputPath) {
			cwd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get current directory: %w", err)
			}
			outputPath = filepath.Join(cwd, outputPath)
		}

		if err := os.WriteFile(outputPath, []byte(out), 0644); err != nil {
			return fmt.Errorf("failed to write file: %w", err)
		}

		fmt.Printf("Exported conversation to: %s\n", outputPath)
		return nil
	})
}
