package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/neilberkman/docchat/internal/core/app"
	"github.com/neilberkman/docchat/internal/core/filter"
	"github.com/neilberkman/docchat/internal/core/models"
	"github.com/spf13/cobra"
)

var (
	docsLimit  int
	docsFilter string
)

var documentsCmd = &cobra.Command{
	Use:     "documents",
	Aliases: []string{"docs"},
	Short:   "List, upload and delete documents",
}

var documentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List uploaded documents",
	Long: `List uploaded documents, newest first.

Filters accept free text matched against the filename plus date ranges.

Examples:
  docchat documents list
  docchat documents list --filter "report after:last month"
  docchat documents list --filter "before:2024-06-01"`,
	Args: cobra.NoArgs,
	RunE: runDocumentsList,
}

var documentsUploadCmd = &cobra.Command{
	Use:   "upload <file>...",
	Short: "Upload documents for indexing",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDocumentsUpload,
}

var documentsDeleteCmd = &cobra.Command{
	Use:   "delete <document-id>...",
	Short: "Delete documents",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDocumentsDelete,
}

func init() {
	rootCmd.AddCommand(documentsCmd)
	documentsCmd.AddCommand(documentsListCmd, documentsUploadCmd, documentsDeleteCmd)

	documentsListCmd.Flags().IntVar(&docsLimit, "limit", 100, "Maximum number of documents to fetch")
	documentsListCmd.Flags().StringVarP(&docsFilter, "filter", "f", "", "Filter by name and date (after:, before:, date:)")
}

func runDocumentsList(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(ctx context.Context, a *app.App) error {
		docs, err := a.Documents.List(ctx, 0, docsLimit)
		if err != nil {
			return fmt.Errorf("failed to list documents: %w", err)
		}
		docs = filter.Parse(docsFilter, time.Now()).Documents(docs)

		if len(docs) == 0 {
			if docsFilter != "" {
				fmt.Printf("No documents match: %s\n", docsFilter)
			} else {
				fmt.Println("No documents yet. Run 'docchat documents upload <file>' to add one.")
			}
			return nil
		}

		fmt.Printf("Showing %d document(s)\n\n", len(docs))
		for _, d := range docs {
			printDocument(d)
		}
		return nil
	})
}

func printDocument(d models.Document) {
	status := "indexed"
	if !d.Processed {
		status = "processing"
	}
	fmt.Printf("[%s] %s\n", d.ID, d.Filename)
	fmt.Printf("    Size:    %s\n", humanize.Bytes(uint64(d.FileSize)))
	fmt.Printf("    Status:  %s (%d chunks)\n", status, d.ChunkCount)
	fmt.Printf("    Added:   %s\n", formatTimestamp(d.CreatedAt.Time))
	fmt.Println()
}

func runDocumentsUpload(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(ctx context.Context, a *app.App) error {
		var failed int
		for _, path := range args {
			var size int64
			if info, err := os.Stat(path); err == nil {
				size = info.Size()
			}

			bar := newUploadProgress(os.Stdout, filepath.Base(path), size)
			doc, err := a.Documents.Upload(ctx, path, bar.Update)
			if err != nil {
				bar.Fail()
				fmt.Fprintf(os.Stderr, "Error: %s: %s\n", filepath.Base(path), describe(err))
				failed++
				continue
			}
			bar.Finish()
			if doc != nil {
				fmt.Printf("Document %s stored as %s\n", doc.ID, doc.Filename)
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d uploads failed", failed, len(args))
		}
		return nil
	})
}

func runDocumentsDelete(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(ctx context.Context, a *app.App) error {
		for _, id := range args {
			if err := a.Documents.Delete(ctx, models.ID(id)); err != nil {
				return fmt.Errorf("failed to delete document %s: %w", id, err)
			}
			fmt.Printf("Deleted document %s\n", id)
		}
		return nil
	})
}
