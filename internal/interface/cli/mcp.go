package cli

import (
	"context"
	"fmt"

	"github.com/neilberkman/docchat/cmd/docchat/mcp"
	"github.com/neilberkman/docchat/internal/core/app"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "serve-mcp",
	Short: "Start MCP server for assistant integration",
	Long: `Start an MCP (Model Context Protocol) server over stdio that lets an
assistant ask questions against your documents and browse conversations.

Sign in with 'docchat login' first; the server uses the stored session.

Configure in your MCP client's config file:
  {
    "mcpServers": {
      "docchat": {
        "command": "docchat",
        "args": ["serve-mcp"]
      }
    }
  }
`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(ctx context.Context, a *app.App) error {
		version := versionInfo
		if version == "" {
			version = "dev"
		}
		if err := mcp.StartServer(a.API, version, a.Log.Named("mcp")); err != nil {
			return fmt.Errorf("MCP server failed: %w", err)
		}
		return nil
	})
}
