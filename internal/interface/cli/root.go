package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/neilberkman/docchat/internal/core/app"
	"github.com/spf13/cobra"
)

var (
	dbPath      string
	configDir   string
	apiURL      string
	versionInfo string
)

// SetVersion sets the version information from build-time ldflags
func SetVersion(version, commit, date string) {
	versionInfo = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)
	rootCmd.Version = versionInfo
}

// Execute runs the CLI
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", describe(err))
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "docchat",
	Short: "Chat with your documents from the terminal",
	Long: `docchat - upload documents and ask questions about them

A terminal client for a retrieval-augmented chat server. Sign in, upload
documents, browse conversations and chat in general or document mode.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default to TUI if no subcommand specified
		return tuiCmd.RunE(cmd, args)
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "Config directory (default ~/.config/docchat)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Session database path (default <config-dir>/docchat.db)")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "API server URL (overrides config and DOCCHAT_API_URL)")
}

func openApp() (*app.App, error) {
	return app.Open(app.Options{
		ConfigDir: configDir,
		DBPath:    dbPath,
		APIURL:    apiURL,
	})
}

// withApp opens the app for the length of fn.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer func() {
		_ = a.Close()
	}()
	return fn(commandContext(cmd), a)
}

// withSession is withApp for commands that need a signed-in user.
func withSession(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		if err := a.RequireAuth(ctx); err != nil {
			return err
		}
		return fn(ctx, a)
	})
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
