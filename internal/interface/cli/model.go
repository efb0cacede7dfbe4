package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/neilberkman/docchat/internal/core/app"
	"github.com/neilberkman/docchat/internal/core/models"
	"github.com/neilberkman/docchat/internal/core/warmup"
	"github.com/spf13/cobra"
)

var (
	preloadWait    bool
	preloadTimeout time.Duration
)

var modelCmd = &cobra.Command{
	Use:   "model",
	Short: "Inspect and warm up the server's language model",
}

var modelStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the model is loaded",
	Args:  cobra.NoArgs,
	RunE:  runModelStatus,
}

var modelPreloadCmd = &cobra.Command{
	Use:   "preload",
	Short: "Ask the server to load the model",
	Long: `Ask the server to load its language model ahead of the first question.

With --wait, polls until the model reports loaded or the timeout passes.`,
	Args: cobra.NoArgs,
	RunE: runModelPreload,
}

func init() {
	rootCmd.AddCommand(modelCmd)
	modelCmd.AddCommand(modelStatusCmd, modelPreloadCmd)

	modelPreloadCmd.Flags().BoolVarP(&preloadWait, "wait", "w", false, "Wait until the model is loaded")
	modelPreloadCmd.Flags().DurationVar(&preloadTimeout, "timeout", 5*time.Minute, "How long to wait with --wait")
}

func runModelStatus(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(ctx context.Context, a *app.App) error {
		status, err := a.API.ModelStatus(ctx)
		if err != nil {
			return fmt.Errorf("failed to get model status: %w", err)
		}
		printModelStatus(status)
		return nil
	})
}

func runModelPreload(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(ctx context.Context, a *app.App) error {
		if !preloadWait {
			status, err := a.API.PreloadModel(ctx)
			if err != nil {
				return fmt.Errorf("failed to preload model: %w", err)
			}
			printModelStatus(status)
			return nil
		}

		spinner := NewSpinner("Loading model...")
		spinner.Start()
		loaded, err := warmup.Wait(ctx, a.API, a.Config.ModelPollInterval, preloadTimeout, nil, a.Log.Named("warmup"))
		spinner.Stop()
		if loaded {
			fmt.Println("Model loaded")
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("model still loading after %s: %w", preloadTimeout, err)
		}
		return fmt.Errorf("model still loading after %s", preloadTimeout)
	})
}

func printModelStatus(s *models.ModelStatus) {
	state := "not loaded"
	switch {
	case s.Loaded:
		state = "loaded"
	case s.Loading:
		state = "loading"
	}
	if s.ModelName != "" {
		fmt.Printf("Model:   %s\n", s.ModelName)
	}
	fmt.Printf("Status:  %s\n", state)
	if s.Message != "" {
		fmt.Printf("Message: %s\n", s.Message)
	}
}
