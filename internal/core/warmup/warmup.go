// Package warmup asks the server to load its model and waits until it has.
package warmup

import (
	"context"
	"time"

	"github.com/neilberkman/docchat/internal/core/models"
	"github.com/neilberkman/docchat/internal/core/poller"
	"go.uber.org/zap"
)

// API is what warmup needs from the remote client.
type API interface {
	ModelStatus(ctx context.Context) (*models.ModelStatus, error)
	PreloadModel(ctx context.Context) (*models.ModelStatus, error)
}

// StatusFunc receives every status observed, and the error of failed polls.
type StatusFunc func(status *models.ModelStatus, err error)

// Start requests a preload (unless the model is already loaded) and polls
// status every interval. The returned task stops on its own once the model
// reports loaded; call Stop to abandon it earlier.
func Start(ctx context.Context, client API, interval time.Duration, onStatus StatusFunc, log *zap.Logger) *poller.Task {
	if log == nil {
		log = zap.NewNop()
	}
	if onStatus == nil {
		onStatus = func(*models.ModelStatus, error) {}
	}

	requested := false
	return poller.Every(ctx, interval, func(ctx context.Context) (bool, error) {
		status, err := client.ModelStatus(ctx)
		if err != nil {
			log.Debug("model status check failed", zap.Error(err))
			onStatus(nil, err)
			return false, err
		}
		onStatus(status, nil)
		if status.Loaded {
			log.Info("model loaded", zap.String("model", status.ModelName))
			return true, nil
		}

		if !requested && !status.Loading {
			requested = true
			if _, err := client.PreloadModel(ctx); err != nil {
				log.Warn("model preload request failed", zap.Error(err))
				requested = false
				return false, err
			}
			log.Info("model preload requested")
		}
		return false, nil
	})
}

// Wait blocks until the model is loaded, ctx ends or the timeout passes.
func Wait(ctx context.Context, client API, interval, timeout time.Duration, onStatus StatusFunc, log *zap.Logger) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	task := Start(ctx, client, interval, onStatus, log)
	<-task.Done()
	if task.Completed() {
		return true, nil
	}
	if err := task.Err(); err != nil {
		return false, err
	}
	return false, ctx.Err()
}
