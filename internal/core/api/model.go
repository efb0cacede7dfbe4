package api

import (
	"context"
	"net/http"

	"github.com/neilberkman/docchat/internal/core/models"
)

// ModelStatus reports whether the server's model is loaded.
func (c *Client) ModelStatus(ctx context.Context) (*models.ModelStatus, error) {
	var out models.ModelStatus
	if err := c.Do(ctx, http.MethodGet, "/api/model/status", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PreloadModel asks the server to start loading its model.
func (c *Client) PreloadModel(ctx context.Context) (*models.ModelStatus, error) {
	var out models.ModelStatus
	if err := c.Do(ctx, http.MethodPost, "/api/model/preload", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
