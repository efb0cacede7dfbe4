package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/neilberkman/docchat/internal/core/models"
)

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login exchanges credentials for a token. The endpoint takes an OAuth2
// password form, not JSON.
func (c *Client) Login(ctx context.Context, username, password string) (*models.TokenResponse, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	var resp models.TokenResponse
	if err := c.Do(ctx, http.MethodPost, "/auth/token", form, &resp, WithToken("")); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Register creates an account.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*models.TokenResponse, error) {
	var resp models.TokenResponse
	if err := c.Do(ctx, http.MethodPost, "/auth/register", req, &resp, WithToken("")); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Me returns the user the session token belongs to.
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var user models.User
	if err := c.Do(ctx, http.MethodGet, "/auth/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// MeWithToken is Me for a token that is not stored in the session yet. A 401
// here leaves the current session alone.
func (c *Client) MeWithToken(ctx context.Context, token string) (*models.User, error) {
	var user models.User
	if err := c.Do(ctx, http.MethodGet, "/auth/me", nil, &user, WithToken(token), WithoutExpiry()); err != nil {
		return nil, err
	}
	return &user, nil
}
