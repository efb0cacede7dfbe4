package models

import (
	"errors"
	"strings"
)

// User is the account the API authenticated.
type User struct {
	ID       ID     `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Credentials is what gets persisted between runs. Token and user are always
// stored and cleared together.
type Credentials struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Validate checks if the credentials have required fields
func (c *Credentials) Validate() error {
	if strings.TrimSpace(c.Token) == "" {
		return errors.New("token is required")
	}
	if c.User.Username == "" && c.User.ID.IsZero() {
		return errors.New("user is required")
	}
	return nil
}

// TokenResponse is returned by /auth/token and /auth/register.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type,omitempty"`
	User        *User  `json:"user,omitempty"`
}
