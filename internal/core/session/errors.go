package session

import (
	"errors"
	"fmt"

	"github.com/neilberkman/docchat/internal/core/api"
)

// AuthError is a failed login or registration. Reason is safe to show in a form.
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *AuthError) Unwrap() error { return e.Err }

// ValidationError is raised before any request is made.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsValidation reports whether err is a *ValidationError
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func newAuthError(err error, fallback string) *AuthError {
	reason := fallback
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Kind {
		case api.KindNetwork:
			reason = api.UserMessage(err)
		case api.KindServer:
			if apiErr.Message != "" {
				reason = apiErr.Message
			}
		}
	}
	return &AuthError{Reason: reason, Err: err}
}
