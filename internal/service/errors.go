package service

import (
	"errors"
	"net/http"

	apperrors "github.com/utafrali/PostsGo/pkg/errors"
)

// Authentication failures. Each one also matches the generic sentinel it
// wraps, so errors.Is(err, apperrors.ErrNotFound) holds for ErrUserNotFound.
var (
	ErrDuplicateEmail     = apperrors.New("DUPLICATE_EMAIL", "a user with this email or username already exists", http.StatusConflict, apperrors.ErrAlreadyExists)
	ErrUserNotFound       = apperrors.New("USER_NOT_FOUND", "no user registered with this email", http.StatusNotFound, apperrors.ErrNotFound)
	ErrInvalidCredentials = apperrors.New("INVALID_CREDENTIALS", "invalid email or password", http.StatusUnauthorized, apperrors.ErrUnauthorized)
)

var errInvalidRefreshToken = apperrors.Forbidden("invalid or expired refresh token")

// outcome turns an operation result into a metric label.
func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrDuplicateEmail):
		return "duplicate_email"
	case errors.Is(err, ErrUserNotFound):
		return "user_not_found"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, apperrors.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, apperrors.ErrForbidden):
		return "forbidden"
	case errors.Is(err, apperrors.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
