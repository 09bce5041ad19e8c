package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/utafrali/PostsGo/pkg/httputil"
	"github.com/utafrali/PostsGo/pkg/logger"
)

type contextKeyType string

const userIDKey contextKeyType = "user_id"

// Claims is what the auth middleware needs from a verified access token.
type Claims struct {
	UserID string
}

// TokenValidator verifies a raw access token and returns its claims.
type TokenValidator func(token string) (*Claims, error)

// Auth rejects requests without a valid access token. The token is read from
// the Authorization bearer header first and then from cookieName, if set.
// On success the user ID is stored in the context and added to the
// request-scoped logger.
func Auth(validate TokenValidator, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := extractToken(r, cookieName)
			if !ok {
				writeAuthError(w, r, "missing access token")
				return
			}

			claims, err := validate(token)
			if err != nil {
				writeAuthError(w, r, "invalid or expired token")
				return
			}

			ctx := WithUserID(r.Context(), claims.UserID)
			ctx = logger.WithUserID(ctx, claims.UserID)
			ctx = logger.NewContext(ctx, logger.FromContext(ctx, nil).With("user_id", claims.UserID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func extractToken(r *http.Request, cookieName string) (string, bool) {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, found := strings.Cut(h, " ")
		if !found || !strings.EqualFold(scheme, "bearer") || token == "" {
			return "", false
		}
		return token, true
	}
	if cookieName == "" {
		return "", false
	}
	c, err := r.Cookie(cookieName)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

// WithUserID stores the authenticated user ID in ctx.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// UserIDFromContext extracts the user ID set by Auth.
func UserIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(userIDKey).(string); ok {
		return id
	}
	return ""
}

func writeAuthError(w http.ResponseWriter, r *http.Request, message string) {
	httputil.WriteJSON(w, http.StatusUnauthorized, httputil.Response{
		Error: &httputil.ErrorResponse{
			Code:      "UNAUTHORIZED",
			Message:   message,
			RequestID: logger.CorrelationIDFromContext(r.Context()),
		},
	})
}
