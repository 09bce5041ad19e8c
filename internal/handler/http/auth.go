package http

import (
	"log/slog"
	"net/http"

	"github.com/utafrali/PostsGo/internal/domain"
	"github.com/utafrali/PostsGo/internal/service"
	apperrors "github.com/utafrali/PostsGo/pkg/errors"
	"github.com/utafrali/PostsGo/pkg/httputil"
	"github.com/utafrali/PostsGo/pkg/middleware"
	"github.com/utafrali/PostsGo/pkg/validator"
)

// AuthHandler handles HTTP requests for auth endpoints.
type AuthHandler struct {
	service *service.AuthService
	cookies CookieConfig
	logger  *slog.Logger
}

// NewAuthHandler creates a new auth HTTP handler.
func NewAuthHandler(svc *service.AuthService, cookies CookieConfig, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{service: svc, cookies: cookies, logger: logger}
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterInput
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	result, err := h.service.Register(r.Context(), req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.setSession(w, result.Token)
	httputil.WriteData(w, http.StatusCreated, result)
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req service.LoginInput
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	result, err := h.service.Login(r.Context(), req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.setSession(w, result.Token)
	httputil.WriteData(w, http.StatusOK, result)
}

// Logout handles POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := readCookie(r, RefreshTokenCookie)
	if token == "" {
		httputil.WriteError(w, r, apperrors.Unauthorized("missing refresh token"), h.logger)
		return
	}

	if err := h.service.Logout(r.Context(), token); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.cookies.clear(w, AccessTokenCookie)
	h.cookies.clear(w, RefreshTokenCookie)
	httputil.WriteData(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// Refresh handles POST /api/auth/refresh-token
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	token := readCookie(r, RefreshTokenCookie)
	if token == "" {
		httputil.WriteError(w, r, apperrors.Unauthorized("missing refresh token"), h.logger)
		return
	}

	result, err := h.service.Refresh(r.Context(), token)
	if err != nil {
		h.cookies.clear(w, RefreshTokenCookie)
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.cookies.setAccess(w, result.Token.AccessToken)
	httputil.WriteData(w, http.StatusOK, result)
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.FetchCurrentUser(r.Context(), middleware.UserIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, result)
}

func (h *AuthHandler) setSession(w http.ResponseWriter, pair *domain.TokenPair) {
	if pair == nil {
		return
	}
	h.cookies.setAccess(w, pair.AccessToken)
	h.cookies.setRefresh(w, pair.RefreshToken)
}
