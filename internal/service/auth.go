package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/PostsGo/internal/auth"
	"github.com/utafrali/PostsGo/internal/domain"
	"github.com/utafrali/PostsGo/internal/repository"
	apperrors "github.com/utafrali/PostsGo/pkg/errors"
	"github.com/utafrali/PostsGo/pkg/validator"
)

// TokenManager issues and verifies access and refresh tokens.
// *auth.JWTManager implements it.
type TokenManager interface {
	GenerateAccessToken(userID string) (string, error)
	GenerateRefreshToken(userID string) (string, error)
	ValidateRefreshToken(token string) (*auth.Claims, error)
}

// EventPublisher publishes domain events. Publishing failures are logged by
// the caller and never fail the operation that triggered them.
type EventPublisher interface {
	PublishUserRegistered(ctx context.Context, user *domain.User) error
	PublishUserDeleted(ctx context.Context, userID string) error
	PublishPostCreated(ctx context.Context, post *domain.Post) error
	PublishPostUpdated(ctx context.Context, post *domain.Post) error
	PublishPostDeleted(ctx context.Context, post *domain.Post) error
}

// RegisterInput holds the parameters for registering a new user.
type RegisterInput struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// LoginInput holds the parameters for user login.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthService runs the authentication and token lifecycle. It keeps no
// state between calls; every operation re-reads the user from the store.
type AuthService struct {
	users   repository.UserRepository
	hasher  auth.PasswordHasher
	tokens  TokenManager
	events  EventPublisher
	metrics *Metrics
	logger  *slog.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(
	users repository.UserRepository,
	hasher auth.PasswordHasher,
	tokens TokenManager,
	events EventPublisher,
	metrics *Metrics,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:   users,
		hasher:  hasher,
		tokens:  tokens,
		events:  events,
		metrics: metrics,
		logger:  logger,
	}
}

// Register creates an account and signs the new user in. The refresh token
// is stored together with the user row in a single insert.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (_ *domain.AuthResult, err error) {
	defer func() { s.metrics.observe("register", err) }()

	input.Email = normalizeEmail(input.Email)
	input.Username = strings.TrimSpace(input.Username)
	if err := validator.Validate(input); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	refreshToken, err := s.tokens.GenerateRefreshToken(id)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           id,
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: hash,
		RefreshToken: refreshToken,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, apperrors.ErrAlreadyExists) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	accessToken, err := s.tokens.GenerateAccessToken(id)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}

	if err := s.events.PublishUserRegistered(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.registered event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user registered",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username),
	)

	return &domain.AuthResult{
		User: user.View(),
		Token: &domain.TokenPair{
			AccessToken:  accessToken,
			RefreshToken: refreshToken,
		},
	}, nil
}

// Login checks the credentials and starts a new session. The new refresh
// token replaces any stored one, so only the latest login stays valid.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (_ *domain.AuthResult, err error) {
	defer func() { s.metrics.observe("login", err) }()

	input.Email = normalizeEmail(input.Email)
	if err := validator.Validate(input); err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}

	if !s.hasher.Verify(input.Password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	accessToken, err := s.tokens.GenerateAccessToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	refreshToken, err := s.tokens.GenerateRefreshToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	if _, err := s.users.Update(ctx, user.ID, domain.UserUpdate{RefreshToken: &refreshToken}); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	s.logger.InfoContext(ctx, "user logged in",
		slog.String("user_id", user.ID),
	)

	return &domain.AuthResult{
		User: user.View(),
		Token: &domain.TokenPair{
			AccessToken:  accessToken,
			RefreshToken: refreshToken,
		},
	}, nil
}

// Logout ends the session holding refreshToken by clearing the stored copy.
// The token itself is not verified: knowing the stored value is enough.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) (err error) {
	defer func() { s.metrics.observe("logout", err) }()

	user, err := s.users.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return errInvalidRefreshToken
		}
		return fmt.Errorf("get user by refresh token: %w", err)
	}

	cleared := ""
	if _, err := s.users.Update(ctx, user.ID, domain.UserUpdate{RefreshToken: &cleared}); err != nil {
		return fmt.Errorf("clear refresh token: %w", err)
	}

	s.logger.InfoContext(ctx, "user logged out",
		slog.String("user_id", user.ID),
	)
	return nil
}

// Refresh mints a new access token from a valid, currently stored refresh
// token. The refresh token is not rotated.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (_ *domain.AuthResult, err error) {
	defer func() { s.metrics.observe("refresh", err) }()

	claims, err := s.tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, errInvalidRefreshToken
	}

	user, err := s.users.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, errInvalidRefreshToken
		}
		return nil, fmt.Errorf("get user by refresh token: %w", err)
	}

	if claims.UserID() != user.ID || user.RefreshToken != refreshToken {
		s.logger.WarnContext(ctx, "refresh token subject mismatch",
			slog.String("user_id", user.ID),
		)
		return nil, errInvalidRefreshToken
	}

	accessToken, err := s.tokens.GenerateAccessToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("refresh: %w", err)
	}

	s.logger.InfoContext(ctx, "access token refreshed",
		slog.String("user_id", user.ID),
	)

	return &domain.AuthResult{
		User:  user.View(),
		Token: &domain.TokenPair{AccessToken: accessToken},
	}, nil
}

// FetchCurrentUser returns the public view of the user with the given ID.
func (s *AuthService) FetchCurrentUser(ctx context.Context, id string) (_ *domain.AuthResult, err error) {
	defer func() { s.metrics.observe("me", err) }()

	if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.InvalidInput("invalid user id")
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("user", id)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	return &domain.AuthResult{User: user.View()}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
