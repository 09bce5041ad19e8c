package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/utafrali/PostsGo/internal/auth"
	"github.com/utafrali/PostsGo/internal/domain"
	"github.com/utafrali/PostsGo/internal/repository"
	apperrors "github.com/utafrali/PostsGo/pkg/errors"
	"github.com/utafrali/PostsGo/pkg/pagination"
	"github.com/utafrali/PostsGo/pkg/validator"
)

// UpdateUserInput holds the fields a user may change on their own account.
type UpdateUserInput struct {
	Username *string `json:"username" validate:"omitempty,min=3,max=50"`
	Password *string `json:"password" validate:"omitempty,min=6,max=72"`
}

// UserService implements user account management.
type UserService struct {
	users  repository.UserRepository
	hasher auth.PasswordHasher
	cache  PostCache
	events EventPublisher
	logger *slog.Logger
}

// NewUserService creates a new user service. cache may be nil.
func NewUserService(
	users repository.UserRepository,
	hasher auth.PasswordHasher,
	cache PostCache,
	events EventPublisher,
	logger *slog.Logger,
) *UserService {
	return &UserService{
		users:  users,
		hasher: hasher,
		cache:  cache,
		events: events,
		logger: logger,
	}
}

// ListUsers returns one page of users.
func (s *UserService) ListUsers(ctx context.Context, params pagination.Params) (*pagination.Result[domain.UserView], error) {
	users, total, err := s.users.List(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	views := make([]domain.UserView, 0, len(users))
	for i := range users {
		views = append(views, users[i].View())
	}

	result := pagination.NewResult(views, total, params)
	return &result, nil
}

// GetUser returns the user with the given ID.
func (s *UserService) GetUser(ctx context.Context, id string) (*domain.UserView, error) {
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

	view := user.View()
	return &view, nil
}

// GetUserByUsername returns the user with the given username.
func (s *UserService) GetUserByUsername(ctx context.Context, username string) (*domain.UserView, error) {
	username = strings.TrimSpace(username)
	if len(username) < 3 {
		return nil, apperrors.InvalidInput("username must be at least 3 characters")
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.New("NOT_FOUND", fmt.Sprintf("user %q not found", username), 0, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("get user by username: %w", err)
	}

	view := user.View()
	return &view, nil
}

// UpdateUser changes the caller's own username or password. A password
// change also ends the caller's session.
func (s *UserService) UpdateUser(ctx context.Context, callerID, id string, input UpdateUserInput) (*domain.UserView, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.InvalidInput("invalid user id")
	}
	if callerID != id {
		return nil, apperrors.Forbidden("you can only update your own account")
	}
	if input.Username == nil && input.Password == nil {
		return nil, apperrors.InvalidInput("no fields to update")
	}
	if input.Username != nil {
		trimmed := strings.TrimSpace(*input.Username)
		input.Username = &trimmed
	}
	if err := validator.Validate(input); err != nil {
		return nil, err
	}

	upd := domain.UserUpdate{Username: input.Username}
	if input.Password != nil {
		hash, err := s.hasher.Hash(*input.Password)
		if err != nil {
			return nil, fmt.Errorf("update user: %w", err)
		}
		cleared := ""
		upd.PasswordHash = &hash
		upd.RefreshToken = &cleared
	}

	user, err := s.users.Update(ctx, id, upd)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) || errors.Is(err, apperrors.ErrAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("update user: %w", err)
	}

	s.logger.InfoContext(ctx, "user updated",
		slog.String("user_id", id),
		slog.Bool("password_changed", input.Password != nil),
	)

	view := user.View()
	return &view, nil
}

// DeleteUser removes the caller's own account together with their posts.
func (s *UserService) DeleteUser(ctx context.Context, callerID, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperrors.InvalidInput("invalid user id")
	}
	if callerID != id {
		return apperrors.Forbidden("you can only delete your own account")
	}

	if err := s.users.Delete(ctx, id); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return err
		}
		return fmt.Errorf("delete user: %w", err)
	}

	// Posts went with the user through the foreign key cascade.
	invalidateFeed(ctx, s.cache, s.logger)

	if err := s.events.PublishUserDeleted(ctx, id); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.deleted event",
			slog.String("user_id", id),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user deleted",
		slog.String("user_id", id),
	)
	return nil
}
