package repository

import (
	"context"

	"github.com/utafrali/PostsGo/internal/domain"
	"github.com/utafrali/PostsGo/pkg/pagination"
)

// UserRepository defines the interface for user persistence operations.
// Lookups return apperrors.ErrNotFound when no row matches, and writes
// return apperrors.ErrAlreadyExists when the email or username is taken.
type UserRepository interface {
	// Create inserts a new user, including its initial refresh token.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by their unique identifier.
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetByEmail retrieves a user by their email address.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// GetByUsername retrieves a user by their username.
	GetByUsername(ctx context.Context, username string) (*domain.User, error)

	// GetByRefreshToken retrieves the user whose stored refresh token equals token.
	GetByRefreshToken(ctx context.Context, token string) (*domain.User, error)

	// List returns one page of users and the total number of users.
	List(ctx context.Context, params pagination.Params) ([]domain.User, int, error)

	// Update applies the set fields of upd and returns the updated user.
	Update(ctx context.Context, id string, upd domain.UserUpdate) (*domain.User, error)

	// Delete removes a user by their identifier.
	Delete(ctx context.Context, id string) error
}

// PostFilter narrows a post listing.
type PostFilter struct {
	AuthorID string
}

// PostRepository defines the interface for post persistence operations.
type PostRepository interface {
	// Create inserts a new post and fills in the author's username.
	Create(ctx context.Context, post *domain.Post) error

	// GetByID retrieves a post by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.Post, error)

	// List returns one page of posts, newest first, and the total count.
	List(ctx context.Context, filter PostFilter, params pagination.Params) ([]domain.Post, int, error)

	// Update applies the set fields of upd and returns the updated post.
	Update(ctx context.Context, id string, upd domain.PostUpdate) (*domain.Post, error)

	// Delete removes a post by its identifier.
	Delete(ctx context.Context, id string) error
}
