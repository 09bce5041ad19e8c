package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/PostsGo/internal/cache"
	"github.com/utafrali/PostsGo/internal/domain"
	"github.com/utafrali/PostsGo/internal/repository"
	apperrors "github.com/utafrali/PostsGo/pkg/errors"
	"github.com/utafrali/PostsGo/pkg/pagination"
	"github.com/utafrali/PostsGo/pkg/validator"
)

// PostCache caches pages of the global post feed. *cache.PostListCache
// implements it.
type PostCache interface {
	Get(ctx context.Context, params pagination.Params) (*pagination.Result[domain.Post], error)
	Set(ctx context.Context, params pagination.Params, page pagination.Result[domain.Post]) error
	Invalidate(ctx context.Context) error
}

// CreatePostInput holds the parameters for creating a post.
type CreatePostInput struct {
	Content string `json:"content" validate:"required,max=5000"`
}

// UpdatePostInput holds the parameters for editing a post.
type UpdatePostInput struct {
	Content string `json:"content" validate:"required,max=5000"`
}

// PostService implements post management.
type PostService struct {
	posts  repository.PostRepository
	cache  PostCache
	events EventPublisher
	logger *slog.Logger
}

// NewPostService creates a new post service. cache may be nil, in which
// case every listing reads from the database.
func NewPostService(posts repository.PostRepository, cache PostCache, events EventPublisher, logger *slog.Logger) *PostService {
	return &PostService{
		posts:  posts,
		cache:  cache,
		events: events,
		logger: logger,
	}
}

// ListPosts returns one page of the global feed, newest first.
func (s *PostService) ListPosts(ctx context.Context, params pagination.Params) (*pagination.Result[domain.Post], error) {
	if s.cache != nil {
		page, err := s.cache.Get(ctx, params)
		if err == nil {
			return page, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.WarnContext(ctx, "post cache read failed",
				slog.String("error", err.Error()),
			)
		}
	}

	posts, total, err := s.posts.List(ctx, repository.PostFilter{}, params)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	result := pagination.NewResult(posts, total, params)

	if s.cache != nil {
		if err := s.cache.Set(ctx, params, result); err != nil {
			s.logger.WarnContext(ctx, "post cache write failed",
				slog.String("error", err.Error()),
			)
		}
	}

	return &result, nil
}

// ListPostsByAuthor returns one page of posts written by authorID.
func (s *PostService) ListPostsByAuthor(ctx context.Context, authorID string, params pagination.Params) (*pagination.Result[domain.Post], error) {
	if _, err := uuid.Parse(authorID); err != nil {
		return nil, apperrors.InvalidInput("invalid author id")
	}

	posts, total, err := s.posts.List(ctx, repository.PostFilter{AuthorID: authorID}, params)
	if err != nil {
		return nil, fmt.Errorf("list posts by author: %w", err)
	}

	result := pagination.NewResult(posts, total, params)
	return &result, nil
}

// GetPost returns the post with the given ID.
func (s *PostService) GetPost(ctx context.Context, id string) (*domain.Post, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.InvalidInput("invalid post id")
	}

	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("post", id)
		}
		return nil, fmt.Errorf("get post: %w", err)
	}
	return post, nil
}

// CreatePost publishes a new post by authorID.
func (s *PostService) CreatePost(ctx context.Context, authorID string, input CreatePostInput) (*domain.Post, error) {
	input.Content = strings.TrimSpace(input.Content)
	if err := validator.Validate(input); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	post := &domain.Post{
		ID:        uuid.NewString(),
		AuthorID:  authorID,
		Content:   input.Content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.posts.Create(ctx, post); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("create post: %w", err)
	}

	invalidateFeed(ctx, s.cache, s.logger)
	if err := s.events.PublishPostCreated(ctx, post); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish post.created event",
			slog.String("post_id", post.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "post created",
		slog.String("post_id", post.ID),
		slog.String("author_id", authorID),
	)
	return post, nil
}

// UpdatePost edits a post. Only its author may do so.
func (s *PostService) UpdatePost(ctx context.Context, callerID, id string, input UpdatePostInput) (*domain.Post, error) {
	input.Content = strings.TrimSpace(input.Content)
	if err := validator.Validate(input); err != nil {
		return nil, err
	}

	if _, err := s.authorize(ctx, callerID, id, "update"); err != nil {
		return nil, err
	}

	post, err := s.posts.Update(ctx, id, domain.PostUpdate{Content: &input.Content})
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update post: %w", err)
	}

	invalidateFeed(ctx, s.cache, s.logger)
	if err := s.events.PublishPostUpdated(ctx, post); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish post.updated event",
			slog.String("post_id", post.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "post updated",
		slog.String("post_id", post.ID),
	)
	return post, nil
}

// DeletePost removes a post. Only its author may do so.
func (s *PostService) DeletePost(ctx context.Context, callerID, id string) error {
	post, err := s.authorize(ctx, callerID, id, "delete")
	if err != nil {
		return err
	}

	if err := s.posts.Delete(ctx, id); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return err
		}
		return fmt.Errorf("delete post: %w", err)
	}

	invalidateFeed(ctx, s.cache, s.logger)
	if err := s.events.PublishPostDeleted(ctx, post); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish post.deleted event",
			slog.String("post_id", post.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "post deleted",
		slog.String("post_id", id),
	)
	return nil
}

// authorize loads the post and checks that callerID wrote it.
func (s *PostService) authorize(ctx context.Context, callerID, id, action string) (*domain.Post, error) {
	post, err := s.GetPost(ctx, id)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != callerID {
		return nil, apperrors.Forbidden(fmt.Sprintf("you can only %s your own posts", action))
	}
	return post, nil
}

// invalidateFeed drops the cached feed after a write. A failure only leaves
// stale pages until their TTL runs out, so it is logged and not returned.
func invalidateFeed(ctx context.Context, c PostCache, logger *slog.Logger) {
	if c == nil {
		return
	}
	if err := c.Invalidate(ctx); err != nil {
		logger.WarnContext(ctx, "post cache invalidation failed",
			slog.String("error", err.Error()),
		)
	}
}
