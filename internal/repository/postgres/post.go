package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/utafrali/PostsGo/internal/domain"
	"github.com/utafrali/PostsGo/internal/repository"
	"github.com/utafrali/PostsGo/pkg/database"
	apperrors "github.com/utafrali/PostsGo/pkg/errors"
	"github.com/utafrali/PostsGo/pkg/pagination"
)

// PostRepository implements repository.PostRepository using PostgreSQL.
type PostRepository struct {
	db database.DBTX
}

// NewPostRepository creates a new PostgreSQL-backed post repository.
func NewPostRepository(db database.DBTX) *PostRepository {
	return &PostRepository{db: db}
}

// Create inserts a new post and reads back the author's username.
func (r *PostRepository) Create(ctx context.Context, p *domain.Post) (err error) {
	const query = `
		WITH inserted AS (
			INSERT INTO posts (id, author_id, content, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING author_id
		)
		SELECT u.username FROM inserted i JOIN users u ON u.id = i.author_id`

	ctx, end := database.TraceQuery(ctx, "CreatePost", query)
	defer func() { end(err) }()

	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = now
	}

	err = r.db.QueryRow(ctx, query,
		p.ID,
		p.AuthorID,
		p.Content,
		p.CreatedAt,
		p.UpdatedAt,
	).Scan(&p.AuthorUsername)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperrors.NotFound("user", p.AuthorID)
		}
		return fmt.Errorf("insert post: %w", err)
	}

	return nil
}

// GetByID retrieves a post by its ID.
func (r *PostRepository) GetByID(ctx context.Context, id string) (_ *domain.Post, err error) {
	const query = `
		SELECT p.id, p.author_id, u.username, p.content, p.created_at, p.updated_at
		FROM posts p
		JOIN users u ON u.id = p.author_id
		WHERE p.id = $1`

	ctx, end := database.TraceQuery(ctx, "GetPostByID", query)
	defer func() { end(err) }()

	var p domain.Post
	err = r.db.QueryRow(ctx, query, id).Scan(
		&p.ID,
		&p.AuthorID,
		&p.AuthorUsername,
		&p.Content,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("get post: %w", err)
	}

	return &p, nil
}

// List returns posts matching filter with the total count, newest first.
func (r *PostRepository) List(ctx context.Context, filter repository.PostFilter, params pagination.Params) (_ []domain.Post, _ int, err error) {
	var (
		whereClause string
		args        []any
		argIndex    = 1
	)
	if filter.AuthorID != "" {
		whereClause = fmt.Sprintf("WHERE p.author_id = $%d", argIndex)
		args = append(args, filter.AuthorID)
		argIndex++
	}

	query := fmt.Sprintf(`
		SELECT p.id, p.author_id, u.username, p.content, p.created_at, p.updated_at,
			   count(*) OVER() AS total_count
		FROM posts p
		JOIN users u ON u.id = p.author_id
		%s
		ORDER BY p.created_at DESC
		LIMIT $%d OFFSET $%d`,
		whereClause, argIndex, argIndex+1,
	)
	args = append(args, params.PerPage, params.Offset)

	ctx, end := database.TraceQuery(ctx, "ListPosts", query)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	var (
		posts      []domain.Post
		totalCount int
	)
	for rows.Next() {
		var p domain.Post
		if err = rows.Scan(
			&p.ID,
			&p.AuthorID,
			&p.AuthorUsername,
			&p.Content,
			&p.CreatedAt,
			&p.UpdatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan post row: %w", err)
		}
		posts = append(posts, p)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate post rows: %w", err)
	}

	return posts, totalCount, nil
}

// Update sets the content of a post and bumps updated_at.
func (r *PostRepository) Update(ctx context.Context, id string, upd domain.PostUpdate) (_ *domain.Post, err error) {
	if upd.Content == nil {
		return r.GetByID(ctx, id)
	}

	const query = `
		WITH updated AS (
			UPDATE posts
			SET content = $1, updated_at = NOW()
			WHERE id = $2
			RETURNING id, author_id, content, created_at, updated_at
		)
		SELECT p.id, p.author_id, u.username, p.content, p.created_at, p.updated_at
		FROM updated p
		JOIN users u ON u.id = p.author_id`

	ctx, end := database.TraceQuery(ctx, "UpdatePost", query)
	defer func() { end(err) }()

	var p domain.Post
	err = r.db.QueryRow(ctx, query, *upd.Content, id).Scan(
		&p.ID,
		&p.AuthorID,
		&p.AuthorUsername,
		&p.Content,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("post", id)
		}
		return nil, fmt.Errorf("update post: %w", err)
	}

	return &p, nil
}

// Delete removes a post by its ID.
func (r *PostRepository) Delete(ctx context.Context, id string) (err error) {
	const query = `DELETE FROM posts WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "DeletePost", query)
	defer func() { end(err) }()

	ct, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("post", id)
	}

	return nil
}

// isForeignKeyViolation reports SQLSTATE 23503, raised when the author row
// is gone.
func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
