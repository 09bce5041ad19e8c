package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/utafrali/PostsGo/internal/domain"
	"github.com/utafrali/PostsGo/pkg/database"
	apperrors "github.com/utafrali/PostsGo/pkg/errors"
	"github.com/utafrali/PostsGo/pkg/pagination"
)

const userColumns = `id, username, email, password, COALESCE(refresh_token, ''), created_at, updated_at`

// UserRepository implements repository.UserRepository using PostgreSQL.
type UserRepository struct {
	db database.DBTX
}

// NewUserRepository creates a new PostgreSQL-backed user repository.
func NewUserRepository(db database.DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user into the database.
func (r *UserRepository) Create(ctx context.Context, u *domain.User) (err error) {
	const query = `
		INSERT INTO users (id, username, email, password, refresh_token, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7)`

	ctx, end := database.TraceQuery(ctx, "CreateUser", query)
	defer func() { end(err) }()

	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = now
	}

	_, err = r.db.Exec(ctx, query,
		u.ID,
		u.Username,
		u.Email,
		u.PasswordHash,
		u.RefreshToken,
		u.CreatedAt,
		u.UpdatedAt,
	)
	if err != nil {
		if field, ok := uniqueViolation(err); ok {
			return apperrors.AlreadyExists("user", field, fieldValue(u, field))
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by their ID.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getOne(ctx, "GetUserByID", "id", id)
}

// GetByEmail retrieves a user by their email address.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, "GetUserByEmail", "email", email)
}

// GetByUsername retrieves a user by their username.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.getOne(ctx, "GetUserByUsername", "username", username)
}

// GetByRefreshToken retrieves the user currently holding token. An empty
// token never matches, since a cleared session is stored as NULL.
func (r *UserRepository) GetByRefreshToken(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, apperrors.ErrNotFound
	}
	return r.getOne(ctx, "GetUserByRefreshToken", "refresh_token", token)
}

// List returns one page of users ordered by creation time, newest first.
func (r *UserRepository) List(ctx context.Context, params pagination.Params) (_ []domain.User, _ int, err error) {
	const query = `
		SELECT ` + userColumns + `,
			   count(*) OVER() AS total_count
		FROM users
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	ctx, end := database.TraceQuery(ctx, "ListUsers", query)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, query, params.PerPage, params.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var (
		users      []domain.User
		totalCount int
	)
	for rows.Next() {
		var u domain.User
		if err = rows.Scan(
			&u.ID,
			&u.Username,
			&u.Email,
			&u.PasswordHash,
			&u.RefreshToken,
			&u.CreatedAt,
			&u.UpdatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan user row: %w", err)
		}
		users = append(users, u)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate user rows: %w", err)
	}

	return users, totalCount, nil
}

// Update applies the set fields of upd in a single statement and returns the
// resulting row. An empty update is a plain read.
func (r *UserRepository) Update(ctx context.Context, id string, upd domain.UserUpdate) (_ *domain.User, err error) {
	if upd.IsEmpty() {
		return r.GetByID(ctx, id)
	}

	var (
		sets     []string
		args     []any
		argIndex = 1
	)
	if upd.Username != nil {
		sets = append(sets, fmt.Sprintf("username = $%d", argIndex))
		args = append(args, *upd.Username)
		argIndex++
	}
	if upd.PasswordHash != nil {
		sets = append(sets, fmt.Sprintf("password = $%d", argIndex))
		args = append(args, *upd.PasswordHash)
		argIndex++
	}
	if upd.RefreshToken != nil {
		sets = append(sets, fmt.Sprintf("refresh_token = NULLIF($%d, '')", argIndex))
		args = append(args, *upd.RefreshToken)
		argIndex++
	}
	sets = append(sets, "updated_at = NOW()")
	args = append(args, id)

	query := fmt.Sprintf(`
		UPDATE users
		SET %s
		WHERE id = $%d
		RETURNING %s`,
		strings.Join(sets, ", "), argIndex, userColumns,
	)

	ctx, end := database.TraceQuery(ctx, "UpdateUser", query)
	defer func() { end(err) }()

	u, err := scanUser(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("user", id)
		}
		if field, ok := uniqueViolation(err); ok && upd.Username != nil {
			return nil, apperrors.AlreadyExists("user", field, *upd.Username)
		}
		return nil, fmt.Errorf("update user: %w", err)
	}

	return u, nil
}

// Delete removes a user from the database by their ID. The user's posts
// are removed by the foreign key cascade.
func (r *UserRepository) Delete(ctx context.Context, id string) (err error) {
	const query = `DELETE FROM users WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "DeleteUser", query)
	defer func() { end(err) }()

	ct, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("user", id)
	}

	return nil
}

// getOne runs a single-row lookup on column. column is always a constant
// chosen by the caller, never user input.
func (r *UserRepository) getOne(ctx context.Context, op, column string, value any) (_ *domain.User, err error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + column + ` = $1`

	ctx, end := database.TraceQuery(ctx, op, query)
	defer func() {
		if errors.Is(err, apperrors.ErrNotFound) {
			end(nil)
			return
		}
		end(err)
	}()

	u, err := scanUser(r.db.QueryRow(ctx, query, value))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("get user by %s: %w", column, err)
	}
	return u, nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.PasswordHash,
		&u.RefreshToken,
		&u.CreatedAt,
		&u.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &u, nil
}

// uniqueViolation reports whether err is a PostgreSQL unique constraint
// violation (SQLSTATE 23505) and which user column caused it.
func uniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code != "23505" {
			return "", false
		}
		if strings.Contains(pgErr.ConstraintName, "username") {
			return "username", true
		}
		return "email", true
	}

	msg := err.Error()
	if !strings.Contains(msg, "23505") {
		return "", false
	}
	if strings.Contains(msg, "username") {
		return "username", true
	}
	return "email", true
}

func fieldValue(u *domain.User, field string) string {
	if field == "username" {
		return u.Username
	}
	return u.Email
}
