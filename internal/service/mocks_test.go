package service

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/utafrali/PostsGo/internal/auth"
	"github.com/utafrali/PostsGo/internal/domain"
	"github.com/utafrali/PostsGo/internal/repository"
	"github.com/utafrali/PostsGo/pkg/pagination"
)

// --- Mock User Repository ---

type mockUserRepository struct {
	mock.Mock
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) GetByRefreshToken(ctx context.Context, token string) (*domain.User, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) List(ctx context.Context, params pagination.Params) ([]domain.User, int, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.User), args.Int(1), args.Error(2)
}

func (m *mockUserRepository) Update(ctx context.Context, id string, upd domain.UserUpdate) (*domain.User, error) {
	args := m.Called(ctx, id, upd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// --- Mock Post Repository ---

type mockPostRepository struct {
	mock.Mock
}

func (m *mockPostRepository) Create(ctx context.Context, post *domain.Post) error {
	args := m.Called(ctx, post)
	return args.Error(0)
}

func (m *mockPostRepository) GetByID(ctx context.Context, id string) (*domain.Post, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Post), args.Error(1)
}

func (m *mockPostRepository) List(ctx context.Context, filter repository.PostFilter, params pagination.Params) ([]domain.Post, int, error) {
	args := m.Called(ctx, filter, params)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.Post), args.Int(1), args.Error(2)
}

func (m *mockPostRepository) Update(ctx context.Context, id string, upd domain.PostUpdate) (*domain.Post, error) {
	args := m.Called(ctx, id, upd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Post), args.Error(1)
}

func (m *mockPostRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// --- Mock Event Publisher ---

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishUserRegistered(ctx context.Context, user *domain.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *mockPublisher) PublishUserDeleted(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *mockPublisher) PublishPostCreated(ctx context.Context, post *domain.Post) error {
	return m.Called(ctx, post).Error(0)
}

func (m *mockPublisher) PublishPostUpdated(ctx context.Context, post *domain.Post) error {
	return m.Called(ctx, post).Error(0)
}

func (m *mockPublisher) PublishPostDeleted(ctx context.Context, post *domain.Post) error {
	return m.Called(ctx, post).Error(0)
}

// --- Mock Post Cache ---

type mockPostCache struct {
	mock.Mock
}

func (m *mockPostCache) Get(ctx context.Context, params pagination.Params) (*pagination.Result[domain.Post], error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pagination.Result[domain.Post]), args.Error(1)
}

func (m *mockPostCache) Set(ctx context.Context, params pagination.Params, page pagination.Result[domain.Post]) error {
	return m.Called(ctx, params, page).Error(0)
}

func (m *mockPostCache) Invalidate(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// --- Mock Token Manager ---

type mockTokenManager struct {
	mock.Mock
}

func (m *mockTokenManager) GenerateAccessToken(userID string) (string, error) {
	args := m.Called(userID)
	return args.String(0), args.Error(1)
}

func (m *mockTokenManager) GenerateRefreshToken(userID string) (string, error) {
	args := m.Called(userID)
	return args.String(0), args.Error(1)
}

func (m *mockTokenManager) ValidateRefreshToken(token string) (*auth.Claims, error) {
	args := m.Called(token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.Claims), args.Error(1)
}

// --- Test Helpers ---

const (
	testAccessSecret  = "test-access-secret-at-least-32-chars!!"
	testRefreshSecret = "test-refresh-secret-at-least-32-chars!"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestJWTManager(t *testing.T) *auth.JWTManager {
	t.Helper()
	m, err := auth.NewJWTManager(testAccessSecret, testRefreshSecret, 15*time.Minute, 24*time.Hour)
	require.NoError(t, err)
	return m
}

func newTestHasher() *auth.BcryptHasher {
	return auth.NewBcryptHasher(bcrypt.MinCost)
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := newTestHasher().Hash(password)
	require.NoError(t, err)
	return hash
}

func ptr[T any](v T) *T {
	return &v
}
