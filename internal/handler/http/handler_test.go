package http

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/utafrali/PostsGo/internal/auth"
	"github.com/utafrali/PostsGo/internal/domain"
	"github.com/utafrali/PostsGo/internal/event"
	"github.com/utafrali/PostsGo/internal/repository"
	"github.com/utafrali/PostsGo/internal/service"
	apperrors "github.com/utafrali/PostsGo/pkg/errors"
	"github.com/utafrali/PostsGo/pkg/health"
	"github.com/utafrali/PostsGo/pkg/httputil"
	"github.com/utafrali/PostsGo/pkg/middleware"
	"github.com/utafrali/PostsGo/pkg/pagination"
)

// --- In-memory store ---

// memStore backs both fake repositories so deleting a user cascades to
// their posts the way the foreign key does in Postgres.
type memStore struct {
	mu    sync.Mutex
	users map[string]domain.User
	posts map[string]domain.Post
}

func newMemStore() *memStore {
	return &memStore{
		users: make(map[string]domain.User),
		posts: make(map[string]domain.Post),
	}
}

type memUserRepository struct{ s *memStore }

func (r memUserRepository) Create(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == user.Email {
			return apperrors.AlreadyExists("user", "email", user.Email)
		}
		if u.Username == user.Username {
			return apperrors.AlreadyExists("user", "username", user.Username)
		}
	}
	r.s.users[user.ID] = *user
	return nil
}

func (r memUserRepository) find(match func(domain.User) bool) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if match(u) {
			return &u, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r memUserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return u.ID == id })
}

func (r memUserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return u.Email == email })
}

func (r memUserRepository) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return u.Username == username })
}

func (r memUserRepository) GetByRefreshToken(_ context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, apperrors.ErrNotFound
	}
	return r.find(func(u domain.User) bool { return u.RefreshToken == token })
}

func (r memUserRepository) List(_ context.Context, params pagination.Params) ([]domain.User, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	all := make([]domain.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		all = append(all, u)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Username < all[j].Username })
	return window(all, params), len(all), nil
}

func (r memUserRepository) Update(_ context.Context, id string, upd domain.UserUpdate) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, apperrors.NotFound("user", id)
	}
	if upd.Username != nil {
		for _, other := range r.s.users {
			if other.ID != id && other.Username == *upd.Username {
				return nil, apperrors.AlreadyExists("user", "username", *upd.Username)
			}
		}
		u.Username = *upd.Username
	}
	if upd.PasswordHash != nil {
		u.PasswordHash = *upd.PasswordHash
	}
	if upd.RefreshToken != nil {
		u.RefreshToken = *upd.RefreshToken
	}
	u.UpdatedAt = time.Now().UTC()
	r.s.users[id] = u
	return &u, nil
}

func (r memUserRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[id]; !ok {
		return apperrors.NotFound("user", id)
	}
	delete(r.s.users, id)
	for pid, p := range r.s.posts {
		if p.AuthorID == id {
			delete(r.s.posts, pid)
		}
	}
	return nil
}

type memPostRepository struct{ s *memStore }

func (r memPostRepository) Create(_ context.Context, post *domain.Post) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	author, ok := r.s.users[post.AuthorID]
	if !ok {
		return apperrors.NotFound("user", post.AuthorID)
	}
	post.AuthorUsername = author.Username
	r.s.posts[post.ID] = *post
	return nil
}

func (r memPostRepository) GetByID(_ context.Context, id string) (*domain.Post, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.posts[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &p, nil
}

func (r memPostRepository) List(_ context.Context, filter repository.PostFilter, params pagination.Params) ([]domain.Post, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var all []domain.Post
	for _, p := range r.s.posts {
		if filter.AuthorID == "" || p.AuthorID == filter.AuthorID {
			all = append(all, p)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	return window(all, params), len(all), nil
}

func (r memPostRepository) Update(_ context.Context, id string, upd domain.PostUpdate) (*domain.Post, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.posts[id]
	if !ok {
		return nil, apperrors.NotFound("post", id)
	}
	if upd.Content != nil {
		p.Content = *upd.Content
	}
	p.UpdatedAt = time.Now().UTC()
	r.s.posts[id] = p
	return &p, nil
}

func (r memPostRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.posts[id]; !ok {
		return apperrors.NotFound("post", id)
	}
	delete(r.s.posts, id)
	return nil
}

func window[T any](all []T, params pagination.Params) []T {
	if params.Offset >= len(all) {
		return nil
	}
	end := params.Offset + params.PerPage
	if end > len(all) {
		end = len(all)
	}
	return all[params.Offset:end]
}

// --- Test server ---

const (
	testAccessTTL  = 15 * time.Minute
	testRefreshTTL = 24 * time.Hour
)

type testServer struct {
	handler  http.Handler
	store    *memStore
	jwt      *auth.JWTManager
	registry *prometheus.Registry
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	jwtManager, err := auth.NewJWTManager("test-access-secret", "test-refresh-secret", testAccessTTL, testRefreshTTL)
	require.NoError(t, err)

	logger := newTestLogger()
	store := newMemStore()
	users := memUserRepository{s: store}
	posts := memPostRepository{s: store}
	hasher := auth.NewBcryptHasher(bcrypt.MinCost)
	publisher := event.NoopPublisher{}
	reg := prometheus.NewRegistry()

	authSvc := service.NewAuthService(users, hasher, jwtManager, publisher, service.NewMetrics(reg), logger)
	userSvc := service.NewUserService(users, hasher, nil, publisher, logger)
	postSvc := service.NewPostService(posts, nil, publisher, logger)

	router := NewRouter(
		authSvc, userSvc, postSvc, jwtManager,
		health.NewHandler(), reg, middleware.NewHTTPMetrics(reg, "posts-api"),
		RouterConfig{
			ServiceName:    "posts-api",
			AllowedOrigins: []string{"http://localhost:5173"},
			Cookies: CookieConfig{
				SameSite:   http.SameSiteLaxMode,
				AccessTTL:  testAccessTTL,
				RefreshTTL: testRefreshTTL,
			},
		},
		logger,
	)

	return &testServer{handler: router, store: store, jwt: jwtManager, registry: reg}
}

type request struct {
	method  string
	path    string
	body    any
	bearer  string
	cookies []*http.Cookie
}

func (s *testServer) do(t *testing.T, req request) *httptest.ResponseRecorder {
	t.Helper()
	return s.doRaw(t, req, "application/json")
}

// doRaw sends req with the given Content-Type whenever it has a body.
func (s *testServer) doRaw(t *testing.T, req request, contentType string) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	if req.body != nil {
		switch b := req.body.(type) {
		case string:
			body.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&body).Encode(b))
		}
	}

	r := httptest.NewRequest(req.method, req.path, &body)
	if req.body != nil {
		r.Header.Set("Content-Type", contentType)
	}
	if req.bearer != "" {
		r.Header.Set("Authorization", "Bearer "+req.bearer)
	}
	for _, c := range req.cookies {
		r.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, r)
	return rec
}

// session is what a browser would hold after register or login.
type session struct {
	userID  string
	access  string
	refresh string
}

func (s session) refreshCookie() *http.Cookie {
	return &http.Cookie{Name: RefreshTokenCookie, Value: s.refresh}
}

func (s *testServer) register(t *testing.T, username, email, password string) session {
	t.Helper()
	rec := s.do(t, request{
		method: http.MethodPost,
		path:   "/api/auth/register",
		body:   map[string]string{"username": username, "email": email, "password": password},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return sessionFrom(t, rec)
}

func (s *testServer) login(t *testing.T, email, password string) session {
	t.Helper()
	rec := s.do(t, request{
		method: http.MethodPost,
		path:   "/api/auth/login",
		body:   map[string]string{"email": email, "password": password},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return sessionFrom(t, rec)
}

func sessionFrom(t *testing.T, rec *httptest.ResponseRecorder) session {
	t.Helper()
	var result domain.AuthResult
	decodeData(t, rec, &result)

	sess := session{userID: result.User.ID}
	if c := findCookie(rec, AccessTokenCookie); c != nil {
		sess.access = c.Value
	}
	if c := findCookie(rec, RefreshTokenCookie); c != nil {
		sess.refresh = c.Value
	}
	require.NotEmpty(t, sess.access)
	require.NotEmpty(t, sess.refresh)
	return sess
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	require.NoError(t, json.Unmarshal(env.Data, dst))
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) *httputil.ErrorResponse {
	t.Helper()
	var env httputil.Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	require.NotNil(t, env.Error, "expected an error envelope")
	return env.Error
}
