package http

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/PostsGo/internal/domain"
	"github.com/utafrali/PostsGo/pkg/pagination"
)

func TestUserList_Public(t *testing.T) {
	srv := newTestServer(t)
	srv.register(t, "alice", "alice@example.com", "s3cretpass")
	srv.register(t, "bob", "bob@example.com", "s3cretpass")
	srv.register(t, "carol", "carol@example.com", "s3cretpass")

	rec := srv.do(t, request{method: http.MethodGet, path: "/api/users?page=1&per_page=2"})
	require.Equal(t, http.StatusOK, rec.Code)

	var page pagination.Result[domain.UserView]
	decodeData(t, rec, &page)
	assert.Equal(t, 3, page.TotalCount)
	assert.Len(t, page.Data, 2)
	assert.Equal(t, "alice", page.Data[0].Username)
	assert.True(t, page.HasNext)
	assert.NotContains(t, rec.Body.String(), "refresh")
}

func TestUserGetByUsername(t *testing.T) {
	srv := newTestServer(t)
	sess := srv.register(t, "alice", "alice@example.com", "s3cretpass")

	rec := srv.do(t, request{method: http.MethodGet, path: "/api/users/username/alice"})
	require.Equal(t, http.StatusOK, rec.Code)
	var user domain.UserView
	decodeData(t, rec, &user)
	assert.Equal(t, sess.userID, user.ID)

	rec = srv.do(t, request{method: http.MethodGet, path: "/api/users/username/nobody"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = srv.do(t, request{method: http.MethodGet, path: "/api/users/username/ab"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUserGet(t *testing.T) {
	srv := newTestServer(t)
	sess := srv.register(t, "alice", "alice@example.com", "s3cretpass")

	rec := srv.do(t, request{method: http.MethodGet, path: "/api/users/" + sess.userID})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = srv.do(t, request{method: http.MethodGet, path: "/api/users/not-a-uuid"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_PARAMETER", decodeError(t, rec).Code)

	rec = srv.do(t, request{method: http.MethodGet, path: "/api/users/550e8400-e29b-41d4-a716-446655440000"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUserMe(t *testing.T) {
	srv := newTestServer(t)
	sess := srv.register(t, "alice", "alice@example.com", "s3cretpass")

	rec := srv.do(t, request{method: http.MethodGet, path: "/api/users/me", bearer: sess.access})
	require.Equal(t, http.StatusOK, rec.Code)
	var user domain.UserView
	decodeData(t, rec, &user)
	assert.Equal(t, "alice", user.Username)

	rec = srv.do(t, request{method: http.MethodGet, path: "/api/users/me"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUserUpdateMe_Username(t *testing.T) {
	srv := newTestServer(t)
	sess := srv.register(t, "alice", "alice@example.com", "s3cretpass")

	rec := srv.do(t, request{
		method: http.MethodPut,
		path:   "/api/users/me",
		bearer: sess.access,
		body:   map[string]string{"username": "alicia"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var user domain.UserView
	decodeData(t, rec, &user)
	assert.Equal(t, "alicia", user.Username)
	assert.Equal(t, sess.refresh, srv.store.users[sess.userID].RefreshToken)
}

func TestUserUpdate_PasswordEndsSession(t *testing.T) {
	srv := newTestServer(t)
	sess := srv.register(t, "alice", "alice@example.com", "s3cretpass")

	rec := srv.do(t, request{
		method: http.MethodPut,
		path:   "/api/users/" + sess.userID,
		bearer: sess.access,
		body:   map[string]string{"password": "n3wpassword"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Empty(t, srv.store.users[sess.userID].RefreshToken)

	rec = srv.do(t, request{
		method:  http.MethodPost,
		path:    "/api/auth/refresh-token",
		cookies: []*http.Cookie{sess.refreshCookie()},
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	srv.login(t, "alice@example.com", "n3wpassword")
}

func TestUserUpdate_Errors(t *testing.T) {
	srv := newTestServer(t)
	alice := srv.register(t, "alice", "alice@example.com", "s3cretpass")
	bob := srv.register(t, "bob", "bob@example.com", "s3cretpass")

	tests := []struct {
		name   string
		path   string
		body   any
		status int
	}{
		{"other user", "/api/users/" + bob.userID, map[string]string{"username": "mallory"}, http.StatusForbidden},
		{"taken username", "/api/users/me", map[string]string{"username": "bob"}, http.StatusConflict},
		{"empty update", "/api/users/me", map[string]string{}, http.StatusBadRequest},
		{"short password", "/api/users/me", map[string]string{"password": "short"}, http.StatusBadRequest},
		{"unknown field", "/api/users/me", map[string]string{"email": "x@example.com"}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := srv.do(t, request{method: http.MethodPut, path: tt.path, bearer: alice.access, body: tt.body})
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestUserDelete(t *testing.T) {
	srv := newTestServer(t)
	alice := srv.register(t, "alice", "alice@example.com", "s3cretpass")
	bob := srv.register(t, "bob", "bob@example.com", "s3cretpass")

	rec := srv.do(t, request{method: http.MethodDelete, path: "/api/users/" + bob.userID, bearer: alice.access})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = srv.do(t, request{
		method: http.MethodPost,
		path:   "/api/posts",
		bearer: alice.access,
		body:   map[string]string{"content": "hello"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = srv.do(t, request{method: http.MethodDelete, path: "/api/users/" + alice.userID, bearer: alice.access})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.NotContains(t, srv.store.users, alice.userID)
	assert.Empty(t, srv.store.posts)

	rec = srv.do(t, request{method: http.MethodDelete, path: "/api/users/" + alice.userID, bearer: alice.access})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = srv.do(t, request{method: http.MethodDelete, path: "/api/users/" + bob.userID})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
