package httputil

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/utafrali/PostsGo/pkg/errors"
	"github.com/utafrali/PostsGo/pkg/logger"
	"github.com/utafrali/PostsGo/pkg/validator"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestWriteData_Envelope(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteData(rec, http.StatusCreated, map[string]string{"id": "p-1"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var raw map[string]json.RawMessage
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&raw))
	assert.Contains(t, string(raw["data"]), "p-1")
	_, hasError := raw["error"]
	assert.False(t, hasError)
}

func TestWriteError_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"app not found", apperrors.NotFound("post", "p-1"), http.StatusNotFound, "NOT_FOUND"},
		{"sentinel not found", apperrors.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"wrapped conflict", fmt.Errorf("create: %w", apperrors.ErrAlreadyExists), http.StatusConflict, "ALREADY_EXISTS"},
		{"forbidden", apperrors.Forbidden("invalid refresh token"), http.StatusForbidden, "FORBIDDEN"},
		{"sentinel forbidden", apperrors.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
		{"unauthorized", apperrors.Unauthorized("missing token"), http.StatusUnauthorized, "UNAUTHORIZED"},
		{"bad request", apperrors.InvalidInput("invalid user id"), http.StatusBadRequest, "INVALID_INPUT"},
		{"unknown", fmt.Errorf("connection reset"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/test", nil)

			WriteError(rec, req, tt.err, testLogger())

			assert.Equal(t, tt.status, rec.Code)
			resp := decode(t, rec)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestWriteError_InternalHidesCause(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)

	WriteError(rec, req, fmt.Errorf("password hash column missing"), testLogger())

	resp := decode(t, rec)
	assert.Equal(t, "an internal error occurred", resp.Error.Message)
}

func TestWriteError_ConflictIncludesField(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/test", nil)

	WriteError(rec, req, apperrors.AlreadyExists("user", "email", "a@b.com"), testLogger())

	resp := decode(t, rec)
	require.NotNil(t, resp.Error)
	assert.Contains(t, resp.Error.Fields, "email")
}

func TestWriteError_ValidationError(t *testing.T) {
	type form struct {
		Email string `json:"email" validate:"required,email"`
	}
	err := validator.Validate(form{Email: "nope"})
	require.Error(t, err)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/test", nil)
	WriteError(rec, req, fmt.Errorf("register: %w", err), testLogger())

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode(t, rec)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
	assert.Contains(t, resp.Error.Fields, "email")
}

func TestWriteError_IncludesRequestID(t *testing.T) {
	rec := httptest.NewRecorder()
	ctx := logger.WithCorrelationID(context.Background(), "corr-123")
	req := httptest.NewRequest(http.MethodGet, "/test", nil).WithContext(ctx)

	WriteError(rec, req, apperrors.ErrNotFound, testLogger())

	resp := decode(t, rec)
	assert.Equal(t, "corr-123", resp.Error.RequestID)
}

func TestWriteValidationError_DecodeFailure(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/test", nil)
	WriteValidationError(rec, req, fmt.Errorf("decode request body: unexpected EOF"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode(t, rec)
	assert.Equal(t, "INVALID_INPUT", resp.Error.Code)
}

func TestParseUUID(t *testing.T) {
	rec := httptest.NewRecorder()
	id, ok := ParseUUID(rec, "550E8400-E29B-41D4-A716-446655440000")
	assert.True(t, ok)
	assert.Equal(t, "550e8400-e29b-41d4-a716-446655440000", id.String())

	rec = httptest.NewRecorder()
	_, ok = ParseUUID(rec, "not-a-uuid")
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_PARAMETER", decode(t, rec).Error.Code)
}
