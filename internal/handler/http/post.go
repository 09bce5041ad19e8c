package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/PostsGo/internal/service"
	"github.com/utafrali/PostsGo/pkg/httputil"
	"github.com/utafrali/PostsGo/pkg/middleware"
	"github.com/utafrali/PostsGo/pkg/pagination"
	"github.com/utafrali/PostsGo/pkg/validator"
)

// PostHandler handles HTTP requests for post endpoints.
type PostHandler struct {
	service *service.PostService
	logger  *slog.Logger
}

// NewPostHandler creates a new post HTTP handler.
func NewPostHandler(svc *service.PostService, logger *slog.Logger) *PostHandler {
	return &PostHandler{service: svc, logger: logger}
}

// List handles GET /api/posts
func (h *PostHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := h.service.ListPosts(r.Context(), pagination.FromRequest(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, page)
}

// Mine handles GET /api/posts/me
func (h *PostHandler) Mine(w http.ResponseWriter, r *http.Request) {
	authorID := middleware.UserIDFromContext(r.Context())
	page, err := h.service.ListPostsByAuthor(r.Context(), authorID, pagination.FromRequest(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, page)
}

// Get handles GET /api/posts/{id}
func (h *PostHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	post, err := h.service.GetPost(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, post)
}

// Create handles POST /api/posts
func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.CreatePostInput
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	post, err := h.service.CreatePost(r.Context(), middleware.UserIDFromContext(r.Context()), req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusCreated, post)
}

// Update handles PUT /api/posts/{id}
func (h *PostHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req service.UpdatePostInput
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	post, err := h.service.UpdatePost(r.Context(), middleware.UserIDFromContext(r.Context()), id.String(), req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, post)
}

// Delete handles DELETE /api/posts/{id}
func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.service.DeletePost(r.Context(), middleware.UserIDFromContext(r.Context()), id.String()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
