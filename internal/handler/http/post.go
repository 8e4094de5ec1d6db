package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Shahil0511/OakMirror/internal/domain"
	"github.com/Shahil0511/OakMirror/internal/service"
	apperrors "github.com/Shahil0511/OakMirror/pkg/errors"
	"github.com/Shahil0511/OakMirror/pkg/httputil"
	"github.com/Shahil0511/OakMirror/pkg/middleware"
	"github.com/Shahil0511/OakMirror/pkg/pagination"
	"github.com/Shahil0511/OakMirror/pkg/validator"
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

// --- Request DTOs ---

// CreatePostRequest is the JSON request body for creating a post.
type CreatePostRequest struct {
	Title    string   `json:"title" validate:"required,max=200"`
	Content  string   `json:"content" validate:"required,max=10000"`
	PostType string   `json:"postType" validate:"omitempty,oneof=general question review news"`
	Company  string   `json:"company" validate:"omitempty,max=100"`
	Industry string   `json:"industry" validate:"omitempty,max=100"`
	JobTitle string   `json:"jobTitle" validate:"omitempty,max=100"`
	Location string   `json:"location" validate:"omitempty,max=100"`
	Tags     []string `json:"tags" validate:"omitempty,max=10,dive,max=50"`
}

// UpdatePostRequest is the JSON request body for updating a post. Omitted
// fields are left unchanged.
type UpdatePostRequest struct {
	Title    *string   `json:"title" validate:"omitempty,min=1,max=200"`
	Content  *string   `json:"content" validate:"omitempty,min=1,max=10000"`
	PostType *string   `json:"postType" validate:"omitempty,oneof=general question review news"`
	Company  *string   `json:"company" validate:"omitempty,max=100"`
	Industry *string   `json:"industry" validate:"omitempty,max=100"`
	JobTitle *string   `json:"jobTitle" validate:"omitempty,max=100"`
	Location *string   `json:"location" validate:"omitempty,max=100"`
	Tags     *[]string `json:"tags" validate:"omitempty,max=10,dive,max=50"`
}

func (req UpdatePostRequest) toInput() service.UpdatePostInput {
	in := service.UpdatePostInput{
		Title:    req.Title,
		Content:  req.Content,
		Company:  req.Company,
		Industry: req.Industry,
		JobTitle: req.JobTitle,
		Location: req.Location,
		Tags:     req.Tags,
	}
	if req.PostType != nil {
		pt := domain.PostType(*req.PostType)
		in.PostType = &pt
	}
	return in
}

// --- Handlers ---

// Create handles POST /api/posts
func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}

	var req CreatePostRequest
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	post, err := h.service.Create(r.Context(), caller, service.CreatePostInput{
		Title:    req.Title,
		Content:  req.Content,
		PostType: domain.PostType(req.PostType),
		Company:  req.Company,
		Industry: req.Industry,
		JobTitle: req.JobTitle,
		Location: req.Location,
		Tags:     req.Tags,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusCreated, post)
}

// List handles GET /api/posts
func (h *PostHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.PostFilter{
		Company:  strings.TrimSpace(q.Get("company")),
		JobTitle: strings.TrimSpace(q.Get("jobTitle")),
		PostType: domain.PostType(strings.TrimSpace(q.Get("postType"))),
		Tags:     domain.ParseTags(q.Get("tags")),
	}

	res, err := h.service.List(r.Context(), filter, pagination.FromRequest(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WritePage(w, res.Items, res.Meta)
}

// Get handles GET /api/posts/{id}
func (h *PostHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	post, err := h.service.Get(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, post)
}

// Update handles PUT /api/posts/{id}
func (h *PostHandler) Update(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req UpdatePostRequest
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	post, err := h.service.Update(r.Context(), caller, id.String(), req.toInput())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, post)
}

// Delete handles DELETE /api/posts/{id}
func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), caller, id.String()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, map[string]string{"message": "post deleted"})
}

func (h *PostHandler) caller(w http.ResponseWriter, r *http.Request) (*middleware.Identity, bool) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, r, apperrors.Unauthenticated("authentication required"), h.logger)
		return nil, false
	}
	return identity, true
}
