package http

import (
	"log/slog"
	"net/http"

	"github.com/Shahil0511/OakMirror/internal/service"
	apperrors "github.com/Shahil0511/OakMirror/pkg/errors"
	"github.com/Shahil0511/OakMirror/pkg/httputil"
	"github.com/Shahil0511/OakMirror/pkg/middleware"
	"github.com/Shahil0511/OakMirror/pkg/pagination"
)

// UserHandler handles HTTP requests for user profile endpoints.
type UserHandler struct {
	service *service.AuthService
	logger  *slog.Logger
}

// NewUserHandler creates a new user HTTP handler.
func NewUserHandler(svc *service.AuthService, logger *slog.Logger) *UserHandler {
	return &UserHandler{service: svc, logger: logger}
}

// Me handles GET /api/users/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, r, apperrors.Unauthenticated("authentication required"), h.logger)
		return
	}

	user, err := h.service.GetProfile(r.Context(), identity.ID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, user)
}

// List handles GET /api/users
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.ListUsers(r.Context(), pagination.FromRequest(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WritePage(w, res.Items, res.Meta)
}
