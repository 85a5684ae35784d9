// AngelaMos | 2026
// handler.go

package user

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/identity-api/internal/core"
	"github.com/carterperez-dev/identity-api/internal/middleware"
)

type Handler struct {
	service   *Service
	validator *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Route("/users", func(r chi.Router) {
		r.Use(authenticator)

		r.Get("/me", h.GetMe)
		r.Put("/me", h.UpdateMe)
		r.Put("/update-password", h.UpdatePassword)
	})
}

// RegisterAdminRoutes mounts the user management endpoints behind the admin
// guard.
func (h *Handler) RegisterAdminRoutes(
	r chi.Router,
	authenticator, adminOnly func(http.Handler) http.Handler,
) {
	r.Route("/admin/users", func(r chi.Router) {
		r.Use(authenticator)
		r.Use(adminOnly)

		r.Get("/", h.ListUsers)
		r.Delete("/{userID}", h.DeleteUser)
		r.Put("/{userID}/roles", h.UpdateRoles)
	})
}

func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.GetMe(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		h.writeError(w, err)
		return
	}

	core.OK(w, ProfileResponse{User: ToUserResponse(user)})
}

func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	user, err := h.service.UpdateMe(
		r.Context(),
		middleware.GetUserID(r.Context()),
		req,
	)
	if err != nil {
		h.writeError(w, err)
		return
	}

	core.OK(w, ProfileResponse{User: ToUserResponse(user)})
}

func (h *Handler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	err := h.service.ChangePassword(
		r.Context(),
		middleware.GetUserID(r.Context()),
		req.CurrentPassword,
		req.NewPassword,
	)
	if err != nil {
		if errors.Is(err, ErrWrongPassword) {
			core.JSONError(
				w,
				core.UnauthorizedError("Your current password is incorrect"),
			)
			return
		}
		h.writeError(w, err)
		return
	}

	core.OK(w, MessageResponse{Message: "Password updated successfully."})
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	params := parseListParams(r)

	users, total, err := h.service.ListUsers(r.Context(), params)
	if err != nil {
		h.writeError(w, err)
		return
	}

	core.OK(w, ListUsersResponse{
		Total:      total,
		Count:      len(users),
		Pagination: core.NewPagination(params.Page, params.Limit, total),
		Users:      ToUserResponseList(users),
	})
}

func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	targetID := chi.URLParam(r, "userID")

	err := h.service.DeleteUser(
		r.Context(),
		middleware.GetUserID(r.Context()),
		targetID,
	)
	if err != nil {
		if errors.Is(err, core.ErrSelfAction) {
			core.JSONError(
				w,
				core.SelfActionError("You cannot delete your own account."),
			)
			return
		}
		h.writeError(w, err)
		return
	}

	core.NoContent(w)
}

func (h *Handler) UpdateRoles(w http.ResponseWriter, r *http.Request) {
	targetID := chi.URLParam(r, "userID")

	var req UpdateRolesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	user, err := h.service.UpdateUserRoles(
		r.Context(),
		middleware.GetUserID(r.Context()),
		targetID,
		Roles(req.Roles),
	)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrSelfAction):
			core.JSONError(
				w,
				core.SelfActionError("You cannot change your own roles."),
			)
		case errors.Is(err, core.ErrInvalidInput):
			core.BadRequest(w, "invalid role set")
		default:
			h.writeError(w, err)
		}
		return
	}

	core.OK(w, ProfileResponse{User: ToUserResponse(user)})
}

// writeError maps the shared sentinels; anything unrecognized is a 500.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		core.JSONError(w, core.NotFoundError("user"))
	case errors.Is(err, core.ErrDuplicateKey):
		core.JSONError(w, core.DuplicateError("email"))
	case errors.Is(err, core.ErrUnauthorized):
		core.JSONError(w, core.UnauthorizedError(""))
	default:
		core.InternalServerError(w, err)
	}
}

func parseListParams(r *http.Request) ListUsersParams {
	query := r.URL.Query()

	page, _ := strconv.Atoi(query.Get("page"))
	limit, _ := strconv.Atoi(query.Get("limit"))

	params := ListUsersParams{
		Page:   page,
		Limit:  limit,
		Search: strings.TrimSpace(query.Get("search")),
	}
	params.Normalize()

	return params
}
