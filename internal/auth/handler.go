// AngelaMos | 2026
// handler.go

package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/identity-api/internal/config"
	"github.com/carterperez-dev/identity-api/internal/core"
)

const refreshCookieName = "refresh_token"

type Handler struct {
	service   *Service
	validator *validator.Validate

	cookieDomain  string
	secureCookies bool
	refreshTTL    time.Duration
}

func NewHandler(
	service *Service,
	cfg config.AuthConfig,
	production bool,
) *Handler {
	return &Handler{
		service:       service,
		validator:     validator.New(validator.WithRequiredStructEnabled()),
		cookieDomain:  cfg.CookieDomain,
		secureCookies: production,
		refreshTTL:    cfg.RefreshTokenExpire,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Get("/verify-email", h.VerifyEmail)
		r.Post("/login", h.Login)
		r.Post("/refresh-token", h.Refresh)
		r.Post("/logout", h.Logout)
		r.Post("/forgot-password", h.ForgotPassword)
		r.Post("/reset-password", h.ResetPassword)
	})
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	account, err := h.service.Register(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrDuplicateKey):
			core.JSONError(w, core.DuplicateError("email"))
		case errors.Is(err, core.ErrEmailDelivery):
			core.JSONError(w, core.EmailDeliveryError())
		default:
			core.InternalServerError(w, err)
		}
		return
	}

	core.Created(w, RegisterResponse{
		Message: "Registration successful. Please check your email to " +
			"verify your account.",
		User: toAccountResponse(account),
	})
}

// VerifyEmail consumes the token from the emailed link's query string.
func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		core.BadRequest(w, "token is required")
		return
	}

	if _, err := h.service.VerifyEmail(r.Context(), token); err != nil {
		if errors.Is(err, core.ErrOneTimeToken) {
			core.JSONError(w, core.OneTimeTokenError())
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, MessageResponse{
		Message: "Email verified successfully. You can now log in.",
	})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	account, accessToken, refreshToken, err := h.service.Login(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrUnauthorized):
			core.JSONError(w, core.UnauthorizedError("Invalid credentials"))
		case errors.Is(err, core.ErrNotVerified):
			core.JSONError(w, core.NotVerifiedError())
		default:
			core.InternalServerError(w, err)
		}
		return
	}

	h.setRefreshCookie(w, refreshToken)

	core.OK(w, LoginResponse{
		Message:     "Logged in successfully.",
		AccessToken: accessToken,
		User:        toAccountResponse(account),
	})
}

// Refresh exchanges the cookie-borne refresh token and rotates the cookie.
// A missing cookie is a 401; a token that fails verification is a 403,
// matching the split between "not logged in" and "presented bad
// credentials".
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(refreshCookieName)
	if err != nil || cookie.Value == "" {
		core.JSONError(w, core.UnauthorizedError("refresh token missing"))
		return
	}

	accessToken, refreshToken, err := h.service.Refresh(r.Context(), cookie.Value)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrTokenInvalid):
			h.clearRefreshCookie(w)
			core.JSONError(w, core.NewAppError(
				core.ErrTokenInvalid,
				"invalid or expired refresh token",
				http.StatusForbidden,
				"TOKEN_INVALID",
			))
		case errors.Is(err, core.ErrUnauthorized):
			h.clearRefreshCookie(w)
			core.JSONError(w, core.UnauthorizedError("user not found"))
		default:
			core.InternalServerError(w, err)
		}
		return
	}

	h.setRefreshCookie(w, refreshToken)

	core.OK(w, RefreshResponse{AccessToken: accessToken})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.clearRefreshCookie(w)
	core.OK(w, MessageResponse{Message: "Logged out successfully."})
}

// ForgotPassword answers identically whether or not the email matches an
// account. Even a delivery failure stays behind the generic response, so
// SMTP trouble never turns into an account oracle.
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	if err := h.service.ForgotPassword(r.Context(), req.Email); err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, MessageResponse{
		Message: "If an account with that email exists, a password reset " +
			"link has been sent.",
	})
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	if _, err := h.service.ResetPassword(
		r.Context(),
		req.Token,
		req.NewPassword,
	); err != nil {
		if errors.Is(err, core.ErrOneTimeToken) {
			core.JSONError(w, core.OneTimeTokenError())
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, MessageResponse{
		Message: "Password reset successful. You can now log in.",
	})
}

func (h *Handler) setRefreshCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    token,
		Path:     "/",
		Domain:   h.cookieDomain,
		MaxAge:   int(h.refreshTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *Handler) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.cookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteStrictMode,
	})
}
