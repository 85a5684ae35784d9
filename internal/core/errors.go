// AngelaMos | 2026
// errors.go

package core

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors shared across services. Handlers translate only the ones
// they understand into specific statuses; everything else is a logged 500.
var (
	ErrNotFound      = errors.New("resource not found")
	ErrDuplicateKey  = errors.New("duplicate key")
	ErrInvalidInput  = errors.New("invalid input")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrNotVerified   = errors.New("account not verified")
	ErrSelfAction    = errors.New("self-targeted admin action")
	ErrTokenInvalid  = errors.New("token invalid")
	ErrOneTimeToken  = errors.New("token invalid or expired")
	ErrEmailDelivery = errors.New("email delivery failed")
)

type AppError struct {
	Err     error
	Message string
	Status  int
	Code    string
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(err error, message string, status int, code string) *AppError {
	return &AppError{
		Err:     err,
		Message: message,
		Status:  status,
		Code:    code,
	}
}

func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

func UnauthorizedError(message string) *AppError {
	if message == "" {
		message = "authentication required"
	}
	return NewAppError(ErrUnauthorized, message, http.StatusUnauthorized, "UNAUTHORIZED")
}

func ForbiddenError(message string) *AppError {
	if message == "" {
		message = "insufficient permissions"
	}
	return NewAppError(ErrForbidden, message, http.StatusForbidden, "FORBIDDEN")
}

func NotVerifiedError() *AppError {
	return NewAppError(
		ErrNotVerified,
		"Please verify your email before logging in.",
		http.StatusForbidden,
		"NOT_VERIFIED",
	)
}

func DuplicateError(field string) *AppError {
	return NewAppError(
		ErrDuplicateKey,
		fmt.Sprintf("A user with this %s already exists.", field),
		http.StatusConflict,
		"CONFLICT",
	)
}

func NotFoundError(resource string) *AppError {
	return NewAppError(
		ErrNotFound,
		fmt.Sprintf("No %s found with that ID", resource),
		http.StatusNotFound,
		"NOT_FOUND",
	)
}

func SelfActionError(message string) *AppError {
	return NewAppError(ErrSelfAction, message, http.StatusBadRequest, "SELF_ACTION")
}

// TokenInvalidError covers every signed-token verification failure. Expiry,
// tampering and malformed input are deliberately indistinguishable here.
func TokenInvalidError() *AppError {
	return NewAppError(
		ErrTokenInvalid,
		"invalid or expired token",
		http.StatusUnauthorized,
		"TOKEN_INVALID",
	)
}

// OneTimeTokenError covers verification and reset token failures. A token
// that expired and a token that never existed produce the same error.
func OneTimeTokenError() *AppError {
	return NewAppError(
		ErrOneTimeToken,
		"Token is invalid or has expired.",
		http.StatusBadRequest,
		"TOKEN_INVALID_OR_EXPIRED",
	)
}

func EmailDeliveryError() *AppError {
	return NewAppError(
		ErrEmailDelivery,
		"Email could not be sent. Please try again later.",
		http.StatusInternalServerError,
		"EMAIL_DELIVERY_FAILED",
	)
}
