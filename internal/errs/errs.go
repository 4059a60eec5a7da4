// Package errs defines sentinel errors shared across layers.
package errs

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrAuthRequired      = errors.New("mailbox authentication required")
	ErrVerification      = errors.New("push verification failed")
	ErrCorruptState      = errors.New("corrupt stored state")
	ErrIllegalTransition = errors.New("illegal job transition")
	ErrCursorExpired     = errors.New("history cursor expired")
	ErrTransientProvider = errors.New("transient provider error")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrInvalidArgument   = errors.New("invalid argument")
)

// HTTP error codes returned in {success:false, error, code} bodies.
const (
	CodeAuthRequired       = "AUTH_REQUIRED"
	CodeNotFound           = "NOT_FOUND"
	CodeVerificationFailed = "VERIFICATION_FAILED"
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeSyncFailed         = "SYNC_FAILED"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeInternal           = "INTERNAL"
)

// HTTPStatus maps an error to a response status and code.
func HTTPStatus(err error) (int, string) {
	switch {
	case errors.Is(err, ErrAuthRequired):
		return http.StatusUnauthorized, CodeAuthRequired
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, CodeUnauthorized
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, ErrVerification):
		return http.StatusForbidden, CodeVerificationFailed
	case errors.Is(err, ErrInvalidArgument):
		return http.StatusBadRequest, CodeInvalidRequest
	case errors.Is(err, ErrTransientProvider), errors.Is(err, ErrCursorExpired):
		return http.StatusBadGateway, CodeSyncFailed
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}
