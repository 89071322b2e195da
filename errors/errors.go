package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound           = fmt.Errorf("not found")
	ErrForbidden          = fmt.Errorf("caller is not a member")
	ErrValidation         = fmt.Errorf("invalid payload")
	ErrStorageUnavailable = fmt.Errorf("storage unavailable")
	ErrUserAlreadyExists  = fmt.Errorf("user already exists")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrSessionBufferFull  = fmt.Errorf("session buffer full")
	ErrWorkerPanic        = fmt.Errorf("worker panic")
)

// MapToHTTPStatus translates a domain error into the status code returned
// by the HTTP layer. Anything unrecognized is a 500.
func MapToHTTPStatus(err error) int {
	switch {
	case stderrors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case stderrors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case stderrors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case stderrors.Is(err, ErrUserAlreadyExists):
		return http.StatusConflict
	case stderrors.Is(err, ErrInvalidCredentials):
		return http.StatusUnauthorized
	case stderrors.Is(err, ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
