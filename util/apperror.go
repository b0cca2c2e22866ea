package util

import (
	"errors"
	"net/http"

	"gorm.io/gorm"
)

var (
	ErrNotFound        = errors.New("resource not found")
	ErrConflict        = errors.New("conflict")
	ErrValidation      = errors.New("invalid input")
	ErrForbidden       = errors.New("forbidden")
	ErrUnauthenticated = errors.New("could not validate credentials")
	ErrRateLimited     = errors.New("rate limit exceeded")
)

// StatusForError maps the error taxonomy to HTTP status codes.
// gorm.ErrRecordNotFound counts as ErrNotFound and gorm.ErrDuplicatedKey as
// ErrConflict.
func StatusForError(err error) int {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict), errors.Is(err, ErrValidation), errors.Is(err, gorm.ErrDuplicatedKey):
		return http.StatusBadRequest
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
