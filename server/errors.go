package server

import (
	"net/http"

	"github.com/teranos/searchq/errors"
)

// statusFor maps sentinel errors to HTTP status codes
func statusFor(err error, fallback int) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.IsNotFoundError(err):
		return http.StatusNotFound
	case errors.IsInvalidRequestError(err):
		return http.StatusBadRequest
	case errors.Is(err, errors.ErrServiceUnavailable):
		return http.StatusServiceUnavailable
	default:
		return fallback
	}
}
