// Package apperr defines the error categories shared by the domain services
// and the status codes the HTTP layer reports for them.
package apperr

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

var (
	ErrValidation     = errors.New("validation failed")
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict")
	ErrAuthentication = errors.New("authentication failed")
)

// HTTPStatus returns the status code for err. Unknown errors map to 500.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrAuthentication):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// IsClientError reports whether err belongs to one of the known categories.
func IsClientError(err error) bool {
	return HTTPStatus(err) < http.StatusInternalServerError
}

// ToHTTP converts a service error into an echo.HTTPError. Client errors keep
// their message; anything else is reported generically with err kept as the
// internal cause for logging.
func ToHTTP(err error) *echo.HTTPError {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		return echo.NewHTTPError(status, "internal server error").SetInternal(err)
	}
	return echo.NewHTTPError(status, err.Error())
}
