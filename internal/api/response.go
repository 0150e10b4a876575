package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/victorivanov/huddle/internal/service"
)

// ErrorResponse is the standard error envelope.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error sends a JSON error response.
func Error(c echo.Context, status int, code, message string) error {
	return c.JSON(status, ErrorResponse{
		Error: ErrorDetail{Code: code, Message: message},
	})
}

// empty is the success body of operations that return nothing.
var empty = struct{}{}

// statusFor maps a service sentinel to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidLength),
		errors.Is(err, service.ErrInvalidKind),
		errors.Is(err, service.ErrOutOfRange),
		errors.Is(err, service.ErrNotActive),
		errors.Is(err, service.ErrInvalidTime),
		errors.Is(err, service.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrAlreadyInState):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// mapServiceError writes the error envelope for an error returned by a service.
func mapServiceError(c echo.Context, err error) error {
	var se *service.ServiceError
	if errors.As(err, &se) {
		return Error(c, statusFor(se), se.Code, se.Message)
	}
	c.Logger().Errorf("unhandled service error: %v", err)
	return Error(c, http.StatusInternalServerError, "INTERNAL", "internal server error")
}

func parseIDParam(c echo.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
