package service

import "errors"

var (
	ErrInvalidLength  = errors.New("invalid length")
	ErrInvalidKind    = errors.New("invalid kind")
	ErrNotFound       = errors.New("not found")
	ErrForbidden      = errors.New("forbidden")
	ErrAlreadyInState = errors.New("already in state")
	ErrOutOfRange     = errors.New("out of range")
	ErrNotActive      = errors.New("not active")
	ErrInvalidTime    = errors.New("invalid time")
	ErrBadRequest     = errors.New("bad request")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInternal       = errors.New("internal")
)

// ServiceError wraps a sentinel error with a specific code and message for the handler to use.
type ServiceError struct {
	Err     error
	Code    string
	Message string
}

func (e *ServiceError) Error() string { return e.Message }
func (e *ServiceError) Unwrap() error { return e.Err }

// NewError creates a ServiceError wrapping the given sentinel.
func NewError(sentinel error, code, message string) *ServiceError {
	return &ServiceError{Err: sentinel, Code: code, Message: message}
}

func InvalidLength(code, message string) *ServiceError {
	return NewError(ErrInvalidLength, code, message)
}

func InvalidKind(code, message string) *ServiceError {
	return NewError(ErrInvalidKind, code, message)
}

func NotFound(code, message string) *ServiceError {
	return NewError(ErrNotFound, code, message)
}

func Forbidden(code, message string) *ServiceError {
	return NewError(ErrForbidden, code, message)
}

func AlreadyInState(code, message string) *ServiceError {
	return NewError(ErrAlreadyInState, code, message)
}

func OutOfRange(code, message string) *ServiceError {
	return NewError(ErrOutOfRange, code, message)
}

func NotActive(code, message string) *ServiceError {
	return NewError(ErrNotActive, code, message)
}

func InvalidTime(code, message string) *ServiceError {
	return NewError(ErrInvalidTime, code, message)
}

func BadRequest(code, message string) *ServiceError {
	return NewError(ErrBadRequest, code, message)
}

func Unauthorized(code, message string) *ServiceError {
	return NewError(ErrUnauthorized, code, message)
}

func Internal(code, message string) *ServiceError {
	return NewError(ErrInternal, code, message)
}

func internalError() *ServiceError {
	return Internal("INTERNAL", "internal server error")
}
