package service

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("conflict")
	ErrBadRequest   = errors.New("bad request")
	ErrUnauthorized = errors.New("unauthorized")
	ErrInternal     = errors.New("internal")
	ErrGone         = errors.New("gone")
	ErrTimeout      = errors.New("timeout")
	ErrUnavailable  = errors.New("unavailable")
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

// Convenience constructors for common error types.

func NotFound(code, message string) *ServiceError {
	return NewError(ErrNotFound, code, message)
}

func Forbidden(code, message string) *ServiceError {
	return NewError(ErrForbidden, code, message)
}

func BadRequest(code, message string) *ServiceError {
	return NewError(ErrBadRequest, code, message)
}

func Conflict(code, message string) *ServiceError {
	return NewError(ErrConflict, code, message)
}

func Unauthorized(code, message string) *ServiceError {
	return NewError(ErrUnauthorized, code, message)
}

func Internal(code, message string) *ServiceError {
	return NewError(ErrInternal, code, message)
}

func Gone(code, message string) *ServiceError {
	return NewError(ErrGone, code, message)
}

func Timeout(code, message string) *ServiceError {
	return NewError(ErrTimeout, code, message)
}

func Unavailable(code, message string) *ServiceError {
	return NewError(ErrUnavailable, code, message)
}

// storeCallTimeout bounds every store round trip. No store call runs on the
// transport's default (unbounded) deadline.
const storeCallTimeout = 5 * time.Second

// storeCtx derives the per-call context for a store operation.
func storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, storeCallTimeout)
}

// storeFail maps a store-layer failure to a ServiceError, surfacing
// deadline expiry as a distinct Timeout kind.
func storeFail(err error) *ServiceError {
	if errors.Is(err, context.DeadlineExceeded) {
		return Timeout("STORE_TIMEOUT", "store operation timed out")
	}
	if errors.Is(err, context.Canceled) {
		return Unavailable("CANCELED", "request canceled")
	}
	return Internal("INTERNAL", "internal server error")
}
