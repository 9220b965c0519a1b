package utils

import (
	"errors"
	"fmt"
)

// ErrorKind is the stable machine-readable code attached to every failure
// surfaced by the dispatch core.
type ErrorKind string

const (
	ErrValidation   ErrorKind = "validation_error"
	ErrNotFound     ErrorKind = "not_found"
	ErrInvalidState ErrorKind = "invalid_state_transition"
	ErrConflict     ErrorKind = "conflict"
	ErrUnauthorized ErrorKind = "unauthorized"
	ErrUpstream     ErrorKind = "upstream_unavailable"
)

// ServiceError pairs an error kind with a human-readable message.
type ServiceError struct {
	Kind    ErrorKind
	Message string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func NewServiceError(kind ErrorKind, format string, args ...any) error {
	return &ServiceError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func ValidationError(format string, args ...any) error {
	return NewServiceError(ErrValidation, format, args...)
}

func NotFoundError(format string, args ...any) error {
	return NewServiceError(ErrNotFound, format, args...)
}

func InvalidStateError(format string, args ...any) error {
	return NewServiceError(ErrInvalidState, format, args...)
}

func ConflictError(format string, args ...any) error {
	return NewServiceError(ErrConflict, format, args...)
}

func UnauthorizedError(format string, args ...any) error {
	return NewServiceError(ErrUnauthorized, format, args...)
}

func UpstreamError(format string, args ...any) error {
	return NewServiceError(ErrUpstream, format, args...)
}

// KindOf extracts the error kind, defaulting to upstream_unavailable for
// unclassified failures.
func KindOf(err error) ErrorKind {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Kind
	}
	return ErrUpstream
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
