// Package errors holds the sentinel errors shared by every layer.
// Callers wrap them with fmt.Errorf("%w: ...") and test them with errors.Is.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrValidation  = errors.New("validation error")
	ErrNotFound    = errors.New("not found")
	ErrPersistence = errors.New("persistence error")

	ErrInvalidIdentity  = fmt.Errorf("%w: invalid identity", ErrValidation)
	ErrSameParticipant  = fmt.Errorf("%w: a chat session needs two distinct participants", ErrValidation)
	ErrInvalidKind      = fmt.Errorf("%w: unknown message kind", ErrValidation)
	ErrEmptyContent     = fmt.Errorf("%w: message content is empty", ErrValidation)
	ErrContentTooLong   = fmt.Errorf("%w: message content is too long", ErrValidation)
	ErrUnknownEvent     = fmt.Errorf("%w: unknown event", ErrValidation)
	ErrMalformedPayload = fmt.Errorf("%w: malformed payload", ErrValidation)
	ErrIdentityMismatch = fmt.Errorf("%w: identity does not match the authenticated user", ErrValidation)

	ErrSessionNotFound  = fmt.Errorf("%w: chat session", ErrNotFound)
	ErrNotParticipant   = fmt.Errorf("%w: user is not a participant of the chat session", ErrNotFound)
	ErrPresenceNotFound = fmt.Errorf("%w: presence", ErrNotFound)

	ErrSessionAlreadyExists = errors.New("chat session already exists")
	ErrRegistryClosed       = errors.New("connection registry is closed")
	ErrConnectionClosed     = errors.New("connection is closed")
	ErrRateLimited          = errors.New("too many events, slow down")
	ErrUnauthenticated      = errors.New("unauthenticated")

	ErrWorkerPanic = fmt.Errorf("worker panic")
	ErrEmptyWords  = fmt.Errorf("no words have been found")
)

// HTTPStatus maps the error taxonomy onto HTTP status codes.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrPersistence):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Info renders the message sent back to a client.
// Persistence details never leave the process.
func Info(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrPersistence):
		return "storage is unavailable, try again"
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrNotFound),
		errors.Is(err, ErrRateLimited),
		errors.Is(err, ErrUnauthenticated),
		errors.Is(err, ErrRegistryClosed):
		return err.Error()
	default:
		return "internal error"
	}
}

// Is and As forward to the standard library so callers importing this
// package don't need a second alias.
func Is(err, target error) bool { return errors.Is(err, target) }

func As(err error, target any) bool { return errors.As(err, target) }
