// Package common defines shared constants and sentinel errors used across
// the authkeeper server layers. Callers should use errors.Is to match these
// values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control). ErrorInternal
	// covers store and transport failures; the underlying cause is logged
	// and never returned to a caller.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Request validation errors (missing or malformed fields).
	ErrorValidation = errors.New("validation error")

	// ErrorTokenRequired is returned when a protected operation is invoked
	// without a bearer token at all.
	ErrorTokenRequired = errors.New("token required")

	// ErrorForbidden is returned when credentials are valid but the account
	// is inactive or lacks the required role.
	ErrorForbidden = errors.New("forbidden")

	// ErrorConflict is returned on duplicate email/username at registration.
	ErrorConflict = errors.New("already exists")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// ErrRefreshTokenExpired is returned when a refresh token is found but
	// its expiry has passed. It wraps ErrorUnauthorized, so callers matching
	// only the broad class keep working.
	ErrRefreshTokenExpired = fmt.Errorf("%w: refresh token expired", ErrorUnauthorized)

	// ErrEventPayload marks an event whose payload cannot be applied to the
	// local replica. The consumer logs it and drops the event.
	ErrEventPayload = errors.New("unprocessable event payload")
)
