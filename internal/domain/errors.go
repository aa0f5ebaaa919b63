package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")
)

// Confirmation-workflow errors. These are business failures: local, non-fatal
// and safe for the client to retry (typically by requesting a new code).
var (
	ErrDuplicateEmail       = errors.New("email already registered")
	ErrUserNotFound         = errors.New("user not found")
	ErrCodeExpiredOrMissing = errors.New("confirmation code expired or missing")
	ErrCodeMismatch         = errors.New("confirmation code mismatch")
	ErrUserAlreadyActive    = errors.New("user already active")
	ErrUserNotActive        = errors.New("user account is not activated yet")
)

// ErrStoreUnavailable marks persistence or code-store outages. Surfaced as a
// 503; never retried inline by the workflow.
var ErrStoreUnavailable = errors.New("store unavailable")
