package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every error the core produces deliberately wraps exactly one of these.
var (
	ErrConflict        = errors.New("conflict")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrTokenInvalid    = errors.New("invalid or expired token")
	ErrTokenExpired    = errors.New("token expired")
	ErrInvalidInput    = errors.New("invalid input")
	ErrForbidden       = errors.New("access forbidden")
	ErrNotFound        = errors.New("not found")
	ErrInternal        = errors.New("internal error")
)

var (
	ErrEmailTaken         = fmt.Errorf("%w: user with this email already exists", ErrConflict)
	ErrExternalIDTaken    = fmt.Errorf("%w: external identity already linked to another user", ErrConflict)
	ErrAccountLinked      = fmt.Errorf("%w: account is linked to a different external identity", ErrConflict)
	ErrInvalidCredentials = fmt.Errorf("%w: invalid email or password", ErrUnauthenticated)
	ErrPasswordNotSet     = fmt.Errorf("%w: this account was created with Google, please use Google sign-in", ErrUnauthenticated)
	ErrInvalidRole        = fmt.Errorf("%w: role must be client, trainer, or admin", ErrInvalidInput)
	ErrFutureBirthDate    = fmt.Errorf("%w: date of birth cannot be in the future", ErrInvalidInput)
	ErrMissingIdentity    = fmt.Errorf("%w: external profile requires an id and an email", ErrInvalidInput)
)

// Store-level lookups. Services translate these before they reach a caller,
// except where "not found" is the answer (admin deletes).
var (
	ErrUserNotFound         = fmt.Errorf("user %w", ErrNotFound)
	ErrRefreshTokenNotFound = fmt.Errorf("refresh token %w", ErrNotFound)
)

// Internal wraps an unexpected collaborator failure. The result matches both
// ErrInternal and err under errors.Is.
func Internal(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrInternal, op, err)
}

// Stable error codes returned by Code.
const (
	CodeConflict        = "conflict"
	CodeUnauthenticated = "unauthenticated"
	CodeTokenExpired    = "token_expired"
	CodeTokenInvalid    = "token_invalid"
	CodeInvalidInput    = "invalid_input"
	CodeForbidden       = "forbidden"
	CodeNotFound        = "not_found"
	CodeInternal        = "internal"
)

// Code returns the stable, caller-visible code for err.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInternal):
		return CodeInternal
	case errors.Is(err, ErrConflict):
		return CodeConflict
	case errors.Is(err, ErrUnauthenticated):
		return CodeUnauthenticated
	case errors.Is(err, ErrTokenExpired):
		return CodeTokenExpired
	case errors.Is(err, ErrTokenInvalid):
		return CodeTokenInvalid
	case errors.Is(err, ErrInvalidInput):
		return CodeInvalidInput
	case errors.Is(err, ErrForbidden):
		return CodeForbidden
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	default:
		return CodeInternal
	}
}
