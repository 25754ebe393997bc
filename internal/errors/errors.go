package errors

import (
	"errors"
	"fmt"
)

// Common error types for the platform core
var (
	// Tenant errors
	ErrInvalidTenantSlug = errors.New("invalid tenant slug")
	ErrTenantNotFound    = errors.New("tenant not found")
	ErrTenantRequired    = errors.New("tenant required")

	// Connection errors
	ErrConnectionUnavailable = errors.New("data store unavailable")

	// Authentication errors
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrMFARequired        = errors.New("mfa required")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserBlocked        = errors.New("user is blocked")
	ErrUserNotFound       = errors.New("user not found")

	// Request preprocessing errors
	ErrLoopDetected = errors.New("redirect loop detected")

	// General errors
	ErrNotFound = errors.New("not found")
	ErrInternal = errors.New("internal error")
)

// Code returns the stable wire code for an error in the taxonomy.
// Unknown errors map to internal_error so internals never leak to clients.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrInvalidTenantSlug), errors.Is(err, ErrTenantNotFound), errors.Is(err, ErrTenantRequired):
		return "invalid_tenant"
	case errors.Is(err, ErrConnectionUnavailable):
		return "connection_unavailable"
	case errors.Is(err, ErrUnauthenticated), errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrUserBlocked):
		return "unauthenticated"
	case errors.Is(err, ErrMFARequired):
		return "mfa_required"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrLoopDetected):
		return "loop_detected"
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrUserNotFound):
		return "not_found"
	default:
		return "internal_error"
	}
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
