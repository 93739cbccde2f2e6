// Package common defines shared constants and sentinel errors used across
// the client and server layers of gophauth. Callers should use errors.Is to
// match these values.
package common

import (
	"errors"
	"fmt"

	"github.com/samber/oops"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors.
	ErrorInternal   = errors.New("internal error")
	ErrorValidation = errors.New("validation error")

	// Registration and login outcomes.
	ErrEmailTaken         = errors.New("email already registered")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidCredentialFormat is reported when a stored digest cannot be parsed.
	ErrInvalidCredentialFormat = errors.New("invalid credential format")

	// ErrInvalidToken is the parent of every token verification failure.
	ErrInvalidToken = errors.New("invalid token")

	ErrTokenMissing          = fmt.Errorf("%w: missing", ErrInvalidToken)
	ErrTokenMalformed        = fmt.Errorf("%w: malformed", ErrInvalidToken)
	ErrTokenInvalidSignature = fmt.Errorf("%w: signature mismatch", ErrInvalidToken)
	ErrTokenExpired          = fmt.Errorf("%w: expired", ErrInvalidToken)
)

// Internal wraps cause so that errors.Is(err, ErrorInternal) holds while the
// cause and the operation stay available to the logger.
func Internal(code, operation string, cause error) error {
	return oops.
		Code(code).
		With("operation", operation).
		Wrap(errors.Join(ErrorInternal, cause))
}
