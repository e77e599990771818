// Package errs contains the error taxonomy shared by the client core and the API server.
package errs

import (
	"errors"
	"fmt"
)

// Common sentinels used for stable error mapping across layers.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized indicates failed authentication/authorization.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrAlreadyExists indicates a unique constraint violation (e.g., username taken).
	ErrAlreadyExists = errors.New("already exists")

	// ErrRateLimited indicates the login is temporarily locked out.
	ErrRateLimited = errors.New("rate limited")
)

// Kind classifies a failed operation. Every failure that reaches a caller of
// the client core carries exactly one Kind.
type Kind int

const (
	// KindUnknown covers failures that fit no other class.
	KindUnknown Kind = iota
	// KindNetworkUnavailable covers transport failures and call timeouts.
	KindNetworkUnavailable
	// KindUnauthenticated means no usable access token (missing or expired).
	KindUnauthenticated
	// KindInvalidCredentials means the server rejected a login or register attempt.
	KindInvalidCredentials
	// KindValidation means the server rejected the request payload.
	KindValidation
	// KindServer means the server answered with a 5xx status.
	KindServer
	// KindNotFound means the server answered 404 for the addressed resource.
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindNetworkUnavailable:
		return "network_unavailable"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindInvalidCredentials:
		return "invalid_credentials"
	case KindValidation:
		return "validation"
	case KindServer:
		return "server"
	case KindNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Error is a classified failure with a display-ready detail message.
// Detail prefers the server-supplied `detail` field over a generic fallback.
type Error struct {
	Kind   Kind
	Status int // HTTP status when known, 0 otherwise
	Detail string
	cause  error
}

// New constructs a classified error.
func New(kind Kind, detail string) *Error {
	return &Error{Kind: kind, Detail: detail}
}

// Wrap constructs a classified error preserving the underlying cause.
func Wrap(kind Kind, detail string, cause error) *Error {
	return &Error{Kind: kind, Detail: detail, cause: cause}
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error { return e.cause }

// KindOf extracts the Kind from err, or KindUnknown if err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Message returns the display-ready message for err, falling back to the
// generic one when the error carries no server detail.
func Message(err error, generic string) string {
	var e *Error
	if errors.As(err, &e) && e.Detail != "" {
		return e.Detail
	}
	return generic
}
