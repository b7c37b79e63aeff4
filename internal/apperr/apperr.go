// Package apperr defines the error kinds shared by every layer of the
// service. Repositories raise only NotFound, Conflict, and Unavailable;
// business services translate those into the remaining kinds, and the HTTP
// layer maps kinds to status codes or RFC 6749 error codes.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for transport mapping.
type Kind int

const (
	// KindInternal is the zero value: an unexpected failure.
	KindInternal Kind = iota

	// KindValidation marks malformed or out-of-policy input.
	KindValidation

	// KindUnauthenticated marks missing or unverifiable credentials.
	// Cryptographic failures collapse to this kind without detail.
	KindUnauthenticated

	// KindForbidden marks an authenticated principal lacking permission.
	KindForbidden

	// KindNotFound marks a missing entity.
	KindNotFound

	// KindConflict marks a uniqueness violation or duplicate operation.
	KindConflict

	// KindExpired marks a credential or token past its lifetime.
	KindExpired

	// KindUnavailable marks a store or downstream outage.
	KindUnavailable

	// OAuth 2.0 error kinds, mapped to RFC 6749 error codes on output.
	KindInvalidGrant
	KindInvalidClient
	KindUnsupportedGrantType
	KindUnsupportedResponseType
	KindInvalidScope
	KindInvalidRequest
)

// String returns the wire label for the kind.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindExpired:
		return "expired"
	case KindUnavailable:
		return "unavailable"
	case KindInvalidGrant:
		return "invalid_grant"
	case KindInvalidClient:
		return "invalid_client"
	case KindUnsupportedGrantType:
		return "unsupported_grant_type"
	case KindUnsupportedResponseType:
		return "unsupported_response_type"
	case KindInvalidScope:
		return "invalid_scope"
	case KindInvalidRequest:
		return "invalid_request"
	default:
		return "internal"
	}
}

// Error carries a kind, a user-safe message, and an optional wrapped cause.
// The message is deliberately coarse; internal detail lives in the cause and
// is logged, never returned to callers.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// E builds an Error with the given kind and message.
func E(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Ef builds an Error with a formatted message.
func Ef(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error wrapping a cause.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf extracts the kind from an error chain. Unclassified errors are
// internal.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// IsKind reports whether the error chain carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Message returns the user-safe message from the error chain, or a generic
// fallback for unclassified errors.
func Message(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Msg
	}
	return "internal error"
}
