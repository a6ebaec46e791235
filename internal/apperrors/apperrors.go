// internal/apperrors/apperrors.go
package apperrors

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so callers can react without string matching.
type Kind int

const (
	KindUnknown Kind = iota
	// KindNotFound: the GitHub username (or a local record) does not exist.
	KindNotFound
	// KindRateLimited: the GitHub request quota is exhausted. Kept distinct
	// from KindUpstream so callers can advise supplying a token.
	KindRateLimited
	// KindUpstream: any other transport or protocol failure from GitHub.
	KindUpstream
	// KindValidation: a required input is missing or malformed.
	KindValidation
	// KindDuplicateKey: a unique-index violation during insert. Recoverable
	// by retrying as an update.
	KindDuplicateKey
	// KindPersistence: the store is unavailable or a write failed for
	// reasons other than the unique constraint.
	KindPersistence
)

// String returns the machine-readable name used in API error bodies.
func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindRateLimited:
		return "rate_limited"
	case KindUpstream:
		return "upstream_error"
	case KindValidation:
		return "validation_error"
	case KindDuplicateKey:
		return "duplicate_key"
	case KindPersistence:
		return "persistence_error"
	default:
		return "unknown"
	}
}

// Error is a classified error, optionally wrapping an underlying cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NotFound(msg string) error {
	return &Error{Kind: KindNotFound, Msg: msg}
}

func RateLimited(msg string) error {
	return &Error{Kind: KindRateLimited, Msg: msg}
}

func Upstream(msg string, err error) error {
	return &Error{Kind: KindUpstream, Msg: msg, Err: err}
}

func Validation(msg string) error {
	return &Error{Kind: KindValidation, Msg: msg}
}

func DuplicateKey(msg string, err error) error {
	return &Error{Kind: KindDuplicateKey, Msg: msg, Err: err}
}

func Persistence(msg string, err error) error {
	return &Error{Kind: KindPersistence, Msg: msg, Err: err}
}

// KindOf extracts the Kind from err, looking through wrapping.
// Unclassified errors report KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, k Kind) bool {
	return KindOf(err) == k
}
