// Package herrors defines the error taxonomy every daemon tags its error
// events with. Workers never crash on error (see pkg/worker) — they convert
// whatever they catch into a Typed error, publish it, and back off.
package herrors

import (
	"errors"
	"fmt"
)

// Kind is one of the taxonomy tags a worker attaches to an error event.
type Kind string

// Error kinds, one per taxonomy entry.
const (
	KindPreflightFailed Kind = "PREFLIGHT_FAILED"
	KindUnreachable     Kind = "UNREACHABLE"
	KindAuthFailed      Kind = "AUTH_FAILED"
	KindRateLimited     Kind = "RATE_LIMITED"
	KindParseFailed     Kind = "PARSE_FAILED"
	KindValidation      Kind = "VALIDATION_FAILED"
	KindTampered        Kind = "TAMPERED"
	KindDead            Kind = "DEAD"
	KindInternal        Kind = "INTERNAL"
)

// Typed is an error carrying a taxonomy Kind alongside its cause.
type Typed struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Typed) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Typed) Unwrap() error { return e.Cause }

// New builds a Typed error with no wrapped cause.
func New(kind Kind, message string) error {
	return &Typed{Kind: kind, Message: message}
}

// Wrap builds a Typed error around cause. Returns nil if cause is nil.
func Wrap(kind Kind, message string, cause error) error {
	if cause == nil {
		return nil
	}
	return &Typed{Kind: kind, Message: message, Cause: cause}
}

// KindOf extracts the Kind from err, or KindInternal if err is not Typed.
func KindOf(err error) Kind {
	var t *Typed
	if errors.As(err, &t) {
		return t.Kind
	}
	return KindInternal
}

// Is reports whether err (or something it wraps) is a Typed error of kind.
func Is(err error, kind Kind) bool {
	var t *Typed
	return errors.As(err, &t) && t.Kind == kind
}
