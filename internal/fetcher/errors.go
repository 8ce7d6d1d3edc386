package fetcher

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the machine-readable class of a fetch failure. The consuming UI
// branches on failure class, so the kind travels alongside the human string
// instead of being inferred from it.
type Kind string

const (
	// KindValidation covers missing or malformed request fields. No
	// automation is attempted.
	KindValidation Kind = "validation"
	// KindNavigation covers an expected link or element not found or not
	// clickable within the retry budget. Usually means the portal's markup
	// changed.
	KindNavigation Kind = "navigation"
	// KindAuthentication covers a login submission that never reached the
	// expected post-login state.
	KindAuthentication Kind = "authentication"
	// KindDataUnavailable means the requested term has no published results
	// yet. Expected, non-fatal to the session.
	KindDataUnavailable Kind = "data_unavailable"
	// KindExtraction means a value element was absent from a page that should
	// contain it.
	KindExtraction Kind = "extraction"
	// KindInternal covers browser-process and other infrastructure failures.
	KindInternal Kind = "internal"
)

// Error is a typed fetch failure.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// newError builds a typed error wrapping cause (which may be nil).
func newError(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: cause}
}

// KindOf classifies any error, defaulting to KindInternal for untyped ones.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindInternal
}

// HTTPStatus maps a failure kind to a response status: client-input problems
// get 4xx, automation and infrastructure problems 5xx.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindDataUnavailable:
		return http.StatusNotFound
	case KindNavigation, KindAuthentication, KindExtraction:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// tearsDownSession reports whether a failure kind invalidates the session it
// occurred on. Results-not-published leaves a perfectly good page behind;
// everything else fails fast and the session is destroyed rather than reused
// in an unknown state.
func tearsDownSession(k Kind) bool {
	return k != KindValidation && k != KindDataUnavailable
}
