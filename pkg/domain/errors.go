package domain

import "errors"

// Kind classifies failures surfaced to the UI. Every kind is recoverable.
type Kind string

const (
	KindInvalidCredentials Kind = "invalid_credentials"
	KindNoDelegatedSession Kind = "no_delegated_session"
	KindSessionExpired     Kind = "session_expired"
	KindUnauthorized       Kind = "unauthorized"
	KindUpdateRejected     Kind = "update_rejected"
	KindFetchFailed        Kind = "fetch_failed"
	KindMalformedImageData Kind = "malformed_image_data"
)

// Sentinels for errors.Is matching against an *Error of the same kind.
var (
	ErrInvalidCredentials = &Error{Kind: KindInvalidCredentials}
	ErrNoDelegatedSession = &Error{Kind: KindNoDelegatedSession}
	ErrSessionExpired     = &Error{Kind: KindSessionExpired}
	ErrUnauthorized       = &Error{Kind: KindUnauthorized}
	ErrUpdateRejected     = &Error{Kind: KindUpdateRejected}
	ErrFetchFailed        = &Error{Kind: KindFetchFailed}
	ErrMalformedImageData = &Error{Kind: KindMalformedImageData}
)

// ErrSuperseded is returned when a newer request was issued before this one
// resolved; its result has been discarded.
var ErrSuperseded = errors.New("superseded by a newer request")

// Error is a classified failure with a message fit for display.
// Err keeps the underlying cause for logs.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// NewError builds an *Error of the given kind wrapping cause.
func NewError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same Kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the Kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// MessageOf returns the display message of the first *Error in err's chain,
// falling back to err.Error().
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return err.Error()
}
