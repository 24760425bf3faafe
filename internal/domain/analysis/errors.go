package analysis

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so callers can map it to a response.
type Kind string

const (
	KindConfiguration     Kind = "configuration"
	KindBadRequest        Kind = "bad_request"
	KindNotFound          Kind = "not_found"
	KindUnsupportedFormat Kind = "unsupported_format"
	KindEmptyResponse     Kind = "empty_response"
	KindParse             Kind = "parse"
	KindExternalService   Kind = "external_service"
)

// Error is the result record returned instead of a structured analysis.
// RawOutput is only set for parse failures.
type Error struct {
	Kind      Kind
	Message   string
	RawOutput string
	Err       error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by kind, so errors.Is(err, &Error{Kind: KindNotFound}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == ""
}

// Errorf builds an *Error of the given kind.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap converts err into an *Error of the given kind, keeping an existing *Error as is.
func Wrap(kind Kind, err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return &Error{Kind: kind, Message: err.Error(), Err: err}
}

// KindOf reports the kind of err, or KindExternalService for foreign errors.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindExternalService
}

// Sentinels for errors.Is checks.
var (
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrBadRequest        = &Error{Kind: KindBadRequest}
	ErrConfiguration     = &Error{Kind: KindConfiguration}
	ErrUnsupportedFormat = &Error{Kind: KindUnsupportedFormat}
	ErrEmptyResponse     = &Error{Kind: KindEmptyResponse}
	ErrParse             = &Error{Kind: KindParse}
	ErrExternalService   = &Error{Kind: KindExternalService}
)
