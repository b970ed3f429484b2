package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies an engine error so the transport layer can map it to a status.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	// KindNotFound: the collection (or its backing file) does not exist.
	KindNotFound
	// KindInvalidArgument: malformed parameters, e.g. page without limit.
	KindInvalidArgument
	// KindPreconditionFailed: the backing store could not be read or written.
	KindPreconditionFailed
	// KindNotApplicable: the operation needs a query, identifier or body that was not supplied.
	KindNotApplicable
	KindUnauthenticated
	KindPermissionDenied
	KindAlreadyExists
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInvalidArgument:
		return "invalid_argument"
	case KindPreconditionFailed:
		return "precondition_failed"
	case KindNotApplicable:
		return "not_applicable"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindPermissionDenied:
		return "permission_denied"
	case KindAlreadyExists:
		return "already_exists"
	default:
		return "unknown"
	}
}

// Error is the tagged error returned by every engine operation.
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error of the same kind, so the sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

// Sentinels for errors.Is checks.
var (
	ErrNotFound           = &Error{Kind: KindNotFound, Message: "not found"}
	ErrInvalidArgument    = &Error{Kind: KindInvalidArgument, Message: "invalid argument"}
	ErrPreconditionFailed = &Error{Kind: KindPreconditionFailed, Message: "precondition failed"}
	ErrNotApplicable      = &Error{Kind: KindNotApplicable, Message: "not applicable"}
	ErrUnauthenticated    = &Error{Kind: KindUnauthenticated, Message: "unauthenticated"}
	ErrPermissionDenied   = &Error{Kind: KindPermissionDenied, Message: "permission denied"}
	ErrAlreadyExists      = &Error{Kind: KindAlreadyExists, Message: "already exists"}
)

// NewError builds an *Error with a formatted message.
func NewError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError builds an *Error that carries cause.
func WrapError(kind ErrorKind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// KindOf extracts the kind of err, or KindUnknown.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
