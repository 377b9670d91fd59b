package dataapi

import (
	"errors"
	"fmt"

	"github.com/statspub/dataapi/dataapi/criteria"
	"github.com/statspub/dataapi/dataapi/ops"
)

type ErrorKind string

const (
	ErrIO            ErrorKind = "io"
	ErrSQL           ErrorKind = "sql"
	ErrSchema        ErrorKind = "schema"
	ErrQueryRejected ErrorKind = "query_rejected"
	ErrTypeMismatch  ErrorKind = "type_mismatch"
	ErrNotFound      ErrorKind = "not_found"
	ErrImmutable     ErrorKind = "immutable"
)

type Error struct {
	Kind    ErrorKind
	Message string
	Field   string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	base := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.Field != "" {
		base = fmt.Sprintf("%s (field=%s)", base, e.Field)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", base, e.Cause)
	}
	return base
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func Wrap(kind ErrorKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

func New(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func TypeMismatch(field, msg string) *Error {
	return &Error{Kind: ErrTypeMismatch, Field: field, Message: msg}
}

func QueryRejected(field, msg string) *Error {
	return &Error{Kind: ErrQueryRejected, Field: field, Message: msg}
}

func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf returns the kind of err, or "" when err is not an *Error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// fromCriteria converts a criteria validation failure.
func fromCriteria(err error) error {
	var ce *criteria.Error
	if !errors.As(err, &ce) {
		return Wrap(ErrQueryRejected, "invalid criteria", err)
	}
	if ce.TypeMismatch {
		return TypeMismatch(ce.Field, ce.Message)
	}
	return QueryRejected(ce.Field, ce.Message)
}

// fromWrite classifies an error returned by the write path.
func fromWrite(msg string, err error) error {
	var invalid *ops.InvalidRowError
	switch {
	case errors.Is(err, ops.ErrReleasePublished):
		return Wrap(ErrImmutable, msg, err)
	case errors.Is(err, ops.ErrNotFound):
		return Wrap(ErrNotFound, msg, err)
	case errors.As(err, &invalid):
		return Wrap(ErrSchema, msg, err)
	default:
		return Wrap(ErrSQL, msg, err)
	}
}
