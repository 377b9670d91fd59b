package criteria

import "fmt"

// Error reports criteria that cannot be filtered on. TypeMismatch marks
// values of the wrong shape (a non-numeric id, a non-string level) as
// opposed to well-typed but invalid values.
type Error struct {
	Field        string
	Message      string
	TypeMismatch bool
}

func (e *Error) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) *Error {
	return &Error{Field: field, Message: fmt.Sprintf(format, args...)}
}

func mismatch(field, msg string) *Error {
	return &Error{Field: field, Message: msg, TypeMismatch: true}
}
