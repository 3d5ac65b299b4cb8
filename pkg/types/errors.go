package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a gognl error code.
type ErrorCode string

// Error codes, grouped by the layer that raises them.
const (
	// M0xxx: Member resolution errors
	ErrNoSuchMember ErrorCode = "M0101"
	ErrMethodFailed ErrorCode = "M0102"
	ErrNoOverload   ErrorCode = "M0103"
	ErrAccessDenied ErrorCode = "M0104"
	ErrUnknownClass ErrorCode = "M0105"

	// A0xxx: Assignment errors
	ErrUnsupportedAssignment ErrorCode = "A0201"
	ErrNotAddressable        ErrorCode = "A0202"

	// I0xxx: Index errors
	ErrMalformedIndex  ErrorCode = "I0301"
	ErrIndexOutOfRange ErrorCode = "I0302"

	// T0xxx: Type errors
	ErrConversion        ErrorCode = "T0401"
	ErrNonNumeric        ErrorCode = "T0402"
	ErrArithmetic        ErrorCode = "T0403"
	ErrInvalidComparison ErrorCode = "T0404"

	// E0xxx: Evaluation errors
	ErrNullSource ErrorCode = "E0501"
	ErrEvaluation ErrorCode = "E0502"
	ErrNotANode   ErrorCode = "E0503"

	// S0xxx: Serialized tree errors
	ErrMalformedTree ErrorCode = "S0601"
)

// Error represents a structured gognl error.
type Error struct {
	Code       ErrorCode
	Message    string
	Expression string
	Err        error
}

// NewError creates a new gognl error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Errorf creates a new gognl error with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return NewError(code, fmt.Sprintf(format, args...))
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Expression != "" {
		return fmt.Sprintf("%s in %s: %s", e.Code, e.Expression, msg)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithCause adds a cause error.
func (e *Error) WithCause(err error) *Error {
	e.Err = err
	return e
}

// WithExpression records the source form of the node that failed.
// An expression already recorded by a deeper node is kept.
func (e *Error) WithExpression(expr string) *Error {
	if e.Expression == "" {
		e.Expression = expr
	}
	return e
}

// Is reports whether target is a gognl error carrying the same code and no
// message, which lets bare code values act as sentinels:
//
//	errors.Is(err, &types.Error{Code: types.ErrNoSuchMember})
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Message == "" && t.Code == e.Code
}

// CodeOf returns the code of the first gognl error in err's chain, or the
// empty code when there is none.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}
