package domain

import (
	"errors"
	"fmt"
)

// ErrFormNotFound is returned when a form id does not resolve to a stored form.
// It is a broken reference, not a validation failure.
var ErrFormNotFound = errors.New("form not found")

// ErrorKind classifies a validation failure.
type ErrorKind int

const (
	// SchemaError is a structural problem with a form or one of its fields.
	SchemaError ErrorKind = iota + 1
	// ResponseError is a problem relating a response to its form.
	ResponseError
)

func (k ErrorKind) String() string {
	switch k {
	case SchemaError:
		return "schema"
	case ResponseError:
		return "response"
	default:
		return "unknown"
	}
}

// ValidationError carries the first failure found by a Validate call. Its
// message is meant to be shown to the caller verbatim.
type ValidationError struct {
	Kind    ErrorKind
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func schemaErrorf(format string, args ...any) error {
	return &ValidationError{Kind: SchemaError, Message: fmt.Sprintf(format, args...)}
}

func responseErrorf(format string, args ...any) error {
	return &ValidationError{Kind: ResponseError, Message: fmt.Sprintf(format, args...)}
}

// IsValidationError reports whether err is, or wraps, a *ValidationError.
func IsValidationError(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}
