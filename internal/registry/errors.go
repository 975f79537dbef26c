package registry

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateType is returned when a second type is registered under an
	// existing (case-insensitive) name.
	ErrDuplicateType = errors.New("duplicate type")
	// ErrDuplicateField is returned when a field is registered twice on the
	// same type.
	ErrDuplicateField = errors.New("duplicate field")
	// ErrInvalidArgument marks builder input that is missing mandatory values.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrFieldsResolved is returned when a field is added to a type whose
	// fields were already evaluated.
	ErrFieldsResolved = errors.New("fields already resolved")
	// ErrUnknownType is returned when an operation names a type that is not
	// registered.
	ErrUnknownType = errors.New("unknown type")
)

// Code classifies a non-fatal schema build problem.
type Code string

const (
	CodeUnresolvableInterface Code = "UnresolvableInterface"
	CodeUnresolvableFieldType Code = "UnresolvableFieldType"
	CodeArgumentTypeMismatch  Code = "ArgumentTypeMismatch"
	CodeUnsupportedFieldKind  Code = "UnsupportedFieldKind"
	CodeDuplicateField        Code = "DuplicateField"
	CodeInvalidArgument       Code = "InvalidArgument"
)

// Diagnostic is a non-fatal problem found while building the schema. The
// offending interface, field or argument has already been dropped or
// overridden when the diagnostic is reported.
type Diagnostic struct {
	Code    Code   `json:"code"`
	Type    string `json:"type,omitempty"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (d Diagnostic) String() string {
	loc := d.Type
	if d.Field != "" {
		loc += "." + d.Field
	}
	if loc == "" {
		return fmt.Sprintf("%s: %s", d.Code, d.Message)
	}
	return fmt.Sprintf("%s at %s: %s", d.Code, loc, d.Message)
}
