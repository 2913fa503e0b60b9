// File path: internal/copybook/errors.go
package copybook

import "fmt"

// Kind classifies a copybook or decode failure.
type Kind string

const (
	KindSchemaStructure      Kind = "schema_structure"
	KindUnsupportedFieldType Kind = "unsupported_field_type"
	KindTruncatedRecord      Kind = "truncated_record"
	KindMalformedField       Kind = "malformed_field"
)

// Error carries enough locality (copybook line number or record byte offset)
// to map a failure back to the original source without engine state.
type Error struct {
	Kind    Kind   `json:"kind"`
	Line    int    `json:"line,omitempty"`
	Offset  int    `json:"offset,omitempty"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	switch {
	case e.Field != "" && e.Offset > 0:
		return fmt.Sprintf("%s: field %s at offset %d: %s", e.Kind, e.Field, e.Offset, e.Message)
	case e.Field != "":
		return fmt.Sprintf("%s: field %s: %s", e.Kind, e.Field, e.Message)
	case e.Line > 0:
		return fmt.Sprintf("%s: line %d: %s", e.Kind, e.Line, e.Message)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
}

func structureErrorf(line int, format string, args ...interface{}) *Error {
	return &Error{Kind: KindSchemaStructure, Line: line, Message: fmt.Sprintf(format, args...)}
}

func unsupportedErrorf(line int, format string, args ...interface{}) *Error {
	return &Error{Kind: KindUnsupportedFieldType, Line: line, Message: fmt.Sprintf(format, args...)}
}

// TruncatedError reports a record buffer too short to hold the named field.
func TruncatedError(field string, offset int, format string, args ...interface{}) *Error {
	return &Error{Kind: KindTruncatedRecord, Field: field, Offset: offset, Message: fmt.Sprintf(format, args...)}
}

// MalformedError reports a byte pattern invalid for the named field's encoding.
func MalformedError(field string, offset int, format string, args ...interface{}) *Error {
	return &Error{Kind: KindMalformedField, Field: field, Offset: offset, Message: fmt.Sprintf(format, args...)}
}
