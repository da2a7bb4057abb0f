package dsl

import (
	"errors"
	"fmt"
)

// ParseError reports a DSL document that is malformed JSON, violates the
// schema, or describes an invalid query.
type ParseError struct {
	// Offset is the byte offset in the input, or -1 when unknown.
	Offset int

	// Path is the JSON path of the offending value, if known.
	Path string

	// Msg describes the failure.
	Msg string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	switch {
	case e.Offset >= 0 && e.Path != "":
		return fmt.Sprintf("dsl: offset %d: %s: %s", e.Offset, e.Path, e.Msg)
	case e.Offset >= 0:
		return fmt.Sprintf("dsl: offset %d: %s", e.Offset, e.Msg)
	case e.Path != "":
		return fmt.Sprintf("dsl: %s: %s", e.Path, e.Msg)
	default:
		return "dsl: " + e.Msg
	}
}

// IsParseError returns true if err is, or wraps, a ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}
