package wire

import (
	"errors"
	"fmt"
)

// ProtocolError reports malformed wire input.
//
// Offset is the byte position in the input where decoding of the offending
// item started. Tag is the field tag being decoded, or TagNone.
type ProtocolError struct {
	// Code identifies the error category.
	Code ProtocolErrorCode

	// Tag is the tag whose payload failed, or TagNone.
	Tag Tag

	// Offset is the byte offset in the input.
	Offset int

	// Message is a human-readable description.
	Message string
}

// ProtocolErrorCode categorizes protocol errors.
type ProtocolErrorCode string

const (
	// ErrCodeTruncated indicates the input ended inside a field.
	ErrCodeTruncated ProtocolErrorCode = "TRUNCATED"

	// ErrCodeUnknownTag indicates a tag outside the closed tag set.
	ErrCodeUnknownTag ProtocolErrorCode = "UNKNOWN_TAG"

	// ErrCodeValueCount indicates a value count that does not fit the condition.
	ErrCodeValueCount ProtocolErrorCode = "VALUE_COUNT"

	// ErrCodeInvalidValue indicates an out-of-range enum, number or value kind.
	ErrCodeInvalidValue ProtocolErrorCode = "INVALID_VALUE"

	// ErrCodeUnknownJoinType indicates a non-join tag where a child must start.
	ErrCodeUnknownJoinType ProtocolErrorCode = "UNKNOWN_JOIN_TYPE"

	// ErrCodeNestingDepth indicates a child nested inside a child, or a join
	// predicate on the root query.
	ErrCodeNestingDepth ProtocolErrorCode = "NESTING_DEPTH"
)

// Error implements the error interface.
func (e *ProtocolError) Error() string {
	if e.Tag == TagNone {
		return fmt.Sprintf("%s: %s (offset=%d)", e.Code, e.Message, e.Offset)
	}
	return fmt.Sprintf("%s: %s (tag=%s, offset=%d)", e.Code, e.Message, e.Tag, e.Offset)
}

// IsProtocolError returns true if err is, or wraps, a ProtocolError.
func IsProtocolError(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}

// ErrorCode returns the ProtocolErrorCode of err, if it is a protocol error.
// Uses errors.As to handle wrapped errors.
func ErrorCode(err error) (ProtocolErrorCode, bool) {
	var pe *ProtocolError
	if errors.As(err, &pe) {
		return pe.Code, true
	}
	return "", false
}

func protocolErrorf(code ProtocolErrorCode, tag Tag, offset int, format string, args ...any) *ProtocolError {
	return &ProtocolError{Code: code, Tag: tag, Offset: offset, Message: fmt.Sprintf(format, args...)}
}

// withTag attributes a serializer error to the tag being decoded.
func withTag(err error, tag Tag) error {
	var pe *ProtocolError
	if errors.As(err, &pe) && pe.Tag == TagNone {
		pe.Tag = tag
	}
	return err
}
