package sqlparse

import (
	"errors"
	"fmt"
)

// SyntaxError reports a parse failure at a token.
//
// Every parse failure is a SyntaxError, including malformed LIMIT/OFFSET
// numerals. Pos is the byte offset of Token in the input.
type SyntaxError struct {
	// Token is the offending token text; empty at end of input.
	Token string

	// Pos is the byte offset of the token.
	Pos int

	// Msg describes what was expected.
	Msg string
}

// Error implements the error interface.
func (e *SyntaxError) Error() string {
	if e.Token == "" {
		return fmt.Sprintf("syntax error at end of input (pos %d): %s", e.Pos, e.Msg)
	}
	return fmt.Sprintf("syntax error at or near '%s' (pos %d): %s", e.Token, e.Pos, e.Msg)
}

// IsSyntaxError returns true if err is, or wraps, a SyntaxError.
func IsSyntaxError(err error) bool {
	var se *SyntaxError
	return errors.As(err, &se)
}

func errorAt(tok Token, format string, args ...any) *SyntaxError {
	return &SyntaxError{Token: tok.Text, Pos: tok.Pos, Msg: fmt.Sprintf(format, args...)}
}
