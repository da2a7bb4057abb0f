package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/qir/internal/dsl"
	"github.com/roach88/qir/internal/queryir"
	"github.com/roach88/qir/internal/querysql"
	"github.com/roach88/qir/internal/sqlparse"
	"github.com/roach88/qir/internal/wire"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Query rejected or test case failed
	ExitCommandError = 2 // Command error (missing file, unreadable journal, etc.)
)

// Error codes reported in CLI responses. Validation failures reuse the
// query model's E2xx codes.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeNotFound    = "E005" // Path or record not found
	ErrCodeReadFailed  = "E006" // File read error
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeJournal     = "E008" // Journal open/read/write error
	ErrCodeSyntax      = "E301" // Textual query syntax error
	ErrCodeDSL         = "E302" // JSON DSL error
	ErrCodeProtocol    = "E401" // Malformed wire bytes
	ErrCodeUnsupported = "E501" // No SQLite translation
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format  string
	Writer  io.Writer
	Verbose bool
}

// newFormatter builds the formatter for a command's root options.
func newFormatter(opts *RootOptions, w io.Writer) *OutputFormatter {
	return &OutputFormatter{Format: opts.Format, Writer: w, Verbose: opts.Verbose}
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // "E001", "E301", etc.
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

// Success outputs a successful result. Text output prints text; JSON output
// wraps data in a CLIResponse.
func (f *OutputFormatter) Success(data any, text string) error {
	if f.Format == "json" {
		return f.encode(CLIResponse{Status: "ok", Data: data})
	}
	_, err := fmt.Fprintln(f.Writer, text)
	return err
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return f.encode(CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: code, Message: message, Details: details},
		})
	}

	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// Fail reports err and returns an ExitError carrying exitCode.
func (f *OutputFormatter) Fail(exitCode int, err error) error {
	code, details := classifyError(err)
	_ = f.Error(code, err.Error(), details)
	return WrapExitError(exitCode, code, err)
}

func (f *OutputFormatter) encode(resp CLIResponse) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

// classifyError maps a package error to a response code and details.
func classifyError(err error) (string, any) {
	var (
		syntaxErr   *sqlparse.SyntaxError
		dslErr      *dsl.ParseError
		protoErr    *wire.ProtocolError
		validErr    queryir.ValidationError
		validErrPtr *queryir.ValidationError
	)
	switch {
	case errors.As(err, &syntaxErr):
		return ErrCodeSyntax, map[string]any{"token": syntaxErr.Token, "pos": syntaxErr.Pos}
	case errors.As(err, &dslErr):
		return ErrCodeDSL, map[string]any{"offset": dslErr.Offset, "path": dslErr.Path}
	case errors.As(err, &protoErr):
		return ErrCodeProtocol, map[string]any{"code": string(protoErr.Code), "offset": protoErr.Offset}
	case errors.As(err, &validErr):
		return validErr.Code, map[string]any{"field": validErr.Field}
	case errors.As(err, &validErrPtr):
		return validErrPtr.Code, map[string]any{"field": validErrPtr.Field}
	case errors.Is(err, querysql.ErrUnsupported):
		return ErrCodeUnsupported, nil
	}
	return ErrCodeGeneric, nil
}
