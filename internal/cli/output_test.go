package cli

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/qir/internal/dsl"
	"github.com/roach88/qir/internal/queryir"
	"github.com/roach88/qir/internal/querysql"
	"github.com/roach88/qir/internal/sqlparse"
	"github.com/roach88/qir/internal/wire"
)

func TestOutputFormatter_SuccessText(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, f.Success(map[string]int{"n": 1}, "hello"))
	assert.Equal(t, "hello\n", buf.String())
}

func TestOutputFormatter_SuccessJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, f.Success(map[string]int{"n": 1}, "ignored"))

	var data map[string]int
	resp := decodeResponse(t, buf.String(), &data)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 1, data["n"])
	assert.Nil(t, resp.Error)
}

func TestOutputFormatter_ErrorText(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, f.Error("E001", "boom", "extra"))
	assert.Equal(t, "Error [E001]: boom\n", buf.String())

	buf.Reset()
	f.Verbose = true
	require.NoError(t, f.Error("E001", "boom", "extra"))
	assert.Contains(t, buf.String(), "Details: extra")
}

func TestOutputFormatter_ErrorJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, f.Error("E301", "bad", nil))
	resp := decodeResponse(t, buf.String(), nil)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E301", resp.Error.Code)
	assert.Equal(t, "bad", resp.Error.Message)
}

func TestOutputFormatter_Fail(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "text", Writer: buf}

	cause := &sqlparse.SyntaxError{Token: "abc", Pos: 3, Msg: "expected number"}
	err := f.Fail(ExitFailure, cause)

	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, buf.String(), "Error [E301]: syntax error at or near 'abc'")
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{"syntax", &sqlparse.SyntaxError{Msg: "x"}, ErrCodeSyntax},
		{"dsl", &dsl.ParseError{Offset: -1, Msg: "x"}, ErrCodeDSL},
		{"protocol", &wire.ProtocolError{Code: wire.ErrCodeTruncated, Tag: wire.TagNone}, ErrCodeProtocol},
		{"validation value", queryir.ValidationError{Code: queryir.ErrNegativePaging}, queryir.ErrNegativePaging},
		{"validation wrapped", fmt.Errorf("encode: %w", queryir.ValidationError{Code: queryir.ErrValueCount}), queryir.ErrValueCount},
		{"unsupported", fmt.Errorf("join: %w", querysql.ErrUnsupported), ErrCodeUnsupported},
		{"generic", errors.New("other"), ErrCodeGeneric},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			code, _ := classifyError(tc.err)
			assert.Equal(t, tc.code, code)
		})
	}
}

func TestExitError(t *testing.T) {
	inner := errors.New("disk full")
	err := WrapExitError(ExitCommandError, "E007", inner)
	assert.Equal(t, "E007: disk full", err.Error())
	assert.True(t, errors.Is(err, inner))
	assert.Equal(t, ExitCommandError, GetExitCode(fmt.Errorf("wrapped: %w", err)))

	assert.Equal(t, "plain", NewExitError(ExitFailure, "plain").Error())
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("x")))
}
