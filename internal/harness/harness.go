package harness

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/qir/internal/dsl"
	"github.com/roach88/qir/internal/queryir"
	"github.com/roach88/qir/internal/querysql"
	"github.com/roach88/qir/internal/sqlparse"
	"github.com/roach88/qir/internal/wire"
)

// Harness runs cases. The zero value is not usable; call New.
type Harness struct {
	compiler *querysql.SQLCompiler
	logger   *slog.Logger
}

// Option configures a Harness.
type Option func(*Harness)

// WithLogger sets the logger for per-case progress. Defaults to discarding.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) {
		h.logger = l
	}
}

// New creates a harness.
func New(opts ...Option) *Harness {
	h := &Harness{
		compiler: querysql.NewSQLCompiler(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run executes a case with a default harness.
func Run(c *Case) (*Result, error) {
	return New().Run(c)
}

// Run executes a case and returns the result.
//
// Execution flow:
// 1. Parse the SQL text or DSL document
// 2. Validate the query
// 3. Encode, decode and re-encode; compare query and bytes
// 4. Compile to SQLite when expect.sql is set
// 5. Compare expectations
//
// A returned error means the case itself is unusable; query failures are
// reported through Result.
func (h *Harness) Run(c *Case) (*Result, error) {
	if c == nil {
		return nil, fmt.Errorf("nil case")
	}
	if err := validateCase(c); err != nil {
		return nil, fmt.Errorf("invalid case: %w", err)
	}

	result := NewResult()
	q, err := h.build(c, result)
	if c.Expect.Error != "" {
		h.expectFailure(c, err, result)
		return result, nil
	}
	if err != nil {
		result.AddError(fmt.Sprintf("%s: %v", result.Stage, err))
		h.logCase(c, result)
		return result, nil
	}

	result.Dump = q.Dump()
	if fp, err := q.Fingerprint(); err != nil {
		result.AddError(fmt.Sprintf("fingerprint: %v", err))
	} else {
		result.Fingerprint = fp
	}

	if !h.roundTrip(q, result) {
		h.logCase(c, result)
		return result, nil
	}

	if c.Expect.SQL != "" {
		result.Stage = StageCompile
		sqlText, _, err := h.compiler.Compile(q)
		if err != nil {
			result.AddError(fmt.Sprintf("compile: %v", err))
		}
		result.SQL = sqlText
	}

	result.Stage = StageExpect
	for _, err := range checkExpect(q, result, c.Expect) {
		result.AddError(err.Error())
	}
	h.logCase(c, result)
	return result, nil
}

// build parses and validates the case query, recording the stage reached.
func (h *Harness) build(c *Case, result *Result) (*queryir.Query, error) {
	result.Stage = StageParse
	var (
		q   *queryir.Query
		err error
	)
	if c.SQL != "" {
		q, err = sqlparse.Parse(c.SQL)
	} else {
		q, err = dsl.Parse([]byte(c.DSL))
	}
	if err != nil {
		return nil, err
	}

	result.Stage = StageValidate
	if errs := queryir.Validate(q); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return nil, fmt.Errorf("%s", strings.Join(msgs, "; "))
	}
	return q, nil
}

// roundTrip encodes q, decodes the bytes and re-encodes the result.
func (h *Harness) roundTrip(q *queryir.Query, result *Result) bool {
	result.Stage = StageEncode
	data, err := wire.Encode(q)
	if err != nil {
		result.AddError(fmt.Sprintf("encode: %v", err))
		return false
	}
	result.Wire = data

	result.Stage = StageDecode
	decoded, err := wire.Decode(data)
	if err != nil {
		result.AddError(fmt.Sprintf("decode: %v", err))
		return false
	}
	if !q.Equal(decoded) {
		result.AddError((&AssertionError{
			Type:     "round_trip",
			Expected: q.Dump(),
			Actual:   decoded.Dump(),
		}).Error())
		return false
	}

	again, err := wire.Encode(decoded)
	if err != nil {
		result.AddError(fmt.Sprintf("re-encode: %v", err))
		return false
	}
	if !bytes.Equal(data, again) {
		result.AddError((&AssertionError{
			Type:     "stable_encoding",
			Expected: fmt.Sprintf("%x", data),
			Actual:   fmt.Sprintf("%x", again),
		}).Error())
		return false
	}
	return true
}

func (h *Harness) expectFailure(c *Case, err error, result *Result) {
	switch {
	case err == nil:
		result.AddError((&AssertionError{
			Type:     "error",
			Expected: fmt.Sprintf("error containing %q", c.Expect.Error),
			Actual:   "query accepted",
		}).Error())
	case !strings.Contains(err.Error(), c.Expect.Error):
		result.AddError((&AssertionError{
			Type:     "error",
			Expected: fmt.Sprintf("error containing %q", c.Expect.Error),
			Actual:   err.Error(),
		}).Error())
	}
	h.logCase(c, result)
}

func (h *Harness) logCase(c *Case, result *Result) {
	h.logger.Debug("case finished",
		"name", c.Name,
		"pass", result.Pass,
		"stage", string(result.Stage),
		"errors", len(result.Errors))
}
