package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/qir/internal/queryir"
)

// AssertionError is returned when an expectation fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string // dump, namespace, sql, error, round_trip, stable_encoding
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

// checkExpect compares a successfully built query against the expectations
// that are set. Returns all failures (does not fail-fast).
func checkExpect(q *queryir.Query, result *Result, expect Expect) []error {
	var errs []error
	if expect.Dump != "" && result.Dump != expect.Dump {
		errs = append(errs, &AssertionError{Type: "dump", Expected: expect.Dump, Actual: result.Dump})
	}
	if expect.Namespace != "" && q.Namespace != expect.Namespace {
		errs = append(errs, &AssertionError{Type: "namespace", Expected: expect.Namespace, Actual: q.Namespace})
	}
	// Compilation failures were already recorded; compare only produced SQL.
	if expect.SQL != "" && result.SQL != "" && result.SQL != expect.SQL {
		errs = append(errs, &AssertionError{Type: "sql", Expected: expect.SQL, Actual: result.SQL})
	}
	return errs
}
