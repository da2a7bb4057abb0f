package harness

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_TestdataCases(t *testing.T) {
	cases, err := LoadCases("testdata/cases")
	require.NoError(t, err)
	require.NotEmpty(t, cases)

	for _, c := range cases {
		t.Run(c.Name, func(t *testing.T) {
			result, err := Run(c)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestRun_RecordsArtifacts(t *testing.T) {
	result, err := Run(&Case{
		Name:        "artifacts",
		Description: "d",
		SQL:         "select id from items where price > 1 order by id desc",
		Expect:      Expect{SQL: "x"},
	})
	require.NoError(t, err)

	assert.Equal(t, "SELECT id FROM items WHERE price > 1 ORDER BY id DESC", result.Dump)
	assert.NotEmpty(t, result.Wire)
	assert.Len(t, result.Fingerprint, 64)
	assert.Contains(t, result.SQL, `FROM "items"`)
	assert.Equal(t, StageExpect, result.Stage)

	// Only the compiled SQL differed.
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "Assertion failed: sql")
}

func TestRun_ExpectationMismatch(t *testing.T) {
	result, err := Run(&Case{
		Name:        "mismatch",
		Description: "d",
		SQL:         "select * from items",
		Expect:      Expect{Dump: "SELECT * FROM other", Namespace: "other"},
	})
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "Assertion failed: dump")
	assert.Contains(t, result.Errors[0], "Actual: SELECT * FROM items")
	assert.Contains(t, result.Errors[1], "Assertion failed: namespace")
}

func TestRun_ParseFailureWithoutExpectation(t *testing.T) {
	result, err := Run(&Case{Name: "bad", Description: "d", SQL: "select * from"})
	require.NoError(t, err)

	assert.False(t, result.Pass)
	assert.Equal(t, StageParse, result.Stage)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "parse: syntax error")
}

func TestRun_ValidationFailure(t *testing.T) {
	result, err := Run(&Case{
		Name:        "forced",
		Description: "d",
		DSL:         `{"namespace": "items", "limit": 1, "offset": 1, "sort": {"field": "", "values": [1]}}`,
	})
	require.NoError(t, err)

	assert.False(t, result.Pass)
	assert.NotEmpty(t, result.Errors)
}

func TestRun_ExpectedErrorNotRaised(t *testing.T) {
	result, err := Run(&Case{
		Name:        "accepted",
		Description: "d",
		SQL:         "select * from items",
		Expect:      Expect{Error: "syntax error"},
	})
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "Actual: query accepted")
}

func TestRun_ExpectedErrorDiffers(t *testing.T) {
	result, err := Run(&Case{
		Name:        "other error",
		Description: "d",
		SQL:         "select * from items limit abc",
		Expect:      Expect{Error: "offset"},
	})
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "syntax error at or near 'abc'")
}

func TestRun_InvalidCase(t *testing.T) {
	_, err := Run(nil)
	require.Error(t, err)

	_, err = Run(&Case{Name: "n", Description: "d"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid case")
}

func TestRun_CompileUnsupported(t *testing.T) {
	result, err := Run(&Case{
		Name:        "or inner",
		Description: "d",
		DSL: `{"namespace": "a", "join_queries": [{"type": "orinner", "namespace": "b",
			"on": [{"cond": "eq", "left_field": "x", "right_field": "y"}]}]}`,
		Expect: Expect{SQL: "unused"},
	})
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "compile:")
}

func TestHarness_WithLogger(t *testing.T) {
	var buf bytes.Buffer
	h := New(WithLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))))

	result, err := h.Run(&Case{Name: "logged", Description: "d", SQL: "select * from items"})
	require.NoError(t, err)
	assert.True(t, result.Pass)
	assert.Contains(t, buf.String(), "case finished")
	assert.Contains(t, buf.String(), "name=logged")
}
