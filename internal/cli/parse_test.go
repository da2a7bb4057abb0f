package cli

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommand_Text(t *testing.T) {
	out, err := executeCommand(t, nil, "parse", "select * from items where price > 100 limit 10")
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM items WHERE price > 100 LIMIT 10\n", out)
}

func TestParseCommand_WireAndSQL(t *testing.T) {
	out, err := executeCommand(t, nil, "parse", "select * from items where price > 100 limit 10", "--wire", "--sql")
	require.NoError(t, err)

	assert.Contains(t, out, "wire: 056974656d730005707269636504080200c80108140e0014\n")
	assert.Contains(t, out, `sql: SELECT "items".* FROM "items" WHERE "items"."price" > ? ORDER BY "items".rowid ASC LIMIT ?`)
	assert.Contains(t, out, "params: [100 10]")
}

func TestParseCommand_JSON(t *testing.T) {
	out, err := executeCommand(t, nil, "--format", "json", "parse", "describe items, orders")
	require.NoError(t, err)

	var view QueryView
	resp := decodeResponse(t, out, &view)
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, view.Describe)
	assert.Equal(t, "DESCRIBE items,orders", view.Dump)
	assert.Len(t, view.Fingerprint, 64)
	assert.Empty(t, view.Wire)
}

func TestParseCommand_SyntaxError(t *testing.T) {
	out, err := executeCommand(t, nil, "parse", "select * from items limit abc")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [E301]: syntax error at or near 'abc' (pos 26)")
}

func TestParseCommand_SyntaxErrorJSON(t *testing.T) {
	out, err := executeCommand(t, nil, "--format", "json", "parse", "select * from items limit abc")
	require.Error(t, err)

	resp := decodeResponse(t, out, nil)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeSyntax, resp.Error.Code)
	details, ok := resp.Error.Details.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "abc", details["token"])
	assert.Equal(t, float64(26), details["pos"])
}

func TestParseCommand_AggregateSQL(t *testing.T) {
	out, err := executeCommand(t, nil, "parse", "select sum(price) from items", "--sql")
	require.NoError(t, err)
	assert.Contains(t, out, "SELECT SUM(price) FROM items\n")
	assert.Contains(t, out, `SUM("items"."price") AS "sum_price"`)
}

func TestParseCommand_MissingArg(t *testing.T) {
	_, err := executeCommand(t, nil, "parse")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestDSLCommand_File(t *testing.T) {
	path := writeFile(t, t.TempDir(), "q.json", []byte(`{
		"namespace": "orders",
		"filters": [{"field": "status", "cond": "eq", "value": "open"}],
		"join_queries": [{
			"type": "left",
			"namespace": "customers",
			"on": [{"cond": "eq", "left_field": "customer_id", "right_field": "id"}]
		}]
	}`))

	out, err := executeCommand(t, nil, "dsl", path)
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT * FROM orders WHERE status = 'open' LEFT JOIN customers ON customers.id = orders.customer_id\n",
		out)
}

func TestDSLCommand_Stdin(t *testing.T) {
	out, err := executeCommand(t, strings.NewReader(`{"namespace": "items", "limit": 5}`), "dsl", "-")
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM items LIMIT 5\n", out)
}

func TestDSLCommand_SyntaxError(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bad.json", []byte(`{"namespace": "items",}`))

	out, err := executeCommand(t, nil, "dsl", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [E302]: dsl: offset 23")
}

func TestDSLCommand_MissingFile(t *testing.T) {
	out, err := executeCommand(t, nil, "dsl", "/nonexistent/q.json")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E005]")
}
