package dsl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/qir/internal/ir"
	"github.com/roach88/qir/internal/queryir"
)

func TestParse_Full(t *testing.T) {
	doc := `{
		"namespace": "items",
		"limit": 10,
		"offset": 5,
		"req_total": "cached",
		"debug_level": 2,
		"distinct": "brand",
		"filters": [
			{"field": "price", "cond": "gt", "value": 100},
			{"op": "or", "field": "score", "cond": "RANGE", "value": [0.5, 1.5]},
			{"op": "not", "field": "tags", "cond": "set", "value": ["a", "b"]},
			{"field": "point", "cond": "eq", "value": [[1, true]]},
			{"field": "deleted", "cond": "empty"}
		],
		"sort": {"field": "name", "desc": true, "values": ["z", 3]},
		"aggregations": [{"field": "price", "type": "sum"}],
		"select_filter": ["id", "name"],
		"join_queries": [{
			"type": "inner",
			"namespace": "vendors",
			"on": [{"cond": "eq", "left_field": "vendor_id", "right_field": "id"}],
			"filters": [{"field": "active", "cond": "eq", "value": true}]
		}],
		"merge_queries": [{"namespace": "archive", "limit": 3}]
	}`

	q, err := Parse([]byte(doc))
	require.NoError(t, err)

	expected := queryir.New("items")
	expected.Where("price", queryir.CondGt, ir.IRInt(100))
	expected.AddEntry(queryir.QueryEntry{Field: "score", Op: queryir.OpOr, Condition: queryir.CondRange,
		Values: []ir.IRValue{ir.IRFloat(0.5), ir.IRFloat(1.5)}})
	expected.AddEntry(queryir.QueryEntry{Field: "tags", Op: queryir.OpNot, Condition: queryir.CondSet,
		Values: []ir.IRValue{ir.IRString("a"), ir.IRString("b")}})
	expected.Where("point", queryir.CondEq, ir.IRArray{ir.IRInt(1), ir.IRBool(true)})
	expected.Where("deleted", queryir.CondEmpty)
	expected.AddDistinct("brand")
	expected.Sort("name", true, ir.IRString("z"), ir.IRInt(3))
	expected.Aggregate("price", queryir.AggSum)
	expected.Select("id", "name")
	expected.SetLimit(10).SetOffset(5).ReqTotal(queryir.ModeCachedTotal)
	expected.DebugLevel = 2

	join := queryir.NewJoin(queryir.InnerJoin, "vendors")
	join.On("vendor_id", queryir.CondEq, "id")
	join.Where("active", queryir.CondEq, ir.IRBool(true))
	expected.AddJoin(*join)

	merge := queryir.NewJoin(queryir.Merge, "archive")
	merge.SetLimit(3)
	expected.AddMerge(*merge)

	assert.True(t, expected.Equal(q), "want %s\ngot  %s", expected.Dump(), q.Dump())
}

func TestParse_Minimal(t *testing.T) {
	q, err := Parse([]byte(`{"namespace": "items"}`))
	require.NoError(t, err)
	assert.True(t, queryir.New("items").Equal(q))
}

func TestParse_MergeTypeInJoinList(t *testing.T) {
	q, err := Parse([]byte(`{"namespace": "a", "join_queries": [{"type": "merge", "namespace": "b"}]}`))
	require.NoError(t, err)
	assert.Empty(t, q.JoinQueries)
	require.Len(t, q.MergeQueries, 1)
	assert.Equal(t, "b", q.MergeQueries[0].Namespace)
}

func TestParse_SyntaxErrorOffset(t *testing.T) {
	_, err := Parse([]byte(`{"namespace": "items",}`))

	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 23, pe.Offset)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not an object", `[1, 2]`},
		{"missing namespace", `{"limit": 1}`},
		{"empty namespace", `{"namespace": ""}`},
		{"unknown field", `{"namespace": "a", "group_by": "x"}`},
		{"negative limit", `{"namespace": "a", "limit": -1}`},
		{"float limit", `{"namespace": "a", "limit": 1.5}`},
		{"unknown condition", `{"namespace": "a", "filters": [{"field": "f", "cond": "like", "value": 1}]}`},
		{"null value", `{"namespace": "a", "filters": [{"field": "f", "cond": "eq", "value": null}]}`},
		{"range arity", `{"namespace": "a", "filters": [{"field": "f", "cond": "range", "value": [1]}]}`},
		{"eq without value", `{"namespace": "a", "filters": [{"field": "f", "cond": "eq"}]}`},
		{"bad join type", `{"namespace": "a", "join_queries": [{"type": "cross", "namespace": "b"}]}`},
		{"join in merge", `{"namespace": "a", "merge_queries": [{"namespace": "b", "on": []}]}`},
		{"bad req_total", `{"namespace": "a", "req_total": "sometimes"}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			q, err := Parse([]byte(tc.doc))
			assert.Nil(t, q)
			assert.True(t, IsParseError(err), "got %v", err)
		})
	}
}

func TestParse_ValueCountOffset(t *testing.T) {
	doc := `{"namespace": "a", "filters": [{"field": "f", "cond": "range", "value": [1]}]}`

	_, err := Parse([]byte(doc))

	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Greater(t, pe.Offset, 30, "offset points into the filter list")
	assert.Contains(t, pe.Path, "filters")
	assert.Contains(t, pe.Msg, "RANGE")
}

func TestParseError_Error(t *testing.T) {
	assert.Equal(t, "dsl: offset 3: limit: bad", (&ParseError{Offset: 3, Path: "limit", Msg: "bad"}).Error())
	assert.Equal(t, "dsl: bad", (&ParseError{Offset: -1, Msg: "bad"}).Error())
}
