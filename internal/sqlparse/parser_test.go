package sqlparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/qir/internal/ir"
	"github.com/roach88/qir/internal/queryir"
)

func TestParse_SelectExample(t *testing.T) {
	q, err := Parse("select id,name from items where price > 100 order by name desc limit 10")
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "name"}, q.SelectFilter)
	assert.Equal(t, "items", q.Namespace)
	require.Len(t, q.Entries, 1)
	assert.Equal(t, queryir.QueryEntry{
		Field:     "price",
		Op:        queryir.OpAnd,
		Condition: queryir.CondGt,
		Values:    []ir.IRValue{ir.IRInt(100)},
	}, q.Entries[0])
	assert.Equal(t, "name", q.SortBy)
	assert.True(t, q.SortDesc)
	assert.Equal(t, 10, q.Limit)
	assert.Equal(t, 0, q.Offset)
	assert.False(t, q.Describe)
	assert.Empty(t, queryir.Validate(q))
}

func TestParse_Describe(t *testing.T) {
	q, err := Parse("describe ns1,ns2")
	require.NoError(t, err)
	assert.True(t, q.Describe)
	assert.Equal(t, []string{"ns1", "ns2"}, q.DescribeNamespaces)

	q, err = Parse("DESCRIBE *")
	require.NoError(t, err)
	assert.True(t, q.Describe)
	assert.Empty(t, q.DescribeNamespaces)
	assert.Equal(t, "DESCRIBE *", q.Dump())
}

func TestParse_MalformedLimit(t *testing.T) {
	q, err := Parse("select * from items limit abc")

	assert.Nil(t, q)
	require.Error(t, err)
	var se *SyntaxError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "abc", se.Token)
	assert.Equal(t, 26, se.Pos)
	assert.Contains(t, err.Error(), "abc")
}

func TestParse_CountBounds(t *testing.T) {
	tests := []struct {
		name  string
		input string
		token string
	}{
		{"limit above int32", "select * from items limit 3000000000", "3000000000"},
		{"offset above int32", "select * from items offset 2147483648", "2147483648"},
		{"limit above int64", "select * from items limit 99999999999999999999", "99999999999999999999"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			q, err := Parse(tc.input)
			assert.Nil(t, q)
			var se *SyntaxError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tc.token, se.Token)
			assert.Contains(t, se.Msg, "exceeds 2147483647")
		})
	}

	q, err := Parse("select * from items offset 2147483647")
	require.NoError(t, err)
	assert.Equal(t, 2147483647, q.Offset)
}

func TestParse_Clauses(t *testing.T) {
	tests := []struct {
		name  string
		input string
		check func(t *testing.T, q *queryir.Query)
	}{
		{
			name:  "star projection keeps default paging",
			input: "select * from items",
			check: func(t *testing.T, q *queryir.Query) {
				assert.Empty(t, q.SelectFilter)
				assert.Equal(t, queryir.DefaultLimit, q.Limit)
				assert.Equal(t, "SELECT * FROM items", q.Dump())
			},
		},
		{
			name:  "offset and ascending order",
			input: "SELECT * FROM Items ORDER BY Price ASC OFFSET 5",
			check: func(t *testing.T, q *queryir.Query) {
				assert.Equal(t, "Items", q.Namespace, "identifiers keep case")
				assert.Equal(t, "Price", q.SortBy)
				assert.False(t, q.SortDesc)
				assert.Equal(t, 5, q.Offset)
			},
		},
		{
			name:  "last limit wins",
			input: "select * from items limit 5 limit 7",
			check: func(t *testing.T, q *queryir.Query) {
				assert.Equal(t, 7, q.Limit)
			},
		},
		{
			name:  "aggregates in projection",
			input: "select sum(price), max(price) from items",
			check: func(t *testing.T, q *queryir.Query) {
				assert.Equal(t, []queryir.AggregateEntry{
					{Field: "price", Type: queryir.AggSum},
					{Field: "price", Type: queryir.AggMax},
				}, q.Aggregations)
				assert.Empty(t, q.SelectFilter)
			},
		},
		{
			name:  "field named like an aggregate",
			input: "select sum from items",
			check: func(t *testing.T, q *queryir.Query) {
				assert.Equal(t, []string{"sum"}, q.SelectFilter)
				assert.Empty(t, q.Aggregations)
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			q, err := Parse(tc.input)
			require.NoError(t, err)
			tc.check(t, q)
		})
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		token string
	}{
		{"unknown statement", "update items", "update"},
		{"empty input", "", ""},
		{"missing from", "select * items", "items"},
		{"namespace must be a name", "select * from 42", "42"},
		{"negative limit", "select * from items limit -1", "-1"},
		{"float offset", "select * from items offset 1.5", "1.5"},
		{"unknown clause", "select * from items group by a", "group"},
		{"order without by", "select * from items order name", "name"},
		{"describe trailing comma", "describe ns1,", ""},
		{"describe star with more", "describe * ns1", "ns1"},
		{"describe junk", "describe ns1 ns2", "ns2"},
		{"bad condition", "select * from items where a like 'x'", "like"},
		{"dangling and", "select * from items where a = 1 and", ""},
		{"range arity", "select * from items where a range (1)", "range"},
		{"empty in", "select * from items where a in ()", "in"},
		{"or not", "select * from items where a = 1 or not b = 2", "not"},
		{"is without null", "select * from items where a is 5", "5"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			q, err := Parse(tc.input)
			assert.Nil(t, q)
			var se *SyntaxError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tc.token, se.Token)
		})
	}
}
