package queryir

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"

	"github.com/roach88/qir/internal/ir"
)

func joinedQuery() *Query {
	q := New("orders")
	q.Where("status", CondEq, ir.IRString("open"))
	q.Select("id", "total")
	q.ReqTotal(ModeCachedTotal)

	left := NewJoin(LeftJoin, "customers")
	left.On("customer_id", CondEq, "id")
	left.AddJoinEntry(JoinEntry{Op: OpOr, Condition: CondEq, LocalField: "alt_id", ForeignField: "id"})
	q.AddJoin(*left)

	refunds := NewJoin(OrInnerJoin, "refunds")
	refunds.On("id", CondEq, "order_id")
	refunds.Where("amount", CondGe, ir.IRFloat(10))
	q.AddJoin(*refunds)
	return q
}

// TestDumpGolden compares rendered queries against golden files.
// Run with -update to regenerate.
func TestDumpGolden(t *testing.T) {
	tests := []struct {
		name  string
		query *Query
	}{
		{"dump_full", sampleQuery()},
		{"dump_joins", joinedQuery()},
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			g.Assert(t, tc.name, []byte(tc.query.Dump()+"\n"))
		})
	}
}

func TestDumpClauses(t *testing.T) {
	tests := []struct {
		name     string
		query    *Query
		expected string
	}{
		{
			name:     "bare",
			query:    New("items"),
			expected: "SELECT * FROM items",
		},
		{
			name: "select example",
			query: func() *Query {
				q := New("items")
				q.Select("id", "name")
				q.Where("price", CondGt, ir.IRInt(100))
				q.Sort("name", true).SetLimit(10)
				return q
			}(),
			expected: "SELECT id,name FROM items WHERE price > 100 ORDER BY name DESC LIMIT 10",
		},
		{
			name: "aggregations win over projection",
			query: func() *Query {
				q := New("items")
				q.Select("id")
				q.Aggregate("price", AggMax).Aggregate("price", AggType(9))
				return q
			}(),
			expected: "SELECT MAX(price),<?>(price) FROM items",
		},
		{
			name: "offset without limit",
			query: func() *Query {
				q := New("items")
				q.SetOffset(20)
				return q
			}(),
			expected: "SELECT * FROM items OFFSET 20",
		},
		{
			name:     "describe all",
			query:    NewDescribe(),
			expected: "DESCRIBE *",
		},
		{
			name:     "describe some",
			query:    NewDescribe("ns1", "ns2"),
			expected: "DESCRIBE ns1,ns2",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.query.Dump())
		})
	}
}

func TestDumpMergedMarksMisplacedType(t *testing.T) {
	q := New("items")
	q.MergeQueries = append(q.MergeQueries, *NewJoin(LeftJoin, "other"))

	assert.Equal(t, "MERGE<LEFT JOIN> (SELECT * FROM other)", q.DumpMerged())
	assert.Equal(t, "", New("items").DumpJoined())
}

func TestDumpIsDeterministic(t *testing.T) {
	q := sampleQuery()
	assert.Equal(t, q.Dump(), q.Clone().Dump())
}
