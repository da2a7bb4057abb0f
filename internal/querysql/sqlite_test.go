package querysql

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/qir/internal/ir"
	"github.com/roach88/qir/internal/queryir"
)

const fixtureSchema = `
CREATE TABLE items (id INTEGER, name TEXT, price REAL, brand TEXT, vendor_id INTEGER);
CREATE TABLE vendors (id INTEGER, name TEXT, active BOOLEAN);
CREATE TABLE archive (id INTEGER, name TEXT, price REAL, brand TEXT, vendor_id INTEGER);

INSERT INTO items VALUES
	(1, 'apple', 1.5, 'acme', 10),
	(2, 'banana', 0.5, 'acme', 20),
	(3, 'cherry', 3.0, 'zest', 10),
	(4, 'date', 2.0, NULL, 30);
INSERT INTO vendors VALUES (10, 'north', 1), (20, 'south', 0);
INSERT INTO archive VALUES (5, 'elder', 4.0, 'acme', 10);
`

// openFixture returns an in-memory database loaded with fixtureSchema.
func openFixture(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	// A second connection would see a different in-memory database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(fixtureSchema)
	require.NoError(t, err)
	return db
}

// column0 runs the query and returns the first column of every row.
func column0(t *testing.T, db *sql.DB, q *queryir.Query) []string {
	t.Helper()
	sqlText, params, err := NewSQLCompiler().Compile(q)
	require.NoError(t, err)

	rows, err := db.Query(sqlText, params...)
	require.NoError(t, err, sqlText)
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s sql.NullString
		require.NoError(t, rows.Scan(&s))
		out = append(out, s.String)
	}
	require.NoError(t, rows.Err())
	return out
}

func TestSQLite_Execution(t *testing.T) {
	db := openFixture(t)

	tests := []struct {
		name  string
		query func() *queryir.Query
		want  []string
	}{
		{
			name: "filter and sort",
			query: func() *queryir.Query {
				q := queryir.New("items")
				q.Select("name")
				q.Where("price", queryir.CondGt, ir.IRInt(1))
				q.Sort("name", true)
				return q
			},
			want: []string{"date", "cherry", "apple"},
		},
		{
			name: "paging",
			query: func() *queryir.Query {
				q := queryir.New("items")
				q.Select("name")
				q.SetLimit(2).SetOffset(1)
				return q
			},
			want: []string{"banana", "cherry"},
		},
		{
			name: "inner join with child filter",
			query: func() *queryir.Query {
				q := queryir.New("items")
				q.Select("name")
				j := queryir.NewJoin(queryir.InnerJoin, "vendors")
				j.On("vendor_id", queryir.CondEq, "id")
				j.Where("active", queryir.CondEq, ir.IRBool(true))
				q.AddJoin(*j)
				return q
			},
			want: []string{"apple", "cherry"},
		},
		{
			name: "left join keeps unmatched rows",
			query: func() *queryir.Query {
				q := queryir.New("items")
				q.Select("name")
				j := queryir.NewJoin(queryir.LeftJoin, "vendors")
				j.On("vendor_id", queryir.CondEq, "id")
				q.AddJoin(*j)
				return q
			},
			want: []string{"apple", "banana", "cherry", "date"},
		},
		{
			name: "forced order first",
			query: func() *queryir.Query {
				q := queryir.New("items")
				q.Select("name")
				q.Sort("name", false, ir.IRString("cherry"), ir.IRString("banana"))
				return q
			},
			want: []string{"cherry", "banana", "apple", "date"},
		},
		{
			name: "or then not",
			query: func() *queryir.Query {
				q := queryir.New("items")
				q.Select("name")
				q.Where("brand", queryir.CondEq, ir.IRString("acme"))
				q.AddEntry(queryir.QueryEntry{Field: "brand", Op: queryir.OpOr, Condition: queryir.CondEq, Values: []ir.IRValue{ir.IRString("zest")}})
				q.AddEntry(queryir.QueryEntry{Field: "name", Op: queryir.OpNot, Condition: queryir.CondEq, Values: []ir.IRValue{ir.IRString("apple")}})
				return q
			},
			want: []string{"banana", "cherry"},
		},
		{
			name: "null checks",
			query: func() *queryir.Query {
				q := queryir.New("items")
				q.Select("name")
				q.Where("brand", queryir.CondEmpty)
				return q
			},
			want: []string{"date"},
		},
		{
			name: "merge",
			query: func() *queryir.Query {
				q := queryir.New("items")
				q.Select("name")
				q.Where("price", queryir.CondGt, ir.IRInt(2))
				q.Sort("name", true)
				m := queryir.NewJoin(queryir.Merge, "archive")
				m.Where("price", queryir.CondGt, ir.IRInt(2))
				q.AddMerge(*m)
				return q
			},
			want: []string{"elder", "cherry"},
		},
		{
			name:  "describe",
			query: func() *queryir.Query { return queryir.NewDescribe() },
			want:  []string{"archive", "items", "vendors"},
		},
		{
			name:  "describe some",
			query: func() *queryir.Query { return queryir.NewDescribe("vendors", "missing") },
			want:  []string{"vendors"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, column0(t, db, tc.query()))
		})
	}
}

func TestSQLite_Distinct(t *testing.T) {
	db := openFixture(t)
	q := queryir.New("items")
	q.Select("brand")
	q.AddDistinct("brand")

	assert.Len(t, column0(t, db, q), 3)
}

func TestSQLite_AggregateAndCount(t *testing.T) {
	db := openFixture(t)
	compiler := NewSQLCompiler()

	q := queryir.New("items")
	q.Aggregate("price", queryir.AggSum)
	q.Where("brand", queryir.CondEq, ir.IRString("acme"))
	sqlText, params, err := compiler.Compile(q)
	require.NoError(t, err)

	var sum float64
	require.NoError(t, db.QueryRow(sqlText, params...).Scan(&sum))
	assert.InDelta(t, 2.0, sum, 1e-9)

	count := queryir.New("items")
	count.Where("price", queryir.CondGt, ir.IRInt(1))
	count.SetLimit(1)
	sqlText, params, err = compiler.CompileCount(count)
	require.NoError(t, err)

	var n int64
	require.NoError(t, db.QueryRow(sqlText, params...).Scan(&n))
	assert.Equal(t, int64(3), n)
}
