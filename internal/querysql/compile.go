package querysql

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/qir/internal/ir"
	"github.com/roach88/qir/internal/queryir"
)

// ErrUnsupported marks queries that have no SQLite translation.
var ErrUnsupported = errors.New("unsupported by SQL backend")

// SQLCompiler compiles queries to parameterized SQL for SQLite.
//
// CRITICAL: every non-aggregate, non-merge query ends with a rowid
// tie-break so results are deterministic.
// CRITICAL: values are always bound as parameters, never interpolated.
// Identifiers are double-quoted.
type SQLCompiler struct{}

// NewSQLCompiler creates a new SQLCompiler.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{}
}

// Compile converts a query to SQL and its parameters.
//
// Namespaces map to tables and fields to columns. Joined children become
// INNER or LEFT JOINs whose ON clause holds both the join predicates and
// the child's own filter. Merged children are appended with UNION ALL using
// the root's projection. DESCRIBE lists tables from sqlite_schema.
func (c *SQLCompiler) Compile(q *queryir.Query) (string, []any, error) {
	if q == nil {
		return "", nil, fmt.Errorf("cannot compile nil query")
	}
	if errs := queryir.Validate(q); len(errs) > 0 {
		return "", nil, fmt.Errorf("compile: invalid query: %w", errs[0])
	}
	if q.Describe {
		return c.compileDescribe(q)
	}

	b := &builder{}
	if err := c.compileBody(b, q); err != nil {
		return "", nil, err
	}
	if len(q.Aggregations) == 0 {
		if err := c.compileOrder(b, q); err != nil {
			return "", nil, err
		}
		c.compilePaging(b, &q.Selection)
	}
	return b.String(), b.params, nil
}

// CompileCount returns SQL counting every row the query matches, ignoring
// paging and sort. It serves total-count requests.
func (c *SQLCompiler) CompileCount(q *queryir.Query) (string, []any, error) {
	if q == nil {
		return "", nil, fmt.Errorf("cannot compile nil query")
	}
	if q.Describe {
		return "", nil, fmt.Errorf("count of DESCRIBE: %w", ErrUnsupported)
	}
	if errs := queryir.Validate(q); len(errs) > 0 {
		return "", nil, fmt.Errorf("compile: invalid query: %w", errs[0])
	}

	inner := &builder{}
	if err := c.compileBody(inner, q); err != nil {
		return "", nil, err
	}
	return "SELECT COUNT(*) FROM (" + inner.String() + ")", inner.params, nil
}

func (c *SQLCompiler) compileDescribe(q *queryir.Query) (string, []any, error) {
	b := &builder{}
	b.write("SELECT name FROM sqlite_schema WHERE type = 'table' AND name NOT LIKE 'sqlite_%'")
	if len(q.DescribeNamespaces) > 0 {
		b.write(" AND name IN (")
		for i, ns := range q.DescribeNamespaces {
			if i > 0 {
				b.write(", ")
			}
			b.bind(ns)
		}
		b.write(")")
	}
	b.write(" ORDER BY name ASC")
	return b.String(), b.params, nil
}

// compileBody writes the SELECT (and any UNION ALL parts) without ORDER BY
// or paging.
func (c *SQLCompiler) compileBody(b *builder, q *queryir.Query) error {
	if len(q.MergeQueries) > 0 && len(q.Aggregations) > 0 {
		return fmt.Errorf("aggregation over merged queries: %w", ErrUnsupported)
	}

	root := quoteIdent(q.Namespace)
	b.write("SELECT " + c.projection(&q.Selection, root) + " FROM " + root)

	for i := range q.JoinQueries {
		if err := c.compileJoin(b, &q.JoinQueries[i], root, i); err != nil {
			return err
		}
	}
	if err := c.compileWhere(b, q.Entries, root); err != nil {
		return err
	}
	c.compileGroupBy(b, q.Entries, root)

	for i := range q.MergeQueries {
		mq := &q.MergeQueries[i]
		table := quoteIdent(mq.Namespace)
		b.write(" UNION ALL SELECT " + c.projection(&q.Selection, table) + " FROM " + table)
		if err := c.compileWhere(b, mq.Entries, table); err != nil {
			return fmt.Errorf("merge %s: %w", mq.Namespace, err)
		}
		c.compileGroupBy(b, mq.Entries, table)
	}
	return nil
}

// projection renders aggregates, the selected fields, or table.*.
func (c *SQLCompiler) projection(s *queryir.Selection, table string) string {
	if len(s.Aggregations) > 0 {
		parts := make([]string, len(s.Aggregations))
		for i, a := range s.Aggregations {
			alias := strings.ToLower(a.Type.String()) + "_" + a.Field
			parts[i] = fmt.Sprintf("%s(%s) AS %s", a.Type, column(table, a.Field), quoteIdent(alias))
		}
		return strings.Join(parts, ", ")
	}
	if len(s.SelectFilter) == 0 {
		return table + ".*"
	}
	parts := make([]string, len(s.SelectFilter))
	for i, f := range s.SelectFilter {
		parts[i] = column(table, f)
	}
	return strings.Join(parts, ", ")
}

func (c *SQLCompiler) compileJoin(b *builder, jq *queryir.JoinQuery, root string, idx int) error {
	var keyword string
	switch jq.Type {
	case queryir.InnerJoin:
		keyword = " INNER JOIN "
	case queryir.LeftJoin:
		keyword = " LEFT JOIN "
	default:
		return fmt.Errorf("%s %s: %w", jq.Type, jq.Namespace, ErrUnsupported)
	}
	if len(jq.JoinEntries) == 0 {
		return fmt.Errorf("join %s has no ON predicate: %w", jq.Namespace, ErrUnsupported)
	}

	alias := quoteIdent("j" + strconv.Itoa(idx))
	b.write(keyword + quoteIdent(jq.Namespace) + " AS " + alias + " ON (")
	for i, e := range jq.JoinEntries {
		if i > 0 {
			switch e.Op {
			case queryir.OpOr:
				b.write(" OR ")
			case queryir.OpNot:
				b.write(" AND NOT ")
			default:
				b.write(" AND ")
			}
		}
		sym, ok := comparisonOps[e.Condition]
		if !ok {
			return fmt.Errorf("join condition %s: %w", e.Condition, ErrUnsupported)
		}
		b.write(column(alias, e.ForeignField) + " " + sym + " " + column(root, e.LocalField))
	}
	b.write(")")

	if filter := queryir.BuildFilter(jq.Entries); filter != nil {
		b.write(" AND (")
		if err := c.compilePredicate(b, filter, alias); err != nil {
			return fmt.Errorf("join %s: %w", jq.Namespace, err)
		}
		b.write(")")
	}
	return nil
}

func (c *SQLCompiler) compileWhere(b *builder, entries []queryir.QueryEntry, table string) error {
	filter := queryir.BuildFilter(entries)
	if filter == nil {
		return nil
	}
	b.write(" WHERE ")
	return c.compilePredicate(b, filter, table)
}

// compileGroupBy turns DISTINCT entries into GROUP BY so each distinct
// value yields one row.
func (c *SQLCompiler) compileGroupBy(b *builder, entries []queryir.QueryEntry, table string) {
	var cols []string
	for _, e := range entries {
		if e.Distinct {
			cols = append(cols, column(table, e.Field))
		}
	}
	if len(cols) > 0 {
		b.write(" GROUP BY " + strings.Join(cols, ", "))
	}
}

var comparisonOps = map[queryir.CondType]string{
	queryir.CondEq: "=",
	queryir.CondLt: "<",
	queryir.CondLe: "<=",
	queryir.CondGt: ">",
	queryir.CondGe: ">=",
}

// compilePredicate writes a filter tree. Nested And/Or nodes are
// parenthesized.
// CRITICAL: values are bound, never interpolated.
func (c *SQLCompiler) compilePredicate(b *builder, p queryir.Predicate, table string) error {
	switch pred := p.(type) {
	case queryir.Cond:
		return c.compileCond(b, pred, table)
	case queryir.And:
		return c.compileJunction(b, pred.Predicates, " AND ", table)
	case queryir.Or:
		return c.compileJunction(b, pred.Predicates, " OR ", table)
	case queryir.Not:
		b.write("NOT (")
		if err := c.compilePredicate(b, pred.Predicate, table); err != nil {
			return err
		}
		b.write(")")
		return nil
	default:
		return fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func (c *SQLCompiler) compileJunction(b *builder, preds []queryir.Predicate, sep, table string) error {
	for i, p := range preds {
		if i > 0 {
			b.write(sep)
		}
		_, nested := p.(queryir.Cond)
		if !nested {
			b.write("(")
		}
		if err := c.compilePredicate(b, p, table); err != nil {
			return err
		}
		if !nested {
			b.write(")")
		}
	}
	return nil
}

func (c *SQLCompiler) compileCond(b *builder, cond queryir.Cond, table string) error {
	col := column(table, cond.Field)
	params := make([]any, len(cond.Values))
	for i, v := range cond.Values {
		p, err := irValueToParam(v)
		if err != nil {
			return fmt.Errorf("field %s: %w", cond.Field, err)
		}
		params[i] = p
	}

	switch cond.Condition {
	case queryir.CondAny:
		b.write(col + " IS NOT NULL")
	case queryir.CondEmpty:
		b.write(col + " IS NULL")
	case queryir.CondRange:
		b.write(col + " BETWEEN ")
		b.bind(params[0])
		b.write(" AND ")
		b.bind(params[1])
	case queryir.CondSet:
		b.write(col + " IN (")
		for i, p := range params {
			if i > 0 {
				b.write(", ")
			}
			b.bind(p)
		}
		b.write(")")
	default:
		sym, ok := comparisonOps[cond.Condition]
		if !ok {
			return fmt.Errorf("condition %s: %w", cond.Condition, ErrUnsupported)
		}
		b.write(col + " " + sym + " ")
		b.bind(params[0])
	}
	return nil
}

// compileOrder writes ORDER BY: forced values first (in the given order),
// then the sort field, then the rowid tie-break. Compound (merged) queries
// can only order by result columns, so they get no forced order and no
// tie-break.
func (c *SQLCompiler) compileOrder(b *builder, q *queryir.Query) error {
	root := quoteIdent(q.Namespace)
	merged := len(q.MergeQueries) > 0
	var terms []string

	if q.SortBy != "" {
		col := column(root, q.SortBy)
		if merged {
			col = quoteIdent(q.SortBy)
		}
		if len(q.ForcedSortOrder) > 0 {
			if merged {
				return fmt.Errorf("forced sort order with merged queries: %w", ErrUnsupported)
			}
			var cs strings.Builder
			cs.WriteString("CASE " + col)
			for i, v := range q.ForcedSortOrder {
				p, err := irValueToParam(v)
				if err != nil {
					return fmt.Errorf("forced sort order: %w", err)
				}
				cs.WriteString(" WHEN ? THEN " + strconv.Itoa(i))
				b.params = append(b.params, p)
			}
			cs.WriteString(" ELSE " + strconv.Itoa(len(q.ForcedSortOrder)) + " END ASC")
			terms = append(terms, cs.String())
		}
		dir := " ASC"
		if q.SortDesc {
			dir = " DESC"
		}
		terms = append(terms, col+dir)
	}
	if !merged {
		terms = append(terms, root+".rowid ASC")
	}
	if len(terms) > 0 {
		b.write(" ORDER BY " + strings.Join(terms, ", "))
	}
	return nil
}

// compilePaging writes LIMIT/OFFSET. SQLite needs a LIMIT before OFFSET;
// -1 means unbounded.
func (c *SQLCompiler) compilePaging(b *builder, s *queryir.Selection) {
	if !s.HasLimit() && s.Offset == 0 {
		return
	}
	limit := int64(-1)
	if s.HasLimit() {
		limit = int64(s.Limit)
	}
	b.write(" LIMIT ")
	b.bind(limit)
	if s.Offset != 0 {
		b.write(" OFFSET ")
		b.bind(int64(s.Offset))
	}
}

// builder accumulates SQL text and parameters in placeholder order.
type builder struct {
	sql    strings.Builder
	params []any
}

func (b *builder) write(s string) { b.sql.WriteString(s) }

func (b *builder) bind(p any) {
	b.sql.WriteByte('?')
	b.params = append(b.params, p)
}

func (b *builder) String() string { return b.sql.String() }

// quoteIdent double-quotes an SQL identifier.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// column qualifies a field with its table. A field already written as
// "table.field" keeps its own qualifier.
func column(table, field string) string {
	if t, f, ok := strings.Cut(field, "."); ok {
		return quoteIdent(t) + "." + quoteIdent(f)
	}
	return table + "." + quoteIdent(field)
}

// irValueToParam converts a scalar value to a Go type accepted by
// database/sql. Tuples have no SQL parameter form.
func irValueToParam(v ir.IRValue) (any, error) {
	switch val := v.(type) {
	case ir.IRString:
		return string(val), nil
	case ir.IRInt:
		return int64(val), nil
	case ir.IRFloat:
		return float64(val), nil
	case ir.IRBool:
		return bool(val), nil
	case ir.IRArray:
		return nil, fmt.Errorf("tuple value: %w", ErrUnsupported)
	default:
		return nil, fmt.Errorf("unsupported IRValue type for SQL parameter: %T", v)
	}
}
