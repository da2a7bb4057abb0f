package queryir

import (
	"strconv"
	"strings"

	"github.com/roach88/qir/internal/ir"
)

// Dump renders the query as canonical text for logs and golden tests.
//
// Output is deterministic: clauses are joined by single spaces and empty
// clauses are dropped.
//
//	SELECT <proj> FROM <ns> [WHERE ...] [joins] [merges] [ORDER BY f [DESC]] [OFFSET n] [LIMIT n] [REQTOTAL]
//
// Aggregations take priority over SelectFilter in the projection. Dump is not
// a wire contract and is not guaranteed to re-parse.
func (q *Query) Dump() string {
	if q.Describe {
		if len(q.DescribeNamespaces) == 0 {
			return "DESCRIBE *"
		}
		return "DESCRIBE " + strings.Join(q.DescribeNamespaces, ",")
	}
	return joinClauses(
		q.Selection.selectClause(),
		WhereString(q.Entries),
		q.DumpJoined(),
		q.DumpMerged(),
		q.Selection.tailClause(),
	)
}

// DumpJoined renders every joined child:
//
//	INNER JOIN <child> ON <child>.<foreign> = <parent>.<local> [AND ...] [WHERE ...]
func (q *Query) DumpJoined() string {
	parts := make([]string, 0, len(q.JoinQueries))
	for _, jq := range q.JoinQueries {
		parts = append(parts, jq.dumpJoin(q.Namespace))
	}
	return joinClauses(parts...)
}

// DumpMerged renders every merged child as MERGE (<child dump>).
func (q *Query) DumpMerged() string {
	parts := make([]string, 0, len(q.MergeQueries))
	for _, mq := range q.MergeQueries {
		prefix := "MERGE"
		if mq.Type != Merge {
			prefix = "MERGE<" + mq.Type.String() + ">"
		}
		parts = append(parts, prefix+" ("+mq.Dump()+")")
	}
	return joinClauses(parts...)
}

// Dump renders a child query as a standalone SELECT, without join predicates.
func (j *JoinQuery) Dump() string {
	return joinClauses(j.Selection.selectClause(), WhereString(j.Entries), j.Selection.tailClause())
}

func (j *JoinQuery) dumpJoin(parentNamespace string) string {
	var b strings.Builder
	// Merge children never reach here through Query; render no keyword for them.
	if j.Type != Merge {
		b.WriteString(j.Type.String())
		b.WriteByte(' ')
	}
	b.WriteString(j.Namespace)
	if len(j.JoinEntries) > 0 {
		b.WriteString(" ON ")
		for i, e := range j.JoinEntries {
			if i > 0 {
				switch e.Op {
				case OpOr:
					b.WriteString(" OR ")
				case OpNot:
					b.WriteString(" AND NOT ")
				default:
					b.WriteString(" AND ")
				}
			}
			b.WriteString(j.Namespace + "." + e.ForeignField + " " + e.Condition.Symbol() + " " + parentNamespace + "." + e.LocalField)
		}
	}
	return joinClauses(b.String(), WhereString(j.Entries))
}

func (s *Selection) selectClause() string {
	var proj string
	switch {
	case len(s.Aggregations) > 0:
		aggs := make([]string, len(s.Aggregations))
		for i, a := range s.Aggregations {
			name := "<?>"
			if a.Type.Valid() {
				name = a.Type.String()
			}
			aggs[i] = name + "(" + a.Field + ")"
		}
		proj = strings.Join(aggs, ",")
	case len(s.SelectFilter) > 0:
		proj = strings.Join(s.SelectFilter, ",")
	default:
		proj = "*"
	}
	return "SELECT " + proj + " FROM " + s.Namespace
}

func (s *Selection) tailClause() string {
	var parts []string
	if s.SortBy != "" {
		order := "ORDER BY " + s.SortBy
		if len(s.ForcedSortOrder) > 0 {
			order += " " + ir.FormatValue(ir.IRArray(s.ForcedSortOrder))
		}
		if s.SortDesc {
			order += " DESC"
		}
		parts = append(parts, order)
	}
	if s.Offset != 0 {
		parts = append(parts, "OFFSET "+strconv.Itoa(s.Offset))
	}
	if s.HasLimit() {
		parts = append(parts, "LIMIT "+strconv.Itoa(s.Limit))
	}
	switch s.CalcTotal {
	case ModeAccurateTotal:
		parts = append(parts, "REQTOTAL")
	case ModeCachedTotal:
		parts = append(parts, "REQTOTAL CACHED")
	}
	return joinClauses(parts...)
}

func joinClauses(parts ...string) string {
	out := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}
