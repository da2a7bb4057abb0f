package queryir

import (
	"fmt"

	"github.com/roach88/qir/internal/ir"
)

// Fingerprint returns a stable content hash of the query.
//
// Two queries that are Equal, apart from DebugLevel, have the same
// fingerprint. DebugLevel changes diagnostics only and is excluded.
func (q *Query) Fingerprint() (string, error) {
	canonical, err := ir.MarshalCanonical(q.toCanonicalMap())
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	return ir.HashWithDomain(ir.DomainQuery, canonical), nil
}

// toCanonicalMap converts the query to the map shape accepted by
// ir.MarshalCanonical. Empty fields are omitted.
func (q *Query) toCanonicalMap() map[string]any {
	m := selectionMap(&q.Selection)
	if q.Describe {
		m["describe"] = true
		m["describe_namespaces"] = q.DescribeNamespaces
	}
	if len(q.JoinQueries) > 0 {
		m["join_queries"] = childMaps(q.JoinQueries)
	}
	if len(q.MergeQueries) > 0 {
		m["merge_queries"] = childMaps(q.MergeQueries)
	}
	return m
}

func childMaps(children []JoinQuery) []any {
	out := make([]any, len(children))
	for i := range children {
		jq := &children[i]
		m := selectionMap(&jq.Selection)
		m["type"] = int(jq.Type)
		if len(jq.JoinEntries) > 0 {
			on := make([]any, len(jq.JoinEntries))
			for k, e := range jq.JoinEntries {
				on[k] = map[string]any{
					"op":            int(e.Op),
					"cond":          int(e.Condition),
					"local_field":   e.LocalField,
					"foreign_field": e.ForeignField,
				}
			}
			m["on"] = on
		}
		out[i] = m
	}
	return out
}

func selectionMap(s *Selection) map[string]any {
	m := map[string]any{
		"namespace": s.Namespace,
		"limit":     s.Limit,
		"offset":    s.Offset,
		"req_total": int(s.CalcTotal),
	}
	if len(s.Entries) > 0 {
		entries := make([]any, len(s.Entries))
		for i, e := range s.Entries {
			entry := map[string]any{
				"field": e.Field,
				"op":    int(e.Op),
				"cond":  int(e.Condition),
			}
			if e.Distinct {
				entry["distinct"] = true
			}
			if len(e.Values) > 0 {
				entry["values"] = kindedValues(e.Values)
			}
			entries[i] = entry
		}
		m["entries"] = entries
	}
	if len(s.Aggregations) > 0 {
		aggs := make([]any, len(s.Aggregations))
		for i, a := range s.Aggregations {
			aggs[i] = map[string]any{"field": a.Field, "type": int(a.Type)}
		}
		m["aggregations"] = aggs
	}
	if s.SortBy != "" {
		sort := map[string]any{"field": s.SortBy, "desc": s.SortDesc}
		if len(s.ForcedSortOrder) > 0 {
			sort["values"] = kindedValues(s.ForcedSortOrder)
		}
		m["sort"] = sort
	}
	if len(s.SelectFilter) > 0 {
		m["select_filter"] = s.SelectFilter
	}
	return m
}

// kindedValues tags every value with its kind so that IRInt(1) and
// IRFloat(1), which are not Equal, never share a fingerprint.
func kindedValues(vals []ir.IRValue) []any {
	out := make([]any, len(vals))
	for i, v := range vals {
		out[i] = kindedValue(v)
	}
	return out
}

func kindedValue(v ir.IRValue) any {
	switch val := v.(type) {
	case ir.IRInt:
		return map[string]any{"k": "int", "v": val}
	case ir.IRFloat:
		return map[string]any{"k": "float", "v": val}
	case ir.IRString:
		return map[string]any{"k": "string", "v": val}
	case ir.IRBool:
		return map[string]any{"k": "bool", "v": val}
	case ir.IRArray:
		return map[string]any{"k": "array", "v": kindedValues(val)}
	}
	// Unknown kinds are rejected by MarshalCanonical.
	return v
}
