package queryir

import (
	"math"
	"slices"

	"github.com/roach88/qir/internal/ir"
)

// DefaultLimit is the "unbounded" page size. A Selection whose Limit equals
// DefaultLimit returns every matching row and omits the limit on the wire.
const DefaultLimit = math.MaxInt32

// QueryEntry is one filter predicate.
//
// Op relates the entry to the accumulated result of the entries before it
// (see BuildFilter). The number of Values must match Condition.Arity.
// A Distinct entry marks DISTINCT-on-field and carries no condition or values.
type QueryEntry struct {
	Field     string
	Op        OpType
	Condition CondType
	Values    []ir.IRValue
	Distinct  bool
}

// JoinEntry is one join predicate on a child query:
//
//	<child>.<ForeignField> <Condition> <parent>.<LocalField>
type JoinEntry struct {
	Op           OpType
	Condition    CondType
	LocalField   string // field in the parent namespace
	ForeignField string // field in the joined namespace
}

// AggregateEntry requests an aggregation over a field.
type AggregateEntry struct {
	Field string
	Type  AggType
}

// Selection holds the state shared by root and child queries: target
// namespace, filters, aggregations, sort, paging and projection.
type Selection struct {
	Namespace    string
	Entries      []QueryEntry
	Aggregations []AggregateEntry

	// SortBy is the sort field; empty means unsorted.
	// ForcedSortOrder pins matching values to the front of the result in the
	// given order; rows not listed fall back to SortBy ordering.
	SortBy          string
	SortDesc        bool
	ForcedSortOrder []ir.IRValue

	Offset    int
	Limit     int // DefaultLimit = unbounded
	CalcTotal CalcTotalMode

	// SelectFilter lists projected fields; empty means all fields.
	SelectFilter []string
}

// JoinQuery is a child query embedded in a root Query as a join or merge.
//
// JoinQuery deliberately has no children of its own: nesting depth is
// exactly one level, enforced by the type rather than at decode time.
// Children inherit the DebugLevel of their parent.
type JoinQuery struct {
	Selection
	Type        JoinType
	JoinEntries []JoinEntry
}

// Query is the root of a request.
//
// A Query is built once (by a parser, the wire decoder, or programmatically)
// and then treated as read-only. It is not safe for concurrent mutation.
type Query struct {
	Selection

	// DebugLevel is passed through to execution and applies to children.
	DebugLevel int

	// Describe marks a DESCRIBE request; DescribeNamespaces empty means all.
	Describe           bool
	DescribeNamespaces []string

	JoinQueries  []JoinQuery // joined children, Type != Merge
	MergeQueries []JoinQuery // merged children, Type == Merge
}

// New creates a query on the given namespace with default paging.
func New(namespace string) *Query {
	return &Query{Selection: newSelection(namespace)}
}

// NewDescribe creates a DESCRIBE request. No namespaces means "all".
func NewDescribe(namespaces ...string) *Query {
	q := New("")
	q.Describe = true
	q.DescribeNamespaces = namespaces
	return q
}

// NewJoin creates a child query of the given join type.
func NewJoin(joinType JoinType, namespace string) *JoinQuery {
	return &JoinQuery{Selection: newSelection(namespace), Type: joinType}
}

func newSelection(namespace string) Selection {
	return Selection{Namespace: namespace, Limit: DefaultLimit}
}

// Where appends a filter predicate combined with OpAnd.
func (s *Selection) Where(field string, cond CondType, values ...ir.IRValue) *Selection {
	return s.AddEntry(QueryEntry{Field: field, Op: OpAnd, Condition: cond, Values: values})
}

// AddEntry appends a filter predicate as given.
func (s *Selection) AddEntry(e QueryEntry) *Selection {
	s.Entries = append(s.Entries, e)
	return s
}

// AddDistinct appends a DISTINCT entry for field.
func (s *Selection) AddDistinct(field string) *Selection {
	return s.AddEntry(QueryEntry{Field: field, Op: OpAnd, Condition: CondAny, Distinct: true})
}

// Aggregate appends an aggregation request.
func (s *Selection) Aggregate(field string, aggType AggType) *Selection {
	s.Aggregations = append(s.Aggregations, AggregateEntry{Field: field, Type: aggType})
	return s
}

// Sort sets the sort field, direction and optional forced order.
func (s *Selection) Sort(field string, desc bool, forced ...ir.IRValue) *Selection {
	s.SortBy = field
	s.SortDesc = desc
	s.ForcedSortOrder = forced
	return s
}

// SetLimit sets the page size.
func (s *Selection) SetLimit(limit int) *Selection {
	s.Limit = limit
	return s
}

// SetOffset sets the page start.
func (s *Selection) SetOffset(offset int) *Selection {
	s.Offset = offset
	return s
}

// ReqTotal sets the total-count mode.
func (s *Selection) ReqTotal(mode CalcTotalMode) *Selection {
	s.CalcTotal = mode
	return s
}

// Select appends projected fields.
func (s *Selection) Select(fields ...string) *Selection {
	s.SelectFilter = append(s.SelectFilter, fields...)
	return s
}

// HasLimit reports whether the selection is paged.
func (s *Selection) HasLimit() bool {
	return s.Limit != DefaultLimit
}

// On appends a join predicate to a child query.
func (j *JoinQuery) On(local string, cond CondType, foreign string) *JoinQuery {
	return j.AddJoinEntry(JoinEntry{Op: OpAnd, Condition: cond, LocalField: local, ForeignField: foreign})
}

// AddJoinEntry appends a join predicate as given.
func (j *JoinQuery) AddJoinEntry(e JoinEntry) *JoinQuery {
	j.JoinEntries = append(j.JoinEntries, e)
	return j
}

// AddJoin attaches a child query. Children of type Merge go to MergeQueries,
// everything else to JoinQueries. The child is copied.
func (q *Query) AddJoin(child JoinQuery) *Query {
	if child.Type == Merge {
		q.MergeQueries = append(q.MergeQueries, child.Clone())
	} else {
		q.JoinQueries = append(q.JoinQueries, child.Clone())
	}
	return q
}

// AddMerge attaches a child query as a merge, forcing its type to Merge.
func (q *Query) AddMerge(child JoinQuery) *Query {
	child.Type = Merge
	return q.AddJoin(child)
}

// Children returns joined then merged children in wire order.
func (q *Query) Children() []JoinQuery {
	out := make([]JoinQuery, 0, len(q.JoinQueries)+len(q.MergeQueries))
	out = append(out, q.JoinQueries...)
	return append(out, q.MergeQueries...)
}

// Clone returns a deep copy of the query, including every child.
func (q *Query) Clone() *Query {
	if q == nil {
		return nil
	}
	out := &Query{
		Selection:          q.Selection.clone(),
		DebugLevel:         q.DebugLevel,
		Describe:           q.Describe,
		DescribeNamespaces: slices.Clone(q.DescribeNamespaces),
	}
	out.JoinQueries = cloneJoinQueries(q.JoinQueries)
	out.MergeQueries = cloneJoinQueries(q.MergeQueries)
	return out
}

// Clone returns a deep copy of the child query.
func (j JoinQuery) Clone() JoinQuery {
	return JoinQuery{
		Selection:   j.Selection.clone(),
		Type:        j.Type,
		JoinEntries: slices.Clone(j.JoinEntries),
	}
}

func cloneJoinQueries(in []JoinQuery) []JoinQuery {
	if in == nil {
		return nil
	}
	out := make([]JoinQuery, len(in))
	for i, j := range in {
		out[i] = j.Clone()
	}
	return out
}

func (s Selection) clone() Selection {
	out := s
	if s.Entries != nil {
		out.Entries = make([]QueryEntry, len(s.Entries))
		for i, e := range s.Entries {
			e.Values = ir.CloneValues(e.Values)
			out.Entries[i] = e
		}
	}
	out.Aggregations = slices.Clone(s.Aggregations)
	out.ForcedSortOrder = ir.CloneValues(s.ForcedSortOrder)
	out.SelectFilter = slices.Clone(s.SelectFilter)
	return out
}

// Equal reports structural equality, including children in order.
// Nil and empty sequences compare equal.
func (q *Query) Equal(other *Query) bool {
	if q == nil || other == nil {
		return q == other
	}
	return q.DebugLevel == other.DebugLevel &&
		q.Describe == other.Describe &&
		slices.Equal(q.DescribeNamespaces, other.DescribeNamespaces) &&
		q.Selection.equal(&other.Selection) &&
		slices.EqualFunc(q.JoinQueries, other.JoinQueries, JoinQuery.Equal) &&
		slices.EqualFunc(q.MergeQueries, other.MergeQueries, JoinQuery.Equal)
}

// Equal reports structural equality of two child queries.
func (j JoinQuery) Equal(other JoinQuery) bool {
	return j.Type == other.Type &&
		slices.Equal(j.JoinEntries, other.JoinEntries) &&
		j.Selection.equal(&other.Selection)
}

func (s *Selection) equal(o *Selection) bool {
	return s.Namespace == o.Namespace &&
		slices.EqualFunc(s.Entries, o.Entries, QueryEntry.Equal) &&
		slices.Equal(s.Aggregations, o.Aggregations) &&
		s.SortBy == o.SortBy &&
		s.SortDesc == o.SortDesc &&
		ir.EqualValueSlices(s.ForcedSortOrder, o.ForcedSortOrder) &&
		s.Offset == o.Offset &&
		s.Limit == o.Limit &&
		s.CalcTotal == o.CalcTotal &&
		slices.Equal(s.SelectFilter, o.SelectFilter)
}

// Equal reports structural equality of two entries.
func (e QueryEntry) Equal(o QueryEntry) bool {
	return e.Field == o.Field &&
		e.Op == o.Op &&
		e.Condition == o.Condition &&
		e.Distinct == o.Distinct &&
		ir.EqualValueSlices(e.Values, o.Values)
}
