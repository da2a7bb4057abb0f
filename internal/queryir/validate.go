package queryir

import (
	"fmt"
	"math"

	"github.com/roach88/qir/internal/ir"
)

// Validation error codes (E200-E299)
const (
	ErrNamespaceRequired  = "E201" // non-describe query without namespace
	ErrValueCount         = "E202" // value count does not match condition
	ErrInvalidEnum        = "E203" // condition/op/agg/join/total out of range
	ErrInvalidValue       = "E204" // nil or nested composite value
	ErrNegativePaging     = "E205" // limit, offset or debug level outside [0, MaxInt32]
	ErrDescribeExclusive  = "E206" // describe combined with query clauses
	ErrForcedSortNoField  = "E207" // forced sort order without SortBy
	ErrChildMisplaced     = "E208" // Merge child in JoinQueries or vice versa
	ErrFieldRequired      = "E209" // empty field name
	ErrDistinctWithValues = "E210" // distinct entry carrying values, an op other than AND or a condition
)

// ValidationError represents a violated query invariant.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a query against the model invariants.
// Returns all errors found (does not fail-fast); nil means valid.
//
// Validate is a pure function with no side effects.
func Validate(q *Query) []ValidationError {
	v := &validator{}
	if q == nil {
		v.add("query", ErrNamespaceRequired, "nil query")
		return v.errs
	}

	v.checkRange("query.debug_level", "debug level", q.DebugLevel)
	if q.Describe {
		v.validateDescribe(q)
		return v.errs
	}

	v.validateSelection("query", &q.Selection)
	for i := range q.JoinQueries {
		path := fmt.Sprintf("join_queries[%d]", i)
		jq := &q.JoinQueries[i]
		if jq.Type == Merge {
			v.add(path+".type", ErrChildMisplaced, "merge child stored as join")
		}
		v.validateChild(path, jq)
	}
	for i := range q.MergeQueries {
		path := fmt.Sprintf("merge_queries[%d]", i)
		mq := &q.MergeQueries[i]
		if mq.Type != Merge {
			v.add(path+".type", ErrChildMisplaced, fmt.Sprintf("%s child stored as merge", mq.Type))
		}
		v.validateChild(path, mq)
	}
	return v.errs
}

// validator accumulates errors during traversal.
type validator struct {
	errs []ValidationError
}

func (v *validator) add(field, code, msg string) {
	v.errs = append(v.errs, ValidationError{Field: field, Message: msg, Code: code})
}

func (v *validator) validateDescribe(q *Query) {
	s := &q.Selection
	if len(s.Entries) > 0 || len(s.Aggregations) > 0 || s.SortBy != "" ||
		len(s.SelectFilter) > 0 || len(q.JoinQueries) > 0 || len(q.MergeQueries) > 0 {
		v.add("describe", ErrDescribeExclusive, "describe cannot be combined with filters, sort, joins, aggregations or projection")
	}
	for i, ns := range q.DescribeNamespaces {
		if ns == "" {
			v.add(fmt.Sprintf("describe[%d]", i), ErrNamespaceRequired, "empty namespace name")
		}
	}
}

func (v *validator) validateChild(path string, jq *JoinQuery) {
	if !jq.Type.Valid() {
		v.add(path+".type", ErrInvalidEnum, fmt.Sprintf("unknown join type %d", int(jq.Type)))
	}
	v.validateSelection(path, &jq.Selection)
	for i, e := range jq.JoinEntries {
		ep := fmt.Sprintf("%s.on[%d]", path, i)
		if !e.Op.Valid() {
			v.add(ep+".op", ErrInvalidEnum, fmt.Sprintf("unknown op %d", int(e.Op)))
		}
		if !e.Condition.Valid() {
			v.add(ep+".cond", ErrInvalidEnum, fmt.Sprintf("unknown condition %d", int(e.Condition)))
		}
		if e.LocalField == "" || e.ForeignField == "" {
			v.add(ep, ErrFieldRequired, "join predicate needs both fields")
		}
	}
}

func (v *validator) validateSelection(path string, s *Selection) {
	if s.Namespace == "" {
		v.add(path+".namespace", ErrNamespaceRequired, "namespace is required")
	}
	v.checkRange(path+".limit", "limit", s.Limit)
	v.checkRange(path+".offset", "offset", s.Offset)
	if !s.CalcTotal.Valid() {
		v.add(path+".req_total", ErrInvalidEnum, fmt.Sprintf("unknown total mode %d", int(s.CalcTotal)))
	}

	for i, e := range s.Entries {
		v.validateEntry(fmt.Sprintf("%s.entries[%d]", path, i), e)
	}
	for i, a := range s.Aggregations {
		ap := fmt.Sprintf("%s.aggregations[%d]", path, i)
		if !a.Type.Valid() {
			v.add(ap+".type", ErrInvalidEnum, fmt.Sprintf("unknown aggregation %d", int(a.Type)))
		}
		if a.Field == "" {
			v.add(ap+".field", ErrFieldRequired, "aggregation field is required")
		}
	}

	if len(s.ForcedSortOrder) > 0 && s.SortBy == "" {
		v.add(path+".sort", ErrForcedSortNoField, "forced sort order requires a sort field")
	}
	v.validateValues(path+".sort.values", s.ForcedSortOrder)

	for i, f := range s.SelectFilter {
		if f == "" {
			v.add(fmt.Sprintf("%s.select_filter[%d]", path, i), ErrFieldRequired, "empty projected field")
		}
	}
}

func (v *validator) validateEntry(path string, e QueryEntry) {
	if e.Field == "" {
		v.add(path+".field", ErrFieldRequired, "field is required")
	}
	if !e.Op.Valid() {
		v.add(path+".op", ErrInvalidEnum, fmt.Sprintf("unknown op %d", int(e.Op)))
	}
	if e.Distinct {
		// The wire form of a distinct entry is its field name alone.
		if len(e.Values) > 0 {
			v.add(path, ErrDistinctWithValues, "distinct entry carries values")
		}
		if e.Op != OpAnd {
			v.add(path+".op", ErrDistinctWithValues, fmt.Sprintf("distinct entry must use AND, got %s", e.Op))
		}
		if e.Condition != CondAny {
			v.add(path+".cond", ErrDistinctWithValues, fmt.Sprintf("distinct entry takes no condition, got %s", e.Condition))
		}
		return
	}
	if !e.Condition.Valid() {
		v.add(path+".cond", ErrInvalidEnum, fmt.Sprintf("unknown condition %d", int(e.Condition)))
		return
	}
	if !e.Condition.AcceptsCount(len(e.Values)) {
		n, exact := e.Condition.Arity()
		want := fmt.Sprintf("%d", n)
		if !exact {
			want = fmt.Sprintf("at least %d", n)
		}
		v.add(path+".values", ErrValueCount,
			fmt.Sprintf("%s requires %s value(s), got %d", e.Condition, want, len(e.Values)))
	}
	v.validateValues(path+".values", e.Values)
}

// checkRange enforces the int32 range the wire format carries.
func (v *validator) checkRange(field, what string, n int) {
	switch {
	case n < 0:
		v.add(field, ErrNegativePaging, fmt.Sprintf("%s %d is negative", what, n))
	case n > math.MaxInt32:
		v.add(field, ErrNegativePaging, fmt.Sprintf("%s %d exceeds %d", what, n, math.MaxInt32))
	}
}

func (v *validator) validateValues(path string, vals []ir.IRValue) {
	for i, val := range vals {
		if err := ir.CheckValue(val); err != nil {
			v.add(fmt.Sprintf("%s[%d]", path, i), ErrInvalidValue, err.Error())
		}
	}
}
