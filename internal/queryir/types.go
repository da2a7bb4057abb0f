package queryir

import (
	"fmt"
	"strings"
)

// CondType is the comparison applied between a field and its values.
type CondType int

const (
	CondAny   CondType = iota // field has any value (IS NOT NULL)
	CondEq                    // field = v
	CondLt                    // field < v
	CondLe                    // field <= v
	CondGt                    // field > v
	CondGe                    // field >= v
	CondRange                 // lo <= field <= hi
	CondSet                   // field IN (v1, ..., vn)
	CondEmpty                 // field has no value (IS NULL)
)

var condNames = [...]string{
	CondAny:   "ANY",
	CondEq:    "EQ",
	CondLt:    "LT",
	CondLe:    "LE",
	CondGt:    "GT",
	CondGe:    "GE",
	CondRange: "RANGE",
	CondSet:   "SET",
	CondEmpty: "EMPTY",
}

var condSymbols = [...]string{
	CondAny:   "IS NOT NULL",
	CondEq:    "=",
	CondLt:    "<",
	CondLe:    "<=",
	CondGt:    ">",
	CondGe:    ">=",
	CondRange: "RANGE",
	CondSet:   "IN",
	CondEmpty: "IS NULL",
}

// Valid reports whether c is a known condition.
func (c CondType) Valid() bool {
	return c >= CondAny && c <= CondEmpty
}

func (c CondType) String() string {
	if !c.Valid() {
		return fmt.Sprintf("CondType(%d)", int(c))
	}
	return condNames[c]
}

// Symbol returns the operator text used when rendering the condition.
func (c CondType) Symbol() string {
	if !c.Valid() {
		return "<?>"
	}
	return condSymbols[c]
}

// Arity returns the number of values the condition requires.
// When exact is false, n is a lower bound.
func (c CondType) Arity() (n int, exact bool) {
	switch c {
	case CondAny, CondEmpty:
		return 0, true
	case CondRange:
		return 2, true
	case CondSet:
		return 1, false
	default:
		return 1, true
	}
}

// AcceptsCount reports whether count values satisfy the condition's arity.
func (c CondType) AcceptsCount(count int) bool {
	n, exact := c.Arity()
	if exact {
		return count == n
	}
	return count >= n
}

// ParseCondType resolves a condition name such as "GT" or "range".
func ParseCondType(name string) (CondType, bool) {
	for c, n := range condNames {
		if strings.EqualFold(n, name) {
			return CondType(c), true
		}
	}
	return 0, false
}

// OpType is the logical combinator relating an entry to the entries before it.
type OpType int

const (
	OpOr  OpType = 1
	OpAnd OpType = 2
	OpNot OpType = 3
)

// Valid reports whether o is a known combinator.
func (o OpType) Valid() bool {
	return o >= OpOr && o <= OpNot
}

func (o OpType) String() string {
	switch o {
	case OpOr:
		return "OR"
	case OpAnd:
		return "AND"
	case OpNot:
		return "NOT"
	default:
		return fmt.Sprintf("OpType(%d)", int(o))
	}
}

// ParseOpType resolves "and", "or" or "not".
func ParseOpType(name string) (OpType, bool) {
	for _, o := range []OpType{OpOr, OpAnd, OpNot} {
		if strings.EqualFold(o.String(), name) {
			return o, true
		}
	}
	return 0, false
}

// AggType is the kind of aggregation computed over a field.
type AggType int

const (
	AggSum AggType = iota
	AggAvg
	AggMin
	AggMax
)

var aggNames = [...]string{
	AggSum: "SUM",
	AggAvg: "AVG",
	AggMin: "MIN",
	AggMax: "MAX",
}

// Valid reports whether a is a known aggregation.
func (a AggType) Valid() bool {
	return a >= AggSum && a <= AggMax
}

func (a AggType) String() string {
	if !a.Valid() {
		return fmt.Sprintf("AggType(%d)", int(a))
	}
	return aggNames[a]
}

// ParseAggType resolves an aggregation name such as "sum".
func ParseAggType(name string) (AggType, bool) {
	for a, n := range aggNames {
		if strings.EqualFold(n, name) {
			return AggType(a), true
		}
	}
	return 0, false
}

// JoinType says how a child query combines with its parent.
// Merge is structurally a join slot but semantically a union.
type JoinType int

const (
	LeftJoin JoinType = iota
	InnerJoin
	OrInnerJoin
	Merge
)

var joinNames = [...]string{
	LeftJoin:    "LEFT JOIN",
	InnerJoin:   "INNER JOIN",
	OrInnerJoin: "OR INNER JOIN",
	Merge:       "MERGE",
}

// Valid reports whether j is a known join type.
func (j JoinType) Valid() bool {
	return j >= LeftJoin && j <= Merge
}

func (j JoinType) String() string {
	if !j.Valid() {
		return fmt.Sprintf("JoinType(%d)", int(j))
	}
	return joinNames[j]
}

// ParseJoinType resolves "left", "inner", "orinner" or "merge".
func ParseJoinType(name string) (JoinType, bool) {
	switch {
	case strings.EqualFold(name, "left"), strings.EqualFold(name, "left join"):
		return LeftJoin, true
	case strings.EqualFold(name, "inner"), strings.EqualFold(name, "inner join"):
		return InnerJoin, true
	case strings.EqualFold(name, "orinner"), strings.EqualFold(name, "or inner join"):
		return OrInnerJoin, true
	case strings.EqualFold(name, "merge"):
		return Merge, true
	}
	return 0, false
}

// CalcTotalMode says whether and how a total row count is requested.
type CalcTotalMode int

const (
	ModeNoTotal       CalcTotalMode = iota // disabled
	ModeCachedTotal                        // total may come from a cache
	ModeAccurateTotal                      // total is computed for this request
)

// Valid reports whether m is a known mode.
func (m CalcTotalMode) Valid() bool {
	return m >= ModeNoTotal && m <= ModeAccurateTotal
}

func (m CalcTotalMode) String() string {
	switch m {
	case ModeNoTotal:
		return "disabled"
	case ModeCachedTotal:
		return "cached"
	case ModeAccurateTotal:
		return "accurate"
	default:
		return fmt.Sprintf("CalcTotalMode(%d)", int(m))
	}
}

// ParseCalcTotalMode resolves "disabled", "cached", "accurate" or "enabled"
// (an alias for accurate).
func ParseCalcTotalMode(name string) (CalcTotalMode, bool) {
	switch {
	case strings.EqualFold(name, "disabled"), name == "":
		return ModeNoTotal, true
	case strings.EqualFold(name, "cached"):
		return ModeCachedTotal, true
	case strings.EqualFold(name, "accurate"), strings.EqualFold(name, "enabled"):
		return ModeAccurateTotal, true
	}
	return 0, false
}
