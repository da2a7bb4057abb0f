package queryir

import (
	"strings"

	"github.com/roach88/qir/internal/ir"
)

// Predicate is a node of the boolean filter tree reconstructed from a flat
// entry list.
//
// This is a sealed interface - only types in this package implement it.
// Predicate types:
//   - Cond: a single field comparison
//   - And: all children must hold
//   - Or: at least one child must hold
//   - Not: the child must not hold
type Predicate interface {
	predicateNode() // Marker method - seals interface to this package
	String() string
}

// Cond is a leaf comparison taken from one QueryEntry.
type Cond struct {
	Field     string
	Condition CondType
	Values    []ir.IRValue
}

func (Cond) predicateNode() {}

// And is a conjunction.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Or is a disjunction.
type Or struct {
	Predicates []Predicate
}

func (Or) predicateNode() {}

// Not negates a single predicate.
type Not struct {
	Predicate Predicate
}

func (Not) predicateNode() {}

// BuildFilter folds a flat entry list into a filter tree, left to right.
//
// The first entry seeds the accumulator (negated when its Op is OpNot). Each
// following entry combines with the accumulated result of all entries before
// it: OpAnd -> And(acc, e), OpOr -> Or(acc, e), OpNot -> And(acc, Not(e)).
// OpNot negates only the entry's own predicate, never the accumulator.
//
// For [A(And), B(Or), C(Not)] the result is (A OR B) AND (NOT C).
// Distinct entries are not predicates and are skipped. Returns nil when no
// predicate entries remain.
func BuildFilter(entries []QueryEntry) Predicate {
	var acc Predicate
	for _, e := range entries {
		if e.Distinct {
			continue
		}
		var p Predicate = Cond{Field: e.Field, Condition: e.Condition, Values: e.Values}
		if e.Op == OpNot {
			p = Not{Predicate: p}
		}
		if acc == nil {
			acc = p
			continue
		}
		if e.Op == OpOr {
			acc = or(acc, p)
		} else {
			acc = and(acc, p)
		}
	}
	return acc
}

// and flattens left-nested conjunctions so A AND B AND C is one node.
func and(acc, p Predicate) Predicate {
	if a, ok := acc.(And); ok {
		return And{Predicates: append(a.Predicates[:len(a.Predicates):len(a.Predicates)], p)}
	}
	return And{Predicates: []Predicate{acc, p}}
}

func or(acc, p Predicate) Predicate {
	if o, ok := acc.(Or); ok {
		return Or{Predicates: append(o.Predicates[:len(o.Predicates):len(o.Predicates)], p)}
	}
	return Or{Predicates: []Predicate{acc, p}}
}

// String renders the comparison as it appears in a WHERE clause.
func (c Cond) String() string {
	switch c.Condition {
	case CondAny, CondEmpty:
		return c.Field + " " + c.Condition.Symbol()
	case CondSet:
		return c.Field + " IN " + ir.FormatValue(ir.IRArray(c.Values))
	case CondRange:
		return c.Field + " RANGE " + ir.FormatValue(ir.IRArray(c.Values))
	default:
		var v string
		if len(c.Values) > 0 {
			v = ir.FormatValue(c.Values[0])
		}
		return c.Field + " " + c.Condition.Symbol() + " " + v
	}
}

func (a And) String() string {
	return joinPredicates(a.Predicates, " AND ")
}

func (o Or) String() string {
	return joinPredicates(o.Predicates, " OR ")
}

func (n Not) String() string {
	return "NOT " + parenthesize(n.Predicate)
}

func joinPredicates(ps []Predicate, sep string) string {
	parts := make([]string, len(ps))
	for i, p := range ps {
		parts[i] = parenthesize(p)
	}
	return strings.Join(parts, sep)
}

func parenthesize(p Predicate) string {
	switch p.(type) {
	case And, Or:
		return "(" + p.String() + ")"
	default:
		return p.String()
	}
}

// WhereString renders entries as a WHERE clause in entry order, the way the
// filter was written rather than its tree shape:
//
//	WHERE price > 100 AND name = 'x' OR NOT id IN (1,2)
//
// Returns "" for no entries.
func WhereString(entries []QueryEntry) string {
	if len(entries) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("WHERE")
	for i, e := range entries {
		b.WriteByte(' ')
		switch {
		case i == 0 && e.Op == OpNot:
			b.WriteString("NOT ")
		case i > 0 && e.Op == OpOr:
			b.WriteString("OR ")
		case i > 0 && e.Op == OpNot:
			b.WriteString("AND NOT ")
		case i > 0:
			b.WriteString("AND ")
		}
		if e.Distinct {
			b.WriteString("DISTINCT(" + e.Field + ")")
			continue
		}
		b.WriteString(Cond{Field: e.Field, Condition: e.Condition, Values: e.Values}.String())
	}
	return b.String()
}
