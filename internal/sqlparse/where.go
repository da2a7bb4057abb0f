package sqlparse

import (
	"strconv"
	"strings"

	"github.com/roach88/qir/internal/ir"
	"github.com/roach88/qir/internal/queryir"
)

// ParseWhere parses a filter expression and appends its entries to s.
//
//	<filter> := [not] <cond> {and [not] <cond> | or <cond>}
//	<cond> := <field> (=|==|<|<=|>|>=|!=|<>) <value>
//	        | <field> in (<value>, ...)
//	        | <field> range (<value>, <value>)
//	        | <field> is [not] null
//
// Each entry's Op relates it to everything parsed before it, so
// "a = 1 or b = 2 and not c = 3" yields Ops [And, Or, Not].
// An entry holds a single combinator, so OR NOT has no representation:
// "a = 1 or not b = 2" and "a = 1 or b != 2" are SyntaxErrors. "!=" and "<>"
// are Eq entries under OpNot.
//
// ParseWhere stops before the first token that is not AND or OR after a
// condition; the caller decides whether that token is valid.
func ParseWhere(t *Tokenizer, s *queryir.Selection) error {
	op := queryir.OpAnd
	for {
		tok, err := t.Next()
		if err != nil {
			return err
		}
		if tok.Is("not") {
			if op == queryir.OpOr {
				return errorAt(tok, "OR NOT is not supported")
			}
			op = queryir.OpNot
			if tok, err = t.Next(); err != nil {
				return err
			}
		}

		entry, err := parseCondition(t, tok, op)
		if err != nil {
			return err
		}
		s.AddEntry(entry)

		next, err := t.Peek()
		if err != nil {
			return err
		}
		switch {
		case next.Is("and"):
			op = queryir.OpAnd
		case next.Is("or"):
			op = queryir.OpOr
		default:
			return nil
		}
		if _, err := t.Next(); err != nil {
			return err
		}
	}
}

var comparisons = map[string]queryir.CondType{
	"=":  queryir.CondEq,
	"==": queryir.CondEq,
	"<":  queryir.CondLt,
	"<=": queryir.CondLe,
	">":  queryir.CondGt,
	">=": queryir.CondGe,
}

func parseCondition(t *Tokenizer, field Token, op queryir.OpType) (queryir.QueryEntry, error) {
	if field.Kind != TokenName {
		return queryir.QueryEntry{}, errorAt(field, "expected field name")
	}
	entry := queryir.QueryEntry{Field: field.Text, Op: op}

	tok, err := t.Next()
	if err != nil {
		return entry, err
	}

	if cond, ok := comparisons[tok.Text]; ok && tok.Kind == TokenSymbol {
		entry.Condition = cond
		v, err := parseValue(t)
		if err != nil {
			return entry, err
		}
		entry.Values = []ir.IRValue{v}
		return entry, nil
	}

	switch {
	case tok.IsSymbol("!=") || tok.IsSymbol("<>"):
		if op != queryir.OpAnd {
			return entry, errorAt(tok, "'%s' cannot follow %s", tok.Text, op)
		}
		entry.Op = queryir.OpNot
		entry.Condition = queryir.CondEq
		v, err := parseValue(t)
		if err != nil {
			return entry, err
		}
		entry.Values = []ir.IRValue{v}

	case tok.Is("in"):
		entry.Condition = queryir.CondSet
		if entry.Values, err = parseValueList(t); err != nil {
			return entry, err
		}
		if len(entry.Values) == 0 {
			return entry, errorAt(tok, "IN requires at least one value")
		}

	case tok.Is("range"):
		entry.Condition = queryir.CondRange
		if entry.Values, err = parseValueList(t); err != nil {
			return entry, err
		}
		if len(entry.Values) != 2 {
			return entry, errorAt(tok, "RANGE requires exactly two values, got %d", len(entry.Values))
		}

	case tok.Is("is"):
		entry.Condition = queryir.CondEmpty
		next, err := t.Next()
		if err != nil {
			return entry, err
		}
		if next.Is("not") {
			entry.Condition = queryir.CondAny
			if next, err = t.Next(); err != nil {
				return entry, err
			}
		}
		if !next.Is("null") {
			return entry, errorAt(next, "expected NULL")
		}

	default:
		return entry, errorAt(tok, "expected condition after '%s'", field.Text)
	}
	return entry, nil
}

// parseValueList reads "(v1, v2, ...)". An empty list is returned as such.
func parseValueList(t *Tokenizer) ([]ir.IRValue, error) {
	if _, err := expectSymbol(t, "("); err != nil {
		return nil, err
	}
	next, err := t.Peek()
	if err != nil {
		return nil, err
	}
	if next.IsSymbol(")") {
		_, err := t.Next()
		return []ir.IRValue{}, err
	}

	var values []ir.IRValue
	for {
		v, err := parseValue(t)
		if err != nil {
			return nil, err
		}
		values = append(values, v)

		tok, err := t.Next()
		if err != nil {
			return nil, err
		}
		switch {
		case tok.IsSymbol(")"):
			return values, nil
		case !tok.IsSymbol(","):
			return nil, errorAt(tok, "expected ',' or ')'")
		}
	}
}

// parseValue reads a literal: integer, float, quoted string, true/false, or a
// bare name taken as a string.
func parseValue(t *Tokenizer) (ir.IRValue, error) {
	tok, err := t.Next()
	if err != nil {
		return nil, err
	}

	switch tok.Kind {
	case TokenNumber:
		if strings.ContainsAny(tok.Text, ".eE") {
			f, err := strconv.ParseFloat(tok.Text, 64)
			if err != nil {
				return nil, errorAt(tok, "invalid number")
			}
			return ir.IRFloat(f), nil
		}
		n, err := strconv.ParseInt(tok.Text, 10, 64)
		if err != nil {
			return nil, errorAt(tok, "integer out of range")
		}
		return ir.IRInt(n), nil
	case TokenString:
		return ir.IRString(tok.Text), nil
	case TokenName:
		switch {
		case tok.Is("true"):
			return ir.IRBool(true), nil
		case tok.Is("false"):
			return ir.IRBool(false), nil
		}
		return ir.IRString(tok.Text), nil
	default:
		return nil, errorAt(tok, "expected value")
	}
}
