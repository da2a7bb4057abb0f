package sqlparse

import (
	"errors"
	"math"
	"strconv"

	"github.com/roach88/qir/internal/queryir"
)

// Parse parses a SELECT or DESCRIBE statement into a Query.
//
// Grammar (keywords case-insensitive):
//
//	select <fields>|* from <ns> [where <filter>] [order by <f> [asc|desc]] [limit N] [offset N]
//	describe *|<ns>[,<ns>...]
//
// The query is built privately and only returned on success.
func Parse(text string) (*queryir.Query, error) {
	t := NewTokenizer(text)
	tok, err := t.Next()
	if err != nil {
		return nil, err
	}

	switch {
	case tok.Is("select"):
		return parseSelect(t)
	case tok.Is("describe"):
		return parseDescribe(t)
	default:
		return nil, errorAt(tok, "expected SELECT or DESCRIBE")
	}
}

func parseSelect(t *Tokenizer) (*queryir.Query, error) {
	q := queryir.New("")
	if err := parseProjection(t, &q.Selection); err != nil {
		return nil, err
	}

	tok, err := t.Next()
	if err != nil {
		return nil, err
	}
	if !tok.Is("from") {
		return nil, errorAt(tok, "expected FROM")
	}

	tok, err = t.Next()
	if err != nil {
		return nil, err
	}
	if tok.Kind != TokenName {
		return nil, errorAt(tok, "expected namespace name")
	}
	q.Namespace = tok.Text

	if err := parseClauses(t, &q.Selection); err != nil {
		return nil, err
	}
	return q, nil
}

// parseProjection reads "*" or a comma-separated list of fields and
// aggregate calls such as sum(price).
func parseProjection(t *Tokenizer, s *queryir.Selection) error {
	tok, err := t.Next()
	if err != nil {
		return err
	}
	if tok.IsSymbol("*") {
		return nil
	}

	for {
		if tok.Kind != TokenName {
			return errorAt(tok, "expected field name or *")
		}
		next, err := t.Peek()
		if err != nil {
			return err
		}
		if agg, ok := queryir.ParseAggType(tok.Text); ok && next.IsSymbol("(") {
			field, err := parseAggregateArg(t)
			if err != nil {
				return err
			}
			s.Aggregate(field, agg)
		} else {
			s.Select(tok.Text)
		}

		next, err = t.Peek()
		if err != nil {
			return err
		}
		if !next.IsSymbol(",") {
			return nil
		}
		if _, err := t.Next(); err != nil {
			return err
		}
		if tok, err = t.Next(); err != nil {
			return err
		}
	}
}

// parseAggregateArg reads "(field)" after an aggregate name.
func parseAggregateArg(t *Tokenizer) (string, error) {
	if _, err := expectSymbol(t, "("); err != nil {
		return "", err
	}
	tok, err := t.Next()
	if err != nil {
		return "", err
	}
	if tok.Kind != TokenName {
		return "", errorAt(tok, "expected aggregated field name")
	}
	if _, err := expectSymbol(t, ")"); err != nil {
		return "", err
	}
	return tok.Text, nil
}

// parseClauses consumes trailing clauses until end of input. A repeated
// clause overwrites the earlier one, except WHERE which appends entries.
func parseClauses(t *Tokenizer, s *queryir.Selection) error {
	for {
		tok, err := t.Next()
		if err != nil {
			return err
		}

		switch {
		case tok.Kind == TokenEnd:
			return nil
		case tok.Is("where"):
			if err := ParseWhere(t, s); err != nil {
				return err
			}
		case tok.Is("limit"):
			n, err := parseCount(t, "LIMIT")
			if err != nil {
				return err
			}
			s.SetLimit(n)
		case tok.Is("offset"):
			n, err := parseCount(t, "OFFSET")
			if err != nil {
				return err
			}
			s.SetOffset(n)
		case tok.Is("order"):
			if err := parseOrderBy(t, s); err != nil {
				return err
			}
		default:
			return errorAt(tok, "unexpected token in query")
		}
	}
}

// parseCount reads a non-negative integer for LIMIT or OFFSET.
func parseCount(t *Tokenizer, clause string) (int, error) {
	tok, err := t.Next()
	if err != nil {
		return 0, err
	}
	if tok.Kind != TokenNumber {
		return 0, errorAt(tok, "expected number after %s", clause)
	}
	n, err := strconv.ParseInt(tok.Text, 10, 64)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
			return 0, errorAt(tok, "%s exceeds %d", clause, math.MaxInt32)
		}
		return 0, errorAt(tok, "%s must be an integer", clause)
	}
	if n < 0 {
		return 0, errorAt(tok, "%s must not be negative", clause)
	}
	if n > math.MaxInt32 {
		return 0, errorAt(tok, "%s exceeds %d", clause, math.MaxInt32)
	}
	return int(n), nil
}

func parseOrderBy(t *Tokenizer, s *queryir.Selection) error {
	tok, err := t.Next()
	if err != nil {
		return err
	}
	if !tok.Is("by") {
		return errorAt(tok, "expected BY after ORDER")
	}

	tok, err = t.Next()
	if err != nil {
		return err
	}
	if tok.Kind != TokenName {
		return errorAt(tok, "expected sort field name")
	}
	field := tok.Text

	desc := false
	next, err := t.Peek()
	if err != nil {
		return err
	}
	if next.Is("asc") || next.Is("desc") {
		desc = next.Is("desc")
		if _, err := t.Next(); err != nil {
			return err
		}
	}
	s.Sort(field, desc)
	return nil
}

func parseDescribe(t *Tokenizer) (*queryir.Query, error) {
	tok, err := t.Next()
	if err != nil {
		return nil, err
	}
	if tok.IsSymbol("*") {
		if err := expectEnd(t); err != nil {
			return nil, err
		}
		return queryir.NewDescribe(), nil
	}

	var namespaces []string
	for {
		if tok.Kind != TokenName {
			return nil, errorAt(tok, "expected namespace name or *")
		}
		namespaces = append(namespaces, tok.Text)

		if tok, err = t.Next(); err != nil {
			return nil, err
		}
		if tok.Kind == TokenEnd {
			return queryir.NewDescribe(namespaces...), nil
		}
		if !tok.IsSymbol(",") {
			return nil, errorAt(tok, "expected ',' or end of input")
		}
		if tok, err = t.Next(); err != nil {
			return nil, err
		}
	}
}

func expectSymbol(t *Tokenizer, sym string) (Token, error) {
	tok, err := t.Next()
	if err != nil {
		return tok, err
	}
	if !tok.IsSymbol(sym) {
		return tok, errorAt(tok, "expected '%s'", sym)
	}
	return tok, nil
}

func expectEnd(t *Tokenizer) error {
	tok, err := t.Next()
	if err != nil {
		return err
	}
	if tok.Kind != TokenEnd {
		return errorAt(tok, "expected end of input")
	}
	return nil
}
