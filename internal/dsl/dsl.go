package dsl

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cuejson "cuelang.org/go/encoding/json"

	"github.com/roach88/qir/internal/ir"
	"github.com/roach88/qir/internal/queryir"
)

//go:embed schema.cue
var schemaSource string

// documentName is the file name attached to positions in the input.
const documentName = "query.json"

var (
	schemaOnce sync.Once
	schemaCtx  *cue.Context
	schemaDef  cue.Value
	schemaErr  error
)

// loadSchema compiles the embedded schema once per process.
//
// CRITICAL: every value unified with the schema must come from the same
// cue.Context, so the context is shared with Parse.
func loadSchema() (*cue.Context, cue.Value, error) {
	schemaOnce.Do(func() {
		schemaCtx = cuecontext.New()
		v := schemaCtx.CompileString(schemaSource, cue.Filename("schema.cue"))
		if err := v.Err(); err != nil {
			schemaErr = fmt.Errorf("compile dsl schema: %w", err)
			return
		}
		schemaDef = v.LookupPath(cue.ParsePath("#Query"))
		schemaErr = schemaDef.Err()
	})
	return schemaCtx, schemaDef, schemaErr
}

// Parse parses a JSON query document.
//
// The document is checked in three stages, each failing with a ParseError:
// JSON syntax (offset of the syntax error), the CUE schema (offset of the
// offending value), and query invariants (value counts per condition).
//
//	{"namespace": "items", "limit": 10,
//	 "filters": [{"field": "price", "cond": "gt", "value": 100}],
//	 "sort": {"field": "name", "desc": true}}
func Parse(data []byte) (*queryir.Query, error) {
	if err := checkSyntax(data); err != nil {
		return nil, err
	}

	ctx, schema, err := loadSchema()
	if err != nil {
		return nil, err
	}

	expr, err := cuejson.Extract(documentName, data)
	if err != nil {
		return nil, cueParseError(err)
	}
	doc := ctx.BuildExpr(expr)
	unified := schema.Unify(doc)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, cueParseError(err)
	}

	q, err := buildQuery(doc)
	if err != nil {
		return nil, err
	}
	if errs := queryir.Validate(q); len(errs) > 0 {
		return nil, &ParseError{Offset: -1, Path: errs[0].Field, Msg: errs[0].Message}
	}
	return q, nil
}

// checkSyntax reports malformed JSON with the byte offset the standard
// decoder stopped at.
func checkSyntax(data []byte) error {
	var v any
	err := json.Unmarshal(data, &v)
	if err == nil {
		if _, ok := v.(map[string]any); !ok {
			return &ParseError{Offset: 0, Msg: "query must be a JSON object"}
		}
		return nil
	}
	var se *json.SyntaxError
	if errors.As(err, &se) {
		return &ParseError{Offset: int(se.Offset), Msg: se.Error()}
	}
	return &ParseError{Offset: len(data), Msg: err.Error()}
}

// cueParseError converts the first CUE error, preferring a position inside
// the input document over one inside the schema.
func cueParseError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &ParseError{Offset: -1, Msg: err.Error()}
	}
	first := errs[0]
	pe := &ParseError{Offset: -1, Path: strings.Join(first.Path(), "."), Msg: first.Error()}
	for _, pos := range cueerrors.Positions(first) {
		if pos.Filename() == documentName {
			pe.Offset = pos.Offset()
			break
		}
	}
	return pe
}

func buildQuery(v cue.Value) (*queryir.Query, error) {
	q := queryir.New("")
	if err := buildSelection(v, &q.Selection); err != nil {
		return nil, err
	}
	if n, ok, err := lookupInt(v, "debug_level"); err != nil {
		return nil, err
	} else if ok {
		q.DebugLevel = n
	}

	err := eachElem(v, "join_queries", func(jv cue.Value) error {
		name, _ := jv.LookupPath(cue.ParsePath("type")).String()
		jt, ok := queryir.ParseJoinType(name)
		if !ok {
			return valueError(jv, "unknown join type %q", name)
		}
		child := queryir.NewJoin(jt, "")
		if err := buildSelection(jv, &child.Selection); err != nil {
			return err
		}
		if err := eachElem(jv, "on", func(ov cue.Value) error {
			entry, err := buildJoinEntry(ov)
			if err != nil {
				return err
			}
			child.AddJoinEntry(entry)
			return nil
		}); err != nil {
			return err
		}
		q.AddJoin(*child)
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = eachElem(v, "merge_queries", func(mv cue.Value) error {
		child := queryir.NewJoin(queryir.Merge, "")
		if err := buildSelection(mv, &child.Selection); err != nil {
			return err
		}
		q.AddMerge(*child)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return q, nil
}

func buildSelection(v cue.Value, s *queryir.Selection) error {
	ns, err := v.LookupPath(cue.ParsePath("namespace")).String()
	if err != nil {
		return valueError(v, "namespace: %v", err)
	}
	s.Namespace = ns

	if n, ok, err := lookupInt(v, "limit"); err != nil {
		return err
	} else if ok {
		s.SetLimit(n)
	}
	if n, ok, err := lookupInt(v, "offset"); err != nil {
		return err
	} else if ok {
		s.SetOffset(n)
	}
	if rv := v.LookupPath(cue.ParsePath("req_total")); rv.Exists() {
		name, _ := rv.String()
		mode, ok := queryir.ParseCalcTotalMode(name)
		if !ok {
			return valueError(rv, "unknown req_total %q", name)
		}
		s.ReqTotal(mode)
	}

	if err := eachElem(v, "filters", func(fv cue.Value) error {
		entry, err := buildEntry(fv)
		if err != nil {
			return err
		}
		s.AddEntry(entry)
		return nil
	}); err != nil {
		return err
	}

	if dv := v.LookupPath(cue.ParsePath("distinct")); dv.Exists() {
		field, _ := dv.String()
		s.AddDistinct(field)
	}

	if sv := v.LookupPath(cue.ParsePath("sort")); sv.Exists() {
		field, _ := sv.LookupPath(cue.ParsePath("field")).String()
		desc := false
		if dv := sv.LookupPath(cue.ParsePath("desc")); dv.Exists() {
			desc, _ = dv.Bool()
		}
		var forced []ir.IRValue
		if err := eachElem(sv, "values", func(ev cue.Value) error {
			val, err := scalarValue(ev)
			if err != nil {
				return err
			}
			forced = append(forced, val)
			return nil
		}); err != nil {
			return err
		}
		s.Sort(field, desc, forced...)
	}

	if err := eachElem(v, "aggregations", func(av cue.Value) error {
		field, _ := av.LookupPath(cue.ParsePath("field")).String()
		name, _ := av.LookupPath(cue.ParsePath("type")).String()
		agg, ok := queryir.ParseAggType(name)
		if !ok {
			return valueError(av, "unknown aggregation %q", name)
		}
		s.Aggregate(field, agg)
		return nil
	}); err != nil {
		return err
	}

	return eachElem(v, "select_filter", func(fv cue.Value) error {
		field, _ := fv.String()
		s.Select(field)
		return nil
	})
}

func buildEntry(v cue.Value) (queryir.QueryEntry, error) {
	entry := queryir.QueryEntry{Op: queryir.OpAnd}
	entry.Field, _ = v.LookupPath(cue.ParsePath("field")).String()

	if ov := v.LookupPath(cue.ParsePath("op")); ov.Exists() {
		name, _ := ov.String()
		op, ok := queryir.ParseOpType(name)
		if !ok {
			return entry, valueError(ov, "unknown op %q", name)
		}
		entry.Op = op
	}

	cv := v.LookupPath(cue.ParsePath("cond"))
	name, _ := cv.String()
	cond, ok := queryir.ParseCondType(name)
	if !ok {
		return entry, valueError(cv, "unknown condition %q", name)
	}
	entry.Condition = cond

	if vv := v.LookupPath(cue.ParsePath("value")); vv.Exists() {
		vals, err := entryValues(vv)
		if err != nil {
			return entry, err
		}
		entry.Values = vals
	}
	if !cond.AcceptsCount(len(entry.Values)) {
		return entry, valueError(v, "%s does not accept %d values", cond, len(entry.Values))
	}
	return entry, nil
}

func buildJoinEntry(v cue.Value) (queryir.JoinEntry, error) {
	entry := queryir.JoinEntry{Op: queryir.OpAnd}
	if ov := v.LookupPath(cue.ParsePath("op")); ov.Exists() {
		name, _ := ov.String()
		op, ok := queryir.ParseOpType(name)
		if !ok {
			return entry, valueError(ov, "unknown op %q", name)
		}
		entry.Op = op
	}
	cv := v.LookupPath(cue.ParsePath("cond"))
	name, _ := cv.String()
	cond, ok := queryir.ParseCondType(name)
	if !ok {
		return entry, valueError(cv, "unknown condition %q", name)
	}
	entry.Condition = cond
	entry.LocalField, _ = v.LookupPath(cue.ParsePath("left_field")).String()
	entry.ForeignField, _ = v.LookupPath(cue.ParsePath("right_field")).String()
	return entry, nil
}

// entryValues turns a filter value into a value list: a scalar is one value,
// an array contributes each element, and a nested array becomes a tuple.
func entryValues(v cue.Value) ([]ir.IRValue, error) {
	if v.Kind() != cue.ListKind {
		val, err := scalarValue(v)
		if err != nil {
			return nil, err
		}
		return []ir.IRValue{val}, nil
	}

	vals := []ir.IRValue{}
	iter, err := v.List()
	if err != nil {
		return nil, valueError(v, "%v", err)
	}
	for iter.Next() {
		elem := iter.Value()
		if elem.Kind() != cue.ListKind {
			val, err := scalarValue(elem)
			if err != nil {
				return nil, err
			}
			vals = append(vals, val)
			continue
		}
		tuple := ir.IRArray{}
		inner, err := elem.List()
		if err != nil {
			return nil, valueError(elem, "%v", err)
		}
		for inner.Next() {
			val, err := scalarValue(inner.Value())
			if err != nil {
				return nil, err
			}
			tuple = append(tuple, val)
		}
		vals = append(vals, tuple)
	}
	return vals, nil
}

// scalarValue converts a concrete CUE scalar. JSON numbers with a fraction
// or exponent are floats; all others are ints.
func scalarValue(v cue.Value) (ir.IRValue, error) {
	switch v.Kind() {
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return nil, valueError(v, "%v", err)
		}
		return ir.IRInt(n), nil
	case cue.FloatKind:
		f, err := v.Float64()
		if err != nil {
			return nil, valueError(v, "%v", err)
		}
		return ir.IRFloat(f), nil
	case cue.StringKind:
		s, _ := v.String()
		return ir.IRString(s), nil
	case cue.BoolKind:
		b, _ := v.Bool()
		return ir.IRBool(b), nil
	default:
		return nil, valueError(v, "unsupported value kind %s", v.Kind())
	}
}

func lookupInt(v cue.Value, field string) (int, bool, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return 0, false, nil
	}
	n, err := fv.Int64()
	if err != nil {
		return 0, false, valueError(fv, "%s: %v", field, err)
	}
	return int(n), true, nil
}

// eachElem calls fn for each element of the list at field, if present.
func eachElem(v cue.Value, field string, fn func(cue.Value) error) error {
	lv := v.LookupPath(cue.ParsePath(field))
	if !lv.Exists() {
		return nil
	}
	iter, err := lv.List()
	if err != nil {
		return valueError(lv, "%s: %v", field, err)
	}
	for iter.Next() {
		if err := fn(iter.Value()); err != nil {
			return err
		}
	}
	return nil
}

func valueError(v cue.Value, format string, args ...any) *ParseError {
	pe := &ParseError{Offset: -1, Path: pathString(v), Msg: fmt.Sprintf(format, args...)}
	if pos := v.Pos(); pos.IsValid() {
		pe.Offset = pos.Offset()
	}
	return pe
}

func pathString(v cue.Value) string {
	sels := v.Path().Selectors()
	parts := make([]string, len(sels))
	for i, s := range sels {
		parts[i] = s.String()
	}
	return strings.Join(parts, ".")
}
