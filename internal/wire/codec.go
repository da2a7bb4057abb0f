package wire

import (
	"fmt"

	"github.com/roach88/qir/internal/queryir"
)

// Layout of an encoded query:
//
//	root:   <namespace> {<tag> <payload>} End
//	child:  <join-kind tag> <namespace> {<tag> <payload>} End
//	stream: root {child}
//
// Field tags may appear in any order inside a block; repeated Condition,
// Distinct, Aggregation, JoinOn and SelectFilter tags append, the others
// overwrite. Joined children precede merged children.

type encodeConfig struct {
	skipJoins       bool
	skipMerges      bool
	skipLimitOffset bool
}

// EncodeOption configures Encode.
type EncodeOption func(*encodeConfig)

// SkipJoinQueries omits joined children from the output.
func SkipJoinQueries() EncodeOption {
	return func(c *encodeConfig) { c.skipJoins = true }
}

// SkipMergeQueries omits merged children from the output.
func SkipMergeQueries() EncodeOption {
	return func(c *encodeConfig) { c.skipMerges = true }
}

// SkipLimitOffset omits Limit and Offset from every block.
func SkipLimitOffset() EncodeOption {
	return func(c *encodeConfig) { c.skipLimitOffset = true }
}

// Encode serializes a query.
//
// The query is validated first; an invalid query is never written.
// Fields equal to their defaults are omitted: Limit when DefaultLimit,
// Offset when 0, ReqTotal when disabled, SortIndex when SortBy is empty.
// DebugLevel is always written, and children carry the parent's level.
func Encode(q *queryir.Query, opts ...EncodeOption) ([]byte, error) {
	if errs := queryir.Validate(q); len(errs) > 0 {
		return nil, fmt.Errorf("encode: invalid query: %w", errs[0])
	}

	var cfg encodeConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	w := NewWrSerializer(64)
	w.PutString(q.Namespace)
	encodeSelection(w, &q.Selection, &cfg)
	w.PutTag(TagDebugLevel)
	w.PutInt(int64(q.DebugLevel))
	if q.Describe {
		w.PutTag(TagDescribe)
		w.PutInt(int64(len(q.DescribeNamespaces)))
		for _, ns := range q.DescribeNamespaces {
			w.PutString(ns)
		}
	}
	w.PutTag(TagEnd)

	if !cfg.skipJoins {
		for i := range q.JoinQueries {
			encodeChild(w, &q.JoinQueries[i], q.DebugLevel, &cfg)
		}
	}
	if !cfg.skipMerges {
		for i := range q.MergeQueries {
			encodeChild(w, &q.MergeQueries[i], q.DebugLevel, &cfg)
		}
	}
	return w.Bytes(), nil
}

func encodeChild(w *WrSerializer, jq *queryir.JoinQuery, debugLevel int, cfg *encodeConfig) {
	w.PutTag(joinTag(jq.Type))
	w.PutString(jq.Namespace)
	encodeSelection(w, &jq.Selection, cfg)
	for _, je := range jq.JoinEntries {
		w.PutTag(TagJoinOn)
		w.PutInt(int64(je.Op))
		w.PutInt(int64(je.Condition))
		w.PutString(je.LocalField)
		w.PutString(je.ForeignField)
	}
	w.PutTag(TagDebugLevel)
	w.PutInt(int64(debugLevel))
	w.PutTag(TagEnd)
}

func encodeSelection(w *WrSerializer, s *queryir.Selection, cfg *encodeConfig) {
	for _, e := range s.Entries {
		if e.Distinct {
			w.PutTag(TagDistinct)
			w.PutString(e.Field)
			continue
		}
		w.PutTag(TagCondition)
		w.PutString(e.Field)
		w.PutInt(int64(e.Op))
		w.PutInt(int64(e.Condition))
		w.PutValues(e.Values)
	}

	for _, a := range s.Aggregations {
		w.PutTag(TagAggregation)
		w.PutString(a.Field)
		w.PutInt(int64(a.Type))
	}

	if s.SortBy != "" {
		w.PutTag(TagSortIndex)
		w.PutString(s.SortBy)
		w.PutBool(s.SortDesc)
		w.PutValues(s.ForcedSortOrder)
	}

	if !cfg.skipLimitOffset {
		if s.HasLimit() {
			w.PutTag(TagLimit)
			w.PutInt(int64(s.Limit))
		}
		if s.Offset != 0 {
			w.PutTag(TagOffset)
			w.PutInt(int64(s.Offset))
		}
	}

	if s.CalcTotal != queryir.ModeNoTotal {
		w.PutTag(TagReqTotal)
		w.PutInt(int64(s.CalcTotal))
	}

	for _, f := range s.SelectFilter {
		w.PutTag(TagSelectFilter)
		w.PutString(f)
	}
}

// Decode parses an encoded query.
//
// The root's fields run until TagEnd or the end of input, so a stream
// without children may omit the final TagEnd.
//
// CRITICAL: decoding is strict. Unknown tags, truncated payloads, value
// counts that do not fit the condition, out-of-range enums and any nesting
// beyond one level fail with a ProtocolError. Children inherit the root's
// DebugLevel. The decoded query must also pass queryir.Validate.
func Decode(data []byte) (*queryir.Query, error) {
	s := NewSerializer(data)
	d := &decoder{s: s}

	ns, err := s.GetString()
	if err != nil {
		return nil, err
	}
	q := queryir.New(ns)
	if err := d.readBlock(&q.Selection, nil, q); err != nil {
		return nil, err
	}

	for !s.Eof() {
		start := s.Pos()
		tag, err := s.GetTag()
		if err != nil {
			return nil, err
		}
		jt, ok := tag.JoinType()
		if !ok {
			return nil, protocolErrorf(ErrCodeUnknownJoinType, tag, start, "expected join-kind tag, got %s", tag)
		}
		ns, err := s.GetString()
		if err != nil {
			return nil, withTag(err, tag)
		}
		child := queryir.NewJoin(jt, ns)
		if err := d.readBlock(&child.Selection, child, nil); err != nil {
			return nil, err
		}
		q.AddJoin(*child)
	}

	if errs := queryir.Validate(q); len(errs) > 0 {
		return nil, protocolErrorf(ErrCodeInvalidValue, TagNone, len(data), "decoded query is invalid: %s", errs[0])
	}
	return q, nil
}

type decoder struct {
	s *Serializer
}

// readBlock reads tagged fields up to and including TagEnd. Exactly one of
// child and root is non-nil. The root block may also end with the input;
// a child block must be closed by TagEnd.
func (d *decoder) readBlock(sel *queryir.Selection, child *queryir.JoinQuery, root *queryir.Query) error {
	for {
		if root != nil && d.s.Eof() {
			return nil
		}
		start := d.s.Pos()
		tag, err := d.s.GetTag()
		if err != nil {
			return err
		}
		if tag == TagEnd {
			return nil
		}
		if err := d.readField(tag, start, sel, child, root); err != nil {
			return withTag(err, tag)
		}
	}
}

func (d *decoder) readField(tag Tag, start int, sel *queryir.Selection, child *queryir.JoinQuery, root *queryir.Query) error {
	s := d.s
	switch tag {
	case TagCondition:
		field, err := s.GetString()
		if err != nil {
			return err
		}
		op, cond, err := d.readOpCond()
		if err != nil {
			return err
		}
		countPos := s.Pos()
		vals, err := s.GetValues()
		if err != nil {
			return err
		}
		if !cond.AcceptsCount(len(vals)) {
			return protocolErrorf(ErrCodeValueCount, tag, countPos, "%s does not accept %d values", cond, len(vals))
		}
		sel.AddEntry(queryir.QueryEntry{Field: field, Op: op, Condition: cond, Values: vals})

	case TagDistinct:
		field, err := s.GetString()
		if err != nil {
			return err
		}
		sel.AddDistinct(field)

	case TagSortIndex:
		field, err := s.GetString()
		if err != nil {
			return err
		}
		desc, err := s.GetBool()
		if err != nil {
			return err
		}
		vals, err := s.GetValues()
		if err != nil {
			return err
		}
		sel.Sort(field, desc, vals...)

	case TagJoinOn:
		if child == nil {
			return protocolErrorf(ErrCodeNestingDepth, tag, start, "join predicate on root query")
		}
		op, cond, err := d.readOpCond()
		if err != nil {
			return err
		}
		local, err := s.GetString()
		if err != nil {
			return err
		}
		foreign, err := s.GetString()
		if err != nil {
			return err
		}
		child.AddJoinEntry(queryir.JoinEntry{Op: op, Condition: cond, LocalField: local, ForeignField: foreign})

	case TagLimit, TagOffset:
		pos := s.Pos()
		n, err := s.GetInt32()
		if err != nil {
			return err
		}
		if n < 0 {
			return protocolErrorf(ErrCodeInvalidValue, tag, pos, "negative %s %d", tag, n)
		}
		if tag == TagLimit {
			sel.SetLimit(n)
		} else {
			sel.SetOffset(n)
		}

	case TagReqTotal:
		pos := s.Pos()
		n, err := s.GetInt32()
		if err != nil {
			return err
		}
		mode := queryir.CalcTotalMode(n)
		if !mode.Valid() {
			return protocolErrorf(ErrCodeInvalidValue, tag, pos, "unknown total mode %d", n)
		}
		sel.ReqTotal(mode)

	case TagDebugLevel:
		n, err := s.GetInt32()
		if err != nil {
			return err
		}
		// Children always take the root's level.
		if root != nil {
			root.DebugLevel = n
		}

	case TagAggregation:
		field, err := s.GetString()
		if err != nil {
			return err
		}
		pos := s.Pos()
		n, err := s.GetInt32()
		if err != nil {
			return err
		}
		agg := queryir.AggType(n)
		if !agg.Valid() {
			return protocolErrorf(ErrCodeInvalidValue, tag, pos, "unknown aggregation %d", n)
		}
		sel.Aggregate(field, agg)

	case TagSelectFilter:
		field, err := s.GetString()
		if err != nil {
			return err
		}
		sel.Select(field)

	case TagDescribe:
		if root == nil {
			return protocolErrorf(ErrCodeNestingDepth, tag, start, "describe inside a child query")
		}
		pos := s.Pos()
		n, err := s.GetInt32()
		if err != nil {
			return err
		}
		if n < 0 || n > s.Remaining() {
			return protocolErrorf(ErrCodeTruncated, tag, pos, "%d namespaces run past end of input", n)
		}
		root.Describe = true
		for i := 0; i < n; i++ {
			ns, err := s.GetString()
			if err != nil {
				return err
			}
			root.DescribeNamespaces = append(root.DescribeNamespaces, ns)
		}

	case TagLeftJoin, TagInnerJoin, TagOrInnerJoin, TagMerge:
		return protocolErrorf(ErrCodeNestingDepth, tag, start, "child query nested inside a field list")

	default:
		return protocolErrorf(ErrCodeUnknownTag, tag, start, "unknown tag %d", int(tag))
	}
	return nil
}

// readOpCond reads and checks an (op, condition) pair.
func (d *decoder) readOpCond() (queryir.OpType, queryir.CondType, error) {
	pos := d.s.Pos()
	rawOp, err := d.s.GetInt32()
	if err != nil {
		return 0, 0, err
	}
	op := queryir.OpType(rawOp)
	if !op.Valid() {
		return 0, 0, protocolErrorf(ErrCodeInvalidValue, TagNone, pos, "unknown op %d", rawOp)
	}
	pos = d.s.Pos()
	rawCond, err := d.s.GetInt32()
	if err != nil {
		return 0, 0, err
	}
	cond := queryir.CondType(rawCond)
	if !cond.Valid() {
		return 0, 0, protocolErrorf(ErrCodeInvalidValue, TagNone, pos, "unknown condition %d", rawCond)
	}
	return op, cond, nil
}
