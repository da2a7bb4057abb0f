package wire

import (
	"fmt"

	"github.com/roach88/qir/internal/queryir"
)

// Tag identifies the field that follows on the wire.
type Tag int

// Field tags. These values are part of the wire format and must not change.
const (
	TagCondition    Tag = 0
	TagDistinct     Tag = 1
	TagSortIndex    Tag = 2
	TagJoinOn       Tag = 3
	TagLimit        Tag = 4
	TagOffset       Tag = 5
	TagReqTotal     Tag = 6
	TagDebugLevel   Tag = 7
	TagAggregation  Tag = 8
	TagSelectFilter Tag = 9
	TagEnd          Tag = 10
	TagDescribe     Tag = 11
)

// Join-kind tags introduce a child query after the root's TagEnd.
// A join-kind tag is TagLeftJoin + JoinType.
const (
	TagLeftJoin    Tag = 16
	TagInnerJoin   Tag = 17
	TagOrInnerJoin Tag = 18
	TagMerge       Tag = 19
)

// TagNone marks errors not attributed to a tag.
const TagNone Tag = -1

var tagNames = map[Tag]string{
	TagCondition:    "Condition",
	TagDistinct:     "Distinct",
	TagSortIndex:    "SortIndex",
	TagJoinOn:       "JoinOn",
	TagLimit:        "Limit",
	TagOffset:       "Offset",
	TagReqTotal:     "ReqTotal",
	TagDebugLevel:   "DebugLevel",
	TagAggregation:  "Aggregation",
	TagSelectFilter: "SelectFilter",
	TagEnd:          "End",
	TagDescribe:     "Describe",
	TagLeftJoin:     "LeftJoin",
	TagInnerJoin:    "InnerJoin",
	TagOrInnerJoin:  "OrInnerJoin",
	TagMerge:        "Merge",
	TagNone:         "none",
}

func (t Tag) String() string {
	if name, ok := tagNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Tag(%d)", int(t))
}

// joinTag returns the child-introducer tag for a join type.
func joinTag(jt queryir.JoinType) Tag {
	return TagLeftJoin + Tag(jt)
}

// JoinType returns the join type a child-introducer tag stands for.
func (t Tag) JoinType() (queryir.JoinType, bool) {
	if t < TagLeftJoin || t > TagMerge {
		return 0, false
	}
	return queryir.JoinType(t - TagLeftJoin), true
}

// ValueKind is the type byte preceding each value payload.
type ValueKind byte

const (
	KindInt    ValueKind = 0 // zig-zag varint
	KindFloat  ValueKind = 1 // 8 bytes, IEEE 754, little endian
	KindString ValueKind = 2 // uvarint length + bytes
	KindBool   ValueKind = 3 // one byte, 0 or 1
	KindTuple  ValueKind = 4 // uvarint count + scalar values
)
