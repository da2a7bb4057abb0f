package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCondTypeArity(t *testing.T) {
	tests := []struct {
		cond   CondType
		counts map[int]bool
	}{
		{CondAny, map[int]bool{0: true, 1: false}},
		{CondEmpty, map[int]bool{0: true, 1: false}},
		{CondEq, map[int]bool{0: false, 1: true, 2: false}},
		{CondGt, map[int]bool{1: true, 2: false}},
		{CondRange, map[int]bool{1: false, 2: true, 3: false}},
		{CondSet, map[int]bool{0: false, 1: true, 5: true}},
	}

	for _, tc := range tests {
		t.Run(tc.cond.String(), func(t *testing.T) {
			for count, want := range tc.counts {
				assert.Equal(t, want, tc.cond.AcceptsCount(count), "count=%d", count)
			}
		})
	}
}

func TestCondTypeSymbols(t *testing.T) {
	assert.Equal(t, "IS NOT NULL", CondAny.Symbol())
	assert.Equal(t, ">=", CondGe.Symbol())
	assert.Equal(t, "IN", CondSet.Symbol())
	assert.Equal(t, "<?>", CondType(42).Symbol())
	assert.Equal(t, "CondType(42)", CondType(42).String())
}

func TestParseEnums(t *testing.T) {
	c, ok := ParseCondType("range")
	assert.True(t, ok)
	assert.Equal(t, CondRange, c)

	_, ok = ParseCondType("LIKE")
	assert.False(t, ok)

	o, ok := ParseOpType("Not")
	assert.True(t, ok)
	assert.Equal(t, OpNot, o)

	a, ok := ParseAggType("avg")
	assert.True(t, ok)
	assert.Equal(t, AggAvg, a)

	j, ok := ParseJoinType("orinner")
	assert.True(t, ok)
	assert.Equal(t, OrInnerJoin, j)

	m, ok := ParseCalcTotalMode("enabled")
	assert.True(t, ok)
	assert.Equal(t, ModeAccurateTotal, m)

	m, ok = ParseCalcTotalMode("")
	assert.True(t, ok)
	assert.Equal(t, ModeNoTotal, m)
}

func TestEnumValidity(t *testing.T) {
	assert.False(t, OpType(0).Valid(), "zero op is not a combinator")
	assert.True(t, Merge.Valid())
	assert.False(t, JoinType(4).Valid())
	assert.False(t, AggType(-1).Valid())
	assert.False(t, CalcTotalMode(3).Valid())
}
