package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/qir/internal/ir"
)

// sampleQuery builds a root query exercising every field, with one join and
// one merge child.
func sampleQuery() *Query {
	q := New("items")
	q.Where("price", CondGt, ir.IRInt(100))
	q.AddEntry(QueryEntry{Field: "tags", Op: OpOr, Condition: CondSet, Values: []ir.IRValue{ir.IRString("a"), ir.IRString("b")}})
	q.AddDistinct("brand")
	q.Aggregate("price", AggSum)
	q.Sort("name", true, ir.IRString("z"), ir.IRString("a"))
	q.SetLimit(10).SetOffset(5).ReqTotal(ModeAccurateTotal)
	q.Select("id", "name")
	q.DebugLevel = 2

	join := NewJoin(InnerJoin, "vendors")
	join.On("vendor_id", CondEq, "id")
	join.Where("active", CondEq, ir.IRBool(true))
	q.AddJoin(*join)

	merge := NewJoin(Merge, "archived_items")
	merge.Where("price", CondRange, ir.IRFloat(1.5), ir.IRFloat(9.5))
	q.AddMerge(*merge)
	return q
}

func TestNewDefaults(t *testing.T) {
	q := New("items")

	assert.Equal(t, "items", q.Namespace)
	assert.Equal(t, DefaultLimit, q.Limit)
	assert.Equal(t, 0, q.Offset)
	assert.Equal(t, ModeNoTotal, q.CalcTotal)
	assert.False(t, q.HasLimit())
	assert.Empty(t, Validate(q))
}

func TestAddJoinClassifiesMerge(t *testing.T) {
	q := New("items")
	q.AddJoin(*NewJoin(LeftJoin, "a"))
	q.AddJoin(*NewJoin(Merge, "b"))
	q.AddMerge(*NewJoin(InnerJoin, "c"))

	require.Len(t, q.JoinQueries, 1)
	require.Len(t, q.MergeQueries, 2)
	assert.Equal(t, "a", q.JoinQueries[0].Namespace)
	assert.Equal(t, Merge, q.MergeQueries[1].Type, "AddMerge forces Merge type")

	children := q.Children()
	require.Len(t, children, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{children[0].Namespace, children[1].Namespace, children[2].Namespace})
}

func TestAddJoinCopiesChild(t *testing.T) {
	q := New("items")
	child := NewJoin(InnerJoin, "vendors")
	child.On("vendor_id", CondEq, "id")
	q.AddJoin(*child)

	child.JoinEntries[0].LocalField = "changed"

	assert.Equal(t, "vendor_id", q.JoinQueries[0].JoinEntries[0].LocalField)
}

func TestCloneIsDeep(t *testing.T) {
	q := sampleQuery()
	clone := q.Clone()
	require.True(t, q.Equal(clone))

	clone.Entries[1].Values[0] = ir.IRString("changed")
	clone.JoinQueries[0].JoinEntries[0].ForeignField = "changed"
	clone.MergeQueries[0].Entries[0].Values[1] = ir.IRFloat(0)
	clone.ForcedSortOrder[0] = ir.IRString("changed")
	clone.SelectFilter[0] = "changed"

	assert.Equal(t, ir.IRString("a"), q.Entries[1].Values[0])
	assert.Equal(t, "id", q.JoinQueries[0].JoinEntries[0].ForeignField)
	assert.Equal(t, ir.IRFloat(9.5), q.MergeQueries[0].Entries[0].Values[1])
	assert.Equal(t, ir.IRString("z"), q.ForcedSortOrder[0])
	assert.Equal(t, "id", q.SelectFilter[0])
	assert.False(t, q.Equal(clone))
}

func TestEqual(t *testing.T) {
	t.Run("nil handling", func(t *testing.T) {
		var nilQuery *Query
		assert.True(t, nilQuery.Equal(nil))
		assert.False(t, New("a").Equal(nil))
	})

	t.Run("nil and empty slices are equal", func(t *testing.T) {
		a := New("items")
		b := New("items")
		b.Entries = []QueryEntry{}
		b.SelectFilter = []string{}
		b.JoinQueries = []JoinQuery{}
		assert.True(t, a.Equal(b))
	})

	t.Run("value kinds matter", func(t *testing.T) {
		a := New("items")
		a.Where("price", CondEq, ir.IRInt(1))
		b := New("items")
		b.Where("price", CondEq, ir.IRFloat(1))
		assert.False(t, a.Equal(b))
	})

	t.Run("child order matters", func(t *testing.T) {
		a := New("items")
		a.AddJoin(*NewJoin(InnerJoin, "x"))
		a.AddJoin(*NewJoin(InnerJoin, "y"))
		b := New("items")
		b.AddJoin(*NewJoin(InnerJoin, "y"))
		b.AddJoin(*NewJoin(InnerJoin, "x"))
		assert.False(t, a.Equal(b))
	})

	t.Run("join type matters", func(t *testing.T) {
		a := New("items")
		a.AddJoin(*NewJoin(InnerJoin, "x"))
		b := New("items")
		b.AddJoin(*NewJoin(LeftJoin, "x"))
		assert.False(t, a.Equal(b))
	})
}

func TestFingerprint(t *testing.T) {
	q := sampleQuery()

	fp1, err := q.Fingerprint()
	require.NoError(t, err)
	fp2, err := q.Clone().Fingerprint()
	require.NoError(t, err)
	assert.Equal(t, fp1, fp2)
	assert.Len(t, fp1, 64)

	debug := q.Clone()
	debug.DebugLevel = 9
	fp3, err := debug.Fingerprint()
	require.NoError(t, err)
	assert.Equal(t, fp1, fp3, "debug level does not change the fingerprint")

	other := q.Clone()
	other.SetLimit(11)
	fp4, err := other.Fingerprint()
	require.NoError(t, err)
	assert.NotEqual(t, fp1, fp4)
}

func TestFingerprint_DistinguishesValueKinds(t *testing.T) {
	tests := []struct {
		name string
		a, b ir.IRValue
	}{
		{"int vs float", ir.IRInt(1), ir.IRFloat(1)},
		{"int vs string", ir.IRInt(1), ir.IRString("1")},
		{"bool vs string", ir.IRBool(true), ir.IRString("true")},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			qa := New("items")
			qa.Where("price", CondEq, tc.a)
			qb := New("items")
			qb.Where("price", CondEq, tc.b)
			require.False(t, qa.Equal(qb))

			fpA, err := qa.Fingerprint()
			require.NoError(t, err)
			fpB, err := qb.Fingerprint()
			require.NoError(t, err)
			assert.NotEqual(t, fpA, fpB)
		})
	}
}

func TestFingerprint_DistinguishesSortValueKinds(t *testing.T) {
	qa := New("items")
	qa.Sort("rank", false, ir.IRInt(2), ir.IRInt(1))
	qb := New("items")
	qb.Sort("rank", false, ir.IRFloat(2), ir.IRFloat(1))

	fpA, err := qa.Fingerprint()
	require.NoError(t, err)
	fpB, err := qb.Fingerprint()
	require.NoError(t, err)
	assert.NotEqual(t, fpA, fpB)
}
