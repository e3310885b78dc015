package heap

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type intItem int

func (i intItem) Less(other Item) bool { return i < other.(intItem) }

type indexedInt struct {
	v   int
	idx int
}

func (i *indexedInt) Less(other Item) bool { return i.v < other.(*indexedInt).v }
func (i *indexedInt) HeapIndex() int        { return i.idx }
func (i *indexedInt) SetHeapIndex(idx int)  { i.idx = idx }

func TestExtractOrderMatchesReferenceSequence(t *testing.T) {
	h := New(false)
	for _, v := range []int{1, 5, 7, 3, 120, 1, 3, 95} {
		h.Insert(intItem(v))
	}

	var got []int
	for !h.Empty() {
		got = append(got, int(h.ExtractMin().(intItem)))
	}
	require.Equal(t, []int{1, 1, 3, 3, 5, 7, 95, 120}, got)
}

func TestHeapInvariantHoldsAfterInsertsAndExtracts(t *testing.T) {
	h := New(false)
	for _, v := range []int{8, 3, 11, 2, 9, 1, 7, 15, 0, 4} {
		h.Insert(intItem(v))
	}
	h.ExtractMin()
	h.ExtractMin()
	h.Insert(intItem(-1))

	for i := 1; i < len(h.data); i++ {
		p := parent(i)
		require.False(t, h.data[i].Less(h.data[p]), "item at %d sorts before its parent", i)
	}
}

func TestContainsAndRemove(t *testing.T) {
	h := New(true)
	items := make([]*indexedInt, 0, 5)
	for _, v := range []int{4, 2, 9, 1, 7} {
		it := &indexedInt{v: v}
		items = append(items, it)
		h.Insert(it)
	}

	for _, it := range items {
		require.True(t, h.Contains(it))
	}

	victim := items[2] // v == 9
	require.True(t, h.Contains(victim))
	h.Remove(victim)
	require.False(t, h.Contains(victim))
	require.Equal(t, 4, h.Len())

	for i := 1; i < len(h.data); i++ {
		p := parent(i)
		require.False(t, h.data[i].Less(h.data[p]))
	}
}

func TestRemoveAbsentItemPanics(t *testing.T) {
	h := New(true)
	present := &indexedInt{v: 1}
	h.Insert(present)
	absent := &indexedInt{v: 2, idx: -1}

	require.Panics(t, func() { h.Remove(absent) })
}

func TestContainsRequiresIndexedHeap(t *testing.T) {
	h := New(false)
	require.Panics(t, func() { h.Contains(intItem(1)) })
}

func TestFixReordersAfterKeyChange(t *testing.T) {
	h := New(true)
	a := &indexedInt{v: 5}
	b := &indexedInt{v: 10}
	c := &indexedInt{v: 1}
	h.Insert(a)
	h.Insert(b)
	h.Insert(c)

	require.Same(t, Item(c), h.Peek())

	b.v = -1
	h.Fix(b)
	require.Same(t, Item(b), h.Peek())
}

func TestExtractMinOnEmptyHeapPanics(t *testing.T) {
	h := New(false)
	require.Panics(t, func() { h.ExtractMin() })
}
