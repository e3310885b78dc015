// Package heap implements a binary min-heap with an optional back-index,
// letting callers remove or re-prioritize an arbitrary element in
// O(log n) instead of the O(n) scan a plain priority queue would need.
//
// This is deliberately not built on top of container/heap: container/heap
// calls Swap during Push/Pop/Fix, and the back-index has to be kept in
// lockstep with every Swap, so the sift up/down logic lives here directly
// rather than behind container/heap's Interface.
package heap

// Item is anything orderable that can live in a Heap.
type Item interface {
	// Less reports whether the receiver sorts before other.
	Less(other Item) bool
}

// Indexer is implemented by items that need O(log n) Remove/Fix/Contains.
// The heap calls SetHeapIndex every time the item's position changes,
// including -1 when the item leaves the heap. Without this, Remove,
// Fix, and Contains are unavailable and panic if called.
type Indexer interface {
	Item
	HeapIndex() int
	SetHeapIndex(i int)
}

// notInHeap is the sentinel stored by SetHeapIndex for an item that is
// not currently in any heap.
const notInHeap = -1

// Heap is a binary min-heap over Item. The zero value is not usable;
// construct with New.
type Heap struct {
	data    []Item
	indexed bool
}

// New creates an empty heap. indexed must be true if Remove, Fix, or
// Contains will be used; every Item inserted must then implement Indexer.
func New(indexed bool) *Heap {
	return &Heap{data: make([]Item, 0, 32), indexed: indexed}
}

// Len returns the number of items currently in the heap.
func (h *Heap) Len() int { return len(h.data) }

// Empty reports whether the heap has no items.
func (h *Heap) Empty() bool { return len(h.data) == 0 }

// Peek returns the minimum item without removing it, or nil if empty.
func (h *Heap) Peek() Item {
	if len(h.data) == 0 {
		return nil
	}
	return h.data[0]
}

func parent(i int) int { return (i - 1) / 2 }
func left(i int) int   { return 2*i + 1 }
func right(i int) int  { return 2*i + 2 }

func (h *Heap) less(i, j int) bool { return h.data[i].Less(h.data[j]) }

func (h *Heap) swap(i, j int) {
	h.data[i], h.data[j] = h.data[j], h.data[i]
	if h.indexed {
		h.data[i].(Indexer).SetHeapIndex(i)
		h.data[j].(Indexer).SetHeapIndex(j)
	}
}

func (h *Heap) set(i int, v Item) {
	h.data[i] = v
	if h.indexed {
		v.(Indexer).SetHeapIndex(i)
	}
}

func (h *Heap) clear(v Item) {
	if h.indexed {
		v.(Indexer).SetHeapIndex(notInHeap)
	}
}

// siftUp ("decrease-key") walks i toward the root while its parent sorts
// after it.
func (h *Heap) siftUp(i int) {
	for i > 0 {
		p := parent(i)
		if !h.less(i, p) {
			break
		}
		h.swap(i, p)
		i = p
	}
}

// siftDown ("min-heapify") walks i toward the leaves, swapping with the
// smaller child until the heap property holds.
func (h *Heap) siftDown(i int) {
	n := len(h.data)
	for {
		l, r := left(i), right(i)
		min := i
		if l < n && h.less(l, min) {
			min = l
		}
		if r < n && h.less(r, min) {
			min = r
		}
		if min == i {
			return
		}
		h.swap(i, min)
		i = min
	}
}

// Insert adds v to the heap.
func (h *Heap) Insert(v Item) {
	h.data = append(h.data, nil)
	h.set(len(h.data)-1, v)
	h.siftUp(len(h.data) - 1)
}

// ExtractMin removes and returns the minimum item. It panics if the
// heap is empty.
func (h *Heap) ExtractMin() Item {
	if len(h.data) == 0 {
		panic("heap: extract-min on empty heap")
	}
	min := h.data[0]
	h.clear(min)
	last := len(h.data) - 1
	h.data[0] = h.data[last]
	h.data[last] = nil
	h.data = h.data[:last]
	if len(h.data) > 0 {
		if h.indexed {
			h.data[0].(Indexer).SetHeapIndex(0)
		}
		h.siftDown(0)
	}
	return min
}

// Contains reports whether v is currently in the heap. Requires an
// indexed heap; panics otherwise.
func (h *Heap) Contains(v Item) bool {
	if !h.indexed {
		panic("heap: Contains called on a non-indexed heap")
	}
	return v.(Indexer).HeapIndex() != notInHeap
}

// Remove deletes v from the heap in O(log n). Requires an indexed
// heap; panics if v is not present.
func (h *Heap) Remove(v Item) {
	if !h.Contains(v) {
		panic("heap: Remove called on an item not in the heap")
	}
	i := v.(Indexer).HeapIndex()
	for i > 0 {
		p := parent(i)
		h.swap(i, p)
		i = p
	}
	h.ExtractMin()
}

// Fix re-establishes heap order for v after its sort key has changed
// in place. Requires an indexed heap.
func (h *Heap) Fix(v Item) {
	if !h.indexed {
		panic("heap: Fix called on a non-indexed heap")
	}
	i := v.(Indexer).HeapIndex()
	h.siftUp(i)
	h.siftDown(i)
}
