package memvfs

import "container/heap"

// idMinHeap is a min-heap of released FileIds, adapted from the
// teacher's free-list allocator (minheap.go) so that released ids are
// reused smallest-first instead of growing nextID without bound.
type idMinHeap []uint64

func (h idMinHeap) Len() int           { return len(h) }
func (h idMinHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h idMinHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *idMinHeap) Push(x interface{}) { *h = append(*h, x.(uint64)) }

func (h *idMinHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// idAllocator hands out FileIds, preferring the smallest previously
// released id before growing the high-water mark.
type idAllocator struct {
	next uint64
	free idMinHeap
}

func newIDAllocator(start uint64) *idAllocator {
	a := &idAllocator{next: start}
	heap.Init(&a.free)
	return a
}

func (a *idAllocator) allocate() uint64 {
	if a.free.Len() > 0 {
		return heap.Pop(&a.free).(uint64)
	}
	id := a.next
	a.next++
	return id
}

func (a *idAllocator) release(id uint64) {
	heap.Push(&a.free, id)
}
