package uthreads

import "container/heap"

// tidHeap is a min-heap of free tids, satisfying container/heap.Interface.
// This mirrors the original library's
// std::priority_queue<int, std::vector<int>, std::greater<int>>: the
// smallest free tid is always popped first.
type tidHeap []int

func (h tidHeap) Len() int            { return len(h) }
func (h tidHeap) Less(i, j int) bool  { return h[i] < h[j] }
func (h tidHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *tidHeap) Push(x interface{}) { *h = append(*h, x.(int)) }
func (h *tidHeap) Pop() interface{} {
	old := *h
	n := len(old)
	v := old[n-1]
	*h = old[:n-1]
	return v
}

// tidPool hands out the smallest free tid in [0, MaxThreads) and
// reclaims released tids. It partitions [0, MaxThreads) exactly with
// the threadTable's live keys and the current running tid.
type tidPool struct {
	free tidHeap
}

func newTidPool() *tidPool {
	p := &tidPool{free: make(tidHeap, MaxThreads)}
	for i := 0; i < MaxThreads; i++ {
		p.free[i] = i
	}
	heap.Init(&p.free)
	return p
}

// acquire returns the smallest available tid and true, or false if
// none remain.
func (p *tidPool) acquire() (int, bool) {
	if p.free.Len() == 0 {
		return 0, false
	}
	return heap.Pop(&p.free).(int), true
}

// release returns tid to the pool. release must be called exactly once
// per acquired tid.
func (p *tidPool) release(tid int) {
	heap.Push(&p.free, tid)
}
