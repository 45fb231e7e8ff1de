package uthreads

// readyQueue is an ordered, strictly FIFO sequence of tids eligible to
// run. Every call into it happens while the scheduler's critical
// section is held, so -- unlike the teacher's lock-free ring buffer and
// Michael-Scott list this package is grounded on -- no atomics or CAS
// loops are needed here; a plain slice is the idiomatic choice, and the
// spec explicitly allows Remove to be O(n).
type readyQueue struct {
	tids []int
}

func newReadyQueue() *readyQueue {
	return &readyQueue{tids: make([]int, 0, MaxThreads)}
}

// pushBack appends tid to the end of the queue.
func (q *readyQueue) pushBack(tid int) {
	q.tids = append(q.tids, tid)
}

// popFront removes and returns the tid at the front of the queue. The
// caller must ensure the queue is non-empty; the scheduler invariants
// (spec §8) guarantee this holds whenever popFront is called.
func (q *readyQueue) popFront() int {
	tid := q.tids[0]
	q.tids = q.tids[1:]
	return tid
}

// empty reports whether the queue has no entries.
func (q *readyQueue) empty() bool {
	return len(q.tids) == 0
}

// remove deletes the first occurrence of tid from the queue, if
// present. O(n), matching spec §4.2's allowance.
func (q *readyQueue) remove(tid int) {
	for i, t := range q.tids {
		if t == tid {
			q.tids = append(q.tids[:i], q.tids[i+1:]...)
			return
		}
	}
}
