package uthreads

import (
	"runtime"
	"sync"

	"github.com/sirupsen/logrus"
)

// Scheduler owns every piece of mutable library state: the thread
// table, ready queue, sleep set, tid allocator, timer binding, the
// currently running tid, and the global quantum counter. All of it is
// touched only while mu is held -- mu is this port's "with preemption
// masked" critical section from spec §4.3.
type Scheduler struct {
	mu  sync.Mutex
	log *logrus.Logger

	table    *threadTable
	ready    *readyQueue
	sleeping *sleepSet
	tids     *tidPool
	timer    *timerBinding

	running        int
	totalQuantums  int
	preemptPending bool
}

var (
	globalMu sync.Mutex
	global   *Scheduler
)

func newScheduler(quantumUsecs int) *Scheduler {
	return &Scheduler{
		log:      newDiagnosticsLogger(),
		table:    newThreadTable(),
		ready:    newReadyQueue(),
		sleeping: newSleepSet(),
		tids:     newTidPool(),
		timer:    newTimerBinding(quantumUsecs),
	}
}

// wakeUpPassLocked runs the wake-up pass from spec §4.4 step 4: every
// descriptor in the sleep set whose wake_up_time has arrived is pulled
// out of it; if it is BLOCKED, it transitions to READY and joins the
// ready queue. An explicit Block is not tracked apart from sleeping:
// a sleeper that was also passed to Block is in the same BLOCKED state,
// so it too becomes READY on wake.
func (s *Scheduler) wakeUpPassLocked() {
	s.sleeping.forEach(func(tid int) {
		d, ok := s.table.get(tid)
		if !ok {
			s.sleeping.remove(tid)
			return
		}
		if d.wakeUpTime != s.totalQuantums {
			return
		}
		d.wakeUpTime = sentinelWakeUp
		if d.state == Blocked {
			d.state = Ready
			s.ready.pushBack(tid)
		}
		s.sleeping.remove(tid)
	})
}

// dispatchNextLocked pops the front of the ready queue, promotes it to
// RUNNING, and hands it the execution token over its resumeCh. This is
// the "pop the front of the ready queue into running" half of spec
// §4.4 step 5, realized with a per-thread channel instead of
// sigsetjmp/siglongjmp -- see SPEC_FULL.md §3.
func (s *Scheduler) dispatchNextLocked() {
	tid := s.ready.popFront()
	d, ok := s.table.get(tid)
	if !ok {
		// The table and ready queue are only ever mutated together
		// under mu; this would mean an invariant violation elsewhere.
		panic("uthreads: ready tid missing from thread table")
	}
	d.state = Running
	d.quantumsRun++
	s.running = tid
	d.resumeCh <- struct{}{}
}

// advanceAndDispatchLocked is the common tail shared by the preemption
// tick, voluntary yield, and terminate-self paths: bump
// total_quantums, run the wake-up pass, then dispatch whoever is now at
// the front of the ready queue.
func (s *Scheduler) advanceAndDispatchLocked() {
	s.totalQuantums++
	s.wakeUpPassLocked()
	s.dispatchNextLocked()
}

// preemptionTick is the handler bound to SIGVTALRM delivery (spec
// §4.4, "Preemption tick"). It always runs on the timer binding's
// dedicated delivery goroutine, never on a user thread's own goroutine,
// and that goroutine has no way to stop whichever goroutine is
// currently executing user code -- so it must not touch the running
// thread's descriptor, the ready queue, or total_quantums itself. Doing
// so used to be exactly the bug: it would demote a goroutine that kept
// right on running, so two "threads" executed concurrently and a
// redispatch of that same goroutine later could find its baton already
// full. All preemptionTick is safe to do from a foreign goroutine is
// flip a flag under mu; the actual demote-and-dispatch transition only
// ever runs on the currently running thread's own goroutine, inside
// processPendingPreemptionLocked, which it reaches the next time it
// calls into the library -- see Yield and DESIGN.md.
func (s *Scheduler) preemptionTick() {
	s.mu.Lock()
	s.preemptPending = true
	s.mu.Unlock()
}

// processPendingPreemptionLocked is the checkpoint every exported entry
// point runs first, with mu held. If a quantum elapsed since this
// thread was last dispatched, it performs the full preemption
// transition -- demote self to READY, advance total_quantums, run the
// wake-up pass, dispatch whoever is now at the front of the ready queue
// -- and then actually blocks this goroutine on its own resumeCh until
// it is redispatched. That block is the real suspend the timer-driven
// path cannot provide on its own: because it happens on the thread's
// own goroutine, nothing else can be running at the same time.
//
// mu is held on entry and on every return. It reports true if the
// thread was terminated by another thread while parked here, in which
// case the caller must unwind via runtime.Goexit without running any
// more of the entry function's body.
func (s *Scheduler) processPendingPreemptionLocked() (terminated bool) {
	if !s.preemptPending {
		return false
	}
	s.preemptPending = false

	tid := s.running
	d, ok := s.table.get(tid)
	if !ok || d.state != Running {
		return false
	}

	if s.ready.empty() {
		// Nothing else is READY, so this thread would be the front of the
		// queue and be dispatched again at once: it keeps the token for
		// the next quantum instead of sending on its own baton, which no
		// goroutine would ever receive.
		s.timer.rearm(s.fatalFn("uthread_preempt"))
		s.totalQuantums++
		s.wakeUpPassLocked()
		d.quantumsRun++
		return false
	}

	d.state = Ready
	s.ready.pushBack(tid)
	s.timer.rearm(s.fatalFn("uthread_preempt"))
	s.advanceAndDispatchLocked()

	s.mu.Unlock()
	_, alive := <-d.resumeCh
	s.mu.Lock()
	return !alive
}

// fatalFn adapts reportFatal to the onFatal callback shape timerBinding
// expects, tagging the diagnostic with the operation that triggered it.
func (s *Scheduler) fatalFn(op string) func(ErrKind) {
	return func(kind ErrKind) { s.reportFatal(op, kind) }
}

// freeLocked releases tid back to the pool and removes its descriptor
// from the thread table and every ancillary structure. Per spec §9's
// resolved ambiguity, terminating a BLOCKED thread also does a no-op
// scan of the ready queue (ready.remove is a no-op if tid is absent) --
// kept for parity with the original rather than special-cased away.
//
// Closing resumeCh unblocks a backing goroutine that is parked waiting
// for a token that will now never come -- a thread terminated by
// another thread before ever being dispatched, or while BLOCKED or
// sleeping. runSpawnedThread and every self-park site treat a closed
// channel as "I was terminated out from under me" and exit without
// running any more user code, rather than leaking the goroutine.
func (s *Scheduler) freeLocked(d *descriptor) {
	s.ready.remove(d.tid)
	s.sleeping.remove(d.tid)
	s.table.delete(d.tid)
	s.tids.release(d.tid)
	close(d.resumeCh)
}

// teardownAllLocked implements terminate(0): free every live thread and
// reset every ancillary structure. The caller exits the process
// immediately afterward, so closing every remaining baton here is just
// hygiene, not a correctness requirement.
func (s *Scheduler) teardownAllLocked() {
	for _, d := range s.table.byTid {
		s.tids.release(d.tid)
		close(d.resumeCh)
	}
	s.table = newThreadTable()
	s.ready = newReadyQueue()
	s.sleeping = newSleepSet()
	s.timer.close()
}

func init() {
	// Matches spec §5's single-OS-thread model: at most one P exists,
	// so at most one user thread's goroutine is ever truly executing;
	// every other thread's goroutine is parked on a channel receive.
	runtime.GOMAXPROCS(1)
}
