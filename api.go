package uthreads

import (
	"os"
	"runtime"
)

// Init brings up the library. It must be called exactly once, before
// any other exported function, from the goroutine that will act as the
// main thread (tid 0). quantumUsecs is the length of a scheduling
// quantum in microseconds and must be positive.
func Init(quantumUsecs int) error {
	globalMu.Lock()
	defer globalMu.Unlock()

	s := newScheduler(quantumUsecs)
	if quantumUsecs <= 0 {
		return s.reportUser("uthread_init", 0, ErrBadQuantum)
	}

	main := newMainDescriptor()
	s.table.put(main)
	s.running = 0
	s.totalQuantums = 1
	if _, ok := s.tids.acquire(); !ok {
		// tid 0 is reserved for main and always the first one handed
		// out by a fresh pool; this would mean the pool was built wrong.
		panic("uthreads: tid pool did not yield 0 for main")
	}

	s.timer.install(s.preemptionTick)
	s.timer.rearm(s.fatalFn("uthread_init"))

	global = s
	return nil
}

// Spawn creates a new thread running entry, in the READY state, and
// returns its tid. entry must not be nil. Returns ErrOutOfTids if
// MaxThreads threads are already live.
func Spawn(entry entryPoint) (int, error) {
	s := global
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.processPendingPreemptionLocked() {
		runtime.Goexit()
	}

	if entry == nil {
		return 0, s.reportUser("uthread_spawn", -1, ErrNullEntry)
	}
	tid, ok := s.tids.acquire()
	if !ok {
		return 0, s.reportUser("uthread_spawn", -1, ErrOutOfTids)
	}

	d := newSpawnedDescriptor(tid, entry)
	s.table.put(d)
	s.ready.pushBack(tid)

	go runSpawnedThread(s, d)

	return tid, nil
}

// runSpawnedThread is the body of every spawned thread's backing
// goroutine. It waits for the scheduler to hand it the execution
// token, runs the user's entry point to completion, and then
// self-terminates exactly as if the thread had called Terminate on its
// own tid -- matching the original library's "returning from the entry
// function is equivalent to calling terminate" rule.
//
// If the channel is closed instead of sent to, this thread was
// terminated by someone else before it was ever dispatched; it must
// not run entry at all.
func runSpawnedThread(s *Scheduler, d *descriptor) {
	if _, alive := <-d.resumeCh; !alive {
		return
	}
	d.entry()
	_ = Terminate(d.tid)
}

// Terminate ends the thread identified by tid. Terminating tid 0 tears
// down the entire library and exits the process with status 0, per
// spec -- it never returns. Terminating the calling thread itself also
// never returns to its caller: it stops the current goroutine via
// runtime.Goexit after handing control to the next ready thread.
func Terminate(tid int) error {
	s := global
	s.mu.Lock()
	if s.processPendingPreemptionLocked() {
		s.mu.Unlock()
		runtime.Goexit()
	}

	if tid == 0 {
		s.teardownAllLocked()
		s.mu.Unlock()
		os.Exit(0)
		panic("unreachable")
	}

	d, ok := s.table.get(tid)
	if !ok {
		defer s.mu.Unlock()
		return s.reportUser("uthread_terminate", tid, ErrNoSuchTid)
	}

	if tid != s.running {
		s.freeLocked(d)
		s.mu.Unlock()
		return nil
	}

	s.freeLocked(d)
	s.timer.rearm(s.fatalFn("uthread_terminate"))
	s.advanceAndDispatchLocked()
	s.mu.Unlock()
	runtime.Goexit()
	panic("unreachable")
}

// Block moves the thread identified by tid out of contention: READY or
// RUNNING threads become BLOCKED and stop being scheduled until a
// matching Resume. Blocking the calling thread (tid == the currently
// running thread) yields the processor immediately, exactly as a
// preemption tick would, and does not return until some other thread
// resumes it. Blocking tid 0 is an error.
func Block(tid int) error {
	s := global
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.processPendingPreemptionLocked() {
		runtime.Goexit()
	}

	if tid == 0 {
		return s.reportUser("uthread_block", tid, ErrBadTid)
	}
	d, ok := s.table.get(tid)
	if !ok {
		return s.reportUser("uthread_block", tid, ErrNoSuchTid)
	}
	if d.state == Blocked {
		return nil
	}

	if tid == s.running {
		d.state = Blocked
		s.timer.rearm(s.fatalFn("uthread_block"))
		s.advanceAndDispatchLocked()
		s.mu.Unlock()
		_, alive := <-d.resumeCh
		s.mu.Lock()
		if !alive {
			runtime.Goexit()
		}
		return nil
	}

	if d.state == Ready {
		s.ready.remove(tid)
	}
	d.state = Blocked
	return nil
}

// Resume moves a BLOCKED thread back to READY. It has no effect on a
// thread that is already READY or RUNNING, and no effect on a thread
// that is still sleeping -- the sleep's own wake-up pass is what
// eventually promotes it.
func Resume(tid int) error {
	s := global
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.processPendingPreemptionLocked() {
		runtime.Goexit()
	}

	d, ok := s.table.get(tid)
	if !ok {
		return s.reportUser("uthread_resume", tid, ErrNoSuchTid)
	}
	if d.state != Blocked || d.sleeping() {
		return nil
	}
	d.state = Ready
	s.ready.pushBack(tid)
	return nil
}

// Sleep blocks the calling thread for n quantums, after which it
// becomes eligible to run again (subject to the ready queue, exactly
// like a thread that calls Block then is Resumed). Calling Sleep from
// tid 0, or with a non-positive n, is an error. Sleep does not return
// until the thread has actually been redispatched.
func Sleep(n int) error {
	s := global
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.processPendingPreemptionLocked() {
		runtime.Goexit()
	}

	if s.running == 0 {
		return s.reportUser("uthread_sleep", 0, ErrBadTid)
	}
	if n <= 0 {
		return s.reportUser("uthread_sleep", s.running, ErrBadQuantum)
	}

	d, ok := s.table.get(s.running)
	if !ok {
		panic("uthreads: running tid missing from thread table")
	}
	d.wakeUpTime = s.totalQuantums + n
	s.sleeping.add(d.tid)
	d.state = Blocked

	s.timer.rearm(s.fatalFn("uthread_sleep"))
	s.advanceAndDispatchLocked()
	s.mu.Unlock()
	_, alive := <-d.resumeCh
	s.mu.Lock()
	if !alive {
		runtime.Goexit()
	}
	return nil
}

// GetTid returns the tid of the thread currently holding the
// scheduler's execution token. The checkpoint run at entry is what
// makes the law "get_tid() inside thread t returns t" hold even when a
// quantum expired while t was running: t discovers and processes its
// own preemption here, before reading s.running, rather than reading a
// value some other goroutine already moved on without it.
func GetTid() int {
	s := global
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.processPendingPreemptionLocked() {
		runtime.Goexit()
	}
	return s.running
}

// GetTotalQuantums returns the number of quantums elapsed since Init,
// counting the first quantum main is given as quantum 1.
func GetTotalQuantums() int {
	s := global
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.processPendingPreemptionLocked() {
		runtime.Goexit()
	}
	return s.totalQuantums
}

// GetQuantums returns the number of quantums thread tid has been
// RUNNING, including any quantum it is in the middle of right now.
func GetQuantums(tid int) (int, error) {
	s := global
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.processPendingPreemptionLocked() {
		runtime.Goexit()
	}
	d, ok := s.table.get(tid)
	if !ok {
		return 0, s.reportUser("uthread_get_quantums", tid, ErrNoSuchTid)
	}
	return d.quantumsRun, nil
}

// Yield gives the scheduler a chance to preempt the calling thread if
// its quantum has already elapsed. It is not one of the library's core
// entry points -- it exists because Go provides no portable way to
// force-suspend an arbitrary running goroutine the way SIGVTALRM
// interrupts an arbitrary program counter in C. Every other entry point
// except Init already runs this same checkpoint on entry, so a thread
// that calls Sleep, Block, Resume, or GetTid regularly needs nothing
// extra; a thread whose body is a tight compute loop with no other
// library calls must call Yield periodically, or the scheduler cannot
// ever take the token back from it. See DESIGN.md.
func Yield() {
	s := global
	s.mu.Lock()
	terminated := s.processPendingPreemptionLocked()
	s.mu.Unlock()
	if terminated {
		runtime.Goexit()
	}
}
