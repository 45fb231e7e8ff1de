package uthreads

// State is one of a thread descriptor's three possible lifecycle
// states. Every descriptor is created already READY or RUNNING; the
// zero value is Ready.
type State uint32

const (
	// Ready means the thread is on the ready queue, eligible to run,
	// but not currently holding the single RUNNING slot.
	Ready State = iota
	// Running means the thread currently holds the scheduler's single
	// execution token. Exactly one descriptor is ever in this state.
	Running
	// Blocked means the thread is not eligible to run: it was blocked
	// explicitly, is sleeping, or both.
	Blocked
)

func (s State) String() string {
	switch s {
	case Ready:
		return "READY"
	case Running:
		return "RUNNING"
	case Blocked:
		return "BLOCKED"
	default:
		return "UNKNOWN"
	}
}

// entryPoint is the function signature of a spawned thread's body,
// matching the original library's void entry_point(void).
type entryPoint func()

// descriptor is the per-thread control block. All mutable fields are
// touched only while the scheduler's critical section (Scheduler.mu)
// is held -- see DESIGN.md.
type descriptor struct {
	tid         int
	state       State
	quantumsRun int
	wakeUpTime  int
	entry       entryPoint
	stackSize   int
	resumeCh    chan struct{}
}

// newMainDescriptor builds the descriptor for tid 0. The main thread
// has no stack of its own -- it runs on the host goroutine that called
// Init, which is already executing by the time Init returns -- but it
// still carries a resumeCh, since the scheduler can demote it to READY
// like any other thread and must later hand it the token back.
//
// resumeCh is unbuffered: a send only succeeds once the receiving
// goroutine is actually parked waiting for it. That is what makes
// dispatch a real rendezvous instead of a fire-and-forget note left in
// a mailbox -- see DESIGN.md.
func newMainDescriptor() *descriptor {
	return &descriptor{
		tid:         0,
		state:       Running,
		quantumsRun: 1,
		wakeUpTime:  sentinelWakeUp,
		resumeCh:    make(chan struct{}),
	}
}

// newSpawnedDescriptor builds the descriptor for a freshly spawned
// non-main thread, READY but not yet dispatched.
func newSpawnedDescriptor(tid int, entry entryPoint) *descriptor {
	return &descriptor{
		tid:         tid,
		state:       Ready,
		quantumsRun: 0,
		wakeUpTime:  sentinelWakeUp,
		entry:       entry,
		stackSize:   StackSize,
		resumeCh:    make(chan struct{}),
	}
}

// sleeping reports whether the descriptor carries a pending wake-up
// quantum.
func (d *descriptor) sleeping() bool {
	return d.wakeUpTime != sentinelWakeUp
}
