// Package uthreads implements a user-level thread library that
// multiplexes many logical threads onto a single scheduling domain.
//
// The library provides round-robin scheduling of user threads with
// fixed-size stack bookkeeping, preemption driven by a virtual interval
// timer, explicit blocking/resuming/sleeping primitives, and
// deterministic ordering guarantees across state transitions.
//
// Known limitations:
//
// 1. At most MaxThreads threads (including the main thread) may be
//    live at once.
// 2. GOMAXPROCS is pinned to 1 for the lifetime of the library: only
//    one user thread's goroutine is ever actually runnable, matching
//    the single-OS-thread model this library emulates.
// 3. A thread's body is expected to reach a library call (Block,
//    Sleep, GetTid, a natural return, or Yield) at least once per
//    quantum. Go has no portable way to force-suspend an uncooperative
//    goroutine mid instruction the way SIGVTALRM can interrupt an
//    arbitrary program counter, so the preemption tick itself only
//    flags that a quantum elapsed; the actual demote-and-dispatch
//    transition, including the suspend that hands the token to the
//    next thread, runs on the preempted thread's own goroutine the
//    next time it reaches a checkpoint. A pure compute loop with no
//    other library calls must call Yield to get that checkpoint. See
//    DESIGN.md.
package uthreads
