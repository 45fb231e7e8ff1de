package uthreads

// MaxThreads is the maximum number of concurrently live threads,
// including the main thread (tid 0).
const MaxThreads = 100

// StackSize is the nominal stack size, in bytes, recorded against every
// spawned thread's descriptor. Go goroutine stacks grow and shrink on
// demand and are never manually allocated, so this constant is
// informational bookkeeping rather than a real allocation size -- see
// DESIGN.md for the rationale.
const StackSize = 4096

// sentinelWakeUp marks a descriptor that is not sleeping.
const sentinelWakeUp = -1
