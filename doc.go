// Package fiber implements cooperative, run-to-completion multitasking:
// fibers are units of execution that run until they explicitly yield or
// exit, scheduled in FIFO order by a single-threaded scheduler.
//
// The package is layered. At the bottom sits the context transfer
// primitive (Capture, Restore, Swap), which moves control between
// execution strands through saved Context values. Above it, Stack owns
// a fiber's stack reservation and New assembles entry point, payload,
// and Context into a ready-to-run Fiber. At the top, Scheduler
// dispatches spawned fibers until its ready queue drains. Everything
// above the primitive and the stack builder treats Context as opaque.
//
// Concurrency is cooperative and explicit: between two scheduling
// points exactly one fiber runs, so fibers of the same scheduler may
// share data without locks. A fiber keeps the processor until it calls
// Yield, which re-queues it behind every other ready fiber, or Exit,
// which completes it. Entry functions must terminate with Exit; the
// runtime fails fast when one returns without it, and the fiberexit
// analyzer reports such entries at vet time.
//
// A Scheduler and its fibers form one cooperative thread of control.
// The package is not safe for concurrent use of a single scheduler from
// multiple goroutines; run independent schedulers instead.
package fiber
