package fiber

import (
	"fmt"
	"reflect"
	"runtime"
	"sync/atomic"
)

// State is the lifecycle state of a fiber.
type State int32

const (
	// Ready fibers are runnable: newly built, or re-queued by Yield.
	Ready State = iota
	// Running is the state of the fiber currently dispatched by its
	// scheduler. At most one fiber per scheduler is Running.
	Running
	// Completed fibers have exited. The state is terminal and the only
	// one a stack reservation may be released from.
	Completed
)

func (s State) String() string {
	switch s {
	case Ready:
		return "Ready"
	case Running:
		return "Running"
	case Completed:
		return "Completed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

var lastFiberID atomic.Uint64

// Fiber is a cooperatively scheduled unit of execution: an entry
// function, an owned stack reservation, a typed payload shared by
// agreement with the spawner, and the saved Context a scheduler resumes
// it through.
//
// The type parameter fixes the payload type at construction, making the
// spawner/entry agreement part of the fiber's type instead of a
// convention over an opaque pointer. Fibers with different payload
// types interleave freely on one scheduler.
type Fiber[T any] struct {
	id     uint64
	entry  func(*Fiber[T])
	data   T
	stack  Stack
	ctx    Context
	state  State
	sched  *Scheduler
	queued bool
}

// New builds a fiber in the Ready state. Its stack reservation is
// allocated per the options and its Context is prepared so that the
// first transfer into it enters entry with the fiber's handle; nothing
// runs until a scheduler dispatches it.
//
// Entry functions must terminate by calling Exit on the handle.
// Returning from one is a programmer error: it fails fast at run time,
// and the fiberexit analyzer reports it at vet time.
func New[T any](entry func(*Fiber[T]), data T, opts ...Option) *Fiber[T] {
	if entry == nil {
		panic("fiber: New with a nil entry")
	}
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	f := &Fiber[T]{
		id:    lastFiberID.Add(1),
		entry: entry,
		data:  data,
		stack: NewStack(cfg.stackSize, cfg.alloc),
	}
	f.ctx = buildContext(reflect.ValueOf(entry).Pointer(), &f.stack, f.boot)
	return f
}

// Data returns the payload supplied at construction. The runtime never
// interprets it; it is the communication channel between spawner and
// fiber, and between fibers that agree to share it.
func (f *Fiber[T]) Data() T { return f.data }

// State returns the fiber's lifecycle state.
func (f *Fiber[T]) State() State { return f.state }

// ID returns the process-unique fiber id carried in scheduler events.
func (f *Fiber[T]) ID() uint64 { return f.id }

// Yield suspends the calling fiber and re-queues it at the tail of its
// scheduler's ready queue, behind every fiber already waiting. It is
// legal only from the running fiber itself, inside its dispatch, and
// returns when the scheduler next dispatches the fiber, with all local
// state intact. Data shared with other fibers may have changed across
// the call; data local to the fiber cannot.
func (f *Fiber[T]) Yield() {
	s := f.sched
	if s == nil || !s.isCurrent(f) || f.state != Running {
		panic("fiber: Yield called outside the fiber's own dispatch")
	}
	f.state = Ready
	s.emit(EventYield, f)
	s.enqueue(f)
	Swap(&f.ctx, &s.home)
}

// Exit terminates the calling fiber and does not return. The fiber
// becomes Completed and its strand unwinds, running deferred calls;
// the scheduler resumes only after the unwinding finishes, so deferred
// code still runs under the fiber's turn. Exit is the required last
// act of every entry function and the only transition into Completed.
func (f *Fiber[T]) Exit() {
	s := f.sched
	if s == nil || !s.isCurrent(f) || f.state != Running {
		panic("fiber: Exit called outside the fiber's own dispatch")
	}
	f.state = Completed
	runtime.Goexit()
}

// Release returns the fiber's stack reservation to its allocator.
// Only a Completed fiber may be released; anything else still owns live
// frames and panics. Release is idempotent. After it, only State, ID
// and Data remain meaningful.
func (f *Fiber[T]) Release() {
	if f.state != Completed {
		panic("fiber: Release of a fiber that has not completed")
	}
	f.stack.release()
}

// boot is the fiber's strand. The first transfer into a fresh context
// starts it; it runs the entry and, through the deferred finish, hands
// control back to the scheduler however the entry ends.
func (f *Fiber[T]) boot(code int) {
	defer f.finish()
	f.entry(f)
}

// finish is the last deferred call on the fiber's strand, running after
// every defer the entry installed. It is the back half of a dispatch:
// the scheduler wakes only here, so nothing the scheduler runs next can
// overlap the fiber's unwinding. An entry that returns instead of
// exiting, or panics, completes the fiber and forwards a fault for the
// scheduler to re-raise.
func (f *Fiber[T]) finish() {
	s := f.sched
	fault := recover()
	if fault == nil && f.state != Completed {
		fault = fmt.Errorf("fiber: entry of fiber %d returned without calling Exit", f.id)
	}
	f.state = Completed
	f.sched = nil
	if fault != nil {
		s.home.transfer(codeFault, fault)
		return
	}
	s.home.transfer(codeResume, nil)
}

// Scheduler-facing hooks; see Runnable.

func (f *Fiber[T]) context() *Context { return &f.ctx }

func (f *Fiber[T]) bind(s *Scheduler) {
	// A Ready fiber bound to a scheduler is always queued too, so the
	// cross-scheduler check has to run before the queued check.
	switch {
	case f.state != Ready:
		panic("fiber: Spawn of a fiber that is not Ready")
	case f.sched != nil && f.sched != s:
		panic("fiber: Spawn of a fiber bound to another scheduler")
	case f.queued:
		panic("fiber: Spawn of a fiber already in a ready queue")
	}
	f.sched = s
}

func (f *Fiber[T]) setQueued(queued bool) { f.queued = queued }

func (f *Fiber[T]) markRunning() { f.state = Running }
