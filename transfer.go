package fiber

import (
	"runtime"
	"unsafe"
)

// Resume codes delivered by a transfer. Code 0 is reserved for the
// falling-through return of Capture and is never delivered by a
// transfer, so call sites can tell the two paths apart.
const (
	codeResume = 1 // ordinary transfer into a saved context
	codeFault  = 2 // transfer carrying the panic payload of a fiber
)

// Context is a saved resume point for one execution strand. Capture
// fills it, Restore and Swap consume it. A Context holds a one-shot
// token: capturing arms it, transferring into it disarms it, and a
// second transfer without a capture in between is a programmer error
// that fails fast.
//
// The machine-word slots at the head of the struct mirror the register
// file a stack-switching implementation would save: instruction
// pointer, stack pointer, then six callee-saved slots. On a goroutine
// substrate they are diagnostic, but their order and size are part of
// the type's layout and are pinned by tests; events and traces expose
// the first two.
type Context struct {
	ip   uintptr    // resume instruction pointer
	sp   uintptr    // stack pointer at capture, or the dispatch base
	regs [6]uintptr // callee-saved slots, unused on this substrate

	// Strand linkage; not part of the slot layout. gate is the
	// rendezvous the owning strand parks on, buffered so a transfer may
	// fire before the strand parks. boot starts the strand of a fresh
	// fiber context on the first transfer. fault carries the panic
	// payload of a codeFault transfer, and seq counts capture
	// generations for diagnostics.
	gate   chan int
	armed  bool
	seq    uint64
	boot   func(code int)
	booted bool
	fault  any
}

func (c *Context) ensureGate() {
	if c.gate == nil {
		c.gate = make(chan int, 1)
	}
}

// arm records the caller's resume point and makes c the one live
// transfer token for its strand. The stack pointer slot is kept when a
// builder already assigned a dispatch base, and sampled from the live
// stack otherwise.
func (c *Context) arm(ip uintptr) {
	c.ensureGate()
	c.ip = ip
	if c.sp == 0 {
		c.sp = stackHint()
	}
	c.armed = true
	c.seq++
}

// transfer consumes the token armed in c and hands control to its
// strand: a fresh fiber context boots its strand at the entry point,
// a parked strand is woken with the resume code. The caller keeps
// running afterwards; sequencing is the caller's concern.
func (c *Context) transfer(code int, fault any) {
	if !c.armed {
		panic("fiber: transfer into a context that is not armed")
	}
	c.armed = false
	c.fault = fault
	if c.boot != nil && !c.booted {
		c.booted = true
		go c.boot(code)
		return
	}
	select {
	case c.gate <- code:
	default:
		panic("fiber: context resumed twice without an intervening park")
	}
}

// park blocks the calling strand until a transfer consumes the token it
// armed in c, and returns the delivered resume code.
func (c *Context) park() int {
	return <-c.gate
}

// Capture saves the caller's resume point in c and returns 0. The
// captured point is delivered the next time the strand parks: a later
// transfer into c resumes the strand there with a nonzero code. The
// zero return is how a call site distinguishes the capturing pass from
// a resumption.
func Capture(c *Context) int {
	c.arm(callerPC(1))
	return 0
}

// Restore transfers control into c and does not return: the calling
// strand terminates via runtime.Goexit, running its deferred calls
// after control has already moved on. Fibers exit through Exit instead,
// which sequences the scheduler's wake-up after their deferred calls.
//
// Restoring a context that is not armed, or one whose token was already
// consumed, fails fast.
func Restore(c *Context) {
	c.transfer(codeResume, nil)
	runtime.Goexit()
}

// Swap captures the caller's resume point in save, transfers control
// into to, and parks. The two halves are inseparable: once Swap is
// entered the save token exists before control moves, so the strand can
// always be resumed. Swap returns once per later transfer into save,
// delivering that transfer's resume code; each return passes through
// this same call site, re-armed by the next Swap call.
func Swap(save, to *Context) int {
	save.arm(callerPC(1))
	to.transfer(codeResume, nil)
	return save.park()
}

// callerPC returns the program counter skip frames above the caller,
// or 0 when the stack is too shallow.
func callerPC(skip int) uintptr {
	pc, _, _, ok := runtime.Caller(skip + 1)
	if !ok {
		return 0
	}
	return pc
}

// stackHint returns an address within the calling strand's stack. It is
// recorded in the stack pointer slot of contexts that do not own a
// stack reservation.
func stackHint() uintptr {
	var here byte
	return uintptr(unsafe.Pointer(&here))
}
