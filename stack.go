package fiber

import "unsafe"

// Stack layout constants of the dispatch convention.
const (
	// DefaultStackSize is the reservation given to fibers built without
	// WithStackSize.
	DefaultStackSize = 8192

	// MinStackSize is the smallest reservation the builder accepts;
	// anything below cannot hold the red zone plus a useful frame.
	MinStackSize = 256

	// StackAlign is the alignment required of a stack pointer at
	// dispatch. SIMD-capable code assumes it.
	StackAlign = 16

	// RedZoneSize is the scratch region reserved below the initial
	// stack pointer that called code may use without adjusting the
	// pointer. It is a multiple of StackAlign, so reserving it keeps
	// the pointer aligned for any base address.
	RedZoneSize = 128
)

// StackAllocator supplies and reclaims stack reservations. Allocation
// strategy is a collaborator of the runtime, not something it owns;
// pools or arenas plug in through WithAllocator. The default allocator
// is the Go heap.
type StackAllocator interface {
	// AllocStack returns a zeroed buffer of exactly size bytes.
	AllocStack(size int) []byte
	// FreeStack reclaims a buffer previously returned by AllocStack.
	FreeStack(buf []byte)
}

type heapAllocator struct{}

func (heapAllocator) AllocStack(size int) []byte { return make([]byte, size) }
func (heapAllocator) FreeStack(buf []byte)       {}

// Stack is the owned stack reservation of one fiber. It records the
// allocator that produced the buffer so release returns it to the same
// place.
type Stack struct {
	buf   []byte
	alloc StackAllocator
}

// NewStack reserves a stack of the given size using alloc, or the heap
// when alloc is nil. Sizes below MinStackSize are a configuration error
// and panic.
func NewStack(size int, alloc StackAllocator) Stack {
	if size < MinStackSize {
		panic("fiber: stack size below MinStackSize")
	}
	if alloc == nil {
		alloc = heapAllocator{}
	}
	buf := alloc.AllocStack(size)
	if len(buf) != size {
		panic("fiber: allocator returned a buffer of the wrong size")
	}
	return Stack{buf: buf, alloc: alloc}
}

// Size returns the reservation size in bytes, or 0 after release.
func (s *Stack) Size() int { return len(s.buf) }

// Base returns the lowest address of the reservation, or 0 after
// release.
func (s *Stack) Base() uintptr {
	if len(s.buf) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&s.buf[0]))
}

// release returns the buffer to its allocator. Idempotent.
func (s *Stack) release() {
	if s.buf != nil {
		s.alloc.FreeStack(s.buf)
		s.buf = nil
	}
}

// initialSP computes the dispatch stack pointer for a reservation
// spanning [base, base+size): one past the highest address, rounded
// down to StackAlign, minus the red zone. The result is aligned for
// every base because RedZoneSize is a multiple of StackAlign, and with
// size >= MinStackSize it always lands strictly inside the reservation.
func initialSP(base, size uintptr) uintptr {
	top := base + size
	top &^= StackAlign - 1
	return top - RedZoneSize
}

// buildContext prepares the Context of a fiber that has never run: the
// stack pointer slot holds the reservation's dispatch base, the
// instruction pointer slot holds the entry's PC, and the token is armed
// so that the first transfer boots the strand at the entry point.
func buildContext(entryPC uintptr, stack *Stack, boot func(code int)) Context {
	var c Context
	c.ip = entryPC
	c.sp = initialSP(stack.Base(), uintptr(stack.Size()))
	c.boot = boot
	c.armed = true
	c.seq = 1
	c.ensureGate()
	return c
}
