package fiber

import (
	"testing"
	"unsafe"
)

type recordingAllocator struct {
	allocs int
	frees  [][]byte
}

func (a *recordingAllocator) AllocStack(size int) []byte {
	a.allocs++
	return make([]byte, size)
}

func (a *recordingAllocator) FreeStack(buf []byte) {
	a.frees = append(a.frees, buf)
}

func TestInitialSPAlignment(t *testing.T) {
	bases := []uintptr{1, 0x1000, 0x1001, 0x1007, 0x100f, 0x7ffff001}
	sizes := []uintptr{MinStackSize, MinStackSize + 1, 300, 4096, DefaultStackSize, 12345}
	for _, base := range bases {
		for _, size := range sizes {
			sp := initialSP(base, size)
			if sp%StackAlign != 0 {
				t.Errorf("unaligned stack pointer for base=%#x size=%d: %#x", base, size, sp)
			}
			if sp <= base || sp+RedZoneSize > base+size {
				t.Errorf("stack pointer outside the reservation for base=%#x size=%d: %#x", base, size, sp)
			}
		}
	}
}

func TestRedZoneMultipleOfAlignment(t *testing.T) {
	if RedZoneSize%StackAlign != 0 {
		t.Fatalf("red zone of %d bytes is not a multiple of the %d byte stack alignment", RedZoneSize, StackAlign)
	}
}

func TestBuildContextFromStack(t *testing.T) {
	stack := NewStack(DefaultStackSize, nil)
	c := buildContext(0x42, &stack, nil)

	if c.ip != 0x42 {
		t.Errorf("wrong instruction pointer slot: got %#x, expect 0x42", c.ip)
	}
	if c.sp%StackAlign != 0 {
		t.Errorf("unaligned stack pointer slot: %#x", c.sp)
	}
	if c.sp <= stack.Base() || c.sp >= stack.Base()+uintptr(stack.Size()) {
		t.Errorf("stack pointer slot outside the reservation: %#x", c.sp)
	}
	if !c.armed {
		t.Error("fresh context is not armed")
	}
	if c.seq != 1 {
		t.Errorf("wrong capture generation for a fresh context: got %d, expect 1", c.seq)
	}
}

func TestNewStackSizeBounds(t *testing.T) {
	stack := NewStack(MinStackSize, nil)
	if stack.Size() != MinStackSize {
		t.Errorf("wrong stack size: got %d, expect %d", stack.Size(), MinStackSize)
	}
	mustPanic(t, "below MinStackSize", func() { NewStack(MinStackSize-1, nil) })
}

type shortAllocator struct{}

func (shortAllocator) AllocStack(size int) []byte { return make([]byte, size-1) }
func (shortAllocator) FreeStack(buf []byte)       {}

func TestNewStackChecksAllocator(t *testing.T) {
	mustPanic(t, "wrong size", func() { NewStack(512, shortAllocator{}) })
}

func TestStackRelease(t *testing.T) {
	alloc := &recordingAllocator{}
	stack := NewStack(512, alloc)
	if alloc.allocs != 1 {
		t.Fatalf("wrong allocation count: got %d, expect 1", alloc.allocs)
	}

	base := stack.Base()
	stack.release()
	if len(alloc.frees) != 1 {
		t.Fatalf("wrong free count: got %d, expect 1", len(alloc.frees))
	}
	if got := uintptr(unsafe.Pointer(&alloc.frees[0][0])); got != base {
		t.Errorf("wrong buffer returned to the allocator: got %#x, expect %#x", got, base)
	}
	if stack.Size() != 0 || stack.Base() != 0 {
		t.Error("released stack still reports a reservation")
	}

	stack.release()
	if len(alloc.frees) != 1 {
		t.Errorf("release is not idempotent: %d frees", len(alloc.frees))
	}
}
