package fiber

import "fmt"

// EventKind enumerates the scheduler transitions reported to observers.
type EventKind uint8

const (
	// EventSpawn: a fiber joined the ready queue.
	EventSpawn EventKind = iota + 1
	// EventDispatch: the head fiber was popped and is about to run.
	EventDispatch
	// EventYield: the running fiber suspended and re-queued itself.
	EventYield
	// EventExit: a dispatched fiber completed.
	EventExit
	// EventFault: a dispatched fiber panicked or returned without Exit.
	// The fault is re-raised from Run right after this event.
	EventFault
	// EventDrain: the ready queue emptied and Run is about to return.
	EventDrain
)

func (k EventKind) String() string {
	switch k {
	case EventSpawn:
		return "spawn"
	case EventDispatch:
		return "dispatch"
	case EventYield:
		return "yield"
	case EventExit:
		return "exit"
	case EventFault:
		return "fault"
	case EventDrain:
		return "drain"
	default:
		return fmt.Sprintf("EventKind(%d)", uint8(k))
	}
}

// Event is one scheduler transition. Seq numbers events within a
// scheduler, starting at 1. Fiber is the subject fiber's id, or 0 for
// events without one (drain). IP and SP snapshot the instruction and
// stack pointer slots of the fiber's context when the event fired.
type Event struct {
	Seq   uint64
	Kind  EventKind
	Fiber uint64
	IP    uintptr
	SP    uintptr
}

func (e Event) String() string {
	if e.Fiber == 0 {
		return fmt.Sprintf("#%d %s", e.Seq, e.Kind)
	}
	return fmt.Sprintf("#%d %s fiber=%d", e.Seq, e.Kind, e.Fiber)
}
