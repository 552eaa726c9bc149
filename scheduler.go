package fiber

// Runnable is the scheduler-facing side of a fiber with the payload
// type erased, so fibers of different payload types share one ready
// queue. Only *Fiber implements it; the unexported methods seal the
// interface.
type Runnable interface {
	// ID returns the process-unique fiber id.
	ID() uint64
	// State returns the fiber's lifecycle state.
	State() State

	context() *Context
	bind(*Scheduler)
	setQueued(bool)
	markRunning()
}

// Scheduler owns a FIFO ready queue of fibers and the home Context its
// dispatch loop parks in while one of them runs. It is the unit of
// cooperative concurrency: fibers spawned on the same scheduler never
// overlap, fibers on different schedulers are unrelated. A Scheduler
// must not be shared between goroutines.
type Scheduler struct {
	queue    []Runnable
	home     Context
	current  Runnable
	observer func(Event)
	running  bool
	events   uint64
}

// NewScheduler returns an empty scheduler. Schedulers are independent;
// each one is its own cooperative thread of control.
func NewScheduler(opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Spawn appends a fiber to the tail of the ready queue. The fiber must
// be Ready and not already queued or bound to another scheduler;
// violations fail fast. Spawning from inside a running fiber is legal
// and the new fiber runs after everything already queued, in the same
// Run invocation.
func (s *Scheduler) Spawn(f Runnable) {
	f.bind(s)
	s.enqueue(f)
	s.emit(EventSpawn, f)
}

// Run dispatches fibers in spawn order until the ready queue drains,
// then returns. Each iteration pops the head fiber, captures the
// scheduler's resume point, and transfers control in a single Swap;
// the capture is refreshed on every iteration, so a yield or exit
// always returns to the current pass of the loop, never a stale one.
//
// Run returns only once every spawned fiber has Completed; with an
// empty queue it returns immediately. A panic raised in a fiber and
// not recovered there is re-raised by Run with the original value,
// after the fiber's strand has fully unwound.
func (s *Scheduler) Run() {
	if s.running {
		panic("fiber: Run on a scheduler that is already running")
	}
	s.running = true
	defer func() { s.running = false }()

	for len(s.queue) > 0 {
		f := s.dequeue()
		f.markRunning()
		s.current = f
		s.emit(EventDispatch, f)

		code := Swap(&s.home, f.context())

		s.current = nil
		if code == codeFault {
			fault := s.home.fault
			s.home.fault = nil
			s.emit(EventFault, f)
			panic(fault)
		}
		if f.State() == Completed {
			s.emit(EventExit, f)
		}
	}
	s.emit(EventDrain, nil)
}

// Current returns the fiber being dispatched, or nil between
// dispatches and outside Run.
func (s *Scheduler) Current() Runnable { return s.current }

// Len returns the number of fibers waiting in the ready queue. The
// running fiber, if any, is not counted.
func (s *Scheduler) Len() int { return len(s.queue) }

func (s *Scheduler) isCurrent(f Runnable) bool { return s.current == f }

func (s *Scheduler) enqueue(f Runnable) {
	f.setQueued(true)
	s.queue = append(s.queue, f)
}

func (s *Scheduler) dequeue() Runnable {
	f := s.queue[0]
	s.queue[0] = nil
	s.queue = s.queue[1:]
	f.setQueued(false)
	return f
}

// emit reports a scheduler transition to the observer, if any. Events
// fire on the scheduling strand, between or at the edges of dispatches,
// so observers see a serialized stream.
func (s *Scheduler) emit(kind EventKind, f Runnable) {
	if s.observer == nil {
		return
	}
	s.events++
	e := Event{Seq: s.events, Kind: kind}
	if f != nil {
		e.Fiber = f.ID()
		c := f.context()
		e.IP = c.ip
		e.SP = c.sp
	}
	s.observer(e)
}
