package fiber

type config struct {
	stackSize int
	alloc     StackAllocator
}

func defaultConfig() config {
	return config{stackSize: DefaultStackSize}
}

// Option configures a fiber at construction.
type Option func(*config)

// WithStackSize sets the stack reservation size in bytes. Sizes below
// MinStackSize cause New to panic.
func WithStackSize(size int) Option {
	return func(c *config) { c.stackSize = size }
}

// WithAllocator routes the fiber's stack reservation through alloc
// instead of the Go heap. Release returns the buffer to the same
// allocator.
func WithAllocator(alloc StackAllocator) Option {
	return func(c *config) { c.alloc = alloc }
}

// SchedulerOption configures a scheduler at construction.
type SchedulerOption func(*Scheduler)

// WithObserver registers fn to receive scheduler events. It is invoked
// synchronously on the scheduling strand and must not call back into
// the scheduler or its fibers.
func WithObserver(fn func(Event)) SchedulerOption {
	return func(s *Scheduler) { s.observer = fn }
}
