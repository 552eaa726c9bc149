package a

import (
	"runtime"

	"github.com/loomkit/fiber"
)

func exits() {
	_ = fiber.New(func(f *fiber.Fiber[int]) {
		f.Yield()
		f.Exit()
	}, 0)
}

func missingExit() {
	_ = fiber.New(func(f *fiber.Fiber[int]) { // want `fiber entry can return without calling Exit`
		f.Yield()
	}, 0)
}

func conditionalExit() {
	_ = fiber.New(func(f *fiber.Fiber[int]) { // want `fiber entry can return without calling Exit`
		if f.Data() > 0 {
			f.Exit()
		}
	}, 0)
}

func exitsOnBothBranches() {
	_ = fiber.New(func(f *fiber.Fiber[int]) {
		if f.Data() > 0 {
			f.Exit()
		} else {
			f.Exit()
		}
	}, 0)
}

func earlyReturn() {
	_ = fiber.New(func(f *fiber.Fiber[int]) { // want `fiber entry can return without calling Exit`
		if f.Data() == 0 {
			return
		}
		f.Exit()
	}, 0)
}

func panics() {
	_ = fiber.New(func(f *fiber.Fiber[int]) {
		panic("never resumed")
	}, 0)
}

func goexits() {
	_ = fiber.New(func(f *fiber.Fiber[int]) {
		runtime.Goexit()
	}, 0)
}

func loopsForever() {
	_ = fiber.New(func(f *fiber.Fiber[int]) {
		for {
			f.Yield()
		}
	}, 0)
}

func loopWithBreak() {
	_ = fiber.New(func(f *fiber.Fiber[int]) { // want `fiber entry can return without calling Exit`
		for {
			if f.Data() > 0 {
				break
			}
			f.Yield()
		}
	}, 0)
}

func loopWithGoto() {
	_ = fiber.New(func(f *fiber.Fiber[int]) { // want `fiber entry can return without calling Exit`
		for {
			if f.Data() > 0 {
				goto drained
			}
			f.Yield()
		}
	drained:
		f.Yield()
	}, 0)
}

func gotoExit() {
	_ = fiber.New(func(f *fiber.Fiber[int]) {
		for {
			if f.Data() > 0 {
				goto done
			}
			f.Yield()
		}
	done:
		f.Exit()
	}, 0)
}

func loopWithInternalGoto() {
	_ = fiber.New(func(f *fiber.Fiber[int]) {
		for {
		again:
			if f.Data() == 0 {
				f.Yield()
				goto again
			}
			f.Exit()
		}
	}, 0)
}

func switchWithDefault() {
	_ = fiber.New(func(f *fiber.Fiber[int]) {
		switch f.Data() {
		case 0:
			f.Exit()
		default:
			panic("unexpected payload")
		}
	}, 0)
}

func switchWithoutDefault() {
	_ = fiber.New(func(f *fiber.Fiber[int]) { // want `fiber entry can return without calling Exit`
		switch f.Data() {
		case 0:
			f.Exit()
		}
	}, 0)
}

func instantiated() {
	_ = fiber.New[int](func(f *fiber.Fiber[int]) { // want `fiber entry can return without calling Exit`
		f.Yield()
	}, 0)
}

func namedEntry() {
	_ = fiber.New(worker, 0) // want `fiber entry can return without calling Exit`
}

func worker(f *fiber.Fiber[int]) {
	f.Yield()
}

func namedEntryExits() {
	_ = fiber.New(exitingWorker, 0)
}

func exitingWorker(f *fiber.Fiber[int]) {
	defer recordDone()
	f.Exit()
}

func recordDone() {}
