package fibertest

import (
	"sync"
	"sync/atomic"

	"github.com/joeycumines/go-fiberhook"
)

// WaitKind identifies a suspension point.
type WaitKind int

const (
	WaitRead WaitKind = iota + 1
	WaitWrite
	WaitSleep
)

func (x WaitKind) String() string {
	switch x {
	case WaitRead:
		return `read`
	case WaitWrite:
		return `write`
	case WaitSleep:
		return `sleep`
	default:
		return `unknown`
	}
}

type (
	// Wait records one suspension.
	Wait struct {
		Kind    WaitKind
		FD      int
		Seconds uint
		Fiber   uint64
	}

	// Scheduler is a [fiberhook.Scheduler] that records every suspension,
	// without actually suspending anything. OnWait may be used to simulate
	// what happens while the fiber is suspended, e.g. other fibers running,
	// readiness arriving, or the fiber being killed.
	Scheduler struct {
		running atomic.Pointer[Fiber]

		// OnWait, if set, is called for each suspension, after it has been
		// recorded.
		OnWait func(w Wait)

		// SleepRemaining is returned by Sleep.
		SleepRemaining uint

		waits []Wait
		mu    sync.Mutex
	}

	// Fiber is a [fiberhook.Fiber] with a plain error slot and kill flag.
	Fiber struct {
		errno  error
		id     uint64
		mu     sync.Mutex
		killed atomic.Bool
	}
)

var (
	_ fiberhook.Scheduler = (*Scheduler)(nil)
	_ fiberhook.Fiber     = (*Fiber)(nil)
)

// NewScheduler returns a Scheduler running the given fiber.
func NewScheduler(running *Fiber) *Scheduler {
	x := new(Scheduler)
	x.SetRunning(running)
	return x
}

// SetRunning switches the running fiber, which may be nil.
func (x *Scheduler) SetRunning(f *Fiber) { x.running.Store(f) }

func (x *Scheduler) Running() fiberhook.Fiber {
	if f := x.running.Load(); f != nil {
		return f
	}
	return nil
}

func (x *Scheduler) WaitReadable(fd int) { x.wait(Wait{Kind: WaitRead, FD: fd}) }

func (x *Scheduler) WaitWritable(fd int) { x.wait(Wait{Kind: WaitWrite, FD: fd}) }

func (x *Scheduler) Sleep(seconds uint) uint {
	x.wait(Wait{Kind: WaitSleep, FD: -1, Seconds: seconds})
	return x.SleepRemaining
}

// Waits returns a copy of every suspension recorded so far.
func (x *Scheduler) Waits() []Wait {
	x.mu.Lock()
	defer x.mu.Unlock()
	return append([]Wait(nil), x.waits...)
}

func (x *Scheduler) wait(w Wait) {
	if f := x.running.Load(); f != nil {
		w.Fiber = f.ID()
	}
	x.mu.Lock()
	x.waits = append(x.waits, w)
	onWait := x.OnWait
	x.mu.Unlock()
	if onWait != nil {
		onWait(w)
	}
}

// NewFiber returns a live Fiber with the given id.
func NewFiber(id uint64) *Fiber { return &Fiber{id: id} }

func (x *Fiber) ID() uint64 { return x.id }

func (x *Fiber) Killed() bool { return x.killed.Load() }

// Kill marks the fiber for termination.
func (x *Fiber) Kill() { x.killed.Store(true) }

func (x *Fiber) SetErrno(err error) {
	x.mu.Lock()
	x.errno = err
	x.mu.Unlock()
}

func (x *Fiber) Errno() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.errno
}
