package carrier

import (
	"sync"
	"sync/atomic"

	"github.com/joeycumines/go-fiberhook"
)

// Fiber is a unit of execution run by a [Carrier].
//
// The error slot is owned by the fiber: SetErrno and Errno must only be
// called by the fiber itself, or after Done is closed.
type Fiber struct {
	c        *Carrier
	fn       func(f *Fiber)
	errno    error
	baton    chan struct{}
	kill     chan struct{}
	done     chan struct{}
	id       uint64
	gid      atomic.Uint64
	killOnce sync.Once
	killed   atomic.Bool
	started  bool // scheduler only
}

var _ fiberhook.Fiber = (*Fiber)(nil)

func newFiber(c *Carrier, id uint64, fn func(f *Fiber)) *Fiber {
	return &Fiber{
		c:     c,
		fn:    fn,
		id:    id,
		baton: make(chan struct{}, 1),
		kill:  make(chan struct{}),
		done:  make(chan struct{}),
	}
}

// ID returns the identifier of the fiber, unique within its carrier.
func (f *Fiber) ID() uint64 { return f.id }

// Killed reports whether the fiber has been marked for termination.
func (f *Fiber) Killed() bool { return f.killed.Load() }

func (f *Fiber) SetErrno(err error) { f.errno = err }

func (f *Fiber) Errno() error { return f.errno }

// Done is closed once the fiber has exited.
func (f *Fiber) Done() <-chan struct{} { return f.done }

func (f *Fiber) markKilled() {
	f.killed.Store(true)
	f.killOnce.Do(func() { close(f.kill) })
}

// run is the body of the fiber's goroutine, which starts holding the baton.
func (f *Fiber) run() {
	f.gid.Store(getGoroutineID())
	defer func() {
		if r := recover(); r != nil {
			f.c.logger.Err().
				Uint64(`fiber`, f.id).
				Err(&PanicError{Value: r, Fiber: f.id}).
				Log(`fiber panicked`)
		}
		f.c.retire(f)
		f.c.yield <- struct{}{}
	}()
	f.fn(f)
}
