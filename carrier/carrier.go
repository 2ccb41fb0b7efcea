package carrier

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eapache/queue"
	"github.com/joeycumines/go-fiberhook"
	"github.com/joeycumines/go-fiberhook/netpoll"
	"github.com/joeycumines/logiface"
	"golang.org/x/sync/errgroup"
)

// Poller is the readiness source used by a [Carrier], implemented by
// [netpoll.Poller].
type Poller interface {
	// WaitChan returns a channel closed once fd is ready for events.
	WaitChan(fd int, events netpoll.IOEvents) (<-chan struct{}, error)

	// Poll waits up to timeoutMs for readiness, releasing waiters.
	Poll(timeoutMs int) (int, error)

	// Wake interrupts a blocked Poll.
	Wake() error
}

// maxSleepSeconds is the longest sleep representable as a time.Duration.
const maxSleepSeconds = uint64(math.MaxInt64 / int64(time.Second))

// Carrier is a cooperative scheduler. See the package documentation.
type Carrier struct { //nolint:govet // betteralign:ignore
	poller      Poller
	owned       *netpoll.Poller
	logger      *logiface.Logger[logiface.Event]
	ready       *queue.Queue
	fibers      map[uint64]*Fiber
	wakeup      chan struct{}
	yield       chan struct{}
	running     atomic.Pointer[Fiber]
	nextID      atomic.Uint64
	pollTimeout time.Duration
	mu          sync.Mutex
	active      atomic.Bool
	closed      bool
}

var (
	_ fiberhook.Scheduler  = (*Carrier)(nil)
	_ fiberhook.ModeSwitch = (*Carrier)(nil)
)

// New creates a carrier. Fibers may be started with Go before Run.
func New(opts ...Option) (*Carrier, error) {
	cfg, err := resolveCarrierOptions(opts)
	if err != nil {
		return nil, err
	}

	c := &Carrier{
		poller:      cfg.poller,
		logger:      cfg.logger,
		ready:       queue.New(),
		fibers:      make(map[uint64]*Fiber),
		wakeup:      make(chan struct{}, 1),
		yield:       make(chan struct{}),
		pollTimeout: cfg.pollTimeout,
	}

	if c.poller == nil {
		p, err := netpoll.New(netpoll.WithLogger(cfg.logger))
		if err != nil {
			return nil, fmt.Errorf(`carrier: create poller: %w`, err)
		}
		c.poller = p
		c.owned = p
	}

	return c, nil
}

// Poller returns the readiness source.
func (c *Carrier) Poller() Poller { return c.poller }

// Go queues a new fiber, running fn. The fiber is started by Run.
func (c *Carrier) Go(fn func(f *Fiber)) (*Fiber, error) {
	if fn == nil {
		return nil, errors.New(`carrier: nil fiber function`)
	}

	f := newFiber(c, c.nextID.Add(1), fn)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrCarrierClosed
	}
	c.fibers[f.id] = f
	c.ready.Add(f)
	c.mu.Unlock()

	c.signal()

	c.logger.Debug().
		Uint64(`fiber`, f.id).
		Log(`fiber created`)

	return f, nil
}

// Kill marks f for termination, resuming it if it is suspended. A fiber
// that was never started exits without running.
func (c *Carrier) Kill(f *Fiber) {
	if f != nil {
		f.markKilled()
	}
}

// Run drives the carrier until every fiber has exited. If ctx is done
// first, every fiber is killed, and Run returns ctx.Err() once they have
// exited.
func (c *Carrier) Run(ctx context.Context) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return ErrCarrierClosed
	}

	if !c.active.CompareAndSwap(false, true) {
		return ErrCarrierAlreadyRunning
	}
	defer c.active.Store(false)

	stop := make(chan struct{})
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		c.schedule(gctx.Done())
		close(stop)
		_ = c.poller.Wake()
		return nil
	})

	g.Go(func() error {
		return c.poll(stop)
	})

	if err := g.Wait(); err != nil {
		return err
	}

	return ctx.Err()
}

// Close prevents new fibers, and closes the poller if it is owned by the
// carrier.
func (c *Carrier) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrCarrierClosed
	}
	c.closed = true
	c.mu.Unlock()

	if c.owned != nil {
		return c.owned.Close()
	}
	return nil
}

// Cooperative reports whether the caller is the fiber holding the baton.
// It is false for every other goroutine, even while Run is active.
func (c *Carrier) Cooperative() bool { return c.current() != nil }

// Running returns the fiber holding the baton, if it is the caller, or nil.
func (c *Carrier) Running() fiberhook.Fiber {
	if f := c.current(); f != nil {
		return f
	}
	return nil
}

// Current is like Running, returning the concrete type.
func (c *Carrier) Current() *Fiber { return c.current() }

func (c *Carrier) current() *Fiber {
	f := c.running.Load()
	if f == nil || f.gid.Load() != getGoroutineID() {
		return nil
	}
	return f
}

// WaitReadable suspends the running fiber until fd is readable, closing,
// or the fiber is killed. If fd cannot be monitored, the fiber only
// yields.
func (c *Carrier) WaitReadable(fd int) { c.wait(fd, netpoll.EventRead) }

// WaitWritable is the writable equivalent of WaitReadable.
func (c *Carrier) WaitWritable(fd int) { c.wait(fd, netpoll.EventWrite) }

func (c *Carrier) wait(fd int, events netpoll.IOEvents) {
	f := c.current()
	if f == nil {
		return
	}

	ch, err := c.poller.WaitChan(fd, events)
	if err != nil {
		c.logger.Debug().
			Int(`fd`, fd).
			Err(err).
			Log(`cannot wait on fd, yielding`)
		ch = resumed
	}

	park(c, f, ch)
}

// Sleep suspends the running fiber for seconds, returning the whole
// seconds remaining (rounded up) if it was killed first.
func (c *Carrier) Sleep(seconds uint) uint {
	f := c.current()
	if f == nil {
		return seconds
	}

	start := time.Now()
	t := time.NewTimer(time.Duration(min(uint64(seconds), maxSleepSeconds)) * time.Second)
	defer t.Stop()

	if park(c, f, t.C) {
		return 0
	}

	elapsed := uint64(time.Since(start) / time.Second)
	if elapsed >= uint64(seconds) {
		return 0
	}
	return seconds - uint(elapsed)
}

// park gives up the baton until wake fires or f is killed, then queues f
// and waits for the baton. Reports whether wake fired.
func park[T any](c *Carrier, f *Fiber, wake <-chan T) (woken bool) {
	c.yield <- struct{}{}

	select {
	case <-wake:
		woken = true
	case <-f.kill:
	}

	c.mu.Lock()
	c.ready.Add(f)
	c.mu.Unlock()
	c.signal()

	<-f.baton
	return woken
}

// schedule hands the baton to each ready fiber in turn, until none are
// left. Once done fires, every fiber is killed.
func (c *Carrier) schedule(done <-chan struct{}) {
	for {
		f := c.next(&done)
		if f == nil {
			return
		}

		if !f.started && f.Killed() {
			c.retire(f)
			continue
		}

		c.running.Store(f)
		if !f.started {
			f.started = true
			go f.run()
		} else {
			f.baton <- struct{}{}
		}
		<-c.yield
		c.running.Store(nil)
	}
}

func (c *Carrier) next(done *<-chan struct{}) *Fiber {
	for {
		c.mu.Lock()
		if c.ready.Length() != 0 {
			f := c.ready.Remove().(*Fiber)
			c.mu.Unlock()
			return f
		}
		live := len(c.fibers)
		c.mu.Unlock()

		if live == 0 {
			return nil
		}

		select {
		case <-c.wakeup:
		case <-*done:
			*done = nil
			c.killAll()
		}
	}
}

func (c *Carrier) poll(stop <-chan struct{}) error {
	timeout := int(c.pollTimeout / time.Millisecond)
	if timeout < 1 {
		timeout = 1
	}
	for {
		select {
		case <-stop:
			return nil
		default:
		}
		if _, err := c.poller.Poll(timeout); err != nil {
			if errors.Is(err, netpoll.ErrPollerClosed) {
				return nil
			}
			c.logger.Err().
				Err(err).
				Log(`poll failed`)
			return fmt.Errorf(`carrier: poll: %w`, err)
		}
	}
}

func (c *Carrier) killAll() {
	c.mu.Lock()
	fibers := make([]*Fiber, 0, len(c.fibers))
	for _, f := range c.fibers {
		fibers = append(fibers, f)
	}
	c.mu.Unlock()

	c.logger.Debug().
		Int(`fibers`, len(fibers)).
		Log(`killing fibers`)

	for _, f := range fibers {
		f.markKilled()
	}
}

// retire forgets f, which has exited or will never start.
func (c *Carrier) retire(f *Fiber) {
	c.mu.Lock()
	delete(c.fibers, f.id)
	c.mu.Unlock()
	close(f.done)
}

func (c *Carrier) signal() {
	select {
	case c.wakeup <- struct{}{}:
	default:
	}
}

// resumed is used in place of a readiness channel that cannot be had.
var resumed = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

// getGoroutineID returns the current goroutine's ID.
func getGoroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	var id uint64
	for i := len(`goroutine `); i < n; i++ {
		if buf[i] >= '0' && buf[i] <= '9' {
			id = id*10 + uint64(buf[i]-'0')
		} else {
			break
		}
	}
	return id
}
