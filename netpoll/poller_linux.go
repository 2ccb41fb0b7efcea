//go:build linux

package netpoll

import (
	"encoding/binary"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/joeycumines/logiface"
	"golang.org/x/sys/unix"
)

// waiter is a pending WaitChan call.
type waiter struct {
	ch     chan struct{}
	events IOEvents
}

// fdInfo stores per-FD readiness and waiters.
type fdInfo struct {
	waiters    []waiter
	ready      IOEvents
	registered bool
}

// Poller is the event subsystem, using epoll (Linux).
//
// Per-descriptor state lives in a slice indexed by descriptor, grown on
// demand, guarded by mu. Poll may be called by one goroutine at a time.
type Poller struct { //nolint:govet // betteralign:ignore
	logger   *logiface.Logger[logiface.Event]
	muxes    map[int]struct{}
	fds      []fdInfo
	eventBuf [256]unix.EpollEvent
	epfd     int
	wakefd   int
	mu       sync.Mutex
	pollMu   sync.Mutex
	closed   atomic.Bool
}

// New creates the epoll instance, and the eventfd used by Wake.
func New(opts ...Option) (*Poller, error) {
	cfg, err := resolvePollerOptions(opts)
	if err != nil {
		return nil, err
	}

	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}

	wakefd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		_ = unix.Close(epfd)
		return nil, err
	}

	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, wakefd, &unix.EpollEvent{
		Events: unix.EPOLLIN,
		Fd:     int32(wakefd),
	}); err != nil {
		_ = unix.Close(wakefd)
		_ = unix.Close(epfd)
		return nil, err
	}

	return &Poller{
		logger: cfg.logger,
		muxes:  make(map[int]struct{}),
		fds:    make([]fdInfo, initialFDs),
		epfd:   epfd,
		wakefd: wakefd,
	}, nil
}

// Close releases every waiter, closes every multiplexer handle created by
// CreateMux, then the epoll instance itself.
func (p *Poller) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return ErrPollerClosed
	}

	p.mu.Lock()
	for fd := range p.fds {
		p.release(&p.fds[fd])
	}
	var errs []error
	for fd := range p.muxes {
		errs = append(errs, unix.Close(fd))
	}
	p.muxes = nil
	p.mu.Unlock()

	_ = p.wake()

	// wait for any in-flight Poll
	p.pollMu.Lock()
	errs = append(errs, unix.Close(p.wakefd), unix.Close(p.epfd))
	p.pollMu.Unlock()

	return errors.Join(errs...)
}

// WaitChan returns a channel that is closed once fd is ready for any of
// events, or is closing. If fd is already marked ready, those flags are
// consumed, and the returned channel is already closed.
//
// Registration is lazy. Descriptors epoll cannot monitor (e.g. regular
// files) fail with the epoll error, typically EPERM.
func (p *Poller) WaitChan(fd int, events IOEvents) (<-chan struct{}, error) {
	if fd < 0 || fd >= MaxFDLimit {
		return nil, ErrFDOutOfRange
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed.Load() {
		return nil, ErrPollerClosed
	}

	p.grow(fd)
	info := &p.fds[fd]

	if ready := info.ready & events; ready != 0 {
		info.ready &^= ready
		return closedChan, nil
	}

	ch := make(chan struct{})
	info.waiters = append(info.waiters, waiter{ch: ch, events: events})

	if err := p.arm(fd, info); err != nil {
		info.waiters = info.waiters[:len(info.waiters)-1]
		return nil, err
	}

	return ch, nil
}

// ConsumeReadable reports whether fd is marked readable, clearing the flag.
func (p *Poller) ConsumeReadable(fd int) bool { return p.consume(fd, EventRead) }

// ConsumeWritable reports whether fd is marked writable, clearing the flag.
func (p *Poller) ConsumeWritable(fd int) bool { return p.consume(fd, EventWrite) }

func (p *Poller) consume(fd int, event IOEvents) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if fd < 0 || fd >= len(p.fds) || p.fds[fd].ready&event == 0 {
		return false
	}
	p.fds[fd].ready &^= event
	return true
}

// Ready returns the cached readiness flags of fd.
func (p *Poller) Ready(fd int) IOEvents {
	p.mu.Lock()
	defer p.mu.Unlock()
	if fd < 0 || fd >= len(p.fds) {
		return 0
	}
	return p.fds[fd].ready
}

// Closing unregisters fd, drops its cached flags, and releases every
// waiter.
func (p *Poller) Closing(fd int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if fd < 0 || fd >= len(p.fds) {
		return
	}

	info := &p.fds[fd]
	if info.registered && !p.closed.Load() {
		_ = unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil)
	}
	p.release(info)
}

// CreateMux creates an epoll instance owned by this poller, as the
// epoll_create hook of a descriptor-creation layer would.
func (p *Poller) CreateMux() (int, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return -1, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed.Load() {
		_ = unix.Close(fd)
		return -1, ErrPollerClosed
	}

	p.muxes[fd] = struct{}{}

	p.logger.Debug().
		Int(`fd`, fd).
		Log(`created mux`)

	return fd, nil
}

// IsMux reports whether fd is a multiplexer handle created by CreateMux.
func (p *Poller) IsMux(fd int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.muxes[fd]
	return ok
}

// CloseMux closes fd if it was created by CreateMux.
func (p *Poller) CloseMux(fd int) (bool, error) {
	p.mu.Lock()
	_, ok := p.muxes[fd]
	if ok {
		delete(p.muxes, fd)
	}
	p.mu.Unlock()

	if !ok {
		return false, nil
	}

	return true, unix.Close(fd)
}

// Wake interrupts a blocked Poll.
func (p *Poller) Wake() error {
	if p.closed.Load() {
		return ErrPollerClosed
	}
	return p.wake()
}

func (p *Poller) wake() error {
	var buf [8]byte
	binary.NativeEndian.PutUint64(buf[:], 1)
	if _, err := unix.Write(p.wakefd, buf[:]); err != nil && err != unix.EAGAIN {
		return err
	}
	return nil
}

// Poll waits up to timeoutMs (-1 blocks) for events, updating the
// readiness cache and releasing waiters. Returns the number of events.
func (p *Poller) Poll(timeoutMs int) (int, error) {
	if p.closed.Load() {
		return 0, ErrPollerClosed
	}

	p.pollMu.Lock()
	defer p.pollMu.Unlock()

	if p.closed.Load() {
		return 0, ErrPollerClosed
	}

	n, err := unix.EpollWait(p.epfd, p.eventBuf[:], timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		p.logger.Err().
			Err(err).
			Log(`epoll wait failed`)
		return 0, err
	}

	p.dispatchEvents(n)

	return n, nil
}

func (p *Poller) dispatchEvents(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i := 0; i < n; i++ {
		fd := int(p.eventBuf[i].Fd)

		if fd == p.wakefd {
			p.drainWake()
			continue
		}

		if fd < 0 || fd >= len(p.fds) || !p.fds[fd].registered {
			continue
		}

		p.ready(fd, &p.fds[fd], epollToEvents(p.eventBuf[i].Events))
	}
}

// ready records events, releases satisfied waiters (consuming the flags
// they were released for), and re-arms for any that remain.
func (p *Poller) ready(fd int, info *fdInfo, events IOEvents) {
	if events&(EventError|EventHangup) != 0 {
		events |= EventRead | EventWrite
	}
	info.ready |= events & (EventRead | EventWrite)

	var delivered IOEvents
	remaining := info.waiters[:0]
	for _, w := range info.waiters {
		if match := w.events & info.ready; match != 0 {
			delivered |= match
			close(w.ch)
		} else {
			remaining = append(remaining, w)
		}
	}
	clear(info.waiters[len(remaining):])
	info.waiters = remaining
	info.ready &^= delivered

	if len(info.waiters) == 0 {
		return
	}

	if err := p.arm(fd, info); err != nil {
		p.logger.Err().
			Int(`fd`, fd).
			Err(err).
			Log(`failed to re-arm fd`)
		p.release(info)
	}
}

// arm (re-)enables one-shot interest in the union of waiting events.
func (p *Poller) arm(fd int, info *fdInfo) error {
	var interest IOEvents
	for _, w := range info.waiters {
		interest |= w.events
	}

	ev := &unix.EpollEvent{
		Events: eventsToEpoll(interest) | unix.EPOLLRDHUP | unix.EPOLLONESHOT,
		Fd:     int32(fd),
	}

	if info.registered {
		err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, fd, ev)
		if err != unix.ENOENT {
			return err
		}
		// closed without Closing, possibly reused
		info.registered = false
	}

	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, ev); err != nil {
		return err
	}
	info.registered = true

	p.logger.Debug().
		Int(`fd`, fd).
		Log(`registered fd`)

	return nil
}

// release closes every waiter channel, and resets the state.
func (p *Poller) release(info *fdInfo) {
	for _, w := range info.waiters {
		close(w.ch)
	}
	*info = fdInfo{}
}

// grow ensures fd is indexable.
func (p *Poller) grow(fd int) {
	if fd < len(p.fds) {
		return
	}
	// Grow in chunks to minimize allocations
	newSize := fd*2 + 1
	if newSize > MaxFDLimit {
		newSize = MaxFDLimit + 1
	}
	newFds := make([]fdInfo, newSize)
	copy(newFds, p.fds)
	p.fds = newFds
}

func (p *Poller) drainWake() {
	var buf [8]byte
	for {
		if _, err := unix.Read(p.wakefd, buf[:]); err != nil {
			return
		}
	}
}

// eventsToEpoll converts IOEvents to epoll event flags.
func eventsToEpoll(events IOEvents) uint32 {
	var epollEvents uint32
	if events&EventRead != 0 {
		epollEvents |= unix.EPOLLIN
	}
	if events&EventWrite != 0 {
		epollEvents |= unix.EPOLLOUT
	}
	return epollEvents
}

// epollToEvents converts epoll event flags to IOEvents.
func epollToEvents(epollEvents uint32) IOEvents {
	var events IOEvents
	if epollEvents&unix.EPOLLIN != 0 {
		events |= EventRead
	}
	if epollEvents&unix.EPOLLOUT != 0 {
		events |= EventWrite
	}
	if epollEvents&unix.EPOLLERR != 0 {
		events |= EventError
	}
	if epollEvents&(unix.EPOLLHUP|unix.EPOLLRDHUP) != 0 {
		events |= EventHangup
	}
	return events
}
