package fibertest

import (
	"sync"

	"github.com/joeycumines/go-fiberhook"
)

// EventMethod names a [fiberhook.Events] method.
type EventMethod string

const (
	EventConsumeReadable EventMethod = `consume-readable`
	EventClosing         EventMethod = `closing`
	EventCloseMux        EventMethod = `close-mux`
)

// EventCall records one call to a [fiberhook.Events] method.
type EventCall struct {
	Method EventMethod
	FD     int
}

// Events is a [fiberhook.Events] backed by plain sets.
type Events struct {
	// OnCall, if set, is called at the start of each call, and may be
	// combined with [Syscalls.OnCall] to observe ordering.
	OnCall   func(call EventCall)
	readable map[int]bool
	muxes    map[int]error
	closing  []int
	muxClose []int
	consumed []int
	mu       sync.Mutex
}

var _ fiberhook.Events = (*Events)(nil)

// MarkReadable sets the readable flag of fd, as the event subsystem would.
func (x *Events) MarkReadable(fd int) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.readable == nil {
		x.readable = make(map[int]bool)
	}
	x.readable[fd] = true
}

// Readable reports whether the readable flag of fd is set.
func (x *Events) Readable(fd int) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.readable[fd]
}

// AddMux registers fd as a multiplexer handle, which CloseMux will close
// with the result err.
func (x *Events) AddMux(fd int, err error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.muxes == nil {
		x.muxes = make(map[int]error)
	}
	x.muxes[fd] = err
}

func (x *Events) ConsumeReadable(fd int) bool {
	x.notify(EventConsumeReadable, fd)
	x.mu.Lock()
	defer x.mu.Unlock()
	x.consumed = append(x.consumed, fd)
	if !x.readable[fd] {
		return false
	}
	delete(x.readable, fd)
	return true
}

func (x *Events) Closing(fd int) {
	x.notify(EventClosing, fd)
	x.mu.Lock()
	defer x.mu.Unlock()
	x.closing = append(x.closing, fd)
	delete(x.readable, fd)
}

func (x *Events) CloseMux(fd int) (bool, error) {
	x.notify(EventCloseMux, fd)
	x.mu.Lock()
	defer x.mu.Unlock()
	err, ok := x.muxes[fd]
	if !ok {
		return false, nil
	}
	delete(x.muxes, fd)
	x.muxClose = append(x.muxClose, fd)
	return true, err
}

// ClosingCalls returns every descriptor passed to Closing.
func (x *Events) ClosingCalls() []int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return append([]int(nil), x.closing...)
}

// MuxClosed returns every multiplexer handle closed by CloseMux.
func (x *Events) MuxClosed() []int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return append([]int(nil), x.muxClose...)
}

// Consumed returns every descriptor passed to ConsumeReadable.
func (x *Events) Consumed() []int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return append([]int(nil), x.consumed...)
}

func (x *Events) notify(method EventMethod, fd int) {
	x.mu.Lock()
	onCall := x.OnCall
	x.mu.Unlock()
	if onCall != nil {
		onCall(EventCall{Method: method, FD: fd})
	}
}
