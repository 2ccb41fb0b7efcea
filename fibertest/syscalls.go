//go:build unix

package fibertest

import (
	"sync"

	"github.com/joeycumines/go-fiberhook"
	"golang.org/x/sys/unix"
)

type (
	// Result is a scripted outcome of one underlying call.
	Result struct {
		// Err is the error to return. N is ignored if Err is set, and -1 is
		// returned instead.
		Err error

		// From is returned by recvfrom and recvmsg.
		From unix.Sockaddr

		// Stream is returned by popen.
		Stream *fiberhook.Stream

		// Data is copied into the buffer(s) of read-class calls.
		Data []byte

		// FDs are stored by pipe and pipe2.
		FDs [2]int

		// N is the count (or exit status, or remaining seconds) to return.
		N int

		// OOBN and RecvFlags are returned by recvmsg.
		OOBN      int
		RecvFlags int
	}

	// Call records one underlying call.
	Call struct {
		Op    fiberhook.Op
		FD    int
		Flags int
	}

	// Syscalls is a programmable [fiberhook.Syscalls]. Results are consumed
	// in the order they were pushed, per op. Once the script for an op is
	// exhausted, calls succeed with a zero count.
	Syscalls struct {
		// OnCall, if set, is called after each call has been recorded, and
		// before its result is returned.
		OnCall  func(call Call)
		results map[fiberhook.Op][]Result
		calls   []Call
		mu      sync.Mutex
	}
)

var _ fiberhook.Syscalls = (*Syscalls)(nil)

// Ok is a successful Result returning n.
func Ok(n int) Result { return Result{N: n} }

// Fail is a failed Result returning err.
func Fail(err error) Result { return Result{Err: err} }

// WouldBlock is a failed Result returning EAGAIN.
func WouldBlock() Result { return Result{Err: unix.EAGAIN} }

// Push appends results to the script for op.
func (x *Syscalls) Push(op fiberhook.Op, results ...Result) *Syscalls {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.results == nil {
		x.results = make(map[fiberhook.Op][]Result)
	}
	x.results[op] = append(x.results[op], results...)
	return x
}

// Calls returns a copy of every call made so far.
func (x *Syscalls) Calls() []Call {
	x.mu.Lock()
	defer x.mu.Unlock()
	return append([]Call(nil), x.calls...)
}

// Count returns the number of calls made for op.
func (x *Syscalls) Count(op fiberhook.Op) (n int) {
	x.mu.Lock()
	defer x.mu.Unlock()
	for _, c := range x.calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

// Remaining returns the number of unconsumed results for op.
func (x *Syscalls) Remaining(op fiberhook.Op) int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.results[op])
}

func (x *Syscalls) next(call Call) Result {
	x.mu.Lock()
	x.calls = append(x.calls, call)
	var r Result
	if q := x.results[call.Op]; len(q) != 0 {
		r = q[0]
		x.results[call.Op] = q[1:]
	}
	onCall := x.OnCall
	x.mu.Unlock()

	if onCall != nil {
		onCall(call)
	}

	return r
}

func (r Result) count() (int, error) {
	if r.Err != nil {
		return -1, r.Err
	}
	return r.N, nil
}

func (r Result) fill(p []byte) (int, error) {
	if r.Err != nil {
		return -1, r.Err
	}
	if r.Data != nil {
		return copy(p, r.Data), nil
	}
	return r.N, nil
}

func (x *Syscalls) Sleep(seconds uint) uint {
	return uint(x.next(Call{Op: fiberhook.OpSleep, FD: -1, Flags: int(seconds)}).N)
}

func (x *Syscalls) Pipe(p []int) error {
	r := x.next(Call{Op: fiberhook.OpPipe, FD: -1})
	if r.Err == nil && len(p) == 2 {
		p[0], p[1] = r.FDs[0], r.FDs[1]
	}
	return r.Err
}

func (x *Syscalls) Pipe2(p []int, flags int) error {
	r := x.next(Call{Op: fiberhook.OpPipe2, FD: -1, Flags: flags})
	if r.Err == nil && len(p) == 2 {
		p[0], p[1] = r.FDs[0], r.FDs[1]
	}
	return r.Err
}

func (x *Syscalls) Popen(command, mode string) (*fiberhook.Stream, error) {
	r := x.next(Call{Op: fiberhook.OpPopen, FD: -1})
	if r.Err != nil {
		return nil, r.Err
	}
	return r.Stream, nil
}

func (x *Syscalls) Pclose(s *fiberhook.Stream) (int, error) {
	return x.next(Call{Op: fiberhook.OpPclose, FD: s.Fd()}).count()
}

func (x *Syscalls) Close(fd int) error {
	return x.next(Call{Op: fiberhook.OpClose, FD: fd}).Err
}

func (x *Syscalls) Read(fd int, p []byte) (int, error) {
	return x.next(Call{Op: fiberhook.OpRead, FD: fd}).fill(p)
}

func (x *Syscalls) Readv(fd int, iovs [][]byte) (int, error) {
	r := x.next(Call{Op: fiberhook.OpReadv, FD: fd})
	if r.Err != nil || r.Data == nil {
		return r.count()
	}
	var n int
	data := r.Data
	for _, b := range iovs {
		c := copy(b, data)
		data = data[c:]
		n += c
	}
	return n, nil
}

func (x *Syscalls) Recv(fd int, p []byte, flags int) (int, error) {
	return x.next(Call{Op: fiberhook.OpRecv, FD: fd, Flags: flags}).fill(p)
}

func (x *Syscalls) Recvfrom(fd int, p []byte, flags int) (int, unix.Sockaddr, error) {
	r := x.next(Call{Op: fiberhook.OpRecvfrom, FD: fd, Flags: flags})
	n, err := r.fill(p)
	if err != nil {
		return n, nil, err
	}
	return n, r.From, nil
}

func (x *Syscalls) Recvmsg(fd int, p, oob []byte, flags int) (n, oobn, recvflags int, from unix.Sockaddr, err error) {
	r := x.next(Call{Op: fiberhook.OpRecvmsg, FD: fd, Flags: flags})
	if n, err = r.fill(p); err != nil {
		return n, 0, 0, nil, err
	}
	return n, r.OOBN, r.RecvFlags, r.From, nil
}

func (x *Syscalls) Write(fd int, p []byte) (int, error) {
	return x.next(Call{Op: fiberhook.OpWrite, FD: fd}).count()
}

func (x *Syscalls) Writev(fd int, iovs [][]byte) (int, error) {
	return x.next(Call{Op: fiberhook.OpWritev, FD: fd}).count()
}

func (x *Syscalls) Send(fd int, p []byte, flags int) (int, error) {
	return x.next(Call{Op: fiberhook.OpSend, FD: fd, Flags: flags}).count()
}

func (x *Syscalls) Sendto(fd int, p []byte, flags int, to unix.Sockaddr) (int, error) {
	return x.next(Call{Op: fiberhook.OpSendto, FD: fd, Flags: flags}).count()
}

func (x *Syscalls) Sendmsg(fd int, p, oob []byte, to unix.Sockaddr, flags int) (int, error) {
	return x.next(Call{Op: fiberhook.OpSendmsg, FD: fd, Flags: flags}).count()
}
