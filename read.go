//go:build unix

package fiberhook

import (
	"golang.org/x/sys/unix"
)

// ReadStrategy is the read-class readiness protocol, see [ReadWaitFirst]
// and [ReadRetryLoop].
type ReadStrategy interface {
	readWait(x *Hook, op Op, fd int, call func() (int, error)) (int, error)
	String() string
}

var (
	// ReadWaitFirst consults the readiness cache, and if the descriptor is
	// not already marked readable, waits for it exactly once. Either way,
	// the underlying call is attempted exactly once, and its result is
	// returned as-is.
	ReadWaitFirst ReadStrategy = waitFirst{}

	// ReadRetryLoop attempts the underlying call, waiting for the descriptor
	// to become readable then retrying, for as long as it would block.
	ReadRetryLoop ReadStrategy = retryLoop{}
)

type (
	waitFirst struct{}
	retryLoop struct{}
)

func (waitFirst) String() string { return `wait-first` }

func (waitFirst) readWait(x *Hook, op Op, fd int, call func() (int, error)) (int, error) {
	if x.events != nil && x.events.ConsumeReadable(fd) {
		// trust the cache, a stale flag surfaces as an ordinary error
		n, err := call()
		if err != nil {
			x.saveErrno(err)
		}
		return n, err
	}

	x.scheduler.WaitReadable(fd)

	if x.events != nil {
		x.events.ConsumeReadable(fd)
	}

	x.killed(op, fd)

	n, err := call()
	if err != nil {
		x.saveErrno(err)
	}
	return n, err
}

func (retryLoop) String() string { return `retry-loop` }

func (retryLoop) readWait(x *Hook, op Op, fd int, call func() (int, error)) (int, error) {
	for {
		n, err := call()
		if err == nil {
			return n, nil
		}
		x.saveErrno(err)
		if !IsWouldBlock(err) {
			return n, err
		}
		x.scheduler.WaitReadable(fd)
		x.killed(op, fd)
	}
}

// Read is read(2).
func (x *Hook) Read(fd int, p []byte) (int, error) {
	if fd < 0 {
		return -1, x.invalidFD(OpRead, fd)
	}
	sys := x.originals()
	if !x.Cooperative() {
		return sys.read(fd, p)
	}
	return x.reader.readWait(x, OpRead, fd, func() (int, error) {
		return sys.read(fd, p)
	})
}

// Readv is readv(2).
func (x *Hook) Readv(fd int, iovs [][]byte) (int, error) {
	if fd < 0 {
		return -1, x.invalidFD(OpReadv, fd)
	}
	sys := x.originals()
	if !x.Cooperative() {
		return sys.readv(fd, iovs)
	}
	return x.reader.readWait(x, OpReadv, fd, func() (int, error) {
		return sys.readv(fd, iovs)
	})
}

// Recv is recv(2).
func (x *Hook) Recv(fd int, p []byte, flags int) (int, error) {
	if fd < 0 {
		return -1, x.invalidFD(OpRecv, fd)
	}
	sys := x.originals()
	if !x.Cooperative() {
		return sys.recv(fd, p, flags)
	}
	return x.reader.readWait(x, OpRecv, fd, func() (int, error) {
		return sys.recv(fd, p, flags)
	})
}

// Recvfrom is recvfrom(2).
func (x *Hook) Recvfrom(fd int, p []byte, flags int) (n int, from unix.Sockaddr, err error) {
	if fd < 0 {
		return -1, nil, x.invalidFD(OpRecvfrom, fd)
	}
	sys := x.originals()
	if !x.Cooperative() {
		return sys.recvfrom(fd, p, flags)
	}
	n, err = x.reader.readWait(x, OpRecvfrom, fd, func() (n int, err error) {
		n, from, err = sys.recvfrom(fd, p, flags)
		return
	})
	return
}

// Recvmsg is recvmsg(2).
func (x *Hook) Recvmsg(fd int, p, oob []byte, flags int) (n, oobn, recvflags int, from unix.Sockaddr, err error) {
	if fd < 0 {
		return -1, 0, 0, nil, x.invalidFD(OpRecvmsg, fd)
	}
	sys := x.originals()
	if !x.Cooperative() {
		return sys.recvmsg(fd, p, oob, flags)
	}
	n, err = x.reader.readWait(x, OpRecvmsg, fd, func() (n int, err error) {
		n, oobn, recvflags, from, err = sys.recvmsg(fd, p, oob, flags)
		return
	})
	return
}
