//go:build unix

package fiberhook

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// writeWait attempts the underlying call, waiting for the descriptor to
// become writable then retrying, for as long as it would block.
//
// Unlike the read-class protocol, a fiber found killed after waiting
// fails immediately, with [ErrFiberKilled] wrapping the last errno.
func (x *Hook) writeWait(op Op, fd int, call func() (int, error)) (int, error) {
	for {
		n, err := call()
		if err == nil {
			return n, nil
		}
		x.saveErrno(err)
		if !IsWouldBlock(err) {
			return n, err
		}
		x.scheduler.WaitWritable(fd)
		if x.killed(op, fd) {
			return -1, fmt.Errorf(`%w: %w`, ErrFiberKilled, err)
		}
	}
}

// Write is write(2).
func (x *Hook) Write(fd int, p []byte) (int, error) {
	if fd < 0 {
		return -1, x.invalidFD(OpWrite, fd)
	}
	sys := x.originals()
	if !x.Cooperative() {
		return sys.write(fd, p)
	}
	return x.writeWait(OpWrite, fd, func() (int, error) {
		return sys.write(fd, p)
	})
}

// Writev is writev(2).
func (x *Hook) Writev(fd int, iovs [][]byte) (int, error) {
	if fd < 0 {
		return -1, x.invalidFD(OpWritev, fd)
	}
	sys := x.originals()
	if !x.Cooperative() {
		return sys.writev(fd, iovs)
	}
	return x.writeWait(OpWritev, fd, func() (int, error) {
		return sys.writev(fd, iovs)
	})
}

// Send is send(2).
func (x *Hook) Send(fd int, p []byte, flags int) (int, error) {
	if fd < 0 {
		return -1, x.invalidFD(OpSend, fd)
	}
	sys := x.originals()
	if !x.Cooperative() {
		return sys.send(fd, p, flags)
	}
	return x.writeWait(OpSend, fd, func() (int, error) {
		return sys.send(fd, p, flags)
	})
}

// Sendto is sendto(2).
func (x *Hook) Sendto(fd int, p []byte, flags int, to unix.Sockaddr) (int, error) {
	if fd < 0 {
		return -1, x.invalidFD(OpSendto, fd)
	}
	sys := x.originals()
	if !x.Cooperative() {
		return sys.sendto(fd, p, flags, to)
	}
	return x.writeWait(OpSendto, fd, func() (int, error) {
		return sys.sendto(fd, p, flags, to)
	})
}

// Sendmsg is sendmsg(2).
func (x *Hook) Sendmsg(fd int, p, oob []byte, to unix.Sockaddr, flags int) (int, error) {
	if fd < 0 {
		return -1, x.invalidFD(OpSendmsg, fd)
	}
	sys := x.originals()
	if !x.Cooperative() {
		return sys.sendmsg(fd, p, oob, to, flags)
	}
	return x.writeWait(OpSendmsg, fd, func() (int, error) {
		return sys.sendmsg(fd, p, oob, to, flags)
	})
}
