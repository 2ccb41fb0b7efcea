//go:build unix

package fiberhook

import (
	"os"

	"golang.org/x/sys/unix"
)

// Signatures of the original implementations, one per [Op].
//
// These are aliases, so plain function values (e.g. unix.Read) satisfy them
// without conversion.
type (
	SleepFunc    = func(seconds uint) uint
	PipeFunc     = func(p []int) error
	Pipe2Func    = func(p []int, flags int) error
	PopenFunc    = func(command, mode string) (*Stream, error)
	PcloseFunc   = func(s *Stream) (int, error)
	CloseFunc    = func(fd int) error
	ReadFunc     = func(fd int, p []byte) (int, error)
	ReadvFunc    = func(fd int, iovs [][]byte) (int, error)
	RecvFunc     = func(fd int, p []byte, flags int) (int, error)
	RecvfromFunc = func(fd int, p []byte, flags int) (int, unix.Sockaddr, error)
	RecvmsgFunc  = func(fd int, p, oob []byte, flags int) (n, oobn, recvflags int, from unix.Sockaddr, err error)
	WriteFunc    = func(fd int, p []byte) (int, error)
	WritevFunc   = func(fd int, iovs [][]byte) (int, error)
	SendFunc     = func(fd int, p []byte, flags int) (int, error)
	SendtoFunc   = func(fd int, p []byte, flags int, to unix.Sockaddr) (int, error)
	SendmsgFunc  = func(fd int, p, oob []byte, to unix.Sockaddr, flags int) (int, error)
)

// Syscalls groups the original implementations of every intercepted
// operation. [NativeSyscalls] binds them to the platform, tests typically
// use a programmable fake. See also [SyscallResolver].
type Syscalls interface {
	Sleep(seconds uint) uint
	Pipe(p []int) error
	Pipe2(p []int, flags int) error
	Popen(command, mode string) (*Stream, error)
	Pclose(s *Stream) (int, error)
	Close(fd int) error
	Read(fd int, p []byte) (int, error)
	Readv(fd int, iovs [][]byte) (int, error)
	Recv(fd int, p []byte, flags int) (int, error)
	Recvfrom(fd int, p []byte, flags int) (int, unix.Sockaddr, error)
	Recvmsg(fd int, p, oob []byte, flags int) (n, oobn, recvflags int, from unix.Sockaddr, err error)
	Write(fd int, p []byte) (int, error)
	Writev(fd int, iovs [][]byte) (int, error)
	Send(fd int, p []byte, flags int) (int, error)
	Sendto(fd int, p []byte, flags int, to unix.Sockaddr) (int, error)
	Sendmsg(fd int, p, oob []byte, to unix.Sockaddr, flags int) (int, error)
}

// Stream is the process stream created by popen, and consumed by pclose.
type Stream struct {
	// File is the parent's end of the pipe connected to the child.
	File *os.File
	wait func() (int, error)
}

// NewStream wraps the parent's end of a popen pipe. The wait function is
// called by pclose, after File has been closed, and must return the exit
// status of the child. It may be nil.
func NewStream(file *os.File, wait func() (int, error)) *Stream {
	return &Stream{File: file, wait: wait}
}

// Fd returns the descriptor of the parent's end of the pipe, or -1.
func (x *Stream) Fd() int {
	if x == nil || x.File == nil {
		return -1
	}
	return int(x.File.Fd())
}

// pclose closes the pipe then waits for the child.
func (x *Stream) pclose() (int, error) {
	if x == nil {
		return -1, unix.EINVAL
	}
	if x.File != nil {
		_ = x.File.Close()
	}
	if x.wait == nil {
		return 0, nil
	}
	return x.wait()
}
