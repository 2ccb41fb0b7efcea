//go:build unix

package fiberhook

import (
	"errors"
	"math"
	"os"
	"os/exec"
	"time"

	"golang.org/x/sys/unix"
)

// NativeSyscalls binds every operation to the platform, via x/sys/unix.
type NativeSyscalls struct{}

var _ Syscalls = NativeSyscalls{}

// NativeResolver resolves the platform implementations, see
// [NativeSyscalls].
func NativeResolver() Resolver { return SyscallResolver(NativeSyscalls{}) }

// maxSleepSeconds is the longest sleep representable as a time.Duration.
const maxSleepSeconds = uint64(math.MaxInt64 / int64(time.Second))

// sleepDuration converts seconds to a duration, clamped to the longest
// representable, also returning the whole seconds beyond the clamp.
func sleepDuration(seconds uint) (d time.Duration, excess uint) {
	if uint64(seconds) > maxSleepSeconds {
		return time.Duration(maxSleepSeconds) * time.Second, uint(uint64(seconds) - maxSleepSeconds)
	}
	return time.Duration(seconds) * time.Second, 0
}

// wholeSeconds rounds d to the nearest whole second, never below zero.
func wholeSeconds(d time.Duration) uint {
	if d <= 0 {
		return 0
	}
	n := uint(d / time.Second)
	if d%time.Second >= time.Second/2 {
		n++
	}
	return n
}

func (NativeSyscalls) Pipe(p []int) error { return unix.Pipe(p) }

func (NativeSyscalls) Pipe2(p []int, flags int) error { return pipe2(p, flags) }

// Popen starts command via /bin/sh, connected by a pipe to the returned
// stream. The mode must be "r" (read the child's stdout) or "w" (write the
// child's stdin), optionally followed by "e" (close on exec, always set).
func (NativeSyscalls) Popen(command, mode string) (*Stream, error) {
	reading, ok := parsePopenMode(mode)
	if !ok {
		return nil, unix.EINVAL
	}

	r, w, err := os.Pipe()
	if err != nil {
		return nil, err
	}

	cmd := exec.Command(`/bin/sh`, `-c`, command)
	var parent, child *os.File
	if reading {
		cmd.Stdout, parent, child = w, r, w
	} else {
		cmd.Stdin, parent, child = r, w, r
	}

	if err := cmd.Start(); err != nil {
		_ = r.Close()
		_ = w.Close()
		return nil, err
	}
	_ = child.Close()

	return NewStream(parent, func() (int, error) {
		err := cmd.Wait()
		var exitErr *exec.ExitError
		if err == nil || errors.As(err, &exitErr) {
			return cmd.ProcessState.ExitCode(), nil
		}
		return -1, err
	}), nil
}

func (NativeSyscalls) Pclose(s *Stream) (int, error) { return s.pclose() }

func (NativeSyscalls) Close(fd int) error { return unix.Close(fd) }

func (NativeSyscalls) Read(fd int, p []byte) (int, error) { return unix.Read(fd, p) }

func (NativeSyscalls) Readv(fd int, iovs [][]byte) (int, error) { return readv(fd, iovs) }

func (NativeSyscalls) Recv(fd int, p []byte, flags int) (int, error) {
	n, _, err := unix.Recvfrom(fd, p, flags)
	return n, err
}

func (NativeSyscalls) Recvfrom(fd int, p []byte, flags int) (int, unix.Sockaddr, error) {
	return unix.Recvfrom(fd, p, flags)
}

func (NativeSyscalls) Recvmsg(fd int, p, oob []byte, flags int) (n, oobn, recvflags int, from unix.Sockaddr, err error) {
	return unix.Recvmsg(fd, p, oob, flags)
}

func (NativeSyscalls) Write(fd int, p []byte) (int, error) { return unix.Write(fd, p) }

func (NativeSyscalls) Writev(fd int, iovs [][]byte) (int, error) { return writev(fd, iovs) }

func (NativeSyscalls) Send(fd int, p []byte, flags int) (int, error) {
	return unix.SendmsgN(fd, p, nil, nil, flags)
}

func (NativeSyscalls) Sendto(fd int, p []byte, flags int, to unix.Sockaddr) (int, error) {
	return unix.SendmsgN(fd, p, nil, to, flags)
}

func (NativeSyscalls) Sendmsg(fd int, p, oob []byte, to unix.Sockaddr, flags int) (int, error) {
	return unix.SendmsgN(fd, p, oob, to, flags)
}

func parsePopenMode(mode string) (reading bool, ok bool) {
	switch mode {
	case `r`, `re`:
		return true, true
	case `w`, `we`:
		return false, true
	default:
		return false, false
	}
}
