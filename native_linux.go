//go:build linux

package fiberhook

import (
	"time"

	"golang.org/x/sys/unix"
)

// Sleep suspends the calling thread, returning the number of whole seconds
// left if it was interrupted.
func (NativeSyscalls) Sleep(seconds uint) uint {
	d, excess := sleepDuration(seconds)
	ts := unix.NsecToTimespec(int64(d))
	var rem unix.Timespec
	if err := unix.Nanosleep(&ts, &rem); err == nil {
		return 0
	}
	return wholeSeconds(time.Duration(rem.Nano())) + excess
}

func pipe2(p []int, flags int) error { return unix.Pipe2(p, flags) }

func readv(fd int, iovs [][]byte) (int, error) { return unix.Readv(fd, iovs) }

func writev(fd int, iovs [][]byte) (int, error) { return unix.Writev(fd, iovs) }
