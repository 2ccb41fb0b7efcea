//go:build unix && !linux

package fiberhook

import (
	"time"

	"golang.org/x/sys/unix"
)

// Sleep suspends the calling thread, returning the number of whole seconds
// left if it was interrupted. Nanosleep is not available on every platform,
// so this uses select with no descriptors.
func (NativeSyscalls) Sleep(seconds uint) uint {
	d, excess := sleepDuration(seconds)
	deadline := time.Now().Add(d)
	tv := unix.NsecToTimeval(int64(d))
	if _, err := unix.Select(0, nil, nil, nil, &tv); err == nil {
		return 0
	}
	return wholeSeconds(time.Until(deadline)) + excess
}

func pipe2([]int, int) error { return unix.ENOSYS }

// readv reads into a single buffer then scatters it.
func readv(fd int, iovs [][]byte) (int, error) {
	var size int
	for _, b := range iovs {
		size += len(b)
	}
	buf := make([]byte, size)
	n, err := unix.Read(fd, buf)
	if n > 0 {
		rem := buf[:n]
		for _, b := range iovs {
			rem = rem[copy(b, rem):]
		}
	}
	return n, err
}

// writev gathers the buffers then writes them with a single call.
func writev(fd int, iovs [][]byte) (int, error) {
	var buf []byte
	for _, b := range iovs {
		buf = append(buf, b...)
	}
	return unix.Write(fd, buf)
}
