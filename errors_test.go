//go:build unix

package fiberhook

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sys/unix"
)

func TestIsWouldBlock(t *testing.T) {
	for _, tc := range [...]struct {
		err  error
		want bool
	}{
		{nil, false},
		{unix.EAGAIN, true},
		{unix.EWOULDBLOCK, true},
		{fmt.Errorf(`wrapped: %w`, unix.EAGAIN), true},
		{fmt.Errorf(`%w: %w`, ErrFiberKilled, unix.EAGAIN), true},
		{unix.EINTR, false},
		{unix.EBADF, false},
		{errors.New(`EAGAIN`), false},
	} {
		assert.Equal(t, tc.want, IsWouldBlock(tc.err), `%v`, tc.err)
	}
}

func TestDescriptorError(t *testing.T) {
	err := error(&DescriptorError{Op: OpRecvfrom, FD: -3})
	assert.Equal(t, `fiberhook: recvfrom: invalid fd: -3`, err.Error())
	assert.ErrorIs(t, err, unix.EBADF)
}

func TestResolutionError(t *testing.T) {
	err := &ResolutionError{Op: OpPopen, Err: ErrSymbolNotFound}
	assert.Equal(t, `fiberhook: resolve popen: fiberhook: original implementation not found`, err.Error())
	assert.ErrorIs(t, err, ErrSymbolNotFound)
}
