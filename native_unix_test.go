//go:build unix

package fiberhook_test

import (
	"io"
	"testing"

	"github.com/joeycumines/go-fiberhook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func nativePipe(t *testing.T, h *fiberhook.Hook) (r, w int) {
	t.Helper()
	p := make([]int, 2)
	require.NoError(t, h.Pipe(p))
	closeOnCleanup(t, p...)
	return p[0], p[1]
}

func nativeSocketpair(t *testing.T) (a, b int) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	require.NoError(t, err)
	closeOnCleanup(t, fds[:]...)
	return fds[0], fds[1]
}

func TestNativeSyscalls_pipe(t *testing.T) {
	h, err := fiberhook.New()
	require.NoError(t, err)

	r, w := nativePipe(t, h)

	n, err := h.Write(w, []byte(`hello`))
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	n, err = h.Writev(w, [][]byte{[]byte(` wor`), []byte(`ld`)})
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	a, b := make([]byte, 5), make([]byte, 6)
	n, err = h.Readv(r, [][]byte{a, b})
	require.NoError(t, err)
	assert.Equal(t, 11, n)
	assert.Equal(t, `hello world`, string(a)+string(b))

	require.NoError(t, unix.SetNonblock(r, true))
	n, err = h.Read(r, a)
	assert.Equal(t, -1, n)
	assert.True(t, fiberhook.IsWouldBlock(err))
}

func TestNativeSyscalls_closeBadDescriptor(t *testing.T) {
	h, err := fiberhook.New()
	require.NoError(t, err)

	r, _ := nativePipe(t, h)
	require.NoError(t, h.Close(r))
	assert.ErrorIs(t, h.Close(r), unix.EBADF)
}

func TestCloseOnCleanup_reusedDescriptor(t *testing.T) {
	var reused [2]int
	t.Run(`closed by test`, func(t *testing.T) {
		var p [2]int
		require.NoError(t, unix.Pipe(p[:]))
		closeOnCleanup(t, p[:]...)
		require.NoError(t, unix.Close(p[0]))
		require.NoError(t, unix.Close(p[1]))
		require.NoError(t, unix.Pipe(reused[:]))
	})
	defer unix.Close(reused[0])
	defer unix.Close(reused[1])

	var st unix.Stat_t
	assert.NoError(t, unix.Fstat(reused[0], &st))
	assert.NoError(t, unix.Fstat(reused[1], &st))
}

func TestNativeSyscalls_socket(t *testing.T) {
	h, err := fiberhook.New()
	require.NoError(t, err)

	a, b := nativeSocketpair(t)
	buf := make([]byte, 16)

	n, err := h.Send(a, []byte(`one`), 0)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	n, err = h.Recv(b, buf, 0)
	require.NoError(t, err)
	assert.Equal(t, `one`, string(buf[:n]))

	n, err = h.Sendto(b, []byte(`two`), 0, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	n, _, err = h.Recvfrom(a, buf, 0)
	require.NoError(t, err)
	assert.Equal(t, `two`, string(buf[:n]))

	n, err = h.Sendmsg(a, []byte(`three`), nil, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	n, oobn, _, _, err := h.Recvmsg(b, buf, make([]byte, 64), 0)
	require.NoError(t, err)
	assert.Equal(t, `three`, string(buf[:n]))
	assert.Zero(t, oobn)

	n, _, err = h.Recvfrom(a, buf, unix.MSG_DONTWAIT)
	assert.Equal(t, -1, n)
	assert.True(t, fiberhook.IsWouldBlock(err))
}

func TestNativeSyscalls_popen(t *testing.T) {
	h, err := fiberhook.New()
	require.NoError(t, err)

	t.Run(`read`, func(t *testing.T) {
		s, err := h.Popen(`echo hi`, `r`)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, s.Fd(), 0)

		b, err := io.ReadAll(s.File)
		require.NoError(t, err)
		assert.Equal(t, "hi\n", string(b))

		status, err := h.Pclose(s)
		require.NoError(t, err)
		assert.Zero(t, status)
	})

	t.Run(`write`, func(t *testing.T) {
		s, err := h.Popen(`read line; test "$line" = ping && exit 3`, `we`)
		require.NoError(t, err)

		_, err = s.File.WriteString("ping\n")
		require.NoError(t, err)

		status, err := h.Pclose(s)
		require.NoError(t, err)
		assert.Equal(t, 3, status)
	})

	t.Run(`invalid mode`, func(t *testing.T) {
		_, err := h.Popen(`true`, `rw`)
		assert.ErrorIs(t, err, unix.EINVAL)
	})

	t.Run(`nil stream`, func(t *testing.T) {
		status, err := h.Pclose(nil)
		assert.Equal(t, -1, status)
		assert.ErrorIs(t, err, unix.EINVAL)
	})
}

func TestNativeSyscalls_Sleep(t *testing.T) {
	assert.Zero(t, fiberhook.NativeSyscalls{}.Sleep(0))
}
