//go:build linux

package fiberhook_test

import (
	"context"
	"testing"
	"time"

	"github.com/joeycumines/go-fiberhook"
	"github.com/joeycumines/go-fiberhook/carrier"
	"github.com/joeycumines/go-fiberhook/fibertest"
	"github.com/joeycumines/go-fiberhook/netpoll"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// cooperative wires a hook to a real carrier and poller.
type cooperative struct {
	poller  *netpoll.Poller
	carrier *carrier.Carrier
	hook    *fiberhook.Hook
	logs    *fibertest.LogBuffer
}

func newCooperative(t *testing.T, strategy fiberhook.ReadStrategy) *cooperative {
	t.Helper()

	x := &cooperative{logs: new(fibertest.LogBuffer)}

	var err error
	x.poller, err = netpoll.New(netpoll.WithLogger(x.logs.Logger()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = x.poller.Close() })

	x.carrier, err = carrier.New(
		carrier.WithPoller(x.poller),
		carrier.WithLogger(x.logs.Logger()),
		carrier.WithPollTimeout(10*time.Millisecond),
	)
	require.NoError(t, err)

	x.hook, err = fiberhook.New(
		fiberhook.WithScheduler(x.carrier),
		fiberhook.WithMode(x.carrier),
		fiberhook.WithEvents(x.poller),
		fiberhook.WithReadStrategy(strategy),
		fiberhook.WithLogger(x.logs.Logger()),
	)
	require.NoError(t, err)

	return x
}

func (x *cooperative) pipe(t *testing.T) (r, w int) {
	t.Helper()
	p := make([]int, 2)
	require.NoError(t, x.hook.Pipe2(p, unix.O_NONBLOCK|unix.O_CLOEXEC))
	closeOnCleanup(t, p...)
	return p[0], p[1]
}

func (x *cooperative) run(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, x.carrier.Run(ctx))
}

func TestCooperative_readSuspendsOnlyTheFiber(t *testing.T) {
	for _, strategy := range readStrategies {
		t.Run(strategy.String(), func(t *testing.T) {
			x := newCooperative(t, strategy)
			r, w := x.pipe(t)

			var (
				got      string
				progress int
			)
			_, err := x.carrier.Go(func(f *carrier.Fiber) {
				b := make([]byte, 16)
				n, err := x.hook.Read(r, b)
				assert.NoError(t, err)
				got = string(b[:n])
				// the other fiber ran while this one was suspended
				assert.Equal(t, 3, progress)
			})
			require.NoError(t, err)

			_, err = x.carrier.Go(func(f *carrier.Fiber) {
				for range 3 {
					progress++
					assert.Zero(t, x.hook.Sleep(0))
				}
				n, err := x.hook.Write(w, []byte(`ping`))
				assert.NoError(t, err)
				assert.Equal(t, 4, n)
			})
			require.NoError(t, err)

			x.run(t)
			assert.Equal(t, `ping`, got)
			assert.False(t, x.hook.Cooperative())
		})
	}
}

func TestCooperative_writeWaitsForDrain(t *testing.T) {
	x := newCooperative(t, fiberhook.ReadRetryLoop)
	r, w := x.pipe(t)

	size, err := unix.FcntlInt(uintptr(w), unix.F_GETPIPE_SZ, 0)
	require.NoError(t, err)
	payload := make([]byte, size*2)
	for i := range payload {
		payload[i] = byte(i)
	}

	var received []byte
	_, err = x.carrier.Go(func(f *carrier.Fiber) {
		for len(payload) != 0 {
			n, err := x.hook.Write(w, payload)
			if !assert.NoError(t, err) {
				return
			}
			payload = payload[n:]
		}
		assert.NoError(t, x.hook.Close(w))
	})
	require.NoError(t, err)

	_, err = x.carrier.Go(func(f *carrier.Fiber) {
		b := make([]byte, 4096)
		for {
			n, err := x.hook.Read(r, b)
			if !assert.NoError(t, err) || n == 0 {
				return
			}
			received = append(received, b[:n]...)
		}
	})
	require.NoError(t, err)

	x.run(t)
	require.Len(t, received, size*2)
	for i, b := range received {
		if b != byte(i) {
			t.Fatalf(`mismatch at %d`, i)
		}
	}
}

func TestCooperative_closeReleasesWaiter(t *testing.T) {
	for _, strategy := range readStrategies {
		t.Run(strategy.String(), func(t *testing.T) {
			x := newCooperative(t, strategy)
			r, _ := x.pipe(t)

			var readErr error
			_, err := x.carrier.Go(func(f *carrier.Fiber) {
				_, readErr = x.hook.Read(r, make([]byte, 8))
				assert.ErrorIs(t, x.hook.Errno(), unix.EBADF)
			})
			require.NoError(t, err)

			_, err = x.carrier.Go(func(f *carrier.Fiber) {
				assert.NoError(t, x.hook.Close(r))
			})
			require.NoError(t, err)

			x.run(t)
			assert.ErrorIs(t, readErr, unix.EBADF)
		})
	}
}

func TestCooperative_closeMux(t *testing.T) {
	x := newCooperative(t, fiberhook.ReadWaitFirst)

	mux, err := x.poller.CreateMux()
	require.NoError(t, err)

	_, err = x.carrier.Go(func(f *carrier.Fiber) {
		assert.NoError(t, x.hook.Close(mux))
	})
	require.NoError(t, err)

	x.run(t)
	assert.False(t, x.poller.IsMux(mux))
	assert.ErrorIs(t, unix.Close(mux), unix.EBADF)
}

func TestCooperative_killedWriter(t *testing.T) {
	x := newCooperative(t, fiberhook.ReadWaitFirst)
	_, w := x.pipe(t)

	chunk := make([]byte, 4096)
	for {
		if _, err := unix.Write(w, chunk); err != nil {
			require.ErrorIs(t, err, unix.EAGAIN)
			break
		}
	}

	var writeErr error
	writer, err := x.carrier.Go(func(f *carrier.Fiber) {
		_, writeErr = x.hook.Write(w, chunk)
	})
	require.NoError(t, err)

	_, err = x.carrier.Go(func(f *carrier.Fiber) {
		x.carrier.Kill(writer)
	})
	require.NoError(t, err)

	x.run(t)
	assert.ErrorIs(t, writeErr, fiberhook.ErrFiberKilled)
	assert.ErrorIs(t, writeErr, unix.EAGAIN)
}

func TestCooperative_otherGoroutinePassesThrough(t *testing.T) {
	x := newCooperative(t, fiberhook.ReadRetryLoop)
	r, _ := x.pipe(t)

	_, err := x.carrier.Go(func(f *carrier.Fiber) {
		done := make(chan struct{})
		go func() {
			defer close(done)
			assert.False(t, x.hook.Cooperative())

			n, err := x.hook.Write(987, []byte(`x`))
			assert.Equal(t, -1, n)
			assert.ErrorIs(t, err, unix.EBADF)

			// would block, but must not take the baton
			n, err = x.hook.Read(r, make([]byte, 8))
			assert.Equal(t, -1, n)
			assert.True(t, fiberhook.IsWouldBlock(err))
		}()
		<-done

		assert.True(t, x.hook.Cooperative())
		assert.NoError(t, f.Errno())
		assert.Same(t, f, x.carrier.Current())
	})
	require.NoError(t, err)

	x.run(t)
}
