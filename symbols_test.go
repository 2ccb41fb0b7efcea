//go:build unix

package fiberhook_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/joeycumines/go-fiberhook"
	"github.com/joeycumines/go-fiberhook/fibertest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// completeMap resolves every op against s, then applies the overrides.
func completeMap(t *testing.T, s fiberhook.Syscalls, overrides map[fiberhook.Op]any) fiberhook.MapResolver {
	t.Helper()
	r := fiberhook.SyscallResolver(s)
	m := make(fiberhook.MapResolver)
	for _, op := range fiberhook.Ops() {
		v, err := r.Lookup(op)
		require.NoError(t, err)
		m[op] = v
	}
	for op, v := range overrides {
		if v == nil {
			delete(m, op)
		} else {
			m[op] = v
		}
	}
	return m
}

func TestHook_resolvesOnceUnderConcurrentFirstUse(t *testing.T) {
	sys := new(fibertest.Syscalls)
	resolver := fibertest.NewCountingResolver(sys)
	resolver.Delay = time.Millisecond

	h, err := fiberhook.New(fiberhook.WithResolver(resolver))
	require.NoError(t, err)

	const workers = 32
	var (
		wg    sync.WaitGroup
		start = make(chan struct{})
	)
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if i%2 == 0 {
				_, _ = h.Write(3, []byte(`x`))
			} else {
				_, _ = h.Read(3, make([]byte, 1))
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, len(fiberhook.Ops()), resolver.Total())
	for _, op := range fiberhook.Ops() {
		assert.Equal(t, 1, resolver.Count(op), op.String())
	}
	assert.Equal(t, workers/2, sys.Count(fiberhook.OpWrite))
	assert.Equal(t, workers/2, sys.Count(fiberhook.OpRead))

	// no further lookups, ever
	h.Resolve()
	_ = h.Close(3)
	assert.Equal(t, len(fiberhook.Ops()), resolver.Total())
}

func TestHook_Resolve_fatal(t *testing.T) {
	lookupErr := errors.New(`dlsym: not found`)

	for _, tc := range [...]struct {
		name     string
		resolver func(t *testing.T) fiberhook.Resolver
		op       fiberhook.Op
		target   error
	}{
		{
			name: `missing`,
			resolver: func(t *testing.T) fiberhook.Resolver {
				return completeMap(t, new(fibertest.Syscalls), map[fiberhook.Op]any{fiberhook.OpRecvmsg: nil})
			},
			op:     fiberhook.OpRecvmsg,
			target: fiberhook.ErrSymbolNotFound,
		},
		{
			name: `wrong signature`,
			resolver: func(t *testing.T) fiberhook.Resolver {
				return completeMap(t, new(fibertest.Syscalls), map[fiberhook.Op]any{fiberhook.OpSleep: func() {}})
			},
			op:     fiberhook.OpSleep,
			target: fiberhook.ErrSymbolNotFound,
		},
		{
			name: `nil function`,
			resolver: func(t *testing.T) fiberhook.Resolver {
				return completeMap(t, new(fibertest.Syscalls), map[fiberhook.Op]any{fiberhook.OpWritev: fiberhook.WritevFunc(nil)})
			},
			op:     fiberhook.OpWritev,
			target: fiberhook.ErrSymbolNotFound,
		},
		{
			name: `lookup error`,
			resolver: func(t *testing.T) fiberhook.Resolver {
				return fiberhook.ResolverFunc(func(op fiberhook.Op) (any, error) {
					if op == fiberhook.OpClose {
						return nil, lookupErr
					}
					return fiberhook.SyscallResolver(new(fibertest.Syscalls)).Lookup(op)
				})
			},
			op:     fiberhook.OpClose,
			target: lookupErr,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var (
				logs  fibertest.LogBuffer
				fatal []*fiberhook.ResolutionError
			)
			h, err := fiberhook.New(
				fiberhook.WithResolver(tc.resolver(t)),
				fiberhook.WithLogger(logs.Logger()),
				fiberhook.WithFatal(func(err *fiberhook.ResolutionError) {
					fatal = append(fatal, err)
				}),
			)
			require.NoError(t, err)

			// a fatal hook that returns does not let the call proceed
			assert.Panics(t, func() { _, _ = h.Read(0, nil) })

			require.Len(t, fatal, 1)
			assert.Equal(t, tc.op, fatal[0].Op)
			assert.ErrorIs(t, fatal[0], tc.target)

			lines := logs.Lines()
			require.Len(t, lines, 1)
			assert.Contains(t, lines[0], `failed to resolve original implementation`)
			assert.Contains(t, lines[0], `"op":"`+tc.op.String()+`"`)
		})
	}
}

func TestHook_Resolve_defaultFatalPanics(t *testing.T) {
	h, err := fiberhook.New(
		fiberhook.WithResolver(fiberhook.MapResolver{}),
		fiberhook.WithLogger(new(fibertest.LogBuffer).Logger()),
	)
	require.NoError(t, err)

	defer func() {
		r := recover()
		require.NotNil(t, r)
		err, ok := r.(*fiberhook.ResolutionError)
		require.True(t, ok, `%T`, r)
		assert.Equal(t, fiberhook.OpSleep, err.Op)
		assert.ErrorIs(t, err, fiberhook.ErrSymbolNotFound)
	}()

	h.Sleep(1)
}

func TestNew_invalidOptions(t *testing.T) {
	_, err := fiberhook.New(fiberhook.WithResolver(nil))
	assert.Error(t, err)

	_, err = fiberhook.New(fiberhook.WithReadStrategy(nil))
	assert.Error(t, err)

	h, err := fiberhook.New(nil)
	require.NoError(t, err)
	assert.False(t, h.Cooperative())
}

func TestNew_invalidKilledLogRates(t *testing.T) {
	_, err := fiberhook.New(fiberhook.WithKilledLogRates(map[time.Duration]int{time.Second: 10, time.Minute: 5}))
	assert.ErrorContains(t, err, `invalid rates`)
}
