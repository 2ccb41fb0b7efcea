//go:build unix

package fiberhook_test

import (
	"strings"
	"testing"

	"github.com/joeycumines/go-fiberhook"
	"github.com/joeycumines/go-fiberhook/fibertest"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// harness is a hook in cooperative mode, wired entirely to fakes.
type harness struct {
	sys    *fibertest.Syscalls
	sched  *fibertest.Scheduler
	fiber  *fibertest.Fiber
	events *fibertest.Events
	mode   *fiberhook.ModeFlag
	logs   *fibertest.LogBuffer
	hook   *fiberhook.Hook
}

func newHarness(t *testing.T, opts ...fiberhook.Option) *harness {
	t.Helper()

	h := &harness{
		sys:    new(fibertest.Syscalls),
		fiber:  fibertest.NewFiber(1),
		events: new(fibertest.Events),
		mode:   new(fiberhook.ModeFlag),
		logs:   new(fibertest.LogBuffer),
	}
	h.sched = fibertest.NewScheduler(h.fiber)
	h.mode.Enable()

	hook, err := fiberhook.New(append([]fiberhook.Option{
		fiberhook.WithResolver(fiberhook.SyscallResolver(h.sys)),
		fiberhook.WithScheduler(h.sched),
		fiberhook.WithEvents(h.events),
		fiberhook.WithMode(h.mode),
		fiberhook.WithLogger(h.logs.Logger()),
		fiberhook.WithKilledLogRates(nil),
	}, opts...)...)
	require.NoError(t, err)
	h.hook = hook

	return h
}

// logsContaining returns the log lines containing every one of substrs.
func (h *harness) logsContaining(substrs ...string) (lines []string) {
outer:
	for _, line := range h.logs.Lines() {
		for _, s := range substrs {
			if !strings.Contains(line, s) {
				continue outer
			}
		}
		lines = append(lines, line)
	}
	return lines
}

// waitKinds flattens the recorded waits, for comparison.
func (h *harness) waitKinds() (kinds []fibertest.WaitKind) {
	for _, w := range h.sched.Waits() {
		kinds = append(kinds, w.Kind)
	}
	return kinds
}

// closeOnCleanup closes each of fds once the test completes, skipping any
// the test already closed, including numbers since reused by an unrelated
// descriptor. Identity is the device and inode at registration.
func closeOnCleanup(t *testing.T, fds ...int) {
	t.Helper()

	type identity struct{ dev, ino uint64 }
	stat := func(fd int) (identity, error) {
		var st unix.Stat_t
		if err := unix.Fstat(fd, &st); err != nil {
			return identity{}, err
		}
		return identity{dev: uint64(st.Dev), ino: st.Ino}, nil
	}

	ids := make([]identity, len(fds))
	for i, fd := range fds {
		id, err := stat(fd)
		require.NoError(t, err)
		ids[i] = id
	}

	t.Cleanup(func() {
		for i, fd := range fds {
			if id, err := stat(fd); err == nil && id == ids[i] {
				_ = unix.Close(fd)
			}
		}
	})
}
