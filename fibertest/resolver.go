//go:build unix

package fibertest

import (
	"sync/atomic"
	"time"

	"github.com/joeycumines/go-fiberhook"
)

// CountingResolver wraps a [fiberhook.Resolver], counting lookups per op.
// Delay, if positive, is slept before each lookup, widening the window for
// racing first use.
type CountingResolver struct {
	Resolver fiberhook.Resolver
	Delay    time.Duration
	counts   [32]atomic.Int64
	total    atomic.Int64
}

var _ fiberhook.Resolver = (*CountingResolver)(nil)

// NewCountingResolver counts lookups against the syscalls s.
func NewCountingResolver(s fiberhook.Syscalls) *CountingResolver {
	return &CountingResolver{Resolver: fiberhook.SyscallResolver(s)}
}

func (x *CountingResolver) Lookup(op fiberhook.Op) (any, error) {
	if op >= 0 && int(op) < len(x.counts) {
		x.counts[op].Add(1)
	}
	x.total.Add(1)
	if x.Delay > 0 {
		time.Sleep(x.Delay)
	}
	return x.Resolver.Lookup(op)
}

// Count returns the number of lookups of op.
func (x *CountingResolver) Count(op fiberhook.Op) int {
	if op < 0 || int(op) >= len(x.counts) {
		return 0
	}
	return int(x.counts[op].Load())
}

// Total returns the number of lookups, across all ops.
func (x *CountingResolver) Total() int { return int(x.total.Load()) }
