package fiberhook

import (
	"sync/atomic"
)

// ModeSwitch selects between passthrough and cooperative dispatch. It is
// consulted on every call, and never written by this package.
type ModeSwitch interface {
	Cooperative() bool
}

// ModeFlag is a [ModeSwitch] backed by an atomic flag. The zero value is in
// passthrough mode.
type ModeFlag struct {
	enabled atomic.Bool
}

var _ ModeSwitch = (*ModeFlag)(nil)

// Enable switches to cooperative mode.
func (x *ModeFlag) Enable() { x.enabled.Store(true) }

// Disable switches to passthrough mode.
func (x *ModeFlag) Disable() { x.enabled.Store(false) }

func (x *ModeFlag) Cooperative() bool { return x != nil && x.enabled.Load() }

// ModeFunc adapts a function into a [ModeSwitch].
type ModeFunc func() bool

func (x ModeFunc) Cooperative() bool { return x() }
