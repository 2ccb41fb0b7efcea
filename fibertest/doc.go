// Package fibertest provides programmable fakes of the collaborators of a
// [github.com/joeycumines/go-fiberhook.Hook]: scripted original
// implementations, a recording scheduler and fiber, and an in-memory event
// subsystem.
//
// The fakes never suspend anything. Tests drive "what happens while a fiber
// is suspended" through [Scheduler.OnWait] and [Syscalls.OnCall].
package fibertest
