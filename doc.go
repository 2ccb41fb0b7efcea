// Package fiberhook lets code written against blocking POSIX I/O run
// cooperatively on a fiber scheduler, without being rewritten.
//
// A [Hook] exposes the familiar call surface (Read, Write, Recv, Send,
// Close, Sleep, ...). While its [ModeSwitch] reports passthrough, every
// call goes straight to the original implementation, with identical
// results. Once the mode switch reports cooperative, read-class and
// write-class calls suspend only the calling fiber until the descriptor is
// usable, then retry the underlying call, and Sleep parks the fiber on the
// scheduler's timer instead of blocking the carrier thread.
//
// # Collaborators
//
// The scheduler ([Scheduler], [Fiber]) and the event subsystem ([Events])
// are external. See [github.com/joeycumines/go-fiberhook/carrier] and
// [github.com/joeycumines/go-fiberhook/netpoll] for goroutine and epoll
// backed bindings, and [github.com/joeycumines/go-fiberhook/fibertest] for
// programmable fakes.
//
// # Original implementations
//
// Originals are obtained through a [Resolver], exactly once per Hook, the
// first time any intercepted call needs them. [NativeResolver] binds them
// to golang.org/x/sys/unix. A failed resolution is fatal.
//
// # Errors
//
// Failures are reported the way x/sys/unix reports them: a count of -1 and
// a non-nil error, typically a unix.Errno. In cooperative mode the error
// of every failed underlying call is also stored in the calling fiber's
// error slot, see [Hook.Errno].
package fiberhook
