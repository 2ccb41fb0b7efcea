// Package netpoll is an epoll backed event subsystem, for use with
// [github.com/joeycumines/go-fiberhook].
//
// # Readiness cache
//
// The [Poller] keeps readable and writable flags per descriptor. Only
// [Poller.Poll] sets them, from epoll events. Consumers query and clear them
// with [Poller.ConsumeReadable] and [Poller.ConsumeWritable].
//
// # Waiting
//
// Descriptors are registered lazily, by [Poller.WaitChan], using one-shot
// level triggered interest, re-armed on each wait. This means data left
// unread after a partial read is reported again on the next wait.
//
// # Safety
//
// Call [Poller.Closing] before closing a descriptor that may have been
// waited on, to release waiters and avoid stale events due to descriptor
// reuse.
package netpoll
