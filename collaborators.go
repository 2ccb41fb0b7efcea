package fiberhook

// Scheduler is the subset of the fiber scheduler used by a [Hook].
//
// WaitReadable, WaitWritable and Sleep are the only suspension points. Each
// suspends the calling fiber (not the carrier thread), returning once the
// fiber has been resumed, which may be because it was killed.
type Scheduler interface {
	// Running returns the fiber that is currently running, or nil. It
	// should return nil if the caller is not that fiber.
	Running() Fiber

	// WaitReadable suspends the running fiber until fd is readable.
	WaitReadable(fd int)

	// WaitWritable suspends the running fiber until fd is writable.
	WaitWritable(fd int)

	// Sleep suspends the running fiber for the given number of seconds,
	// returning the number of seconds left, if it was woken early.
	Sleep(seconds uint) uint
}

// Fiber is a handle to a cooperatively scheduled unit of execution.
type Fiber interface {
	ID() uint64

	// Killed reports whether the fiber has been marked for termination.
	Killed() bool

	// SetErrno stores err in the fiber's error slot.
	SetErrno(err error)

	// Errno returns the error last stored by SetErrno.
	Errno() error
}

// Events is the subset of the event subsystem used by a [Hook]. Readiness
// flags are only ever set by the event subsystem.
type Events interface {
	// ConsumeReadable reports whether fd is marked readable, clearing the
	// flag if it was.
	ConsumeReadable(fd int) bool

	// Closing notifies that fd is about to be closed, releasing any fiber
	// waiting on it.
	Closing(fd int)

	// CloseMux closes fd if it is an event multiplexer handle owned by the
	// event subsystem, in which case handled is true and err is the result.
	CloseMux(fd int) (handled bool, err error)
}
