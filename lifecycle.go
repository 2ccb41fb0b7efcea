//go:build unix

package fiberhook

// Close is close(2).
//
// In cooperative mode, fibers waiting on fd are released first, and if fd
// is an event multiplexer handle, the event subsystem closes it instead.
func (x *Hook) Close(fd int) error {
	if fd < 0 {
		return x.invalidFD(OpClose, fd)
	}
	sys := x.originals()
	if !x.Cooperative() {
		return sys.close(fd)
	}

	if x.events != nil {
		x.events.Closing(fd)
		if handled, err := x.events.CloseMux(fd); handled {
			return err
		}
	}

	if err := sys.close(fd); err != nil {
		x.saveErrno(err)
		return err
	}
	return nil
}

// Pipe is pipe(2). It never suspends.
func (x *Hook) Pipe(p []int) error {
	err := x.originals().pipe(p)
	if err != nil && x.Cooperative() {
		x.saveErrno(err)
	}
	return err
}

// Pipe2 is pipe2(2). It never suspends.
func (x *Hook) Pipe2(p []int, flags int) error {
	err := x.originals().pipe2(p, flags)
	if err != nil && x.Cooperative() {
		x.saveErrno(err)
	}
	return err
}

// Popen is popen(3). It never suspends.
func (x *Hook) Popen(command, mode string) (*Stream, error) {
	s, err := x.originals().popen(command, mode)
	if err != nil && x.Cooperative() {
		x.saveErrno(err)
	}
	return s, err
}

// Pclose is pclose(3), returning the exit status of the child. It never
// suspends.
func (x *Hook) Pclose(s *Stream) (int, error) {
	status, err := x.originals().pclose(s)
	if err != nil && x.Cooperative() {
		x.saveErrno(err)
	}
	return status, err
}

// Sleep is sleep(3). In cooperative mode, only the calling fiber sleeps,
// on the scheduler's timer.
func (x *Hook) Sleep(seconds uint) uint {
	sys := x.originals()
	if x.Cooperative() {
		return x.scheduler.Sleep(seconds)
	}
	return sys.sleep(seconds)
}
