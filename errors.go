//go:build unix

package fiberhook

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

var (
	// ErrSymbolNotFound indicates an original implementation could not be
	// located.
	ErrSymbolNotFound = errors.New(`fiberhook: original implementation not found`)

	// ErrFiberKilled is returned by write-class operations, when the calling
	// fiber was killed while waiting for the descriptor to become writable.
	ErrFiberKilled = errors.New(`fiberhook: fiber killed while blocked`)
)

// DescriptorError is returned for negative descriptors, before any
// underlying call is made. It matches [unix.EBADF].
type DescriptorError struct {
	Op Op
	FD int
}

func (e *DescriptorError) Error() string {
	return fmt.Sprintf(`fiberhook: %s: invalid fd: %d`, e.Op, e.FD)
}

func (e *DescriptorError) Unwrap() error { return unix.EBADF }

// ResolutionError indicates the original implementation of Op could not be
// resolved. It is always fatal.
type ResolutionError struct {
	Op  Op
	Err error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf(`fiberhook: resolve %s: %v`, e.Op, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// IsWouldBlock reports whether err indicates the operation could not
// complete without waiting, i.e. EAGAIN or EWOULDBLOCK.
func IsWouldBlock(err error) bool {
	return err != nil && (errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK))
}
