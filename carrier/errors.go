package carrier

import (
	"errors"
	"fmt"
)

// Standard errors.
var (
	// ErrCarrierAlreadyRunning is returned by Run when it is already
	// running.
	ErrCarrierAlreadyRunning = errors.New(`carrier: already running`)

	// ErrCarrierClosed is returned when using a closed carrier.
	ErrCarrierClosed = errors.New(`carrier: closed`)
)

// PanicError wraps a value recovered from a panicking fiber.
type PanicError struct {
	Value any
	Fiber uint64
}

func (e *PanicError) Error() string {
	return fmt.Sprintf(`carrier: fiber %d panicked: %v`, e.Fiber, e.Value)
}

// Unwrap returns the panic value, if it is an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
