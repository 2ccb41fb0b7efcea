package netpoll

import (
	"errors"

	"github.com/joeycumines/logiface"
)

// Maximum file descriptor we support with direct indexing, initially.
const initialFDs = 1024

// MaxFDLimit is the maximum descriptor value supported.
const MaxFDLimit = 100000000

// IOEvents represents the type of I/O events to monitor.
type IOEvents uint32

const (
	// EventRead indicates the file descriptor is ready for reading.
	EventRead IOEvents = 1 << iota
	// EventWrite indicates the file descriptor is ready for writing.
	EventWrite
	// EventError indicates an error condition on the file descriptor.
	EventError
	// EventHangup indicates the peer closed its end of the connection.
	EventHangup
)

// Standard errors.
var (
	ErrFDOutOfRange = errors.New(`netpoll: fd out of range (max 100000000)`)
	ErrPollerClosed = errors.New(`netpoll: poller closed`)
	ErrNotSupported = errors.New(`netpoll: platform not supported`)
)

// pollerOptions holds configuration options for Poller creation.
type pollerOptions struct {
	logger *logiface.Logger[logiface.Event]
}

// Option configures a Poller instance.
type Option interface {
	applyPoller(*pollerOptions) error
}

// pollerOptionImpl implements Option.
type pollerOptionImpl struct {
	applyPollerFunc func(*pollerOptions) error
}

func (x *pollerOptionImpl) applyPoller(opts *pollerOptions) error {
	return x.applyPollerFunc(opts)
}

// WithLogger sets the structured logger. Defaults to no logging.
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return &pollerOptionImpl{func(opts *pollerOptions) error {
		opts.logger = logger
		return nil
	}}
}

// resolvePollerOptions applies Option instances to pollerOptions.
func resolvePollerOptions(opts []Option) (*pollerOptions, error) {
	cfg := &pollerOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyPoller(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// closedChan is returned by WaitChan when the descriptor is already ready.
var closedChan = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()
