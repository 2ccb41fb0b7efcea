package carrier

import (
	"errors"
	"time"

	"github.com/joeycumines/logiface"
)

// carrierOptions holds configuration options for Carrier creation.
type carrierOptions struct {
	poller      Poller
	logger      *logiface.Logger[logiface.Event]
	pollTimeout time.Duration
}

// Option configures a Carrier instance.
type Option interface {
	applyCarrier(*carrierOptions) error
}

// carrierOptionImpl implements Option.
type carrierOptionImpl struct {
	applyCarrierFunc func(*carrierOptions) error
}

func (x *carrierOptionImpl) applyCarrier(opts *carrierOptions) error {
	return x.applyCarrierFunc(opts)
}

// WithPoller sets the readiness source. Defaults to a new
// [netpoll.Poller], owned (and closed) by the carrier.
func WithPoller(poller Poller) Option {
	return &carrierOptionImpl{func(opts *carrierOptions) error {
		if poller == nil {
			return errors.New(`carrier: nil poller`)
		}
		opts.poller = poller
		return nil
	}}
}

// WithLogger sets the structured logger. Defaults to no logging.
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return &carrierOptionImpl{func(opts *carrierOptions) error {
		opts.logger = logger
		return nil
	}}
}

// WithPollTimeout bounds each Poll call made by Run. Defaults to 100ms.
func WithPollTimeout(timeout time.Duration) Option {
	return &carrierOptionImpl{func(opts *carrierOptions) error {
		if timeout <= 0 {
			return errors.New(`carrier: poll timeout must be positive`)
		}
		opts.pollTimeout = timeout
		return nil
	}}
}

// resolveCarrierOptions applies Option instances to carrierOptions.
func resolveCarrierOptions(opts []Option) (*carrierOptions, error) {
	cfg := &carrierOptions{
		pollTimeout: 100 * time.Millisecond,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyCarrier(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
