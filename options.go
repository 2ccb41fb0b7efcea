//go:build unix

package fiberhook

import (
	"errors"
	"time"

	"github.com/joeycumines/logiface"
)

// hookOptions holds configuration options for Hook creation.
type hookOptions struct {
	resolver    Resolver
	mode        ModeSwitch
	scheduler   Scheduler
	events      Events
	logger      *logiface.Logger[logiface.Event]
	reader      ReadStrategy
	fatal       func(err *ResolutionError)
	killedRates map[time.Duration]int
}

// Option configures a Hook instance.
type Option interface {
	applyHook(*hookOptions) error
}

// hookOptionImpl implements Option.
type hookOptionImpl struct {
	applyHookFunc func(*hookOptions) error
}

func (x *hookOptionImpl) applyHook(opts *hookOptions) error {
	return x.applyHookFunc(opts)
}

// WithResolver sets the source of the original implementations.
// Defaults to [NativeResolver].
func WithResolver(resolver Resolver) Option {
	return &hookOptionImpl{func(opts *hookOptions) error {
		if resolver == nil {
			return errors.New(`fiberhook: nil resolver`)
		}
		opts.resolver = resolver
		return nil
	}}
}

// WithMode sets the mode switch, which is normally owned by the scheduler.
// Defaults to a [ModeFlag] in passthrough mode.
func WithMode(mode ModeSwitch) Option {
	return &hookOptionImpl{func(opts *hookOptions) error {
		opts.mode = mode
		return nil
	}}
}

// WithScheduler sets the fiber scheduler. Without a scheduler, every call
// is passthrough, regardless of the mode switch.
func WithScheduler(scheduler Scheduler) Option {
	return &hookOptionImpl{func(opts *hookOptions) error {
		opts.scheduler = scheduler
		return nil
	}}
}

// WithEvents sets the event subsystem. Without one, the read fast path is
// never taken, and close never short-circuits.
func WithEvents(events Events) Option {
	return &hookOptionImpl{func(opts *hookOptions) error {
		opts.events = events
		return nil
	}}
}

// WithLogger sets the structured logger. Defaults to a JSON logger writing
// warnings and above to stderr.
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return &hookOptionImpl{func(opts *hookOptions) error {
		opts.logger = logger
		return nil
	}}
}

// WithReadStrategy sets the read-class readiness protocol. Defaults to
// [ReadWaitFirst], or [ReadRetryLoop] if built with the fiberhook_retryread
// tag.
func WithReadStrategy(strategy ReadStrategy) Option {
	return &hookOptionImpl{func(opts *hookOptions) error {
		if strategy == nil {
			return errors.New(`fiberhook: nil read strategy`)
		}
		opts.reader = strategy
		return nil
	}}
}

// WithFatal sets the function called when an original implementation
// cannot be resolved. It must not return (the default panics with err).
func WithFatal(fatal func(err *ResolutionError)) Option {
	return &hookOptionImpl{func(opts *hookOptions) error {
		opts.fatal = fatal
		return nil
	}}
}

// WithKilledLogRates sets the rate limits applied, per operation, to the
// diagnostic logged when a fiber is found killed after a wait. A nil or
// empty map disables limiting. Defaults to 10/s and 100/min.
func WithKilledLogRates(rates map[time.Duration]int) Option {
	return &hookOptionImpl{func(opts *hookOptions) error {
		opts.killedRates = rates
		return nil
	}}
}

// resolveHookOptions applies Option instances to hookOptions.
func resolveHookOptions(opts []Option) (*hookOptions, error) {
	cfg := &hookOptions{
		reader: defaultReadStrategy,
		killedRates: map[time.Duration]int{
			time.Second: 10,
			time.Minute: 100,
		},
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyHook(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
