//go:build unix

package fiberhook

import (
	"fmt"
	"os"
	"time"

	"github.com/joeycumines/go-catrate"
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// Hook is the interposition layer. It implements the POSIX-shaped call
// surface, dispatching each call either directly to the original
// implementation, or through the cooperative readiness protocol.
//
// A Hook is safe for concurrent use. In cooperative mode, each call must
// be made by the scheduler's running fiber. The carrier package
// enforces this by reporting passthrough mode to every other goroutine.
type Hook struct {
	symbols   symbolTable
	mode      ModeSwitch
	scheduler Scheduler
	events    Events
	reader    ReadStrategy
	logger    *logiface.Logger[logiface.Event]
	killedLog *catrate.Limiter
	fatal     func(err *ResolutionError)
}

// New constructs a Hook. Originals are not resolved until first use.
func New(opts ...Option) (*Hook, error) {
	cfg, err := resolveHookOptions(opts)
	if err != nil {
		return nil, err
	}

	x := &Hook{
		mode:      cfg.mode,
		scheduler: cfg.scheduler,
		events:    cfg.events,
		reader:    cfg.reader,
		logger:    cfg.logger,
		fatal:     cfg.fatal,
	}

	x.symbols.resolver = cfg.resolver
	if x.symbols.resolver == nil {
		x.symbols.resolver = NativeResolver()
	}

	if x.mode == nil {
		x.mode = new(ModeFlag)
	}

	if x.logger == nil {
		x.logger = stumpy.L.New(
			stumpy.L.WithStumpy(stumpy.WithWriter(os.Stderr)),
			stumpy.L.WithLevel(logiface.LevelWarning),
		).Logger()
	}

	if len(cfg.killedRates) != 0 {
		if x.killedLog, err = newLimiter(cfg.killedRates); err != nil {
			return nil, err
		}
	}

	if x.fatal == nil {
		x.fatal = func(err *ResolutionError) { panic(err) }
	}

	return x, nil
}

// Cooperative reports whether calls are currently dispatched through the
// cooperative protocol.
func (x *Hook) Cooperative() bool {
	return x.scheduler != nil && x.mode.Cooperative()
}

// Errno returns the error stored in the running fiber's error slot, or nil
// if there is no running fiber.
func (x *Hook) Errno() error {
	if x.scheduler == nil {
		return nil
	}
	if f := x.scheduler.Running(); f != nil {
		return f.Errno()
	}
	return nil
}

// Resolve forces resolution of the original implementations. It is not
// necessary to call it, as every intercepted call resolves on first use.
func (x *Hook) Resolve() { x.originals() }

func (x *Hook) originals() *originals {
	return x.symbols.load(x.resolveFailed)
}

func (x *Hook) resolveFailed(err *ResolutionError) {
	x.logger.Emerg().
		Stringer(`op`, err.Op).
		Err(err.Err).
		Log(`failed to resolve original implementation`)
	x.fatal(err)
}

// invalidFD logs and returns the error for a negative descriptor.
func (x *Hook) invalidFD(op Op, fd int) error {
	x.logger.Err().
		Stringer(`op`, op).
		Int(`fd`, fd).
		Log(`invalid fd`)
	return &DescriptorError{Op: op, FD: fd}
}

// saveErrno stores err in the running fiber's error slot.
func (x *Hook) saveErrno(err error) {
	if f := x.scheduler.Running(); f != nil {
		f.SetErrno(err)
	}
}

// killed reports whether the running fiber was killed, logging the
// diagnostic if it was.
func (x *Hook) killed(op Op, fd int) bool {
	f := x.scheduler.Running()
	if f == nil || !f.Killed() {
		return false
	}
	if x.killedLog != nil {
		if _, ok := x.killedLog.Allow(op); !ok {
			return true
		}
	}
	x.logger.Info().
		Stringer(`op`, op).
		Int(`fd`, fd).
		Uint64(`fiber`, f.ID()).
		Log(`fiber is exiting`)
	return true
}

// newLimiter is catrate.NewLimiter, returning invalid rates as an error.
func newLimiter(rates map[time.Duration]int) (limiter *catrate.Limiter, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf(`fiberhook: %v`, r)
		}
	}()
	return catrate.NewLimiter(rates), nil
}
