// Package carrier runs many fibers on one logical carrier, strictly one at a
// time, suspending them only at explicit readiness and timer waits.
//
// Each fiber is a goroutine that must hold the carrier's baton to run. A
// fiber gives the baton back only when it suspends (WaitReadable,
// WaitWritable, Sleep) or exits, at which point the next ready fiber is
// resumed, in FIFO order. Readiness is provided by a [netpoll.Poller],
// driven by Run alongside the scheduler loop.
//
// A [Carrier] implements both [fiberhook.Scheduler] and
// [fiberhook.ModeSwitch], and its poller implements [fiberhook.Events], so
// a hook wired to them is cooperative exactly within its fibers:
//
//	p, _ := netpoll.New()
//	c, _ := carrier.New(carrier.WithPoller(p))
//	h, _ := fiberhook.New(
//		fiberhook.WithScheduler(c),
//		fiberhook.WithMode(c),
//		fiberhook.WithEvents(p),
//	)
//
// Only the fiber holding the baton observes cooperative mode. Any other
// goroutine calling the hook, even while Run is active, is passed through
// to the original implementation, and never touches a fiber's error slot.
package carrier
