//go:build !linux

package netpoll

// Poller is not supported on this platform. Every method fails with
// ErrNotSupported, or reports nothing ready.
type Poller struct{}

// New always fails with ErrNotSupported.
func New(opts ...Option) (*Poller, error) {
	if _, err := resolvePollerOptions(opts); err != nil {
		return nil, err
	}
	return nil, ErrNotSupported
}

func (p *Poller) Close() error { return ErrNotSupported }

func (p *Poller) WaitChan(fd int, events IOEvents) (<-chan struct{}, error) {
	return nil, ErrNotSupported
}

func (p *Poller) ConsumeReadable(fd int) bool { return false }

func (p *Poller) ConsumeWritable(fd int) bool { return false }

func (p *Poller) Ready(fd int) IOEvents { return 0 }

func (p *Poller) Closing(fd int) {}

func (p *Poller) CreateMux() (int, error) { return -1, ErrNotSupported }

func (p *Poller) IsMux(fd int) bool { return false }

func (p *Poller) CloseMux(fd int) (bool, error) { return false, nil }

func (p *Poller) Wake() error { return ErrNotSupported }

func (p *Poller) Poll(timeoutMs int) (int, error) { return 0, ErrNotSupported }
