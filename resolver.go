//go:build unix

package fiberhook

// Resolver locates the original implementation of an operation.
//
// Lookup must return a function value with the signature matching the op,
// e.g. a [ReadFunc] for [OpRead]. A nil value is treated as not found.
type Resolver interface {
	Lookup(op Op) (any, error)
}

// ResolverFunc implements [Resolver] using a function.
type ResolverFunc func(op Op) (any, error)

func (x ResolverFunc) Lookup(op Op) (any, error) { return x(op) }

// MapResolver implements [Resolver] using a fixed table. Missing entries
// resolve as not found.
type MapResolver map[Op]any

func (x MapResolver) Lookup(op Op) (any, error) {
	if v, ok := x[op]; ok {
		return v, nil
	}
	return nil, ErrSymbolNotFound
}

// SyscallResolver adapts a [Syscalls] implementation into a [Resolver].
func SyscallResolver(s Syscalls) Resolver {
	return ResolverFunc(func(op Op) (any, error) {
		if s == nil {
			return nil, ErrSymbolNotFound
		}
		switch op {
		case OpSleep:
			return SleepFunc(s.Sleep), nil
		case OpPipe:
			return PipeFunc(s.Pipe), nil
		case OpPipe2:
			return Pipe2Func(s.Pipe2), nil
		case OpPopen:
			return PopenFunc(s.Popen), nil
		case OpPclose:
			return PcloseFunc(s.Pclose), nil
		case OpClose:
			return CloseFunc(s.Close), nil
		case OpRead:
			return ReadFunc(s.Read), nil
		case OpReadv:
			return ReadvFunc(s.Readv), nil
		case OpRecv:
			return RecvFunc(s.Recv), nil
		case OpRecvfrom:
			return RecvfromFunc(s.Recvfrom), nil
		case OpRecvmsg:
			return RecvmsgFunc(s.Recvmsg), nil
		case OpWrite:
			return WriteFunc(s.Write), nil
		case OpWritev:
			return WritevFunc(s.Writev), nil
		case OpSend:
			return SendFunc(s.Send), nil
		case OpSendto:
			return SendtoFunc(s.Sendto), nil
		case OpSendmsg:
			return SendmsgFunc(s.Sendmsg), nil
		default:
			return nil, ErrSymbolNotFound
		}
	})
}
