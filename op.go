package fiberhook

import (
	"fmt"
)

// Op identifies an intercepted operation.
type Op int

const (
	OpSleep Op = iota
	OpPipe
	OpPipe2
	OpPopen
	OpPclose
	OpClose
	OpRead
	OpReadv
	OpRecv
	OpRecvfrom
	OpRecvmsg
	OpWrite
	OpWritev
	OpSend
	OpSendto
	OpSendmsg

	numOps
)

var opNames = [numOps]string{
	OpSleep:    `sleep`,
	OpPipe:     `pipe`,
	OpPipe2:    `pipe2`,
	OpPopen:    `popen`,
	OpPclose:   `pclose`,
	OpClose:    `close`,
	OpRead:     `read`,
	OpReadv:    `readv`,
	OpRecv:     `recv`,
	OpRecvfrom: `recvfrom`,
	OpRecvmsg:  `recvmsg`,
	OpWrite:    `write`,
	OpWritev:   `writev`,
	OpSend:     `send`,
	OpSendto:   `sendto`,
	OpSendmsg:  `sendmsg`,
}

// Ops returns every intercepted operation, in resolution order.
func Ops() []Op {
	ops := make([]Op, numOps)
	for i := range ops {
		ops[i] = Op(i)
	}
	return ops
}

// String returns the POSIX name of the operation.
func (x Op) String() string {
	if x >= 0 && x < numOps {
		return opNames[x]
	}
	return fmt.Sprintf(`Op(%d)`, int(x))
}

// Valid reports whether x is a known operation.
func (x Op) Valid() bool { return x >= 0 && x < numOps }

// ReadClass reports whether the operation follows the read-class readiness
// protocol.
func (x Op) ReadClass() bool {
	switch x {
	case OpRead, OpReadv, OpRecv, OpRecvfrom, OpRecvmsg:
		return true
	default:
		return false
	}
}

// WriteClass reports whether the operation follows the write-class
// readiness protocol.
func (x Op) WriteClass() bool {
	switch x {
	case OpWrite, OpWritev, OpSend, OpSendto, OpSendmsg:
		return true
	default:
		return false
	}
}
