//go:build unix

package fiberhook

import (
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
)

// originals is the resolved table. It is never mutated after it has been
// published via symbolTable.table.
type originals struct {
	sleep    SleepFunc
	pipe     PipeFunc
	pipe2    Pipe2Func
	popen    PopenFunc
	pclose   PcloseFunc
	close    CloseFunc
	read     ReadFunc
	readv    ReadvFunc
	recv     RecvFunc
	recvfrom RecvfromFunc
	recvmsg  RecvmsgFunc
	write    WriteFunc
	writev   WritevFunc
	send     SendFunc
	sendto   SendtoFunc
	sendmsg  SendmsgFunc
}

// symbolTable resolves the originals at most once.
//
// The table is either unpublished (nil) or complete. Callers load it
// without locking, and only fall back to the mutex when it is still nil.
type symbolTable struct {
	table    atomic.Pointer[originals]
	resolver Resolver
	mu       sync.Mutex
	done     bool
}

// load returns the resolved table, resolving it on first use. The fatal
// function is called (and must not return) if resolution fails.
func (x *symbolTable) load(fatal func(err *ResolutionError)) *originals {
	if t := x.table.Load(); t != nil {
		return t
	}
	return x.resolve(fatal)
}

func (x *symbolTable) resolve(fatal func(err *ResolutionError)) *originals {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.done {
		return x.table.Load()
	}

	t, err := resolveOriginals(x.resolver)
	if err != nil {
		fatal(err)
		// fatal must not return, but never degrade if it does
		panic(err)
	}

	x.table.Store(t)
	x.done = true

	return t
}

func resolveOriginals(r Resolver) (*originals, *ResolutionError) {
	if r == nil {
		return nil, &ResolutionError{Op: OpSleep, Err: ErrSymbolNotFound}
	}

	var t originals
	for _, op := range Ops() {
		v, err := r.Lookup(op)
		if err != nil {
			return nil, &ResolutionError{Op: op, Err: err}
		}
		if v == nil {
			return nil, &ResolutionError{Op: op, Err: ErrSymbolNotFound}
		}

		var ok bool
		switch op {
		case OpSleep:
			ok = bind(&t.sleep, v)
		case OpPipe:
			ok = bind(&t.pipe, v)
		case OpPipe2:
			ok = bind(&t.pipe2, v)
		case OpPopen:
			ok = bind(&t.popen, v)
		case OpPclose:
			ok = bind(&t.pclose, v)
		case OpClose:
			ok = bind(&t.close, v)
		case OpRead:
			ok = bind(&t.read, v)
		case OpReadv:
			ok = bind(&t.readv, v)
		case OpRecv:
			ok = bind(&t.recv, v)
		case OpRecvfrom:
			ok = bind(&t.recvfrom, v)
		case OpRecvmsg:
			ok = bind(&t.recvmsg, v)
		case OpWrite:
			ok = bind(&t.write, v)
		case OpWritev:
			ok = bind(&t.writev, v)
		case OpSend:
			ok = bind(&t.send, v)
		case OpSendto:
			ok = bind(&t.sendto, v)
		case OpSendmsg:
			ok = bind(&t.sendmsg, v)
		}
		if !ok {
			return nil, &ResolutionError{Op: op, Err: fmt.Errorf(`%w: unexpected type %T`, ErrSymbolNotFound, v)}
		}
	}

	return &t, nil
}

// bind assigns v to dst if it is a non-nil function of the right type.
func bind[F any](dst *F, v any) bool {
	f, ok := v.(F)
	if !ok {
		return false
	}
	// typed nil functions are not found, either
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Func && rv.IsNil() {
		return false
	}
	*dst = f
	return true
}
