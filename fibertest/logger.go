package fibertest

import (
	"sync"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// LogBuffer collects JSON log lines, for assertions.
type LogBuffer struct {
	lines []string
	mu    sync.Mutex
}

// Write implements io.Writer, one call per event.
func (x *LogBuffer) Write(p []byte) (int, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.lines = append(x.lines, string(p))
	return len(p), nil
}

// Lines returns every line written so far.
func (x *LogBuffer) Lines() []string {
	x.mu.Lock()
	defer x.mu.Unlock()
	return append([]string(nil), x.lines...)
}

// Logger returns a logger writing every level to x, without timestamps.
func (x *LogBuffer) Logger() *logiface.Logger[logiface.Event] {
	return stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(x)),
		stumpy.L.WithLevel(logiface.LevelTrace),
	).Logger()
}
