package pkernel

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/joeycumines/logiface"
)

// kernelEvent is the minimal logiface.Event implementation the kernel
// writes its structured log lines through. It follows the shape of the
// teacher package's own test fixture (coverage_extra_test.go's testEvent):
// only Level and AddField are mandatory, and only the handful of optional
// methods the kernel actually calls (AddString, AddInt, AddError,
// AddMessage) are implemented beyond that.
type kernelEvent struct {
	logiface.UnimplementedEvent
	level  logiface.Level
	fields []kernelField
	msg    string
	err    error
}

type kernelField struct {
	key string
	val any
}

func (e *kernelEvent) Level() logiface.Level { return e.level }

func (e *kernelEvent) AddField(key string, val any) {
	e.fields = append(e.fields, kernelField{key, val})
}

func (e *kernelEvent) AddString(key string, val string) bool {
	e.AddField(key, val)
	return true
}

func (e *kernelEvent) AddInt(key string, val int) bool {
	e.AddField(key, val)
	return true
}

func (e *kernelEvent) AddMessage(msg string) bool {
	e.msg = msg
	return true
}

func (e *kernelEvent) AddError(err error) bool {
	e.err = err
	return true
}

func (e *kernelEvent) reset() {
	e.level = logiface.LevelDisabled
	e.fields = e.fields[:0]
	e.msg = ""
	e.err = nil
}

var kernelEventPool = sync.Pool{New: func() any { return new(kernelEvent) }}

type kernelEventFactory struct{}

func (kernelEventFactory) NewEvent(level logiface.Level) *kernelEvent {
	e := kernelEventPool.Get().(*kernelEvent)
	e.level = level
	return e
}

func (kernelEventFactory) ReleaseEvent(e *kernelEvent) {
	e.reset()
	kernelEventPool.Put(e)
}

// kernelEventWriter renders a kernelEvent as a single line of
// space-separated key=value pairs, in the vein of the line format other
// examples in the corpus (e.g. logfmt-style loggers) produce, without
// taking on a logfmt dependency for a handful of fields.
type kernelEventWriter struct {
	mu  sync.Mutex
	out io.Writer
}

func (w *kernelEventWriter) Write(e *kernelEvent) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := fmt.Fprintf(w.out, "level=%s", e.level); err != nil {
		return err
	}
	if e.msg != "" {
		if _, err := fmt.Fprintf(w.out, " msg=%q", e.msg); err != nil {
			return err
		}
	}
	if e.err != nil {
		if _, err := fmt.Fprintf(w.out, " err=%q", e.err.Error()); err != nil {
			return err
		}
	}
	for _, f := range e.fields {
		if _, err := fmt.Fprintf(w.out, " %s=%v", f.key, f.val); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w.out)
	return err
}

// NewLogger builds a logiface logger that writes one line per event to
// out, at minLevel and above.
func NewLogger(out io.Writer, minLevel logiface.Level) *logiface.Logger[logiface.Event] {
	typed := logiface.New[*kernelEvent](
		logiface.WithEventFactory[*kernelEvent](kernelEventFactory{}),
		logiface.WithWriter[*kernelEvent](&kernelEventWriter{out: out}),
		logiface.WithLevel[*kernelEvent](minLevel),
	)
	return typed.Logger()
}

// NewDiscardLogger builds a logger at LevelDisabled, used as the Boot
// default when no WithLogger option is supplied.
func NewDiscardLogger() *logiface.Logger[logiface.Event] {
	return NewLogger(os.Stderr, logiface.LevelDisabled)
}
