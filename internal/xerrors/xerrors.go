package xerrors

import (
	"errors"
	"fmt"
	"runtime"
)

// withStack carries the full call stack from the point the error entered
// our code. The log package renders it for error-level records.
type withStack struct {
	err error
	pcs []uintptr
}

func (w *withStack) Error() string       { return w.err.Error() }
func (w *withStack) Unwrap() error       { return w.err }
func (w *withStack) StackPCs() []uintptr { return w.pcs }

func captureStack(skip int) []uintptr {
	const maxDepth = 64
	pcs := make([]uintptr, maxDepth)
	// 2 skips runtime.Callers + captureStack
	n := runtime.Callers(2+skip, pcs)
	return pcs[:n]
}

func stacked(err error, skip int) error {
	if err == nil {
		return nil
	}
	return &withStack{err: err, pcs: captureStack(skip)}
}

// WithStack wraps err with the current call stack.
func WithStack(err error) error { return stacked(err, 2) }

// EnsureTrace wraps err with a stack only if no wrapper in the chain
// already carries one.
func EnsureTrace(err error) error {
	if err == nil {
		return nil
	}
	type hasStack interface{ StackPCs() []uintptr }
	var hs hasStack
	if errors.As(err, &hs) && hs != nil && len(hs.StackPCs()) > 0 {
		return err
	}
	return stacked(err, 2)
}

// wrap annotates err with a message, preserving the chain for errors.Is/As.
type wrap struct {
	err error
	msg string
}

func (w *wrap) Error() string { return w.msg + ": " + w.err.Error() }
func (w *wrap) Unwrap() error { return w.err }

func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return &wrap{err: err, msg: msg}
}

func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &wrap{err: err, msg: fmt.Sprintf(format, args...)}
}

func New(msg string) error             { return stacked(errors.New(msg), 2) }
func Newf(f string, args ...any) error { return stacked(fmt.Errorf(f, args...), 2) }
