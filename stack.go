package crashkit

import (
	"errors"
	"fmt"
	"runtime"
)

// Frame describes a single call site in a captured trace.
type Frame struct {
	Function string
	File     string
	Line     int
}

// String renders the frame as "function file:line", the form used both in
// diagnostic output and in backtrace payloads.
func (f Frame) String() string {
	return fmt.Sprintf("%s %s:%d", f.Function, f.File, f.Line)
}

// Stack is an ordered trace from the capture site outward.
type Stack []Frame

// Strings renders every frame for the backtrace payload entry.
func (s Stack) Strings() []string {
	if len(s) == 0 {
		return nil
	}
	out := make([]string, len(s))
	for i, f := range s {
		out[i] = f.String()
	}
	return out
}

// StackCarrier is implemented by error values that captured a trace at
// construction. Diagnostic rendering discovers it through the error chain.
type StackCarrier interface {
	Stack() Stack
}

// stackOf returns the trace carried by err, or nil when no error in the
// chain captured one.
func stackOf(err error) Stack {
	var carrier StackCarrier
	if errors.As(err, &carrier) {
		return carrier.Stack()
	}
	return nil
}

// maxStackDepth bounds capture work on exceptional paths.
const maxStackDepth = 64

// captureStack records up to maxStackDepth frames. skip counts frames above
// captureStack itself: 0 records the immediate caller first. Frames are
// resolved through runtime.CallersFrames so inlined calls expand correctly.
func captureStack(skip int) Stack {
	pcs := make([]uintptr, maxStackDepth)
	// +2 skips runtime.Callers and captureStack.
	n := runtime.Callers(skip+2, pcs)
	if n == 0 {
		return nil
	}
	frames := runtime.CallersFrames(pcs[:n])
	st := make(Stack, 0, n)
	for {
		fr, more := frames.Next()
		st = append(st, Frame{Function: fr.Function, File: fr.File, Line: fr.Line})
		if !more {
			break
		}
	}
	return st
}
