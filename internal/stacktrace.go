package internal

import (
	"fmt"
	"path"
	"runtime"
)

// StackTrace is a stack trace.
type StackTrace struct {
	callers []uintptr
}

// GetStackTrace returns a new StackTrace.
func GetStackTrace(skipFrames int) *StackTrace {
	st := &StackTrace{}

	skip := 2 // skips runtime.Callers and this function
	skip += skipFrames

	st.callers = make([]uintptr, maxStackTraceFrames)
	written := runtime.Callers(skip, st.callers)
	st.callers = st.callers[0:written]

	return st
}

func pcToFunc(pc uintptr) (*runtime.Func, uintptr) {
	// The Golang runtime package documentation says "To look up the file
	// and line number of the call itself, use pc[i]-1. As an exception to
	// this rule, if pc[i-1] corresponds to the function runtime.sigpanic,
	// then pc[i] is the program counter of a faulting instruction and
	// should be used without any subtraction."
	place := pc - 1
	return runtime.FuncForPC(place), place
}

// FrameStrings returns one string per stack frame in the format expected by
// the collector.
func (st *StackTrace) FrameStrings() []string {
	if nil == st || 0 == len(st.callers) {
		return nil
	}

	lines := make([]string, 0, len(st.callers))
	for _, pc := range st.callers {
		f, place := pcToFunc(pc)
		str := "unknown"
		if nil != f {
			// Format designed to match the Ruby agent.
			name := path.Base(f.Name())
			file, line := f.FileLine(place)
			str = fmt.Sprintf("%s:%d:in `%s'", file, line, name)
		}
		lines = append(lines, str)
	}
	return lines
}
