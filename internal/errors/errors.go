// Package errors carries the context-rich error type used by the I/O edges of
// the solver: instance parsing, report export, run storage and the HTTP
// service. Sentinels survive wrapping; Is and As defer to the standard library.
package errors

import (
	stderrors "errors"
	"fmt"
	"runtime"
	"strings"
)

// Sentinels shared by the adapters.
var (
	// ErrNotFound is returned when a run or file does not exist.
	ErrNotFound = stderrors.New("not found")
	// ErrMalformed is returned for unparseable input.
	ErrMalformed = stderrors.New("malformed input")
	// ErrUnsupported is returned for well-formed input the solver cannot handle.
	ErrUnsupported = stderrors.New("unsupported")
	// ErrConflict is returned when a request clashes with a run's state.
	ErrConflict = stderrors.New("conflict")
)

// Error is an adapter failure tagged with where it happened.
type Error struct {
	Err       error
	Message   string
	Operation string
	Component string
	// Stack holds "function\n\tfile:line" frames outside this package.
	Stack []string
}

// Error renders "component.operation: message: cause", skipping empty parts.
func (e *Error) Error() string {
	var b strings.Builder
	switch {
	case e.Component != "" && e.Operation != "":
		b.WriteString(e.Component + "." + e.Operation)
	case e.Component != "":
		b.WriteString(e.Component)
	case e.Operation != "":
		b.WriteString(e.Operation)
	}
	for _, part := range []string{e.Message, e.cause()} {
		if part == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString(": ")
		}
		b.WriteString(part)
	}
	return b.String()
}

func (e *Error) cause() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// WithOperation sets the operation and returns e for chaining.
func (e *Error) WithOperation(op string) *Error {
	e.Operation = op
	return e
}

// WithComponent sets the component and returns e for chaining.
func (e *Error) WithComponent(component string) *Error {
	e.Component = component
	return e
}

// E wraps a sentinel (or any error) with a formatted message and the
// component and operation it came from.
func E(component, op string, err error, format string, args ...interface{}) *Error {
	return &Error{
		Err:       err,
		Message:   fmt.Sprintf(format, args...),
		Operation: op,
		Component: component,
		Stack:     callers(),
	}
}

// Wrapf wraps err with a formatted message. A nil err yields nil; an *Error
// is annotated in place.
func Wrapf(err error, format string, args ...interface{}) *Error {
	if err == nil {
		return nil
	}
	e, ok := err.(*Error)
	if !ok {
		e = &Error{Err: err, Stack: callers()}
	}
	e.Message = fmt.Sprintf(format, args...)
	return e
}

// StackOf returns the stack captured by the first *Error in err's chain.
func StackOf(err error) []string {
	var e *Error
	if !As(err, &e) {
		return nil
	}
	return e.Stack
}

// callers skips runtime.Callers, callers and the constructor.
func callers() []string {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])
	if n == 0 {
		return nil
	}

	frames := runtime.CallersFrames(pcs[:n])
	stack := make([]string, 0, n)
	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "runtime/") && !strings.Contains(frame.File, "internal/errors") {
			stack = append(stack, fmt.Sprintf("%s\n\t%s:%d", frame.Function, frame.File, frame.Line))
		}
		if !more {
			break
		}
	}
	return stack
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return stderrors.As(err, target)
}
