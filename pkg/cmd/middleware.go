package cmd

import (
	"context"
	"fmt"
)

// Middleware wraps a command (e.g. logging, panic recovery, metrics).
// The wrapped type remains Command.
type Middleware func(Command) Command

// Apply applies middlewares in order; the last in the list is the outermost.
func Apply(c Command, mws ...Middleware) Command {
	for _, mw := range mws {
		c = mw(c)
	}
	return c
}

// PanicError is returned by a command wrapped with WithRecover when the
// handler panicked.
type PanicError struct {
	Command string
	Value   any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("command %s panicked: %v", e.Command, e.Value)
}

// WithRecover turns a handler panic into a *PanicError so a single failing
// command never takes down the caller.
func WithRecover() Middleware {
	return func(c Command) Command {
		return Wrap(c, func(ctx context.Context, inv *Invocation) (out string, err error) {
			defer func() {
				if v := recover(); v != nil {
					out, err = "", &PanicError{Command: c.Name(), Value: v}
				}
			}()
			return c.Run(ctx, inv)
		})
	}
}
