package cmd

import "context"

// Unwrappable is implemented by wrapped commands so callers can reach the
// underlying command.
type Unwrappable interface {
	Command
	Unwrap() Command
}

// Wrapped wraps a command with a custom Run. Used by middleware. The inner
// command is exposed via Unwrap().
type Wrapped struct {
	Inner   Command
	RunFunc HandlerFunc
}

func (w *Wrapped) Name() string        { return w.Inner.Name() }
func (w *Wrapped) Usage() string       { return w.Inner.Usage() }
func (w *Wrapped) Description() string { return w.Inner.Description() }
func (w *Wrapped) Example() string     { return w.Inner.Example() }

// Run runs the wrapper's RunFunc.
func (w *Wrapped) Run(ctx context.Context, inv *Invocation) (string, error) {
	if w.RunFunc != nil {
		return w.RunFunc(ctx, inv)
	}
	return w.Inner.Run(ctx, inv)
}

// Unwrap returns the inner command.
func (w *Wrapped) Unwrap() Command { return w.Inner }

// Wrap returns a command that runs run instead of c.Run, delegating metadata to c.
func Wrap(c Command, run HandlerFunc) Command {
	return &Wrapped{Inner: c, RunFunc: run}
}

// Root unwraps a command until the underlying command is not Unwrappable.
func Root(c Command) Command {
	for {
		u, ok := c.(Unwrappable)
		if !ok {
			return c
		}
		c = u.Unwrap()
	}
}
