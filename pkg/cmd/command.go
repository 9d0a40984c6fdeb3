package cmd

import (
	"context"
	"reflect"
	"runtime"
	"strings"
	"unicode"
	"unicode/utf8"
)

// HandlerFunc is the plain function shape every command wraps.
type HandlerFunc func(ctx context.Context, inv *Invocation) (string, error)

// Command is the universal contract: identity, help metadata and execution.
type Command interface {
	Name() string
	Usage() string
	Description() string
	Example() string
	Run(ctx context.Context, inv *Invocation) (string, error)
}

// Descriptor is the metadata of a command without its handler.
type Descriptor struct {
	Name        string
	Usage       string
	Description string
	Example     string
}

// Describe returns the metadata of c.
func Describe(c Command) Descriptor {
	return Descriptor{
		Name:        c.Name(),
		Usage:       c.Usage(),
		Description: c.Description(),
		Example:     c.Example(),
	}
}

// Option sets one metadata field on a command built with New.
type Option func(*funcCommand)

// WithName overrides the name derived from the handler identifier.
func WithName(name string) Option {
	return func(c *funcCommand) { c.desc.Name = name }
}

// WithUsage sets the usage line shown by help.
func WithUsage(usage string) Option {
	return func(c *funcCommand) { c.desc.Usage = usage }
}

// WithDescription sets the one-line description shown by help.
func WithDescription(description string) Option {
	return func(c *funcCommand) { c.desc.Description = description }
}

// WithExample sets the example shown by help.
func WithExample(example string) Option {
	return func(c *funcCommand) { c.desc.Example = example }
}

type funcCommand struct {
	desc Descriptor
	fn   HandlerFunc
}

func (c *funcCommand) Name() string        { return c.desc.Name }
func (c *funcCommand) Usage() string       { return c.desc.Usage }
func (c *funcCommand) Description() string { return c.desc.Description }
func (c *funcCommand) Example() string     { return c.desc.Example }

func (c *funcCommand) Run(ctx context.Context, inv *Invocation) (string, error) {
	return c.fn(ctx, inv)
}

// New decorates fn with command metadata and makes it discoverable. Without
// WithName the name is derived from the handler's identifier, so a method
// value b.ping becomes "ping".
func New(fn HandlerFunc, opts ...Option) Command {
	c := &funcCommand{fn: fn}
	c.desc.Name = nameOf(fn)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IsCommand reports whether x carries command metadata.
func IsCommand(x any) bool {
	_, ok := x.(Command)
	return ok
}

func nameOf(fn HandlerFunc) string {
	if fn == nil {
		return ""
	}
	f := runtime.FuncForPC(reflect.ValueOf(fn).Pointer())
	if f == nil {
		return ""
	}
	name := strings.TrimSuffix(f.Name(), "-fm")
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	r, size := utf8.DecodeRuneInString(name)
	if r == utf8.RuneError {
		return ""
	}
	return string(unicode.ToLower(r)) + name[size:]
}
