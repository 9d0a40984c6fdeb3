package cmd

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownCommand is returned by Invoke when no command has the given name.
var ErrUnknownCommand = errors.New("unknown command")

// CommandProvider is the capability a plugin exposes: enumerate its commands
// and run one of them by name.
type CommandProvider interface {
	ListCommands() []Descriptor
	Invoke(ctx context.Context, name string, inv *Invocation) (string, error)
}

// Registry stores commands by name. It does not parse chat lines; the router
// looks commands up through the CommandProvider methods.
type Registry struct {
	commands map[string]Command
}

// NewRegistry returns a registry holding cmds.
func NewRegistry(cmds ...Command) *Registry {
	r := &Registry{commands: make(map[string]Command, len(cmds))}
	for _, c := range cmds {
		r.Register(c)
	}
	return r
}

// Register adds a command, replacing any command with the same name.
func (r *Registry) Register(c Command) {
	r.commands[c.Name()] = c
}

// Get returns the command with the given name, or nil.
func (r *Registry) Get(name string) Command {
	return r.commands[name]
}

// All returns all registered commands, sorted by name.
func (r *Registry) All() []Command {
	list := make([]Command, 0, len(r.commands))
	for _, c := range r.commands {
		list = append(list, c)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].Name() < list[j].Name()
	})
	return list
}

// Names returns the sorted command names.
func (r *Registry) Names() []string {
	all := r.All()
	names := make([]string, len(all))
	for i, c := range all {
		names[i] = c.Name()
	}
	return names
}

// Len returns the number of registered commands.
func (r *Registry) Len() int { return len(r.commands) }

// ListCommands implements CommandProvider.
func (r *Registry) ListCommands() []Descriptor {
	all := r.All()
	out := make([]Descriptor, len(all))
	for i, c := range all {
		out[i] = Describe(c)
	}
	return out
}

// Invoke implements CommandProvider.
func (r *Registry) Invoke(ctx context.Context, name string, inv *Invocation) (string, error) {
	c := r.Get(name)
	if c == nil {
		return "", fmt.Errorf("%s: %w", name, ErrUnknownCommand)
	}
	return c.Run(ctx, inv)
}
