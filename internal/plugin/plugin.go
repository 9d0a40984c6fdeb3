// Package plugin resolves command names against the set of active plugins.
package plugin

import (
	"relaybot/pkg/cmd"
)

// Plugin is a named command provider. Name is the plugin's type name as shown
// by the which and commands built-ins.
type Plugin interface {
	Name() string
	cmd.CommandProvider
}

// Set is a plugin backed by a cmd.Registry.
type Set struct {
	name string
	*cmd.Registry
}

// New returns a plugin called name that exposes cmds.
func New(name string, cmds ...cmd.Command) *Set {
	return &Set{name: name, Registry: cmd.NewRegistry(cmds...)}
}

// Name implements Plugin.
func (s *Set) Name() string { return s.name }
