package plugin

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"relaybot/pkg/cmd"
)

// ResponderFile is the YAML layout of a responders file:
//
//	plugins:
//	  - name: Greetings
//	    scope: network
//	    commands:
//	      - name: hi
//	        usage: hi <name>
//	        description: Greets someone
//	        example: .hi bob
//	        reply: "hi {args}, from {nick}"
type ResponderFile struct {
	Plugins []ResponderSpec `yaml:"plugins"`
}

// ResponderSpec describes one plugin of canned replies.
type ResponderSpec struct {
	Name     string          `yaml:"name"`
	Scope    string          `yaml:"scope"`
	Commands []ResponseEntry `yaml:"commands"`
}

// ResponseEntry is one canned reply. Reply may reference {args}, {nick},
// {channel} and {network}.
type ResponseEntry struct {
	Name        string `yaml:"name"`
	Usage       string `yaml:"usage"`
	Description string `yaml:"description"`
	Example     string `yaml:"example"`
	Reply       string `yaml:"reply"`
}

// Responders is a loaded responder plugin together with the scope it asked for.
type Responders struct {
	*Set
	Scope Scope
}

// LoadFile reads responder plugins from a YAML file.
func LoadFile(path string) ([]Responders, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open responders: %w", err)
	}
	defer f.Close()
	return LoadResponders(f)
}

// LoadResponders decodes responder plugins from r.
func LoadResponders(r io.Reader) ([]Responders, error) {
	var file ResponderFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("decode responders: %w", err)
	}

	out := make([]Responders, 0, len(file.Plugins))
	for i, spec := range file.Plugins {
		if spec.Name == "" {
			return nil, fmt.Errorf("responder plugin %d: missing name", i)
		}
		scope, err := ParseScope(spec.Scope)
		if err != nil {
			return nil, fmt.Errorf("responder plugin %s: %w", spec.Name, err)
		}

		cmds := make([]cmd.Command, 0, len(spec.Commands))
		for _, entry := range spec.Commands {
			if entry.Name == "" {
				return nil, fmt.Errorf("responder plugin %s: command without name", spec.Name)
			}
			cmds = append(cmds, cmd.New(reply(entry.Reply),
				cmd.WithName(entry.Name),
				cmd.WithUsage(entry.Usage),
				cmd.WithDescription(entry.Description),
				cmd.WithExample(entry.Example),
			))
		}
		out = append(out, Responders{Set: New(spec.Name, cmds...), Scope: scope})
	}
	return out, nil
}

func reply(template string) cmd.HandlerFunc {
	return func(_ context.Context, inv *cmd.Invocation) (string, error) {
		r := strings.NewReplacer(
			"{args}", inv.Args,
			"{nick}", inv.Get("nick"),
			"{channel}", inv.Get("channel"),
			"{network}", inv.Get("network"),
		)
		return r.Replace(template), nil
	}
}
