package router

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"relaybot/internal/plugin"
	"relaybot/pkg/cmd"
)

// Ping is the built-in plugin answering ping.
func Ping() *plugin.Set {
	return plugin.New("Ping",
		cmd.New(ping,
			cmd.WithUsage("ping"),
			cmd.WithDescription("Checks that the bot is alive"),
		),
	)
}

// Utils is the built-in plugin with small text helpers.
func Utils() *plugin.Set {
	return plugin.New("Utils",
		cmd.New(echo,
			cmd.WithUsage("echo <text>"),
			cmd.WithDescription("Repeats text back"),
			cmd.WithExample("echo hello world"),
		),
		cmd.New(count,
			cmd.WithUsage("count <a,b,c>"),
			cmd.WithDescription("Counts comma separated items"),
			cmd.WithExample("count a,b,c"),
		),
	)
}

func ping(context.Context, *cmd.Invocation) (string, error) {
	return "pong", nil
}

func echo(_ context.Context, inv *cmd.Invocation) (string, error) {
	return inv.Args, nil
}

// count splits on commas, so an empty argument is one empty item.
func count(_ context.Context, inv *cmd.Invocation) (string, error) {
	return strconv.Itoa(len(strings.Split(inv.Args, ","))), nil
}

func (r *Router) help(_ context.Context, inv *cmd.Invocation) (string, error) {
	name := strings.TrimSpace(inv.Args)
	if name == "" {
		all := r.plugins.Commands()
		names := make([]string, len(all))
		for i, res := range all {
			names[i] = res.Command.Name
		}
		return strings.Join(names, ", "), nil
	}

	res, ok := r.plugins.FindCommand(name)
	if !ok {
		return fmt.Sprintf("%s: Command not found", name), nil
	}

	d := res.Command
	var page []string
	if d.Description != "" {
		page = append(page, fmt.Sprintf("%s: %s", d.Name, d.Description))
	}
	if d.Usage != "" {
		page = append(page, "Usage: "+d.Usage)
	}
	if d.Example != "" {
		page = append(page, "Example: "+d.Example)
	}
	if len(page) == 0 {
		return fmt.Sprintf("%s: No help available for this command", d.Name), nil
	}
	return strings.Join(page, "\n"), nil
}

func (r *Router) which(_ context.Context, inv *cmd.Invocation) (string, error) {
	name := strings.TrimSpace(inv.Args)
	if res, ok := r.plugins.FindCommand(name); ok {
		return res.Plugin.Name(), nil
	}
	return fmt.Sprintf("%s: Command not found", name), nil
}

func (r *Router) pluginCommands(_ context.Context, inv *cmd.Invocation) (string, error) {
	name := strings.TrimSpace(inv.Args)
	p, ok := r.plugins.FindPlugin(name)
	if !ok {
		return fmt.Sprintf("%s: Plugin not found", name), nil
	}

	descs := p.ListCommands()
	if len(descs) == 0 {
		return "This plugin does not have any commands.", nil
	}
	names := make([]string, len(descs))
	for i, d := range descs {
		names[i] = d.Name
	}
	return strings.Join(names, ", "), nil
}
