// Package router turns raw chat lines into chained sub-commands, resolves them
// against the active plugins and collects the replies.
package router

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"relaybot/internal/metrics"
	"relaybot/internal/middleware"
	"relaybot/internal/plugin"
	"relaybot/pkg/cmd"
)

// PluginName is the name the router registers itself under.
const PluginName = "Router"

// Host is what the router needs from the chat network it serves.
type Host interface {
	// Network identifies the network; copied into every event.
	Network() string
	// CurrentNick is the bot's nickname, used for "nick: command" addressing.
	CurrentNick() string
}

// Settings is the persisted per-instance key/value store.
type Settings interface {
	Get(key string) (string, bool)
	Set(key, value string) error
}

// StaticHost is a Host with fixed values.
type StaticHost struct {
	NetworkName string
	Nick        string
}

func (h StaticHost) Network() string     { return h.NetworkName }
func (h StaticHost) CurrentNick() string { return h.Nick }

// Router is the command pipeline engine. It is also a plugin exposing the
// introspection commands help, which and commands.
type Router struct {
	plugins     *plugin.Registry
	commands    *cmd.Registry
	host        Host
	settings    Settings
	log         *zap.Logger
	metrics     *metrics.Metrics
	middlewares []cmd.Middleware
}

// Option configures a Router.
type Option func(*Router)

// WithHost sets the host collaborator.
func WithHost(h Host) Option {
	return func(r *Router) { r.host = h }
}

// WithSettings sets the persisted settings used for the control character.
func WithSettings(s Settings) Option {
	return func(r *Router) { r.settings = s }
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(r *Router) { r.log = log }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Router) { r.metrics = m }
}

// WithMiddleware replaces the default middleware chain. The chain must include
// cmd.WithRecover for panics to be reported as failures.
func WithMiddleware(mws ...cmd.Middleware) Option {
	return func(r *Router) { r.middlewares = mws }
}

// New builds a router over plugins and registers the built-in plugins:
// the router itself, Ping and Utils.
func New(plugins *plugin.Registry, opts ...Option) *Router {
	r := &Router{plugins: plugins, host: StaticHost{}}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = zap.NewNop()
	}
	r.log = r.log.Named("router")
	if r.middlewares == nil {
		r.middlewares = middleware.Default(r.log, r.metrics)
	}

	r.commands = cmd.NewRegistry(
		cmd.New(r.help,
			cmd.WithUsage("help [command]"),
			cmd.WithDescription("Lists every command, or shows help for one"),
			cmd.WithExample("help echo"),
		),
		cmd.New(r.which,
			cmd.WithUsage("which <command>"),
			cmd.WithDescription("Shows which plugin provides a command"),
			cmd.WithExample("which ping"),
		),
		cmd.New(r.pluginCommands,
			cmd.WithName("commands"),
			cmd.WithUsage("commands <plugin>"),
			cmd.WithDescription("Lists the commands of a plugin"),
			cmd.WithExample("commands Utils"),
		),
	)

	plugins.Register(plugin.ScopeBuiltin, r)
	plugins.Register(plugin.ScopeBuiltin, Ping())
	plugins.Register(plugin.ScopeBuiltin, Utils())
	return r
}

// Name implements plugin.Plugin.
func (r *Router) Name() string { return PluginName }

// ListCommands implements cmd.CommandProvider.
func (r *Router) ListCommands() []cmd.Descriptor { return r.commands.ListCommands() }

// Invoke implements cmd.CommandProvider.
func (r *Router) Invoke(ctx context.Context, name string, inv *cmd.Invocation) (string, error) {
	return r.commands.Invoke(ctx, name, inv)
}

// Plugins returns the registry the router resolves against.
func (r *Router) Plugins() *plugin.Registry { return r.plugins }

// resolved adapts a plugin command to cmd.Command so middlewares can wrap it.
type resolved struct {
	plugin.Resolution
}

func (c resolved) Name() string        { return c.Command.Name }
func (c resolved) Usage() string       { return c.Command.Usage }
func (c resolved) Description() string { return c.Command.Description }
func (c resolved) Example() string     { return c.Command.Example }

func (c resolved) Run(ctx context.Context, inv *cmd.Invocation) (string, error) {
	out, err := c.Plugin.Invoke(ctx, c.Command.Name, inv)
	if err != nil {
		return "", fmt.Errorf("%s.%s: %w", c.Plugin.Name(), c.Command.Name, err)
	}
	return out, nil
}
