package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"relaybot/internal/discord"
	"relaybot/internal/irc"
	"relaybot/internal/plugin"
	"relaybot/internal/version"
	"relaybot/pkg/cmd"
	"relaybot/pkg/jobmgr"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Connect to the configured networks and answer commands",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(c *cobra.Command, _ []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger.Info("starting", zap.String("app", version.AppName), zap.String("version", version.Version))

	ctx, stop := signal.NotifyContext(c.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	jm := jobmgr.NewManager(func(status string) {
		logger.Info("job", zap.String("status", status))
	})
	jobs := jobsPlugin(jm)

	if cfg.IRC.Enabled() {
		relay := irc.New(irc.Config{
			Network:  cfg.Network,
			Server:   cfg.IRC.Server,
			TLS:      cfg.IRC.TLS,
			Nick:     cfg.IRC.Nick,
			User:     cfg.IRC.User,
			Name:     cfg.IRC.Name,
			Pass:     cfg.IRC.Pass,
			Channels: cfg.IRC.Channels,
		}, logger, cfg.SendRate)
		rt, err := a.router(relay, jobs)
		if err != nil {
			return err
		}
		if err := jm.StartAsync(ctx, "irc", func(ctx context.Context) error {
			return relay.Run(ctx, rt)
		}); err != nil {
			return err
		}
	}

	if cfg.Discord.Enabled() {
		relay := discord.New(cfg.Discord.Token, "discord", logger, cfg.SendRate)
		rt, err := a.router(relay, jobs)
		if err != nil {
			return err
		}
		if err := jm.StartAsync(ctx, "discord", func(ctx context.Context) error {
			return relay.Run(ctx, rt)
		}); err != nil {
			return err
		}
	}

	if cfg.MetricsAddr != "" {
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: metricsMux(a), ReadHeaderTimeout: 5 * time.Second}
		_ = jm.StartAsync(ctx, "metrics", func(ctx context.Context) error {
			go func() {
				<-ctx.Done()
				shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdown)
			}()
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	<-ctx.Done()
	logger.Info("shutdown signal received, cleaning up")
	jm.StopAll()
	return jm.Wait()
}

func metricsMux(a *app) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler())
	return mux
}

// jobsPlugin exposes the running relays in chat.
func jobsPlugin(jm *jobmgr.Manager) plugin.Plugin {
	return plugin.New("Jobs",
		cmd.New(func(context.Context, *cmd.Invocation) (string, error) {
			return jm.Status(), nil
		},
			cmd.WithName("jobs"),
			cmd.WithUsage("jobs"),
			cmd.WithDescription("Lists the running network connections"),
		),
	)
}
