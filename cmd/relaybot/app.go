package main

import (
	"fmt"

	"go.uber.org/zap"

	"relaybot/internal/config"
	"relaybot/internal/httpsock"
	"relaybot/internal/metrics"
	"relaybot/internal/plugin"
	"relaybot/internal/router"
	"relaybot/internal/storage"
	"relaybot/internal/web"
)

// app holds what every network's router shares.
type app struct {
	cfg        *config.Config
	log        *zap.Logger
	store      *storage.Storage
	metrics    *metrics.Metrics
	web        *httpsock.Client
	responders []plugin.Responders
}

func newApp(cfg *config.Config, log *zap.Logger) (*app, error) {
	store, err := storage.New(cfg.StoragePath, log)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		log:     log,
		store:   store,
		metrics: metrics.New(),
	}
	// chat users choose the URLs fetched by this client
	a.web = httpsock.NewClient(log, a.metrics)
	a.web.Timeout = cfg.HTTPTimeout
	if !cfg.WebAllowPrivate {
		a.web.Control = httpsock.PublicOnly
	}

	if cfg.PluginsFile != "" {
		a.responders, err = plugin.LoadFile(cfg.PluginsFile)
		if err != nil {
			store.Close()
			return nil, err
		}
		log.Info("loaded responder plugins", zap.String("file", cfg.PluginsFile), zap.Int("plugins", len(a.responders)))
	}
	return a, nil
}

// router builds the plugin set and router for one network. extra plugins
// are registered at user scope.
func (a *app) router(host router.Host, extra ...plugin.Plugin) (*router.Router, error) {
	reg := plugin.NewRegistry()
	for _, r := range a.responders {
		reg.Register(r.Scope, r)
	}
	reg.Register(plugin.ScopeUser, web.Plugin(a.web))
	for _, p := range extra {
		reg.Register(plugin.ScopeUser, p)
	}

	rt := router.New(reg,
		router.WithHost(host),
		router.WithSettings(a.store.For(host.Network())),
		router.WithLogger(a.log.With(zap.String("network", host.Network()))),
		router.WithMetrics(a.metrics),
	)
	if err := rt.OnLoad(); err != nil {
		return nil, fmt.Errorf("load router for %s: %w", host.Network(), err)
	}
	return rt, nil
}

func (a *app) Close() error {
	return a.store.Close()
}
