// Package middleware holds the cmd.Middleware set the router wraps around
// every resolved command.
package middleware

import (
	"go.uber.org/zap"

	"relaybot/internal/metrics"
	"relaybot/pkg/cmd"
)

// Default returns the standard chain: panic recovery innermost, then metrics,
// then logging outermost.
func Default(log *zap.Logger, m *metrics.Metrics) []cmd.Middleware {
	return []cmd.Middleware{
		cmd.WithRecover(),
		WithMetrics(m),
		WithCommandLogger(log),
	}
}
