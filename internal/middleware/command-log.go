package middleware

import (
	"context"
	"time"

	"go.uber.org/zap"

	"relaybot/internal/metrics"
	"relaybot/pkg/cmd"
)

// WithCommandLogger wraps a command to log its execution
func WithCommandLogger(log *zap.Logger) cmd.Middleware {
	if log == nil {
		log = zap.NewNop()
	}
	return func(c cmd.Command) cmd.Command {
		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) (string, error) {
			start := time.Now()
			out, err := c.Run(ctx, inv)

			fields := []zap.Field{
				zap.String("command", c.Name()),
				zap.String("nick", inv.Get("nick")),
				zap.String("channel", inv.Get("channel")),
				zap.Duration("took", time.Since(start)),
			}
			if err != nil {
				log.Warn("command failed", append(fields, zap.Error(err))...)
				return out, err
			}
			log.Debug("command executed", fields...)
			return out, nil
		})
	}
}

// WithMetrics records the outcome and duration of each run.
func WithMetrics(m *metrics.Metrics) cmd.Middleware {
	return func(c cmd.Command) cmd.Command {
		if m == nil {
			return c
		}
		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) (string, error) {
			start := time.Now()
			out, err := c.Run(ctx, inv)
			outcome := "ok"
			if err != nil {
				outcome = "failed"
			}
			m.ObserveCommand(c.Name(), outcome, time.Since(start))
			return out, err
		})
	}
}
