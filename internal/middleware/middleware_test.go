package middleware

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"relaybot/internal/metrics"
	"relaybot/pkg/cmd"
)

func TestCommandLoggerRecordsFailures(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	failing := cmd.New(func(context.Context, *cmd.Invocation) (string, error) {
		return "", errors.New("boom")
	}, cmd.WithName("fail"))

	_, err := cmd.Apply(failing, WithCommandLogger(zap.New(core))).Run(context.Background(), &cmd.Invocation{})
	require.Error(t, err)

	entries := logs.FilterMessage("command failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "fail", entries[0].ContextMap()["command"])
}

func TestDefaultChainRecoversAndCounts(t *testing.T) {
	m := metrics.New()
	panicky := cmd.New(func(context.Context, *cmd.Invocation) (string, error) {
		panic("nope")
	}, cmd.WithName("panicky"))
	ok := cmd.New(func(context.Context, *cmd.Invocation) (string, error) {
		return "fine", nil
	}, cmd.WithName("ok"))

	_, err := cmd.Apply(panicky, Default(zap.NewNop(), m)...).Run(context.Background(), &cmd.Invocation{})
	var pe *cmd.PanicError
	assert.ErrorAs(t, err, &pe)

	out, err := cmd.Apply(ok, Default(nil, m)...).Run(context.Background(), &cmd.Invocation{})
	require.NoError(t, err)
	assert.Equal(t, "fine", out)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Commands.WithLabelValues("panicky", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Commands.WithLabelValues("ok", "ok")))
}

func TestWithMetricsNilIsIdentity(t *testing.T) {
	c := cmd.New(func(context.Context, *cmd.Invocation) (string, error) { return "", nil }, cmd.WithName("x"))
	assert.Same(t, c, WithMetrics(nil)(c))
}
