package router

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relaybot/internal/event"
	"relaybot/internal/metrics"
	"relaybot/internal/plugin"
	"relaybot/internal/storage"
	"relaybot/pkg/cmd"
)

type memSettings map[string]string

func (m memSettings) Get(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

func (m memSettings) Set(key, value string) error {
	m[key] = value
	return nil
}

func newRouter(t *testing.T, opts ...Option) *Router {
	t.Helper()
	opts = append([]Option{WithHost(StaticHost{NetworkName: "testnet", Nick: "relay"})}, opts...)
	return New(plugin.NewRegistry(), opts...)
}

func run(r *Router, line string) *event.Queue {
	return r.HandleCommand(context.Background(), Message{Sender: "alice", Channel: "#chan", Text: line})
}

func faulty() *plugin.Set {
	return plugin.New("Faulty",
		cmd.New(func(context.Context, *cmd.Invocation) (string, error) {
			return "", errors.New("broken")
		}, cmd.WithName("fail")),
		cmd.New(func(context.Context, *cmd.Invocation) (string, error) {
			panic("kaboom")
		}, cmd.WithName("explode")),
		cmd.New(func(context.Context, *cmd.Invocation) (string, error) {
			return "", nil
		}, cmd.WithName("bare")),
	)
}

func TestSingleCommand(t *testing.T) {
	r := newRouter(t)
	q := run(r, "echo hello world")

	assert.Equal(t, []string{"hello world"}, q.Messages())
	require.Len(t, q.Outcomes(), 1)
	assert.Equal(t, event.Succeeded, q.Outcomes()[0].Kind)
}

func TestPipelineShowsLastResult(t *testing.T) {
	r := newRouter(t)
	q := run(r, "echo a | echo b | count x,y")

	assert.Equal(t, []string{"2"}, q.Messages())
	for _, o := range q.Outcomes() {
		assert.Equal(t, event.Succeeded, o.Kind)
	}
	assert.Equal(t, 3, q.Len())
}

func TestStagesGetOwnArgs(t *testing.T) {
	r := newRouter(t)
	q := run(r, "echo first | echo")

	events := q.Events()
	require.Len(t, events, 2)
	assert.Equal(t, "first", events[0].Args())
	assert.Equal(t, "", events[1].Args())
	// the last stage produced an empty result, so nothing is shown
	assert.Empty(t, q.Messages())
}

func TestEscapedPipe(t *testing.T) {
	r := newRouter(t)
	q := run(r, `echo a \| b`)

	require.Equal(t, 1, q.Len())
	assert.Equal(t, []string{"a | b"}, q.Messages())
}

func TestEmptySegmentsSkipped(t *testing.T) {
	r := newRouter(t)
	q := run(r, " | echo x ||  ")

	assert.Equal(t, 1, q.Len())
	assert.Equal(t, []string{"x"}, q.Messages())
}

func TestRejectedSegmentAbortsLine(t *testing.T) {
	m := metrics.New()
	r := newRouter(t, WithMetrics(m))
	q := run(r, "echo a | !bad | echo c")

	assert.True(t, q.Aborted())
	assert.Equal(t, []string{ReplyRejected}, q.Messages())
	assert.Empty(t, q.Outcomes())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Lines.WithLabelValues("rejected")))
}

func TestParseReportsRejection(t *testing.T) {
	r := newRouter(t)
	base := event.New(event.NewQueue(), r)
	_, err := r.Parse(base, "-x")
	assert.ErrorIs(t, err, ErrRejected)
}

func TestUnicodeCommandStart(t *testing.T) {
	r := newRouter(t)
	q := run(r, "ßeta")

	assert.False(t, q.Aborted())
	assert.Equal(t, []string{"ßeta: Command not found."}, q.Messages())
}

func TestCommandNotFoundContinues(t *testing.T) {
	r := newRouter(t)
	q := run(r, "nope | echo x")

	assert.Equal(t, []string{"nope: Command not found.", "x"}, q.Messages())
	outcomes := q.Outcomes()
	require.Len(t, outcomes, 2)
	assert.Equal(t, event.NotFound, outcomes[0].Kind)
	assert.Equal(t, event.Succeeded, outcomes[1].Kind)
}

func TestFailuresAreIsolated(t *testing.T) {
	r := newRouter(t)
	r.Plugins().Register(plugin.ScopeUser, faulty())

	q := run(r, "fail | explode | echo ok")
	assert.Equal(t, []string{"fail: Failed to execute", "explode: Failed to execute", "ok"}, q.Messages())

	outcomes := q.Outcomes()
	require.Len(t, outcomes, 3)
	assert.Equal(t, event.Failed, outcomes[0].Kind)
	assert.Error(t, outcomes[0].Err)
	var pe *cmd.PanicError
	assert.ErrorAs(t, outcomes[1].Err, &pe)
	assert.Equal(t, event.Succeeded, outcomes[2].Kind)
}

func TestLastStageFailureShowsNoResult(t *testing.T) {
	r := newRouter(t)
	r.Plugins().Register(plugin.ScopeUser, faulty())

	q := run(r, "echo shown? | fail")
	assert.Equal(t, []string{"fail: Failed to execute"}, q.Messages())
}

func TestEventsCarryContext(t *testing.T) {
	r := newRouter(t)
	var got map[string]string
	r.Plugins().Register(plugin.ScopeUser, plugin.New("Probe",
		cmd.New(func(_ context.Context, inv *cmd.Invocation) (string, error) {
			got = map[string]string{}
			for _, k := range []string{"nick", "channel", "network", "line", "name", "args"} {
				got[k] = inv.Get(k)
			}
			return "", nil
		}, cmd.WithName("probe")),
	))

	q := run(r, "probe 1 2")
	assert.Equal(t, map[string]string{
		"nick":    "alice",
		"channel": "#chan",
		"network": "testnet",
		"line":    "probe 1 2",
		"name":    "probe",
		"args":    "1 2",
	}, got)

	ev := q.Events()[0]
	assert.True(t, ev.Frozen())
	assert.Same(t, r, ev.Source())
	ref, ok := ev.Value(event.KeyChannelRef)
	require.True(t, ok)
	assert.Equal(t, "#chan", ref)
}

func TestHandlerRepliesPrecedeResult(t *testing.T) {
	r := newRouter(t)
	r.Plugins().Register(plugin.ScopeUser, plugin.New("Chatty",
		cmd.New(func(_ context.Context, inv *cmd.Invocation) (string, error) {
			inv.Reply("working on it")
			return "done", nil
		}, cmd.WithName("chatty")),
	))

	q := run(r, "chatty")
	assert.Equal(t, []string{"working on it", "done"}, q.Messages())
}

func TestNetworkScopeShadowsBuiltins(t *testing.T) {
	r := newRouter(t)
	r.Plugins().Register(plugin.ScopeNetwork, plugin.New("Loud",
		cmd.New(func(_ context.Context, inv *cmd.Invocation) (string, error) {
			return inv.Args + "!", nil
		}, cmd.WithName("echo")),
	))

	assert.Equal(t, []string{"hi!"}, run(r, "echo hi").Messages())
	assert.Equal(t, []string{"Loud"}, run(r, "which echo").Messages())
}

func TestBuiltins(t *testing.T) {
	r := newRouter(t)
	r.Plugins().Register(plugin.ScopeUser, faulty())
	r.Plugins().Register(plugin.ScopeUser, plugin.New("Empty"))

	tests := []struct {
		line string
		want []string
	}{
		{"ping", []string{"pong"}},
		{"count a,b,c", []string{"3"}},
		{"count", []string{"1"}},
		{"help echo", []string{"echo: Repeats text back\nUsage: echo <text>\nExample: echo hello world"}},
		{"help ping", []string{"ping: Checks that the bot is alive\nUsage: ping"}},
		{"help bare", []string{"bare: No help available for this command"}},
		{"help missing", []string{"missing: Command not found"}},
		{"help", []string{"bare, explode, fail, commands, help, which, ping, count, echo"}},
		{"which count", []string{"Utils"}},
		{"which help", []string{PluginName}},
		{"which zzz", []string{"zzz: Command not found"}},
		{"commands Utils", []string{"count, echo"}},
		{"commands Empty", []string{"This plugin does not have any commands."}},
		{"commands Nope", []string{"Nope: Plugin not found"}},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Equal(t, tt.want, run(r, tt.line).Messages())
		})
	}
}

func TestUnregisteredPluginDisappears(t *testing.T) {
	r := newRouter(t)
	h := r.Plugins().Register(plugin.ScopeUser, faulty())
	require.NoError(t, r.Plugins().Unregister(h))

	assert.Equal(t, []string{"fail: Command not found."}, run(r, "fail").Messages())
}

func TestOnLoadDefaultsControlCharacter(t *testing.T) {
	s := memSettings{}
	r := newRouter(t, WithSettings(s))
	require.NoError(t, r.OnLoad())
	assert.Equal(t, ".", s[storage.KeyControlCharacter])

	s[storage.KeyControlCharacter] = "!"
	require.NoError(t, r.OnLoad())
	assert.Equal(t, "!", r.ControlCharacter())
}

func TestRoute(t *testing.T) {
	r := newRouter(t, WithSettings(memSettings{}))
	require.NoError(t, r.OnLoad())
	ctx := context.Background()

	tests := []struct {
		name    string
		channel string
		text    string
		handled bool
		want    []string
	}{
		{"private", "", "echo hi", true, []string{"hi"}},
		{"private rejected", "", "?", true, []string{ReplyRejected}},
		{"prefix", "#c", ".echo hi", true, []string{"hi"}},
		{"prefix space", "#c", ". echo hi", false, nil},
		{"prefix only", "#c", ".", false, nil},
		{"mention colon", "#c", "relay: echo hi", true, []string{"hi"}},
		{"mention comma", "#c", "relay, ping", true, []string{"pong"}},
		{"mention no space", "#c", "relay:ping", false, nil},
		{"mention empty", "#c", "relay: ", false, nil},
		{"other nick", "#c", "relayer: ping", false, nil},
		{"chatter", "#c", "hello there", false, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, ok := r.Route(ctx, Message{Sender: "bob", Channel: tt.channel, Text: tt.text})
			assert.Equal(t, tt.handled, ok)
			if !tt.handled {
				assert.Nil(t, q)
				return
			}
			assert.Equal(t, tt.want, q.Messages())
		})
	}
}

func TestOnChanMsgIgnoresChatter(t *testing.T) {
	r := newRouter(t)
	assert.Nil(t, r.OnChanMsg(context.Background(), "bob", "#c", "just talking"))
	assert.Equal(t, []string{"pong"}, r.OnChanMsg(context.Background(), "bob", "#c", ".ping").Messages())
	assert.Equal(t, []string{"pong"}, r.OnPrivMsg(context.Background(), "bob", "ping").Messages())
}
