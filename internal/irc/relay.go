// Package irc connects the command router to an IRC network.
package irc

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"gopkg.in/irc.v4"

	"relaybot/internal/event"
	"relaybot/internal/router"
	"relaybot/pkg/retrylimit"
)

// Config is the connection and identity of the relay.
type Config struct {
	Network  string
	Server   string
	TLS      bool
	Nick     string
	User     string
	Name     string
	Pass     string
	Channels []string
}

// Router handles inbound lines. *router.Router implements it.
type Router interface {
	Route(ctx context.Context, msg router.Message) (*event.Queue, bool)
}

// writer is the part of *irc.Client the message handler uses.
type writer interface {
	WriteMessage(m *irc.Message) error
}

// stableSession is how long a session must last for the reconnect delay to
// start over from its initial value.
const stableSession = 5 * time.Minute

// Relay is one IRC connection. It implements router.Host.
type Relay struct {
	cfg     Config
	log     *zap.Logger
	limiter *retrylimit.AdaptiveLimiter
	retry   retrylimit.RetryConfig
	stable  time.Duration

	mu   sync.RWMutex
	nick string
}

// New returns a relay that sends at most sendRate messages per second.
func New(cfg Config, log *zap.Logger, sendRate float64) *Relay {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("irc").With(zap.String("server", cfg.Server))

	retry := retrylimit.DefaultRetryConfig()
	retry.MaxAttempts = 0
	retry.InitialDelay = 2 * time.Second
	retry.MaxDelay = 2 * time.Minute
	retry.Logger = log

	return &Relay{
		cfg:     cfg,
		log:     log,
		limiter: retrylimit.NewSendLimiter(sendRate),
		retry:   retry,
		stable:  stableSession,
		nick:    cfg.Nick,
	}
}

// Network implements router.Host.
func (r *Relay) Network() string { return r.cfg.Network }

// CurrentNick implements router.Host. It follows nick changes made by the
// server.
func (r *Relay) CurrentNick() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.nick
}

func (r *Relay) setNick(nick string) {
	r.mu.Lock()
	r.nick = nick
	r.mu.Unlock()
}

// Run connects and serves until ctx is done. Dial failures are retried with
// backoff; a dropped session is followed by a reconnect whose delay grows
// while sessions keep dying early and resets after a stable one.
func (r *Relay) Run(ctx context.Context, rt Router) error {
	delay := r.retry.InitialDelay
	for {
		conn, err := r.connect(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		started := time.Now()
		err = r.session(ctx, conn, rt)
		if ctx.Err() != nil {
			return nil
		}
		if time.Since(started) >= r.stable {
			delay = r.retry.InitialDelay
		}
		r.log.Warn("disconnected", zap.Duration("reconnect_in", delay), zap.Error(err))

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case <-t.C:
		}
		delay = min(delay*2, r.retry.MaxDelay)
	}
}

// connect dials until it succeeds or ctx is done.
func (r *Relay) connect(ctx context.Context) (net.Conn, error) {
	var conn net.Conn
	err := retrylimit.WithRetryConfig(ctx, func() error {
		c, err := r.dial(ctx)
		if err != nil {
			return fmt.Errorf("dial %s: %w", r.cfg.Server, err)
		}
		conn = c
		return nil
	}, nil, r.retry)
	return conn, err
}

func (r *Relay) session(ctx context.Context, conn net.Conn, rt Router) error {
	defer conn.Close()

	client := irc.NewClient(conn, irc.ClientConfig{
		Nick:          r.cfg.Nick,
		Pass:          r.cfg.Pass,
		User:          r.cfg.User,
		Name:          r.cfg.Name,
		PingFrequency: time.Minute,
		PingTimeout:   time.Minute,
		Handler: irc.HandlerFunc(func(c *irc.Client, m *irc.Message) {
			r.handle(ctx, c, m, rt)
		}),
	})

	r.log.Info("connected")
	if err := client.RunContext(ctx); err != nil {
		return fmt.Errorf("session: %w", err)
	}
	return nil
}

func (r *Relay) dial(ctx context.Context) (net.Conn, error) {
	d := &net.Dialer{Timeout: 30 * time.Second}
	if !r.cfg.TLS {
		return d.DialContext(ctx, "tcp", r.cfg.Server)
	}
	host, _, err := net.SplitHostPort(r.cfg.Server)
	if err != nil {
		return nil, err
	}
	td := &tls.Dialer{NetDialer: d, Config: &tls.Config{ServerName: host}}
	return td.DialContext(ctx, "tcp", r.cfg.Server)
}

func (r *Relay) handle(ctx context.Context, w writer, m *irc.Message, rt Router) {
	switch m.Command {
	case "001":
		if len(m.Params) > 0 {
			r.setNick(m.Params[0])
		}
		for _, ch := range r.cfg.Channels {
			if err := w.WriteMessage(&irc.Message{Command: "JOIN", Params: []string{ch}}); err != nil {
				r.log.Warn("join failed", zap.String("channel", ch), zap.Error(err))
			}
		}
		r.log.Info("registered", zap.String("nick", r.CurrentNick()), zap.Strings("channels", r.cfg.Channels))
	case "NICK":
		if m.Prefix != nil && m.Prefix.Name == r.CurrentNick() && len(m.Params) > 0 {
			r.setNick(m.Params[0])
		}
	case "PRIVMSG":
		msg, ok := inbound(m, r.CurrentNick())
		if !ok {
			return
		}
		q, handled := rt.Route(ctx, msg)
		if !handled {
			return
		}
		r.deliver(ctx, w, replyTarget(msg), q.Messages())
	}
}

// inbound converts a PRIVMSG into a router message. Messages to a channel
// keep the channel; private ones leave it empty.
func inbound(m *irc.Message, nick string) (router.Message, bool) {
	if m.Prefix == nil || len(m.Params) < 2 {
		return router.Message{}, false
	}
	if m.Prefix.Name == nick {
		return router.Message{}, false
	}
	msg := router.Message{Sender: m.Prefix.Name, Text: m.Trailing()}
	if target := m.Params[0]; isChannel(target) {
		msg.Channel = target
	}
	return msg, true
}

func isChannel(target string) bool {
	return strings.HasPrefix(target, "#") || strings.HasPrefix(target, "&")
}

func replyTarget(msg router.Message) string {
	if msg.Channel != "" {
		return msg.Channel
	}
	return msg.Sender
}

// deliver sends every message as PRIVMSG lines, one per text line, paced by
// the send limiter.
func (r *Relay) deliver(ctx context.Context, w writer, target string, messages []string) {
	for _, line := range splitLines(messages) {
		if err := r.limiter.Wait(ctx); err != nil {
			return
		}
		if err := w.WriteMessage(&irc.Message{Command: "PRIVMSG", Params: []string{target, line}}); err != nil {
			r.limiter.RateLimited()
			r.log.Warn("send failed", zap.String("target", target), zap.Error(err))
			return
		}
		r.limiter.Success()
	}
}

func splitLines(messages []string) []string {
	var out []string
	for _, m := range messages {
		for _, line := range strings.Split(m, "\n") {
			line = strings.TrimRight(line, "\r")
			if line != "" {
				out = append(out, line)
			}
		}
	}
	return out
}
