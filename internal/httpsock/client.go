package httpsock

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
	"time"

	"go.uber.org/zap"

	"relaybot/internal/metrics"
)

// Client connects sockets to real servers.
type Client struct {
	// Timeout is used for sockets whose request has none.
	Timeout   time.Duration
	TLSConfig *tls.Config
	// Control vets every resolved address before connecting, see PublicOnly.
	Control func(network, address string, c syscall.RawConn) error

	log     *zap.Logger
	metrics *metrics.Metrics
}

// NewClient returns a client. log and m may be nil.
func NewClient(log *zap.Logger, m *metrics.Metrics) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{Timeout: DefaultTimeout, log: log.Named("httpsock"), metrics: m}
}

// Do dials the socket's server and drives it until the server closes the
// connection, the timeout expires or ctx is cancelled. The socket's callback
// has run by the time Do returns.
func (c *Client) Do(ctx context.Context, s *Sock) error {
	timeout := s.Timeout()
	if timeout <= 0 {
		timeout = c.Timeout
	}

	conn, err := c.dial(ctx, s, timeout)
	if err != nil {
		c.metrics.ObserveHTTPError("dial")
		c.log.Debug("dial failed", zap.String("addr", s.Addr()), zap.Error(err))
		return fmt.Errorf("dial %s: %w", s.Addr(), err)
	}
	if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
		conn.Close()
		return fmt.Errorf("set deadline: %w", err)
	}
	return c.Run(ctx, s, conn)
}

func (c *Client) dial(ctx context.Context, s *Sock, timeout time.Duration) (net.Conn, error) {
	d := &net.Dialer{Timeout: timeout, Control: c.Control}
	if !s.TLS() {
		return d.DialContext(ctx, "tcp", s.Addr())
	}

	cfg := &tls.Config{}
	if c.TLSConfig != nil {
		cfg = c.TLSConfig.Clone()
	}
	if cfg.ServerName == "" {
		cfg.ServerName = s.Host()
	}
	td := &tls.Dialer{NetDialer: d, Config: cfg}
	return td.DialContext(ctx, "tcp", s.Addr())
}

// Run drives s over an established connection and closes it when done.
// Cancelling ctx closes conn, which ends the exchange like any other
// disconnect.
func (c *Client) Run(ctx context.Context, s *Sock, conn io.ReadWriteCloser) error {
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()
	defer conn.Close()

	log := c.log.With(zap.String("addr", s.Addr()))

	if err := s.Connected(conn); err != nil {
		c.metrics.ObserveHTTPError("write")
		s.Disconnected("")
		return c.finish(ctx, s, err)
	}

	var readErr error
	rd := bufio.NewReader(conn)
	for {
		line, err := rd.ReadString('\n')
		if err != nil {
			if !errors.Is(err, io.EOF) {
				readErr = err
			}
			s.Disconnected(line)
			break
		}
		if err := s.FeedLine(line); err != nil {
			c.metrics.ObserveHTTPError("parse")
			log.Debug("response rejected", zap.Error(err))
			s.Disconnected("")
			break
		}
	}

	if readErr != nil && ctx.Err() == nil && s.Err() == nil {
		c.metrics.ObserveHTTPError("read")
	}
	if r := s.Response(); r != nil {
		c.metrics.ObserveHTTPResponse(r.StatusCode)
		log.Debug("response", zap.Int("status", r.StatusCode), zap.Int("bytes", len(r.Content)))
	}
	return c.finish(ctx, s, readErr)
}

func (c *Client) finish(ctx context.Context, s *Sock, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if s.Err() != nil {
		return s.Err()
	}
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	return nil
}
