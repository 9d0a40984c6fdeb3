package httpsock

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrMalformedStatus is a first line without a numeric status code.
	ErrMalformedStatus = errors.New("malformed status line")
	// ErrMalformedHeader is a header line without ": ".
	ErrMalformedHeader = errors.New("malformed header line")
	// ErrNoResponse means the connection closed before a status line arrived.
	ErrNoResponse = errors.New("no response")
	// ErrState is a call that is not valid in the socket's current state.
	ErrState = errors.New("invalid socket state")
	// ErrBodyTooLarge is a body longer than the request's MaxBodySize.
	ErrBodyTooLarge = errors.New("response body too large")
)

// Extra carries caller values forwarded untouched to the callback.
type Extra struct {
	Args   []any
	Kwargs map[string]any
}

// Callback receives the finished response once the socket disconnects.
type Callback func(s *Sock, r *Response, extra Extra)

// Sock is a single in-flight request. It is owned by one caller and is not
// safe for concurrent use.
type Sock struct {
	req    Request
	target target

	state State
	resp  *Response
	body  strings.Builder
	err   error

	extra    Extra
	complete func(*Sock)
}

// NewSock validates req and returns a socket waiting for its connection.
// cb may be nil.
func NewSock(req Request, cb Callback, extra Extra) (*Sock, error) {
	s, err := newSock(req, extra)
	if err != nil {
		return nil, err
	}
	if cb != nil {
		s.complete = func(s *Sock) { cb(s, s.resp, s.extra) }
	}
	return s, nil
}

func newSock(req Request, extra Extra) (*Sock, error) {
	req = req.clone()
	t, err := resolve(&req)
	if err != nil {
		return nil, err
	}
	return &Sock{req: req, target: t, extra: extra}, nil
}

// State returns the current parse state.
func (s *Sock) State() State { return s.state }

// Response returns the response read so far, nil before the status line.
// Content is filled in when the socket disconnects.
func (s *Sock) Response() *Response { return s.resp }

// Err returns the first fatal error, if any.
func (s *Sock) Err() error { return s.err }

// Request returns the resolved request, including synthesized headers.
func (s *Sock) Request() Request { return s.req }

// Addr is the host:port to dial.
func (s *Sock) Addr() string { return s.target.addr() }

// Host is the server name, also used for TLS verification.
func (s *Sock) Host() string { return s.target.host }

// TLS reports whether the connection must be encrypted.
func (s *Sock) TLS() bool { return s.target.tls }

// Timeout is the dial and read timeout.
func (s *Sock) Timeout() time.Duration { return s.req.Timeout }

// Connected marks the transport as open and writes the request to w.
func (s *Sock) Connected(w io.Writer) error {
	if s.state != AwaitingConnection {
		return fmt.Errorf("connect in state %s: %w", s.state, ErrState)
	}
	s.state = Connected
	if err := writeRequest(w, s.target, s.req.Headers); err != nil {
		return s.fail(fmt.Errorf("write request: %w", err))
	}
	return nil
}

// FeedLine advances the parser by one received line. After a fatal error the
// socket ignores further input and keeps returning that error.
func (s *Sock) FeedLine(line string) error {
	if s.err != nil {
		return s.err
	}

	switch s.state {
	case Connected:
		status, err := parseStatus(strings.TrimSpace(line))
		if err != nil {
			return s.fail(err)
		}
		s.resp = newResponse(status)
		s.state = Headers
	case Headers:
		line = strings.TrimSpace(line)
		if line == "" {
			s.state = Body
			return nil
		}
		key, value, ok := strings.Cut(line, ": ")
		if !ok {
			return s.fail(fmt.Errorf("%w: %q", ErrMalformedHeader, line))
		}
		s.resp.Headers[key] = value
	case Body:
		line = strings.TrimRight(line, "\r\n")
		if int64(s.body.Len()+len(line)) > s.req.MaxBodySize {
			return s.fail(fmt.Errorf("%w: limit is %d bytes", ErrBodyTooLarge, s.req.MaxBodySize))
		}
		s.body.WriteString(line)
	default:
		return fmt.Errorf("line in state %s: %w", s.state, ErrState)
	}
	return nil
}

func parseStatus(line string) (int, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 || !strings.HasPrefix(fields[0], "HTTP/") {
		return 0, fmt.Errorf("%w: %q", ErrMalformedStatus, line)
	}
	code, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedStatus, line)
	}
	return code, nil
}

func (s *Sock) fail(err error) error {
	if s.err == nil {
		s.err = err
	}
	return s.err
}

// Disconnected finalizes the socket. rest is any buffered data that did not
// end in a newline; it is parsed as a last line. The callback runs unless a
// fatal error occurred or no status line was received. Calling Disconnected
// again does nothing.
func (s *Sock) Disconnected(rest string) {
	if s.state == Disconnected {
		return
	}
	if rest != "" && s.state != AwaitingConnection {
		_ = s.FeedLine(rest)
	}
	s.state = Disconnected
	if s.resp != nil {
		s.resp.Content = s.body.String()
		s.body.Reset()
	}

	if s.err != nil {
		return
	}
	if s.resp == nil {
		s.err = ErrNoResponse
		return
	}
	if s.complete != nil {
		s.complete(s)
	}
}
