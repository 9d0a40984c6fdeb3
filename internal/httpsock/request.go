package httpsock

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"net"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"relaybot/internal/version"
)

const (
	// DefaultTimeout applies when a Request has no Timeout.
	DefaultTimeout = 10 * time.Second
	// DefaultMaxBodySize applies when a Request has no MaxBodySize.
	DefaultMaxBodySize = 4 << 20
)

// ErrUnsupportedScheme is returned before any I/O for URLs that are neither
// http nor https.
var ErrUnsupportedScheme = errors.New("unsupported scheme")

// Request describes one outbound call. NewSock copies it, so the caller may
// reuse or modify its maps afterwards.
type Request struct {
	URL string
	// Query replaces the query string of URL when non-empty.
	Query url.Values
	// Data is sent form-encoded as the body.
	Data url.Values
	// Method defaults to POST when Data is set and GET otherwise.
	Method  string
	Headers map[string]string
	Timeout time.Duration
	// MaxBodySize caps the response body in bytes, line breaks excluded.
	MaxBodySize int64
}

func (r Request) clone() Request {
	r.Query = cloneValues(r.Query)
	r.Data = cloneValues(r.Data)
	r.Headers = maps.Clone(r.Headers)
	if r.Headers == nil {
		r.Headers = make(map[string]string)
	}
	return r
}

func cloneValues(v url.Values) url.Values {
	if v == nil {
		return nil
	}
	out := make(url.Values, len(v))
	for k, vals := range v {
		out[k] = append([]string(nil), vals...)
	}
	return out
}

// target is the resolved connection and request line of a Request.
type target struct {
	host     string
	port     int
	tls      bool
	method   string
	path     string
	rawQuery string
	body     string
}

func (t target) addr() string {
	return net.JoinHostPort(t.host, strconv.Itoa(t.port))
}

// hostHeader is the host, with the port only when it is not the scheme's default.
func (t target) hostHeader() string {
	if (t.tls && t.port == 443) || (!t.tls && t.port == 80) {
		return t.host
	}
	return t.addr()
}

func (t target) requestURI() string {
	if t.rawQuery == "" {
		return t.path
	}
	return t.path + "?" + t.rawQuery
}

// resolve fills in defaults on r and validates its URL.
func resolve(r *Request) (target, error) {
	u, err := url.Parse(r.URL)
	if err != nil {
		return target{}, fmt.Errorf("parse url %q: %w", r.URL, err)
	}

	t := target{host: u.Hostname(), path: u.EscapedPath()}
	switch u.Scheme {
	case "http":
		t.port = 80
	case "https":
		t.port, t.tls = 443, true
	default:
		return target{}, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
	if p := u.Port(); p != "" {
		t.port, err = strconv.Atoi(p)
		if err != nil {
			return target{}, fmt.Errorf("parse port %q: %w", p, err)
		}
	}
	if t.host == "" {
		return target{}, fmt.Errorf("url %q has no host", r.URL)
	}
	if t.path == "" {
		t.path = "/"
	}

	if len(r.Query) > 0 {
		t.rawQuery = r.Query.Encode()
	} else {
		t.rawQuery = u.RawQuery
	}

	if len(r.Data) > 0 {
		t.body = r.Data.Encode()
	}

	t.method = strings.ToUpper(r.Method)
	if t.method == "" {
		t.method = "GET"
		if t.body != "" {
			t.method = "POST"
		}
	}

	if _, ok := r.Headers["Host"]; !ok {
		r.Headers["Host"] = t.hostHeader()
	}
	if _, ok := r.Headers["User-Agent"]; !ok {
		r.Headers["User-Agent"] = version.UserAgent()
	}
	if t.body != "" {
		r.Headers["Content-Length"] = strconv.Itoa(len(t.body))
	}
	if r.Timeout <= 0 {
		r.Timeout = DefaultTimeout
	}
	if r.MaxBodySize <= 0 {
		r.MaxBodySize = DefaultMaxBodySize
	}
	return t, nil
}

// writeRequest writes the request line, Host, the remaining headers sorted by
// name, the blank line and the body.
func writeRequest(w io.Writer, t target, headers map[string]string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s HTTP/1.0\r\n", t.method, t.requestURI())

	if host, ok := headers["Host"]; ok {
		fmt.Fprintf(&b, "Host: %s\r\n", host)
	}
	keys := make([]string, 0, len(headers))
	for k := range headers {
		if k != "Host" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %s\r\n", k, headers[k])
	}
	b.WriteString("\r\n")
	b.WriteString(t.body)

	_, err := io.WriteString(w, b.String())
	return err
}
