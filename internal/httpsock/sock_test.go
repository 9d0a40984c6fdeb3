package httpsock

import (
	"bytes"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"relaybot/internal/version"
)

func feed(t *testing.T, s *Sock, lines ...string) {
	t.Helper()
	for _, l := range lines {
		require.NoError(t, s.FeedLine(l+"\r\n"))
	}
}

func connected(t *testing.T, s *Sock) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, s.Connected(&buf))
	return &buf
}

func TestScriptedResponse(t *testing.T) {
	var (
		calls int
		got   *Response
		gotEx Extra
	)
	extra := Extra{Args: []any{"#chan", 7}, Kwargs: map[string]any{"nick": "alice"}}
	s, err := NewSock(Request{URL: "http://example.com/"}, func(s *Sock, r *Response, ex Extra) {
		calls++
		got, gotEx = r, ex
	}, extra)
	require.NoError(t, err)
	assert.Equal(t, AwaitingConnection, s.State())

	connected(t, s)
	assert.Equal(t, Connected, s.State())

	feed(t, s, "HTTP/1.0 200 OK")
	assert.Equal(t, Headers, s.State())
	feed(t, s, "Content-Type: text/plain", "")
	assert.Equal(t, Body, s.State())
	feed(t, s, "hello", "world")
	s.Disconnected("")

	assert.Equal(t, Disconnected, s.State())
	require.Equal(t, 1, calls)
	assert.Equal(t, 200, got.StatusCode)
	assert.Equal(t, "text/plain", got.Headers["Content-Type"])
	assert.Equal(t, "helloworld", got.Content)
	assert.Equal(t, "helloworld", got.String())
	assert.Equal(t, extra, gotEx)
	assert.NoError(t, s.Err())

	s.Disconnected("ignored")
	assert.Equal(t, 1, calls)
}

func TestBufferedTailIsParsed(t *testing.T) {
	s, err := NewSock(Request{URL: "http://example.com/"}, nil, Extra{})
	require.NoError(t, err)
	connected(t, s)
	feed(t, s, "HTTP/1.1 200 OK", "", "head ")
	s.Disconnected("tail")

	assert.Equal(t, "head tail", s.Response().Content)
}

func TestLargeBody(t *testing.T) {
	var got *Response
	s, err := NewSock(Request{URL: "http://example.com/", MaxBodySize: 8 << 20}, func(_ *Sock, r *Response, _ Extra) {
		got = r
	}, Extra{})
	require.NoError(t, err)
	connected(t, s)
	feed(t, s, "HTTP/1.0 200 OK", "")

	line := strings.Repeat("x", 200) + "\r\n"
	for i := 0; i < 20000; i++ {
		require.NoError(t, s.FeedLine(line))
	}
	s.Disconnected("")

	require.NotNil(t, got)
	assert.Len(t, got.Content, 200*20000)
}

func TestBodyLimit(t *testing.T) {
	called := false
	s, err := NewSock(Request{URL: "http://example.com/", MaxBodySize: 10}, func(*Sock, *Response, Extra) { called = true }, Extra{})
	require.NoError(t, err)
	assert.Equal(t, int64(10), s.Request().MaxBodySize)
	connected(t, s)
	feed(t, s, "HTTP/1.0 200 OK", "", "0123456789")

	assert.ErrorIs(t, s.FeedLine("x\r\n"), ErrBodyTooLarge)
	s.Disconnected("")
	assert.False(t, called)
	assert.ErrorIs(t, s.Err(), ErrBodyTooLarge)

	d, err := NewSock(Request{URL: "http://example.com/"}, nil, Extra{})
	require.NoError(t, err)
	assert.Equal(t, int64(DefaultMaxBodySize), d.Request().MaxBodySize)
}

func TestIsRedirect(t *testing.T) {
	tests := []struct {
		name    string
		status  string
		headers []string
		want    bool
	}{
		{"moved with location", "HTTP/1.0 301 Moved Permanently", []string{"Location: http://example.org/"}, true},
		{"found with location", "HTTP/1.0 302 Found", []string{"Location: /next"}, true},
		{"lowercase location", "HTTP/1.0 301 Moved Permanently", []string{"location: /x"}, false},
		{"moved without location", "HTTP/1.0 301 Moved Permanently", nil, false},
		{"ok with location", "HTTP/1.0 200 OK", []string{"Location: /x"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewSock(Request{URL: "http://example.com/"}, nil, Extra{})
			require.NoError(t, err)
			connected(t, s)
			feed(t, s, tt.status)
			feed(t, s, tt.headers...)
			feed(t, s, "")
			s.Disconnected("")
			assert.Equal(t, tt.want, s.Response().IsRedirect())
		})
	}
}

func TestMalformedHeaderSkipsCallback(t *testing.T) {
	called := false
	s, err := NewSock(Request{URL: "http://example.com/"}, func(*Sock, *Response, Extra) { called = true }, Extra{})
	require.NoError(t, err)
	connected(t, s)
	feed(t, s, "HTTP/1.0 200 OK")

	assert.ErrorIs(t, s.FeedLine("Broken-Header\r\n"), ErrMalformedHeader)
	assert.ErrorIs(t, s.FeedLine("body\r\n"), ErrMalformedHeader)
	s.Disconnected("")

	assert.False(t, called)
	assert.ErrorIs(t, s.Err(), ErrMalformedHeader)
}

func TestMalformedStatus(t *testing.T) {
	s, err := NewSock(Request{URL: "http://example.com/"}, nil, Extra{})
	require.NoError(t, err)
	connected(t, s)
	assert.ErrorIs(t, s.FeedLine("SSH-2.0-OpenSSH\r\n"), ErrMalformedStatus)
}

func TestNoStatusLineSkipsCallback(t *testing.T) {
	called := false
	s, err := NewSock(Request{URL: "http://example.com/"}, func(*Sock, *Response, Extra) { called = true }, Extra{})
	require.NoError(t, err)
	connected(t, s)
	s.Disconnected("")

	assert.False(t, called)
	assert.ErrorIs(t, s.Err(), ErrNoResponse)
}

func TestInvalidTransitions(t *testing.T) {
	s, err := NewSock(Request{URL: "http://example.com/"}, nil, Extra{})
	require.NoError(t, err)
	assert.ErrorIs(t, s.FeedLine("HTTP/1.0 200 OK\r\n"), ErrState)

	connected(t, s)
	assert.ErrorIs(t, s.Connected(&bytes.Buffer{}), ErrState)
}

func TestResolvePorts(t *testing.T) {
	tests := []struct {
		url  string
		addr string
		tls  bool
	}{
		{"http://example.com/a", "example.com:80", false},
		{"https://example.com/a", "example.com:443", true},
		{"http://example.com:8080", "example.com:8080", false},
		{"https://example.com:8443/x", "example.com:8443", true},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			s, err := NewSock(Request{URL: tt.url}, nil, Extra{})
			require.NoError(t, err)
			assert.Equal(t, tt.addr, s.Addr())
			assert.Equal(t, tt.tls, s.TLS())
			assert.Equal(t, "example.com", s.Host())
			assert.Equal(t, DefaultTimeout, s.Timeout())
		})
	}
}

func TestUnsupportedScheme(t *testing.T) {
	for _, u := range []string{"ftp://example.com/", "gopher://example.com", "example.com/path"} {
		_, err := NewSock(Request{URL: u}, nil, Extra{})
		assert.ErrorIs(t, err, ErrUnsupportedScheme, u)
	}
}

func TestWriteRequest(t *testing.T) {
	ua := version.UserAgent()
	tests := []struct {
		name string
		req  Request
		want string
	}{
		{
			name: "get with empty path",
			req:  Request{URL: "http://example.com"},
			want: "GET / HTTP/1.0\r\nHost: example.com\r\nUser-Agent: " + ua + "\r\n\r\n",
		},
		{
			name: "url query kept",
			req:  Request{URL: "http://example.com/search?q=go"},
			want: "GET /search?q=go HTTP/1.0\r\nHost: example.com\r\nUser-Agent: " + ua + "\r\n\r\n",
		},
		{
			name: "query replaces url query",
			req:  Request{URL: "http://example.com/search?q=go", Query: url.Values{"q": {"go lang"}}},
			want: "GET /search?q=go+lang HTTP/1.0\r\nHost: example.com\r\nUser-Agent: " + ua + "\r\n\r\n",
		},
		{
			name: "form post",
			req: Request{
				URL:     "http://example.com/submit",
				Data:    url.Values{"a": {"1"}, "b": {"x y"}},
				Headers: map[string]string{"X-Token": "abc"},
			},
			want: "POST /submit HTTP/1.0\r\nHost: example.com\r\nContent-Length: 9\r\nUser-Agent: " + ua +
				"\r\nX-Token: abc\r\n\r\na=1&b=x+y",
		},
		{
			name: "non default port in host",
			req:  Request{URL: "http://example.com:8080/"},
			want: "GET / HTTP/1.0\r\nHost: example.com:8080\r\nUser-Agent: " + ua + "\r\n\r\n",
		},
		{
			name: "default https port left out",
			req:  Request{URL: "https://example.com:443/"},
			want: "GET / HTTP/1.0\r\nHost: example.com\r\nUser-Agent: " + ua + "\r\n\r\n",
		},
		{
			name: "explicit method and headers",
			req: Request{
				URL:     "http://example.com/",
				Method:  "delete",
				Headers: map[string]string{"Host": "virtual.example", "User-Agent": "custom"},
			},
			want: "DELETE / HTTP/1.0\r\nHost: virtual.example\r\nUser-Agent: custom\r\n\r\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewSock(tt.req, nil, Extra{})
			require.NoError(t, err)
			assert.Equal(t, tt.want, connected(t, s).String())
		})
	}
}

func TestRequestIsCopied(t *testing.T) {
	headers := map[string]string{"Accept": "text/plain"}
	data := url.Values{"k": {"v"}}
	s, err := NewSock(Request{URL: "http://example.com/", Headers: headers, Data: data}, nil, Extra{})
	require.NoError(t, err)

	headers["Accept"] = "changed"
	data.Set("k", "changed")

	assert.NotContains(t, headers, "Host")
	assert.Equal(t, "text/plain", s.Request().Headers["Accept"])
	assert.Equal(t, "v", s.Request().Data.Get("k"))
}

type quote struct {
	Text   string `json:"text"`
	Author string `json:"author"`
}

func respond(t *testing.T, s *Sock, status string, body string) {
	t.Helper()
	connected(t, s)
	feed(t, s, status, "Content-Type: application/octet-stream", "")
	s.Disconnected(body)
}

func TestJSONSock(t *testing.T) {
	var got []quote
	cb := func(_ *Sock, _ *Response, q quote, _ Extra) { got = append(got, q) }

	s, err := NewJSONSock(Request{URL: "https://api.example.com/q"}, cb, Extra{})
	require.NoError(t, err)
	respond(t, s, "HTTP/1.0 200 OK", `{"text":"hi","author":"me"}`)
	require.Len(t, got, 1)
	assert.Equal(t, quote{Text: "hi", Author: "me"}, got[0])

	s, err = NewJSONSock(Request{URL: "https://api.example.com/q"}, cb, Extra{})
	require.NoError(t, err)
	respond(t, s, "HTTP/1.0 404 Not Found", `{"text":"missing"}`)
	assert.Len(t, got, 1)
	assert.NoError(t, s.Err())

	s, err = NewJSONSock(Request{URL: "https://api.example.com/q"}, cb, Extra{})
	require.NoError(t, err)
	respond(t, s, "HTTP/1.0 200 OK", `{not json`)
	assert.Len(t, got, 1)
	assert.Error(t, s.Err())
}

const feedXML = `<rss version="2.0"><channel><title>News</title>` +
	`<item><title>First</title></item><item><title>Second</title></item></channel></rss>`

func TestXMLSock(t *testing.T) {
	var root *Node
	s, err := NewXMLSock(Request{URL: "http://example.com/feed"}, func(_ *Sock, _ *Response, n *Node, _ Extra) {
		root = n
	}, Extra{})
	require.NoError(t, err)
	respond(t, s, "HTTP/1.0 200 OK", feedXML)

	require.NotNil(t, root)
	assert.Equal(t, "rss", root.Name.Local)
	v, ok := root.Attr("version")
	assert.True(t, ok)
	assert.Equal(t, "2.0", v)
	assert.Equal(t, "News", root.Find("channel").Find("title").Text)

	items := root.FindAll("item")
	require.Len(t, items, 2)
	assert.Equal(t, "Second", items[1].Find("title").Text)
}

func TestXMLSockSkipsNon200(t *testing.T) {
	called := false
	s, err := NewXMLSock(Request{URL: "http://example.com/feed"}, func(*Sock, *Response, *Node, Extra) {
		called = true
	}, Extra{})
	require.NoError(t, err)
	respond(t, s, "HTTP/1.0 500 Internal Server Error", feedXML)
	assert.False(t, called)
}

func TestHTMLSock(t *testing.T) {
	var title string
	s, err := NewHTMLSock(Request{URL: "http://example.com/"}, func(_ *Sock, _ *Response, doc *html.Node, _ Extra) {
		title = Title(doc)
	}, Extra{})
	require.NoError(t, err)
	respond(t, s, "HTTP/1.0 200 OK", "<html><head><title> Example Domain </title></head><body></body></html>")

	assert.Equal(t, "Example Domain", title)
}
