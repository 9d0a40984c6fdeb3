// Package httpsock is a minimal line-oriented HTTP/1.0 client. A Sock is a
// state machine advanced one line at a time, so it can be driven by any
// transport that delivers lines: a real TCP connection through Client or a
// scripted sequence in tests.
package httpsock

import (
	"fmt"
	"net/http"
)

// Response is what a Sock accumulates while reading. It is no longer modified
// once the socket is disconnected.
type Response struct {
	StatusCode int
	Content    string
	Headers    map[string]string
}

func newResponse(status int) *Response {
	return &Response{StatusCode: status, Headers: make(map[string]string)}
}

// IsRedirect reports a 301 or 302 that carries a header named exactly
// Location. Redirects are never followed.
func (r *Response) IsRedirect() bool {
	if r.StatusCode != http.StatusMovedPermanently && r.StatusCode != http.StatusFound {
		return false
	}
	_, ok := r.Headers["Location"]
	return ok
}

// String returns the body.
func (r *Response) String() string { return r.Content }

// GoString is used by %#v in logs and test failures.
func (r *Response) GoString() string {
	return fmt.Sprintf("<Response %d (%v)>", r.StatusCode, r.Headers)
}

// StatusError reports a response status the caller did not accept. It
// implements StatusCode so retry classifiers can inspect it.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string   { return fmt.Sprintf("%s: HTTP %d", e.URL, e.Code) }
func (e *StatusError) StatusCode() int { return e.Code }
