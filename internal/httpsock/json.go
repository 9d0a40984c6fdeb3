package httpsock

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// JSONCallback receives the decoded body along with the raw response.
type JSONCallback[T any] func(s *Sock, r *Response, v T, extra Extra)

// NewJSONSock decodes a 200 response body into T. Any other status, or a body
// that fails to decode, skips the callback; inspect Err or use NewSock to
// handle those cases.
func NewJSONSock[T any](req Request, cb JSONCallback[T], extra Extra) (*Sock, error) {
	s, err := newSock(req, extra)
	if err != nil {
		return nil, err
	}
	s.complete = func(s *Sock) {
		if s.resp.StatusCode != http.StatusOK || cb == nil {
			return
		}
		var v T
		if err := json.Unmarshal([]byte(s.resp.Content), &v); err != nil {
			s.err = fmt.Errorf("decode json: %w", err)
			return
		}
		cb(s, s.resp, v, s.extra)
	}
	return s, nil
}
