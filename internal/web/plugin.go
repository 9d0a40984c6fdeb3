// Package web exposes chat commands that fetch URLs through httpsock.
package web

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/net/html"

	"relaybot/internal/httpsock"
	"relaybot/internal/plugin"
	"relaybot/pkg/cmd"
	"relaybot/pkg/retrylimit"
)

// ErrNoURL is returned when a command is run without an argument.
var ErrNoURL = errors.New("no url given")

// Doer runs a socket to completion. *httpsock.Client implements it.
type Doer interface {
	Do(ctx context.Context, s *httpsock.Sock) error
}

// Plugin returns the Web plugin backed by client.
func Plugin(client Doer) *plugin.Set {
	return newWeb(client).plugin()
}

type web struct {
	client  Doer
	limiter *retrylimit.AdaptiveLimiter
	retry   retrylimit.RetryConfig
}

func newWeb(client Doer) *web {
	retry := retrylimit.DefaultRetryConfig()
	retry.MaxAttempts = 3
	retry.MaxDelay = 2 * time.Second
	return &web{
		client:  client,
		limiter: retrylimit.NewAdaptiveLimiter(5, 1, 10, 0.5, 0.5),
		retry:   retry,
	}
}

func (w *web) plugin() *plugin.Set {
	return plugin.New("Web",
		cmd.New(w.title,
			cmd.WithUsage("title <url>"),
			cmd.WithDescription("Shows the title of a web page"),
			cmd.WithExample("title https://go.dev"),
		),
		cmd.New(w.status,
			cmd.WithUsage("status <url>"),
			cmd.WithDescription("Shows the HTTP status of a URL"),
			cmd.WithExample("status http://example.com"),
		),
	)
}

func target(args string) (string, error) {
	u := strings.TrimSpace(args)
	if u == "" {
		return "", ErrNoURL
	}
	if !strings.Contains(u, "://") {
		u = "http://" + u
	}
	return u, nil
}

func (w *web) title(ctx context.Context, inv *cmd.Invocation) (string, error) {
	u, err := target(inv.Args)
	if err != nil {
		return "", err
	}

	var title string
	s, err := w.fetch(ctx, func() (*httpsock.Sock, error) {
		return httpsock.NewHTMLSock(httpsock.Request{URL: u}, func(_ *httpsock.Sock, _ *httpsock.Response, doc *html.Node, _ httpsock.Extra) {
			title = httpsock.Title(doc)
		}, httpsock.Extra{})
	})
	if err != nil {
		return "", err
	}

	if r := s.Response(); r != nil && r.StatusCode != 200 {
		return fmt.Sprintf("%s: HTTP %d", u, r.StatusCode), nil
	}
	if title == "" {
		return fmt.Sprintf("%s: No title", u), nil
	}
	return title, nil
}

func (w *web) status(ctx context.Context, inv *cmd.Invocation) (string, error) {
	u, err := target(inv.Args)
	if err != nil {
		return "", err
	}

	var out string
	_, err = w.fetch(ctx, func() (*httpsock.Sock, error) {
		return httpsock.NewSock(httpsock.Request{URL: u, Method: "HEAD"}, func(_ *httpsock.Sock, r *httpsock.Response, _ httpsock.Extra) {
			out = fmt.Sprintf("%s: HTTP %d", u, r.StatusCode)
			if r.IsRedirect() {
				out += " -> " + r.Headers["Location"]
			}
		}, httpsock.Extra{})
	})
	if err != nil {
		return "", err
	}
	return out, nil
}

// fetch runs a fresh socket from build, again while the server answers 429
// or 5xx and attempts remain. The last socket is returned with its response
// once the attempts run out.
func (w *web) fetch(ctx context.Context, build func() (*httpsock.Sock, error)) (*httpsock.Sock, error) {
	var s *httpsock.Sock
	err := retrylimit.WithRetryConfig(ctx, func() error {
		var err error
		if s, err = build(); err != nil {
			return retrylimit.Fatal(err)
		}
		if err := w.client.Do(ctx, s); err != nil {
			return retrylimit.Fatal(err)
		}
		r := s.Response()
		if r == nil || r.StatusCode == 200 {
			return nil
		}
		if err := error(&httpsock.StatusError{URL: s.Request().URL, Code: r.StatusCode}); retrylimit.DefaultClassifier(err) {
			return err
		}
		return nil
	}, w.limiter, w.retry)

	var status *httpsock.StatusError
	if errors.As(err, &status) {
		return s, nil
	}
	return s, err
}
