package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/net/html"

	"relaybot/internal/httpsock"
)

var (
	fetchJSON    bool
	fetchXML     bool
	fetchHTML    bool
	fetchMethod  string
	fetchData    []string
	fetchQuery   []string
	fetchHeaders []string
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <url>",
	Short: "Send one HTTP/1.0 request and print the response",
	Example: `  relaybot fetch http://example.com/
  relaybot fetch --json --query q=golang https://api.example.com/search
  relaybot fetch --data name=bob --header X-Token=abc http://localhost:8080/form`,
	Args: cobra.ExactArgs(1),
	RunE: runFetch,
}

func init() {
	f := fetchCmd.Flags()
	f.BoolVar(&fetchJSON, "json", false, "Decode a 200 body as JSON")
	f.BoolVar(&fetchXML, "xml", false, "Parse a 200 body as XML and print the element tree")
	f.BoolVar(&fetchHTML, "html", false, "Parse a 200 body as HTML and print its title")
	f.StringVarP(&fetchMethod, "method", "X", "", "Request method (default GET, or POST with --data)")
	f.StringArrayVar(&fetchData, "data", nil, "Form field k=v, repeatable")
	f.StringArrayVar(&fetchQuery, "query", nil, "Query parameter k=v, repeatable")
	f.StringArrayVar(&fetchHeaders, "header", nil, "Request header K=V, repeatable")
	fetchCmd.MarkFlagsMutuallyExclusive("json", "xml", "html")
}

func pairs(kvs []string) (url.Values, error) {
	if len(kvs) == 0 {
		return nil, nil
	}
	v := url.Values{}
	for _, kv := range kvs {
		k, val, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, fmt.Errorf("expected k=v, got %q", kv)
		}
		v.Add(k, val)
	}
	return v, nil
}

func runFetch(c *cobra.Command, args []string) error {
	data, err := pairs(fetchData)
	if err != nil {
		return err
	}
	query, err := pairs(fetchQuery)
	if err != nil {
		return err
	}
	hv, err := pairs(fetchHeaders)
	if err != nil {
		return err
	}
	headers := make(map[string]string, len(hv))
	for k := range hv {
		headers[k] = hv.Get(k)
	}

	req := httpsock.Request{
		URL:     args[0],
		Query:   query,
		Data:    data,
		Method:  fetchMethod,
		Headers: headers,
		Timeout: cfg.HTTPTimeout,
	}
	out := c.OutOrStdout()

	var s *httpsock.Sock
	switch {
	case fetchJSON:
		s, err = httpsock.NewJSONSock(req, func(_ *httpsock.Sock, _ *httpsock.Response, v any, _ httpsock.Extra) {
			b, _ := json.MarshalIndent(v, "", "  ")
			fmt.Fprintln(out, string(b))
		}, httpsock.Extra{})
	case fetchXML:
		s, err = httpsock.NewXMLSock(req, func(_ *httpsock.Sock, _ *httpsock.Response, root *httpsock.Node, _ httpsock.Extra) {
			printTree(c, root, 0)
		}, httpsock.Extra{})
	case fetchHTML:
		s, err = httpsock.NewHTMLSock(req, func(_ *httpsock.Sock, _ *httpsock.Response, doc *html.Node, _ httpsock.Extra) {
			fmt.Fprintln(out, httpsock.Title(doc))
		}, httpsock.Extra{})
	default:
		s, err = httpsock.NewSock(req, func(_ *httpsock.Sock, r *httpsock.Response, _ httpsock.Extra) {
			fmt.Fprintf(out, "%d\n", r.StatusCode)
			for k, v := range r.Headers {
				fmt.Fprintf(out, "%s: %s\n", k, v)
			}
			fmt.Fprintf(out, "\n%s\n", r.Content)
		}, httpsock.Extra{})
	}
	if err != nil {
		return err
	}

	client := httpsock.NewClient(logger, nil)
	if err := client.Do(c.Context(), s); err != nil {
		return err
	}
	if r := s.Response(); r != nil && r.StatusCode != 200 && (fetchJSON || fetchXML || fetchHTML) {
		return fmt.Errorf("server answered %d", r.StatusCode)
	}
	return nil
}

func printTree(c *cobra.Command, n *httpsock.Node, depth int) {
	line := strings.Repeat("  ", depth) + n.Name.Local
	if n.Text != "" {
		line += ": " + n.Text
	}
	fmt.Fprintln(c.OutOrStdout(), line)
	for _, child := range n.Children {
		printTree(c, child, depth+1)
	}
}
