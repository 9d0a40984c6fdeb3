package httpsock

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/net/html"
)

// Node is a generic XML element.
type Node struct {
	Name     xml.Name
	Attrs    []xml.Attr
	Text     string
	Children []*Node
}

// Attr returns the value of the attribute with the given local name.
func (n *Node) Attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

// Find returns the first descendant with the given local name, depth-first.
func (n *Node) Find(name string) *Node {
	for _, c := range n.Children {
		if c.Name.Local == name {
			return c
		}
		if found := c.Find(name); found != nil {
			return found
		}
	}
	return nil
}

// FindAll returns every descendant with the given local name in document order.
func (n *Node) FindAll(name string) []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.Name.Local == name {
			out = append(out, c)
		}
		out = append(out, c.FindAll(name)...)
	}
	return out
}

// ParseXML builds the element tree of a document and returns its root.
func ParseXML(r io.Reader) (*Node, error) {
	dec := xml.NewDecoder(r)
	var root *Node
	var stack []*Node

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			n := &Node{Name: t.Name, Attrs: t.Copy().Attr}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, n)
			} else if root == nil {
				root = n
			}
			stack = append(stack, n)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].Text += strings.TrimSpace(string(t))
			}
		}
	}
	if root == nil {
		return nil, errors.New("empty document")
	}
	return root, nil
}

// XMLCallback receives the root element of a 200 response.
type XMLCallback func(s *Sock, r *Response, root *Node, extra Extra)

// NewXMLSock parses a 200 response body as XML. Other statuses and parse
// failures skip the callback.
func NewXMLSock(req Request, cb XMLCallback, extra Extra) (*Sock, error) {
	s, err := newSock(req, extra)
	if err != nil {
		return nil, err
	}
	s.complete = func(s *Sock) {
		if s.resp.StatusCode != http.StatusOK || cb == nil {
			return
		}
		root, err := ParseXML(strings.NewReader(s.resp.Content))
		if err != nil {
			s.err = fmt.Errorf("decode xml: %w", err)
			return
		}
		cb(s, s.resp, root, s.extra)
	}
	return s, nil
}

// HTMLCallback receives the parsed document of a 200 response.
type HTMLCallback func(s *Sock, r *Response, doc *html.Node, extra Extra)

// NewHTMLSock parses a 200 response body as HTML. Other statuses skip the
// callback.
func NewHTMLSock(req Request, cb HTMLCallback, extra Extra) (*Sock, error) {
	s, err := newSock(req, extra)
	if err != nil {
		return nil, err
	}
	s.complete = func(s *Sock) {
		if s.resp.StatusCode != http.StatusOK || cb == nil {
			return
		}
		doc, err := html.Parse(strings.NewReader(s.resp.Content))
		if err != nil {
			s.err = fmt.Errorf("decode html: %w", err)
			return
		}
		cb(s, s.resp, doc, s.extra)
	}
	return s, nil
}

// Title returns the text of the first <title> element of doc.
func Title(doc *html.Node) string {
	var walk func(*html.Node) (string, bool)
	walk = func(n *html.Node) (string, bool) {
		if n.Type == html.ElementNode && n.Data == "title" {
			var b strings.Builder
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.TextNode {
					b.WriteString(c.Data)
				}
			}
			return strings.TrimSpace(b.String()), true
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if t, ok := walk(c); ok {
				return t, true
			}
		}
		return "", false
	}
	t, _ := walk(doc)
	return t
}
