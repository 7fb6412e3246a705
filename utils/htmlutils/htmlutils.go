// Copyright 2025 The BuildingID Authors
// SPDX-License-Identifier: Apache-2.0

// Package htmlutils provides utility functions for working with HTML.
package htmlutils

import (
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

// Node2string appends the text content of n to sb, one space between text
// nodes. Line breaks become spaces; script and style content is skipped.
func Node2string(n *html.Node, sb *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		tmp := strings.Join(strings.Fields(n.Data), " ")
		if tmp == "" {
			return
		}

		if sb.Len() != 0 {
			sb.WriteByte(' ')
		}

		sb.WriteString(tmp)
	case html.ElementNode:
		if n.Data == "script" || n.Data == "style" {
			return
		}

		fallthrough
	default:
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			Node2string(child, sb)
		}
	}
}

// Text returns the text content of n.
func Text(n *html.Node) string {
	if n == nil {
		return ""
	}

	sb := strings.Builder{}
	Node2string(n, &sb)

	return sb.String()
}

// AsReader wraps a saved page so that it is decoded from the charset it
// declares. Pages without a declaration are read as UTF-8.
func AsReader(r io.Reader) (io.Reader, error) {
	rr, err := charset.NewReader(r, "text/html")
	if err != nil {
		return nil, eris.Wrap(err, "detecting charset")
	}

	return rr, nil
}

// AsNode parses an io.Reader as an HTML node.
func AsNode(r io.Reader) (*html.Node, error) {
	n, err := html.Parse(r)
	if nil != err {
		return nil, eris.Wrap(err, "parsing body as HTML")
	}

	return n, nil
}

// Attr returns the value of the attribute key.
func Attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val, true
		}
	}

	return "", false
}

// FindFirst returns the first element in document order that satisfies
// match, n included.
func FindFirst(n *html.Node, match func(*html.Node) bool) *html.Node {
	if n.Type == html.ElementNode && match(n) {
		return n
	}

	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if found := FindFirst(child, match); found != nil {
			return found
		}
	}

	return nil
}

// FindAll returns every element that satisfies match, in document order.
func FindAll(n *html.Node, match func(*html.Node) bool) []*html.Node {
	var ret []*html.Node

	var visit func(*html.Node)

	visit = func(n *html.Node) {
		if n.Type == html.ElementNode && match(n) {
			ret = append(ret, n)
		}

		for child := n.FirstChild; child != nil; child = child.NextSibling {
			visit(child)
		}
	}

	visit(n)

	return ret
}

// Tag matches elements by tag name.
func Tag(name string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		return strings.EqualFold(n.Data, name)
	}
}

// AttrEquals matches elements whose attribute key has exactly value.
func AttrEquals(key, value string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		v, ok := Attr(n, key)

		return ok && v == value
	}
}
