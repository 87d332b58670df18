package soup

import (
	"regexp"
	"strings"
	"unsafe"

	"golang.org/x/exp/slices"
	"golang.org/x/net/html"
)

// Node is an html.Node with query helpers. The conversions below are free.
type Node html.Node
type Nodes []*Node

func AsHTMLNode(n *Node) *html.Node  { return (*html.Node)(unsafe.Pointer(n)) }
func AsNode(n *html.Node) *Node      { return (*Node)(unsafe.Pointer(n)) }
func AsNodes(ns *[]*html.Node) Nodes { return *(*[]*Node)(unsafe.Pointer(ns)) }

var collapsibleSpace = regexp.MustCompile(`\s+(\n)\s*|\s*(\n)\s+|(\s)\s+`)

// walk calls f for the element descendants of n in document order.
func walk(n *html.Node, f func(*html.Node)) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			f(c)
		}
		walk(c, f)
	}
}

// classes splits a class attribute into its distinct tokens.
func classes(s string) []string {
	var out []string
	for _, c := range strings.FieldsFunc(s, isSpace) {
		if !slices.Contains(out, c) {
			out = append(out, c)
		}
	}
	return out
}

func isSpace(r rune) bool { return strings.ContainsRune(" \t\n\r\f", r) }

func text(out *strings.Builder, n *html.Node) {
	switch {
	case n == nil || n.Type == html.CommentNode:
	case n.Type == html.TextNode:
		out.WriteString(n.Data)
	default:
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			text(out, c)
		}
	}
}

func collapse(s string) string {
	return collapsibleSpace.ReplaceAllString(strings.TrimSpace(s), "$1")
}
