package soup

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/niklasfasching/nwsel/css"
	"github.com/segmentio/agecache"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

func Parse(r io.Reader) (*Node, error) {
	htmlNode, err := html.Parse(r)
	return AsNode(htmlNode), err
}

func ParseDocument(r io.Reader, e *css.Engine) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	return NewDocument(root, e), nil
}

// ParseFragment parses r in the context of a <body> element. The nodes are
// children of the returned Document's Root.
func ParseFragment(r io.Reader, e *css.Engine) (*Document, error) {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	ns, err := html.ParseFragment(r, body)
	if err != nil {
		return nil, err
	}
	root := &html.Node{Type: html.DocumentNode}
	for _, n := range ns {
		root.AppendChild(n)
	}
	d := NewDocument(root, e)
	d.FragmentRoot = true
	return d, nil
}

func MustParse(r io.Reader) *Node {
	n, err := Parse(r)
	if err != nil {
		panic(err)
	}
	return n
}

// Load fetches and parses url with the default engine.
func Load(ctx context.Context, url string) (*Node, error) {
	d, err := DefaultFetcher.Load(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return AsNode(d.Root), nil
}

func MustLoad(ctx context.Context, url string) *Node {
	n, err := Load(ctx, url)
	if err != nil {
		panic(err)
	}
	return n
}

// documents holds the Documents handed out by (*Node).Document, so that repeated
// queries on one tree share its index and cached results.
var documents = agecache.New(agecache.Config{
	Capacity:           256,
	MaxAge:             10 * time.Minute,
	ExpirationType:     agecache.PassiveExpration,
	ExpirationInterval: time.Minute,
})

// Document returns the Document of the tree n belongs to, using the default engine.
// Trees changed without going through it must call its Invalidate.
func (n *Node) Document() *Document {
	root := AsHTMLNode(n)
	for root.Parent != nil {
		root = root.Parent
	}
	if d, ok := documents.Get(root); ok {
		return d.(*Document)
	}
	d := NewDocument(root, nil)
	documents.Set(root, d)
	return d
}

func (n *Node) First(s string) *Node { return n.FirstSel(css.MustCompile(s)) }
func (n *Node) FirstSel(s *css.Selector) *Node {
	if n == nil {
		return nil
	}
	d := n.Document()
	if f := css.First(s, d.Node(AsHTMLNode(n))); f != nil {
		return AsNode(d.Nodes([]css.Node{f})[0])
	}
	return nil
}

func (n *Node) All(s string) Nodes { return n.AllSel(css.MustCompile(s)) }
func (n *Node) AllSel(s *css.Selector) Nodes {
	if n == nil {
		return nil
	}
	d := n.Document()
	htmlNodes := d.Nodes(css.All(s, d.Node(AsHTMLNode(n))))
	return AsNodes(&htmlNodes)
}

// Is reports whether n is an element matching s.
func (n *Node) Is(s string) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	ok, _ := n.Document().Match(AsHTMLNode(n), s, nil)
	return ok
}

func (n *Node) Text() string {
	var out strings.Builder
	text(&out, AsHTMLNode(n))
	return out.String()
}

func (n *Node) TrimmedText() string {
	return collapse(n.Text())
}

func (n *Node) OuterHTML() string {
	if n == nil {
		return ""
	}
	var out strings.Builder
	if err := html.Render(&out, AsHTMLNode(n)); err != nil {
		panic(fmt.Sprintf("Could not render html: %s", err))
	}
	return out.String()
}

func (n *Node) HTML() string {
	if n == nil {
		return ""
	}
	var out strings.Builder
	for n := n.FirstChild; n != nil; n = n.NextSibling {
		if err := html.Render(&out, n); err != nil {
			panic(fmt.Sprintf("Could not render html: %s", err))
		}
	}
	return out.String()
}

func (n *Node) Attribute(key string) string {
	if n == nil {
		return ""
	}
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func (ns Nodes) Eq(i int) *Node {
	if len(ns) >= i {
		return nil
	}
	return ns[i]
}

func (ns Nodes) Len() int {
	return len(ns)
}

func (ns Nodes) Text(sep string) string {
	ss := make([]string, len(ns))
	for i, n := range ns {
		ss[i] = n.Text()
	}
	return strings.Join(ss, sep)
}

func (ns Nodes) Attribute(key string) []string {
	as := make([]string, len(ns))
	for i, n := range ns {
		as[i] = n.Attribute(key)
	}
	return as
}

func (ns Nodes) First(s string) *Node { return ns.FirstSel(css.MustCompile(s)) }
func (ns Nodes) FirstSel(s *css.Selector) *Node {
	for _, n := range ns {
		if f := n.FirstSel(s); f != nil {
			return f
		}
	}
	return nil
}

func (ns Nodes) All(s string) Nodes { return ns.AllSel(css.MustCompile(s)) }
func (ns Nodes) AllSel(s *css.Selector) Nodes {
	all := []*Node{}
	for _, n := range ns {
		all = append(all, n.AllSel(s)...)
	}
	return all
}

func (ns Nodes) HTML() string {
	ss := make([]string, len(ns))
	for i, n := range ns {
		ss[i] = n.OuterHTML()
	}
	return strings.Join(ss, "\n")
}
