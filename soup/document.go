package soup

import (
	"strings"
	"sync"

	"github.com/andybalholm/cascadia"
	"github.com/niklasfasching/nwsel/css"
	"golang.org/x/exp/slices"
	"golang.org/x/net/html"
)

// Document exposes an x/net/html tree to a css.Engine.
// Mutations must go through the Document (or be followed by Invalidate) so that
// cached results and the lookup index are dropped.
type Document struct {
	Root   *html.Node
	Engine *css.Engine
	// XMLMode compares names and attribute values like a foreign document.
	XMLMode bool
	// Dynamic state for :focus, :hover, :active and :target.
	Focus, Hover, Active *html.Node
	Fragment             string
	// FragmentRoot marks Root as a container of parsed fragment nodes rather than a document.
	FragmentRoot bool

	mu  sync.Mutex
	idx *index
}

type index struct {
	all                  []css.Node
	byID, byTag, byClass map[string][]css.Node
}

// hostNode implements css.Node and the optional host interfaces for one html.Node.
type hostNode struct {
	n *html.Node
	d *Document
}

var compiled sync.Map

func NewDocument(root *html.Node, e *css.Engine) *Document {
	if e == nil {
		e = css.Default
	}
	return &Document{Root: root, Engine: e}
}

// Node returns the css view of n; nil for nil.
func (d *Document) Node(n *html.Node) css.Node {
	if n == nil {
		return nil
	}
	return hostNode{n, d}
}

func (d *Document) Nodes(ns []css.Node) []*html.Node {
	out := make([]*html.Node, len(ns))
	for i, n := range ns {
		out[i] = n.(hostNode).n
	}
	return out
}

// Select returns the elements below root (the document root if nil) matching selector.
func (d *Document) Select(selector string, root *html.Node) ([]*html.Node, error) {
	if root == nil {
		root = d.Root
	}
	ns, err := d.Engine.Select(selector, d.Node(root))
	if err != nil {
		return nil, err
	}
	return d.Nodes(ns), nil
}

// Match reports whether n matches selector, with combinators bounded by scope if it is not nil.
func (d *Document) Match(n *html.Node, selector string, scope *html.Node) (bool, error) {
	return d.Engine.Match(d.Node(n), selector, d.Node(scope))
}

// Invalidate signals that the tree was changed outside of the Document's mutation helpers.
func (d *Document) Invalidate() {
	d.mu.Lock()
	d.idx = nil
	d.mu.Unlock()
	d.Engine.Invalidate(d.Node(d.Root))
}

func (d *Document) AppendChild(parent, child *html.Node) {
	parent.AppendChild(child)
	d.Invalidate()
}

func (d *Document) InsertBefore(parent, child, ref *html.Node) {
	parent.InsertBefore(child, ref)
	d.Invalidate()
}

func (d *Document) RemoveChild(parent, child *html.Node) {
	parent.RemoveChild(child)
	d.Invalidate()
}

func (d *Document) SetAttr(n *html.Node, key, value string) {
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr[i].Val = value
			d.Invalidate()
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: value})
	d.Invalidate()
}

func (d *Document) RemoveAttr(n *html.Node, key string) {
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr = append(n.Attr[:i:i], n.Attr[i+1:]...)
			d.Invalidate()
			return
		}
	}
}

func (d *Document) quirks() bool {
	if d.XMLMode || d.FragmentRoot || d.Root == nil || d.Root.Type != html.DocumentNode {
		return false
	}
	for c := d.Root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.DoctypeNode {
			return !strings.EqualFold(c.Data, "html")
		}
	}
	return true
}

func (d *Document) index() *index {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.idx != nil {
		return d.idx
	}
	x := &index{byID: map[string][]css.Node{}, byTag: map[string][]css.Node{}, byClass: map[string][]css.Node{}}
	walk(d.Root, func(n *html.Node) {
		h := hostNode{n, d}
		x.all = append(x.all, h)
		x.byTag[d.tagKey(n.Data)] = append(x.byTag[d.tagKey(n.Data)], h)
		if id, ok := h.Attr("id"); ok {
			x.byID[id] = append(x.byID[id], h)
		}
		if class, ok := h.Attr("class"); ok {
			for _, c := range classes(class) {
				x.byClass[c] = append(x.byClass[c], h)
			}
		}
	})
	d.idx = x
	return x
}

func (d *Document) tagKey(name string) string {
	if d.XMLMode {
		return name
	}
	return strings.ToLower(name)
}

func (h hostNode) Kind() css.NodeKind {
	switch h.n.Type {
	case html.ElementNode:
		return css.ElementNode
	case html.TextNode:
		return css.TextNode
	case html.DocumentNode:
		if h.n == h.d.Root && h.d.FragmentRoot {
			return css.FragmentNode
		}
		return css.DocumentNode
	}
	return css.OtherNode
}

func (h hostNode) Parent() css.Node      { return h.d.Node(h.n.Parent) }
func (h hostNode) FirstChild() css.Node  { return h.d.Node(h.n.FirstChild) }
func (h hostNode) NextSibling() css.Node { return h.d.Node(h.n.NextSibling) }
func (h hostNode) PrevSibling() css.Node { return h.d.Node(h.n.PrevSibling) }
func (h hostNode) Data() string          { return h.n.Data }

func (h hostNode) TagName() string {
	if h.n.Type != html.ElementNode {
		return ""
	}
	return h.n.Data
}

func (h hostNode) Attr(name string) (string, bool) {
	for _, a := range h.n.Attr {
		if a.Namespace != "" && !h.d.XMLMode {
			continue
		}
		key := a.Key
		if a.Namespace != "" {
			key = a.Namespace + ":" + a.Key
		}
		if key == name || !h.d.XMLMode && strings.EqualFold(key, name) {
			return a.Val, true
		}
	}
	return "", false
}

// The document wide index only serves the document root; other roots walk their subtree.
func (h hostNode) lookup(f func(*index) []css.Node, match func(hostNode) bool) []css.Node {
	if h.n == h.d.Root {
		return f(h.d.index())
	}
	var out []css.Node
	walk(h.n, func(n *html.Node) {
		if c := (hostNode{n, h.d}); match(c) {
			out = append(out, c)
		}
	})
	return out
}

func (h hostNode) AllElements() []css.Node {
	return h.lookup(func(x *index) []css.Node { return x.all }, func(hostNode) bool { return true })
}

func (h hostNode) ElementsByID(id string) []css.Node {
	return h.lookup(func(x *index) []css.Node { return x.byID[id] }, func(c hostNode) bool {
		v, ok := c.Attr("id")
		return ok && v == id
	})
}

func (h hostNode) ElementsByTagName(name string) []css.Node {
	key := h.d.tagKey(name)
	return h.lookup(func(x *index) []css.Node { return x.byTag[key] }, func(c hostNode) bool {
		return h.d.tagKey(c.n.Data) == key
	})
}

func (h hostNode) ElementsByClassName(class string) []css.Node {
	return h.lookup(func(x *index) []css.Node { return x.byClass[class] }, func(c hostNode) bool {
		v, _ := c.Attr("class")
		return slices.Contains(classes(v), class)
	})
}

// QuerySelectorAll evaluates selector with cascadia.
func (h hostNode) QuerySelectorAll(selector string) ([]css.Node, error) {
	var sel cascadia.Selector
	if v, ok := compiled.Load(selector); ok {
		sel = v.(cascadia.Selector)
	} else {
		s, err := cascadia.Compile(selector)
		if err != nil {
			return nil, err
		}
		compiled.Store(selector, s)
		sel = s
	}
	out := []css.Node{}
	for _, n := range sel.MatchAll(h.n) {
		if n != h.n {
			out = append(out, hostNode{n, h.d})
		}
	}
	return out, nil
}

func (h hostNode) XML() bool    { return h.d.XMLMode }
func (h hostNode) Quirks() bool { return h.n == h.d.Root && h.d.quirks() }

func (h hostNode) Focused() css.Node { return h.d.Node(h.d.Focus) }
func (h hostNode) Hovered() css.Node { return h.d.Node(h.d.Hover) }
func (h hostNode) Active() css.Node  { return h.d.Node(h.d.Active) }
func (h hostNode) Fragment() string  { return h.d.Fragment }
