package css

import "strings"

type NodeKind int

const (
	OtherNode NodeKind = iota
	ElementNode
	TextNode
	DocumentNode
	FragmentNode
)

// Node is the view of a host tree the engine works on.
// Implementations must be comparable: two values refer to the same node iff they are ==.
// Navigation methods return a nil interface (not a typed nil) at the end of a chain.
type Node interface {
	Kind() NodeKind
	Parent() Node
	FirstChild() Node
	NextSibling() Node
	PrevSibling() Node
	// TagName is only meaningful for elements.
	TagName() string
	// Attr reports the value of the attribute and whether it is present at all.
	Attr(name string) (string, bool)
	// Data is the content of text nodes.
	Data() string
}

// Optional bulk lookups, implemented by root nodes (document, fragment or element).
// Results are the strict descendants of the receiver, in document order.
type (
	AllElements interface {
		AllElements() []Node
	}
	ElementsByID interface {
		ElementsByID(id string) []Node
	}
	// ElementsByTagName must compare names the way the receiver's document does,
	// i.e. case-insensitively for markup documents.
	ElementsByTagName interface {
		ElementsByTagName(name string) []Node
	}
	// ElementsByClassName compares class tokens case-sensitively.
	ElementsByClassName interface {
		ElementsByClassName(class string) []Node
	}
)

// NativeSelector is a host side selector implementation the engine may delegate to.
type NativeSelector interface {
	QuerySelectorAll(selector string) ([]Node, error)
}

// DocumentMode is implemented by document nodes that know their comparison mode.
type DocumentMode interface {
	XML() bool
	Quirks() bool
}

// Environment exposes the dynamic state of a document; any accessor may return nil / "".
type Environment interface {
	Focused() Node
	Hovered() Node
	Active() Node
	// Fragment is the location fragment without the leading '#'.
	Fragment() string
}

// Capabilities describe what the engine may assume about the host.
type Capabilities struct {
	// BulkLookup allows the use of AllElements / ElementsBy* on root nodes.
	BulkLookup bool
	// WildcardNonElements makes * check the node kind.
	WildcardNonElements bool
	// CaseSensitive compares every document like a foreign (XML) tree.
	CaseSensitive bool
}

// EvalContext is threaded through every compiled guard.
type EvalContext struct {
	// Root is the scoping root of the query; nil for unscoped matching.
	Root     Node
	Document Node
	XML      bool
	Quirks   bool
	Env      Environment

	boundary Node
	index    *positionIndex
}

// newEvalContext derives the context for a query scoped to root, or for el alone if root is nil.
func newEvalContext(root, el Node, caps Capabilities) *EvalContext {
	c := &EvalContext{Root: root}
	if root != nil {
		c.Document, c.boundary = documentOf(root), root.Parent()
	} else {
		c.Document = documentOf(el)
	}
	if m, ok := c.Document.(DocumentMode); ok {
		c.XML, c.Quirks = m.XML(), m.Quirks()
	}
	if caps.CaseSensitive {
		c.XML = true
	}
	if c.XML {
		c.Quirks = false
	}
	c.Env, _ = c.Document.(Environment)
	return c
}

func (c *EvalContext) mode() mode { return mode{c.XML, c.Quirks} }

// parent returns the parent element of n unless that would cross the boundary.
func (c *EvalContext) parent(n Node) Node {
	p := n.Parent()
	if p == nil || p == c.boundary || p.Kind() != ElementNode {
		return nil
	}
	return p
}

func (c *EvalContext) prev(n Node) Node {
	if n == c.Root {
		return nil
	}
	return prevElement(n)
}

func documentOf(n Node) Node {
	if n == nil {
		return nil
	}
	for p := n.Parent(); p != nil; p = n.Parent() {
		n = p
	}
	return n
}

func prevElement(n Node) Node {
	for s := n.PrevSibling(); s != nil; s = s.PrevSibling() {
		if s.Kind() == ElementNode {
			return s
		}
	}
	return nil
}

func nextElement(n Node) Node {
	for s := n.NextSibling(); s != nil; s = s.NextSibling() {
		if s.Kind() == ElementNode {
			return s
		}
	}
	return nil
}

// Contains reports whether n is root or one of its descendants.
func Contains(root, n Node) bool {
	for ; n != nil; n = n.Parent() {
		if n == root {
			return true
		}
	}
	return false
}

// Descendants returns all element descendants of root in document order.
func Descendants(root Node) []Node {
	return appendDescendants(nil, root)
}

func appendDescendants(ns []Node, n Node) []Node {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if c.Kind() == ElementNode {
			ns = append(ns, c)
		}
		ns = appendDescendants(ns, c)
	}
	return ns
}

func sameName(a, b string, xml bool) bool {
	if xml {
		return a == b
	}
	return strings.EqualFold(a, b)
}
