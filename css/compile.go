package css

import (
	"strings"
)

// mode is the part of a document that changes what a selector compiles to.
type mode struct {
	XML    bool
	Quirks bool
}

type compiler struct {
	mode mode
	ops  map[string]AttributeOperator
	caps Capabilities
}

func accept(Node, *EvalContext) bool { return true }

func (c *compiler) group(g Group) Guard {
	if len(g) == 1 {
		return c.complex(g[0])
	}
	gs := make([]Guard, len(g))
	for i, x := range g {
		gs[i] = c.complex(x)
	}
	return anyOf(gs)
}

func anyOf(gs []Guard) Guard {
	return func(n Node, ec *EvalContext) bool {
		for _, g := range gs {
			if g(n, ec) {
				return true
			}
		}
		return false
	}
}

// complex compiles x into nested guards that run right to left: the closure of the
// rightmost compound is the outermost one and is applied to the candidate. Each combinator
// moves the current element before handing it to the continuation built for the
// compounds to its left; the leftmost compound wraps accept.
func (c *compiler) complex(x *Complex) Guard {
	k := Guard(accept)
	for i, s := range x.Compounds {
		if i > 0 {
			k = c.combinator(x.Combinators[i-1], k)
		}
		k = c.compound(s, k)
	}
	return k
}

func (c *compiler) combinator(comb Combinator, k Guard) Guard {
	switch comb {
	case Child:
		return func(n Node, ec *EvalContext) bool {
			p := ec.parent(n)
			return p != nil && k(p, ec)
		}
	case Adjacent:
		return func(n Node, ec *EvalContext) bool {
			s := ec.prev(n)
			return s != nil && k(s, ec)
		}
	case Sibling:
		return func(n Node, ec *EvalContext) bool {
			for s := ec.prev(n); s != nil; s = prevElement(s) {
				if k(s, ec) {
					return true
				}
			}
			return false
		}
	default:
		return func(n Node, ec *EvalContext) bool {
			for p := ec.parent(n); p != nil; p = ec.parent(p) {
				if k(p, ec) {
					return true
				}
			}
			return false
		}
	}
}

func (c *compiler) compound(s *Compound, k Guard) Guard {
	var gs []Guard
	for _, t := range s.Tokens {
		if g := c.token(t); g != nil {
			gs = append(gs, g)
		}
	}
	switch len(gs) {
	case 0:
		return k
	case 1:
		g := gs[0]
		return func(n Node, ec *EvalContext) bool { return g(n, ec) && k(n, ec) }
	}
	return func(n Node, ec *EvalContext) bool {
		for _, g := range gs {
			if !g(n, ec) {
				return false
			}
		}
		return k(n, ec)
	}
}

// token returns the guard for a single simple selector, or nil if it always passes.
func (c *compiler) token(t Token) Guard {
	switch t := t.(type) {
	case Universal:
		if c.caps.WildcardNonElements {
			return func(n Node, ec *EvalContext) bool { return n.Kind() == ElementNode }
		}
		return nil
	case Type:
		name, xml := t.Name, c.mode.XML
		return func(n Node, ec *EvalContext) bool { return sameName(n.TagName(), name, xml) }
	case ID:
		return func(n Node, ec *EvalContext) bool {
			id, ok := n.Attr("id")
			return ok && id == t.Name
		}
	case Class:
		name, fold := t.Name, c.mode.Quirks
		if fold {
			name = strings.ToLower(name)
		}
		return func(n Node, ec *EvalContext) bool {
			v, ok := n.Attr("class")
			if !ok {
				return false
			} else if fold {
				v = strings.ToLower(v)
			}
			return includeMatch(v, name)
		}
	case Attribute:
		return compileAttribute(t, c.ops[t.Op], c.mode)
	case Structural:
		if t.Name == "root" {
			return isRoot
		}
		return isEmpty
	case Nth:
		return func(n Node, ec *EvalContext) bool {
			pos, last := ec.positions(n).of(t)
			switch {
			case t.Only:
				return pos == 1 && last == 1
			case t.Last:
				return isNth(t.A, t.B, last)
			default:
				return isNth(t.A, t.B, pos)
			}
		}
	case Negation:
		g := c.group(t.Group)
		return func(n Node, ec *EvalContext) bool { return n.Kind() == ElementNode && !g(n, ec) }
	case Pseudo:
		return t.guard
	}
	panic("css: unexpected token type")
}

func isRoot(n Node, _ *EvalContext) bool {
	p := n.Parent()
	return p == nil || p.Kind() == DocumentNode
}

// isEmpty treats whitespace-only text as empty.
func isEmpty(n Node, _ *EvalContext) bool {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch c.Kind() {
		case ElementNode:
			return false
		case TextNode:
			if strings.TrimSpace(c.Data()) != "" {
				return false
			}
		}
	}
	return true
}
