package css

type planKind int

const (
	planScan planKind = iota
	planAll
	planID
	planClass
	planTag
	planNarrow
)

// plan describes how a program obtains its candidates.
// exact plans take the host lookup as the result; the others still run guard over it.
type plan struct {
	kind  planKind
	value string
	exact bool
	guard Guard
	// text is the selector the guard was compiled from
	text string
}

// program is a compiled selector.
type program struct {
	text   string
	match  Guard
	hasNth bool
	native bool
	plan   plan
}

func (c *compiler) plan(x *Complex) plan {
	last := x.rightmost()
	if len(x.Compounds) == 1 && len(last.Tokens) == 1 {
		switch t := last.Tokens[0].(type) {
		case Universal:
			return plan{kind: planAll, exact: true}
		case ID:
			return plan{kind: planID, value: t.Name, exact: true}
		case Type:
			if !c.mode.XML {
				return plan{kind: planTag, value: t.Name, exact: true}
			}
		case Class:
			if !c.mode.Quirks {
				return plan{kind: planClass, value: t.Name, exact: true}
			}
		}
	}
	if i, t := findToken[ID](last); i >= 0 {
		return c.rewrite(x, i, planID, t.Name)
	}
	if i, t := findToken[Class](last); i >= 0 && !c.mode.Quirks {
		return c.rewrite(x, i, planClass, t.Name)
	}
	if i, t := findToken[Type](last); i >= 0 {
		if c.mode.XML {
			// host tag lookups may fold case, so the name check has to stay in the guard
			return plan{kind: planTag, value: t.Name, guard: c.complex(x), text: x.String()}
		}
		return c.rewrite(x, i, planTag, t.Name)
	}
	if len(x.Compounds) > 1 && (x.Combinators[0] == Descendant || x.Combinators[0] == Child) {
		if i, t := findToken[ID](x.Compounds[0]); i >= 0 {
			return plan{kind: planNarrow, value: t.Name}
		}
	}
	return plan{kind: planScan}
}

func (c *compiler) rewrite(x *Complex, i int, kind planKind, value string) plan {
	rewritten := x.without(i)
	return plan{kind: kind, value: value, guard: c.complex(rewritten), text: rewritten.String()}
}

func findToken[T Token](s *Compound) (int, T) {
	for i, t := range s.Tokens {
		if t, ok := t.(T); ok {
			return i, t
		}
	}
	return -1, *new(T)
}

// run evaluates p over the candidates below root, in document order and without duplicates.
func (p *program) run(root Node, ec *EvalContext, caps Capabilities) []Node {
	if p.hasNth {
		ec.index = newPositionIndex()
		defer func() { ec.index = nil }()
	}
	candidates, guard := p.candidates(root, ec, caps)
	out, seen := []Node{}, make(map[Node]struct{}, len(candidates))
	for _, n := range candidates {
		if _, ok := seen[n]; ok || n == root {
			continue
		}
		seen[n] = struct{}{}
		if guard == nil || guard(n, ec) {
			out = append(out, n)
		}
	}
	return out
}

// candidates returns the nodes to test and the guard to test them with (nil: accept all).
// Without host support every plan degrades to a scan with the full guard.
func (p *program) candidates(root Node, ec *EvalContext, caps Capabilities) ([]Node, Guard) {
	guard := p.plan.guard
	if p.plan.exact {
		guard = nil
	}
	if !caps.BulkLookup {
		return Descendants(root), p.match
	}
	switch p.plan.kind {
	case planAll:
		if h, ok := root.(AllElements); ok {
			if caps.WildcardNonElements {
				return h.AllElements(), p.match
			}
			return h.AllElements(), guard
		}
	case planID:
		if h, ok := root.(ElementsByID); ok {
			return h.ElementsByID(p.plan.value), guard
		}
	case planTag:
		if h, ok := root.(ElementsByTagName); ok {
			return h.ElementsByTagName(p.plan.value), guard
		}
	case planClass:
		if h, ok := root.(ElementsByClassName); ok {
			return h.ElementsByClassName(p.plan.value), guard
		}
	case planNarrow:
		if h, ok := root.(ElementsByID); ok {
			anchors := h.ElementsByID(p.plan.value)
			if id, _ := root.Attr("id"); root.Kind() == ElementNode && id == p.plan.value {
				anchors = append([]Node{root}, anchors...)
			}
			switch len(anchors) {
			case 0:
				return nil, nil
			case 1:
				return Descendants(anchors[0]), p.match
			}
		}
	}
	return Descendants(root), p.match
}
