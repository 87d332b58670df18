package css

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/exp/slices"
)

// Guard reports whether n satisfies a (part of a) selector within c.
type Guard func(n Node, c *EvalContext) bool

// PseudoClassHandler compiles pseudo-classes the compiler core does not know.
// TryCompile is given the remaining selector text starting at the ':' and returns
// the guard and the text behind the consumed part, or false if it does not apply.
type PseudoClassHandler interface {
	TryCompile(s string, o Options) (Guard, string, bool)
}

// PseudoClassFunc builds a guard from the submatches of a registered pattern.
type PseudoClassFunc func(m []string, o Options) (Guard, bool)

type pseudoPattern struct {
	re *regexp.Regexp
	f  PseudoClassFunc
}

// NewPseudoClass returns a handler for selector text matching pattern.
// The pattern is anchored at the ':' and must end on an identifier boundary.
func NewPseudoClass(pattern string, f PseudoClassFunc) (PseudoClassHandler, error) {
	re, err := regexp.Compile(`^(?:` + pattern + `)`)
	if err != nil {
		return nil, fmt.Errorf("pseudo-class pattern %q: %w", pattern, err)
	}
	return &pseudoPattern{re, f}, nil
}

// mustPseudoClass builds the built-in handlers; their names match case-insensitively.
func mustPseudoClass(pattern string, f PseudoClassFunc) PseudoClassHandler {
	h, err := NewPseudoClass(`(?i)`+pattern, f)
	if err != nil {
		panic(err)
	}
	return h
}

func (p *pseudoPattern) TryCompile(s string, o Options) (Guard, string, bool) {
	m := p.re.FindStringSubmatch(s)
	if m == nil {
		return nil, s, false
	}
	rest := s[len(m[0]):]
	if rest != "" && !strings.HasSuffix(m[0], ")") && (isNameChar(rune(rest[0])) || rest[0] == '(') {
		return nil, s, false
	}
	g, ok := p.f(m, o)
	return g, rest, ok
}

var (
	formControls = []string{"input", "button", "select", "textarea", "option", "optgroup", "fieldset"}
	inputs       = []string{"input", "textarea", "select"}
	links        = []string{"a", "area", "link"}
)

func builtinPseudoClasses() []PseudoClassHandler {
	return []PseudoClassHandler{
		mustPseudoClass(`:checked`, func(_ []string, o Options) (Guard, bool) {
			return func(n Node, c *EvalContext) bool {
				switch tag := strings.ToLower(n.TagName()); {
				case tag == "input":
					t, _ := n.Attr("type")
					return (strings.EqualFold(t, "checkbox") || strings.EqualFold(t, "radio")) && hasAttr(n, "checked")
				case tag == "option" && o.HTML5Checked:
					return hasAttr(n, "selected")
				}
				return false
			}, true
		}),
		mustPseudoClass(`:selected`, func([]string, Options) (Guard, bool) {
			return func(n Node, c *EvalContext) bool {
				return isTag(n, "option") && hasAttr(n, "selected")
			}, true
		}),
		mustPseudoClass(`:(disabled|enabled)`, func(m []string, _ Options) (Guard, bool) {
			disabled := strings.EqualFold(m[1], "disabled")
			return func(n Node, c *EvalContext) bool {
				if !isTag(n, formControls...) {
					return false
				} else if t, _ := n.Attr("type"); !disabled && isTag(n, "input") && strings.EqualFold(t, "hidden") {
					return false
				}
				return hasAttr(n, "disabled") == disabled
			}, true
		}),
		mustPseudoClass(`:(optional|required)`, func(m []string, _ Options) (Guard, bool) {
			required := strings.EqualFold(m[1], "required")
			return func(n Node, c *EvalContext) bool {
				return isTag(n, inputs...) && hasAttr(n, "required") == required
			}, true
		}),
		mustPseudoClass(`:read-(only|write)`, func(m []string, _ Options) (Guard, bool) {
			readOnly := strings.EqualFold(m[1], "only")
			return func(n Node, c *EvalContext) bool {
				return isTag(n, "input", "textarea") && hasAttr(n, "readonly") == readOnly
			}, true
		}),
		mustPseudoClass(`:lang\(([\w-]+|"[^"]*"|'[^']*')\)`, func(m []string, _ Options) (Guard, bool) {
			lang := strings.ToLower(strings.Trim(m[1], `"'`))
			return func(n Node, c *EvalContext) bool {
				for e := n; e != nil && e.Kind() == ElementNode; e = e.Parent() {
					v, ok := e.Attr("lang")
					if !ok && c.XML {
						v, ok = e.Attr("xml:lang")
					}
					if ok {
						v = strings.ToLower(v)
						return v == lang || strings.HasPrefix(v, lang+"-")
					}
				}
				return false
			}, true
		}),
		mustPseudoClass(`:target`, func([]string, Options) (Guard, bool) {
			return func(n Node, c *EvalContext) bool {
				if c.Env == nil || c.Env.Fragment() == "" {
					return false
				}
				id, _ := n.Attr("id")
				return id == c.Env.Fragment()
			}, true
		}),
		mustPseudoClass(`:link`, func([]string, Options) (Guard, bool) {
			return func(n Node, c *EvalContext) bool { return isTag(n, links...) && hasAttr(n, "href") }, true
		}),
		// history is not exposed by hosts, so nothing is ever visited
		mustPseudoClass(`:visited`, func([]string, Options) (Guard, bool) {
			return func(Node, *EvalContext) bool { return false }, true
		}),
		mustPseudoClass(`:(active|focus|hover)`, func(m []string, _ Options) (Guard, bool) {
			state := strings.ToLower(m[1])
			return func(n Node, c *EvalContext) bool {
				if c.Env == nil {
					return false
				}
				switch state {
				case "active":
					return n == c.Env.Active()
				case "focus":
					return n == c.Env.Focused()
				default:
					return n == c.Env.Hovered()
				}
			}, true
		}),
		mustPseudoClass(`:contains\(("(?:[^"\\]|\\.)*"|'(?:[^'\\]|\\.)*'|[^)]*)\)`, func(m []string, _ Options) (Guard, bool) {
			s := m[1]
			if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') {
				s = Unescape(s[1 : len(s)-1])
			}
			return func(n Node, c *EvalContext) bool { return strings.Contains(Text(n), s) }, true
		}),
	}
}

func isTag(n Node, tags ...string) bool {
	return slices.ContainsFunc(tags, func(t string) bool { return strings.EqualFold(n.TagName(), t) })
}

func hasAttr(n Node, key string) bool {
	_, ok := n.Attr(key)
	return ok
}

// Text returns the concatenated text node data below n.
func Text(n Node) string {
	var b strings.Builder
	appendText(&b, n)
	return b.String()
}

func appendText(b *strings.Builder, n Node) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch c.Kind() {
		case TextNode:
			b.WriteString(c.Data())
		case ElementNode:
			appendText(b, c)
		}
	}
}
