package css

import (
	"fmt"
	"strings"
)

// Group is a comma separated list of alternatives.
type Group []*Complex

// Complex is a chain of compounds; Combinators[i] joins Compounds[i] and Compounds[i+1].
type Complex struct {
	Compounds   []*Compound
	Combinators []Combinator
}

type Combinator byte

const (
	Descendant Combinator = ' '
	Child      Combinator = '>'
	Adjacent   Combinator = '+'
	Sibling    Combinator = '~'
)

// Compound is a sequence of simple selectors matched against a single element.
type Compound struct {
	Tokens []Token
}

type Token interface {
	String() string
}

type Universal struct{}

type Type struct{ Name string }

type ID struct{ Name string }

type Class struct{ Name string }

type Attribute struct {
	Name  string
	Op    string
	Value string
}

// Structural covers the argument-less structural pseudo-classes :root and :empty.
type Structural struct{ Name string }

// Nth covers the positional pseudo-classes.
// first-child is nth-child(1), only-child is first-child and last-child.
type Nth struct {
	Name   string
	Args   string
	A, B   int
	Last   bool
	OfType bool
	Only   bool
}

type Negation struct{ Group Group }

// Pseudo is a pseudo-class resolved through the handler registry.
type Pseudo struct {
	Text  string
	guard Guard
}

func (g Group) String() string {
	ss := make([]string, len(g))
	for i, c := range g {
		ss[i] = c.String()
	}
	return strings.Join(ss, ",")
}

func (c *Complex) String() string {
	var b strings.Builder
	for i, x := range c.Compounds {
		if i > 0 {
			b.WriteByte(byte(c.Combinators[i-1]))
		}
		b.WriteString(x.String())
	}
	return b.String()
}

func (c *Compound) String() string {
	var b strings.Builder
	for _, t := range c.Tokens {
		b.WriteString(t.String())
	}
	return b.String()
}

func (Universal) String() string    { return "*" }
func (t Type) String() string       { return EscapeIdentifier(t.Name) }
func (t ID) String() string         { return "#" + EscapeIdentifier(t.Name) }
func (t Class) String() string      { return "." + EscapeIdentifier(t.Name) }
func (t Structural) String() string { return ":" + t.Name }
func (t Negation) String() string   { return ":not(" + t.Group.String() + ")" }
func (t Pseudo) String() string     { return t.Text }

func (t Nth) String() string {
	if t.Args == "" {
		return ":" + t.Name
	}
	return fmt.Sprintf(":%s(%s)", t.Name, t.Args)
}

func (t Attribute) String() string {
	if t.Op == "" {
		return "[" + EscapeIdentifier(t.Name) + "]"
	}
	return fmt.Sprintf(`[%s%s"%s"]`, EscapeIdentifier(t.Name), t.Op, EscapeString(t.Value))
}

// rightmost returns the compound matched against the candidate element itself.
func (c *Complex) rightmost() *Compound { return c.Compounds[len(c.Compounds)-1] }

// without returns a copy of c with the token at index i of the rightmost compound
// rewritten to the universal selector.
func (c *Complex) without(i int) *Complex {
	last := c.rightmost()
	tokens := append(append([]Token{}, last.Tokens[:i]...), last.Tokens[i+1:]...)
	if i == 0 {
		tokens = append([]Token{Universal{}}, tokens...)
	}
	compounds := append(append([]*Compound{}, c.Compounds[:len(c.Compounds)-1]...), &Compound{tokens})
	return &Complex{compounds, c.Combinators}
}

func (c *Complex) hasNth() bool {
	for _, x := range c.Compounds {
		for _, t := range x.Tokens {
			switch t := t.(type) {
			case Nth:
				return true
			case Negation:
				for _, c := range t.Group {
					if c.hasNth() {
						return true
					}
				}
			}
		}
	}
	return false
}

// native reports whether c only uses tokens a host side selector implementation
// evaluates the same way we do. Registry dispatched pseudo-classes never qualify.
func (c *Complex) native() bool {
	for _, x := range c.Compounds {
		for _, t := range x.Tokens {
			switch t := t.(type) {
			case Universal, Type, ID, Class, Nth:
			case Negation:
				for _, c := range t.Group {
					if !c.native() {
						return false
					}
				}
			default:
				return false
			}
		}
	}
	return true
}
