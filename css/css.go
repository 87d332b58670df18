// Package css implements CSS3 selectors (plus a few extensions) over any tree
// implementing Node. Selectors are compiled into closures once and memoized per
// document mode.
package css

import "context"

// Default is the engine used by the package level functions.
var Default = New(context.Background(), DefaultOptions())

func Compile(selector string) (*Selector, error) { return Default.Compile(selector) }

func MustCompile(selector string) *Selector {
	s, err := Compile(selector)
	if err != nil {
		panic(err)
	}
	return s
}

func Validate(selector string) error { return Default.Validate(selector) }

func Match(el Node, selector string, scope Node, fs ...func(Node)) (bool, error) {
	return Default.Match(el, selector, scope, fs...)
}

func Select(selector string, root Node) ([]Node, error) { return Default.Select(selector, root) }

// First returns the first element below n matching s, or nil.
func First(s *Selector, n Node) Node {
	if ns := s.Select(n); len(ns) != 0 {
		return ns[0]
	}
	return nil
}

// All returns all elements below n matching s.
func All(s *Selector, n Node) []Node { return s.Select(n) }
