package css

import "fmt"

// SyntaxError reports selector text that does not match the grammar.
type SyntaxError struct {
	Selector string
	Offset   int
	Msg      string
}

// UnknownSelectorError reports a token that neither a built-in production nor a registered handler accepts.
type UnknownSelectorError struct {
	Selector string
	Token    string
}

// InvalidArgumentError reports a bad element, context or selector argument.
type InvalidArgumentError struct {
	Op  string
	Msg string
}

// NegationScopeError reports a :not() argument that is not a simple selector while SimpleNegation is set.
type NegationScopeError struct {
	Selector string
	Arg      string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("css: invalid syntax in %q at %d: %s", e.Selector, e.Offset, e.Msg)
}

func (e *UnknownSelectorError) Error() string {
	return fmt.Sprintf("css: unknown selector %q in %q", e.Token, e.Selector)
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("css: %s: %s", e.Op, e.Msg)
}

func (e *NegationScopeError) Error() string {
	return fmt.Sprintf("css: :not(%s) in %q must be a simple selector", e.Arg, e.Selector)
}
