package css

import (
	"strings"
)

type parser struct {
	l        *lexer
	input    string
	peeked   *token
	covered  strings.Builder
	selector string
	cfg      config
}

// config is the registry and option state a selector is parsed and compiled with.
type config struct {
	opts     Options
	handlers []PseudoClassHandler
	ops      map[string]AttributeOperator
}

func (cfg config) isMatcher(s string) bool { return cfg.ops[s] != nil }

func newParser(input, selector string, cfg config) *parser {
	return &parser{l: newLexer(input, cfg.isMatcher), input: input, selector: selector, cfg: cfg}
}

func (p *parser) next() token {
	t := p.peek()
	p.peeked = nil
	p.covered.WriteString(t.raw)
	return t
}

func (p *parser) peek() token {
	if p.peeked == nil {
		t := p.l.token()
		p.peeked = &t
	}
	return *p.peeked
}

func (p *parser) seek(i int) {
	p.l.seek(i)
	p.peeked = nil
}

func (p *parser) acceptRun(c tokenCategory) {
	for p.peek().category == c {
		p.next()
	}
}

func (p *parser) errorf(t token, msg string) error {
	if t.category == tokenError {
		msg = t.string
	}
	return &SyntaxError{Selector: p.selector, Offset: t.index, Msg: msg}
}

// parseGroup parses a comma separated selector group.
func parseGroup(text, selector string, cfg config) (Group, error) {
	var g Group
	for _, part := range Split(text) {
		x, err := newParser(part, selector, cfg).parseSelector()
		if err != nil {
			return nil, err
		}
		g = append(g, x)
	}
	return g, nil
}

// parseSelector parses a single complex selector and checks that the consumed
// tokens add up to the whole input.
func (p *parser) parseSelector() (*Complex, error) {
	s, err := p.parseSimpleSelectorSequence()
	if err != nil {
		return nil, err
	}
	x := &Complex{Compounds: []*Compound{s}}
	for p.peek().category != tokenEOF {
		combinator, err := p.parseCombinator()
		if err != nil {
			return nil, err
		}
		s, err := p.parseSimpleSelectorSequence()
		if err != nil {
			return nil, err
		}
		x.Combinators, x.Compounds = append(x.Combinators, combinator), append(x.Compounds, s)
	}
	if p.covered.String() != p.input {
		return nil, &SyntaxError{Selector: p.selector, Offset: p.covered.Len(), Msg: "Invalid syntax"}
	}
	return x, nil
}

func (p *parser) parseSimpleSelectorSequence() (*Compound, error) {
	s := &Compound{}
	switch p.peek().category {
	case tokenIdent:
		s.Tokens = append(s.Tokens, Type{p.next().string})
	case tokenUniversal:
		p.next()
		s.Tokens = append(s.Tokens, Universal{})
	}
loop:
	for {
		switch t := p.peek(); t.category {
		case tokenClass:
			s.Tokens = append(s.Tokens, Class{p.next().string})
		case tokenID:
			s.Tokens = append(s.Tokens, ID{p.next().string})
		case tokenBracketOpen:
			as, err := p.parseAttributeSelector()
			if err != nil {
				return nil, err
			}
			s.Tokens = append(s.Tokens, as)
		case tokenPseudoClass, tokenPseudoFunction:
			ps, err := p.parsePseudo(t)
			if err != nil {
				return nil, err
			}
			s.Tokens = append(s.Tokens, ps)
		case tokenError:
			return nil, p.errorf(t, "")
		default:
			break loop
		}
	}
	if len(s.Tokens) == 0 {
		return nil, p.errorf(p.peek(), "empty simple selector sequence")
	}
	return s, nil
}

func (p *parser) parseCombinator() (Combinator, error) {
	t := p.next()
	switch t.category {
	case tokenSpace:
		if p.peek().category != tokenCombinator {
			return Descendant, nil
		}
		t = p.next()
	case tokenCombinator:
	default:
		return 0, p.errorf(t, "unexpected "+strings.TrimSpace(t.raw))
	}
	p.acceptRun(tokenSpace)
	return Combinator(t.raw[0]), nil
}

func (p *parser) parseAttributeSelector() (Token, error) {
	p.next()
	p.acceptRun(tokenSpace)
	if t := p.peek(); t.category != tokenIdent {
		return nil, p.errorf(t, "invalid attribute selector: expected identifier")
	}
	key := p.next().string
	p.acceptRun(tokenSpace)
	matcher := ""
	if p.peek().category == tokenMatcher {
		matcher = p.next().string
	}
	p.acceptRun(tokenSpace)
	if t := p.next(); matcher == "" && t.category == tokenBracketClose {
		return Attribute{Name: key}, nil
	} else if matcher != "" && (t.category == tokenString || t.category == tokenIdent) {
		p.acceptRun(tokenSpace)
		if t := p.next(); t.category != tokenBracketClose {
			return nil, p.errorf(t, "invalid attribute selector: expected ]")
		}
		return Attribute{key, matcher, t.string}, nil
	} else {
		return nil, p.errorf(t, "invalid attribute selector: expected ] or matcher & value")
	}
}

var nthNames = map[string]Nth{
	"first-child":      {B: 1},
	"last-child":       {B: 1, Last: true},
	"only-child":       {B: 1, Only: true},
	"first-of-type":    {B: 1, OfType: true},
	"last-of-type":     {B: 1, Last: true, OfType: true},
	"only-of-type":     {B: 1, Only: true, OfType: true},
	"nth-child":        {},
	"nth-last-child":   {Last: true},
	"nth-of-type":      {OfType: true},
	"nth-last-of-type": {Last: true, OfType: true},
}

func (p *parser) parsePseudo(t token) (Token, error) {
	name, function := strings.ToLower(t.string), t.category == tokenPseudoFunction
	nth, isNthName := nthNames[name]
	switch {
	case !function && (name == "root" || name == "empty"):
		p.next()
		return Structural{name}, nil
	case isNthName && !function && !strings.HasPrefix(name, "nth-"):
		p.next()
		nth.Name = name
		return nth, nil
	case isNthName && function && strings.HasPrefix(name, "nth-"):
		p.next()
		args, err := p.parseArguments()
		if err != nil {
			return nil, err
		}
		if nth.A, nth.B, err = parseNthArgs(args); err != nil {
			return nil, p.errorf(t, err.Error())
		}
		nth.Name, nth.Args = name, args
		return nth, nil
	case function && name == "not":
		p.next()
		args, err := p.parseArguments()
		if err != nil {
			return nil, err
		}
		return p.parseNegation(args)
	}
	return p.parseRegistered(t)
}

func (p *parser) parseArguments() (string, error) {
	t := p.next()
	if t.category != tokenFunctionArguments {
		return "", p.errorf(t, "expected pseudo function arguments")
	}
	return t.string[1 : len(t.string)-1], nil
}

func (p *parser) parseNegation(args string) (Token, error) {
	g, err := parseGroup(strings.TrimSpace(args), p.selector, p.cfg)
	if err != nil {
		return nil, err
	}
	if p.cfg.opts.SimpleNegation && !isSimple(g) {
		return nil, &NegationScopeError{Selector: p.selector, Arg: args}
	}
	return Negation{g}, nil
}

func isSimple(g Group) bool {
	if len(g) != 1 || len(g[0].Compounds) != 1 {
		return false
	}
	for _, t := range g[0].Compounds[0].Tokens {
		if _, ok := t.(Negation); ok {
			return false
		}
	}
	return true
}

// parseRegistered hands the remaining input starting at the pseudo-class to the
// registered handlers and resumes lexing behind the text the first accepting handler consumed.
func (p *parser) parseRegistered(t token) (Token, error) {
	rest := p.input[t.index:]
	for _, h := range p.cfg.handlers {
		g, remaining, ok := h.TryCompile(rest, p.cfg.opts)
		if !ok || len(remaining) >= len(rest) {
			continue
		}
		text := rest[:len(rest)-len(remaining)]
		p.covered.WriteString(text)
		p.seek(len(p.input) - len(remaining))
		return Pseudo{text, g}, nil
	}
	text := p.next().raw
	if next := p.peek(); next.category == tokenFunctionArguments {
		text += next.raw
	}
	return nil, &UnknownSelectorError{Selector: p.selector, Token: text}
}
