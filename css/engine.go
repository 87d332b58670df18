package css

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/niklasfasching/nwsel/util"
	"golang.org/x/exp/slices"
	"golang.org/x/sync/singleflight"
)

// Engine compiles and evaluates selectors. It is safe for concurrent use.
type Engine struct {
	ctx      context.Context
	rev      uint64
	opts     Options
	handlers []PseudoClassHandler
	ops      map[string]AttributeOperator
	mu       sync.RWMutex

	programs map[programKey]*compiled
	pmu      sync.RWMutex
	flight   singleflight.Group

	results *resultCache
}

type programKey struct {
	text string
	mode mode
	sel  bool
	rev  uint64
}

type compiled struct {
	p   *program
	err error
}

func (k programKey) String() string {
	return fmt.Sprintf("%d/%t/%t/%t/%s", k.rev, k.mode.XML, k.mode.Quirks, k.sel, k.text)
}

// New returns an engine. ctx is only used to carry the logger (see util.WithLogger).
func New(ctx context.Context, o Options) *Engine {
	return &Engine{
		ctx:      ctx,
		opts:     o,
		handlers: builtinPseudoClasses(),
		ops:      builtinOperators(),
		programs: map[programKey]*compiled{},
		results:  newResultCache(o),
	}
}

// Configure replaces the options and drops all compiled programs and cached results.
func (e *Engine) Configure(o Options) {
	e.mu.Lock()
	e.opts, e.results = o, newResultCache(o)
	e.mu.Unlock()
	e.reset()
}

func (e *Engine) Options() Options {
	o, _ := e.state()
	return o
}

func (e *Engine) state() (Options, *resultCache) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.opts, e.results
}

// RegisterHandler adds h to the end of the pseudo-class registry.
func (e *Engine) RegisterHandler(h PseudoClassHandler) {
	e.mu.Lock()
	e.handlers = append(slices.Clone(e.handlers), h)
	e.mu.Unlock()
	e.reset()
}

// RegisterPseudoClass registers f for selector text matching pattern, e.g. `:icontains\((\w+)\)`.
func (e *Engine) RegisterPseudoClass(pattern string, f PseudoClassFunc) error {
	h, err := NewPseudoClass(pattern, f)
	if err != nil {
		return err
	}
	e.RegisterHandler(h)
	return nil
}

// RegisterAttributeOperator adds the attribute operator symbol, which must be one symbol followed by '='.
func (e *Engine) RegisterAttributeOperator(symbol string, f AttributeOperator) error {
	if err := checkOperatorSymbol(symbol); err != nil {
		return err
	}
	e.mu.Lock()
	ops := make(map[string]AttributeOperator, len(e.ops)+1)
	for k, v := range e.ops {
		ops[k] = v
	}
	ops[symbol] = f
	e.ops = ops
	e.mu.Unlock()
	e.reset()
	return nil
}

func (e *Engine) Operators() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return sortedOperators(e.ops)
}

// reset drops every compiled program and every result computed with them.
func (e *Engine) reset() {
	e.mu.Lock()
	e.rev++
	results := e.results
	e.mu.Unlock()
	e.pmu.Lock()
	e.programs = map[programKey]*compiled{}
	e.pmu.Unlock()
	results.expire()
}

func (e *Engine) config() (config, uint64) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return config{e.opts, e.handlers, e.ops}, e.rev
}

// compile returns the memoized program for the normalized selector text.
// Concurrent callers share a single compilation.
func (e *Engine) compile(text string, m mode, sel bool) (*program, error) {
	cfg, rev := e.config()
	k := programKey{text, m, sel, rev}
	e.pmu.RLock()
	c, ok := e.programs[k]
	e.pmu.RUnlock()
	if ok {
		return c.p, c.err
	}
	v, _, _ := e.flight.Do(k.String(), func() (interface{}, error) {
		e.pmu.RLock()
		c, ok := e.programs[k]
		e.pmu.RUnlock()
		if ok {
			return c, nil
		}
		p, err := e.build(text, m, sel, cfg)
		if err != nil {
			util.Debugf(e.ctx, "css: compile %q: %s", text, err)
		} else {
			util.Debugf(e.ctx, "css: compiled %q (xml=%t quirks=%t select=%t)", text, m.XML, m.Quirks, sel)
		}
		c = &compiled{p, err}
		e.pmu.Lock()
		if k.rev == e.currentRev() {
			e.programs[k] = c
		}
		e.pmu.Unlock()
		return c, nil
	})
	c = v.(*compiled)
	return c.p, c.err
}

func (e *Engine) currentRev() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.rev
}

func (e *Engine) build(text string, m mode, sel bool, cfg config) (*program, error) {
	if text == "" {
		return nil, &SyntaxError{Selector: text, Msg: "empty selector"}
	}
	c := &compiler{m, cfg.ops, cfg.opts.Host}
	if parts := Split(text); len(parts) > 1 {
		p := &program{text: text, native: true}
		gs := make([]Guard, len(parts))
		off := 0
		for i, part := range parts {
			sub, err := e.compile(part, m, false)
			if err != nil {
				return nil, inGroup(err, text, off)
			}
			off += len(part) + 1
			gs[i], p.hasNth, p.native = sub.match, p.hasNth || sub.hasNth, p.native && sub.native
		}
		p.match = anyOf(gs)
		return p, nil
	}
	x, err := newParser(text, text, cfg).parseSelector()
	if err != nil {
		return nil, err
	}
	p := &program{text: text, match: c.complex(x), hasNth: x.hasNth(), native: x.native()}
	if sel {
		p.plan = c.plan(x)
	}
	return p, nil
}

// inGroup makes err, reported for the group part starting at off, refer to the whole group.
func inGroup(err error, group string, off int) error {
	var (
		syntaxErr   *SyntaxError
		unknownErr  *UnknownSelectorError
		negationErr *NegationScopeError
	)
	switch {
	case errors.As(err, &syntaxErr):
		return &SyntaxError{Selector: group, Offset: off + syntaxErr.Offset, Msg: syntaxErr.Msg}
	case errors.As(err, &unknownErr):
		return &UnknownSelectorError{Selector: group, Token: unknownErr.Token}
	case errors.As(err, &negationErr):
		return &NegationScopeError{Selector: group, Arg: negationErr.Arg}
	}
	return err
}

// Validate reports whether selector is a valid selector group for this engine.
func (e *Engine) Validate(selector string) error {
	_, err := e.compile(Normalize(selector), mode{}, false)
	return err
}

// Compile validates selector and returns a reusable handle for it.
func (e *Engine) Compile(selector string) (*Selector, error) {
	text := Normalize(selector)
	if err := e.Validate(text); err != nil {
		return nil, err
	}
	return &Selector{e, text}, nil
}

// fail applies the error policy to selector errors.
func (e *Engine) fail(op, selector string, err error) error {
	var argErr *InvalidArgumentError
	if e.Options().VerboseErrors || errors.As(err, &argErr) {
		return err
	}
	util.Warnf(e.ctx, "css: %s %q: %s", op, selector, err)
	return nil
}

func validRoot(n Node) bool {
	switch n.Kind() {
	case ElementNode, DocumentNode, FragmentNode:
		return true
	}
	return false
}

// Match reports whether el matches selector. A non-nil scope must contain el and bounds
// every combinator. fs are called with el if it matches.
func (e *Engine) Match(el Node, selector string, scope Node, fs ...func(Node)) (bool, error) {
	if el == nil || el.Kind() != ElementNode {
		return false, &InvalidArgumentError{"match", "element required"}
	}
	text := Normalize(selector)
	if text == "" {
		return false, &InvalidArgumentError{"match", "empty selector"}
	}
	if scope != nil && !validRoot(scope) {
		return false, &InvalidArgumentError{"match", "scope must be an element, document or fragment"}
	} else if scope != nil && !Contains(scope, el) {
		return false, &InvalidArgumentError{"match", "scope does not contain element"}
	}
	o := e.Options()
	ec := newEvalContext(scope, el, o.Host)
	p, err := e.compile(text, ec.mode(), false)
	if err != nil {
		return false, e.fail("match", text, err)
	}
	ok := p.match(el, ec)
	if ok {
		for _, f := range fs {
			f(el)
		}
	}
	return ok, nil
}

// Select returns the elements below root matching selector in document order.
func (e *Engine) Select(selector string, root Node) ([]Node, error) {
	if root == nil || !validRoot(root) {
		return nil, &InvalidArgumentError{"select", "root must be an element, document or fragment"}
	}
	text := Normalize(selector)
	if text == "" {
		return nil, nil
	}
	o, results := e.state()
	ec := newEvalContext(root, nil, o.Host)
	k, cacheable := results.key(text, root, ec.Document)
	cacheable = cacheable && o.CacheResults
	if cacheable {
		if ns, ok := results.get(k); ok {
			return ns, nil
		}
	}
	p, err := e.compile(text, ec.mode(), true)
	if err != nil {
		return nil, e.fail("select", text, err)
	}
	ns, ok := e.native(p, root, ec, o)
	if !ok {
		ns = p.run(root, ec, o.Host)
	}
	if cacheable {
		results.set(k, ns)
	}
	return ns, nil
}

// native delegates p to the host when the host evaluates it the way p.run would:
// whole html documents in no-quirks mode and selectors made of plain tokens only.
func (e *Engine) native(p *program, root Node, ec *EvalContext, o Options) ([]Node, bool) {
	h, ok := root.(NativeSelector)
	if !o.NativeFastPath || !ok || !p.native || root.Kind() != DocumentNode ||
		ec.XML || ec.Quirks || o.Host.WildcardNonElements {
		return nil, false
	}
	ns, err := h.QuerySelectorAll(p.text)
	if err != nil {
		util.Debugf(e.ctx, "css: native %q: %s", p.text, err)
		return nil, false
	}
	return ns, true
}

// Invalidate signals a structural or attribute mutation somewhere in the document of n.
func (e *Engine) Invalidate(n Node) {
	_, results := e.state()
	gen := results.invalidate(documentOf(n))
	util.Debugf(e.ctx, "css: invalidated results (generation %d)", gen)
}

// Expire drops every cached result.
func (e *Engine) Expire() {
	_, results := e.state()
	results.expire()
}

// Selector is a validated selector bound to an engine.
type Selector struct {
	e    *Engine
	text string
}

func (s *Selector) String() string { return s.text }

func (s *Selector) Match(n Node) bool {
	ok, _ := s.e.Match(n, s.text, nil)
	return ok
}

func (s *Selector) Select(root Node) []Node {
	ns, _ := s.e.Select(s.text, root)
	return ns
}
