package css_test

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/niklasfasching/nwsel/css"
	"github.com/niklasfasching/nwsel/soup"
	"github.com/niklasfasching/nwsel/util"
)

const list = `<!DOCTYPE html><ul id="list"><li id="a">x</li><li id="b">y</li><li id="c">z</li></ul>`

func newDocument(t testing.TB, s string, e *css.Engine) *soup.Document {
	d, err := soup.ParseDocument(strings.NewReader(s), e)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func newEngine(f func(*css.Options)) *css.Engine {
	o := css.DefaultOptions()
	if f != nil {
		f(&o)
	}
	return css.New(context.Background(), o)
}

// ids renders nodes as their id, or their tag name if they have none.
func ids(ns []css.Node) []string {
	out := []string{}
	for _, n := range ns {
		if id, ok := n.Attr("id"); ok {
			out = append(out, id)
		} else {
			out = append(out, n.TagName())
		}
	}
	return out
}

func selectIDs(t *testing.T, e *css.Engine, d *soup.Document, s string) []string {
	t.Helper()
	ns, err := e.Select(s, d.Node(d.Root))
	if err != nil {
		t.Fatalf("%s: %s", s, err)
	}
	return ids(ns)
}

func byID(d *soup.Document, id string) css.Node {
	ns, _ := d.Engine.Select("#"+id, d.Node(d.Root))
	if len(ns) == 0 {
		return nil
	}
	return ns[0]
}

func TestScenarios(t *testing.T) {
	e := newEngine(nil)
	d := newDocument(t, list, e)
	for s, expected := range map[string][]string{
		"#list > li:nth-child(2)":    {"b"},
		"li:not(#a):not(#c)":         {"b"},
		"ul#list > li:first-child":   {"a"},
		"ul#list > li:last-child":    {"c"},
		"ul li":                      {"a", "b", "c"},
		"li + li":                    {"b", "c"},
		"#a ~ li":                    {"b", "c"},
		"#list li:nth-last-child(1)": {"c"},
		"li:only-child":              {},
		"ul:only-child":              {"list"},
	} {
		if actual := selectIDs(t, e, d, s); !reflect.DeepEqual(actual, expected) {
			t.Errorf("%s\ngot:\n\t'%#v'\n\nexpected:\n\t'%#v'", s, actual, expected)
		}
	}

	d = newDocument(t, `<!DOCTYPE html><div class="a b"><span></span></div>`, e)
	div := d.Node(d.Root).(css.ElementsByTagName).ElementsByTagName("div")[0]
	if ok, err := e.Match(div, ".a.b", nil); !ok || err != nil {
		t.Errorf(".a.b: got %t, %v", ok, err)
	}
	if ok, err := e.Match(div, ".a.c", nil); ok || err != nil {
		t.Errorf(".a.c: got %t, %v", ok, err)
	}

	page := `<!DOCTYPE html><div id="hello" title="hello"></div><div id="Hel" title="Hel"></div>`
	for _, caseSensitive := range []bool{false, true} {
		e := newEngine(func(o *css.Options) { o.Host.CaseSensitive = caseSensitive })
		d := newDocument(t, page, e)
		if actual := selectIDs(t, e, d, `div[title^="hel"]`); !reflect.DeepEqual(actual, []string{"hello"}) {
			t.Errorf("case sensitive %t: got %v", caseSensitive, actual)
		}
	}
}

func TestCaseSensitiveTagNames(t *testing.T) {
	e := newEngine(func(o *css.Options) { o.Host.CaseSensitive = true })
	d := newDocument(t, `<!DOCTYPE html><div id="d"><p id="p"></p></div>`, e)
	for s, expected := range map[string][]string{
		"div":     {"d"},
		"DIV":     {},
		"DIV > p": {},
		"div > P": {},
		"div > p": {"p"},
	} {
		if actual := selectIDs(t, e, d, s); !reflect.DeepEqual(actual, expected) {
			t.Errorf("%s\ngot:\n\t'%#v'\n\nexpected:\n\t'%#v'", s, actual, expected)
		}
	}
	if ok, err := e.Match(byID(d, "d"), "DIV", nil); ok || err != nil {
		t.Errorf("DIV: got %t, %v", ok, err)
	}
}

func TestSelectAfterMutation(t *testing.T) {
	e := newEngine(func(o *css.Options) { o.CacheResults = true })
	d := newDocument(t, list, e)
	s := "#list > li:nth-child(2)"
	if actual := selectIDs(t, e, d, s); !reflect.DeepEqual(actual, []string{"b"}) {
		t.Fatalf("got %v", actual)
	}
	b := d.Nodes([]css.Node{byID(d, "b")})[0]
	d.RemoveChild(b.Parent, b)
	if actual := selectIDs(t, e, d, s); !reflect.DeepEqual(actual, []string{"c"}) {
		t.Errorf("expected recomputed result after mutation, got %v", actual)
	}
}

func TestSelectEqualsFilterMatch(t *testing.T) {
	e := newEngine(nil)
	d := newDocument(t, list, e)
	root := d.Node(d.Root)
	for _, s := range []string{"li", "#list > li:nth-child(2)", ":not(li)", "ul > *", "li ~ li", "* + li", "ul, li#b", ":root", ":empty"} {
		assertFilterMatch(t, e, s, root)
		assertFilterMatch(t, e, s, byID(d, "list"))
	}
}

func assertFilterMatch(t *testing.T, e *css.Engine, s string, root css.Node) {
	t.Helper()
	actual, err := e.Select(s, root)
	if err != nil {
		t.Fatalf("%s: %s", s, err)
	}
	expected := []css.Node{}
	for _, n := range css.Descendants(root) {
		ok, err := e.Match(n, s, root)
		if err != nil {
			t.Fatalf("%s: %s", s, err)
		} else if ok {
			expected = append(expected, n)
		}
	}
	if !reflect.DeepEqual(ids(actual), ids(expected)) {
		t.Errorf("%s\ngot:\n\t'%#v'\n\nexpected:\n\t'%#v'", s, ids(actual), ids(expected))
	}
}

func TestScopedSelect(t *testing.T) {
	e := newEngine(nil)
	d := newDocument(t, `<!DOCTYPE html><div id="out"><p id="p1"></p><div id="in"><p id="p2"></p><p id="p3"></p></div></div>`, e)
	in := byID(d, "in")
	for s, expected := range map[string][]string{
		"p":       {"p2", "p3"},
		"div p":   {"p2", "p3"},
		"#out p":  {},
		"div > p": {"p2", "p3"},
		"p + p":   {"p3"},
		"div ~ p": {},
		"#in":     {},
		"#in > p": {"p2", "p3"},
	} {
		ns, err := e.Select(s, in)
		if err != nil {
			t.Fatal(err)
		} else if actual := ids(ns); !reflect.DeepEqual(actual, expected) {
			t.Errorf("%s\ngot:\n\t'%#v'\n\nexpected:\n\t'%#v'", s, actual, expected)
		}
	}
	p2 := byID(d, "p2")
	if ok, _ := e.Match(p2, "#out p", in); ok {
		t.Errorf("expected scope to bound the descendant combinator")
	}
	if ok, _ := e.Match(p2, "#out p", nil); !ok {
		t.Errorf("expected unscoped match")
	}
}

func TestNthIdentities(t *testing.T) {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html><ol>")
	for i := 1; i <= 9; i++ {
		fmt.Fprintf(&b, `<li id="i%d"></li>`, i)
		if i%3 == 0 {
			fmt.Fprintf(&b, `<p id="p%d"></p>`, i)
		}
	}
	b.WriteString("</ol>")
	e := newEngine(nil)
	d := newDocument(t, b.String(), e)
	for _, pair := range [][2]string{
		{":nth-child(2n+1)", ":nth-child(odd)"},
		{":nth-child(2n)", ":nth-child(even)"},
		{":first-child", ":nth-child(1)"},
		{":last-child", ":nth-last-child(1)"},
		{"li:first-of-type", "li:nth-of-type(1)"},
		{"li:last-of-type", "li:nth-last-of-type(1)"},
		{"ol > :nth-child(n)", "ol > *"},
		{"li:nth-child(-n+3)", "#i1, #i2, #i3"},
	} {
		l, r := selectIDs(t, e, d, pair[0]), selectIDs(t, e, d, pair[1])
		if !reflect.DeepEqual(l, r) {
			t.Errorf("%s != %s\ngot:\n\t'%#v'\n\nexpected:\n\t'%#v'", pair[0], pair[1], l, r)
		}
	}
	if actual := selectIDs(t, e, d, "p:nth-of-type(2)"); !reflect.DeepEqual(actual, []string{"p6"}) {
		t.Errorf("got %v", actual)
	}
	if actual := selectIDs(t, e, d, "li:nth-child(3n)"); !reflect.DeepEqual(actual, []string{"i3", "i5", "i7"}) {
		t.Errorf("got %v", actual)
	}
}

func TestNegationRoundTrip(t *testing.T) {
	e := newEngine(nil)
	d := newDocument(t, `<!DOCTYPE html><body><p class="x" title="t">a</p><p>b</p><div id="a" class="x y"><span lang="en">c</span></div></body>`, e)
	root := d.Node(d.Root)
	all := ids(css.Descendants(root))
	for _, s := range []string{"p", ".x", "#a", "[title]", ":first-child", "*", "span:lang(en)", "div.x.y", "[class~=y]"} {
		in, _ := e.Select(s, root)
		out, _ := e.Select(":not("+s+")", root)
		seen := map[css.Node]bool{}
		for _, n := range in {
			seen[n] = true
		}
		for _, n := range out {
			if seen[n] {
				t.Errorf("%s: %s is in both results", s, n.TagName())
			}
			seen[n] = true
		}
		if len(seen) != len(all) {
			t.Errorf("%s: union has %d elements, expected %d", s, len(seen), len(all))
		}
	}
}

func TestAttributeOperators(t *testing.T) {
	e := newEngine(nil)
	d := newDocument(t, `<!DOCTYPE html>
<a id="empty" title=""></a>
<a id="none"></a>
<a id="words" title="foo bar"></a>
<a id="dash" title="en-US" type="TEXT"></a>`, e)
	for s, expected := range map[string][]string{
		`[title]`:          {"empty", "words", "dash"},
		`[title=""]`:       {"empty"},
		`[title^=""]`:      {},
		`[title$=""]`:      {},
		`[title*=""]`:      {},
		`[title~=""]`:      {},
		`[title~="foo"]`:   {"words"},
		`[title~="o b"]`:   {},
		`[title|="en"]`:    {"dash"},
		`[title|=""]`:      {"empty"},
		`[title!="en-US"]`: {"empty", "none", "words"},
		`[title^=foo]`:     {"words"},
		`[title$=US]`:      {"dash"},
		`[title*="o b"]`:   {"words"},
		`[type=text]`:      {"dash"},
		`[TITLE=""]`:       {"empty"},
	} {
		if actual := selectIDs(t, e, d, "a"+s); !reflect.DeepEqual(actual, expected) {
			t.Errorf("%s\ngot:\n\t'%#v'\n\nexpected:\n\t'%#v'", s, actual, expected)
		}
	}
}

func TestPseudoClasses(t *testing.T) {
	e := newEngine(nil)
	d := newDocument(t, `<!DOCTYPE html><html lang="de"><body>
<form>
  <input id="cb" type="checkbox" checked>
  <input id="rd" type="radio">
  <input id="hidden" type="hidden">
  <input id="ro" readonly required>
  <select id="sel"><option id="o1">1</option><option id="o2" selected>2</option></select>
  <button id="btn" disabled>b</button>
  <textarea id="ta"></textarea>
</form>
<p id="empty"> </p><p id="full">text <b>bold</b></p>
<div id="en" lang="en-GB"><span id="deep"></span></div>
</body></html>`, e)
	for s, expected := range map[string][]string{
		":checked":              {"cb", "o2"},
		":selected":             {"o2"},
		":disabled":             {"btn"},
		"input:enabled":         {"cb", "rd", "ro"},
		":required":             {"ro"},
		"input:optional":        {"cb", "rd", "hidden"},
		":read-only":            {"ro"},
		"textarea:read-write":   {"ta"},
		"p:empty":               {"empty"},
		":root":                 {"html"},
		"span:lang(en)":         {"deep"},
		"p:lang(de)":            {"empty", "full"},
		`p:contains("bold")`:    {"full"},
		"p:contains(text)":      {"full"},
		"b:contains('missing')": {},
	} {
		if actual := selectIDs(t, e, d, s); !reflect.DeepEqual(actual, expected) {
			t.Errorf("%s\ngot:\n\t'%#v'\n\nexpected:\n\t'%#v'", s, actual, expected)
		}
	}

	e = newEngine(func(o *css.Options) { o.HTML5Checked = false })
	d.Engine = e
	if actual := selectIDs(t, e, d, ":checked"); !reflect.DeepEqual(actual, []string{"cb"}) {
		t.Errorf("expected :checked to ignore <option> without HTML5Checked, got %v", actual)
	}
}

func TestPseudoClassNamesIgnoreCase(t *testing.T) {
	e := newEngine(nil)
	d := newDocument(t, `<!DOCTYPE html><input id="c" type="checkbox" checked><input id="d" disabled><p id="p" lang="en-US">x</p>`, e)
	for s, expected := range map[string][]string{
		":Checked":       {"c"},
		"input:DISABLED": {"d"},
		"input:Enabled":  {"c"},
		":LANG(en)":      {"p"},
		"p:HOVER":        {},
		"P:First-Child":  {},
	} {
		if actual := selectIDs(t, e, d, s); !reflect.DeepEqual(actual, expected) {
			t.Errorf("%s\ngot:\n\t'%#v'\n\nexpected:\n\t'%#v'", s, actual, expected)
		}
	}
}

func TestErrors(t *testing.T) {
	e := newEngine(nil)
	d := newDocument(t, list, e)
	root, li := d.Node(d.Root), byID(d, "a")

	var syntaxErr *css.SyntaxError
	if _, err := e.Select("div[", root); !errors.As(err, &syntaxErr) || syntaxErr.Selector != "div[" {
		t.Errorf("expected SyntaxError, got %v", err)
	}
	var unknownErr *css.UnknownSelectorError
	if _, err := e.Select("li:bogus", root); !errors.As(err, &unknownErr) || unknownErr.Token != ":bogus" {
		t.Errorf("expected UnknownSelectorError, got %v", err)
	}
	if _, err := e.Select("li:bogus(1)", root); !errors.As(err, &unknownErr) || unknownErr.Token != ":bogus(1)" {
		t.Errorf("expected UnknownSelectorError, got %v", err)
	}

	var argErr *css.InvalidArgumentError
	text := d.Node(d.Nodes([]css.Node{li})[0].FirstChild)
	for name, f := range map[string]func() error{
		"nil element":    func() error { _, err := e.Match(nil, "li", nil); return err },
		"text element":   func() error { _, err := e.Match(text, "li", nil); return err },
		"empty selector": func() error { _, err := e.Match(li, "  ", nil); return err },
		"bad scope":      func() error { _, err := e.Match(li, "li", text); return err },
		"foreign scope":  func() error { _, err := e.Match(li, "li", byID(d, "b")); return err },
		"nil root":       func() error { _, err := e.Select("li", nil); return err },
		"text root":      func() error { _, err := e.Select("li", text); return err },
	} {
		if err := f(); !errors.As(err, &argErr) {
			t.Errorf("%s: expected InvalidArgumentError, got %v", name, err)
		}
	}
	if ns, err := e.Select("", root); ns != nil || err != nil {
		t.Errorf("expected empty selector to soft fail, got %v, %v", ns, err)
	}
	if err := e.Validate("li > "); err == nil {
		t.Errorf("expected Validate to reject dangling combinator")
	}
	if _, err := e.Compile("a:b:c"); err == nil {
		t.Errorf("expected Compile to fail")
	}

	if err := e.Validate("a,"); !errors.As(err, &syntaxErr) || syntaxErr.Selector != "a," || syntaxErr.Offset != 2 {
		t.Errorf("expected SyntaxError for the whole group at 2, got %#v", err)
	}
	if err := e.Validate("p, div["); !errors.As(err, &syntaxErr) || syntaxErr.Selector != "p,div[" || syntaxErr.Offset < 2 {
		t.Errorf("expected SyntaxError for the whole group behind the comma, got %#v", err)
	}
	if err := e.Validate("li,li:bogus"); !errors.As(err, &unknownErr) || unknownErr.Selector != "li,li:bogus" {
		t.Errorf("expected UnknownSelectorError for the whole group, got %#v", err)
	}
}

func TestSimpleNegation(t *testing.T) {
	e := newEngine(func(o *css.Options) { o.SimpleNegation = true })
	var negationErr *css.NegationScopeError
	for s, ok := range map[string]bool{
		":not(.a)":       true,
		":not(li#a.b)":   true,
		":not(ul li)":    false,
		":not(.a, .b)":   false,
		":not(:not(.a))": false,
	} {
		err := e.Validate(s)
		if ok && err != nil {
			t.Errorf("%s: unexpected error %s", s, err)
		} else if !ok && !errors.As(err, &negationErr) {
			t.Errorf("%s: expected NegationScopeError, got %v", s, err)
		}
	}
	if err := newEngine(nil).Validate(":not(ul li, :not(.a))"); err != nil {
		t.Errorf("expected complex negation without SimpleNegation, got %s", err)
	}
}

func TestQuietErrors(t *testing.T) {
	var msgs []string
	ctx := util.WithLogger(context.Background(), util.WithLvl(util.WARN, func(lvl util.Lvl, msg string) {
		msgs = append(msgs, lvl.String()+" "+msg)
	}))
	o := css.DefaultOptions()
	o.VerboseErrors = false
	e := css.New(ctx, o)
	d := newDocument(t, list, e)
	if ns, err := e.Select("li[", d.Node(d.Root)); ns != nil || err != nil {
		t.Errorf("expected no result and no error, got %v, %v", ns, err)
	}
	if ok, err := e.Match(byID(d, "a"), "li:bogus", nil); ok || err != nil {
		t.Errorf("expected no match and no error, got %t, %v", ok, err)
	}
	if _, err := e.Match(nil, "li", nil); err == nil {
		t.Errorf("expected argument errors to be returned regardless")
	}
	if len(msgs) != 2 || !strings.HasPrefix(msgs[0], "WARN css: select") || !strings.HasPrefix(msgs[1], "WARN css: match") {
		t.Errorf("got:\n\t'%#v'", msgs)
	}
}

func TestRegistry(t *testing.T) {
	e := newEngine(nil)
	d := newDocument(t, `<!DOCTYPE html><p id="a">Hello</p><p id="b" data-x="FOO">bye</p>`, e)
	if err := e.Validate("p:icontains(hello)"); err == nil {
		t.Fatalf("expected unknown pseudo-class before registration")
	}
	err := e.RegisterPseudoClass(`:icontains\(([^)]*)\)`, func(m []string, _ css.Options) (css.Guard, bool) {
		s := strings.ToLower(m[1])
		return func(n css.Node, _ *css.EvalContext) bool {
			return strings.Contains(strings.ToLower(css.Text(n)), s)
		}, true
	})
	if err != nil {
		t.Fatal(err)
	}
	if actual := selectIDs(t, e, d, "p:icontains(hello)"); !reflect.DeepEqual(actual, []string{"a"}) {
		t.Errorf("got %v", actual)
	}
	if err := e.RegisterPseudoClass(`:broken(`, nil); err == nil {
		t.Errorf("expected error for bad pattern")
	}

	if err := e.RegisterAttributeOperator("%=", strings.EqualFold); err != nil {
		t.Fatal(err)
	}
	if actual := selectIDs(t, e, d, `p[data-x %= "foo"]`); !reflect.DeepEqual(actual, []string{"b"}) {
		t.Errorf("got %v", actual)
	}
	for _, symbol := range []string{"==", "ab=", "%", "a=", "%%=", "^=", "!=", "="} {
		if err := e.RegisterAttributeOperator(symbol, strings.EqualFold); err == nil {
			t.Errorf("%q: expected error", symbol)
		}
	}
	expected := []string{"!=", "$=", "%=", "*=", "=", "^=", "|=", "~="}
	if actual := e.Operators(); !reflect.DeepEqual(actual, expected) {
		t.Errorf("got:\n\t'%#v'\n\nexpected:\n\t'%#v'", actual, expected)
	}
	if actual := selectIDs(t, e, d, `p[id^="a"]`); !reflect.DeepEqual(actual, []string{"a"}) {
		t.Errorf("expected the built-in ^= to be kept, got %v", actual)
	}
}

func TestReregisterOperator(t *testing.T) {
	e := newEngine(func(o *css.Options) { o.CacheResults, o.Debounce = true, 0 })
	d := newDocument(t, `<!DOCTYPE html><p id="a" data-x="FOO"></p>`, e)
	if err := e.RegisterAttributeOperator("%=", strings.EqualFold); err != nil {
		t.Fatal(err)
	}
	if actual := selectIDs(t, e, d, `p[data-x%="foo"]`); !reflect.DeepEqual(actual, []string{"a"}) {
		t.Fatalf("got %v", actual)
	}
	if err := e.RegisterAttributeOperator("%=", func(v, s string) bool { return v == s }); err != nil {
		t.Fatal(err)
	}
	if actual := selectIDs(t, e, d, `p[data-x%="foo"]`); !reflect.DeepEqual(actual, []string{}) {
		t.Errorf("expected results of the replaced operator, got %v", actual)
	}
}

func TestMatchCallbacks(t *testing.T) {
	e := newEngine(nil)
	d := newDocument(t, list, e)
	var matched []css.Node
	collect := func(n css.Node) { matched = append(matched, n) }
	for _, n := range css.Descendants(d.Node(d.Root)) {
		if _, err := e.Match(n, "li:not(#b)", nil, collect); err != nil {
			t.Fatal(err)
		}
	}
	if actual := ids(matched); !reflect.DeepEqual(actual, []string{"a", "c"}) {
		t.Errorf("got %v", actual)
	}
}

func TestCompiledSelector(t *testing.T) {
	d := newDocument(t, list, nil)
	s := css.MustCompile("  ul   >  li:last-child ")
	if s.String() != "ul>li:last-child" {
		t.Errorf("got %q", s.String())
	}
	if n := css.First(s, d.Node(d.Root)); n == nil || !s.Match(n) || ids([]css.Node{n})[0] != "c" {
		t.Errorf("unexpected First result %v", n)
	}
	if ns := css.All(css.MustCompile("li"), d.Node(d.Root)); len(ns) != 3 {
		t.Errorf("expected 3 li, got %d", len(ns))
	}
	if n := css.First(css.MustCompile("p"), d.Node(d.Root)); n != nil {
		t.Errorf("expected nil, got %v", n)
	}
	defer func() {
		if recover() == nil {
			t.Errorf("expected MustCompile to panic")
		}
	}()
	css.MustCompile("[")
}

func countCompiles(ctx context.Context) (context.Context, func() int) {
	mu, n := sync.Mutex{}, 0
	ctx = util.WithLogger(ctx, func(_ util.Lvl, msg string) {
		if strings.HasPrefix(msg, "css: compiled") {
			mu.Lock()
			n++
			mu.Unlock()
		}
	})
	return ctx, func() int {
		mu.Lock()
		defer mu.Unlock()
		return n
	}
}

func TestResultCache(t *testing.T) {
	ctx, compiles := countCompiles(context.Background())
	o := css.DefaultOptions()
	o.CacheResults, o.Debounce = true, 30*time.Millisecond
	e := css.New(ctx, o)
	d := newDocument(t, list, e)
	root := d.Node(d.Root)

	ns1, _ := e.Select("li", root)
	ns2, _ := e.Select("  li ", root)
	if &ns1[0] != &ns2[0] || compiles() != 1 {
		t.Fatalf("expected cached identical result from a single compilation, got %d compilations", compiles())
	}

	e.Invalidate(root)
	ns3, _ := e.Select("li", root)
	ns4, _ := e.Select("li", root)
	if &ns3[0] == &ns1[0] || &ns3[0] == &ns4[0] {
		t.Errorf("expected the cache to be bypassed while paused")
	}
	if compiles() != 1 {
		t.Errorf("expected the compiled program to survive invalidation, got %d compilations", compiles())
	}

	time.Sleep(150 * time.Millisecond)
	ns5, _ := e.Select("li", root)
	ns6, _ := e.Select("li", root)
	if &ns5[0] != &ns6[0] {
		t.Errorf("expected caching to resume after the debounce interval")
	}

	e.Expire()
	if ns7, _ := e.Select("li", root); &ns7[0] == &ns6[0] {
		t.Errorf("expected Expire to drop cached results")
	}

	other := newDocument(t, list, e)
	on1, _ := e.Select("li", other.Node(other.Root))
	e.Invalidate(root)
	on2, _ := e.Select("li", other.Node(other.Root))
	if &on1[0] != &on2[0] {
		t.Errorf("expected invalidation to be scoped to its document")
	}

	before := compiles()
	e.Configure(o)
	e.Select("li", root)
	if compiles() != before+1 {
		t.Errorf("expected Configure to drop compiled programs")
	}
}

func TestConcurrentSelect(t *testing.T) {
	ctx, compiles := countCompiles(context.Background())
	e := css.New(ctx, css.DefaultOptions())
	d := newDocument(t, list, e)
	root := d.Node(d.Root)
	wg, errs := sync.WaitGroup{}, make(chan error, 64)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ns, err := e.Select("ul > li:nth-child(odd)", root)
			if err != nil {
				errs <- err
			} else if actual := ids(ns); !reflect.DeepEqual(actual, []string{"a", "c"}) {
				errs <- fmt.Errorf("got %v", actual)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
	if compiles() != 1 {
		t.Errorf("expected a single compilation, got %d", compiles())
	}
}

func TestSelectEach(t *testing.T) {
	e := newEngine(nil)
	d := newDocument(t, `<!DOCTYPE html><div id="x"><p id="x1"></p></div><div id="y"><p id="y1"></p><p id="y2"></p></div>`, e)
	roots := []css.Node{byID(d, "x"), byID(d, "y"), d.Node(d.Root)}
	results, err := e.SelectEach(context.Background(), "p", roots)
	if err != nil {
		t.Fatal(err)
	}
	actual := [][]string{ids(results[0]), ids(results[1]), ids(results[2])}
	expected := [][]string{{"x1"}, {"y1", "y2"}, {"x1", "y1", "y2"}}
	if !reflect.DeepEqual(actual, expected) {
		t.Errorf("got:\n\t'%#v'\n\nexpected:\n\t'%#v'", actual, expected)
	}
	if _, err := e.SelectEach(context.Background(), "p[", roots); err == nil {
		t.Errorf("expected error")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.SelectEach(ctx, "p", roots); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestWithoutBulkLookup(t *testing.T) {
	plain := newEngine(nil)
	bare := newEngine(func(o *css.Options) { o.Host = css.Capabilities{} })
	d := newDocument(t, list, plain)
	for _, s := range []string{"li", "#b", ".x", "ul li#c", "#list > li", "*"} {
		expected := selectIDs(t, plain, d, s)
		if actual := selectIDs(t, bare, d, s); !reflect.DeepEqual(actual, expected) {
			t.Errorf("%s\ngot:\n\t'%#v'\n\nexpected:\n\t'%#v'", s, actual, expected)
		}
	}
}

func TestDuplicateIDs(t *testing.T) {
	e := newEngine(nil)
	d := newDocument(t, `<!DOCTYPE html><div id="d"><p id="d"></p></div><p id="d"></p>`, e)
	if actual := selectIDs(t, e, d, "#d"); len(actual) != 3 {
		t.Errorf("expected all elements with the id, got %v", actual)
	}
	ns, _ := e.Select("#d p", d.Node(d.Root))
	if len(ns) != 1 || d.Nodes(ns)[0].Parent.Data != "div" {
		t.Errorf("expected the nested p only, got %d", len(ns))
	}
}

func TestReplacementCharacter(t *testing.T) {
	e := newEngine(nil)
	d := newDocument(t, "<!DOCTYPE html><p id=\"p\" title=\"�\" class=\"�\"></p>", e)
	for _, s := range []string{"[title=\"�\"]", "p.�", `.\fffd`, `[title=\fffd]`} {
		if actual := selectIDs(t, e, d, s); !reflect.DeepEqual(actual, []string{"p"}) {
			t.Errorf("%s\ngot:\n\t'%#v'\n\nexpected:\n\t'%#v'", s, actual, []string{"p"})
		}
	}
}
