package css

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// AttributeOperator compares an attribute value against the selector literal.
type AttributeOperator func(value, literal string) bool

func builtinOperators() map[string]AttributeOperator {
	return map[string]AttributeOperator{
		"=":  func(av, sv string) bool { return av == sv },
		"!=": func(av, sv string) bool { return av != sv },
		"~=": includeMatch,
		"|=": func(av, sv string) bool { return av == sv || strings.HasPrefix(av, sv+"-") },
		"^=": func(av, sv string) bool { return sv != "" && strings.HasPrefix(av, sv) },
		"$=": func(av, sv string) bool { return sv != "" && strings.HasSuffix(av, sv) },
		"*=": func(av, sv string) bool { return sv != "" && strings.Contains(av, sv) },
	}
}

// includeMatch reports whether sValue is one of the whitespace separated tokens of value.
func includeMatch(value, sValue string) bool {
	if sValue == "" || strings.IndexAny(sValue, " \t\r\n\f") != -1 {
		return false
	}
	for {
		if i := strings.IndexAny(value, " \t\r\n\f"); i == -1 {
			return value == sValue
		} else if value[:i] == sValue {
			return true
		} else {
			value = value[i+1:]
		}
	}
}

func checkOperatorSymbol(symbol string) error {
	r, w := utf8.DecodeRuneInString(symbol)
	if len(symbol) != w+1 || symbol[w] != '=' || isNameChar(r) || isWhitespace(r) ||
		strings.ContainsRune(`"'[]()=,>+*#.:`, r) {
		return fmt.Errorf("invalid attribute operator %q: must be a single symbol followed by '='", symbol)
	} else if _, ok := builtinOperators()[symbol]; ok {
		return fmt.Errorf("invalid attribute operator %q: built-in operators cannot be replaced", symbol)
	}
	return nil
}

func sortedOperators(ops map[string]AttributeOperator) []string {
	ks := maps.Keys(ops)
	slices.Sort(ks)
	return ks
}

// Attribute values of these attributes are compared case-insensitively in markup documents.
var htmlInsensitive = set(
	"accept", "accept-charset", "align", "alink", "axis", "bgcolor", "charset", "checked",
	"clear", "codetype", "color", "compact", "declare", "defer", "dir", "direction", "disabled",
	"enctype", "face", "frame", "hreflang", "http-equiv", "lang", "language", "link", "media",
	"method", "multiple", "nohref", "noresize", "noshade", "nowrap", "readonly", "rel", "rev",
	"rules", "scope", "scrolling", "selected", "shape", "target", "text", "type", "valign",
	"valuetype", "vlink",
)

// Same for foreign (XML) documents.
var xmlInsensitive = set(
	"accept", "accept-charset", "alink", "axis", "bgcolor", "charset", "codetype", "color",
	"enctype", "face", "hreflang", "http-equiv", "lang", "language", "link", "media", "rel",
	"rev", "target", "text", "type", "vlink",
)

func set(ks ...string) map[string]bool {
	m := make(map[string]bool, len(ks))
	for _, k := range ks {
		m[k] = true
	}
	return m
}

func foldsValue(name string, m mode) bool {
	if m.XML {
		return xmlInsensitive[name]
	}
	return htmlInsensitive[strings.ToLower(name)]
}

func compileAttribute(t Attribute, op AttributeOperator, m mode) Guard {
	name := t.Name
	if !m.XML {
		name = strings.ToLower(name)
	}
	if t.Op == "" {
		return func(n Node, c *EvalContext) bool { return hasAttr(n, name) }
	}
	literal, fold := t.Value, foldsValue(name, m)
	if fold {
		literal = strings.ToLower(literal)
	}
	negated := t.Op == "!="
	return func(n Node, c *EvalContext) bool {
		v, ok := n.Attr(name)
		if !ok {
			return negated
		}
		if fold {
			v = strings.ToLower(v)
		}
		return op(v, literal)
	}
}
