package css

import "strings"

// Normalize strips surrounding whitespace and reduces every other whitespace run outside
// of quoted strings to a single space, or to nothing where the space carries no meaning
// (around combinators and commas, inside brackets and parentheses).
func Normalize(selector string) string {
	var b strings.Builder
	b.Grow(len(selector))
	s, space, quote, brackets := strings.TrimSpace(selector), false, rune(0), 0
	last := func() byte {
		if b.Len() == 0 {
			return 0
		}
		return b.String()[b.Len()-1]
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			b.WriteByte(c)
			if c == '\\' && i+1 < len(s) {
				i++
				b.WriteByte(s[i])
			} else if rune(c) == quote {
				quote = 0
			}
			continue
		case isWhitespace(rune(c)):
			space = true
			continue
		}
		if space && keepSpace(last(), s[i:], brackets > 0) {
			b.WriteByte(' ')
		}
		space = false
		switch c {
		case '"', '\'':
			quote = rune(c)
		case '[':
			brackets++
		case ']':
			brackets--
		case '\\':
			if i+1 < len(s) {
				b.WriteByte(c)
				i++
				c = s[i]
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

func keepSpace(prev byte, rest string, inBrackets bool) bool {
	next := rest[0]
	if inBrackets {
		if prev == '[' || prev == '=' || next == ']' || next == '=' {
			return false
		}
		return !(len(rest) > 1 && rest[1] == '=' && !isNameChar(rune(next)))
	}
	return !strings.ContainsRune("(,>+~", rune(prev)) && !strings.ContainsRune("),>+~", rune(next))
}

// Split splits a selector group on its top-level commas.
// Commas inside brackets, parentheses, braces or quoted strings do not split.
func Split(group string) []string {
	var parts []string
	depth, quote, start := 0, byte(0), 0
	for i := 0; i < len(group); i++ {
		switch c := group[i]; {
		case c == '\\':
			i++
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '[' || c == '(' || c == '{':
			depth++
		case c == ']' || c == ')' || c == '}':
			if depth > 0 {
				depth--
			}
		case c == ',' && depth == 0:
			parts = append(parts, strings.TrimSpace(group[start:i]))
			start = i + 1
		}
	}
	return append(parts, strings.TrimSpace(group[start:]))
}
