// https://drafts.csswg.org/cssom/#common-serializing-idioms
package css

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

func EscapeIdentifier(unescaped string) string {
	var b strings.Builder
	for i, r := range unescaped {
		switch {
		case r == '\u0000':
			b.WriteRune('\uFFFD')
		case r >= '\u0001' && r <= '\u001F', r == '\u007F',
			i == 0 && isDigit(r),
			i == 1 && isDigit(r) && unescaped[0] == '-':
			writeCodePoint(&b, r)
		case i == 0 && len(unescaped) == 1 && r == '-':
			b.WriteString(`\-`)
		case r == '-' || r == '_' || r >= '\u0080' || isDigit(r) ||
			'A' <= r && r <= 'Z' || 'a' <= r && r <= 'z':
			b.WriteRune(r)
		default:
			b.WriteByte('\\')
			b.WriteRune(r)
		}
	}
	return b.String()
}

func EscapeString(unescaped string) string {
	var b strings.Builder
	for _, r := range unescaped {
		switch {
		case r == '\u0000':
			b.WriteRune('\uFFFD')
		case r >= '\u0001' && r <= '\u001F', r == '\u007F':
			writeCodePoint(&b, r)
		case r == '"' || r == '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func writeCodePoint(b *strings.Builder, r rune) {
	b.WriteByte('\\')
	b.WriteString(strconv.FormatInt(int64(r), 16))
	b.WriteByte(' ')
}

func Unescape(escaped string) string {
	if !strings.Contains(escaped, "\\") {
		return escaped
	}
	var b strings.Builder
	for i := 0; i < len(escaped); {
		r, w := utf8.DecodeRuneInString(escaped[i:])
		i += w
		switch {
		case r == '\\' && i == len(escaped):
			b.WriteRune(unicode.ReplacementChar)
		case r == '\\' && !isHexDigit(rune(escaped[i])):
			_, w := utf8.DecodeRuneInString(escaped[i:])
			b.WriteString(escaped[i : i+w])
			i += w
		case r == '\\':
			j := i
			for ; j < i+6 && j < len(escaped) && isHexDigit(rune(escaped[j])); j++ {
			}
			cp, _ := strconv.ParseUint(escaped[i:j], 16, 32)
			if cp == 0 || cp > unicode.MaxRune || 0xD800 <= cp && cp <= 0xDFFF {
				cp = unicode.ReplacementChar
			}
			b.WriteRune(rune(cp))
			if i = j; i < len(escaped) && unicode.IsSpace(rune(escaped[i])) {
				i++
			}
		default:
			b.WriteString(escaped[i-w : i])
		}
	}
	return b.String()
}
