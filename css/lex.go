/*
https://www.w3.org/TR/2018/CR-selectors-3-20180130/#w3cselgrammar
*/
package css

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

type token struct {
	category tokenCategory
	string   string
	raw      string
	index    int
}

type tokenCategory int

const (
	tokenEOF tokenCategory = iota
	tokenError
	tokenSpace
	tokenUniversal
	tokenClass
	tokenIdent
	tokenID
	tokenPseudoClass
	tokenPseudoFunction
	tokenFunctionArguments
	tokenString
	tokenMatcher
	tokenCombinator
	tokenComma
	tokenBracketOpen
	tokenBracketClose
)

const eof = -1

type stateFn func(*lexer) stateFn

// lexer produces tokens on demand so the parser can hand parts of the input to
// pseudo-class handlers and resume lexing behind whatever they consumed.
type lexer struct {
	input    string
	index    int
	start    int
	width    int
	state    stateFn
	tokens   []token
	matchers func(string) bool
}

func newLexer(input string, matchers func(string) bool) *lexer {
	return &lexer{input: input, state: lexSpace, matchers: matchers}
}

func (l *lexer) token() token {
	for len(l.tokens) == 0 && l.state != nil {
		l.state = l.state(l)
	}
	if len(l.tokens) == 0 {
		return token{category: tokenEOF, index: len(l.input)}
	}
	t := l.tokens[0]
	l.tokens = l.tokens[1:]
	return t
}

func (l *lexer) seek(i int) {
	l.index, l.start, l.width, l.tokens, l.state = i, i, 0, nil, lexSpace
}

func (l *lexer) next() rune {
	if l.index >= len(l.input) {
		l.width = 0
		return eof
	}
	r, w := utf8.DecodeRuneInString(l.input[l.index:])
	l.width = w
	l.index += l.width
	return r
}

func (l *lexer) peek() rune {
	if l.index >= len(l.input) {
		return eof
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.index:])
	return r
}

func (l *lexer) backup() {
	l.index -= l.width
}

// emit records the token. value tokens keep their sigil in raw only.
func (l *lexer) emit(c tokenCategory, sigil int) {
	raw := l.input[l.start-sigil : l.index]
	value := l.input[l.start:l.index]
	switch c {
	case tokenClass, tokenIdent, tokenID, tokenPseudoClass, tokenPseudoFunction:
		value = Unescape(value)
	case tokenString:
		value = Unescape(value[1 : len(value)-1])
	}
	l.tokens = append(l.tokens, token{c, value, raw, l.start - sigil})
	l.start = l.index
}

func (l *lexer) ignore() {
	l.start = l.index
}

func (l *lexer) acceptRun(f func(rune) bool) {
	for f(l.next()) {
	}
	l.backup()
}

func (l *lexer) errorf(format string, args ...interface{}) stateFn {
	l.tokens = append(l.tokens, token{tokenError, fmt.Sprintf(format, args...), "", l.index})
	return nil
}

func lexSpace(l *lexer) stateFn {
	if isWhitespace(l.peek()) {
		l.acceptRun(isWhitespace)
		l.emit(tokenSpace, 0)
		return lexSpace
	}
	switch r := l.next(); {
	case r != eof && l.peek() == '=' && l.matchers(string(r)+"="):
		l.next()
		l.emit(tokenMatcher, 0)
	case r == '=':
		l.emit(tokenMatcher, 0)
	case isCombinatorChar(r):
		l.emit(tokenCombinator, 0)
	case r == ',':
		l.emit(tokenComma, 0)
	case r == '[':
		l.emit(tokenBracketOpen, 0)
	case r == ']':
		l.emit(tokenBracketClose, 0)
	case r == '(':
		l.backup()
		return lexFunctionArguments
	case r == '*':
		l.emit(tokenUniversal, 0)
	case r == '.':
		l.ignore()
		return lexClass
	case r == '#':
		l.ignore()
		return lexID
	case r == ':':
		l.ignore()
		return lexPseudo
	case r == '\'', r == '"':
		l.backup()
		return lexString
	case r == eof:
		l.emit(tokenEOF, 0)
		return nil
	default:
		l.backup()
		return lexIdent
	}
	return lexSpace
}

// isNameStart checks whether rune r is a valid character as the start of a name
// [_a-z]|{nonascii}|{escape}
func isNameStart(r rune) bool {
	return 'a' <= r && r <= 'z' || 'A' <= r && r <= 'Z' || r == '_' || r == '\\' || r > 127
}

// isNameChar checks whether rune r is a valid character as a part of a name
// [_a-z0-9-]|{nonascii}|{escape}
func isNameChar(r rune) bool {
	return 'a' <= r && r <= 'z' || 'A' <= r && r <= 'Z' || '0' <= r && r <= '9' ||
		r == '_' || r == '-' || r == '\\' || r > 127
}

func isHexDigit(r rune) bool {
	return 'a' <= r && r <= 'f' || 'A' <= r && r <= 'F' || '0' <= r && r <= '9'
}

func isWhitespace(r rune) bool     { return r != eof && strings.ContainsRune(" \t\f\r\n", r) }
func isDigit(r rune) bool          { return '0' <= r && r <= '9' }
func isCombinatorChar(r rune) bool { return r == '>' || r == '+' || r == '~' }

func acceptNameChars(l *lexer) {
	for {
		switch r := l.next(); {
		case r == '\\':
			if !isHexDigit(l.peek()) {
				if l.next() == eof {
					return
				}
				continue
			}
			for i := 0; i < 6 && isHexDigit(l.peek()); i++ {
				l.next()
			}
			if unicode.IsSpace(l.peek()) {
				l.next()
			}
		case isNameChar(r):
		default:
			l.backup()
			return
		}
	}
}

func acceptIdentifier(l *lexer) error {
	if l.peek() == '-' {
		l.next()
	}
	if !isNameStart(l.peek()) {
		return errors.New("invalid starting char for identifier")
	}
	acceptNameChars(l)
	return nil
}

func acceptString(l *lexer) error {
	quote := l.next()
	if quote != '"' && quote != '\'' {
		return fmt.Errorf("invalid quoting char for string: %s", string(quote))
	}
	for r := l.next(); r != quote; r = l.next() {
		switch {
		case r == eof:
			return fmt.Errorf("unterminated quoted string")
		case r == '\n', r == '\r', r == '\f':
			return fmt.Errorf("unescaped %q", string(r))
		case r == '\\':
			l.next()
		}
	}
	return nil
}

func lexClass(l *lexer) stateFn {
	if err := acceptIdentifier(l); err != nil {
		return l.errorf("%s", err)
	}
	l.emit(tokenClass, 1)
	return lexSpace
}

func lexString(l *lexer) stateFn {
	if err := acceptString(l); err != nil {
		return l.errorf("%s", err)
	}
	l.emit(tokenString, 0)
	return lexSpace
}

func lexID(l *lexer) stateFn {
	if !isNameChar(l.peek()) {
		return l.errorf("invalid starting char for ID")
	}
	acceptNameChars(l)
	l.emit(tokenID, 1)
	return lexSpace
}

func lexPseudo(l *lexer) stateFn {
	if l.peek() == ':' {
		return l.errorf("invalid use of pseudo element")
	}
	if err := acceptIdentifier(l); err != nil {
		return l.errorf("%s", err)
	}
	if l.peek() == '(' {
		l.emit(tokenPseudoFunction, 1)
	} else {
		l.emit(tokenPseudoClass, 1)
	}
	return lexSpace
}

func lexIdent(l *lexer) stateFn {
	if err := acceptIdentifier(l); err != nil {
		return l.errorf("%s", err)
	}
	if l.start == l.index {
		return l.errorf("invalid identifier")
	}
	l.emit(tokenIdent, 0)
	return lexSpace
}

func lexFunctionArguments(l *lexer) stateFn {
	if l.next() != '(' {
		return l.errorf("invalid start of function arguments")
	}
	for lvl := 1; lvl != 0; {
		switch l.next() {
		case eof:
			return l.errorf("unterminated function arguments")
		case '(':
			lvl++
		case ')':
			lvl--
		case '\\':
			l.next()
		case '"', '\'':
			l.backup()
			if err := acceptString(l); err != nil {
				return l.errorf("%s", err)
			}
		}
	}
	l.emit(tokenFunctionArguments, 0)
	return lexSpace
}
