package scanner

import (
	"fmt"
	"strconv"
	"strings"
)

// TokenKind classifies lexed C/C++ tokens.
type TokenKind int

const (
	TokIdent TokenKind = iota
	TokNumber
	TokChar
	TokString
	TokPunct
	TokDirective // '#' at the start of a logical line
	TokNewline   // end of a logical line; only emitted in line mode
)

func (k TokenKind) String() string {
	switch k {
	case TokIdent:
		return "ident"
	case TokNumber:
		return "number"
	case TokChar:
		return "char"
	case TokString:
		return "string"
	case TokPunct:
		return "punct"
	case TokDirective:
		return "directive"
	case TokNewline:
		return "newline"
	default:
		return "unknown"
	}
}

// Token is one lexical element. Text holds the raw spelling and Off its byte
// offset in the source.
type Token struct {
	Kind TokenKind
	Text string
	Line int
	Off  int
}

func (t Token) Is(kind TokenKind, text string) bool {
	return t.Kind == kind && t.Text == text
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%q)@%d", t.Kind, t.Text, t.Line)
}

// Lex splits C or C++ source into tokens, dropping comments and whitespace.
// With lines set, the end of every logical line (after backslash
// continuations are joined) yields a TokNewline, which is what the macro
// reader needs to find the end of a #define.
func Lex(src []byte, lines bool) []Token {
	l := lexer{src: string(src), line: 1, lines: lines, bol: true}
	l.run()
	return l.toks
}

type lexer struct {
	src   string
	pos   int
	line  int
	lines bool
	bol   bool
	toks  []Token
}

func (l *lexer) emit(kind TokenKind, text string) {
	l.toks = append(l.toks, Token{Kind: kind, Text: text, Line: l.line, Off: l.pos - len(text)})
	l.bol = false
}

func (l *lexer) newline() {
	if l.lines && len(l.toks) > 0 && l.toks[len(l.toks)-1].Kind != TokNewline {
		l.toks = append(l.toks, Token{Kind: TokNewline, Line: l.line, Off: l.pos})
	}
	l.line++
	l.bol = true
}

func (l *lexer) peek(off int) byte {
	if l.pos+off < len(l.src) {
		return l.src[l.pos+off]
	}
	return 0
}

func (l *lexer) run() {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == '\n':
			l.pos++
			l.newline()
		case c == '\\' && l.peek(1) == '\n':
			l.pos += 2
			l.line++
		case c == '\\' && l.peek(1) == '\r' && l.peek(2) == '\n':
			l.pos += 3
			l.line++
		case c == ' ' || c == '\t' || c == '\r' || c == '\f' || c == '\v':
			l.pos++
		case c == '/' && l.peek(1) == '/':
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.pos++
			}
		case c == '/' && l.peek(1) == '*':
			l.blockComment()
		case c == '#' && l.bol:
			l.pos++
			l.emit(TokDirective, "#")
		case isIdentStart(c):
			l.ident()
		case isDigit(c):
			l.number()
		case c == '\'':
			l.quoted('\'', TokChar)
		case c == '"':
			l.quoted('"', TokString)
		case c == ':' && l.peek(1) == ':':
			l.pos += 2
			l.emit(TokPunct, "::")
		case c == '<' && l.peek(1) == '<':
			l.pos += 2
			l.emit(TokPunct, "<<")
		default:
			l.pos++
			l.emit(TokPunct, string(c))
		}
	}
	l.newline()
}

func (l *lexer) blockComment() {
	l.pos += 2
	for l.pos < len(l.src) {
		if l.src[l.pos] == '*' && l.peek(1) == '/' {
			l.pos += 2
			return
		}
		if l.src[l.pos] == '\n' {
			// Comments are whitespace, so this does not end a directive.
			l.line++
		}
		l.pos++
	}
}

func (l *lexer) ident() {
	start := l.pos
	for l.pos < len(l.src) && (isIdentStart(l.src[l.pos]) || isDigit(l.src[l.pos])) {
		l.pos++
	}
	l.emit(TokIdent, l.src[start:l.pos])
}

func (l *lexer) number() {
	start := l.pos
	for l.pos < len(l.src) && (isIdentStart(l.src[l.pos]) || isDigit(l.src[l.pos]) || l.src[l.pos] == '.') {
		l.pos++
	}
	l.emit(TokNumber, l.src[start:l.pos])
}

func (l *lexer) quoted(q byte, kind TokenKind) {
	start := l.pos
	l.pos++
	for l.pos < len(l.src) && l.src[l.pos] != q && l.src[l.pos] != '\n' {
		if l.src[l.pos] == '\\' {
			l.pos++
		}
		l.pos++
	}
	if l.pos < len(l.src) && l.src[l.pos] == q {
		l.pos++
	}
	l.emit(kind, l.src[start:l.pos])
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// ParseInt decodes a C integer literal: hex, octal or decimal, with any
// combination of u/U/l/L suffixes.
func ParseInt(text string) (uint64, error) {
	trimmed := strings.TrimRight(text, "uUlL")
	// Base 0 follows the C prefixes: 0x hex, leading 0 octal.
	n, err := strconv.ParseUint(trimmed, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid integer literal %q", text)
	}
	return n, nil
}

// CharValue decodes a single-character C literal such as 'A', ' ' or '\0'.
func CharValue(text string) (uint32, error) {
	if len(text) < 3 || text[0] != '\'' || text[len(text)-1] != '\'' {
		return 0, fmt.Errorf("invalid character literal %q", text)
	}
	body := text[1 : len(text)-1]
	if body[0] != '\\' {
		if len(body) != 1 {
			return 0, fmt.Errorf("multi-character literal %q", text)
		}
		return uint32(body[0]), nil
	}
	if len(body) < 2 {
		return 0, fmt.Errorf("invalid escape in %q", text)
	}
	switch body[1] {
	case 'n':
		return '\n', nil
	case 't':
		return '\t', nil
	case 'r':
		return '\r', nil
	case '\\', '\'', '"', '?':
		return uint32(body[1]), nil
	case 'x':
		n, err := strconv.ParseUint(body[2:], 16, 8)
		if err != nil {
			return 0, fmt.Errorf("invalid hex escape in %q", text)
		}
		return uint32(n), nil
	default:
		n, err := strconv.ParseUint(body[1:], 8, 8)
		if err != nil {
			return 0, fmt.Errorf("invalid escape in %q", text)
		}
		return uint32(n), nil
	}
}
