// Package scanner tokenizes aster source text for lang/parser. It is
// intentionally thin relative to lang/analyzer/lang/compiler/lang/vm,
// which form this module's core pipeline; lexing is ambient front-end
// plumbing: a rune-at-a-time scan loop, a single exported Scan entry
// point, errors reported through a caller-supplied callback, and this
// language's own line/column Pos rather than a byte-offset FileSet.
package scanner

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mna/aster/lang/token"
)

// Token pairs a scanned token kind with its literal text and source span
// start. Lit is the decoded value for STRING (escapes resolved) and the raw
// text for IDENT/NUMBER; punctuation and keyword tokens carry their own
// canonical text as returned by Token.String.
type Token struct {
	Kind token.Token
	Lit  string
	Pos  token.Pos
}

// ErrorHandler is called for every illegal character or malformed literal
// the scanner encounters; scanning continues past the error so a single
// pass can report more than one problem, mirroring go/scanner.ErrorList's
// accumulate-then-report convention used elsewhere in this module.
type ErrorHandler func(pos token.Pos, msg string)

// Scanner tokenizes one source buffer.
type Scanner struct {
	src []byte
	err ErrorHandler

	cur      rune
	off      int
	roff     int
	line     int
	col      int
	startCol int // col of s.cur at the start of the token being scanned
}

// New constructs a Scanner over src. errHandler may be nil, in which case
// scan errors are silently skipped over. Only an illegal character yields
// an ILLEGAL token; a malformed number or string still yields a NUMBER or
// STRING token.
func New(src []byte, errHandler ErrorHandler) *Scanner {
	s := &Scanner{src: src, err: errHandler, line: 1, col: 0}
	s.advance()
	return s
}

func (s *Scanner) advance() {
	if s.cur == '\n' {
		s.line++
		s.col = 0
	}
	if s.roff >= len(s.src) {
		s.off = len(s.src)
		s.cur = -1
		return
	}
	s.off = s.roff
	r, w := rune(s.src[s.roff]), 1
	if r >= utf8.RuneSelf {
		r, w = utf8.DecodeRune(s.src[s.roff:])
	}
	s.roff += w
	s.cur = r
	s.col++
}

func (s *Scanner) peek() byte {
	if s.roff < len(s.src) {
		return s.src[s.roff]
	}
	return 0
}

func (s *Scanner) pos() token.Pos { return token.MakePos(s.line, s.startCol) }

func (s *Scanner) error(msg string) {
	if s.err != nil {
		s.err(s.pos(), msg)
	}
}

func (s *Scanner) advanceIf(r byte) bool {
	if s.cur == rune(r) {
		s.advance()
		return true
	}
	return false
}

func isLetter(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isDigit(r rune) bool {
	return '0' <= r && r <= '9'
}

// Scan returns the next token, advancing past it. EOF is returned
// repeatedly once the source is exhausted, never panicking on re-scan.
func (s *Scanner) Scan() Token {
	s.skipIgnorable()
	s.startCol = s.col
	pos := s.pos()

	switch {
	case s.cur == -1:
		return Token{Kind: token.EOF, Pos: pos}

	case isLetter(s.cur):
		lit := s.ident()
		if kw, ok := token.Keywords[lit]; ok {
			return Token{Kind: kw, Lit: lit, Pos: pos}
		}
		return Token{Kind: token.IDENT, Lit: lit, Pos: pos}

	case isDigit(s.cur):
		return Token{Kind: token.NUMBER, Lit: s.number(), Pos: pos}

	case s.cur == '"':
		return Token{Kind: token.STRING, Lit: s.shortString(), Pos: pos}
	}

	cur := s.cur
	s.advance()
	switch cur {
	case '+':
		return Token{Kind: token.PLUS, Lit: "+", Pos: pos}
	case '-':
		return Token{Kind: token.MINUS, Lit: "-", Pos: pos}
	case '*':
		return Token{Kind: token.STAR, Lit: "*", Pos: pos}
	case '/':
		return Token{Kind: token.SLASH, Lit: "/", Pos: pos}
	case '%':
		return Token{Kind: token.PERCENT, Lit: "%", Pos: pos}
	case '.':
		return Token{Kind: token.DOT, Lit: ".", Pos: pos}
	case ',':
		return Token{Kind: token.COMMA, Lit: ",", Pos: pos}
	case ';':
		return Token{Kind: token.SEMI, Lit: ";", Pos: pos}
	case '(':
		return Token{Kind: token.LPAREN, Lit: "(", Pos: pos}
	case ')':
		return Token{Kind: token.RPAREN, Lit: ")", Pos: pos}
	case '{':
		return Token{Kind: token.LBRACE, Lit: "{", Pos: pos}
	case '}':
		return Token{Kind: token.RBRACE, Lit: "}", Pos: pos}
	case '=':
		if s.advanceIf('=') {
			return Token{Kind: token.EQ, Lit: "==", Pos: pos}
		}
		if s.advanceIf('>') {
			return Token{Kind: token.ARROW, Lit: "=>", Pos: pos}
		}
		return Token{Kind: token.ASSIGN, Lit: "=", Pos: pos}
	case '!':
		if s.advanceIf('=') {
			return Token{Kind: token.NEQ, Lit: "!=", Pos: pos}
		}
		return Token{Kind: token.BANG, Lit: "!", Pos: pos}
	case '<':
		if s.advanceIf('=') {
			return Token{Kind: token.LE, Lit: "<=", Pos: pos}
		}
		return Token{Kind: token.LT, Lit: "<", Pos: pos}
	case '>':
		if s.advanceIf('=') {
			return Token{Kind: token.GE, Lit: ">=", Pos: pos}
		}
		return Token{Kind: token.GT, Lit: ">", Pos: pos}
	default:
		s.error("illegal character " + string(cur))
		return Token{Kind: token.ILLEGAL, Lit: string(cur), Pos: pos}
	}
}

func (s *Scanner) skipIgnorable() {
	for {
		for s.cur == ' ' || s.cur == '\t' || s.cur == '\n' || s.cur == '\r' {
			s.advance()
		}
		if s.cur == '/' && s.peek() == '/' {
			for s.cur != '\n' && s.cur != -1 {
				s.advance()
			}
			continue
		}
		return
	}
}

func (s *Scanner) ident() string {
	start := s.off
	for isLetter(s.cur) || isDigit(s.cur) {
		s.advance()
	}
	return string(s.src[start:s.off])
}

func (s *Scanner) number() string {
	start := s.off
	for isDigit(s.cur) {
		s.advance()
	}
	if s.cur == '.' && isDigit(rune(s.peek())) {
		s.advance()
		for isDigit(s.cur) {
			s.advance()
		}
	}
	if s.cur == 'e' || s.cur == 'E' {
		save := s.off
		s.advance()
		if s.cur == '+' || s.cur == '-' {
			s.advance()
		}
		if isDigit(s.cur) {
			for isDigit(s.cur) {
				s.advance()
			}
		} else {
			s.error("malformed exponent")
			_ = save
		}
	}
	return string(s.src[start:s.off])
}

// shortString scans a double-quoted string literal with \n \t \" \\ escapes,
// returning the decoded value (not the raw source text, unlike the other
// token kinds, since no caller needs the quoted form back).
func (s *Scanner) shortString() string {
	s.advance() // opening quote
	var b strings.Builder
	for s.cur != '"' {
		if s.cur == -1 || s.cur == '\n' {
			s.error("string literal not terminated")
			break
		}
		if s.cur == '\\' {
			s.advance()
			switch s.cur {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case '"':
				b.WriteByte('"')
			case '\\':
				b.WriteByte('\\')
			default:
				s.error("unknown escape sequence")
				b.WriteRune(s.cur)
			}
			s.advance()
			continue
		}
		b.WriteRune(s.cur)
		s.advance()
	}
	s.advanceIf('"')
	return b.String()
}
