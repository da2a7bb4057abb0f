package sqlparse

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// TokenKind classifies a token.
type TokenKind int

const (
	TokenEnd TokenKind = iota
	TokenName
	TokenNumber
	TokenString
	TokenSymbol
)

func (k TokenKind) String() string {
	switch k {
	case TokenEnd:
		return "end"
	case TokenName:
		return "name"
	case TokenNumber:
		return "number"
	case TokenString:
		return "string"
	case TokenSymbol:
		return "symbol"
	default:
		return "unknown"
	}
}

// Token is one lexical unit. For TokenString, Text is the unquoted value.
type Token struct {
	Kind TokenKind
	Text string
	Pos  int
}

// Is reports whether the token is the given keyword, ignoring case.
func (t Token) Is(keyword string) bool {
	return t.Kind == TokenName && strings.EqualFold(t.Text, keyword)
}

// IsSymbol reports whether the token is the given symbol.
func (t Token) IsSymbol(sym string) bool {
	return t.Kind == TokenSymbol && t.Text == sym
}

// multiSymbols are matched before single-character symbols.
var multiSymbols = []string{"<=", ">=", "<>", "!=", "=="}

// Tokenizer splits query text into tokens with one token of lookahead.
// Identifier text keeps its case; keywords are compared with Token.Is.
type Tokenizer struct {
	src    string
	pos    int
	peeked *Token
}

// NewTokenizer creates a tokenizer over src.
func NewTokenizer(src string) *Tokenizer {
	return &Tokenizer{src: src}
}

// Next consumes and returns the next token. At end of input it returns a
// TokenEnd token positioned at len(src).
func (t *Tokenizer) Next() (Token, error) {
	if t.peeked != nil {
		tok := *t.peeked
		t.peeked = nil
		return tok, nil
	}
	return t.scan()
}

// Peek returns the next token without consuming it.
func (t *Tokenizer) Peek() (Token, error) {
	if t.peeked != nil {
		return *t.peeked, nil
	}
	tok, err := t.scan()
	if err != nil {
		return tok, err
	}
	t.peeked = &tok
	return tok, nil
}

// End reports whether only whitespace remains.
func (t *Tokenizer) End() bool {
	if t.peeked != nil {
		return t.peeked.Kind == TokenEnd
	}
	t.skipSpace()
	return t.pos >= len(t.src)
}

func (t *Tokenizer) skipSpace() {
	for t.pos < len(t.src) {
		r, size := utf8.DecodeRuneInString(t.src[t.pos:])
		if !unicode.IsSpace(r) {
			return
		}
		t.pos += size
	}
}

func (t *Tokenizer) scan() (Token, error) {
	t.skipSpace()
	start := t.pos
	if start >= len(t.src) {
		return Token{Kind: TokenEnd, Pos: start}, nil
	}

	r, size := utf8.DecodeRuneInString(t.src[start:])
	switch {
	case isNameStart(r):
		t.pos += size
		for t.pos < len(t.src) {
			r, size = utf8.DecodeRuneInString(t.src[t.pos:])
			if !isNamePart(r) {
				break
			}
			t.pos += size
		}
		return Token{Kind: TokenName, Text: t.src[start:t.pos], Pos: start}, nil

	case isDigit(r), (r == '-' || r == '+') && t.digitAt(start+1):
		t.pos++
		t.scanNumber()
		return Token{Kind: TokenNumber, Text: t.src[start:t.pos], Pos: start}, nil

	case r == '\'' || r == '"':
		return t.scanString(byte(r))
	}

	for _, sym := range multiSymbols {
		if strings.HasPrefix(t.src[start:], sym) {
			t.pos += len(sym)
			return Token{Kind: TokenSymbol, Text: sym, Pos: start}, nil
		}
	}
	t.pos += size
	return Token{Kind: TokenSymbol, Text: t.src[start:t.pos], Pos: start}, nil
}

// scanNumber consumes digits, an optional fraction and an optional exponent.
func (t *Tokenizer) scanNumber() {
	t.skipDigits()
	if t.pos < len(t.src) && t.src[t.pos] == '.' && t.digitAt(t.pos+1) {
		t.pos++
		t.skipDigits()
	}
	if t.pos < len(t.src) && (t.src[t.pos] == 'e' || t.src[t.pos] == 'E') {
		next := t.pos + 1
		if next < len(t.src) && (t.src[next] == '-' || t.src[next] == '+') {
			next++
		}
		if t.digitAt(next) {
			t.pos = next
			t.skipDigits()
		}
	}
}

func (t *Tokenizer) skipDigits() {
	for t.digitAt(t.pos) {
		t.pos++
	}
}

func (t *Tokenizer) digitAt(i int) bool {
	return i < len(t.src) && t.src[i] >= '0' && t.src[i] <= '9'
}

// scanString reads a quoted literal. The quote is escaped by doubling it or
// with a backslash; a backslash also escapes itself.
func (t *Tokenizer) scanString(quote byte) (Token, error) {
	start := t.pos
	t.pos++
	var b strings.Builder
	for t.pos < len(t.src) {
		c := t.src[t.pos]
		switch {
		case c == '\\' && t.pos+1 < len(t.src):
			b.WriteByte(t.src[t.pos+1])
			t.pos += 2
		case c == quote && t.pos+1 < len(t.src) && t.src[t.pos+1] == quote:
			b.WriteByte(quote)
			t.pos += 2
		case c == quote:
			t.pos++
			return Token{Kind: TokenString, Text: b.String(), Pos: start}, nil
		default:
			b.WriteByte(c)
			t.pos++
		}
	}
	return Token{}, &SyntaxError{Token: t.src[start:], Pos: start, Msg: "unterminated string literal"}
}

func isNameStart(r rune) bool {
	return r == '_' || r == '#' || unicode.IsLetter(r)
}

func isNamePart(r rune) bool {
	return isNameStart(r) || r == '.' || unicode.IsDigit(r)
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}
