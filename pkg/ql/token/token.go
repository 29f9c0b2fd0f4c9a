// Package token implements the tokenizer described in spec §4.4: UTF-8
// source, case-insensitive keywords collapsed to canonical form, `#`
// line comments, quoted strings with backslash escapes, and out-of-band
// blob parameters represented as placeholder tokens rather than parsed
// from the source stream (so the source text stays safe to log).
package token

import (
	"strconv"
	"strings"

	schemaerrors "github.com/skytable/skytable-sub005/pkg/errors"
	"github.com/skytable/skytable-sub005/pkg/value"
)

type Kind uint8

const (
	KindKeyword Kind = iota
	KindIdent
	KindString
	KindUint
	KindSint
	KindFloat
	KindBool
	KindPlaceholder // bound positionally to an out-of-band blob parameter
	KindSymbol      // ( ) , . = ; etc
	KindEOF
)

// Token is one lexical unit. Pos is the byte offset in source it started at.
type Token struct {
	Kind   Kind
	Text   string // keyword canonical form, identifier text, or symbol text
	Str    string // decoded string literal value, when Kind == KindString
	Uint   uint64
	Sint   int64
	Float  float64
	Bool   bool
	Blob   int // index into the out-of-band parameter slice, when Kind == KindPlaceholder
	Pos    int
}

var keywords = map[string]string{
	"create": "CREATE", "drop": "DROP", "alter": "ALTER", "space": "SPACE",
	"model": "MODEL", "with": "WITH", "insert": "INSERT", "select": "SELECT",
	"update": "UPDATE", "delete": "DELETE", "into": "INTO", "from": "FROM",
	"where": "WHERE", "set": "SET", "add": "ADD", "remove": "REMOVE",
	"sysctl": "SYSCTL", "auth": "AUTH", "and": "AND", "null": "NULL",
	"true": "TRUE", "false": "FALSE", "all": "ALL",
}

// Lexer tokenizes source text. params supplies the out-of-band blob
// parameters referenced positionally by '?' placeholders in source.
type Lexer struct {
	src    string
	pos    int
	params [][]byte
	next   int // next unconsumed index into params
}

func New(src string, params [][]byte) *Lexer {
	return &Lexer{src: src, params: params}
}

func (l *Lexer) Tokenize() ([]Token, error) {
	var out []Token
	for {
		tok, err := l.next_()
		if err != nil {
			return nil, err
		}
		out = append(out, tok)
		if tok.Kind == KindEOF {
			return out, nil
		}
	}
}

func (l *Lexer) skipSpaceAndComments() {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if c == ' ' || c == '\t' || c == '\r' || c == '\n' {
			l.pos++
			continue
		}
		if c == '#' {
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.pos++
			}
			continue
		}
		break
	}
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentCont(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func (l *Lexer) next_() (Token, error) {
	l.skipSpaceAndComments()
	if l.pos >= len(l.src) {
		return Token{Kind: KindEOF, Pos: l.pos}, nil
	}
	start := l.pos
	c := l.src[l.pos]

	switch {
	case isIdentStart(c):
		for l.pos < len(l.src) && isIdentCont(l.src[l.pos]) {
			l.pos++
		}
		word := l.src[start:l.pos]
		lower := strings.ToLower(word)
		if canon, ok := keywords[lower]; ok {
			switch canon {
			case "TRUE":
				return Token{Kind: KindBool, Bool: true, Text: canon, Pos: start}, nil
			case "FALSE":
				return Token{Kind: KindBool, Bool: false, Text: canon, Pos: start}, nil
			case "NULL":
				return Token{Kind: KindKeyword, Text: canon, Pos: start}, nil
			default:
				return Token{Kind: KindKeyword, Text: canon, Pos: start}, nil
			}
		}
		return Token{Kind: KindIdent, Text: word, Pos: start}, nil

	case c == '\'' || c == '"':
		return l.lexString(c)

	case isDigit(c):
		return l.lexNumber()

	case c == '?':
		l.pos++
		idx := l.next
		if idx >= len(l.params) {
			return Token{}, &schemaerrors.SyntaxError{Message: "no matching blob parameter for placeholder", Pos: start}
		}
		l.next++
		return Token{Kind: KindPlaceholder, Blob: idx, Pos: start}, nil

	default:
		l.pos++
		return Token{Kind: KindSymbol, Text: string(c), Pos: start}, nil
	}
}

func (l *Lexer) lexString(quote byte) (Token, error) {
	start := l.pos
	l.pos++ // consume opening quote
	var b strings.Builder
	for {
		if l.pos >= len(l.src) {
			return Token{}, &schemaerrors.UnterminatedStringError{Pos: start}
		}
		c := l.src[l.pos]
		if c == quote {
			l.pos++
			return Token{Kind: KindString, Str: b.String(), Pos: start}, nil
		}
		if c == '\\' {
			l.pos++
			if l.pos >= len(l.src) {
				return Token{}, &schemaerrors.UnterminatedStringError{Pos: start}
			}
			esc := l.src[l.pos]
			switch esc {
			case '\\', '\'', '"':
				b.WriteByte(esc)
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			default:
				b.WriteByte(esc)
			}
			l.pos++
			continue
		}
		b.WriteByte(c)
		l.pos++
	}
}

func (l *Lexer) lexNumber() (Token, error) {
	start := l.pos
	for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
		l.pos++
	}
	isFloat := false
	if l.pos < len(l.src) && l.src[l.pos] == '.' {
		isFloat = true
		l.pos++
		for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
			l.pos++
		}
	}
	text := l.src[start:l.pos]
	if isFloat {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return Token{}, &schemaerrors.SyntaxError{Message: "bad float literal", Pos: start}
		}
		return Token{Kind: KindFloat, Float: f, Pos: start}, nil
	}
	u, err := strconv.ParseUint(text, 10, 64)
	if err != nil {
		return Token{}, &schemaerrors.SyntaxError{Message: "bad integer literal", Pos: start}
	}
	// A leading '-' lexes as its own KindSymbol token; the parser composes
	// unary minus with the following KindUint literal to produce a signed
	// value (value.Sint).
	return Token{Kind: KindUint, Uint: u, Pos: start}, nil
}

// AsValue converts a literal token into a value.Value. Non-literal tokens
// (keywords, identifiers, symbols) return ok=false.
func (t Token) AsValue(params [][]byte) (value.Value, bool) {
	switch t.Kind {
	case KindString:
		return value.String(t.Str), true
	case KindUint:
		return value.Uint(t.Uint), true
	case KindSint:
		return value.Sint(t.Sint), true
	case KindFloat:
		return value.Float(t.Float), true
	case KindBool:
		return value.Bool(t.Bool), true
	case KindPlaceholder:
		if t.Blob < 0 || t.Blob >= len(params) {
			return value.Null(), false
		}
		return value.Binary(params[t.Blob]), true
	case KindKeyword:
		if t.Text == "NULL" {
			return value.Null(), true
		}
	}
	return value.Null(), false
}
