package formula

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// TokenKind classifies a lexical token
type TokenKind int

const (
	TokenIdentifier TokenKind = iota
	TokenNumber
	TokenBoolean
	TokenString
	TokenOpenParen
	TokenCloseParen
	TokenBinaryOp
	TokenRelationalOp
	TokenUnaryOp
	TokenComma
	TokenDot
	TokenColon
	TokenEOF
)

var tokenKindNames = map[TokenKind]string{
	TokenIdentifier:   "Identifier",
	TokenNumber:       "Number",
	TokenBoolean:      "Boolean",
	TokenString:       "String",
	TokenOpenParen:    "OpenParen",
	TokenCloseParen:   "CloseParen",
	TokenBinaryOp:     "BinaryOp",
	TokenRelationalOp: "RelationalOp",
	TokenUnaryOp:      "UnaryOp",
	TokenComma:        "Comma",
	TokenDot:          "Dot",
	TokenColon:        "Colon",
	TokenEOF:          "EOF",
}

func (k TokenKind) String() string {
	if name, ok := tokenKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("TokenKind(%d)", int(k))
}

// Token is a single lexeme. Identifier text is upper-cased.
type Token struct {
	Kind TokenKind
	Text string
}

// single-character tokens
var punctuation = map[byte]TokenKind{
	'(': TokenOpenParen,
	')': TokenCloseParen,
	',': TokenComma,
	'.': TokenDot,
	':': TokenColon,
	'+': TokenBinaryOp,
	'-': TokenBinaryOp,
	'*': TokenBinaryOp,
	'/': TokenBinaryOp,
	'%': TokenBinaryOp,
}

// Tokenize turns formula text (leading '=' already stripped) into a token
// list terminated by EOF.
func Tokenize(input string) ([]Token, error) {
	l := &lexer{input: input}
	return l.run()
}

type lexer struct {
	input  string
	pos    int
	tokens []Token
}

func (l *lexer) run() ([]Token, error) {
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		switch {
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r':
			l.pos++
		case isPunctuation(ch):
			l.emit(punctuation[ch], string(ch))
			l.pos++
		case ch == '=':
			if l.peek(1) != '=' {
				return nil, &LexError{Pos: l.pos, Msg: "Expected '==', got '='"}
			}
			l.emit(TokenRelationalOp, "==")
			l.pos += 2
		case ch == '!':
			if l.peek(1) == '=' {
				l.emit(TokenRelationalOp, "!=")
				l.pos += 2
			} else {
				l.emit(TokenUnaryOp, "!")
				l.pos++
			}
		case ch == '<' || ch == '>':
			if l.peek(1) == '=' {
				l.emit(TokenRelationalOp, string(ch)+"=")
				l.pos += 2
			} else {
				l.emit(TokenRelationalOp, string(ch))
				l.pos++
			}
		case ch == '"':
			if err := l.scanString(); err != nil {
				return nil, err
			}
		case isDigit(ch):
			if err := l.scanNumber(); err != nil {
				return nil, err
			}
		case isIdentStart(ch):
			l.scanIdentifier()
		default:
			r, _ := utf8.DecodeRuneInString(l.input[l.pos:])
			return nil, &LexError{Pos: l.pos, Msg: fmt.Sprintf("Unexpected character '%c'", r)}
		}
	}
	l.emit(TokenEOF, "")
	return l.tokens, nil
}

func (l *lexer) emit(kind TokenKind, text string) {
	l.tokens = append(l.tokens, Token{Kind: kind, Text: text})
}

func (l *lexer) peek(offset int) byte {
	if l.pos+offset < len(l.input) {
		return l.input[l.pos+offset]
	}
	return 0
}

func (l *lexer) scanNumber() error {
	start := l.pos
	seenDot := false
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		if ch == '.' {
			if seenDot {
				return &LexError{Pos: l.pos, Msg: "Unexpected second decimal point in number"}
			}
			seenDot = true
		} else if !isDigit(ch) {
			break
		}
		l.pos++
	}
	l.emit(TokenNumber, l.input[start:l.pos])
	return nil
}

func (l *lexer) scanString() error {
	start := l.pos
	l.pos++ // opening quote
	end := strings.IndexByte(l.input[l.pos:], '"')
	if end < 0 {
		return &LexError{Pos: start, Msg: "Unterminated string literal"}
	}
	l.emit(TokenString, l.input[l.pos:l.pos+end])
	l.pos += end + 1
	return nil
}

func (l *lexer) scanIdentifier() {
	start := l.pos
	for l.pos < len(l.input) && isIdentPart(l.input[l.pos]) {
		l.pos++
	}
	text := strings.ToUpper(l.input[start:l.pos])
	if text == "TRUE" || text == "FALSE" {
		l.emit(TokenBoolean, text)
		return
	}
	l.emit(TokenIdentifier, text)
}

func isPunctuation(ch byte) bool {
	_, ok := punctuation[ch]
	return ok
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isIdentStart(ch byte) bool {
	return ch == '$' || (ch >= 'A' && ch <= 'Z') || (ch >= 'a' && ch <= 'z')
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch)
}
