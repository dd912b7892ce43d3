package fql

import (
	"fmt"
	"strings"
)

// TokenType represents the type of a lexical token
type TokenType int

const (
	// Special tokens
	TokenEOF TokenType = iota
	TokenIllegal

	// Identifiers and literals
	TokenIdentifier // type, properties.foo\ bar, contains
	TokenString     // "string literal"
	TokenNumber     // 123, -4.5, 1e3
	TokenBoolean    // true, false
	TokenNull       // null

	// Keywords
	TokenAnd // and
	TokenOr  // or

	// Operators
	TokenEquals    // =
	TokenNotEquals // !=
	TokenLess      // <
	TokenLessEq    // <=
	TokenGreater   // >
	TokenGreaterEq // >=
	TokenBang      // !

	// Delimiters
	TokenLeftParen  // (
	TokenRightParen // )
	TokenComma      // ,
)

// Token is a lexical token with its byte offset in the input.
// For TokenString, Value holds the decoded string contents; for every other
// type it is the raw source text.
type Token struct {
	Type     TokenType
	Value    string
	Position int
}

// String returns a string representation of the token
func (t Token) String() string {
	switch t.Type {
	case TokenEOF:
		return "EOF"
	case TokenIllegal:
		return fmt.Sprintf("ILLEGAL(%s)", t.Value)
	default:
		return fmt.Sprintf("%s(%s)", t.Type, t.Value)
	}
}

// String returns a string representation of the token type
func (tt TokenType) String() string {
	switch tt {
	case TokenEOF:
		return "EOF"
	case TokenIllegal:
		return "ILLEGAL"
	case TokenIdentifier:
		return "IDENTIFIER"
	case TokenString:
		return "STRING"
	case TokenNumber:
		return "NUMBER"
	case TokenBoolean:
		return "BOOLEAN"
	case TokenNull:
		return "NULL"
	case TokenAnd:
		return "AND"
	case TokenOr:
		return "OR"
	case TokenEquals:
		return "EQUALS"
	case TokenNotEquals:
		return "NOT_EQUALS"
	case TokenLess:
		return "LESS"
	case TokenLessEq:
		return "LESS_EQ"
	case TokenGreater:
		return "GREATER"
	case TokenGreaterEq:
		return "GREATER_EQ"
	case TokenBang:
		return "BANG"
	case TokenLeftParen:
		return "LEFT_PAREN"
	case TokenRightParen:
		return "RIGHT_PAREN"
	case TokenComma:
		return "COMMA"
	default:
		return "UNKNOWN"
	}
}

// Lexer performs lexical analysis of FQL input
type Lexer struct {
	input    string
	position int  // current position in input (points to current char)
	readPos  int  // current reading position (after current char)
	ch       byte // current char under examination, 0 at end of input
}

// NewLexer creates a new lexer for the given input
func NewLexer(input string) *Lexer {
	l := &Lexer{input: input}
	l.readChar()
	return l
}

// NextToken returns the next token from the input.
// Malformed input produces a TokenIllegal whose Value describes the problem.
func (l *Lexer) NextToken() Token {
	l.skipWhitespace()
	pos := l.position

	if l.atEOF() {
		return Token{Type: TokenEOF, Position: pos}
	}

	var tok Token
	switch l.ch {
	case '=':
		tok = l.single(TokenEquals)
	case '!':
		if l.peekChar() == '=' {
			tok = l.double(TokenNotEquals)
		} else {
			tok = l.single(TokenBang)
		}
	case '<':
		if l.peekChar() == '=' {
			tok = l.double(TokenLessEq)
		} else {
			tok = l.single(TokenLess)
		}
	case '>':
		if l.peekChar() == '=' {
			tok = l.double(TokenGreaterEq)
		} else {
			tok = l.single(TokenGreater)
		}
	case '(':
		tok = l.single(TokenLeftParen)
	case ')':
		tok = l.single(TokenRightParen)
	case ',':
		tok = l.single(TokenComma)
	case '"':
		value, ok := l.readString()
		if !ok {
			return Token{Type: TokenIllegal, Value: "unterminated string", Position: pos}
		}
		return Token{Type: TokenString, Value: value, Position: pos}
	default:
		switch {
		case isIdentStart(l.ch):
			value := l.readIdentifier()
			return Token{Type: lookupIdent(value), Value: value, Position: pos}
		case isDigit(l.ch) || l.ch == '-' && isDigit(l.peekChar()):
			return Token{Type: TokenNumber, Value: l.readNumber(), Position: pos}
		default:
			tok = Token{Type: TokenIllegal, Value: fmt.Sprintf("unexpected character %q", l.ch), Position: pos}
			l.readChar()
		}
	}
	return tok
}

// Tokenize returns all tokens from the input as a slice
func (l *Lexer) Tokenize() ([]Token, error) {
	var tokens []Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		switch tok.Type {
		case TokenEOF:
			return tokens, nil
		case TokenIllegal:
			return tokens, fmt.Errorf("%s at position %d", tok.Value, tok.Position)
		}
	}
}

func (l *Lexer) single(tt TokenType) Token {
	tok := Token{Type: tt, Value: string(l.ch), Position: l.position}
	l.readChar()
	return tok
}

func (l *Lexer) double(tt TokenType) Token {
	tok := Token{Type: tt, Value: l.input[l.position : l.position+2], Position: l.position}
	l.readChar()
	l.readChar()
	return tok
}

func (l *Lexer) atEOF() bool {
	return l.position >= len(l.input)
}

// readChar reads the next character and advances position
func (l *Lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPos]
	}
	l.position = l.readPos
	l.readPos++
}

// peekChar returns the next character without advancing position
func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

// readIdentifier reads a path identifier. A backslash makes the next byte
// part of the identifier whatever it is; multi-byte runes continue through
// the >127 rule.
func (l *Lexer) readIdentifier() string {
	start := l.position
	for !l.atEOF() {
		if l.ch == '\\' {
			l.readChar()
			if l.atEOF() {
				break
			}
			l.readChar()
			continue
		}
		if !isIdentChar(l.ch) {
			break
		}
		l.readChar()
	}
	return l.input[start:l.position]
}

// readNumber reads an optionally signed decimal with optional fraction and
// exponent.
func (l *Lexer) readNumber() string {
	start := l.position
	if l.ch == '-' {
		l.readChar()
	}
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	if l.ch == 'e' || l.ch == 'E' {
		next := l.peekChar()
		if isDigit(next) || (next == '+' || next == '-') && l.readPos+1 < len(l.input) && isDigit(l.input[l.readPos+1]) {
			l.readChar()
			if l.ch == '+' || l.ch == '-' {
				l.readChar()
			}
			for isDigit(l.ch) {
				l.readChar()
			}
		}
	}
	return l.input[start:l.position]
}

// readString reads a double-quoted literal starting at the opening quote
// and returns its decoded contents. Supports \" \\ \n \t \r; any other
// escaped byte stands for itself.
func (l *Lexer) readString() (string, bool) {
	var b strings.Builder
	l.readChar() // opening quote
	for {
		if l.atEOF() {
			return "", false
		}
		switch l.ch {
		case '"':
			l.readChar()
			return b.String(), true
		case '\\':
			l.readChar()
			if l.atEOF() {
				return "", false
			}
			switch l.ch {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			default:
				b.WriteByte(l.ch)
			}
		default:
			b.WriteByte(l.ch)
		}
		l.readChar()
	}
}

// skipWhitespace skips whitespace characters
func (l *Lexer) skipWhitespace() {
	for !l.atEOF() && (l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r') {
		l.readChar()
	}
}

func lookupIdent(ident string) TokenType {
	switch ident {
	case "and":
		return TokenAnd
	case "or":
		return TokenOr
	case "true", "false":
		return TokenBoolean
	case "null":
		return TokenNull
	default:
		return TokenIdentifier
	}
}

func isIdentStart(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_' || ch == '$' || ch == '\\' || ch > 127
}

func isIdentChar(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch) || ch == '.' || ch == '-'
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}
