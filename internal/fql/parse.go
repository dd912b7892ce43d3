package fql

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/segmentio/action-destinations-sub030/internal/types"
)

// Grammar (keywords are lowercase):
//
//	expr       = term { ("and" | "or") term }
//	term       = "(" expr ")" | function | comparison
//	function   = ["!"] ("contains" | "match") "(" path "," literal ")"
//	comparison = path op literal
//	op         = "=" | "!=" | "<" | "<=" | ">" | ">="
//	literal    = string | number | "true" | "false" | "null"
//
// Runs of one operator flatten into a single group. When the operator
// changes, the group built so far becomes the first child of a new group,
// so mixed chains associate to the left. Parentheses always produce their
// own node.

// ParseError reports malformed FQL text.
// Err holds a sentinel from the types package when one applies.
type ParseError struct {
	Message  string
	Position int
	Token    Token
	Err      error
}

func (pe *ParseError) Error() string {
	if pe.Token.Type == TokenEOF {
		return fmt.Sprintf("fql: parse error at position %d: %s (at end of input)", pe.Position, pe.Message)
	}
	return fmt.Sprintf("fql: parse error at position %d: %s (near '%s')", pe.Position, pe.Message, pe.Token.Value)
}

func (pe *ParseError) Unwrap() error {
	return pe.Err
}

// Parse converts FQL text into a condition tree.
// The result is always a group; a lone condition is wrapped in an "and"
// group. Malformed input returns a *ParseError.
func Parse(text string) (*Group, error) {
	if len(text) > types.MaxFQLLength {
		return nil, &ParseError{
			Message: fmt.Sprintf("expression is %d bytes, limit is %d", len(text), types.MaxFQLLength),
			Token:   Token{Type: TokenEOF},
			Err:     types.ErrExpressionTooLong,
		}
	}

	p := newParser(text)
	if p.current.Type == TokenEOF {
		return nil, p.errorf(types.ErrEmptyExpression, "empty expression")
	}

	n, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if p.current.Type != TokenEOF {
		return nil, p.unexpected("expected 'and', 'or' or end of input")
	}

	if g, ok := n.(*Group); ok {
		return g, nil
	}
	return &Group{Operator: And, Children: []Node{n}}, nil
}

// ParseTree is Parse with failures folded into an *ErrorNode.
func ParseTree(text string) Node {
	g, err := Parse(text)
	if err != nil {
		return &ErrorNode{Err: err}
	}
	return g
}

type parser struct {
	lexer   *Lexer
	current Token
	depth   int
}

func newParser(text string) *parser {
	p := &parser{lexer: NewLexer(text)}
	p.advance()
	return p
}

func (p *parser) advance() {
	p.current = p.lexer.NextToken()
}

func (p *parser) parseExpression() (Node, error) {
	first, err := p.parseTerm()
	if err != nil {
		return nil, err
	}

	var group *Group
	for p.current.Type == TokenAnd || p.current.Type == TokenOr {
		op := And
		if p.current.Type == TokenOr {
			op = Or
		}
		p.advance()

		next, err := p.parseTerm()
		if err != nil {
			return nil, err
		}

		switch {
		case group == nil:
			group = &Group{Operator: op, Children: []Node{first, next}}
		case group.Operator == op:
			group.Children = append(group.Children, next)
		default:
			group = &Group{Operator: op, Children: []Node{group, next}}
		}
	}

	if group == nil {
		return first, nil
	}
	return group, nil
}

func (p *parser) parseTerm() (Node, error) {
	switch p.current.Type {
	case TokenLeftParen:
		p.depth++
		if p.depth > types.MaxNestingDepth {
			return nil, p.errorf(types.ErrNestingTooDeep, "parentheses nested deeper than %d", types.MaxNestingDepth)
		}
		p.advance()
		n, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if err := p.expect(TokenRightParen, "expected ')'"); err != nil {
			return nil, err
		}
		p.depth--
		return n, nil

	case TokenBang:
		p.advance()
		if p.current.Type != TokenIdentifier || !isFunction(p.current.Value) {
			return nil, p.unexpected("expected 'contains' or 'match' after '!'")
		}
		return p.parseFunction(true)

	case TokenIdentifier:
		if isFunction(p.current.Value) {
			return p.parseFunction(false)
		}
		return p.parseComparison()

	default:
		return nil, p.unexpected("expected a condition")
	}
}

func (p *parser) parseFunction(negate bool) (Node, error) {
	fn := p.current
	p.advance()
	if err := p.expect(TokenLeftParen, fmt.Sprintf("expected '(' after %s", fn.Value)); err != nil {
		return nil, err
	}

	cond, err := p.parseTarget()
	if err != nil {
		return nil, err
	}
	if err := p.expect(TokenComma, "expected ','"); err != nil {
		return nil, err
	}

	litTok := p.current
	value, isNull, err := p.parseLiteral()
	if err != nil {
		return nil, err
	}
	if isNull {
		return nil, p.errorAt(litTok, types.ErrMissingValue, "null is not a valid %s argument", fn.Value)
	}
	if err := p.expect(TokenRightParen, "expected ')'"); err != nil {
		return nil, err
	}

	if fn.Value == "contains" {
		cond.Operator = negated(OpContains, OpNotContains, negate)
		cond.Value = value
		return cond, nil
	}

	pattern, ok := value.(string)
	if !ok {
		return nil, p.errorAt(litTok, types.ErrInvalidOperator, "match pattern must be a string")
	}
	switch {
	case strings.HasSuffix(pattern, "*"):
		cond.Operator = negated(OpStartsWith, OpNotStartsWith, negate)
		cond.Value = strings.TrimSuffix(pattern, "*")
	case strings.HasPrefix(pattern, "*"):
		cond.Operator = negated(OpEndsWith, OpNotEndsWith, negate)
		cond.Value = strings.TrimPrefix(pattern, "*")
	default:
		return nil, p.errorAt(litTok, types.ErrInvalidOperator, "match pattern must start or end with '*'")
	}
	return cond, nil
}

func (p *parser) parseComparison() (Node, error) {
	cond, err := p.parseTarget()
	if err != nil {
		return nil, err
	}

	opTok := p.current
	var op Operator
	switch opTok.Type {
	case TokenEquals:
		op = OpEq
	case TokenNotEquals:
		op = OpNeq
	case TokenLess:
		op = OpLt
	case TokenLessEq:
		op = OpLte
	case TokenGreater:
		op = OpGt
	case TokenGreaterEq:
		op = OpGte
	default:
		return nil, p.unexpected("expected a comparison operator")
	}
	p.advance()

	litTok := p.current
	value, isNull, err := p.parseLiteral()
	if err != nil {
		return nil, err
	}

	switch {
	case isNull && op == OpEq:
		cond.Operator = OpNotExists
	case isNull && op == OpNeq:
		cond.Operator = OpExists
	case isNull:
		return nil, p.errorAt(opTok, types.ErrInvalidOperator, "null only compares with '=' or '!='")
	case value == true && op == OpEq:
		cond.Operator = OpIsTrue
	case value == false && op == OpEq:
		cond.Operator = OpIsFalse
	default:
		if _, isBool := value.(bool); isBool && op != OpNeq {
			return nil, p.errorAt(litTok, types.ErrInvalidOperator, "booleans only compare with '=' or '!='")
		}
		cond.Operator = op
		cond.Value = value
	}
	return cond, nil
}

// parseTarget consumes a field identifier and returns a condition with
// Type and Name set.
func (p *parser) parseTarget() (*Condition, error) {
	tok := p.current
	if tok.Type != TokenIdentifier {
		return nil, p.unexpected("expected a field")
	}

	head, rest, dotted := strings.Cut(tok.Value, ".")
	cond := &Condition{}
	switch head {
	case "type":
		cond.Type = TypeEventType
	case "event":
		cond.Type = TypeEvent
	case "name":
		cond.Type = TypeName
	case "userId":
		cond.Type = TypeUserID
	case "properties":
		cond.Type = TypeEventProperty
	case "traits":
		cond.Type = TypeEventTrait
	case "context":
		cond.Type = TypeEventContext
	default:
		return nil, p.errorAt(tok, types.ErrInvalidConditionType, "unknown field %q", head)
	}

	if !cond.Type.HasName() {
		if dotted {
			return nil, p.errorAt(tok, types.ErrInvalidConditionType, "%s does not take a nested path", head)
		}
		p.advance()
		return cond, nil
	}

	if !dotted || rest == "" {
		return nil, p.errorAt(tok, types.ErrMissingName, "%s requires a field name", head)
	}
	cond.Name = UnescapePath(rest)
	if depth := strings.Count(cond.Name, ".") + 1; depth > types.MaxPathDepth {
		return nil, p.errorAt(tok, types.ErrPathTooDeep, "path has %d segments, limit is %d", depth, types.MaxPathDepth)
	}
	p.advance()
	return cond, nil
}

// parseLiteral consumes a literal token.
func (p *parser) parseLiteral() (value any, isNull bool, err error) {
	tok := p.current
	switch tok.Type {
	case TokenString:
		value = tok.Value
	case TokenNumber:
		f, perr := strconv.ParseFloat(tok.Value, 64)
		if perr != nil {
			return nil, false, p.errorAt(tok, nil, "invalid number: %v", errors.Unwrap(perr))
		}
		value = f
	case TokenBoolean:
		value = tok.Value == "true"
	case TokenNull:
		isNull = true
	default:
		return nil, false, p.unexpected("expected a value")
	}
	p.advance()
	return value, isNull, nil
}

func (p *parser) expect(tt TokenType, message string) error {
	if p.current.Type != tt {
		return p.unexpected(message)
	}
	p.advance()
	return nil
}

// unexpected reports the current token, surfacing lexer failures as-is.
func (p *parser) unexpected(message string) error {
	if p.current.Type == TokenIllegal {
		return p.errorAt(p.current, nil, "%s", p.current.Value)
	}
	return p.errorAt(p.current, nil, "%s", message)
}

func (p *parser) errorf(sentinel error, format string, args ...any) error {
	return p.errorAt(p.current, sentinel, format, args...)
}

func (p *parser) errorAt(tok Token, sentinel error, format string, args ...any) error {
	return &ParseError{
		Message:  fmt.Sprintf(format, args...),
		Position: tok.Position,
		Token:    tok,
		Err:      sentinel,
	}
}

func isFunction(ident string) bool {
	return ident == "contains" || ident == "match"
}

func negated(op, neg Operator, negate bool) Operator {
	if negate {
		return neg
	}
	return op
}
