package fql

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/segmentio/action-destinations-sub030/internal/types"
)

// Generate renders a condition tree as FQL text.
//
// Nested groups with more than one child are parenthesized. The top-level
// group is rendered bare, and a top-level group whose only child is another
// group renders that child bare, so the output is never wrapped in one
// redundant pair of parentheses. An *ErrorNode anywhere in the tree returns
// its error verbatim.
func Generate(tree Node) (string, error) {
	switch t := tree.(type) {
	case *ErrorNode:
		if t == nil || t.Err == nil {
			return "", types.ErrEmptyExpression
		}
		return "", t.Err
	case *Group:
		if t == nil {
			return "", types.ErrEmptyExpression
		}
		for len(t.Children) == 1 {
			inner, ok := t.Children[0].(*Group)
			if !ok || inner == nil {
				break
			}
			t = inner
		}
		return generateGroup(t)
	case *Condition:
		if t == nil {
			return "", types.ErrEmptyExpression
		}
		return generateCondition(t)
	default:
		return "", types.ErrEmptyExpression
	}
}

func generateGroup(g *Group) (string, error) {
	if g.Operator != And && g.Operator != Or {
		return "", fmt.Errorf("%w: group operator %q", types.ErrInvalidOperator, g.Operator)
	}
	if len(g.Children) == 0 {
		return "", types.ErrEmptyGroup
	}

	parts := make([]string, 0, len(g.Children))
	for _, child := range g.Children {
		var s string
		var err error
		if inner, ok := child.(*Group); ok && inner != nil {
			s, err = generateGroup(inner)
			if err == nil && len(inner.Children) > 1 {
				s = "(" + s + ")"
			}
		} else {
			s, err = Generate(child)
		}
		if err != nil {
			return "", err
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, " "+string(g.Operator)+" "), nil
}

func generateCondition(c *Condition) (string, error) {
	if err := checkCondition(c); err != nil {
		return "", err
	}
	target, err := generateTarget(c)
	if err != nil {
		return "", err
	}

	switch c.Operator {
	case OpExists:
		return target + " != null", nil
	case OpNotExists:
		return target + " = null", nil
	case OpIsTrue:
		return target + " = true", nil
	case OpIsFalse:
		return target + " = false", nil
	}

	if c.Value == nil {
		return "", fmt.Errorf("%w: operator %s", types.ErrMissingValue, c.Operator)
	}

	switch c.Operator {
	case OpEq, OpNeq, OpLt, OpLte, OpGt, OpGte:
		lit, err := generateLiteral(c.Value)
		if err != nil {
			return "", err
		}
		return target + " " + string(c.Operator) + " " + lit, nil
	case OpContains, OpNotContains:
		lit, err := generateLiteral(c.Value)
		if err != nil {
			return "", err
		}
		return bang(c.Operator == OpNotContains) + "contains(" + target + ", " + lit + ")", nil
	case OpStartsWith, OpNotStartsWith, OpEndsWith, OpNotEndsWith:
		text, ok := coerceText(c.Value)
		if !ok {
			return "", fmt.Errorf("%w: unsupported literal %T", types.ErrMissingValue, c.Value)
		}
		pattern := text + "*"
		if c.Operator == OpEndsWith || c.Operator == OpNotEndsWith {
			pattern = "*" + text
		}
		negate := c.Operator == OpNotStartsWith || c.Operator == OpNotEndsWith
		return bang(negate) + "match(" + target + ", " + quote(pattern) + ")", nil
	default:
		return "", fmt.Errorf("%w: %q", types.ErrInvalidOperator, c.Operator)
	}
}

func generateTarget(c *Condition) (string, error) {
	var prefix string
	switch c.Type {
	case TypeEventType:
		return "type", nil
	case TypeEvent:
		return "event", nil
	case TypeName:
		return "name", nil
	case TypeUserID:
		return "userId", nil
	case TypeEventProperty:
		prefix = "properties."
	case TypeEventTrait:
		prefix = "traits."
	case TypeEventContext:
		prefix = "context."
	default:
		return "", fmt.Errorf("%w: %q", types.ErrInvalidConditionType, c.Type)
	}
	if c.Name == "" {
		return "", fmt.Errorf("%w: %s", types.ErrMissingName, c.Type)
	}
	return prefix + EscapePath(c.Name), nil
}

func generateLiteral(v any) (string, error) {
	switch lit := v.(type) {
	case string:
		return quote(lit), nil
	case bool:
		return strconv.FormatBool(lit), nil
	}
	f, ok := toFloat64(v)
	if !ok {
		return "", fmt.Errorf("%w: unsupported literal %T", types.ErrMissingValue, v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", fmt.Errorf("%w: non-finite number %v", types.ErrMissingValue, f)
	}
	return strconv.FormatFloat(f, 'f', -1, 64), nil
}

// quote wraps s in double quotes, escaping only '"' and '\'.
func quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		if s[i] == '"' || s[i] == '\\' {
			b.WriteByte('\\')
		}
		b.WriteByte(s[i])
	}
	b.WriteByte('"')
	return b.String()
}

func bang(negate bool) string {
	if negate {
		return "!"
	}
	return ""
}
