// internal/fql/evaluate.go
package fql

import (
	"fmt"
	"strings"

	"github.com/segmentio/action-destinations-sub030/internal/types"
)

/*
 * Condition tree evaluation.
 *
 * Validate runs in two phases:
 *   1. Check walks the whole tree and returns the first structural error
 *      (ErrorNode, empty group, unknown operator or type, missing name or
 *      value, literal with no FQL text form). A tree that fails Check
 *      never evaluates, even when short-circuiting would skip the bad
 *      branch.
 *   2. evaluateNode applies and/or with short-circuit in child order. Each
 *      condition resolves its event attribute and hands the raw value to
 *      Compare.
 *
 * Evaluation is pure: no I/O, no mutation of tree or event, safe to call
 * from any number of goroutines on shared trees.
 */

// Validate reports whether event satisfies tree.
// Returns the wrapped error when tree is or contains an ErrorNode, or is
// otherwise malformed. A nil event never matches.
func Validate(tree Node, event types.Event) (bool, error) {
	if err := Check(tree); err != nil {
		return false, err
	}
	if event == nil {
		return false, nil
	}
	return evaluateNode(tree, event), nil
}

// Check verifies a tree is well formed.
// ErrorNode errors are returned verbatim; other failures wrap a sentinel
// from the types package.
func Check(n Node) error {
	switch t := n.(type) {
	case *ErrorNode:
		if t == nil || t.Err == nil {
			return types.ErrEmptyExpression
		}
		return t.Err
	case *Group:
		if t == nil {
			return types.ErrEmptyExpression
		}
		return checkGroup(t)
	case *Condition:
		if t == nil {
			return types.ErrEmptyExpression
		}
		return checkCondition(t)
	default:
		return types.ErrEmptyExpression
	}
}

func checkGroup(g *Group) error {
	if g.Operator != And && g.Operator != Or {
		return fmt.Errorf("%w: group operator %q", types.ErrInvalidOperator, g.Operator)
	}
	if len(g.Children) == 0 {
		return types.ErrEmptyGroup
	}
	for _, child := range g.Children {
		if err := Check(child); err != nil {
			return err
		}
	}
	return nil
}

func checkCondition(c *Condition) error {
	if !c.Type.valid() {
		return fmt.Errorf("%w: %q", types.ErrInvalidConditionType, c.Type)
	}
	if !c.Operator.valid() {
		return fmt.Errorf("%w: %q", types.ErrInvalidOperator, c.Operator)
	}
	if c.Type.HasName() && c.Name == "" {
		return fmt.Errorf("%w: %s", types.ErrMissingName, c.Type)
	}
	if c.Operator.IsUnary() {
		return nil
	}
	if c.Value == nil {
		return fmt.Errorf("%w: operator %s", types.ErrMissingValue, c.Operator)
	}
	if KindOf(c.Value) == KindUnknown {
		return fmt.Errorf("%w: unsupported literal %T", types.ErrMissingValue, c.Value)
	}
	return checkLiteral(c)
}

// checkLiteral rejects operator and literal pairs with no FQL text form.
// Booleans compare with '!=' only; '=' true/false is is_true/is_false.
// Affix operators take strings, and an ends_with suffix must be non-empty
// without a trailing '*' so match(x, "*suffix") is not read as a prefix.
func checkLiteral(c *Condition) error {
	_, isBool := c.Value.(bool)
	switch c.Operator {
	case OpEq:
		if isBool {
			return fmt.Errorf("%w: %s %v, use is_true or is_false", types.ErrInvalidLiteral, c.Operator, c.Value)
		}
	case OpLt, OpLte, OpGt, OpGte:
		if isBool {
			return fmt.Errorf("%w: %s %v", types.ErrInvalidLiteral, c.Operator, c.Value)
		}
	case OpStartsWith, OpNotStartsWith, OpEndsWith, OpNotEndsWith:
		s, ok := c.Value.(string)
		if !ok {
			return fmt.Errorf("%w: %s needs a string, got %T", types.ErrInvalidLiteral, c.Operator, c.Value)
		}
		if (c.Operator == OpEndsWith || c.Operator == OpNotEndsWith) && (s == "" || strings.HasSuffix(s, "*")) {
			return fmt.Errorf("%w: %s %q", types.ErrInvalidLiteral, c.Operator, s)
		}
	}
	return nil
}

// evaluateNode assumes n passed Check.
func evaluateNode(n Node, event types.Event) bool {
	switch t := n.(type) {
	case *Group:
		if t.Operator == And {
			for _, child := range t.Children {
				if !evaluateNode(child, event) {
					return false
				}
			}
			return true
		}
		for _, child := range t.Children {
			if evaluateNode(child, event) {
				return true
			}
		}
		return false
	case *Condition:
		return Compare(t.Operator, resolveCondition(t, event), t.Value)
	default:
		return false
	}
}
