package fql

/*
 * Condition tree for subscription expressions.
 *
 * Node is a closed sum type: *Group, *Condition and *ErrorNode are the only
 * implementations (the marker method is unexported). Consumers switch on the
 * concrete type.
 *
 * ErrorNode is the deferred-failure sentinel: builders that receive
 * malformed input (DecodeTree, ParseTree) return it instead of failing, and
 * consumers (Validate, Generate, Check) return the wrapped error verbatim
 * when they reach it.
 *
 * Trees are immutable once built. The parse cache shares a single tree
 * between goroutines, so nothing in this package mutates a tree after
 * construction.
 */

// Node is one element of a condition tree.
type Node interface {
	node()
}

// ConditionType names the event attribute a condition inspects.
type ConditionType string

const (
	TypeGroup         ConditionType = "group"
	TypeEventType     ConditionType = "event-type"
	TypeEvent         ConditionType = "event"
	TypeName          ConditionType = "name"
	TypeUserID        ConditionType = "userId"
	TypeEventProperty ConditionType = "event-property"
	TypeEventTrait    ConditionType = "event-trait"
	TypeEventContext  ConditionType = "event-context"
)

// HasName reports whether the type addresses a dotted field path and so
// requires Condition.Name.
func (t ConditionType) HasName() bool {
	switch t {
	case TypeEventProperty, TypeEventTrait, TypeEventContext:
		return true
	default:
		return false
	}
}

// valid reports whether t is a leaf condition type.
func (t ConditionType) valid() bool {
	switch t {
	case TypeEventType, TypeEvent, TypeName, TypeUserID,
		TypeEventProperty, TypeEventTrait, TypeEventContext:
		return true
	default:
		return false
	}
}

// Operator is a leaf comparison operator.
type Operator string

const (
	OpEq            Operator = "="
	OpNeq           Operator = "!="
	OpLt            Operator = "<"
	OpLte           Operator = "<="
	OpGt            Operator = ">"
	OpGte           Operator = ">="
	OpContains      Operator = "contains"
	OpNotContains   Operator = "not_contains"
	OpStartsWith    Operator = "starts_with"
	OpNotStartsWith Operator = "not_starts_with"
	OpEndsWith      Operator = "ends_with"
	OpNotEndsWith   Operator = "not_ends_with"
	OpExists        Operator = "exists"
	OpNotExists     Operator = "not_exists"
	OpIsTrue        Operator = "is_true"
	OpIsFalse       Operator = "is_false"
)

// IsUnary reports whether the operator takes no literal value.
func (o Operator) IsUnary() bool {
	switch o {
	case OpExists, OpNotExists, OpIsTrue, OpIsFalse:
		return true
	default:
		return false
	}
}

func (o Operator) valid() bool {
	switch o {
	case OpEq, OpNeq, OpLt, OpLte, OpGt, OpGte,
		OpContains, OpNotContains,
		OpStartsWith, OpNotStartsWith, OpEndsWith, OpNotEndsWith,
		OpExists, OpNotExists, OpIsTrue, OpIsFalse:
		return true
	default:
		return false
	}
}

// GroupOperator combines the children of a Group.
type GroupOperator string

const (
	And GroupOperator = "and"
	Or  GroupOperator = "or"
)

// Group is an ordered boolean combination of child nodes.
type Group struct {
	Operator GroupOperator
	Children []Node
}

// Condition is a single comparison against one event attribute.
// Value holds a string, float64 or bool; it is nil for unary operators.
// Integer values supplied by callers are treated as numbers.
type Condition struct {
	Type     ConditionType
	Operator Operator
	Name     string
	Value    any
}

// ErrorNode stands in for a tree that could not be built.
type ErrorNode struct {
	Err error
}

func (*Group) node()     {}
func (*Condition) node() {}
func (*ErrorNode) node() {}

// NewGroup builds a group node.
func NewGroup(op GroupOperator, children ...Node) *Group {
	return &Group{Operator: op, Children: children}
}
