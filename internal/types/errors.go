package types

import "errors"

// Sentinel errors for subscription parsing, evaluation and dispatch.
var (
	// ErrEmptyExpression indicates FQL text with no conditions.
	ErrEmptyExpression = errors.New("subscription expression is empty")

	// ErrEmptyGroup indicates a group node without children.
	ErrEmptyGroup = errors.New("condition group has no children")

	// ErrExpressionTooLong indicates FQL text exceeds MaxFQLLength.
	ErrExpressionTooLong = errors.New("subscription expression exceeds maximum length")

	// ErrPathTooDeep indicates a field name exceeds MaxPathDepth segments.
	ErrPathTooDeep = errors.New("field path exceeds maximum depth")

	// ErrNestingTooDeep indicates parentheses nest beyond MaxNestingDepth.
	ErrNestingTooDeep = errors.New("groups nested beyond maximum depth")

	// ErrInvalidOperator indicates an unknown operator or one that does not
	// fit its operands.
	ErrInvalidOperator = errors.New("invalid operator")

	// ErrInvalidConditionType indicates an unknown condition type.
	ErrInvalidConditionType = errors.New("invalid condition type")

	// ErrMissingName indicates a dotted-path condition without a field name.
	ErrMissingName = errors.New("condition requires a field name")

	// ErrMissingValue indicates a binary operator without a literal value.
	ErrMissingValue = errors.New("condition requires a value")

	// ErrInvalidLiteral indicates a literal the operator cannot carry in FQL
	// text, such as a boolean ordering or an ends_with suffix ending in '*'.
	ErrInvalidLiteral = errors.New("invalid literal for operator")

	// ErrCoercionFailed indicates an event value cannot be converted to the
	// kind of the literal it is compared with.
	ErrCoercionFailed = errors.New("type coercion failed")

	// ErrInvalidSubscription indicates a subscription whose FQL cannot be parsed.
	ErrInvalidSubscription = errors.New("invalid subscription")

	// ErrActionNotFound indicates a subscription names an unknown partner action.
	ErrActionNotFound = errors.New("action not found")

	// ErrSubscriptionNotFound indicates a store lookup miss.
	ErrSubscriptionNotFound = errors.New("subscription not found")
)
