// internal/fql/operators.go
package fql

import (
	"reflect"
	"strings"
)

/*
 * Operator comparison logic.
 *
 * Compare receives the raw resolved event value (nil when absent) and the
 * condition literal, and coerces the value toward the literal's kind.
 *
 * Operators:
 *   - exists/not_exists: presence (value non-nil)
 *   - is_true/is_false: boolean identity, no coercion
 *   - =, !=: equality after coercion; != is the exact negation
 *   - <, <=, >, >=: numeric only; both sides coerced to numbers
 *   - contains: substring on strings, element equality on slices and arrays
 *   - starts_with/ends_with: prefix/suffix on string values
 *   - not_*: exact negation of the positive form
 *
 * Any coercion failure makes the positive form false, so the negated form of
 * a comparison against a missing or mistyped value is true.
 */

// Compare applies the operator to an event value and a literal.
func Compare(op Operator, value, literal any) bool {
	switch op {
	case OpExists:
		return value != nil
	case OpNotExists:
		return value == nil
	case OpIsTrue:
		b, ok := value.(bool)
		return ok && b
	case OpIsFalse:
		b, ok := value.(bool)
		return ok && !b
	case OpEq:
		return compareEqual(value, literal)
	case OpNeq:
		return !compareEqual(value, literal)
	case OpLt:
		c, ok := compareNumeric(value, literal)
		return ok && c < 0
	case OpLte:
		c, ok := compareNumeric(value, literal)
		return ok && c <= 0
	case OpGt:
		c, ok := compareNumeric(value, literal)
		return ok && c > 0
	case OpGte:
		c, ok := compareNumeric(value, literal)
		return ok && c >= 0
	case OpContains:
		return compareContains(value, literal)
	case OpNotContains:
		return !compareContains(value, literal)
	case OpStartsWith:
		return compareAffix(value, literal, strings.HasPrefix)
	case OpNotStartsWith:
		return !compareAffix(value, literal, strings.HasPrefix)
	case OpEndsWith:
		return compareAffix(value, literal, strings.HasSuffix)
	case OpNotEndsWith:
		return !compareAffix(value, literal, strings.HasSuffix)
	default:
		return false
	}
}

// compareEqual coerces value to the literal's kind and compares.
func compareEqual(value, literal any) bool {
	if value == nil || literal == nil {
		return false
	}
	want, err := Coerce(literal, KindOf(literal))
	if err != nil {
		return false
	}
	got, err := Coerce(value, KindOf(literal))
	if err != nil || got.IsNull {
		return false
	}
	return got.Value == want.Value
}

// compareNumeric performs a three-way numeric comparison (-1/0/1).
// Returns ok=false when either side is not numeric.
func compareNumeric(value, literal any) (int, bool) {
	a, ok := coerceNumeric(value)
	if !ok {
		return 0, false
	}
	b, ok := coerceNumeric(literal)
	if !ok {
		return 0, false
	}
	switch {
	case a < b:
		return -1, true
	case a > b:
		return 1, true
	case a == b:
		return 0, true
	default:
		// NaN on either side
		return 0, false
	}
}

// compareContains checks substring containment for strings and element
// membership for arrays.
func compareContains(value, literal any) bool {
	switch v := value.(type) {
	case string:
		sub, ok := coerceText(literal)
		return ok && strings.Contains(v, sub)
	case []any:
		for _, elem := range v {
			if compareEqual(elem, literal) {
				return true
			}
		}
		return false
	case nil:
		return false
	}

	// typed slices from hand-built events, e.g. []string
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return false
	}
	for i := 0; i < rv.Len(); i++ {
		if compareEqual(rv.Index(i).Interface(), literal) {
			return true
		}
	}
	return false
}

func compareAffix(value, literal any, match func(s, affix string) bool) bool {
	s, ok := value.(string)
	if !ok {
		return false
	}
	affix, ok := coerceText(literal)
	return ok && match(s, affix)
}
