// internal/fql/coercion.go
package fql

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/segmentio/action-destinations-sub030/internal/types"
)

/*
 * Type coercion for condition evaluation.
 *
 * Event values are coerced toward the kind of the literal they are compared
 * with, so a string property "123" equals the numeric literal 123 and a
 * numeric property 123 equals the string literal "123".
 *
 * Kinds:
 *   - Numeric: float64, all integer widths, json.Number and numeric strings
 *     (whitespace trimmed, empty rejected). Booleans are rejected.
 *   - Text: strings, numbers (shortest round-trip form) and booleans.
 *     Objects and arrays are rejected; they never equal a scalar literal.
 *   - Boolean: bool only. "true" and 1 are not coerced.
 *
 * Null is reported separately from coercion failure. Evaluation treats both
 * as a non-match; the distinction exists for diagnostics.
 */

// ValueKind is the comparison domain of a literal.
type ValueKind int

const (
	KindUnknown ValueKind = iota
	KindNumeric
	KindText
	KindBoolean
)

// CoercionResult holds the coerced value or indicates null.
type CoercionResult struct {
	Value  any  // coerced value (valid only if !IsNull)
	IsNull bool // true if input was nil
}

// KindOf reports the comparison kind of a literal value.
func KindOf(literal any) ValueKind {
	switch literal.(type) {
	case string:
		return KindText
	case bool:
		return KindBoolean
	default:
		if _, ok := toFloat64(literal); ok {
			return KindNumeric
		}
		return KindUnknown
	}
}

// Coerce converts value to the given kind.
// Returns CoercionResult with IsNull=true for nil input.
// Returns ErrCoercionFailed for impossible coercions.
func Coerce(value any, kind ValueKind) (CoercionResult, error) {
	if value == nil {
		return CoercionResult{IsNull: true}, nil
	}

	switch kind {
	case KindNumeric:
		f, ok := coerceNumeric(value)
		if !ok {
			return CoercionResult{}, types.ErrCoercionFailed
		}
		return CoercionResult{Value: f}, nil
	case KindText:
		s, ok := coerceText(value)
		if !ok {
			return CoercionResult{}, types.ErrCoercionFailed
		}
		return CoercionResult{Value: s}, nil
	case KindBoolean:
		b, ok := value.(bool)
		if !ok {
			return CoercionResult{}, types.ErrCoercionFailed
		}
		return CoercionResult{Value: b}, nil
	default:
		return CoercionResult{}, types.ErrCoercionFailed
	}
}

func coerceNumeric(value any) (float64, bool) {
	if f, ok := toFloat64(value); ok {
		return f, true
	}
	s, ok := value.(string)
	if !ok {
		return 0, false
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func coerceText(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case bool:
		return strconv.FormatBool(v), true
	case json.Number:
		return v.String(), true
	}
	if f, ok := toFloat64(value); ok {
		return strconv.FormatFloat(f, 'f', -1, 64), true
	}
	return "", false
}

// toFloat64 converts Go numeric types to float64.
// Integers arrive from hand-built events and YAML; JSON decoding yields float64.
func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
