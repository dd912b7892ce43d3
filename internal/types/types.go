// Package types provides domain models shared across the subscription engine,
// the dispatch layer and the subscription store.
//
// Zero-dependency design: types.go and errors.go use only the standard library
// so the fql package can be embedded in small binaries. ID utilities in ids.go
// import uuid but are isolated from the evaluation path.
package types

// Event is a decoded analytics event as produced by the dispatch collaborator.
// Shape: {type, event?, name?, userId?, properties?, traits?, context?, ...}.
// Nested objects must be map[string]any, matching encoding/json decoding
// into any. Arrays are []any when decoded; hand-built typed slices such as
// []string are also accepted by contains. The engine only reads events.
type Event map[string]any

// Type returns the event type ("track", "identify", ...) or "" when absent.
func (e Event) Type() string {
	s, _ := e["type"].(string)
	return s
}

// Well-known top-level event keys.
const (
	KeyType       = "type"
	KeyEvent      = "event"
	KeyName       = "name"
	KeyUserID     = "userId"
	KeyProperties = "properties"
	KeyTraits     = "traits"
	KeyContext    = "context"
)

// Resource limits enforced by the parser to keep evaluation bounded.
const (
	// MaxFQLLength bounds subscription text accepted by the parser.
	// 64KB is orders of magnitude above any authored subscription.
	MaxFQLLength = 64 * 1024

	// MaxPathDepth bounds the number of dotted segments in a field name.
	MaxPathDepth = 16

	// MaxNestingDepth bounds parenthesized group nesting.
	MaxNestingDepth = 32
)
