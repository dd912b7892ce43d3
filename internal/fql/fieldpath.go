// internal/fql/fieldpath.go
package fql

import (
	"strings"

	"github.com/segmentio/action-destinations-sub030/internal/types"
)

/*
 * Field path resolution against decoded events.
 *
 * Paths are dotted key chains ("a.b.c") walked through nested objects. Each
 * segment is a plain map lookup: there is no array indexing and no wildcard,
 * so a segment that lands on a scalar, an array or a missing key ends the
 * walk with found=false.
 *
 * Segments are cut from the path in place (strings.Cut) so resolution does
 * not allocate on the evaluation hot path.
 *
 * Condition types map to event roots as follows:
 *   - event-type      -> event.type
 *   - event, name     -> event.event
 *   - userId          -> event.userId
 *   - event-property  -> event.properties.<name>, or event.traits.<name>
 *                        for identify and group events
 *   - event-trait     -> event.traits.<name>
 *   - event-context   -> event.context.<name>
 */

// Resolve walks a dotted path through nested objects in data.
// Returns the value and true when every segment resolves.
func Resolve(data any, path string) (any, bool) {
	current := data
	for {
		seg, rest, more := strings.Cut(path, ".")
		obj, ok := asObject(current)
		if !ok {
			return nil, false
		}
		val, ok := obj[seg]
		if !ok {
			return nil, false
		}
		if !more {
			return val, true
		}
		current = val
		path = rest
	}
}

// resolveCondition finds the event value a condition compares against.
// A nil result means the attribute is absent or explicitly null.
func resolveCondition(c *Condition, event types.Event) any {
	switch c.Type {
	case TypeEventType:
		return event[types.KeyType]
	case TypeEvent, TypeName:
		return event[types.KeyEvent]
	case TypeUserID:
		return event[types.KeyUserID]
	case TypeEventProperty:
		root := types.KeyProperties
		if t := event.Type(); t == "identify" || t == "group" {
			root = types.KeyTraits
		}
		v, _ := Resolve(event[root], c.Name)
		return v
	case TypeEventTrait:
		v, _ := Resolve(event[types.KeyTraits], c.Name)
		return v
	case TypeEventContext:
		v, _ := Resolve(event[types.KeyContext], c.Name)
		return v
	default:
		return nil
	}
}

func asObject(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case types.Event:
		return m, true
	default:
		return nil, false
	}
}
