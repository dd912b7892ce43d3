package fql

import (
	"math"
	"sort"
	"strings"

	"github.com/segmentio/action-destinations-sub030/internal/types"
)

/*
 * Sample event synthesis.
 *
 * SampleEvent builds an event that a subscription is expected to match,
 * for previewing and testing destination actions. Groups contribute
 * conditions the way a user would satisfy them: every child of an "and"
 * group, the first child of an "or" group. Event-type conditions apply
 * first so later property conditions know which root they write to.
 *
 * Value choice per operator picks the first candidate that Compare accepts
 * (e.g. "not X" for !=, n+1 for >). When none does but an absent field
 * satisfies the condition, the field is left unset.
 * Conditions that contradict each other still produce an event, just not
 * a matching one.
 */

// SampleEvent returns a copy of base with the fields tree inspects set to
// values that satisfy it. base is not modified.
func SampleEvent(tree Node, base types.Event) (types.Event, error) {
	if err := Check(tree); err != nil {
		return nil, err
	}

	event, _ := cloneValue(map[string]any(base)).(map[string]any)
	if event == nil {
		event = map[string]any{}
	}

	var conds []*Condition
	collectSample(tree, &conds)
	for _, c := range conds {
		if c.Type == TypeEventType {
			applySample(event, c)
		}
	}
	for _, c := range conds {
		if c.Type != TypeEventType {
			applySample(event, c)
		}
	}

	switch types.Event(event).Type() {
	case "track":
		dropIfEmpty(event, types.KeyTraits)
	case "identify":
		dropIfEmpty(event, types.KeyProperties)
	}
	return types.Event(event), nil
}

func collectSample(n Node, out *[]*Condition) {
	switch t := n.(type) {
	case *Group:
		if t.Operator == Or {
			collectSample(t.Children[0], out)
			return
		}
		for _, child := range t.Children {
			collectSample(child, out)
		}
	case *Condition:
		*out = append(*out, t)
	}
}

func applySample(event map[string]any, c *Condition) {
	value, ok := sampleValue(c.Operator, c.Value)

	switch c.Type {
	case TypeEventType:
		setOrDelete(event, types.KeyType, value, ok)
	case TypeEvent:
		setOrDelete(event, types.KeyEvent, value, ok)
		defaultType(event, "track")
	case TypeName:
		setOrDelete(event, types.KeyEvent, value, ok)
		setOrDelete(event, types.KeyName, value, ok)
		defaultType(event, "page")
	case TypeUserID:
		setOrDelete(event, types.KeyUserID, value, ok)
	case TypeEventProperty:
		defaultType(event, "track")
		root := types.KeyProperties
		if t := types.Event(event).Type(); t == "identify" || t == "group" {
			root = types.KeyTraits
		}
		setPath(event, root, c.Name, value, ok)
	case TypeEventTrait:
		defaultType(event, "identify")
		setPath(event, types.KeyTraits, c.Name, value, ok)
	case TypeEventContext:
		setPath(event, types.KeyContext, c.Name, value, ok)
	}
}

// sampleValue returns the value to store, or ok=false when the field
// should be absent.
func sampleValue(op Operator, literal any) (any, bool) {
	if op == OpNotExists {
		return nil, false
	}
	candidates := sampleCandidates(op, literal)
	for _, c := range candidates {
		if Compare(op, c, literal) {
			return c, true
		}
	}
	if Compare(op, nil, literal) {
		return nil, false
	}
	return candidates[0], true
}

func sampleCandidates(op Operator, literal any) []any {
	switch op {
	case OpExists:
		return []any{"value"}
	case OpIsTrue:
		return []any{true}
	case OpIsFalse:
		return []any{false}
	case OpLt:
		if n, ok := coerceNumeric(literal); ok {
			return []any{n - 1, math.Nextafter(n, math.Inf(-1))}
		}
	case OpGt:
		if n, ok := coerceNumeric(literal); ok {
			return []any{n + 1, math.Nextafter(n, math.Inf(1))}
		}
	case OpContains, OpStartsWith, OpEndsWith:
		if text, ok := coerceText(literal); ok {
			return []any{literal, text}
		}
	case OpNeq, OpNotContains, OpNotStartsWith, OpNotEndsWith:
		var out []any
		switch v := literal.(type) {
		case string:
			out = append(out, "not "+v, v+" ...")
		case bool:
			out = append(out, !v)
		default:
			if n, ok := toFloat64(v); ok {
				out = append(out, n+1)
			}
		}
		return append(out, "sample", "")
	}
	return []any{literal}
}

func setOrDelete(event map[string]any, key string, value any, ok bool) {
	if ok {
		event[key] = value
		return
	}
	delete(event, key)
}

func defaultType(event map[string]any, t string) {
	if types.Event(event).Type() == "" {
		event[types.KeyType] = t
	}
}

// setPath writes value at a dotted path below event[root], creating
// intermediate objects and replacing scalars in the way.
func setPath(event map[string]any, root, path string, value any, ok bool) {
	current, isObj := event[root].(map[string]any)
	if !isObj {
		if !ok {
			return
		}
		current = map[string]any{}
		event[root] = current
	}

	keys := strings.Split(path, ".")
	for _, key := range keys[:len(keys)-1] {
		next, isObj := current[key].(map[string]any)
		if !isObj {
			if !ok {
				return
			}
			next = map[string]any{}
			current[key] = next
		}
		current = next
	}
	setOrDelete(current, keys[len(keys)-1], value, ok)
}

func dropIfEmpty(event map[string]any, key string) {
	if m, ok := event[key].(map[string]any); ok && len(m) == 0 {
		delete(event, key)
	}
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = cloneValue(val)
		}
		return out
	case types.Event:
		return cloneValue(map[string]any(t))
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = cloneValue(val)
		}
		return out
	default:
		return v
	}
}

// Source-specific contexts for BaseEvent.
var (
	browserContext = map[string]any{
		"ip": "8.8.8.8",
		"library": map[string]any{
			"name":    "analytics.js",
			"version": "3.12.1",
		},
		"page": map[string]any{
			"path":     "/docs/connections/spec/common/",
			"referrer": "https://google.com",
			"search":   "?query=segment",
			"title":    "Common Specs",
			"url":      "https://segment.com/docs/connections/spec/common/",
		},
		"userAgent": "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.114 Safari/537.36",
	}

	mobileContext = map[string]any{
		"device": map[string]any{
			"id":           "d4a11111-e89b-12d3-a456-426614174000",
			"manufacturer": "Apple",
			"model":        "iPhone12,3",
			"name":         "Segment's iPhone",
			"type":         "ios",
		},
		"library": map[string]any{
			"name":    "analytics-ios",
			"version": "4.1.2",
		},
		"locale": "en-US",
		"network": map[string]any{
			"carrier": "Verizon",
			"wifi":    true,
		},
		"os": map[string]any{
			"name":    "iOS",
			"version": "14.4",
		},
		"timezone": "America/Los_Angeles",
		"ip":       "8.8.8.8",
	}

	serverContext = map[string]any{
		"library": map[string]any{
			"name":    "analytics-node",
			"version": "2.2.1",
		},
		"ip":        "8.8.4.4",
		"locale":    "en-US",
		"userAgent": "node.js/v14.16.0",
	}

	computedContext = map[string]any{
		"library": map[string]any{
			"name":    "unknown",
			"version": "unknown",
		},
		"personas": map[string]any{
			"computation_class": "audience",
			"computation_id":    "aud_unknown",
			"computation_key":   "sample_computation_key",
			"namespace":         "sample_namespace",
			"space_id":          "sample_space_id",
		},
		"traits": map[string]any{},
	}

	sourceContexts = map[string]map[string]any{
		"javascript":         browserContext,
		"project":            browserContext,
		"personas-compute":   computedContext,
		"ios":                mobileContext,
		"android":            mobileContext,
		"react-native":       mobileContext,
		"swift":              mobileContext,
		"kotlin-android":     mobileContext,
		"node.js":            serverContext,
		"http-api":           serverContext,
		"python":             serverContext,
		"ruby":               serverContext,
		"php":                serverContext,
		"net":                serverContext,
		"java":               serverContext,
		"go":                 serverContext,
		"shopify-littledata": serverContext,
		"stripe":             serverContext,
	}
)

// BaseEvent returns a fresh event skeleton carrying the context a source of
// the given type would attach. Unknown source types get an empty context.
func BaseEvent(sourceType string) types.Event {
	context, _ := cloneValue(sourceContexts[sourceType]).(map[string]any)
	if context == nil {
		context = map[string]any{}
	}
	return types.Event{
		"properties":  map[string]any{},
		"traits":      map[string]any{},
		"context":     context,
		"messageId":   types.NewMessageID(),
		"receivedAt":  "2023-12-10T04:08:31.909Z",
		"sentAt":      "2023-12-10T04:08:31.581Z",
		"timestamp":   "2023-12-10T04:08:31.905Z",
		"anonymousId": "507f191e810c19729de860ea",
	}
}

// SourceTypes lists the source types BaseEvent knows.
func SourceTypes() []string {
	out := make([]string, 0, len(sourceContexts))
	for k := range sourceContexts {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
