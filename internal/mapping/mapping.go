// internal/mapping/mapping.go
package mapping

/*
 * Field mapping for matched subscriptions.
 *
 * A mapping is a JSON-shaped object whose leaves are either plain values,
 * copied as-is, or directives: single-key objects whose key starts with '@'.
 *
 *   {"@path": "$.properties.total"}    value at a dotted path of the event
 *   {"@literal": <value>}              value itself (nested directives resolved)
 *   {"@if": {"exists"|"blank": <v>, "then": <v>, "else": <v>}}
 *   {"@expr": "properties.total * 100"} expr-lang expression over the event
 *
 * Keys whose value resolves to nothing are dropped from the payload.
 */

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/segmentio/action-destinations-sub030/internal/fql"
	"github.com/segmentio/action-destinations-sub030/internal/types"
)

// ErrInvalidMapping reports a malformed directive.
var ErrInvalidMapping = errors.New("invalid mapping")

// Transformer turns a subscription mapping plus an event into an action payload.
// Compiled @expr programs are cached per expression text; a Transformer is
// safe for concurrent use.
type Transformer struct {
	programs sync.Map // string -> *vm.Program
}

// New creates a transformer with an empty program cache.
func New() *Transformer {
	return &Transformer{}
}

// Transform resolves every key of mapping against event.
func (t *Transformer) Transform(mapping map[string]any, event types.Event) (map[string]any, error) {
	payload := map[string]any(event)
	if payload == nil {
		payload = map[string]any{}
	}

	out, ok, err := t.resolve(mapping, payload)
	if err != nil {
		return nil, err
	}
	if !ok {
		return map[string]any{}, nil
	}
	m, isMap := out.(map[string]any)
	if !isMap {
		return nil, fmt.Errorf("%w: top-level mapping resolved to %T, want an object", ErrInvalidMapping, out)
	}
	return m, nil
}

// resolve returns the value of v; ok is false when v resolves to nothing.
func (t *Transformer) resolve(v any, payload map[string]any) (any, bool, error) {
	switch v := v.(type) {
	case map[string]any:
		if name, arg, isDirective, err := directive(v); err != nil {
			return nil, false, err
		} else if isDirective {
			return t.apply(name, arg, payload)
		}
		out := make(map[string]any, len(v))
		for k, child := range v {
			value, ok, err := t.resolve(child, payload)
			if err != nil {
				return nil, false, err
			}
			if ok {
				out[k] = value
			}
		}
		return out, true, nil
	case []any:
		out := make([]any, 0, len(v))
		for _, child := range v {
			value, ok, err := t.resolve(child, payload)
			if err != nil {
				return nil, false, err
			}
			if ok {
				out = append(out, value)
			}
		}
		return out, true, nil
	default:
		return v, true, nil
	}
}

// directive reports whether m is a directive object. Objects mixing a
// directive key with other keys are rejected.
func directive(m map[string]any) (string, any, bool, error) {
	var name string
	for k := range m {
		if strings.HasPrefix(k, "@") {
			name = k
			break
		}
	}
	if name == "" {
		return "", nil, false, nil
	}
	if len(m) != 1 {
		return "", nil, false, fmt.Errorf("%w: directive %s must be the only key", ErrInvalidMapping, name)
	}
	return name, m[name], true, nil
}

func (t *Transformer) apply(name string, arg any, payload map[string]any) (any, bool, error) {
	switch name {
	case "@path":
		return t.path(arg, payload)
	case "@literal":
		return t.resolve(arg, payload)
	case "@if":
		return t.cond(arg, payload)
	case "@expr":
		return t.eval(arg, payload)
	default:
		return nil, false, fmt.Errorf("%w: unknown directive %s", ErrInvalidMapping, name)
	}
}

func (t *Transformer) path(arg any, payload map[string]any) (any, bool, error) {
	// the path itself may come from a directive
	arg, ok, err := t.resolve(arg, payload)
	if err != nil || !ok {
		return nil, false, err
	}
	p, isString := arg.(string)
	if !isString {
		return nil, false, fmt.Errorf("%w: @path wants a string, got %T", ErrInvalidMapping, arg)
	}

	p = strings.TrimPrefix(strings.TrimPrefix(p, "$"), ".")
	if p == "" {
		return payload, true, nil
	}
	v, found := fql.Resolve(payload, p)
	return v, found, nil
}

func (t *Transformer) cond(arg any, payload map[string]any) (any, bool, error) {
	opts, ok := arg.(map[string]any)
	if !ok {
		return nil, false, fmt.Errorf("%w: @if wants an object, got %T", ErrInvalidMapping, arg)
	}

	var holds bool
	if operand, ok := opts["exists"]; ok {
		v, found, err := t.resolve(operand, payload)
		if err != nil {
			return nil, false, err
		}
		holds = found && v != nil
	} else if operand, ok := opts["blank"]; ok {
		v, found, err := t.resolve(operand, payload)
		if err != nil {
			return nil, false, err
		}
		// then-branch runs for values that are present and not blank
		holds = found && v != nil && v != ""
	} else {
		return nil, false, fmt.Errorf("%w: @if needs an exists or blank condition", ErrInvalidMapping)
	}

	branch, present := opts["else"]
	if holds {
		branch, present = opts["then"]
	}
	if !present {
		return nil, false, nil
	}
	return t.resolve(branch, payload)
}

func (t *Transformer) eval(arg any, payload map[string]any) (any, bool, error) {
	src, ok := arg.(string)
	if !ok || strings.TrimSpace(src) == "" {
		return nil, false, fmt.Errorf("%w: @expr wants a non-empty string", ErrInvalidMapping)
	}
	program, err := t.program(src)
	if err != nil {
		return nil, false, err
	}
	out, err := expr.Run(program, payload)
	if err != nil {
		return nil, false, fmt.Errorf("@expr %q: %w", src, err)
	}
	return out, out != nil, nil
}

func (t *Transformer) program(src string) (*vm.Program, error) {
	if p, ok := t.programs.Load(src); ok {
		return p.(*vm.Program), nil
	}
	p, err := expr.Compile(src, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, fmt.Errorf("%w: @expr %q: %v", ErrInvalidMapping, src, err)
	}
	actual, _ := t.programs.LoadOrStore(src, p)
	return actual.(*vm.Program), nil
}
