package fql

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/segmentio/action-destinations-sub030/internal/types"
)

func props(kv map[string]any) types.Event {
	return types.Event{"properties": kv}
}

func TestValidate_Operators(t *testing.T) {
	tests := []struct {
		name  string
		cond  *Condition
		event types.Event
		want  bool
	}{
		{name: "eq string match", cond: cond(TypeEventProperty, "value", OpEq, "x"), event: props(map[string]any{"value": "x"}), want: true},
		{name: "eq string mismatch", cond: cond(TypeEventProperty, "value", OpEq, "x"), event: props(map[string]any{"value": "y"}), want: false},
		{name: "eq number literal, number value", cond: cond(TypeEventProperty, "value", OpEq, 123.0), event: props(map[string]any{"value": 123.0}), want: true},
		{name: "eq number literal, string value", cond: cond(TypeEventProperty, "value", OpEq, 123.0), event: props(map[string]any{"value": "123"}), want: true},
		{name: "eq string literal, number value", cond: cond(TypeEventProperty, "value", OpEq, "123"), event: props(map[string]any{"value": 123.0}), want: true},
		{name: "eq number mismatch", cond: cond(TypeEventProperty, "value", OpEq, 123.0), event: props(map[string]any{"value": 0.0}), want: false},
		{name: "eq int literal", cond: cond(TypeEventProperty, "value", OpEq, 2), event: props(map[string]any{"value": 2.0}), want: true},
		{name: "eq against object", cond: cond(TypeEventProperty, "value", OpEq, "x"), event: props(map[string]any{"value": map[string]any{}}), want: false},
		{name: "eq missing", cond: cond(TypeEventProperty, "value", OpEq, "x"), event: props(map[string]any{}), want: false},
		{name: "is_true does not coerce string", cond: cond(TypeEventProperty, "value", OpIsTrue, nil), event: props(map[string]any{"value": "true"}), want: false},
		{name: "neq string", cond: cond(TypeEventProperty, "value", OpNeq, "x"), event: props(map[string]any{"value": "y"}), want: true},
		{name: "neq string same", cond: cond(TypeEventProperty, "value", OpNeq, "x"), event: props(map[string]any{"value": "x"}), want: false},
		{name: "neq number vs numeric string", cond: cond(TypeEventProperty, "value", OpNeq, "123"), event: props(map[string]any{"value": 123.0}), want: false},
		{name: "neq missing", cond: cond(TypeEventProperty, "value", OpNeq, "x"), event: props(map[string]any{}), want: true},
		{name: "lt true", cond: cond(TypeEventProperty, "value", OpLt, 10.0), event: props(map[string]any{"value": 5.0}), want: true},
		{name: "lt string value", cond: cond(TypeEventProperty, "value", OpLt, 10.0), event: props(map[string]any{"value": "5"}), want: true},
		{name: "lt string literal", cond: cond(TypeEventProperty, "value", OpLt, "10"), event: props(map[string]any{"value": 5.0}), want: true},
		{name: "lt equal", cond: cond(TypeEventProperty, "value", OpLt, 10.0), event: props(map[string]any{"value": 10.0}), want: false},
		{name: "lte equal", cond: cond(TypeEventProperty, "value", OpLte, 10.0), event: props(map[string]any{"value": "10"}), want: true},
		{name: "lte above", cond: cond(TypeEventProperty, "value", OpLte, 10.0), event: props(map[string]any{"value": 11.0}), want: false},
		{name: "gt true", cond: cond(TypeEventProperty, "value", OpGt, 10.0), event: props(map[string]any{"value": "11"}), want: true},
		{name: "gt equal", cond: cond(TypeEventProperty, "value", OpGt, 10.0), event: props(map[string]any{"value": 10.0}), want: false},
		{name: "gte equal", cond: cond(TypeEventProperty, "value", OpGte, 10.0), event: props(map[string]any{"value": 10.0}), want: true},
		{name: "gte below", cond: cond(TypeEventProperty, "value", OpGte, 10.0), event: props(map[string]any{"value": 5.0}), want: false},
		{name: "gt non-numeric value", cond: cond(TypeEventProperty, "value", OpGt, 10.0), event: props(map[string]any{"value": "abc"}), want: false},
		{name: "gt bool value", cond: cond(TypeEventProperty, "value", OpGt, 0.0), event: props(map[string]any{"value": true}), want: false},
		{name: "contains substring", cond: cond(TypeEventProperty, "value", OpContains, "bc"), event: props(map[string]any{"value": "abcd"}), want: true},
		{name: "contains substring miss", cond: cond(TypeEventProperty, "value", OpContains, "xy"), event: props(map[string]any{"value": "abcd"}), want: false},
		{name: "contains array element", cond: cond(TypeEventProperty, "tags", OpContains, "sale"), event: props(map[string]any{"tags": []any{"new", "sale"}}), want: true},
		{name: "contains array number", cond: cond(TypeEventProperty, "ids", OpContains, 3.0), event: props(map[string]any{"ids": []any{1.0, "3"}}), want: true},
		{name: "contains string slice", cond: cond(TypeEventProperty, "tags", OpContains, "sale"), event: props(map[string]any{"tags": []string{"new", "sale"}}), want: true},
		{name: "contains float slice", cond: cond(TypeEventProperty, "ids", OpContains, 3.0), event: props(map[string]any{"ids": []float64{1, 3}}), want: true},
		{name: "contains int slice with string literal", cond: cond(TypeEventProperty, "ids", OpContains, "2"), event: props(map[string]any{"ids": []int{1, 2}}), want: true},
		{name: "contains array value", cond: cond(TypeEventProperty, "tags", OpContains, "b"), event: props(map[string]any{"tags": [2]string{"a", "b"}}), want: true},
		{name: "contains typed slice miss", cond: cond(TypeEventProperty, "tags", OpContains, "c"), event: props(map[string]any{"tags": []string{"a", "b"}}), want: false},
		{name: "not contains typed slice", cond: cond(TypeEventProperty, "tags", OpNotContains, "c"), event: props(map[string]any{"tags": []string{"a"}}), want: true},
		{name: "contains array miss", cond: cond(TypeEventProperty, "tags", OpContains, "sal"), event: props(map[string]any{"tags": []any{"sale"}}), want: false},
		{name: "contains non-string", cond: cond(TypeEventProperty, "value", OpContains, "1"), event: props(map[string]any{"value": 123.0}), want: false},
		{name: "not contains", cond: cond(TypeEventProperty, "value", OpNotContains, "xy"), event: props(map[string]any{"value": "abcd"}), want: true},
		{name: "not contains hit", cond: cond(TypeEventProperty, "value", OpNotContains, "bc"), event: props(map[string]any{"value": "abcd"}), want: false},
		{name: "starts with", cond: cond(TypeEventProperty, "value", OpStartsWith, "ab"), event: props(map[string]any{"value": "abcd"}), want: true},
		{name: "starts with is case sensitive", cond: cond(TypeEventProperty, "value", OpStartsWith, "AB"), event: props(map[string]any{"value": "abcd"}), want: false},
		{name: "not starts with", cond: cond(TypeEventProperty, "value", OpNotStartsWith, "cd"), event: props(map[string]any{"value": "abcd"}), want: true},
		{name: "ends with", cond: cond(TypeEventProperty, "value", OpEndsWith, "cd"), event: props(map[string]any{"value": "abcd"}), want: true},
		{name: "ends with miss", cond: cond(TypeEventProperty, "value", OpEndsWith, "ab"), event: props(map[string]any{"value": "abcd"}), want: false},
		{name: "not ends with", cond: cond(TypeEventProperty, "value", OpNotEndsWith, "cd"), event: props(map[string]any{"value": "abcd"}), want: false},
		{name: "exists", cond: cond(TypeEventProperty, "value", OpExists, nil), event: props(map[string]any{"value": ""}), want: true},
		{name: "exists null", cond: cond(TypeEventProperty, "value", OpExists, nil), event: props(map[string]any{"value": nil}), want: false},
		{name: "exists missing", cond: cond(TypeEventProperty, "value", OpExists, nil), event: props(map[string]any{}), want: false},
		{name: "not exists missing", cond: cond(TypeEventProperty, "value", OpNotExists, nil), event: props(map[string]any{}), want: true},
		{name: "not exists present", cond: cond(TypeEventProperty, "value", OpNotExists, nil), event: props(map[string]any{"value": 0.0}), want: false},
		{name: "is true", cond: cond(TypeEventProperty, "value", OpIsTrue, nil), event: props(map[string]any{"value": true}), want: true},
		{name: "is true string", cond: cond(TypeEventProperty, "value", OpIsTrue, nil), event: props(map[string]any{"value": "true"}), want: false},
		{name: "is false", cond: cond(TypeEventProperty, "value", OpIsFalse, nil), event: props(map[string]any{"value": false}), want: true},
		{name: "is false missing", cond: cond(TypeEventProperty, "value", OpIsFalse, nil), event: props(map[string]any{}), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Validate(NewGroup(And, tt.cond), tt.event)
			if err != nil {
				t.Fatalf("Validate() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Validate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidate_Targets(t *testing.T) {
	event := types.Event{
		"type":   "track",
		"event":  "Page Viewed",
		"userId": "u-1",
		"properties": map[string]any{
			"name":      "Catalog",
			"product 1": map[string]any{"price": 12.0},
		},
		"traits":  map[string]any{"email": "a@b.c"},
		"context": map[string]any{"ip": "1.1.1.1", "page": map[string]any{"path": "/home"}},
	}

	tests := []struct {
		name string
		fql  string
		want bool
	}{
		{name: "type", fql: `type = "track"`, want: true},
		{name: "type mismatch", fql: `type = "identify"`, want: false},
		{name: "event", fql: `event = "Page Viewed"`, want: true},
		{name: "name reads event", fql: `name = "Page Viewed"`, want: true},
		{name: "userId", fql: `userId = "u-1"`, want: true},
		{name: "property", fql: `properties.name = "Catalog"`, want: true},
		{name: "escaped nested property", fql: `properties.product\ 1.price > 10`, want: true},
		{name: "trait on track", fql: `traits.email = "a@b.c"`, want: true},
		{name: "context nested", fql: `context.page.path = "/home"`, want: true},
		{name: "missing intermediate", fql: `context.device.id != null`, want: false},
		{name: "path through scalar", fql: `context.ip.octet = 1`, want: false},
		{name: "and", fql: `event = "Page Viewed" and type = "track"`, want: true},
		{name: "or", fql: `event = "Nope" or type = "track"`, want: true},
		{name: "mixed", fql: `type = "track" and event = "Nope" or event = "Page Viewed"`, want: true},
		{name: "or of ands", fql: `(type = "page" and event = "Page Viewed") or (context.ip = "2.2.2.2")`, want: false},
		{name: "not group", fql: `type != "group"`, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree, err := Parse(tt.fql)
			if err != nil {
				t.Fatalf("Parse(%q) error = %v", tt.fql, err)
			}
			got, err := Validate(tree, event)
			if err != nil {
				t.Fatalf("Validate() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Validate(%q) = %v, want %v", tt.fql, got, tt.want)
			}
		})
	}
}

func TestValidate_PropertiesFromTraitsForIdentifyAndGroup(t *testing.T) {
	tree := NewGroup(And, cond(TypeEventProperty, "email", OpEq, "a@b.c"))

	for _, typ := range []string{"identify", "group"} {
		event := types.Event{"type": typ, "traits": map[string]any{"email": "a@b.c"}}
		got, err := Validate(tree, event)
		if err != nil {
			t.Fatalf("Validate() error = %v", err)
		}
		if !got {
			t.Errorf("Validate(%s) = false, want true", typ)
		}
	}

	track := types.Event{"type": "track", "traits": map[string]any{"email": "a@b.c"}}
	if got, _ := Validate(tree, track); got {
		t.Errorf("Validate(track) = true, want false")
	}
}

func TestValidate_Scenario(t *testing.T) {
	tree := NewGroup(And, cond(TypeEventProperty, "value", OpEq, "x"))

	got, err := Validate(tree, types.Event{"type": "track", "properties": map[string]any{"value": "x"}})
	if err != nil || !got {
		t.Errorf("Validate(track) = %v, %v; want true", got, err)
	}

	got, err = Validate(tree, types.Event{"type": "identify", "properties": map[string]any{"value": "x"}})
	if err != nil || got {
		t.Errorf("Validate(identify) = %v, %v; want false", got, err)
	}
}

func TestValidate_EmptyEvents(t *testing.T) {
	tree := NewGroup(And, cond(TypeEventType, "", OpEq, "track"))

	for name, event := range map[string]types.Event{"nil": nil, "empty": {}} {
		got, err := Validate(tree, event)
		if err != nil {
			t.Fatalf("%s: Validate() error = %v", name, err)
		}
		if got {
			t.Errorf("%s: Validate() = true, want false", name)
		}
	}
}

func TestValidate_Errors(t *testing.T) {
	sentinel := errors.New("incomplete condition")

	tests := []struct {
		name    string
		tree    Node
		wantErr error
	}{
		{name: "error node", tree: &ErrorNode{Err: sentinel}, wantErr: sentinel},
		{
			name:    "error node behind a short circuit",
			tree:    NewGroup(Or, cond(TypeEventType, "", OpEq, "track"), &ErrorNode{Err: sentinel}),
			wantErr: sentinel,
		},
		{name: "empty group", tree: NewGroup(Or), wantErr: types.ErrEmptyGroup},
		{name: "nil", tree: nil, wantErr: types.ErrEmptyExpression},
		{name: "typed nil group", tree: (*Group)(nil), wantErr: types.ErrEmptyExpression},
		{name: "unknown operator", tree: cond(TypeEventType, "", "like", "x"), wantErr: types.ErrInvalidOperator},
		{name: "group as condition type", tree: cond(TypeGroup, "", OpEq, "x"), wantErr: types.ErrInvalidConditionType},
		{name: "missing name", tree: cond(TypeEventTrait, "", OpExists, nil), wantErr: types.ErrMissingName},
		{name: "missing value", tree: cond(TypeEventTrait, "a", OpGt, nil), wantErr: types.ErrMissingValue},
		{name: "unsupported literal", tree: cond(TypeEventTrait, "a", OpEq, []any{"x"}), wantErr: types.ErrMissingValue},
		{name: "ordered boolean", tree: cond(TypeEventTrait, "a", OpGte, false), wantErr: types.ErrInvalidLiteral},
		{name: "equals boolean", tree: cond(TypeEventTrait, "a", OpEq, true), wantErr: types.ErrInvalidLiteral},
		{name: "numeric suffix", tree: cond(TypeEventTrait, "a", OpEndsWith, 1.0), wantErr: types.ErrInvalidLiteral},
		{name: "suffix ending in star", tree: cond(TypeEventTrait, "a", OpEndsWith, "x*"), wantErr: types.ErrInvalidLiteral},
		{name: "empty suffix", tree: cond(TypeEventTrait, "a", OpEndsWith, ""), wantErr: types.ErrInvalidLiteral},
	}

	event := types.Event{"type": "track"}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Validate(tt.tree, event)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, %v; want error %v", got, err, tt.wantErr)
			}
			if got {
				t.Errorf("Validate() = true alongside error")
			}
		})
	}
}

func TestValidate_DoesNotMutate(t *testing.T) {
	tree, err := Parse(`properties.a.b = 1 and traits.c != null`)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	event := types.Event{"type": "track", "properties": map[string]any{"a": map[string]any{"b": 1.0}}}
	before := dump(tree)

	for i := 0; i < 3; i++ {
		if _, err := Validate(tree, event); err != nil {
			t.Fatalf("Validate() error = %v", err)
		}
	}

	if after := dump(tree); after != before {
		t.Errorf("tree changed: %s -> %s", before, after)
	}
	if len(event) != 2 {
		t.Errorf("event changed: %v", event)
	}
}

// randomEvent fills the fields randomCondition inspects with a mix of
// matching, mismatching and missing values.
func randomEvent(r *rand.Rand) types.Event {
	pick := func() any {
		switch r.Intn(6) {
		case 0:
			return sampleStrings[r.Intn(len(sampleStrings))]
		case 1:
			return sampleNumbers[r.Intn(len(sampleNumbers))]
		case 2:
			return r.Intn(2) == 0
		case 3:
			return "pre" + sampleStrings[r.Intn(len(sampleStrings))] + "suf"
		case 4:
			return []any{sampleStrings[r.Intn(len(sampleStrings))]}
		default:
			return nil
		}
	}
	nested := func() map[string]any {
		m := map[string]any{}
		for _, name := range sampleNames {
			if v := pick(); v != nil {
				m[name] = v
			}
		}
		return m
	}
	eventTypes := []string{"track", "identify", "page", "group"}
	return types.Event{
		"type":       eventTypes[r.Intn(len(eventTypes))],
		"event":      pick(),
		"userId":     pick(),
		"properties": nested(),
		"traits":     nested(),
		"context":    nested(),
	}
}

// Property-based test: groups combine children like every/some
func TestValidate_PropertyBooleanSemantics(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)

	properties.Property("group result equals every/some over children", prop.ForAll(
		func(seed int64) bool {
			r := rand.New(rand.NewSource(seed))
			tree := randomTree(r, 2)
			event := randomEvent(r)

			got, err := Validate(tree, event)
			if err != nil {
				return false
			}

			var want bool
			if tree.Operator == And {
				want = true
				for _, child := range tree.Children {
					ok, _ := Validate(child, event)
					want = want && ok
				}
			} else {
				for _, child := range tree.Children {
					ok, _ := Validate(child, event)
					want = want || ok
				}
			}
			return got == want
		},
		gen.Int64(),
	))

	properties.Property("negated operators are exact complements", prop.ForAll(
		func(seed int64) bool {
			r := rand.New(rand.NewSource(seed))
			event := randomEvent(r)
			c := randomCondition(r)
			pairs := map[Operator]Operator{
				OpEq: OpNeq, OpContains: OpNotContains, OpStartsWith: OpNotStartsWith,
				OpEndsWith: OpNotEndsWith, OpExists: OpNotExists,
			}
			for pos, neg := range pairs {
				a := &Condition{Type: c.Type, Name: c.Name, Operator: pos, Value: c.Value}
				b := &Condition{Type: c.Type, Name: c.Name, Operator: neg, Value: c.Value}
				if a.Value == nil {
					a.Value, b.Value = "x", "x"
				}
				if Check(a) != nil || Check(b) != nil {
					// e.g. '=' true has no text form; is_true covers it
					continue
				}
				va, errA := Validate(a, event)
				vb, errB := Validate(b, event)
				if errA != nil || errB != nil || va == vb {
					return false
				}
			}
			return true
		},
		gen.Int64(),
	))

	properties.TestingRun(t)
}
