package fql

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/segmentio/action-destinations-sub030/internal/types"
)

func decodeJSON(t *testing.T, data string) any {
	t.Helper()
	var v any
	if err := json.Unmarshal([]byte(data), &v); err != nil {
		t.Fatalf("json.Unmarshal(%s) error = %v", data, err)
	}
	return v
}

func TestResolve_Normal(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		data     string
		expected any
	}{
		{
			name:     "top-level key",
			path:     "status",
			data:     `{"status": "active"}`,
			expected: "active",
		},
		{
			name:     "nested object traversal",
			path:     "user.name",
			data:     `{"user": {"name": "Alice"}}`,
			expected: "Alice",
		},
		{
			name:     "deep nesting",
			path:     "a.b.c.d",
			data:     `{"a": {"b": {"c": {"d": 42}}}}`,
			expected: float64(42),
		},
		{
			name:     "key with spaces",
			path:     "product 1.price",
			data:     `{"product 1": {"price": 10}}`,
			expected: float64(10),
		},
		{
			name:     "explicit null is found",
			path:     "value",
			data:     `{"value": null}`,
			expected: nil,
		},
		{
			name:     "object value",
			path:     "user",
			data:     `{"user": {"id": 1}}`,
			expected: map[string]any{"id": float64(1)},
		},
		{
			name:     "empty key segment",
			path:     "a..b",
			data:     `{"a": {"": {"b": true}}}`,
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := Resolve(decodeJSON(t, tt.data), tt.path)
			if !found {
				t.Fatalf("Resolve() found = false, want true")
			}
			if gotJSON, wantJSON := mustJSON(t, got), mustJSON(t, tt.expected); gotJSON != wantJSON {
				t.Errorf("Resolve() = %s, want %s", gotJSON, wantJSON)
			}
		})
	}
}

func TestResolve_NotFound(t *testing.T) {
	tests := []struct {
		name string
		path string
		data string
	}{
		{name: "empty object", path: "missing", data: `{}`},
		{name: "null value at intermediate level", path: "user.name", data: `{"user": null}`},
		{name: "scalar value but path continues", path: "value.nested", data: `{"value": "scalar"}`},
		{name: "arrays are not indexed", path: "items.0", data: `{"items": ["a"]}`},
		{name: "missing intermediate key", path: "a.b.c", data: `{"a": {"x": "wrong"}}`},
		{name: "root is not an object", path: "a", data: `[1, 2]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got, found := Resolve(decodeJSON(t, tt.data), tt.path); found {
				t.Errorf("Resolve() = %v, true; want not found", got)
			}
		})
	}
}

func TestResolve_AcceptsEvent(t *testing.T) {
	event := types.Event{"properties": map[string]any{"a": 1}}
	got, found := Resolve(event, "properties.a")
	if !found || got != 1 {
		t.Errorf("Resolve(Event) = %v, %v; want 1, true", got, found)
	}
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	return string(b)
}

// Property-based test: resolution finds whatever was placed at a path
func TestResolve_PropertyNestedPlacement(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("value placed at depth n resolves", prop.ForAll(
		func(depth int, value string) bool {
			keys := make([]string, depth)
			for i := range keys {
				keys[i] = "k" + strings.Repeat("x", i)
			}

			var data any = value
			for i := depth - 1; i >= 0; i-- {
				data = map[string]any{keys[i]: data}
			}

			got, found := Resolve(data, strings.Join(keys, "."))
			return found && got == value
		},
		gen.IntRange(1, types.MaxPathDepth),
		gen.AlphaString(),
	))

	properties.Property("resolution never panics on arbitrary paths", prop.ForAll(
		func(path string) bool {
			data := map[string]any{"key": []any{map[string]any{"key": "value"}}, "": map[string]any{}}
			_, _ = Resolve(data, path)
			return true
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}
