package fql

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/segmentio/action-destinations-sub030/internal/types"
)

// JSON form used by authoring tools:
//
//	{"type":"group","operator":"and","children":[...]}
//	{"type":"event-property","name":"x","operator":"=","value":"y"}
//	{"error":"message"}

type groupJSON struct {
	Type     ConditionType `json:"type"`
	Operator GroupOperator `json:"operator"`
	Children []Node        `json:"children"`
}

type conditionJSON struct {
	Type     ConditionType `json:"type"`
	Name     string        `json:"name,omitempty"`
	Operator Operator      `json:"operator"`
	Value    any           `json:"value,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (g *Group) MarshalJSON() ([]byte, error) {
	children := g.Children
	if children == nil {
		children = []Node{}
	}
	return json.Marshal(groupJSON{Type: TypeGroup, Operator: g.Operator, Children: children})
}

// MarshalJSON implements json.Marshaler.
func (c *Condition) MarshalJSON() ([]byte, error) {
	return json.Marshal(conditionJSON{Type: c.Type, Name: c.Name, Operator: c.Operator, Value: c.Value})
}

// MarshalJSON implements json.Marshaler.
func (e *ErrorNode) MarshalJSON() ([]byte, error) {
	msg := ""
	if e.Err != nil {
		msg = e.Err.Error()
	}
	return json.Marshal(map[string]string{"error": msg})
}

// DecodeTree builds a condition tree from its JSON form.
// It never fails: malformed input yields an *ErrorNode, and a malformed
// child yields an *ErrorNode in its place so the rest of the tree survives.
func DecodeTree(data []byte) Node {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return &ErrorNode{Err: fmt.Errorf("fql: decode tree: %w", err)}
	}
	return decodeNode(raw)
}

// DecodeValue builds a condition tree from an already-decoded JSON value,
// such as the result of structpb.Struct.AsMap.
func DecodeValue(v any) Node {
	return decodeNode(v)
}

func decodeNode(v any) Node {
	obj, ok := v.(map[string]any)
	if !ok {
		return &ErrorNode{Err: fmt.Errorf("%w: node must be an object, got %T", types.ErrInvalidConditionType, v)}
	}

	if msg, ok := obj["error"]; ok {
		s, _ := msg.(string)
		return &ErrorNode{Err: errors.New(s)}
	}

	typ, _ := obj["type"].(string)
	if ConditionType(typ) == TypeGroup {
		return decodeGroup(obj)
	}
	return decodeCondition(ConditionType(typ), obj)
}

func decodeGroup(obj map[string]any) Node {
	op, _ := obj["operator"].(string)
	if GroupOperator(op) != And && GroupOperator(op) != Or {
		return &ErrorNode{Err: fmt.Errorf("%w: group operator %q", types.ErrInvalidOperator, op)}
	}
	rawChildren, _ := obj["children"].([]any)
	if len(rawChildren) == 0 {
		return &ErrorNode{Err: types.ErrEmptyGroup}
	}
	children := make([]Node, 0, len(rawChildren))
	for _, rc := range rawChildren {
		children = append(children, decodeNode(rc))
	}
	return &Group{Operator: GroupOperator(op), Children: children}
}

func decodeCondition(typ ConditionType, obj map[string]any) Node {
	op, _ := obj["operator"].(string)
	name, _ := obj["name"].(string)
	c := &Condition{Type: typ, Operator: Operator(op), Name: name}
	if !c.Operator.IsUnary() {
		c.Value = obj["value"]
	}
	if b, ok := c.Value.(bool); ok && c.Operator == OpEq {
		c.Operator, c.Value = OpIsFalse, nil
		if b {
			c.Operator = OpIsTrue
		}
	}
	if err := checkCondition(c); err != nil {
		return &ErrorNode{Err: err}
	}
	return c
}
