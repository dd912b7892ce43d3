package server

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/segmentio/action-destinations-sub030/internal/fql"
	"github.com/segmentio/action-destinations-sub030/internal/types"
)

// Client calls fql.v1.SubscriptionService.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps an established connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Match asks the server whether event satisfies subscribe.
func (c *Client) Match(ctx context.Context, subscribe string, event types.Event, opts ...grpc.CallOption) (bool, error) {
	req, err := structpb.NewStruct(map[string]any{
		"subscribe": subscribe,
		"event":     map[string]any(event),
	})
	if err != nil {
		return false, fmt.Errorf("encode event: %w", err)
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, MethodMatch, req, out, opts...); err != nil {
		return false, err
	}
	return out.GetFields()["matched"].GetBoolValue(), nil
}

// Parse returns the server's condition tree for subscribe.
func (c *Client) Parse(ctx context.Context, subscribe string, opts ...grpc.CallOption) (fql.Node, error) {
	req, err := structpb.NewStruct(map[string]any{"subscribe": subscribe})
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, MethodParse, req, out, opts...); err != nil {
		return nil, err
	}
	return fql.DecodeValue(out.GetFields()["tree"].AsInterface()), nil
}

// Generate asks the server to render tree as subscription text.
func (c *Client) Generate(ctx context.Context, tree fql.Node, opts ...grpc.CallOption) (string, error) {
	data, err := json.Marshal(tree)
	if err != nil {
		return "", fmt.Errorf("encode tree: %w", err)
	}
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return "", fmt.Errorf("decode tree: %w", err)
	}
	v, err := structpb.NewValue(generic)
	if err != nil {
		return "", err
	}

	req := &structpb.Struct{Fields: map[string]*structpb.Value{"tree": v}}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, MethodGenerate, req, out, opts...); err != nil {
		return "", err
	}
	return out.GetFields()["subscribe"].GetStringValue(), nil
}
