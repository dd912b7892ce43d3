package server

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/segmentio/action-destinations-sub030/internal/fql"
	"github.com/segmentio/action-destinations-sub030/internal/types"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "fql.v1.SubscriptionService"

// Full method names, as used by clients and interceptors.
const (
	MethodMatch    = "/" + ServiceName + "/Match"
	MethodParse    = "/" + ServiceName + "/Parse"
	MethodGenerate = "/" + ServiceName + "/Generate"
)

// SubscriptionServer is the server API of fql.v1.SubscriptionService.
// Messages are google.protobuf.Struct:
//
//	Match    {subscribe, event} -> {matched}
//	Parse    {subscribe}        -> {tree}
//	Generate {tree}             -> {subscribe}
type SubscriptionServer interface {
	Match(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Parse(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Generate(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

var subscriptionServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SubscriptionServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Match", Handler: unaryHandler(MethodMatch, SubscriptionServer.Match)},
		{MethodName: "Parse", Handler: unaryHandler(MethodParse, SubscriptionServer.Parse)},
		{MethodName: "Generate", Handler: unaryHandler(MethodGenerate, SubscriptionServer.Generate)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "fql/v1/subscription.proto",
}

// RegisterSubscriptionServer registers srv on s.
func RegisterSubscriptionServer(s grpc.ServiceRegistrar, srv SubscriptionServer) {
	s.RegisterService(&subscriptionServiceDesc, srv)
}

func unaryHandler(fullMethod string, call func(SubscriptionServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(SubscriptionServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(SubscriptionServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// Service implements SubscriptionServer on top of an fql.Engine.
type Service struct {
	engine *fql.Engine
}

// NewService creates the service. A nil engine uses fql.NewEngine().
func NewService(engine *fql.Engine) *Service {
	if engine == nil {
		engine = fql.NewEngine()
	}
	return &Service{engine: engine}
}

// Match reports whether the event satisfies the subscription.
func (s *Service) Match(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	subscribe := req.GetFields()["subscribe"].GetStringValue()
	if subscribe == "" {
		return nil, status.Error(codes.InvalidArgument, "subscribe is required")
	}

	tree := s.engine.Parse(subscribe)
	if en, ok := tree.(*fql.ErrorNode); ok {
		return nil, status.Errorf(codes.InvalidArgument, "%s: %v", types.ErrInvalidSubscription, en.Err)
	}

	event := types.Event(req.GetFields()["event"].GetStructValue().AsMap())
	matched, err := fql.Validate(tree, event)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "%s: %v", types.ErrInvalidSubscription, err)
	}
	return structpb.NewStruct(map[string]any{"matched": matched})
}

// Parse returns the condition tree of a subscription in its JSON form.
func (s *Service) Parse(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	subscribe := req.GetFields()["subscribe"].GetStringValue()
	tree, err := fql.Parse(subscribe)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	v, err := treeValue(tree)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{"tree": v}}, nil
}

// Generate renders a condition tree back to subscription text.
func (s *Service) Generate(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	raw, ok := req.GetFields()["tree"]
	if !ok {
		return nil, status.Error(codes.InvalidArgument, "tree is required")
	}

	text, err := fql.Generate(fql.DecodeValue(raw.AsInterface()))
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	return structpb.NewStruct(map[string]any{"subscribe": text})
}

// treeValue converts a tree to a structpb value through its JSON form.
func treeValue(tree fql.Node) (*structpb.Value, error) {
	data, err := json.Marshal(tree)
	if err != nil {
		return nil, fmt.Errorf("encode tree: %w", err)
	}
	var generic map[string]any
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, fmt.Errorf("decode tree: %w", err)
	}
	return structpb.NewValue(generic)
}
