// Copyright 2025 Joseph Cumines

// Package inspectorrpc defines the Inspector gRPC service: its descriptor,
// server interface and client. Messages are well-known protobuf types, so
// there is no generated code.
//
//	service Inspector {
//	  rpc Execute(google.protobuf.StringValue) returns (google.protobuf.Struct);
//	  rpc SelectPoint(google.protobuf.Struct) returns (google.protobuf.Struct);
//	  rpc GetSnapshot(google.protobuf.Empty) returns (google.protobuf.Struct);
//	  rpc GetProperties(google.protobuf.Struct) returns (google.api.HttpBody);
//	  rpc GetStatus(google.protobuf.Empty) returns (google.protobuf.Struct);
//	}
package inspectorrpc

import (
	"context"

	"google.golang.org/genproto/googleapis/api/httpbody"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified service name.
const ServiceName = "a11yinspector.v1.Inspector"

// ErrorDomain is the google.rpc.ErrorInfo domain of command failures.
const ErrorDomain = "a11yinspector"

// Full method names.
const (
	ExecuteMethod       = "/" + ServiceName + "/Execute"
	SelectPointMethod   = "/" + ServiceName + "/SelectPoint"
	GetSnapshotMethod   = "/" + ServiceName + "/GetSnapshot"
	GetPropertiesMethod = "/" + ServiceName + "/GetProperties"
	GetStatusMethod     = "/" + ServiceName + "/GetStatus"
)

// InspectorServer is the server API for the Inspector service.
type InspectorServer interface {
	// Execute runs one command line. A failed command is an error status
	// carrying a google.rpc.ErrorInfo.
	Execute(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	// SelectPoint selects the element under {"x", "y"} (window-client
	// coordinates).
	SelectPoint(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// GetSnapshot returns the current snapshot document.
	GetSnapshot(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	// GetProperties returns the text/plain property report of {"id"}. An
	// optional "generation" must name the current snapshot generation.
	GetProperties(context.Context, *structpb.Struct) (*httpbody.HttpBody, error)
	GetStatus(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

// RegisterInspectorServer registers srv on s.
func RegisterInspectorServer(s grpc.ServiceRegistrar, srv InspectorServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// unaryHandler adapts one typed method into a grpc.MethodHandler.
func unaryHandler[Req any, Resp any, PReq interface {
	*Req
}](fullMethod string, call func(InspectorServer, context.Context, PReq) (Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := PReq(new(Req))
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(InspectorServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(InspectorServer), ctx, req.(PReq))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// ServiceDesc is the grpc.ServiceDesc for the Inspector service.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*InspectorServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Execute",
			Handler:    unaryHandler[wrapperspb.StringValue](ExecuteMethod, InspectorServer.Execute),
		},
		{
			MethodName: "SelectPoint",
			Handler:    unaryHandler[structpb.Struct](SelectPointMethod, InspectorServer.SelectPoint),
		},
		{
			MethodName: "GetSnapshot",
			Handler:    unaryHandler[emptypb.Empty](GetSnapshotMethod, InspectorServer.GetSnapshot),
		},
		{
			MethodName: "GetProperties",
			Handler:    unaryHandler[structpb.Struct](GetPropertiesMethod, InspectorServer.GetProperties),
		},
		{
			MethodName: "GetStatus",
			Handler:    unaryHandler[emptypb.Empty](GetStatusMethod, InspectorServer.GetStatus),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "a11yinspector/v1/inspector.proto",
}

// InspectorClient is the client API for the Inspector service.
type InspectorClient struct {
	cc grpc.ClientConnInterface
}

// NewInspectorClient returns a client over cc.
func NewInspectorClient(cc grpc.ClientConnInterface) *InspectorClient {
	return &InspectorClient{cc: cc}
}

// Execute runs one command line.
func (c *InspectorClient) Execute(ctx context.Context, line string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, ExecuteMethod, wrapperspb.String(line), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// SelectPoint selects the element at a window-client point.
func (c *InspectorClient) SelectPoint(ctx context.Context, x, y int, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(map[string]any{"x": x, "y": y})
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, SelectPointMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// GetSnapshot fetches the snapshot document.
func (c *InspectorClient) GetSnapshot(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, GetSnapshotMethod, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// GetProperties fetches the property report of element id. A zero
// generation means the current one.
func (c *InspectorClient) GetProperties(ctx context.Context, id string, generation uint64, opts ...grpc.CallOption) (*httpbody.HttpBody, error) {
	req := map[string]any{"id": id}
	if generation != 0 {
		req["generation"] = generation
	}
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, err
	}
	out := new(httpbody.HttpBody)
	if err := c.cc.Invoke(ctx, GetPropertiesMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// GetStatus fetches the session status.
func (c *InspectorClient) GetStatus(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, GetStatusMethod, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
