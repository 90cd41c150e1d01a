// Copyright 2025 Joseph Cumines
//
// gRPC service implementation

package server

import (
	"context"
	"fmt"
	"log"
	"net"

	"google.golang.org/genproto/googleapis/api/httpbody"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	grpcstatus "google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/joeycumines/WinA11yInspector/internal/command"
	"github.com/joeycumines/WinA11yInspector/internal/inspectorrpc"
)

// grpcService implements inspectorrpc.InspectorServer over an Inspector.
type grpcService struct {
	inspector *Inspector
}

var _ inspectorrpc.InspectorServer = (*grpcService)(nil)

// NewGRPCServer returns a gRPC server with the Inspector service and the
// standard health service registered.
func NewGRPCServer(inspector *Inspector, opts ...grpc.ServerOption) *grpc.Server {
	opts = append([]grpc.ServerOption{grpc.ChainUnaryInterceptor(recoverUnary)}, opts...)
	s := grpc.NewServer(opts...)
	inspectorrpc.RegisterInspectorServer(s, &grpcService{inspector: inspector})

	hs := health.NewServer()
	hs.SetServingStatus(inspectorrpc.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(s, hs)
	return s
}

// ServeGRPC listens on address and serves s until it stops.
func ServeGRPC(s *grpc.Server, address string) error {
	l, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", address, err)
	}
	log.Printf("gRPC server listening on %s", l.Addr())
	return s.Serve(l)
}

// recoverUnary converts a handler panic into codes.Internal.
func recoverUnary(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Error: %s panicked: %v", info.FullMethod, r)
			err = grpcstatus.Errorf(codes.Internal, "panic: %v", r)
		}
	}()
	return handler(ctx, req)
}

// resultStruct is the Struct form of a successful Result.
func resultStruct(res command.Result) (*structpb.Struct, error) {
	if err := statusError(res); err != nil {
		return nil, err
	}
	out, err := structpb.NewStruct(resultBody(res))
	if err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "failed to encode result: %v", err)
	}
	return out, nil
}

func (g *grpcService) Execute(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	if req.GetValue() == "" {
		return nil, grpcstatus.Error(codes.InvalidArgument, "empty command")
	}
	return resultStruct(g.inspector.Processor().Execute(req.GetValue()))
}

func (g *grpcService) SelectPoint(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	x, okX := fields["x"].GetKind().(*structpb.Value_NumberValue)
	y, okY := fields["y"].GetKind().(*structpb.Value_NumberValue)
	if !okX || !okY || x.NumberValue < 0 || y.NumberValue < 0 {
		return nil, grpcstatus.Error(codes.InvalidArgument, "x and y must be non-negative numbers")
	}
	return resultStruct(g.inspector.Processor().SelectPoint(int(x.NumberValue), int(y.NumberValue)))
}

func (g *grpcService) GetSnapshot(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	doc, err := g.inspector.snapshotStruct()
	if err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "failed to build snapshot: %v", err)
	}
	return doc, nil
}

func (g *grpcService) GetProperties(ctx context.Context, req *structpb.Struct) (*httpbody.HttpBody, error) {
	fields := req.GetFields()
	id := fields["id"].GetStringValue()
	if id == "" {
		return nil, grpcstatus.Error(codes.InvalidArgument, "empty element id")
	}
	var generation uint64
	if v, ok := fields["generation"]; ok {
		n, isNumber := v.GetKind().(*structpb.Value_NumberValue)
		if !isNumber || n.NumberValue < 0 || n.NumberValue != float64(uint64(n.NumberValue)) {
			return nil, grpcstatus.Error(codes.InvalidArgument, "generation must be a non-negative integer")
		}
		generation = uint64(n.NumberValue)
	}
	res := g.inspector.Processor().Properties(id, generation)
	if err := statusError(res); err != nil {
		return nil, err
	}
	return &httpbody.HttpBody{
		ContentType: "text/plain; charset=utf-8",
		Data:        []byte(res.Value),
	}, nil
}

func (g *grpcService) GetStatus(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(statusBody(g.inspector.Processor().State().Status()))
	if err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "failed to encode status: %v", err)
	}
	return out, nil
}
