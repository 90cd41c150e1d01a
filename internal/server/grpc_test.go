// Copyright 2025 Joseph Cumines
//
// gRPC service tests over an in-process connection

package server

import (
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"google.golang.org/genproto/googleapis/api/httpbody"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	grpcstatus "google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joeycumines/WinA11yInspector/internal/command"
	"github.com/joeycumines/WinA11yInspector/internal/inspectorrpc"
)

func newTestClient(t *testing.T, i *Inspector) (*inspectorrpc.InspectorClient, *grpc.ClientConn) {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	s := NewGRPCServer(i)
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return inspectorrpc.NewInspectorClient(conn), conn
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestGRPC_Health(t *testing.T) {
	i, _ := newTestInspector(t)
	_, conn := newTestClient(t, i)

	resp, err := healthpb.NewHealthClient(conn).Check(testContext(t), &healthpb.HealthCheckRequest{Service: inspectorrpc.ServiceName})
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("status = %v, want SERVING", resp.GetStatus())
	}
}

func TestGRPC_Execute(t *testing.T) {
	i, os := newTestInspector(t)
	client, _ := newTestClient(t, i)
	ctx := testContext(t)

	tests := []struct {
		name       string
		line       string
		wantCode   codes.Code
		wantReason string
	}{
		{"empty", "", codes.InvalidArgument, ""},
		{"no process", "click", codes.FailedPrecondition, command.KindNoProcessSelected},
		{"unknown verb", "hover", codes.InvalidArgument, command.KindUnknownVerb},
		{"select process", "selectprocess Calculator", codes.OK, ""},
		{"no selection", "click", codes.FailedPrecondition, command.KindNoElementSelected},
		{"missing", `find path=//button[@name="9"]`, codes.NotFound, command.KindElementNotFound},
		{"click", `click path=//button[@name="1"]`, codes.OK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := client.Execute(ctx, tt.line)
			if got := grpcstatus.Code(err); got != tt.wantCode {
				t.Fatalf("code = %v, want %v (%v)", got, tt.wantCode, err)
			}
			if err != nil {
				if got := ErrorReason(err); got != tt.wantReason {
					t.Errorf("reason = %q, want %q", got, tt.wantReason)
				}
				return
			}
			if !out.GetFields()["ok"].GetBoolValue() || out.GetFields()["log"].GetStringValue() == "" {
				t.Errorf("result = %v", out)
			}
		})
	}

	if !strings.Contains(strings.Join(os.Events(), "|"), "move 235,325") {
		t.Errorf("click not at the 1 button: %v", os.Events())
	}
}

func TestGRPC_SelectPoint(t *testing.T) {
	i, _ := newTestInspector(t)
	client, conn := newTestClient(t, i)
	ctx := testContext(t)

	if _, err := client.SelectPoint(ctx, 20, 210); grpcstatus.Code(err) != codes.FailedPrecondition {
		t.Errorf("before selectprocess = %v", err)
	}
	if _, err := client.Execute(ctx, "selectprocess Calculator"); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	out, err := client.SelectPoint(ctx, 20, 210)
	if err != nil {
		t.Fatalf("SelectPoint() error = %v", err)
	}
	if got := out.GetFields()["elementId"].GetStringValue(); got != "_1_2" {
		t.Errorf("elementId = %q, want _1_2", got)
	}
	if _, err := client.SelectPoint(ctx, 900, 900); grpcstatus.Code(err) != codes.NotFound {
		t.Errorf("miss = %v, want NotFound", err)
	}

	bad, _ := structpb.NewStruct(map[string]any{"x": "1"})
	out = new(structpb.Struct)
	if err := conn.Invoke(ctx, inspectorrpc.SelectPointMethod, bad, out); grpcstatus.Code(err) != codes.InvalidArgument {
		t.Errorf("string x = %v, want InvalidArgument", err)
	}
}

func TestGRPC_SnapshotPropertiesStatus(t *testing.T) {
	i, _ := newTestInspector(t)
	client, _ := newTestClient(t, i)
	ctx := testContext(t)

	doc, err := client.GetSnapshot(ctx)
	if err != nil {
		t.Fatalf("GetSnapshot() error = %v", err)
	}
	if root := doc.GetFields()["Root"].GetStructValue(); root == nil || len(root.GetFields()) != 0 {
		t.Errorf("empty snapshot = %v", doc)
	}

	if _, err := client.Execute(ctx, "selectprocess Calculator"); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	doc, err = client.GetSnapshot(ctx)
	if err != nil {
		t.Fatalf("GetSnapshot() error = %v", err)
	}
	el := doc.GetFields()["Root"].GetStructValue().GetFields()["Element"].GetStructValue()
	if el.GetFields()["name"].GetStringValue() != "Calculator" || len(el.GetFields()["children"].GetListValue().GetValues()) != 3 {
		t.Errorf("snapshot = %v", doc)
	}

	body, err := client.GetProperties(ctx, "_1_3", 0)
	if err != nil {
		t.Fatalf("GetProperties() error = %v", err)
	}
	if !strings.HasPrefix(body.GetContentType(), "text/plain") || !strings.HasPrefix(string(body.GetData()), "Name: +\n") {
		t.Errorf("properties = %s %q", body.GetContentType(), body.GetData())
	}
	if _, err := client.GetProperties(ctx, "_7", 0); grpcstatus.Code(err) != codes.NotFound {
		t.Errorf("unknown id = %v, want NotFound", err)
	}
	if _, err := client.GetProperties(ctx, "", 0); grpcstatus.Code(err) != codes.InvalidArgument {
		t.Errorf("empty id = %v, want InvalidArgument", err)
	}

	st, err := client.GetStatus(ctx)
	if err != nil {
		t.Fatalf("GetStatus() error = %v", err)
	}
	fields := st.GetFields()
	if fields["process"].GetStringValue() != "Calculator" || fields["selected"].GetStringValue() != "_1_3" || fields["elements"].GetNumberValue() != 4 {
		t.Errorf("status = %v", st)
	}
}

func TestGRPC_GetPropertiesGeneration(t *testing.T) {
	i, _ := newTestInspector(t)
	client, conn := newTestClient(t, i)
	ctx := testContext(t)

	if _, err := client.Execute(ctx, "selectprocess Calculator"); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	doc, err := client.GetSnapshot(ctx)
	if err != nil {
		t.Fatalf("GetSnapshot() error = %v", err)
	}
	first := uint64(doc.GetFields()["generation"].GetNumberValue())
	if first == 0 {
		t.Fatalf("snapshot has no generation: %v", doc)
	}

	out, err := client.SelectPoint(ctx, 20, 210)
	if err != nil {
		t.Fatalf("SelectPoint() error = %v", err)
	}
	if got := uint64(out.GetFields()["generation"].GetNumberValue()); got != first {
		t.Errorf("SelectPoint generation = %d, want %d", got, first)
	}

	if _, err := client.GetProperties(ctx, "_1_2", first); err != nil {
		t.Errorf("GetProperties(current) error = %v", err)
	}
	if _, err := client.Execute(ctx, "inspect"); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	_, err = client.GetProperties(ctx, "_1_2", first)
	if grpcstatus.Code(err) != codes.FailedPrecondition || ErrorReason(err) != command.KindNoElementSelected {
		t.Errorf("GetProperties(stale) = %v, want FailedPrecondition %s", err, command.KindNoElementSelected)
	}

	bad, _ := structpb.NewStruct(map[string]any{"id": "_1_2", "generation": -1})
	if err := conn.Invoke(ctx, inspectorrpc.GetPropertiesMethod, bad, new(httpbody.HttpBody)); grpcstatus.Code(err) != codes.InvalidArgument {
		t.Errorf("negative generation = %v, want InvalidArgument", err)
	}
}

func TestRecoverUnary(t *testing.T) {
	info := &grpc.UnaryServerInfo{FullMethod: inspectorrpc.ExecuteMethod}
	_, err := recoverUnary(context.Background(), nil, info, func(ctx context.Context, req any) (any, error) {
		panic("boom")
	})
	if grpcstatus.Code(err) != codes.Internal || !strings.Contains(err.Error(), "boom") {
		t.Errorf("err = %v, want Internal panic", err)
	}
}
