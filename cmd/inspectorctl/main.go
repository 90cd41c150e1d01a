// Copyright 2025 Joseph Cumines
//
// Command-line client for the inspector's gRPC service

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	grpcstatus "google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joeycumines/WinA11yInspector/internal/inspectorrpc"
	"github.com/joeycumines/WinA11yInspector/internal/server"
)

var (
	red   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	green = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
)

// errReported marks a failure already printed to stderr.
var errReported = errors.New("reported")

type options struct {
	address string
	timeout time.Duration
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, red.Render(err.Error()))
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "inspectorctl",
		Short:         "Send commands to a running a11y-inspector over gRPC",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	address := os.Getenv("A11Y_GRPC_ADDRESS")
	if address == "" {
		address = "localhost:50051"
	}
	root.PersistentFlags().StringVar(&opts.address, "addr", address, "inspector gRPC address")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "per-call timeout")

	root.AddCommand(
		&cobra.Command{
			Use:   "exec <command line...>",
			Short: `Run one command line, e.g. exec click path=//button[@name="OK"]`,
			Args:  cobra.MinimumNArgs(1),
			RunE: withClient(opts, "exec", func(ctx context.Context, c *inspectorrpc.InspectorClient, args []string) error {
				out, err := c.Execute(ctx, strings.Join(args, " "))
				if err != nil {
					return err
				}
				printResult(out)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "select <x> <y>",
			Short: "Select the element at a window-client point",
			Args:  cobra.ExactArgs(2),
			RunE: withClient(opts, "select", func(ctx context.Context, c *inspectorrpc.InspectorClient, args []string) error {
				x, errX := strconv.Atoi(args[0])
				y, errY := strconv.Atoi(args[1])
				if errX != nil || errY != nil {
					return fmt.Errorf("x and y must be integers")
				}
				out, err := c.SelectPoint(ctx, x, y)
				if err != nil {
					return err
				}
				printResult(out)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "snapshot",
			Short: "Print the current snapshot as JSON",
			Args:  cobra.NoArgs,
			RunE: withClient(opts, "snapshot", func(ctx context.Context, c *inspectorrpc.InspectorClient, _ []string) error {
				doc, err := c.GetSnapshot(ctx)
				if err != nil {
					return err
				}
				return printJSON(doc)
			}),
		},
		newPropsCmd(opts),
		&cobra.Command{
			Use:   "status",
			Short: "Print the session status",
			Args:  cobra.NoArgs,
			RunE: withClient(opts, "status", func(ctx context.Context, c *inspectorrpc.InspectorClient, _ []string) error {
				st, err := c.GetStatus(ctx)
				if err != nil {
					return err
				}
				return printJSON(st)
			}),
		},
		&cobra.Command{
			Use:   "health",
			Short: "Check the inspector's gRPC health service",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				conn, err := dial(opts.address)
				if err != nil {
					return err
				}
				defer conn.Close()
				ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
				defer cancel()
				resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: inspectorrpc.ServiceName})
				if err != nil {
					fmt.Fprintln(os.Stderr, red.Render(server.FormatGRPCError(err, "health")))
					return errReported
				}
				fmt.Println(green.Render(resp.GetStatus().String()))
				return nil
			},
		},
	)
	return root
}

func newPropsCmd(opts *options) *cobra.Command {
	var generation uint64
	cmd := &cobra.Command{
		Use:   "props <id>",
		Short: "Print the property report of an element",
		Args:  cobra.ExactArgs(1),
		RunE: withClient(opts, "props", func(ctx context.Context, c *inspectorrpc.InspectorClient, args []string) error {
			body, err := c.GetProperties(ctx, args[0], generation)
			if err != nil {
				return err
			}
			_, err = os.Stdout.Write(body.GetData())
			return err
		}),
	}
	cmd.Flags().Uint64Var(&generation, "generation", 0, "snapshot generation the id was taken from (0: current)")
	return cmd
}

func dial(address string) (*grpc.ClientConn, error) {
	conn, err := grpc.NewClient(address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", address, err)
	}
	return conn, nil
}

// withClient adapts fn into a cobra RunE with a connected client and a
// bounded context. gRPC failures are printed with FormatGRPCError.
func withClient(opts *options, operation string, fn func(context.Context, *inspectorrpc.InspectorClient, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		conn, err := dial(opts.address)
		if err != nil {
			return err
		}
		defer conn.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
		defer cancel()
		if err := fn(ctx, inspectorrpc.NewInspectorClient(conn), args); err != nil {
			if _, ok := grpcstatus.FromError(err); ok {
				fmt.Fprintln(os.Stderr, red.Render(server.FormatGRPCError(err, operation)))
				return errReported
			}
			return err
		}
		return nil
	}
}

func printResult(out *structpb.Struct) {
	fields := out.GetFields()
	line := fields["log"].GetStringValue()
	if gen := fields["generation"].GetNumberValue(); gen != 0 {
		line += fmt.Sprintf(" (generation %d)", uint64(gen))
	}
	fmt.Println(green.Render(line))
	if v := fields["value"].GetStringValue(); v != "" {
		fmt.Println(strings.TrimRight(v, "\n"))
	}
}

func printJSON(m *structpb.Struct) error {
	data, err := protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(m)
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
