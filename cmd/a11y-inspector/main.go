// Copyright 2025 Joseph Cumines
//
// Windows accessibility inspector: console, MCP over stdio, HTTP and gRPC
// front ends over one command session

package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"github.com/joeycumines/WinA11yInspector/internal/a11y"
	"github.com/joeycumines/WinA11yInspector/internal/command"
	"github.com/joeycumines/WinA11yInspector/internal/config"
	"github.com/joeycumines/WinA11yInspector/internal/input"
	"github.com/joeycumines/WinA11yInspector/internal/server"
	"github.com/joeycumines/WinA11yInspector/internal/session"
	"github.com/joeycumines/WinA11yInspector/internal/transport"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configFile string
	cfg := config.Default()

	cmd := &cobra.Command{
		Use:   "a11y-inspector",
		Short: "Inspect and drive Windows applications through their accessibility tree",
		Long: `a11y-inspector captures the UI Automation (or MSAA) tree of a target window,
addresses its elements by path query or by point, and synthesizes clicks and
keystrokes against them.

The same command session is served to an interactive console (or MCP over
stdio), an HTTP listener and a gRPC listener.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if configFile == "" {
				configFile = os.Getenv("A11Y_CONFIG_FILE")
			}
			loaded, err := config.LoadFile(configFile)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			applyFlags(cmd, cfg, loaded)
			if err := loaded.Validate(); err != nil {
				return err
			}
			return run(loaded)
		},
	}

	f := cmd.Flags()
	f.StringVar(&configFile, "config", "", "YAML configuration file (default $A11Y_CONFIG_FILE)")
	f.StringVar(&cfg.Provider, "provider", cfg.Provider, "accessibility provider: uia or msaa")
	f.StringVar(&cfg.Target, "target", cfg.Target, "window title or process name to select at startup")
	f.StringVar((*string)(&cfg.Stdin), "stdin", string(cfg.Stdin), "stdin mode: console, mcp or none")
	f.StringVar(&cfg.HTTPAddress, "http", cfg.HTTPAddress, "HTTP listen address (empty disables)")
	f.StringVar(&cfg.HTTPSocketPath, "http-socket", cfg.HTTPSocketPath, "HTTP Unix socket path (overrides --http)")
	f.StringVar(&cfg.GRPCAddress, "grpc", cfg.GRPCAddress, "gRPC listen address (empty disables)")
	f.Float64Var(&cfg.RateLimit, "rate-limit", cfg.RateLimit, "HTTP requests per second (0 disables)")
	f.StringVar(&cfg.AuditLogFile, "audit-log", cfg.AuditLogFile, "append a JSON audit record per command to this file")
	f.BoolVar(&cfg.Debug, "debug", cfg.Debug, "log every command outcome")
	return cmd
}

// applyFlags copies explicitly set flags from flags onto cfg, so that flags
// override the file and environment layers.
func applyFlags(cmd *cobra.Command, flags, cfg *config.Config) {
	changed := cmd.Flags().Changed
	if changed("provider") {
		cfg.Provider = flags.Provider
	}
	if changed("target") {
		cfg.Target = flags.Target
	}
	if changed("stdin") {
		cfg.Stdin = flags.Stdin
	}
	if changed("http") {
		cfg.HTTPAddress = flags.HTTPAddress
	}
	if changed("http-socket") {
		cfg.HTTPSocketPath = flags.HTTPSocketPath
	}
	if changed("grpc") {
		cfg.GRPCAddress = flags.GRPCAddress
	}
	if changed("rate-limit") {
		cfg.RateLimit = flags.RateLimit
	}
	if changed("audit-log") {
		cfg.AuditLogFile = flags.AuditLogFile
	}
	if changed("debug") {
		cfg.Debug = flags.Debug
	}
}

func run(cfg *config.Config) error {
	if cfg.Debug {
		log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	}

	provider, err := a11y.NewProvider(cfg.ProviderKind())
	if err != nil {
		return fmt.Errorf("failed to create %s provider: %w", cfg.Provider, err)
	}
	nativeOS, err := input.NativeOS()
	if err != nil {
		_ = provider.Close()
		return err
	}

	audit, err := server.NewAuditLogger(cfg.AuditLogFile, cfg.AuditRedactKeys)
	if err != nil {
		_ = provider.Close()
		return fmt.Errorf("failed to open audit log: %w", err)
	}
	defer audit.Close()

	metrics := transport.DefaultMetrics()
	state := session.New(cfg.ProviderKind())
	observers := []command.Observer{audit.LogCommand, server.MetricsObserver(metrics, state)}
	if cfg.Debug {
		observers = append(observers, func(cmd command.Command, res command.Result, elapsed time.Duration) {
			log.Printf("%s -> %s (%v)", cmd, res.Log, elapsed)
		})
	}

	proc := command.NewProcessor(command.Config{
		State:       state,
		Provider:    provider,
		NewProvider: a11y.NewProvider,
		Input: input.New(nativeOS, input.Delays{
			Settle:      cfg.SettleDelay,
			DoubleClick: cfg.DoubleClickDelay,
			Keystroke:   cfg.KeystrokeDelay,
		}),
		Observers: observers,
	})
	defer func() {
		if err := proc.Close(); err != nil {
			log.Printf("Warning: closing provider: %v", err)
		}
	}()
	inspector := server.NewInspector(proc)
	mcpServer := server.NewMCPServer(inspector)

	if cfg.Target != "" {
		res := proc.Run(command.Command{Verb: command.VerbSelectProcess, Arg: cfg.Target})
		if res.OK {
			log.Println(res.Log)
		} else {
			log.Printf("Warning: startup target %q: %s", cfg.Target, res.Log)
		}
	}

	var wg sync.WaitGroup
	errChan := make(chan error, 3)
	stdinDone := make(chan struct{})
	serving := 0

	var httpServer *transport.HTTPServer
	if cfg.HTTPAddress != "" || cfg.HTTPSocketPath != "" {
		httpServer = transport.NewHTTPServer(&transport.HTTPConfig{
			Address:      cfg.HTTPAddress,
			SocketPath:   cfg.HTTPSocketPath,
			CORSOrigin:   cfg.CORSOrigin,
			ReadTimeout:  cfg.HTTPReadTimeout,
			WriteTimeout: cfg.HTTPWriteTimeout,
			RateLimit:    cfg.RateLimit,
		}, metrics)
		httpServer.Register(inspector)
		httpServer.SetHealth(inspector.Health)
		httpServer.HandleRPC("/mcp", mcpServer.HandleMessage)

		serving++
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := httpServer.Serve(); err != nil {
				errChan <- fmt.Errorf("HTTP: %w", err)
			}
		}()
	}

	var grpcServer *grpc.Server
	if cfg.GRPCAddress != "" {
		grpcServer = server.NewGRPCServer(inspector)

		serving++
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := server.ServeGRPC(grpcServer, cfg.GRPCAddress); err != nil {
				errChan <- fmt.Errorf("gRPC: %w", err)
			}
		}()
	}

	if cfg.Stdin != config.StdinNone {
		serving++
		go func() {
			defer close(stdinDone)
			var err error
			switch cfg.Stdin {
			case config.StdinMCP:
				err = mcpServer.Serve(transport.NewStdioTransport(os.Stdin, os.Stdout))
			default:
				err = inspector.ServeConsole(transport.NewConsole(os.Stdin, os.Stdout))
			}
			if err != nil {
				errChan <- fmt.Errorf("stdin: %w", err)
			}
		}()
	}

	if serving == 0 {
		return errors.New("nothing to serve: HTTP and gRPC are disabled and stdin mode is none")
	}

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	var runErr error
	select {
	case sig := <-sigChan:
		log.Printf("Received signal %v, shutting down...", sig)
	case <-stdinDone:
		log.Println("Stdin closed, shutting down...")
	case runErr = <-errChan:
		log.Printf("Error: %v", runErr)
	}

	if httpServer != nil {
		if err := httpServer.Close(); err != nil {
			log.Printf("Error: %v", err)
		}
	}
	if grpcServer != nil {
		stopGRPC(grpcServer.GracefulStop, grpcServer.Stop)
	}
	wg.Wait()
	log.Println("Shutdown complete")
	return runErr
}

// stopGRPC stops gracefully, forcing after a grace period.
func stopGRPC(graceful, force func()) {
	done := make(chan struct{})
	go func() {
		graceful()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		log.Println("Warning: forcing gRPC shutdown")
		force()
	}
}
