// Copyright 2025 Joseph Cumines
//
// MCP server implementation

package server

import (
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"sync"

	"google.golang.org/protobuf/encoding/protojson"

	"github.com/joeycumines/WinA11yInspector/internal/transport"
)

// ProtocolVersion is the MCP protocol revision served.
const ProtocolVersion = "2024-11-05"

// ServerName and ServerVersion identify the server in initialize.
const (
	ServerName    = "win-a11y-inspector"
	ServerVersion = "0.1.0"
)

// MCPServer exposes the inspector as MCP tools. It is transport-agnostic;
// HandleMessage serves both stdio and HTTP.
//
//lint:ignore BETTERALIGN struct is intentionally ordered for clarity
type MCPServer struct {
	inspector *Inspector
	tools     map[string]*Tool
	mu        sync.RWMutex
}

// Tool represents an MCP tool
//
//lint:ignore BETTERALIGN struct is intentionally ordered for clarity
type Tool struct {
	Handler     func(*ToolCall) (*ToolResult, error)
	InputSchema map[string]any
	Name        string
	Description string
}

// ToolCall represents a tool call request
type ToolCall struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ToolResult represents a tool call result
type ToolResult struct {
	Content []Content `json:"content"`
	IsError bool      `json:"isError,omitempty"`
}

// Content represents a content item in a tool result
type Content struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// NewMCPServer creates an MCP server over inspector.
func NewMCPServer(inspector *Inspector) *MCPServer {
	s := &MCPServer{inspector: inspector}
	s.registerTools()
	return s
}

// registerTools registers all available tools
func (s *MCPServer) registerTools() {
	s.tools = map[string]*Tool{
		"execute_command": {
			Name:        "execute_command",
			Description: "Run one inspector command line, e.g. selectprocess \"Untitled - Notepad\", inspect, find path=//button[@name=\"OK\"], click, sendkeys hello, getprop path=//edit value",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"command": map[string]any{
						"type":        "string",
						"description": "The command line",
					},
				},
				"required": []string{"command"},
			},
			Handler: s.handleExecuteCommand,
		},
		"select_point": {
			Name:        "select_point",
			Description: "Select the innermost element under a window-client point",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"x": map[string]any{
						"type":        "integer",
						"description": "X offset from the window's left edge",
						"minimum":     0,
					},
					"y": map[string]any{
						"type":        "integer",
						"description": "Y offset from the window's top edge",
						"minimum":     0,
					},
				},
				"required": []string{"x", "y"},
			},
			Handler: s.handleSelectPoint,
		},
		"get_snapshot": {
			Name:        "get_snapshot",
			Description: "Get the current accessibility snapshot as a JSON tree",
			InputSchema: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
			Handler: s.handleGetSnapshot,
		},
		"get_properties": {
			Name:        "get_properties",
			Description: "Get the live property report of an element and select it",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"id": map[string]any{
						"type":        "string",
						"description": "Element id from the snapshot, e.g. _1_5",
					},
					"generation": map[string]any{
						"type":        "integer",
						"description": "Snapshot generation the id was taken from; a mismatch fails rather than naming another element",
						"minimum":     0,
					},
				},
				"required": []string{"id"},
			},
			Handler: s.handleGetProperties,
		},
		"get_status": {
			Name:        "get_status",
			Description: "Get the session target, provider, generation and selection",
			InputSchema: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
			Handler: s.handleGetStatus,
		},
	}
}

// Tools returns the registered tools sorted by name.
func (s *MCPServer) Tools() []*Tool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tools := make([]*Tool, 0, len(s.tools))
	for _, tool := range s.tools {
		tools = append(tools, tool)
	}
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name < tools[j].Name })
	return tools
}

// Serve answers MCP requests from tr until EOF.
func (s *MCPServer) Serve(tr *transport.StdioTransport) error {
	log.Println("MCP server starting...")
	err := tr.Serve(s.HandleMessage)
	log.Println("MCP server stopping")
	return err
}

// HandleMessage answers one MCP message. Notifications get no response.
func (s *MCPServer) HandleMessage(msg *transport.Message) (*transport.Message, error) {
	if msg.IsNotification() {
		return nil, nil
	}

	switch msg.Method {
	case "initialize":
		return resultMessage(msg, map[string]any{
			"protocolVersion": ProtocolVersion,
			"capabilities":    map[string]any{"tools": map[string]any{}},
			"serverInfo":      map[string]any{"name": ServerName, "version": ServerVersion},
		})

	case "ping":
		return resultMessage(msg, map[string]any{})

	case "tools/list":
		tools := make([]map[string]any, 0, len(s.tools))
		for _, tool := range s.Tools() {
			tools = append(tools, map[string]any{
				"name":        tool.Name,
				"description": tool.Description,
				"inputSchema": tool.InputSchema,
			})
		}
		return resultMessage(msg, map[string]any{"tools": tools})

	case "tools/call":
		var params ToolCall
		if err := json.Unmarshal(msg.Params, &params); err != nil {
			return transport.NewErrorResponse(msg.ID, transport.ErrCodeInvalidRequest, fmt.Sprintf("Invalid request: %v", err)), nil
		}

		s.mu.RLock()
		tool, exists := s.tools[params.Name]
		s.mu.RUnlock()
		if !exists {
			return transport.NewErrorResponse(msg.ID, transport.ErrCodeMethodNotFound, fmt.Sprintf("Tool not found: %s", params.Name)), nil
		}

		args := map[string]any{}
		if len(params.Arguments) != 0 && string(params.Arguments) != "null" {
			if err := json.Unmarshal(params.Arguments, &args); err != nil {
				return transport.NewErrorResponse(msg.ID, transport.ErrCodeInvalidParams, fmt.Sprintf("Invalid arguments: %v", err)), nil
			}
		}
		if errMsg := validateToolInput(tool, args); errMsg != nil {
			errMsg.ID = msg.ID
			return errMsg, nil
		}

		result, err := tool.Handler(&params)
		if err != nil {
			return transport.NewErrorResponse(msg.ID, transport.ErrCodeInternalError, err.Error()), nil
		}
		return resultMessage(msg, result)
	}

	return transport.NewErrorResponse(msg.ID, transport.ErrCodeMethodNotFound, fmt.Sprintf("Method not found: %s", msg.Method)), nil
}

func resultMessage(msg *transport.Message, v any) (*transport.Message, error) {
	result, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return &transport.Message{JSONRPC: "2.0", ID: msg.ID, Result: result}, nil
}

func (s *MCPServer) handleExecuteCommand(call *ToolCall) (*ToolResult, error) {
	var params struct {
		Command string `json:"command"`
	}
	if err := json.Unmarshal(call.Arguments, &params); err != nil {
		return errorResultf("Invalid parameters: %v", err), nil
	}
	return commandResult(s.inspector.Processor().Execute(params.Command)), nil
}

func (s *MCPServer) handleSelectPoint(call *ToolCall) (*ToolResult, error) {
	var params struct {
		X int `json:"x"`
		Y int `json:"y"`
	}
	if err := json.Unmarshal(call.Arguments, &params); err != nil {
		return errorResultf("Invalid parameters: %v", err), nil
	}
	return commandResult(s.inspector.Processor().SelectPoint(params.X, params.Y)), nil
}

func (s *MCPServer) handleGetSnapshot(call *ToolCall) (*ToolResult, error) {
	doc, err := s.inspector.snapshotStruct()
	if err != nil {
		return errorResultf("Failed to build snapshot: %v", err), nil
	}
	data, err := protojson.Marshal(doc)
	if err != nil {
		return nil, err
	}
	return textResult(string(data)), nil
}

func (s *MCPServer) handleGetProperties(call *ToolCall) (*ToolResult, error) {
	var params struct {
		ID         string `json:"id"`
		Generation uint64 `json:"generation"`
	}
	if err := json.Unmarshal(call.Arguments, &params); err != nil {
		return errorResultf("Invalid parameters: %v", err), nil
	}
	return commandResult(s.inspector.Processor().Properties(params.ID, params.Generation)), nil
}

func (s *MCPServer) handleGetStatus(call *ToolCall) (*ToolResult, error) {
	st := s.inspector.Processor().State().Status()
	text := fmt.Sprintf("Process: %s\nWindow: %s\nProvider: %s\nGeneration: %d\nElements: %d",
		valueOr(st.ProcessName, "(none)"), valueOr(st.WindowTitle, "(none)"), st.Provider, st.Seq, st.Elements)
	if st.SelectedID != "" {
		text += "\nSelected: " + st.SelectedID
	}
	if st.ShowAllHighlights {
		text += "\nHighlights: all"
	}
	return textResult(text), nil
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
