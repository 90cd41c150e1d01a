// Copyright 2025 Joseph Cumines
//
// Helper functions for tool handlers and RPC error mapping

package server

import (
	"fmt"
	"slices"
	"strings"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"

	"github.com/joeycumines/WinA11yInspector/internal/command"
	"github.com/joeycumines/WinA11yInspector/internal/inspectorrpc"
	"github.com/joeycumines/WinA11yInspector/internal/transport"
)

// maxDisplayTextLen is the maximum length for text shown in result summaries.
// Longer text is truncated with "..." suffix.
const maxDisplayTextLen = 50

// truncateText truncates text to maxDisplayTextLen runes with "..." suffix if needed.
func truncateText(s string) string {
	if r := []rune(s); len(r) > maxDisplayTextLen {
		return string(r[:maxDisplayTextLen]) + "..."
	}
	return s
}

// errorResult creates a ToolResult with IsError=true and the given message.
func errorResult(msg string) *ToolResult {
	return &ToolResult{
		IsError: true,
		Content: []Content{{Type: "text", Text: msg}},
	}
}

// errorResultf creates a ToolResult with IsError=true and a formatted message.
func errorResultf(format string, args ...any) *ToolResult {
	return errorResult(fmt.Sprintf(format, args...))
}

// textResult creates a ToolResult with a single text content.
func textResult(text string) *ToolResult {
	return &ToolResult{
		Content: []Content{{Type: "text", Text: text}},
	}
}

// commandResult renders a command Result as tool output: the log line,
// then the value (if any) as a second content item. Failures carry the
// error kind.
func commandResult(res command.Result) *ToolResult {
	if !res.OK {
		return errorResultf("%s [%s]", res.Log, res.Kind())
	}
	line := res.Log
	if res.Generation != 0 {
		line += fmt.Sprintf(" (generation %d)", res.Generation)
	}
	out := textResult(line)
	if res.Value != "" {
		out.Content = append(out.Content, Content{Type: "text", Text: res.Value})
	}
	return out
}

// grpcCode maps a command error kind onto a gRPC status code.
func grpcCode(kind string) codes.Code {
	switch kind {
	case "":
		return codes.OK
	case command.KindNoProcessSelected, command.KindNoElementSelected:
		return codes.FailedPrecondition
	case command.KindElementNotFound:
		return codes.NotFound
	case command.KindInvalidAddress, command.KindUnknownVerb, command.KindUsage:
		return codes.InvalidArgument
	case command.KindOSInput:
		return codes.Unavailable
	}
	return codes.Internal
}

// statusError converts a failed Result into a gRPC status error carrying a
// google.rpc.ErrorInfo.
func statusError(res command.Result) error {
	if res.OK {
		return nil
	}
	st := grpcstatus.New(grpcCode(res.Kind()), res.Err.Error())
	info := &errdetails.ErrorInfo{
		Reason: res.Kind(),
		Domain: inspectorrpc.ErrorDomain,
		Metadata: map[string]string{
			"verb": res.Verb.String(),
		},
	}
	if res.ElementID != "" {
		info.Metadata["element_id"] = res.ElementID
	}
	if detailed, err := st.WithDetails(info); err == nil {
		st = detailed
	}
	return st.Err()
}

// ErrorReason extracts the ErrorInfo reason from a status error, or "".
func ErrorReason(err error) string {
	st, ok := grpcstatus.FromError(err)
	if !ok {
		return ""
	}
	for _, d := range st.Details() {
		if info, ok := d.(*errdetails.ErrorInfo); ok {
			return info.GetReason()
		}
	}
	return ""
}

// FormatGRPCError formats a gRPC error with context and an actionable
// suggestion for common failures.
func FormatGRPCError(err error, operation string) string {
	if err == nil {
		return ""
	}

	st, ok := grpcstatus.FromError(err)
	if !ok {
		return fmt.Sprintf("Error in %s: %s", operation, err.Error())
	}

	code := st.Code()
	suggestion := ""
	switch ErrorReason(err) {
	case command.KindNoProcessSelected:
		suggestion = `Select a target first, e.g. selectprocess "Untitled - Notepad"`
	case command.KindNoElementSelected:
		suggestion = "Select an element (select x y, find path=...) or pass path=..."
	case command.KindElementNotFound:
		suggestion = "Refresh the snapshot with inspect and check the path or id"
	case command.KindInvalidAddress:
		suggestion = "Check the path expression; it must select elements, e.g. //button[@name=\"OK\"]"
	case command.KindUnknownVerb, command.KindUsage:
		suggestion = "Verbs: " + strings.Join(command.Verbs(), ", ")
	default:
		switch code {
		case codes.Unavailable:
			suggestion = "The inspector may be down or unreachable, or input was blocked by the OS. Check server status"
		case codes.DeadlineExceeded:
			suggestion = "Operation timed out. Large windows take longer to capture; try increasing the timeout"
		case codes.Internal:
			suggestion = "An internal server error occurred. Check server logs for details"
		case codes.ResourceExhausted:
			suggestion = "Rate limit exceeded. Try again later"
		case codes.Unimplemented:
			suggestion = "This operation is not implemented or supported"
		}
	}

	result := fmt.Sprintf("Error in %s: %s - %s", operation, code.String(), st.Message())
	if suggestion != "" {
		result += fmt.Sprintf("\nSuggestion: %s", suggestion)
	}
	return result
}

// validateToolInput validates JSON arguments against a tool's InputSchema:
// required fields, field types and enum values. Extra properties are
// allowed.
//
// Returns a JSON-RPC error response with ErrCodeInvalidParams if
// validation fails, nil if validation passes.
func validateToolInput(tool *Tool, args map[string]any) *transport.Message {
	if tool == nil || tool.InputSchema == nil {
		return nil
	}

	for _, field := range getRequiredFields(tool.InputSchema) {
		if _, exists := args[field]; !exists {
			return invalidParamsError(fmt.Sprintf("missing required field: %s", field))
		}
	}

	properties := getSchemaProperties(tool.InputSchema)
	for fieldName, value := range args {
		propSchema, exists := properties[fieldName]
		if !exists {
			continue
		}
		if err := validateFieldValue(fieldName, value, propSchema); err != nil {
			return invalidParamsError(err.Error())
		}
	}

	return nil
}

// invalidParamsError creates a JSON-RPC error response with ErrCodeInvalidParams.
func invalidParamsError(message string) *transport.Message {
	return &transport.Message{
		JSONRPC: "2.0",
		Error: &transport.ErrorObj{
			Code:    transport.ErrCodeInvalidParams,
			Message: message,
		},
	}
}

// getRequiredFields extracts the "required" array from a JSON schema.
func getRequiredFields(schema map[string]any) []string {
	switch required := schema["required"].(type) {
	case []string:
		return required
	case []any:
		result := make([]string, 0, len(required))
		for _, v := range required {
			if s, ok := v.(string); ok {
				result = append(result, s)
			}
		}
		return result
	}
	return nil
}

// getSchemaProperties extracts the "properties" map from a JSON schema.
func getSchemaProperties(schema map[string]any) map[string]map[string]any {
	propsMap, ok := schema["properties"].(map[string]any)
	if !ok {
		return nil
	}
	result := make(map[string]map[string]any, len(propsMap))
	for k, v := range propsMap {
		if propSchema, ok := v.(map[string]any); ok {
			result[k] = propSchema
		}
	}
	return result
}

// validateFieldValue validates a single field value against its property
// schema. Null values pass.
func validateFieldValue(fieldName string, value any, propSchema map[string]any) error {
	if value == nil {
		return nil
	}
	if schemaType, ok := propSchema["type"].(string); ok {
		if err := validateType(fieldName, value, schemaType); err != nil {
			return err
		}
	}
	if minimum, ok := propSchema["minimum"].(int); ok {
		if n, ok := value.(float64); ok && n < float64(minimum) {
			return fmt.Errorf("field %q must be >= %d, got %v", fieldName, minimum, value)
		}
	}
	return validateEnumValue(fieldName, value, propSchema)
}

// validateType validates that a value matches the expected JSON Schema type.
func validateType(fieldName string, value any, expectedType string) error {
	switch expectedType {
	case "string":
		if _, ok := value.(string); !ok {
			return fmt.Errorf("field %q must be a string, got %T", fieldName, value)
		}
	case "number":
		if _, ok := value.(float64); !ok {
			return fmt.Errorf("field %q must be a number, got %T", fieldName, value)
		}
	case "integer":
		// JSON unmarshaling to any produces float64 for all numbers
		if v, ok := value.(float64); !ok || v != float64(int64(v)) {
			return fmt.Errorf("field %q must be an integer, got %v", fieldName, value)
		}
	case "boolean":
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("field %q must be a boolean, got %T", fieldName, value)
		}
	case "object":
		if _, ok := value.(map[string]any); !ok {
			return fmt.Errorf("field %q must be an object, got %T", fieldName, value)
		}
	}
	return nil
}

// validateEnumValue validates that a value is in the allowed enum set.
func validateEnumValue(fieldName string, value any, propSchema map[string]any) error {
	enumStrings, ok := propSchema["enum"].([]string)
	if !ok {
		return nil
	}
	valueStr, ok := value.(string)
	if !ok {
		return fmt.Errorf("field %q must be a string for enum validation, got %T", fieldName, value)
	}
	if slices.Contains(enumStrings, valueStr) {
		return nil
	}
	return fmt.Errorf("field %q must be one of [%s], got %q", fieldName, strings.Join(enumStrings, ", "), valueStr)
}
