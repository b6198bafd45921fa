package ports

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Error codes carried by failed ToolResults. Execution failures never cross
// the orchestration loop as Go errors; they are folded into a failed result.
const (
	ErrCodeToolNotFound   = "TOOL_NOT_FOUND"
	ErrCodeParameterError = "PARAMETER_ERROR"
	ErrCodeExecutionError = "EXECUTION_ERROR"
	ErrCodeTypeConversion = "TYPE_CONVERSION_ERROR"
	ErrCodeValidation     = "VALIDATION_ERROR"
	ErrCodeUserDenied     = "USER_DENIED"
)

// Tool executes a single named tool call.
type Tool interface {
	// Execute runs the tool with already-decoded arguments and returns the
	// rendered result text.
	Execute(ctx context.Context, args map[string]any) (string, error)

	// Definition returns the tool's schema for the LLM.
	Definition() ToolDefinition

	// Metadata returns tool metadata.
	Metadata() ToolMetadata
}

// ToolDefinition describes a tool for the LLM.
type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  ParameterSchema `json:"parameters"`
}

// ToolMetadata carries registration-time attributes that never change after
// startup. RiskLevel is descriptive only and does not alter control flow.
type ToolMetadata struct {
	Name                 string `json:"name"`
	Module               string `json:"module,omitempty"`
	Async                bool   `json:"async,omitempty"`
	RequiresConfirmation bool   `json:"requires_confirmation,omitempty"`
	ConfirmationCategory string `json:"confirmation_category,omitempty"`
	RiskLevel            string `json:"risk_level,omitempty"`
}

// ParameterSchema defines tool parameters (JSON Schema object form).
type ParameterSchema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required,omitempty"`
}

// Property defines a single parameter.
type Property struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	Enum        []any  `json:"enum,omitempty"`
	Default     any    `json:"default,omitempty"`
}

// ToolCall is a request to execute a tool, recovered from assistant text.
type ToolCall struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
	// RawArguments preserves the argument payload exactly as emitted.
	RawArguments string `json:"raw_arguments,omitempty"`
}

// ToolResult is produced exactly once per executed ToolCall and is immutable
// after creation.
type ToolResult struct {
	ToolName      string         `json:"tool_name"`
	Parameters    map[string]any `json:"parameters,omitempty"`
	Success       bool           `json:"success"`
	Data          string         `json:"data"`
	ErrorCode     string         `json:"error_code,omitempty"`
	ErrorMessage  string         `json:"error_message,omitempty"`
	ExecutionTime time.Duration  `json:"execution_time"`
	Timestamp     time.Time      `json:"timestamp"`
}

// String renders the result the way it is fed back to the model: the data on
// success, the code and message on failure.
func (r *ToolResult) String() string {
	if r.Success {
		return r.Data
	}
	if r.ErrorCode != "" {
		return fmt.Sprintf("error[%s]: %s", r.ErrorCode, r.ErrorMessage)
	}
	return "error: " + r.ErrorMessage
}

// DetailedString renders the result with call metadata for re-injection into
// the conversation as a <TOOL_RESULT> turn.
func (r *ToolResult) DetailedString() string {
	const maxParamLength = 200

	var b strings.Builder
	fmt.Fprintf(&b, "tool: %s\n", r.ToolName)

	params := fmt.Sprintf("%v", r.Parameters)
	if len(params) > maxParamLength {
		params = params[:maxParamLength] + "..."
	}
	fmt.Fprintf(&b, "parameters: %s\n", params)
	fmt.Fprintf(&b, "execution_time: %.3fs\n", r.ExecutionTime.Seconds())

	if r.Success {
		b.WriteString("result: " + r.Data)
		return b.String()
	}
	b.WriteString("execution failed\n")
	if r.ErrorCode != "" {
		fmt.Fprintf(&b, "error_code: %s\n", r.ErrorCode)
	}
	b.WriteString("error: " + r.ErrorMessage)
	return b.String()
}

// FailedResult builds a failed ToolResult with the given code and message.
func FailedResult(tool string, params map[string]any, code, message string, elapsed time.Duration) *ToolResult {
	return &ToolResult{
		ToolName:      tool,
		Parameters:    params,
		Success:       false,
		Data:          "",
		ErrorCode:     code,
		ErrorMessage:  message,
		ExecutionTime: elapsed,
		Timestamp:     time.Now(),
	}
}

// ConfirmationRequest is created when the gate must suspend a call in async
// mode. The ID is unique and single-use; the request is destroyed on resume.
type ConfirmationRequest struct {
	ID          string         `json:"confirmation_id"`
	ToolName    string         `json:"tool_name"`
	Tool        ToolMetadata   `json:"tool_info"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// Outcome is the tagged result of executing a tool call through the gate.
// Exactly one of Result and Pending is set: a call either completes (possibly
// as a failure) or suspends awaiting confirmation, never both, never neither.
type Outcome struct {
	Result  *ToolResult
	Pending *ConfirmationRequest
}

// Completed wraps a finished result.
func Completed(result *ToolResult) Outcome {
	return Outcome{Result: result}
}

// AwaitingConfirmation wraps a suspended call.
func AwaitingConfirmation(req *ConfirmationRequest) Outcome {
	return Outcome{Pending: req}
}
