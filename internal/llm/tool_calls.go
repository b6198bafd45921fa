package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"toolchat/internal/logging"
	"toolchat/internal/ports"
)

// renderToolPrimer describes the tool set and the call syntax to the model.
// All providers get the same pseudo-XML instructions, so call recovery stays
// in the extractor regardless of native function-calling support.
func renderToolPrimer(tools []ports.ToolDefinition) string {
	var b strings.Builder
	b.WriteString("You can call tools. To call one, emit exactly:\n\n")
	b.WriteString("<tool_call>\n<name>tool_name</name>\n<parameters>\n{\"key\": \"value\"}\n</parameters>\n</tool_call>\n\n")
	b.WriteString("Call at most one tool per reply and wait for its <TOOL_RESULT> before continuing.\n")
	b.WriteString("Available tools:\n")
	for _, tool := range tools {
		schema, _ := json.Marshal(tool.Parameters)
		fmt.Fprintf(&b, "- %s: %s\n  parameters: %s\n", tool.Name, tool.Description, schema)
	}
	return b.String()
}

// decodeArguments parses a provider's argument string, repairing malformed
// JSON when possible. Providers truncate or mangle arguments often enough
// that repair pays for itself.
func decodeArguments(raw string, logger logging.Logger) (map[string]any, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return map[string]any{}, true
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err == nil {
		return args, true
	}
	repaired, err := jsonrepair.JSONRepair(raw)
	if err != nil {
		logger.Warn("llm: argument repair failed: %v", err)
		return nil, false
	}
	if err := json.Unmarshal([]byte(repaired), &args); err != nil {
		logger.Warn("llm: repaired arguments still undecodable: %v", err)
		return nil, false
	}
	logger.Debug("llm: repaired malformed tool arguments")
	return args, true
}

// renderStructuredCalls converts native tool calls from the wire into the
// uniform <tool_calls> block the extractor consumes. Undecodable calls are
// dropped with a warning. Empty input renders nothing.
func renderStructuredCalls(calls []oaToolCall, logger logging.Logger) string {
	type functionEntry struct {
		Name      string         `json:"name"`
		Arguments map[string]any `json:"arguments"`
	}
	type callEntry struct {
		Type     string        `json:"type"`
		Function functionEntry `json:"function"`
	}

	var entries []callEntry
	for _, call := range calls {
		if call.Function.Name == "" {
			continue
		}
		args, ok := decodeArguments(call.Function.Arguments, logger)
		if !ok {
			logger.Warn("llm: dropping structured call %s with unusable arguments", call.Function.Name)
			continue
		}
		entries = append(entries, callEntry{
			Type:     "function",
			Function: functionEntry{Name: call.Function.Name, Arguments: args},
		})
	}
	if len(entries) == 0 {
		return ""
	}
	payload, err := json.Marshal(entries)
	if err != nil {
		return ""
	}
	return "\n<tool_calls>\n" + string(payload) + "\n</tool_calls>"
}
