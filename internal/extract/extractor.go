// Package extract recovers structured tool calls and thinking segments from
// unstructured assistant text. Calls arrive embedded in a pseudo-XML wire
// format inside the natural-language channel; the extractor walks the text
// with an explicit scanner rather than repeated whole-buffer regex passes.
package extract

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"toolchat/internal/logging"
	"toolchat/internal/ports"
)

const (
	tagCallOpen   = "<tool_call>"
	tagCallClose  = "</tool_call>"
	tagCallsOpen  = "<tool_calls>"
	tagCallsClose = "</tool_calls>"

	tagNameOpen    = "<name>"
	tagNameClose   = "</name>"
	tagParamsOpen  = "<parameters>"
	tagParamsClose = "</parameters>"
	// Singular form accepted as a leniency for models that drop the plural.
	tagParamOpen  = "<parameter>"
	tagParamClose = "</parameter>"
)

// Extractor recovers tool calls from accumulated assistant text.
type Extractor struct {
	logger logging.Logger
}

// New creates an Extractor. A nil logger disables diagnostics output.
func New(logger logging.Logger) *Extractor {
	return &Extractor{logger: logging.OrNop(logger)}
}

// Extract returns the ordered valid tool calls found in text along with
// human-readable diagnostics for everything that was dropped. Malformed call
// syntax is never an error: it degrades to "no call" and a diagnostic.
//
// At most one call is honored per round: when more than one valid call is
// present, only the first is kept and the rest are reported as dropped.
func (x *Extractor) Extract(text string) ([]ports.ToolCall, []string) {
	var calls []ports.ToolCall
	var diags []string

	pos := 0
	for pos < len(text) {
		blockStart, jsonBlock := nextCallBlock(text, pos)
		if blockStart < 0 {
			break
		}
		if jsonBlock {
			inner, next, ok := innerSpan(text, blockStart, tagCallsOpen, tagCallsClose)
			if !ok {
				break // unclosed block: incomplete this round
			}
			parsed, blockDiags := x.parseJSONCallBlock(inner)
			calls = append(calls, parsed...)
			diags = append(diags, blockDiags...)
			pos = next
			continue
		}
		inner, next, ok := innerSpan(text, blockStart, tagCallOpen, tagCallClose)
		if !ok {
			break
		}
		call, diag := x.parseXMLCall(inner)
		if call != nil {
			calls = append(calls, *call)
		} else if diag != "" {
			diags = append(diags, diag)
		}
		pos = next
	}

	for _, d := range diags {
		x.logger.Debug("dropped tool call: %s", d)
	}

	if len(calls) > 1 {
		x.logger.Warn("found %d tool calls in one round, keeping only the first (%s)",
			len(calls), calls[0].Name)
		for _, dropped := range calls[1:] {
			diags = append(diags, fmt.Sprintf("call %q dropped: only one tool call is honored per round", dropped.Name))
		}
		calls = calls[:1]
	}
	return calls, diags
}

// HasCalls reports whether text contains any call markup.
func HasCalls(text string) bool {
	return strings.Contains(text, tagCallOpen) || strings.Contains(text, tagCallsOpen)
}

// Strip removes all call markup spans from text, for contexts that need the
// call-free prose. Unclosed blocks are stripped to the end of the text.
func Strip(text string) string {
	var b strings.Builder
	pos := 0
	for pos < len(text) {
		blockStart, jsonBlock := nextCallBlock(text, pos)
		if blockStart < 0 {
			b.WriteString(text[pos:])
			break
		}
		b.WriteString(text[pos:blockStart])
		open, closing := tagCallOpen, tagCallClose
		if jsonBlock {
			open, closing = tagCallsOpen, tagCallsClose
		}
		_, next, ok := innerSpan(text, blockStart, open, closing)
		if !ok {
			break
		}
		pos = next
	}
	return strings.TrimSpace(b.String())
}

// nextCallBlock locates the earliest call block at or after pos. The second
// return is true when the block uses the JSON <tool_calls> syntax.
func nextCallBlock(text string, pos int) (int, bool) {
	single := strings.Index(text[pos:], tagCallOpen)
	plural := strings.Index(text[pos:], tagCallsOpen)
	switch {
	case single < 0 && plural < 0:
		return -1, false
	case single < 0:
		return pos + plural, true
	case plural < 0:
		return pos + single, false
	case plural < single:
		return pos + plural, true
	default:
		return pos + single, false
	}
}

// innerSpan returns the content between the open tag at start and its closing
// tag, plus the scan position after the closing tag.
func innerSpan(text string, start int, open, closing string) (string, int, bool) {
	contentStart := start + len(open)
	rel := strings.Index(text[contentStart:], closing)
	if rel < 0 {
		return "", 0, false
	}
	return text[contentStart : contentStart+rel], contentStart + rel + len(closing), true
}

// parseJSONCallBlock decodes a <tool_calls> JSON payload: an array (or a
// single object) of {"type":"function","function":{"name","arguments"}}.
// When the payload is not JSON at all, embedded <tool_call> blocks inside it
// are still honored.
func (x *Extractor) parseJSONCallBlock(inner string) ([]ports.ToolCall, []string) {
	trimmed := strings.TrimSpace(inner)
	if trimmed == "" {
		return nil, []string{"empty <tool_calls> block"}
	}

	var entries []map[string]any
	if err := json.Unmarshal([]byte(trimmed), &entries); err != nil {
		var single map[string]any
		if err := json.Unmarshal([]byte(trimmed), &single); err != nil {
			// Not JSON: some models nest XML-form calls inside the block.
			if strings.Contains(trimmed, tagCallOpen) {
				return x.extractEmbedded(trimmed)
			}
			return nil, []string{fmt.Sprintf("unparseable <tool_calls> payload: %.80s", trimmed)}
		}
		entries = append(entries, single)
	}

	var calls []ports.ToolCall
	var diags []string
	for _, entry := range entries {
		call, diag := decodeFunctionEntry(entry)
		if call != nil {
			calls = append(calls, *call)
		} else {
			diags = append(diags, diag)
		}
	}
	return calls, diags
}

func (x *Extractor) extractEmbedded(inner string) ([]ports.ToolCall, []string) {
	var calls []ports.ToolCall
	var diags []string
	pos := 0
	for {
		start := strings.Index(inner[pos:], tagCallOpen)
		if start < 0 {
			break
		}
		content, next, ok := innerSpan(inner, pos+start, tagCallOpen, tagCallClose)
		if !ok {
			break
		}
		call, diag := x.parseXMLCall(content)
		if call != nil {
			calls = append(calls, *call)
		} else if diag != "" {
			diags = append(diags, diag)
		}
		pos = next
	}
	return calls, diags
}

// decodeFunctionEntry validates one {"type":"function",...} object. A call is
// valid only if function.name is non-empty; arguments, when present, must be
// an empty string, null, a JSON object string, or an object.
func decodeFunctionEntry(entry map[string]any) (*ports.ToolCall, string) {
	fnRaw, ok := entry["function"]
	if !ok {
		return nil, "call entry missing \"function\" field"
	}
	fn, ok := fnRaw.(map[string]any)
	if !ok {
		return nil, "call entry \"function\" is not an object"
	}
	name, _ := fn["name"].(string)
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, "call entry has empty function name"
	}

	call := &ports.ToolCall{Name: name, Arguments: map[string]any{}}
	argsRaw, present := fn["arguments"]
	if !present || argsRaw == nil {
		return call, ""
	}
	switch args := argsRaw.(type) {
	case string:
		trimmed := strings.TrimSpace(args)
		call.RawArguments = trimmed
		if trimmed == "" {
			return call, ""
		}
		var decoded any
		if err := json.Unmarshal([]byte(trimmed), &decoded); err != nil {
			return nil, fmt.Sprintf("call %q has non-JSON arguments: %.80s", name, trimmed)
		}
		if obj, ok := decoded.(map[string]any); ok {
			call.Arguments = obj
		}
		return call, ""
	case map[string]any:
		call.Arguments = args
		return call, ""
	default:
		return nil, fmt.Sprintf("call %q has arguments of unsupported type %T", name, argsRaw)
	}
}

// parseXMLCall decodes the inner content of one <tool_call> block.
func (x *Extractor) parseXMLCall(inner string) (*ports.ToolCall, string) {
	name, _, ok := innerTag(inner, tagNameOpen, tagNameClose)
	if !ok {
		return nil, "tool_call block missing <name>"
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, "tool_call block has empty <name>"
	}

	params, _, ok := innerTag(inner, tagParamsOpen, tagParamsClose)
	if !ok {
		params, _, _ = innerTag(inner, tagParamOpen, tagParamClose)
	}
	params = strings.TrimSpace(params)

	call := &ports.ToolCall{Name: name, Arguments: map[string]any{}, RawArguments: params}
	if params == "" {
		return call, ""
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(params), &decoded); err != nil {
		// Leniency for models that emit XML-tagged parameters instead of
		// JSON. Anything else malformed drops the whole call.
		xmlParams := parseXMLParameters(params)
		if len(xmlParams) == 0 {
			return nil, fmt.Sprintf("call %q has malformed parameters JSON: %.80s", name, params)
		}
		call.Arguments = xmlParams
		return call, ""
	}
	call.Arguments = decoded
	return call, ""
}

func innerTag(text, open, closing string) (string, int, bool) {
	start := strings.Index(text, open)
	if start < 0 {
		return "", 0, false
	}
	return innerSpan(text, start, open, closing)
}

// parseXMLParameters decodes <key>value</key> pairs, coercing obvious bool
// and numeric literals.
func parseXMLParameters(content string) map[string]any {
	params := make(map[string]any)
	pos := 0
	for pos < len(content) {
		open := strings.Index(content[pos:], "<")
		if open < 0 {
			break
		}
		open += pos
		closeBracket := strings.Index(content[open:], ">")
		if closeBracket < 0 {
			break
		}
		key := content[open+1 : open+closeBracket]
		if key == "" || !isIdentifier(key) {
			pos = open + 1
			continue
		}
		closingTag := "</" + key + ">"
		valueStart := open + closeBracket + 1
		end := strings.Index(content[valueStart:], closingTag)
		if end < 0 {
			pos = open + 1
			continue
		}
		value := strings.TrimSpace(content[valueStart : valueStart+end])
		params[key] = coerceScalar(value)
		pos = valueStart + end + len(closingTag)
	}
	return params
}

func isIdentifier(s string) bool {
	for _, r := range s {
		if r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			continue
		}
		return false
	}
	return true
}

func coerceScalar(value string) any {
	switch strings.ToLower(value) {
	case "true":
		return true
	case "false":
		return false
	}
	if n, err := strconv.Atoi(value); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return f
	}
	return value
}
