package agent

import (
	"fmt"
	"strings"

	"toolchat/internal/config"
	"toolchat/internal/ports"
	tokenutil "toolchat/internal/token"
)

const systemPrimer = `You are a helpful assistant with access to tools.
Think inside <thinking> tags; that channel is hidden from the user.
When a tool is needed, emit exactly one call and stop; its result arrives
in a <TOOL_RESULT> message. Use results to compose your final answer.
Answer directly when no tool is needed.`

const resultPlaceholder = "[old %s output elided to save context]"

// systemPrompt assembles the primer plus any remembered user preferences.
func systemPrompt(preferences string) string {
	if preferences == "" {
		return systemPrimer
	}
	return systemPrimer + "\n\nRemembered user preferences:\n" + preferences
}

// buildHistory converts stored messages into the request window: the last
// HistoryWindow turns, with bulky old tool results rewritten to
// placeholders per the token-optimization settings.
func buildHistory(stored []ports.StoredMessage, cfg *config.Config) []ports.Message {
	window := cfg.HistoryWindow
	if window > 0 && len(stored) > window {
		stored = stored[len(stored)-window:]
	}

	messages := make([]ports.Message, 0, len(stored))
	for _, msg := range stored {
		messages = append(messages, ports.Message{Role: msg.Role, Content: msg.Content})
	}
	filterOldToolResults(messages, cfg.TokenOptimization)
	return messages
}

// filterOldToolResults rewrites old, bulky tool-result turns in place. A
// turn survives when it is among the keep-recent tail, below the token
// threshold, or from a tool not listed for filtering.
func filterOldToolResults(messages []ports.Message, opt config.TokenOptimizationConfig) {
	if !opt.Enabled || !opt.FilterOldToolResults || len(opt.FilterTools) == 0 {
		return
	}
	keep := opt.KeepRecentMessages
	if keep < 0 {
		keep = 0
	}
	cutoff := len(messages) - keep
	for i := 0; i < cutoff; i++ {
		tool, ok := toolResultSource(messages[i].Content)
		if !ok || !filterListed(opt.FilterTools, tool) {
			continue
		}
		if tokenutil.EstimateFast(messages[i].Content) <= opt.FilterThreshold {
			continue
		}
		messages[i].Content = "<TOOL_RESULT>\n" + fmt.Sprintf(resultPlaceholder, tool) + "\n</TOOL_RESULT>"
	}
}

// toolResultSource extracts the tool name from a <TOOL_RESULT> turn.
func toolResultSource(content string) (string, bool) {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "<TOOL_RESULT>") {
		return "", false
	}
	for _, line := range strings.Split(trimmed, "\n") {
		if name, found := strings.CutPrefix(strings.TrimSpace(line), "tool: "); found {
			return strings.TrimSpace(name), true
		}
	}
	return "", false
}

func filterListed(tools []string, name string) bool {
	for _, t := range tools {
		if t == name {
			return true
		}
	}
	return false
}

// maxResultTokens caps a single re-injected tool result so one bulky output
// cannot crowd out the rest of the window.
const maxResultTokens = 4000

// renderToolResult formats a result for re-injection as a user turn.
func renderToolResult(result *ports.ToolResult) string {
	detail := result.DetailedString()
	if tokenutil.EstimateFast(detail) > maxResultTokens {
		detail = tokenutil.TruncateToTokens(detail, maxResultTokens)
	}
	return "<TOOL_RESULT>\n" + detail + "\n</TOOL_RESULT>"
}
