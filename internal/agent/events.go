// Package agent runs the multi-round tool-calling loop: send history, split
// the streamed reply into thinking and answer, recover at most one tool
// call, execute it through the gate, re-inject the result, repeat.
package agent

import "toolchat/internal/ports"

// EventType discriminates the stream events a loop run emits.
type EventType string

const (
	// EventThinking carries a chunk of the model's thinking channel.
	EventThinking EventType = "thinking"
	// EventAnswer carries a chunk of user-facing answer text.
	EventAnswer EventType = "answer"
	// EventToolStart announces a recovered tool call about to execute.
	EventToolStart EventType = "tool_start"
	// EventToolResult carries a completed tool result.
	EventToolResult EventType = "tool_result"
	// EventNotice carries in-band orchestration notices, e.g. the round
	// limit being reached or extra calls being dropped.
	EventNotice EventType = "notice"
	// EventAwaitingConfirmation reports a suspended call; the run ends and
	// must be resumed through the executor.
	EventAwaitingConfirmation EventType = "awaiting_confirmation"
	// EventDone closes the run.
	EventDone EventType = "done"
)

// Event is one item on a streaming run's channel.
type Event struct {
	Type    EventType                  `json:"type"`
	Content string                     `json:"content,omitempty"`
	Call    *ports.ToolCall            `json:"call,omitempty"`
	Result  *ports.ToolResult          `json:"result,omitempty"`
	Pending *ports.ConfirmationRequest `json:"pending,omitempty"`
	Err     error                      `json:"-"`
}

// Reply is the aggregate outcome of a non-streaming run.
type Reply struct {
	Content     string                     `json:"content"`
	Thinking    string                     `json:"thinking,omitempty"`
	ToolResults []*ports.ToolResult        `json:"tool_results,omitempty"`
	Pending     *ports.ConfirmationRequest `json:"pending,omitempty"`
	Rounds      int                        `json:"rounds"`
	Usage       ports.TokenUsage           `json:"usage"`
}
