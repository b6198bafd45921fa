package ports

import "context"

// ChatProvider represents any LLM provider exposing chat completion.
type ChatProvider interface {
	// Chat sends messages and returns a full response (non-streaming).
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)

	// StreamChat streams the response, invoking onDelta for each content
	// chunk, and returns the accumulated response.
	StreamChat(ctx context.Context, req ChatRequest, onDelta func(chunk string)) (*ChatResponse, error)

	// Model returns the model identifier.
	Model() string
}

// ChatRequest contains all parameters for a completion round.
type ChatRequest struct {
	Messages    []Message        `json:"messages"`
	Tools       []ToolDefinition `json:"tools,omitempty"`
	Temperature float64          `json:"temperature,omitempty"`
	MaxTokens   int              `json:"max_tokens,omitempty"`
}

// ChatResponse is the provider's reply. Content carries the full assistant
// text, including any embedded <thinking> and tool-call markup; recovering
// structure from it is the extractor's job, not the provider's.
type ChatResponse struct {
	Content    string     `json:"content"`
	StopReason string     `json:"stop_reason,omitempty"`
	Usage      TokenUsage `json:"usage"`
}

// TokenUsage tracks token consumption for one completion.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Message is a single conversation turn.
type Message struct {
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}
