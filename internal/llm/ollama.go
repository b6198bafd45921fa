package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"toolchat/internal/logging"
	"toolchat/internal/ports"
)

var _ ports.ChatProvider = (*ollamaClient)(nil)

// ollamaClient speaks the native Ollama /api/chat NDJSON protocol.
type ollamaClient struct {
	model      string
	baseURL    string
	httpClient *http.Client
	logger     logging.Logger
}

func NewOllamaClient(model, baseURL string) ports.ChatProvider {
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if !strings.HasSuffix(baseURL, "/api") {
		baseURL += "/api"
	}
	return &ollamaClient{
		model:      model,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 300 * time.Second},
		logger:     logging.NewComponentLogger("ollama-client"),
	}
}

func (c *ollamaClient) Model() string { return c.model }

type ollamaMessage struct {
	Role      string           `json:"role"`
	Content   string           `json:"content"`
	ToolCalls []ollamaToolCall `json:"tool_calls,omitempty"`
}

// ollamaToolCall carries native function calls; arguments arrive as a JSON
// object rather than the encoded string other providers send.
type ollamaToolCall struct {
	Function struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	} `json:"function"`
}

// asStructuredCalls converts native calls to the string-argument form the
// shared rendering path consumes.
func asStructuredCalls(calls []ollamaToolCall) []oaToolCall {
	out := make([]oaToolCall, 0, len(calls))
	for _, call := range calls {
		var converted oaToolCall
		converted.Function.Name = call.Function.Name
		converted.Function.Arguments = string(call.Function.Arguments)
		out = append(out, converted)
	}
	return out
}

type ollamaRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  map[string]any  `json:"options,omitempty"`
}

type ollamaResponse struct {
	Message         ollamaMessage `json:"message"`
	Done            bool          `json:"done"`
	DoneReason      string        `json:"done_reason,omitempty"`
	PromptEvalCount int           `json:"prompt_eval_count,omitempty"`
	EvalCount       int           `json:"eval_count,omitempty"`
	Error           string        `json:"error,omitempty"`
}

func (c *ollamaClient) buildRequest(req ports.ChatRequest, stream bool) ollamaRequest {
	messages := make([]ollamaMessage, 0, len(req.Messages)+1)
	if len(req.Tools) > 0 {
		messages = append(messages, ollamaMessage{Role: "system", Content: renderToolPrimer(req.Tools)})
	}
	for _, m := range req.Messages {
		messages = append(messages, ollamaMessage{Role: m.Role, Content: m.Content})
	}
	payload := ollamaRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   stream,
	}
	if req.Temperature > 0 {
		payload.Options = map[string]any{"temperature": req.Temperature}
	}
	if req.MaxTokens > 0 {
		if payload.Options == nil {
			payload.Options = map[string]any{}
		}
		payload.Options["num_predict"] = req.MaxTokens
	}
	return payload
}

func (c *ollamaClient) do(ctx context.Context, payload ollamaRequest) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	return c.httpClient.Do(httpReq)
}

func (c *ollamaClient) Chat(ctx context.Context, req ports.ChatRequest) (*ports.ChatResponse, error) {
	resp, err := c.do(ctx, c.buildRequest(req, false))
	if err != nil {
		return nil, fmt.Errorf("ollama request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama request failed: %s", strings.TrimSpace(string(body)))
	}

	var decoded ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode ollama response: %w", err)
	}
	if decoded.Error != "" {
		return nil, fmt.Errorf("ollama error: %s", decoded.Error)
	}
	content := decoded.Message.Content
	if block := renderStructuredCalls(asStructuredCalls(decoded.Message.ToolCalls), c.logger); block != "" {
		content += block
	}
	return c.buildResponse(decoded, content), nil
}

func (c *ollamaClient) StreamChat(ctx context.Context, req ports.ChatRequest, onDelta func(chunk string)) (*ports.ChatResponse, error) {
	resp, err := c.do(ctx, c.buildRequest(req, true))
	if err != nil {
		return nil, fmt.Errorf("ollama request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama request failed: %s", strings.TrimSpace(string(body)))
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 2*1024*1024)

	var builder strings.Builder
	var pendingCalls []ollamaToolCall
	var final *ports.ChatResponse
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var chunk ollamaResponse
		if err := json.Unmarshal([]byte(line), &chunk); err != nil {
			return nil, fmt.Errorf("decode ollama stream chunk: %w", err)
		}
		if chunk.Error != "" {
			return nil, fmt.Errorf("ollama error: %s", chunk.Error)
		}
		if delta := chunk.Message.Content; delta != "" {
			builder.WriteString(delta)
			if onDelta != nil {
				onDelta(delta)
			}
		}
		pendingCalls = append(pendingCalls, chunk.Message.ToolCalls...)
		if chunk.Done {
			if block := renderStructuredCalls(asStructuredCalls(pendingCalls), c.logger); block != "" {
				builder.WriteString(block)
				if onDelta != nil {
					onDelta(block)
				}
			}
			final = c.buildResponse(chunk, builder.String())
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read ollama stream: %w", err)
	}
	if final == nil {
		// Stream ended without a final chunk; synthesize one.
		c.logger.Warn("ollama: stream ended without done marker")
		final = &ports.ChatResponse{Content: builder.String()}
	}
	return final, nil
}

func (c *ollamaClient) buildResponse(resp ollamaResponse, content string) *ports.ChatResponse {
	return &ports.ChatResponse{
		Content:    content,
		StopReason: resp.DoneReason,
		Usage: ports.TokenUsage{
			PromptTokens:     resp.PromptEvalCount,
			CompletionTokens: resp.EvalCount,
			TotalTokens:      resp.PromptEvalCount + resp.EvalCount,
		},
	}
}
