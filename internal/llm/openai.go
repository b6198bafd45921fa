// Package llm contains the chat provider clients. Each client normalizes
// its wire format into a plain assistant text stream; structured tool calls
// from the provider are re-rendered as a <tool_calls> block so the extractor
// sees one uniform shape.
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

var _ ports.ChatProvider = (*openAIClient)(nil)

// openAIClient speaks the OpenAI-compatible chat completions API, which
// also covers OpenRouter and similar gateways.
type openAIClient struct {
	model      string
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     logging.Logger
}

func NewOpenAIClient(model, baseURL, apiKey string) ports.ChatProvider {
	return &openAIClient{
		model:      model,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		logger:     logging.NewComponentLogger("openai-client"),
	}
}

func (c *openAIClient) Model() string { return c.model }

type oaMessage struct {
	Role      string       `json:"role"`
	Content   string       `json:"content"`
	ToolCalls []oaToolCall `json:"tool_calls,omitempty"`
}

type oaToolCall struct {
	ID       string `json:"id,omitempty"`
	Type     string `json:"type,omitempty"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type oaRequest struct {
	Model       string      `json:"model"`
	Messages    []oaMessage `json:"messages"`
	Temperature float64     `json:"temperature,omitempty"`
	MaxTokens   int         `json:"max_tokens,omitempty"`
	Stream      bool        `json:"stream,omitempty"`
}

type oaResponse struct {
	Choices []struct {
		Message      oaMessage `json:"message"`
		Delta        oaMessage `json:"delta"`
		FinishReason string    `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *openAIClient) buildRequest(req ports.ChatRequest, stream bool) oaRequest {
	messages := make([]oaMessage, 0, len(req.Messages)+1)
	if len(req.Tools) > 0 {
		// Tools ride in the system prompt as pseudo-XML instructions rather
		// than the native functions field, so every provider behaves the
		// same and the extractor owns call recovery.
		messages = append(messages, oaMessage{Role: "system", Content: renderToolPrimer(req.Tools)})
	}
	for _, m := range req.Messages {
		messages = append(messages, oaMessage{Role: m.Role, Content: m.Content})
	}
	return oaRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Stream:      stream,
	}
}

func (c *openAIClient) do(ctx context.Context, payload oaRequest) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	return c.httpClient.Do(httpReq)
}

func (c *openAIClient) Chat(ctx context.Context, req ports.ChatRequest) (*ports.ChatResponse, error) {
	resp, err := c.do(ctx, c.buildRequest(req, false))
	if err != nil {
		return nil, fmt.Errorf("chat request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("chat request failed with %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var decoded oaResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode chat response: %w", err)
	}
	if decoded.Error != nil {
		return nil, fmt.Errorf("provider error: %s", decoded.Error.Message)
	}
	if len(decoded.Choices) == 0 {
		return nil, fmt.Errorf("provider returned no choices")
	}

	choice := decoded.Choices[0]
	content := choice.Message.Content
	if block := renderStructuredCalls(choice.Message.ToolCalls, c.logger); block != "" {
		content += block
	}
	return &ports.ChatResponse{
		Content:    content,
		StopReason: choice.FinishReason,
		Usage: ports.TokenUsage{
			PromptTokens:     decoded.Usage.PromptTokens,
			CompletionTokens: decoded.Usage.CompletionTokens,
			TotalTokens:      decoded.Usage.TotalTokens,
		},
	}, nil
}

func (c *openAIClient) StreamChat(ctx context.Context, req ports.ChatRequest, onDelta func(chunk string)) (*ports.ChatResponse, error) {
	resp, err := c.do(ctx, c.buildRequest(req, true))
	if err != nil {
		return nil, fmt.Errorf("stream request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("stream request failed with %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 2*1024*1024)

	var builder strings.Builder
	var pendingCalls []oaToolCall
	response := &ports.ChatResponse{}

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "[DONE]" {
			break
		}

		var chunk oaResponse
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			c.logger.Warn("openai: skipping malformed stream chunk: %v", err)
			continue
		}
		if chunk.Error != nil {
			return nil, fmt.Errorf("provider error: %s", chunk.Error.Message)
		}
		if chunk.Usage.TotalTokens > 0 {
			response.Usage = ports.TokenUsage{
				PromptTokens:     chunk.Usage.PromptTokens,
				CompletionTokens: chunk.Usage.CompletionTokens,
				TotalTokens:      chunk.Usage.TotalTokens,
			}
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		choice := chunk.Choices[0]
		if choice.FinishReason != "" {
			response.StopReason = choice.FinishReason
		}
		if delta := choice.Delta.Content; delta != "" {
			builder.WriteString(delta)
			if onDelta != nil {
				onDelta(delta)
			}
		}
		pendingCalls = mergeStreamedCalls(pendingCalls, choice.Delta.ToolCalls)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read stream: %w", err)
	}

	if block := renderStructuredCalls(pendingCalls, c.logger); block != "" {
		builder.WriteString(block)
		if onDelta != nil {
			onDelta(block)
		}
	}
	response.Content = builder.String()
	return response, nil
}

// mergeStreamedCalls accumulates tool-call argument fragments that arrive
// spread over multiple deltas.
func mergeStreamedCalls(acc, deltas []oaToolCall) []oaToolCall {
	for _, delta := range deltas {
		if delta.Function.Name != "" || len(acc) == 0 {
			acc = append(acc, delta)
			continue
		}
		last := &acc[len(acc)-1]
		last.Function.Arguments += delta.Function.Arguments
	}
	return acc
}
