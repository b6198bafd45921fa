package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toolchat/internal/logging"
	"toolchat/internal/ports"
)

func TestOpenAIChat(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var req oaRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		assert.False(t, req.Stream)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{
				"message":       map[string]any{"role": "assistant", "content": "hello there"},
				"finish_reason": "stop",
			}},
			"usage": map[string]int{"prompt_tokens": 10, "completion_tokens": 3, "total_tokens": 13},
		})
	}))
	defer server.Close()

	client := NewOpenAIClient("test-model", server.URL, "secret")
	resp, err := client.Chat(context.Background(), ports.ChatRequest{
		Messages: []ports.Message{{Role: "user", Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "hello there", resp.Content)
	assert.Equal(t, "stop", resp.StopReason)
	assert.Equal(t, 13, resp.Usage.TotalTokens)
}

func TestOpenAIChatRendersStructuredCalls(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{
				"message": map[string]any{
					"role":    "assistant",
					"content": "let me check",
					"tool_calls": []map[string]any{{
						"id":   "call_1",
						"type": "function",
						"function": map[string]any{
							"name":      "get_current_time",
							"arguments": `{"timezone": "UTC"}`,
						},
					}},
				},
				"finish_reason": "tool_calls",
			}},
		})
	}))
	defer server.Close()

	client := NewOpenAIClient("test-model", server.URL, "")
	resp, err := client.Chat(context.Background(), ports.ChatRequest{
		Messages: []ports.Message{{Role: "user", Content: "what time is it"}},
	})
	require.NoError(t, err)
	assert.Contains(t, resp.Content, "<tool_calls>")
	assert.Contains(t, resp.Content, `"get_current_time"`)
	assert.Contains(t, resp.Content, `"timezone":"UTC"`)
}

func TestOpenAIStreamChat(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, delta := range []string{"hel", "lo ", "world"} {
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", delta)
			flusher.Flush()
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	client := NewOpenAIClient("test-model", server.URL, "")
	var streamed strings.Builder
	resp, err := client.StreamChat(context.Background(), ports.ChatRequest{
		Messages: []ports.Message{{Role: "user", Content: "hi"}},
	}, func(chunk string) { streamed.WriteString(chunk) })
	require.NoError(t, err)
	assert.Equal(t, "hello world", resp.Content)
	assert.Equal(t, "hello world", streamed.String())
}

func TestOpenAIChatErrorStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewOpenAIClient("test-model", server.URL, "")
	_, err := client.Chat(context.Background(), ports.ChatRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestDecodeArgumentsRepairsMalformedJSON(t *testing.T) {
	t.Parallel()

	// Truncated JSON, the typical streaming failure mode.
	args, ok := decodeArguments(`{"path": "/tmp/x"`, logging.Nop())
	require.True(t, ok)
	assert.Equal(t, "/tmp/x", args["path"])

	args, ok = decodeArguments("", logging.Nop())
	require.True(t, ok)
	assert.Empty(t, args)
}

func TestRenderStructuredCallsDropsNameless(t *testing.T) {
	t.Parallel()

	var call oaToolCall
	call.Function.Arguments = `{"a":1}`
	assert.Empty(t, renderStructuredCalls([]oaToolCall{call}, logging.Nop()))
}
