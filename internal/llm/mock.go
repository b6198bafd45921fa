package llm

import (
	"context"
	"fmt"

	"toolchat/internal/ports"
)

// MockProvider replays scripted responses in order. For tests.
type MockProvider struct {
	Responses []string
	ChunkSize int
	Requests  []ports.ChatRequest

	next int
}

var _ ports.ChatProvider = (*MockProvider)(nil)

func (m *MockProvider) Model() string { return "mock" }

func (m *MockProvider) take(req ports.ChatRequest) (string, error) {
	m.Requests = append(m.Requests, req)
	if m.next >= len(m.Responses) {
		return "", fmt.Errorf("mock provider exhausted after %d responses", len(m.Responses))
	}
	response := m.Responses[m.next]
	m.next++
	return response, nil
}

func (m *MockProvider) Chat(_ context.Context, req ports.ChatRequest) (*ports.ChatResponse, error) {
	content, err := m.take(req)
	if err != nil {
		return nil, err
	}
	return &ports.ChatResponse{Content: content, StopReason: "stop"}, nil
}

func (m *MockProvider) StreamChat(_ context.Context, req ports.ChatRequest, onDelta func(chunk string)) (*ports.ChatResponse, error) {
	content, err := m.take(req)
	if err != nil {
		return nil, err
	}
	size := m.ChunkSize
	if size <= 0 {
		size = 7
	}
	if onDelta != nil {
		runes := []rune(content)
		for start := 0; start < len(runes); start += size {
			end := start + size
			if end > len(runes) {
				end = len(runes)
			}
			onDelta(string(runes[start:end]))
		}
	}
	return &ports.ChatResponse{Content: content, StopReason: "stop"}, nil
}
