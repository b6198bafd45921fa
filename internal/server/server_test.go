package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toolchat/internal/agent"
	"toolchat/internal/config"
	"toolchat/internal/confirm"
	"toolchat/internal/llm"
	"toolchat/internal/logging"
	"toolchat/internal/ports"
	"toolchat/internal/session/filestore"
	"toolchat/internal/tools"
)

type testServer struct {
	server   *Server
	store    ports.SessionStore
	registry *tools.Registry
}

func newTestServer(t *testing.T, mode confirm.Mode, responses ...string) *testServer {
	t.Helper()

	cfg := config.Default()
	store, err := filestore.New(t.TempDir(), logging.Nop())
	require.NoError(t, err)

	registry := tools.NewRegistry(logging.Nop())
	gate := confirm.New(cfg, mode, nil, logging.Nop())
	executor := tools.NewExecutor(registry, gate, logging.Nop())
	provider := &llm.MockProvider{Responses: responses}
	engine := agent.New(provider, executor, registry, store, nil, cfg, logging.Nop())

	return &testServer{
		server:   New(engine, store, registry, executor, gate, logging.Nop(), Options{Host: "127.0.0.1", Port: 0}),
		store:    store,
		registry: registry,
	}
}

func (ts *testServer) request(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	ts.server.httpServer.Handler.ServeHTTP(recorder, req)
	return recorder
}

func TestHealth(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, confirm.ModeSuspend)
	resp := ts.request(t, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestSessionLifecycle(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, confirm.ModeSuspend)

	resp := ts.request(t, http.MethodPost, "/api/sessions", map[string]string{"title": "my chat"})
	require.Equal(t, http.StatusCreated, resp.Code)
	var session ports.Session
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &session))
	assert.Equal(t, "my chat", session.Title)

	resp = ts.request(t, http.MethodGet, "/api/sessions/"+session.ID, nil)
	assert.Equal(t, http.StatusOK, resp.Code)

	resp = ts.request(t, http.MethodGet, "/api/sessions", nil)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), session.ID)

	resp = ts.request(t, http.MethodDelete, "/api/sessions/"+session.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.Code)

	resp = ts.request(t, http.MethodGet, "/api/sessions/"+session.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestChatEndpoint(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, confirm.ModeSuspend, "Hello from the model")
	session, err := ts.store.Create(context.Background(), "chat")
	require.NoError(t, err)

	resp := ts.request(t, http.MethodPost, "/api/sessions/"+session.ID+"/messages",
		map[string]string{"content": "hi"})
	require.Equal(t, http.StatusOK, resp.Code)

	var reply agent.Reply
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &reply))
	assert.Equal(t, "Hello from the model", reply.Content)
}

func TestChatEndpointValidation(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, confirm.ModeSuspend)
	session, err := ts.store.Create(context.Background(), "chat")
	require.NoError(t, err)

	resp := ts.request(t, http.MethodPost, "/api/sessions/"+session.ID+"/messages", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = ts.request(t, http.MethodPost, "/api/sessions/session-missing/messages",
		map[string]string{"content": "hi"})
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestToolsEndpoint(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, confirm.ModeSuspend)
	def := ports.ToolDefinition{Name: "demo", Description: "demo tool"}
	require.NoError(t, ts.registry.Register(tools.NewTool(def, ports.ToolMetadata{}, func(_ context.Context, _ map[string]any) (string, error) {
		return "", nil
	})))

	resp := ts.request(t, http.MethodGet, "/api/tools", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"demo"`)
}

func TestConfirmationResumeFlow(t *testing.T) {
	t.Parallel()

	call := "<tool_call>\n<name>risky</name>\n<parameters>\n{}\n</parameters>\n</tool_call>"
	ts := newTestServer(t, confirm.ModeSuspend, call)
	def := ports.ToolDefinition{
		Name:       "risky",
		Parameters: ports.ParameterSchema{Type: "object", Properties: map[string]ports.Property{}},
	}
	meta := ports.ToolMetadata{Name: "risky", RequiresConfirmation: true}
	require.NoError(t, ts.registry.Register(tools.NewTool(def, meta, func(_ context.Context, _ map[string]any) (string, error) {
		return "executed", nil
	})))

	session, err := ts.store.Create(context.Background(), "chat")
	require.NoError(t, err)

	resp := ts.request(t, http.MethodPost, "/api/sessions/"+session.ID+"/messages",
		map[string]string{"content": "do it"})
	require.Equal(t, http.StatusOK, resp.Code)

	var reply agent.Reply
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &reply))
	require.NotNil(t, reply.Pending)

	resp = ts.request(t, http.MethodGet, "/api/confirmations", nil)
	assert.Contains(t, resp.Body.String(), reply.Pending.ID)

	resp = ts.request(t, http.MethodPost, "/api/confirmations/"+reply.Pending.ID,
		map[string]string{"decision": "allow"})
	require.Equal(t, http.StatusOK, resp.Code)
	var result ports.ToolResult
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &result))
	assert.True(t, result.Success)
	assert.Equal(t, "executed", result.Data)

	// Second resume with the same id fails.
	resp = ts.request(t, http.MethodPost, fmt.Sprintf("/api/confirmations/%s", reply.Pending.ID),
		map[string]string{"decision": "allow"})
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestResumeInvalidDecision(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, confirm.ModeSuspend)
	resp := ts.request(t, http.MethodPost, "/api/confirmations/confirm-x",
		map[string]string{"decision": "maybe"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}
