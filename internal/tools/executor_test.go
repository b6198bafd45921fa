package tools

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toolchat/internal/config"
	"toolchat/internal/confirm"
	"toolchat/internal/logging"
	"toolchat/internal/ports"
)

func newTestExecutor(t *testing.T, mode confirm.Mode) (*Executor, *Registry) {
	t.Helper()
	registry := NewRegistry(logging.Nop())
	gate := confirm.New(config.Default(), mode, nil, logging.Nop())
	return NewExecutor(registry, gate, logging.Nop()), registry
}

func TestExecuteUnknownTool(t *testing.T) {
	t.Parallel()

	exec, _ := newTestExecutor(t, confirm.ModeBlocking)
	outcome := exec.Execute(context.Background(), ports.ToolCall{Name: "nope"})

	require.NotNil(t, outcome.Result)
	assert.Nil(t, outcome.Pending)
	assert.False(t, outcome.Result.Success)
	assert.Equal(t, ports.ErrCodeToolNotFound, outcome.Result.ErrorCode)
}

func TestExecuteSuccess(t *testing.T) {
	t.Parallel()

	exec, registry := newTestExecutor(t, confirm.ModeBlocking)
	require.NoError(t, registry.Register(echoTool("echo")))

	outcome := exec.Execute(context.Background(), ports.ToolCall{
		Name:      "echo",
		Arguments: map[string]any{"text": "hello"},
	})
	require.NotNil(t, outcome.Result)
	assert.True(t, outcome.Result.Success)
	assert.Equal(t, "hello", outcome.Result.Data)
	assert.Equal(t, "echo", outcome.Result.ToolName)
	assert.False(t, outcome.Result.Timestamp.IsZero())
}

func TestExecuteMissingRequiredIncludesSchemaHint(t *testing.T) {
	t.Parallel()

	exec, registry := newTestExecutor(t, confirm.ModeBlocking)
	require.NoError(t, registry.Register(echoTool("echo")))

	outcome := exec.Execute(context.Background(), ports.ToolCall{Name: "echo"})
	require.NotNil(t, outcome.Result)
	assert.False(t, outcome.Result.Success)
	assert.Equal(t, ports.ErrCodeParameterError, outcome.Result.ErrorCode)
	assert.Contains(t, outcome.Result.ErrorMessage, "text")
	assert.Contains(t, outcome.Result.ErrorMessage, "expected parameters for echo")
}

func TestExecuteDropsUndeclaredParams(t *testing.T) {
	t.Parallel()

	exec, registry := newTestExecutor(t, confirm.ModeBlocking)
	var seen map[string]any
	def := ports.ToolDefinition{
		Name: "probe",
		Parameters: ports.ParameterSchema{
			Type:       "object",
			Properties: map[string]ports.Property{"keep": {Type: "string"}},
		},
	}
	require.NoError(t, registry.Register(NewTool(def, ports.ToolMetadata{}, func(_ context.Context, args map[string]any) (string, error) {
		seen = args
		return "ok", nil
	})))

	outcome := exec.Execute(context.Background(), ports.ToolCall{
		Name:      "probe",
		Arguments: map[string]any{"keep": "yes", "extra": "dropped"},
	})
	require.NotNil(t, outcome.Result)
	require.True(t, outcome.Result.Success)
	assert.Equal(t, map[string]any{"keep": "yes"}, seen)
}

func TestExecuteCoercesTypedParams(t *testing.T) {
	t.Parallel()

	exec, registry := newTestExecutor(t, confirm.ModeBlocking)
	var seen map[string]any
	def := ports.ToolDefinition{
		Name: "typed",
		Parameters: ports.ParameterSchema{
			Type: "object",
			Properties: map[string]ports.Property{
				"count":   {Type: "integer"},
				"ratio":   {Type: "number"},
				"enabled": {Type: "boolean"},
			},
		},
	}
	require.NoError(t, registry.Register(NewTool(def, ports.ToolMetadata{}, func(_ context.Context, args map[string]any) (string, error) {
		seen = args
		return "ok", nil
	})))

	outcome := exec.Execute(context.Background(), ports.ToolCall{
		Name:      "typed",
		Arguments: map[string]any{"count": "5", "ratio": "2.5", "enabled": "true"},
	})
	require.True(t, outcome.Result.Success)
	assert.Equal(t, 5, seen["count"])
	assert.Equal(t, 2.5, seen["ratio"])
	assert.Equal(t, true, seen["enabled"])
}

func TestExecuteTypeConversionFailure(t *testing.T) {
	t.Parallel()

	exec, registry := newTestExecutor(t, confirm.ModeBlocking)
	def := ports.ToolDefinition{
		Name: "typed",
		Parameters: ports.ParameterSchema{
			Type:       "object",
			Properties: map[string]ports.Property{"count": {Type: "integer"}},
		},
	}
	require.NoError(t, registry.Register(NewTool(def, ports.ToolMetadata{}, func(_ context.Context, _ map[string]any) (string, error) {
		return "ok", nil
	})))

	outcome := exec.Execute(context.Background(), ports.ToolCall{
		Name:      "typed",
		Arguments: map[string]any{"count": "lots"},
	})
	require.NotNil(t, outcome.Result)
	assert.False(t, outcome.Result.Success)
	assert.Equal(t, ports.ErrCodeTypeConversion, outcome.Result.ErrorCode)

	// A fractional value must not be silently truncated to an integer.
	outcome = exec.Execute(context.Background(), ports.ToolCall{
		Name:      "typed",
		Arguments: map[string]any{"count": 2.7},
	})
	require.NotNil(t, outcome.Result)
	assert.False(t, outcome.Result.Success)
	assert.Equal(t, ports.ErrCodeTypeConversion, outcome.Result.ErrorCode)

	// Integral floats stay accepted; JSON decodes every number this way.
	outcome = exec.Execute(context.Background(), ports.ToolCall{
		Name:      "typed",
		Arguments: map[string]any{"count": 3.0},
	})
	require.NotNil(t, outcome.Result)
	assert.True(t, outcome.Result.Success)
}

func TestExecuteEnumValidation(t *testing.T) {
	t.Parallel()

	exec, registry := newTestExecutor(t, confirm.ModeBlocking)
	def := ports.ToolDefinition{
		Name: "pick",
		Parameters: ports.ParameterSchema{
			Type: "object",
			Properties: map[string]ports.Property{
				"mode": {Type: "string", Enum: []any{"fast", "slow"}},
			},
		},
	}
	require.NoError(t, registry.Register(NewTool(def, ports.ToolMetadata{}, func(_ context.Context, _ map[string]any) (string, error) {
		return "ok", nil
	})))

	outcome := exec.Execute(context.Background(), ports.ToolCall{
		Name:      "pick",
		Arguments: map[string]any{"mode": "sideways"},
	})
	require.NotNil(t, outcome.Result)
	assert.Equal(t, ports.ErrCodeValidation, outcome.Result.ErrorCode)
}

func TestExecuteAppliesDefaults(t *testing.T) {
	t.Parallel()

	exec, registry := newTestExecutor(t, confirm.ModeBlocking)
	var seen map[string]any
	def := ports.ToolDefinition{
		Name: "defaults",
		Parameters: ports.ParameterSchema{
			Type: "object",
			Properties: map[string]ports.Property{
				"format": {Type: "string", Default: "human"},
			},
		},
	}
	require.NoError(t, registry.Register(NewTool(def, ports.ToolMetadata{}, func(_ context.Context, args map[string]any) (string, error) {
		seen = args
		return "ok", nil
	})))

	outcome := exec.Execute(context.Background(), ports.ToolCall{Name: "defaults"})
	require.True(t, outcome.Result.Success)
	assert.Equal(t, "human", seen["format"])
}

func TestExecuteHandlerErrorBecomesFailedResult(t *testing.T) {
	t.Parallel()

	exec, registry := newTestExecutor(t, confirm.ModeBlocking)
	def := ports.ToolDefinition{
		Name:       "boom",
		Parameters: ports.ParameterSchema{Type: "object", Properties: map[string]ports.Property{}},
	}
	require.NoError(t, registry.Register(NewTool(def, ports.ToolMetadata{}, func(_ context.Context, _ map[string]any) (string, error) {
		return "", errors.New("kaboom")
	})))

	outcome := exec.Execute(context.Background(), ports.ToolCall{Name: "boom"})
	require.NotNil(t, outcome.Result)
	assert.False(t, outcome.Result.Success)
	assert.Equal(t, ports.ErrCodeExecutionError, outcome.Result.ErrorCode)
	assert.Equal(t, "kaboom", outcome.Result.ErrorMessage)
	assert.Empty(t, outcome.Result.Data)
}

func TestExecuteAliasResolution(t *testing.T) {
	t.Parallel()

	exec, registry := newTestExecutor(t, confirm.ModeBlocking)
	def := ports.ToolDefinition{
		Name: "calculate",
		Parameters: ports.ParameterSchema{
			Type:       "object",
			Properties: map[string]ports.Property{"expression": {Type: "string"}},
			Required:   []string{"expression"},
		},
	}
	var seen map[string]any
	require.NoError(t, registry.Register(NewTool(def, ports.ToolMetadata{}, func(_ context.Context, args map[string]any) (string, error) {
		seen = args
		return "4", nil
	})))

	// Aliased tool name and aliased parameter name both resolve.
	outcome := exec.Execute(context.Background(), ports.ToolCall{
		Name:      "calc",
		Arguments: map[string]any{"equation": "2+2"},
	})
	require.NotNil(t, outcome.Result)
	require.True(t, outcome.Result.Success)
	assert.Equal(t, "calculate", outcome.Result.ToolName)
	assert.Equal(t, "2+2", seen["expression"])
}

func TestExecuteGatedToolSuspendsAndResumes(t *testing.T) {
	t.Parallel()

	exec, registry := newTestExecutor(t, confirm.ModeSuspend)
	def := ports.ToolDefinition{
		Name:       "danger",
		Parameters: ports.ParameterSchema{Type: "object", Properties: map[string]ports.Property{}},
	}
	meta := ports.ToolMetadata{
		Name:                 "danger",
		RequiresConfirmation: true,
		ConfirmationCategory: "file_ops",
	}
	invoked := 0
	require.NoError(t, registry.Register(NewTool(def, meta, func(_ context.Context, _ map[string]any) (string, error) {
		invoked++
		return "done", nil
	})))

	outcome := exec.Execute(context.Background(), ports.ToolCall{Name: "danger"})
	require.Nil(t, outcome.Result)
	require.NotNil(t, outcome.Pending)
	assert.Zero(t, invoked, "tool must not run before confirmation")

	result, err := exec.Resume(context.Background(), outcome.Pending.ID, confirm.DecisionAllow)
	require.NoError(t, err)
	require.True(t, result.Success)
	assert.Equal(t, "done", result.Data)
	assert.Equal(t, 1, invoked)

	_, err = exec.Resume(context.Background(), outcome.Pending.ID, confirm.DecisionAllow)
	assert.Error(t, err, "confirmation ids are single use")
}

func TestExecuteGatedToolDeniedInBlockingMode(t *testing.T) {
	t.Parallel()

	// No prompter wired, so a blocking ask denies.
	exec, registry := newTestExecutor(t, confirm.ModeBlocking)
	def := ports.ToolDefinition{
		Name:       "danger",
		Parameters: ports.ParameterSchema{Type: "object", Properties: map[string]ports.Property{}},
	}
	meta := ports.ToolMetadata{Name: "danger", RequiresConfirmation: true}
	require.NoError(t, registry.Register(NewTool(def, meta, func(_ context.Context, _ map[string]any) (string, error) {
		t.Fatal("must not execute")
		return "", nil
	})))

	outcome := exec.Execute(context.Background(), ports.ToolCall{Name: "danger"})
	require.NotNil(t, outcome.Result)
	assert.Equal(t, ports.ErrCodeUserDenied, outcome.Result.ErrorCode)
}
