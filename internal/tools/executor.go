package tools

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"toolchat/internal/confirm"
	"toolchat/internal/logging"
	"toolchat/internal/ports"
	"toolchat/internal/utils/id"
)

// Executor runs tool calls through lookup, parameter preparation, and the
// confirmation gate. Every call yields exactly one Outcome; execution
// failures surface as failed results, never as Go errors.
type Executor struct {
	registry *Registry
	gate     *confirm.Gate
	logger   logging.Logger
}

func NewExecutor(registry *Registry, gate *confirm.Gate, logger logging.Logger) *Executor {
	return &Executor{
		registry: registry,
		gate:     gate,
		logger:   logging.OrNop(logger),
	}
}

// Execute resolves and runs one tool call. In suspend mode a gated call
// returns an AwaitingConfirmation outcome whose pending request must be
// answered via Resume.
func (e *Executor) Execute(ctx context.Context, call ports.ToolCall) ports.Outcome {
	start := time.Now()
	name := ResolveAlias(call.Name)
	if name != call.Name {
		e.logger.Debug("executor: alias %s resolved to %s", call.Name, name)
	}
	if rid := id.RequestIDFromContext(ctx); rid != "" {
		e.logger.Debug("executor: [%s] call %s in session %s", rid, name, id.SessionIDFromContext(ctx))
	}

	tool, ok := e.registry.Get(name)
	if !ok {
		e.logger.Warn("executor: tool not found: %s", name)
		msg := fmt.Sprintf("tool not found: %s", name)
		if names := e.registry.Names(); len(names) > 0 {
			msg += "; available tools: " + strings.Join(names, ", ")
		}
		return ports.Completed(ports.FailedResult(
			name, call.Arguments, ports.ErrCodeToolNotFound, msg, time.Since(start)))
	}

	def := tool.Definition()
	params, failed := e.prepareParams(def, name, call.Arguments)
	if failed != nil {
		failed.ExecutionTime = time.Since(start)
		return ports.Completed(failed)
	}

	meta := tool.Metadata()
	verdict, err := e.gate.Check(ctx, meta, def.Description, params)
	if err != nil {
		return ports.Completed(ports.FailedResult(
			name, params, ports.ErrCodeExecutionError,
			fmt.Sprintf("confirmation failed: %v", err), time.Since(start)))
	}

	switch verdict {
	case confirm.VerdictDeny:
		e.logger.Info("executor: %s denied by user policy", name)
		return ports.Completed(ports.FailedResult(
			name, params, ports.ErrCodeUserDenied,
			fmt.Sprintf("user denied execution of %s", name), time.Since(start)))
	case confirm.VerdictSuspend:
		req := e.gate.Suspend(meta, def.Description, params, func(ctx context.Context) *ports.ToolResult {
			return e.runTool(ctx, tool, name, params, start)
		})
		e.logger.Info("executor: %s suspended awaiting confirmation %s", name, req.ID)
		return ports.AwaitingConfirmation(req)
	}

	return ports.Completed(e.runTool(ctx, tool, name, params, start))
}

// Resume completes a previously suspended call.
func (e *Executor) Resume(ctx context.Context, confirmationID string, decision confirm.Decision) (*ports.ToolResult, error) {
	return e.gate.Resume(ctx, confirmationID, decision)
}

// prepareParams normalizes aliased keys, drops keys the schema does not
// declare, applies defaults, coerces string scalars to the declared types,
// and checks enums and required fields. A non-nil second return is the
// failed result to hand back.
func (e *Executor) prepareParams(def ports.ToolDefinition, name string, args map[string]any) (map[string]any, *ports.ToolResult) {
	if args == nil {
		args = map[string]any{}
	}
	args = normalizeParamNames(name, args)

	params := make(map[string]any, len(args))
	for key, value := range args {
		if _, declared := def.Parameters.Properties[key]; !declared {
			e.logger.Debug("executor: %s dropped undeclared parameter %q", name, key)
			continue
		}
		params[key] = value
	}

	for key, prop := range def.Parameters.Properties {
		if _, present := params[key]; !present && prop.Default != nil {
			params[key] = prop.Default
		}
	}

	for key, prop := range def.Parameters.Properties {
		value, present := params[key]
		if !present {
			continue
		}
		coerced, err := coerceValue(prop, value)
		if err != nil {
			return params, ports.FailedResult(name, params, ports.ErrCodeTypeConversion,
				fmt.Sprintf("parameter %q: %v\n%s", key, err, schemaHint(def)), 0)
		}
		params[key] = coerced
		if len(prop.Enum) > 0 && !enumAllows(prop.Enum, params[key]) {
			return params, ports.FailedResult(name, params, ports.ErrCodeValidation,
				fmt.Sprintf("parameter %q: value %v not allowed\n%s", key, params[key], schemaHint(def)), 0)
		}
	}

	var missing []string
	for _, key := range def.Parameters.Required {
		if _, present := params[key]; !present {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return params, ports.FailedResult(name, params, ports.ErrCodeParameterError,
			fmt.Sprintf("missing required parameters: %s\n%s",
				strings.Join(missing, ", "), schemaHint(def)), 0)
	}

	return params, nil
}

// runTool invokes the handler. Reported execution_time starts at gate
// entry, so a confirmation wait counts toward it.
func (e *Executor) runTool(ctx context.Context, tool ports.Tool, name string, params map[string]any, start time.Time) *ports.ToolResult {
	data, err := tool.Execute(ctx, params)
	elapsed := time.Since(start)
	if err != nil {
		e.logger.Warn("executor: %s failed after %s: %v", name, elapsed, err)
		return ports.FailedResult(name, params, ports.ErrCodeExecutionError, err.Error(), elapsed)
	}
	e.logger.Debug("executor: %s completed in %s", name, elapsed)
	return &ports.ToolResult{
		ToolName:      name,
		Parameters:    params,
		Success:       true,
		Data:          data,
		ExecutionTime: elapsed,
		Timestamp:     time.Now(),
	}
}

// coerceValue converts stringly-typed scalars to the declared type. Tool
// calls recovered from XML parameter tags arrive pre-coerced; this covers
// JSON payloads that quote numbers and booleans.
func coerceValue(prop ports.Property, value any) (any, error) {
	text, isString := value.(string)
	switch prop.Type {
	case "integer":
		switch v := value.(type) {
		case float64:
			// JSON numbers decode as float64; only integral values qualify.
			if v != math.Trunc(v) {
				return nil, fmt.Errorf("cannot convert %v to integer", v)
			}
			return int(v), nil
		case int:
			return v, nil
		}
		if isString {
			n, err := strconv.Atoi(strings.TrimSpace(text))
			if err != nil {
				return nil, fmt.Errorf("cannot convert %q to integer", text)
			}
			return n, nil
		}
	case "number":
		switch value.(type) {
		case float64, int:
			return value, nil
		}
		if isString {
			f, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
			if err != nil {
				return nil, fmt.Errorf("cannot convert %q to number", text)
			}
			return f, nil
		}
	case "boolean":
		if _, ok := value.(bool); ok {
			return value, nil
		}
		if isString {
			switch strings.ToLower(strings.TrimSpace(text)) {
			case "true", "yes", "1":
				return true, nil
			case "false", "no", "0":
				return false, nil
			}
			return nil, fmt.Errorf("cannot convert %q to boolean", text)
		}
	case "string":
		if !isString {
			return fmt.Sprintf("%v", value), nil
		}
	}
	return value, nil
}

func enumAllows(enum []any, value any) bool {
	for _, candidate := range enum {
		if fmt.Sprintf("%v", candidate) == fmt.Sprintf("%v", value) {
			return true
		}
	}
	return false
}
