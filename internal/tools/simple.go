package tools

import (
	"context"

	"toolchat/internal/ports"
)

// HandlerFunc is the execution body of a declaratively built tool.
type HandlerFunc func(ctx context.Context, args map[string]any) (string, error)

type funcTool struct {
	def     ports.ToolDefinition
	meta    ports.ToolMetadata
	handler HandlerFunc
}

// NewTool builds a Tool from a definition, metadata, and a handler. The
// metadata name falls back to the definition name when empty.
func NewTool(def ports.ToolDefinition, meta ports.ToolMetadata, handler HandlerFunc) ports.Tool {
	if meta.Name == "" {
		meta.Name = def.Name
	}
	if def.Parameters.Type == "" {
		def.Parameters.Type = "object"
	}
	if def.Parameters.Properties == nil {
		def.Parameters.Properties = map[string]ports.Property{}
	}
	return &funcTool{def: def, meta: meta, handler: handler}
}

func (t *funcTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	return t.handler(ctx, args)
}

func (t *funcTool) Definition() ports.ToolDefinition { return t.def }

func (t *funcTool) Metadata() ports.ToolMetadata { return t.meta }

// StringArg reads a string argument, tolerating absent keys.
func StringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

// IntArg reads an integer argument that may arrive as int or float64.
func IntArg(args map[string]any, key string, fallback int) int {
	switch v := args[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return fallback
}

// BoolArg reads a boolean argument.
func BoolArg(args map[string]any, key string, fallback bool) bool {
	if v, ok := args[key].(bool); ok {
		return v
	}
	return fallback
}
