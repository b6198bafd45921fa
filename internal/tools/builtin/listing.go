package builtin

import (
	"context"
	"fmt"
	"strings"

	"toolchat/internal/memory"
	"toolchat/internal/ports"
	"toolchat/internal/tools"
)

// NewListTools creates the list_tools tool. Like memory_read_all its output
// grows with the registry, so the history filter rewrites old copies.
func NewListTools(registry *tools.Registry) ports.Tool {
	def := ports.ToolDefinition{
		Name:        "list_tools",
		Description: "Lists every available tool with its description.",
		Parameters:  ports.ParameterSchema{Type: "object", Properties: map[string]ports.Property{}},
	}
	meta := ports.ToolMetadata{Name: def.Name, Module: "core"}

	return tools.NewTool(def, meta, func(ctx context.Context, args map[string]any) (string, error) {
		defs := registry.List()
		var b strings.Builder
		for _, d := range defs {
			fmt.Fprintf(&b, "%s: %s\n", d.Name, d.Description)
		}
		return strings.TrimRight(b.String(), "\n"), nil
	})
}

// RegisterAll wires the stock tool set into the registry.
func RegisterAll(registry *tools.Registry, store *memory.Store) {
	registry.MustRegister(NewClock())
	registry.MustRegister(NewCalculator())
	registry.MustRegister(NewTextStats())
	registry.MustRegister(NewReadFile())
	registry.MustRegister(NewListFiles())
	registry.MustRegister(NewDeleteFile())
	registry.MustRegister(NewListTools(registry))
	if store != nil {
		registry.MustRegister(NewMemorySave(store))
		registry.MustRegister(NewMemorySearch(store))
		registry.MustRegister(NewMemoryReadAll(store))
		registry.MustRegister(NewMemoryDelete(store))
	}
}
