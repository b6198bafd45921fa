package builtin

import (
	"context"
	"fmt"
	"strings"

	"toolchat/internal/memory"
	"toolchat/internal/ports"
	"toolchat/internal/tools"
)

// NewMemorySave creates the memory_save tool.
func NewMemorySave(store *memory.Store) ports.Tool {
	def := ports.ToolDefinition{
		Name:        "memory_save",
		Description: "Saves a fact so it is remembered across sessions.",
		Parameters: ports.ParameterSchema{
			Type: "object",
			Properties: map[string]ports.Property{
				"content": {
					Type:        "string",
					Description: "The fact to remember.",
				},
				"category": {
					Type:        "string",
					Description: "Kind of fact.",
					Enum:        []any{"fact", "preference", "context"},
					Default:     "fact",
				},
			},
			Required: []string{"content"},
		},
	}
	meta := ports.ToolMetadata{Name: def.Name, Module: "memory"}

	return tools.NewTool(def, meta, func(ctx context.Context, args map[string]any) (string, error) {
		entry, err := store.Save(ctx, tools.StringArg(args, "content"), tools.StringArg(args, "category"), nil)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("saved memory %s", entry.ID), nil
	})
}

// NewMemorySearch creates the memory_search tool.
func NewMemorySearch(store *memory.Store) ports.Tool {
	def := ports.ToolDefinition{
		Name:        "memory_search",
		Description: "Searches remembered facts by keyword.",
		Parameters: ports.ParameterSchema{
			Type: "object",
			Properties: map[string]ports.Property{
				"query": {
					Type:        "string",
					Description: "Keyword to search for.",
				},
			},
			Required: []string{"query"},
		},
	}
	meta := ports.ToolMetadata{Name: def.Name, Module: "memory"}

	return tools.NewTool(def, meta, func(ctx context.Context, args map[string]any) (string, error) {
		entries, err := store.Search(ctx, tools.StringArg(args, "query"))
		if err != nil {
			return "", err
		}
		if len(entries) == 0 {
			return "no matching memories", nil
		}
		return renderEntries(entries), nil
	})
}

// NewMemoryReadAll creates the memory_read_all tool. Its output is bulky, so
// the history filter lists it among the placeholder-rewritten tools.
func NewMemoryReadAll(store *memory.Store) ports.Tool {
	def := ports.ToolDefinition{
		Name:        "memory_read_all",
		Description: "Lists every remembered fact.",
		Parameters:  ports.ParameterSchema{Type: "object", Properties: map[string]ports.Property{}},
	}
	meta := ports.ToolMetadata{Name: def.Name, Module: "memory"}

	return tools.NewTool(def, meta, func(ctx context.Context, args map[string]any) (string, error) {
		entries, err := store.All(ctx)
		if err != nil {
			return "", err
		}
		if len(entries) == 0 {
			return "no memories stored", nil
		}
		return renderEntries(entries), nil
	})
}

// NewMemoryDelete creates the confirmation-gated memory_delete tool.
func NewMemoryDelete(store *memory.Store) ports.Tool {
	def := ports.ToolDefinition{
		Name:        "memory_delete",
		Description: "Deletes a remembered fact by its id.",
		Parameters: ports.ParameterSchema{
			Type: "object",
			Properties: map[string]ports.Property{
				"id": {
					Type:        "string",
					Description: "Id of the memory entry to delete.",
				},
			},
			Required: []string{"id"},
		},
	}
	meta := ports.ToolMetadata{
		Name:                 def.Name,
		Module:               "memory",
		RequiresConfirmation: true,
		ConfirmationCategory: "memory_ops",
		RiskLevel:            "medium",
	}

	return tools.NewTool(def, meta, func(ctx context.Context, args map[string]any) (string, error) {
		entryID := tools.StringArg(args, "id")
		if err := store.Delete(ctx, entryID); err != nil {
			return "", err
		}
		return fmt.Sprintf("deleted memory %s", entryID), nil
	})
}

func renderEntries(entries []memory.Entry) string {
	var b strings.Builder
	for _, entry := range entries {
		fmt.Fprintf(&b, "[%s] %s", entry.ID, entry.Content)
		if entry.Category != "" {
			fmt.Fprintf(&b, " (%s)", entry.Category)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
