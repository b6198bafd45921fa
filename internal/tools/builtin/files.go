package builtin

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"toolchat/internal/ports"
	"toolchat/internal/tools"
)

// NewDeleteFile creates the confirmation-gated delete_file tool.
func NewDeleteFile() ports.Tool {
	def := ports.ToolDefinition{
		Name:        "delete_file",
		Description: "Deletes a file from disk. This cannot be undone.",
		Parameters: ports.ParameterSchema{
			Type: "object",
			Properties: map[string]ports.Property{
				"path": {
					Type:        "string",
					Description: "Path of the file to delete.",
				},
			},
			Required: []string{"path"},
		},
	}
	meta := ports.ToolMetadata{
		Name:                 def.Name,
		Module:               "files",
		RequiresConfirmation: true,
		ConfirmationCategory: "file_ops",
		RiskLevel:            "high",
	}

	return tools.NewTool(def, meta, func(ctx context.Context, args map[string]any) (string, error) {
		path := tools.StringArg(args, "path")
		info, err := os.Stat(path)
		if err != nil {
			return "", fmt.Errorf("cannot delete %s: %w", path, err)
		}
		if info.IsDir() {
			return "", fmt.Errorf("%s is a directory, refusing to delete", path)
		}
		if err := os.Remove(path); err != nil {
			return "", err
		}
		return fmt.Sprintf("deleted %s", path), nil
	})
}

// NewReadFile creates the read_file tool.
func NewReadFile() ports.Tool {
	const maxReadBytes = 256 * 1024

	def := ports.ToolDefinition{
		Name:        "read_file",
		Description: "Reads a text file from disk.",
		Parameters: ports.ParameterSchema{
			Type: "object",
			Properties: map[string]ports.Property{
				"path": {
					Type:        "string",
					Description: "Path of the file to read.",
				},
			},
			Required: []string{"path"},
		},
	}
	meta := ports.ToolMetadata{Name: def.Name, Module: "files"}

	return tools.NewTool(def, meta, func(ctx context.Context, args map[string]any) (string, error) {
		path := tools.StringArg(args, "path")
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		if len(data) > maxReadBytes {
			return string(data[:maxReadBytes]) + "\n... (truncated)", nil
		}
		return string(data), nil
	})
}

// NewListFiles creates the list_files tool.
func NewListFiles() ports.Tool {
	def := ports.ToolDefinition{
		Name:        "list_files",
		Description: "Lists the entries of a directory.",
		Parameters: ports.ParameterSchema{
			Type: "object",
			Properties: map[string]ports.Property{
				"path": {
					Type:        "string",
					Description: "Directory to list.",
					Default:     ".",
				},
			},
		},
	}
	meta := ports.ToolMetadata{Name: def.Name, Module: "files"}

	return tools.NewTool(def, meta, func(ctx context.Context, args map[string]any) (string, error) {
		dir := tools.StringArg(args, "path")
		if dir == "" {
			dir = "."
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			return "", err
		}
		names := make([]string, 0, len(entries))
		for _, entry := range entries {
			name := entry.Name()
			if entry.IsDir() {
				name += string(filepath.Separator)
			}
			names = append(names, name)
		}
		sort.Strings(names)
		if len(names) == 0 {
			return "directory is empty", nil
		}
		return strings.Join(names, "\n"), nil
	})
}
