package builtin

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"toolchat/internal/ports"
	tokenutil "toolchat/internal/token"
	"toolchat/internal/tools"
)

// NewTextStats creates the text_stats tool reporting character, word, line,
// and estimated token counts.
func NewTextStats() ports.Tool {
	def := ports.ToolDefinition{
		Name:        "text_stats",
		Description: "Counts characters, words, lines, and estimated tokens in a text.",
		Parameters: ports.ParameterSchema{
			Type: "object",
			Properties: map[string]ports.Property{
				"text": {
					Type:        "string",
					Description: "The text to analyze.",
				},
			},
			Required: []string{"text"},
		},
	}
	meta := ports.ToolMetadata{Name: def.Name, Module: "core"}

	return tools.NewTool(def, meta, func(ctx context.Context, args map[string]any) (string, error) {
		text := tools.StringArg(args, "text")
		lines := strings.Count(text, "\n")
		if text != "" && !strings.HasSuffix(text, "\n") {
			lines++
		}
		return fmt.Sprintf("characters: %d\nwords: %d\nlines: %d\ntokens (approx): %d",
			utf8.RuneCountInString(text),
			len(strings.Fields(text)),
			lines,
			tokenutil.EstimateFast(text)), nil
	})
}
