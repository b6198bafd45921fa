package tools

import (
	"fmt"
	"sort"
	"strings"

	"toolchat/internal/ports"
)

// schemaHint renders a compact usage hint for a tool's parameters. It is
// appended to PARAMETER_ERROR messages so the model can self-correct on the
// next round.
func schemaHint(def ports.ToolDefinition) string {
	if len(def.Parameters.Properties) == 0 {
		return fmt.Sprintf("%s takes no parameters", def.Name)
	}

	required := make(map[string]bool, len(def.Parameters.Required))
	for _, name := range def.Parameters.Required {
		required[name] = true
	}

	names := make([]string, 0, len(def.Parameters.Properties))
	for name := range def.Parameters.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	fmt.Fprintf(&b, "expected parameters for %s:", def.Name)
	for _, name := range names {
		prop := def.Parameters.Properties[name]
		b.WriteString("\n  ")
		b.WriteString(name)
		if prop.Type != "" {
			b.WriteString(" (" + prop.Type)
			if required[name] {
				b.WriteString(", required")
			}
			b.WriteString(")")
		} else if required[name] {
			b.WriteString(" (required)")
		}
		if len(prop.Enum) > 0 {
			values := make([]string, 0, len(prop.Enum))
			for _, v := range prop.Enum {
				values = append(values, fmt.Sprintf("%v", v))
			}
			b.WriteString(" one of [" + strings.Join(values, ", ") + "]")
		}
		if prop.Description != "" {
			b.WriteString(": " + prop.Description)
		}
	}
	return b.String()
}
